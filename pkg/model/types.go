package model

// SessionID 会话ID
type SessionID string

// TargetID 目标ID
type TargetID string

// SessionConfig 会话配置
type SessionConfig struct {
	DevToolsURL      string `json:"devToolsURL"`
	ProcessTimeoutMS int    `json:"processTimeoutMS"`
	EventCapacity    int    `json:"eventCapacity"`
}

// EngineStats 引擎统计信息
type EngineStats struct {
	Total     int64 `json:"total"`
	Matched   int64 `json:"matched"`
	Rewritten int64 `json:"rewritten"`
	Failed    int64 `json:"failed"`
}

// TargetInfo 目标信息
type TargetInfo struct {
	ID    TargetID `json:"id"`
	Type  string   `json:"type"`
	URL   string   `json:"url"`
	Title string   `json:"title"`
}

// 事件类型
const (
	EventIntercepted   = "intercepted"    // 捕获到候选 URL
	EventRewritten     = "rewritten"      // 已替换为安全 URL
	EventDegraded      = "degraded"       // 重写失败，已回退原始 URL
	EventConfigInvalid = "config_invalid" // 重写配置不完整
	EventScanned       = "scanned"        // 一次文档扫描完成
)

// 拦截入口来源
const (
	SourceRequest    = "request"    // 子资源请求拦截
	SourceNavigation = "navigation" // 导航/打开拦截
	SourceWindowOpen = "window_open"
	SourceScan       = "scan"     // 按需全文档扫描
	SourceObserver   = "observer" // DOM 变更观察
	SourceMenu       = "menu"     // 宿主上下文菜单动作
)

// Event 拦截/重写事件
type Event struct {
	Type       string    `json:"type"`
	Session    SessionID `json:"session"`
	Target     TargetID  `json:"target"`
	Source     string    `json:"source"`
	URL        string    `json:"url"`
	SecuredURL string    `json:"securedUrl,omitempty"`
	Count      int       `json:"count,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  int64     `json:"timestamp"`
}

// RequestInfo 中立的请求描述，候选 URL 的一种载体形态
type RequestInfo struct {
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	ResourceType string            `json:"resourceType,omitempty"` // document/xhr/image等
}

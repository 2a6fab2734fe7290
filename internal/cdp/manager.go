package cdp

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/protocol/target"
	"github.com/mafredri/cdp/rpcc"
	"github.com/mafredri/cdp/session"

	"securelink/internal/engine"
	"securelink/internal/logger"
	"securelink/pkg/model"
)

// Manager 管理到单个渲染目标的连接与全部拦截入口。
// 所有入口共享同一个 engine.Engine，不存在各自为政的匹配/重写逻辑。
type Manager struct {
	devtoolsURL string
	conn        *rpcc.Conn
	client      *cdp.Client
	sess        *session.Manager
	ctx         context.Context
	cancel      context.CancelFunc

	engine           *engine.Engine
	events           chan model.Event
	log              logger.Logger
	processTimeoutMS int

	targetID model.TargetID
	enabled  atomic.Bool

	mu       sync.Mutex
	streams  []io.Closer
	children map[model.TargetID]*Manager
}

// New 创建目标管理器
func New(devtoolsURL string, eng *engine.Engine, events chan model.Event, l logger.Logger, processTimeoutMS int) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		devtoolsURL:      devtoolsURL,
		engine:           eng,
		events:           events,
		log:              l,
		processTimeoutMS: processTimeoutMS,
		children:         make(map[model.TargetID]*Manager),
	}
}

// ListTargets 列出 DevTools 端点下可附加的目标
func ListTargets(ctx context.Context, devtoolsURL string) ([]model.TargetInfo, error) {
	dt := devtool.New(devtoolsURL)
	targets, err := dt.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.TargetInfo, 0, len(targets))
	for _, t := range targets {
		out = append(out, model.TargetInfo{
			ID:    model.TargetID(t.ID),
			Type:  string(t.Type),
			URL:   t.URL,
			Title: t.Title,
		})
	}
	return out, nil
}

// Attach 附加到指定目标；targetID 为空时附加第一个页面目标
func (m *Manager) Attach(targetID model.TargetID) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.ctx = ctx
	m.cancel = cancel

	dt := devtool.New(m.devtoolsURL)
	targets, err := dt.List(ctx)
	if err != nil {
		cancel()
		return err
	}
	var sel *devtool.Target
	for i := range targets {
		if string(targets[i].ID) == string(targetID) {
			sel = targets[i]
			break
		}
		if targetID == "" && targets[i].Type == devtool.Page {
			sel = targets[i]
			break
		}
	}
	if sel == nil {
		cancel()
		return fmt.Errorf("未找到目标 %q", string(targetID))
	}

	conn, err := rpcc.DialContext(ctx, sel.WebSocketDebuggerURL)
	if err != nil {
		cancel()
		return err
	}
	m.conn = conn
	m.client = cdp.NewClient(conn)
	m.targetID = model.TargetID(sel.ID)
	m.log.Info("已附加目标", "target", sel.ID, "url", sel.URL)
	return nil
}

// newChild 以现有连接构建子目标管理器，复用引擎、事件通道与日志
func (m *Manager) newChild(conn *rpcc.Conn, id model.TargetID) *Manager {
	c := New(m.devtoolsURL, m.engine, m.events, m.log, m.processTimeoutMS)
	ctx, cancel := context.WithCancel(m.ctx)
	c.conn = conn
	c.client = cdp.NewClient(conn)
	c.ctx = ctx
	c.cancel = cancel
	c.targetID = id
	return c
}

// Detach 断开连接并释放资源
func (m *Manager) Detach() error {
	m.enabled.Store(false)
	m.detachChildren()
	m.closeStreams()
	if m.sess != nil {
		_ = m.sess.Close()
		m.sess = nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}

// Enable 安装全部拦截入口。与 Disable 配对构成可逆的安装/卸载：
// 卸载后目标恢复原生网络行为，不留任何替换痕迹。
// 重复调用是空操作，事件流不会被重复订阅。
func (m *Manager) Enable() error {
	if !m.enabled.CompareAndSwap(false, true) {
		return nil
	}
	if m.client == nil {
		m.enabled.Store(false)
		return fmt.Errorf("尚未附加目标")
	}
	if err := m.install(); err != nil {
		m.enabled.Store(false)
		m.closeStreams()
		return err
	}
	return nil
}

// install 启用协议域、订阅事件流并开启自动附加
func (m *Manager) install() error {
	if err := m.client.Network.Enable(m.ctx, nil); err != nil {
		return err
	}
	if err := m.client.Page.Enable(m.ctx); err != nil {
		return err
	}
	if err := m.client.DOM.Enable(m.ctx, nil); err != nil {
		return err
	}
	// DOM 事件在首次 GetDocument 之后才开始推送
	if _, err := m.client.DOM.GetDocument(m.ctx, nil); err != nil {
		return err
	}

	p := "*"
	patterns := []fetch.RequestPattern{
		{URLPattern: &p, RequestStage: fetch.RequestStageRequest},
	}
	if err := m.client.Fetch.Enable(m.ctx, &fetch.EnableArgs{Patterns: patterns}); err != nil {
		return err
	}

	// 弹窗、中键/修饰键点击落在新目标中。waitForDebuggerOnStart 让新目标
	// 在首个请求发出前挂起，待装配好同样的拦截后再放行，
	// 原始 URL 不会抢先进入网络层
	if m.sess == nil {
		sess, err := session.NewManager(m.client)
		if err != nil {
			return err
		}
		m.sess = sess
	}
	if err := m.client.Target.SetAutoAttach(m.ctx, target.NewSetAutoAttachArgs(true, true).SetFlatten(true)); err != nil {
		return err
	}

	rp, err := m.client.Fetch.RequestPaused(m.ctx)
	if err != nil {
		return err
	}
	m.addStream(rp)
	wo, err := m.client.Page.WindowOpen(m.ctx)
	if err != nil {
		return err
	}
	m.addStream(wo)
	ci, err := m.client.DOM.ChildNodeInserted(m.ctx)
	if err != nil {
		return err
	}
	m.addStream(ci)
	at, err := m.client.Target.AttachedToTarget(m.ctx)
	if err != nil {
		return err
	}
	m.addStream(at)

	go m.consumeFetch(rp)
	go m.consumeWindowOpen(wo)
	go m.consumeDOMInserted(ci)
	go m.consumeAttached(at)
	m.log.Info("拦截已启用", "target", string(m.targetID))
	return nil
}

// Disable 卸载请求拦截并关闭事件流，目标恢复默认行为
func (m *Manager) Disable() error {
	if m.client == nil {
		return fmt.Errorf("尚未附加目标")
	}
	if !m.enabled.CompareAndSwap(true, false) {
		return nil
	}
	if err := m.client.Target.SetAutoAttach(m.ctx, target.NewSetAutoAttachArgs(false, false)); err != nil {
		m.log.Warn("取消自动附加失败", "target", string(m.targetID), "error", err)
	}
	m.detachChildren()
	m.closeStreams()
	m.log.Info("拦截已禁用", "target", string(m.targetID))
	return m.client.Fetch.Disable(m.ctx)
}

func (m *Manager) addStream(s io.Closer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, s)
}

// closeStreams 关闭全部已订阅的事件流，消费协程随之退出
func (m *Manager) closeStreams() {
	m.mu.Lock()
	streams := m.streams
	m.streams = nil
	m.mu.Unlock()
	for _, s := range streams {
		_ = s.Close()
	}
}

func (m *Manager) addChild(c *Manager) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children[c.targetID] = c
}

func (m *Manager) detachChildren() {
	m.mu.Lock()
	children := m.children
	m.children = make(map[model.TargetID]*Manager)
	m.mu.Unlock()
	for _, c := range children {
		if err := c.Detach(); err != nil {
			m.log.Warn("分离子目标失败", "target", string(c.targetID), "error", err)
		}
	}
}

// TargetID 返回当前附加的目标ID
func (m *Manager) TargetID() model.TargetID {
	return m.targetID
}

// OpenURL 在新标签页中打开 URL
func (m *Manager) OpenURL(ctx context.Context, rawurl string) error {
	_, err := m.client.Target.CreateTarget(ctx, target.NewCreateTargetArgs(rawurl))
	return err
}

// SecureAndOpen 宿主上下文菜单动作：重写后在新标签页打开。
// 重写失败时按原始 URL 打开，可用性优先。
func (m *Manager) SecureAndOpen(ctx context.Context, rawurl string) error {
	if m.client == nil {
		return fmt.Errorf("尚未附加目标")
	}
	if !m.engine.InScope(rawurl) {
		return m.OpenURL(ctx, rawurl)
	}
	out, rwErr := m.engine.RewriteCandidate(ctx, rawurl)
	secured, _ := engine.CandidateURL(out)
	if rwErr != nil {
		m.sendEvent(model.Event{Type: model.EventDegraded, Target: m.targetID, Source: model.SourceMenu, URL: rawurl, Error: rwErr.Error()})
	} else {
		m.sendEvent(model.Event{Type: model.EventRewritten, Target: m.targetID, Source: model.SourceMenu, URL: rawurl, SecuredURL: secured})
	}
	return m.OpenURL(ctx, secured)
}

// sendEvent 非阻塞发送事件，自动补时间戳
func (m *Manager) sendEvent(evt model.Event) {
	if m.events == nil {
		return
	}
	evt.Timestamp = time.Now().UnixMilli()
	select {
	case m.events <- evt:
	default:
	}
}

// opCtx 派生带处理超时的上下文，超时后降级放行而不是无限等待
func (m *Manager) opCtx() (context.Context, context.CancelFunc) {
	to := m.processTimeoutMS
	if to <= 0 {
		to = 3000
	}
	return context.WithTimeout(m.ctx, time.Duration(to)*time.Millisecond)
}

package storage

import (
	"time"
)

// Setting 用户设置表
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// 预定义的设置 Key
const (
	SettingKeyRewriteConfig = "rewrite_config"
	SettingKeyDevToolsURL   = "devtools_url"
)

// RewriteEventRecord 重写事件历史表
type RewriteEventRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"index" json:"sessionId"`
	TargetID   string    `json:"targetId"`
	Type       string    `gorm:"index" json:"type"` // intercepted, rewritten, degraded...
	Source     string    `json:"source"`
	URL        string    `gorm:"type:text" json:"url"`
	SecuredURL string    `gorm:"type:text" json:"securedUrl"`
	Error      string    `json:"error"`
	Timestamp  int64     `gorm:"index" json:"timestamp"`
	CreatedAt  time.Time `json:"createdAt"`
}

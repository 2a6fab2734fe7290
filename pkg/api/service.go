package api

import (
	"context"

	"securelink/internal/config"
	"securelink/internal/logger"
	"securelink/internal/service"
	"securelink/internal/storage"
	"securelink/pkg/model"
)

// Service 服务接口
type Service interface {
	// StartSession 启动会话
	StartSession(cfg model.SessionConfig) (model.SessionID, error)

	// StopSession 停止会话
	StopSession(id model.SessionID) error

	// ListTargets 列出可附加目标
	ListTargets(id model.SessionID) ([]model.TargetInfo, error)

	// AttachTarget 附加目标，target 为空时附加第一个页面目标
	AttachTarget(id model.SessionID, target model.TargetID) (model.TargetID, error)

	// DetachTarget 分离目标
	DetachTarget(id model.SessionID, target model.TargetID) error

	// EnableInterception 启用拦截
	EnableInterception(id model.SessionID) error

	// DisableInterception 禁用拦截
	DisableInterception(id model.SessionID) error

	// RewriteConfig 读取持久化的重写配置
	RewriteConfig() (model.RewriteConfig, error)

	// UpdateRewriteConfig 保存重写配置并对后续拦截生效
	UpdateRewriteConfig(cfg model.RewriteConfig) error

	// SecureAll 安全化当前视图中全部匹配链接，返回新处理数量
	SecureAll(ctx context.Context, id model.SessionID, target model.TargetID) (int, error)

	// SecureAndOpen 重写指定 URL 后在新标签页打开
	SecureAndOpen(ctx context.Context, id model.SessionID, target model.TargetID, rawurl string) error

	// SubscribeEvents 订阅事件
	SubscribeEvents(id model.SessionID) (<-chan model.Event, error)

	// Stats 获取引擎统计信息
	Stats(id model.SessionID) (model.EngineStats, error)

	// RecentEvents 返回最近的重写事件历史
	RecentEvents(limit int) ([]storage.RewriteEventRecord, error)

	// Close 释放资源
	Close() error
}

// NewService 创建并返回服务接口实现
func NewService(cfg *config.Config, l logger.Logger) (Service, error) {
	return service.New(cfg, l)
}

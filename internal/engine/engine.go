package engine

import (
	"context"
	"sync/atomic"
	"time"

	"securelink/internal/logger"
	"securelink/pkg/model"
)

// Signer 对象存储签名服务，输入对象键与有效期，返回预签名 URL
type Signer interface {
	Presign(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// SignerFactory 按配置快照构建签名客户端
type SignerFactory func(cfg model.RewriteConfig) (Signer, error)

// snapshot 配置与签名客户端的不可变组合，进行中的重写始终使用启动时的快照
type snapshot struct {
	cfg    model.RewriteConfig
	signer Signer
}

// Engine 共享的匹配+重写引擎，所有拦截入口都经由同一个实例
type Engine struct {
	snap      atomic.Pointer[snapshot]
	newSigner SignerFactory
	log       logger.Logger

	total     atomic.Int64
	matched   atomic.Int64
	rewritten atomic.Int64
	failed    atomic.Int64
}

// New 创建引擎。parameter 模式下 factory 可以为 nil。
func New(cfg model.RewriteConfig, factory SignerFactory, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	e := &Engine{newSigner: factory, log: log}
	e.UpdateConfig(cfg)
	return e
}

// UpdateConfig 整体替换配置快照，对进行中的重写无影响
func (e *Engine) UpdateConfig(cfg model.RewriteConfig) {
	snap := &snapshot{cfg: cfg}
	if cfg.Mode == model.ModeSigned && cfg.Validate() == nil && e.newSigner != nil {
		s, err := e.newSigner(cfg)
		if err != nil {
			e.log.Err(err, "创建签名客户端失败", "bucket", cfg.Bucket, "region", cfg.Region)
		} else {
			snap.signer = s
		}
	}
	e.snap.Store(snap)
}

// Config 返回当前配置快照
func (e *Engine) Config() model.RewriteConfig {
	return e.snap.Load().cfg
}

// InScope 判断候选 URL 是否在当前匹配模式范围内
func (e *Engine) InScope(raw string) bool {
	e.total.Add(1)
	ok := InScope(raw, e.snap.Load().cfg.MatchPattern)
	if ok {
		e.matched.Add(1)
	}
	return ok
}

// Stats 返回引擎统计信息
func (e *Engine) Stats() model.EngineStats {
	return model.EngineStats{
		Total:     e.total.Load(),
		Matched:   e.matched.Load(),
		Rewritten: e.rewritten.Load(),
		Failed:    e.failed.Load(),
	}
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"securelink/internal/cdp"
	"securelink/internal/config"
	"securelink/internal/engine"
	"securelink/internal/logger"
	"securelink/internal/session"
	"securelink/internal/signer"
	"securelink/internal/storage"
	"securelink/pkg/model"
)

// Service 拦截服务实现：组合会话管理、共享引擎与持久化
type Service struct {
	cfg      *config.Config
	log      logger.Logger
	store    *storage.Store
	sessions *session.Manager

	mu   sync.Mutex
	subs map[model.SessionID][]chan model.Event
	done map[model.SessionID]chan struct{}
}

// New 创建服务：打开存储并加载上次保存的重写配置
func New(cfg *config.Config, l logger.Logger) (*Service, error) {
	if l == nil {
		l = logger.NewNop()
	}
	store, err := storage.Open(cfg.Sqlite.Dsn, cfg.Sqlite.Prefix, l)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		log:      l,
		store:    store,
		sessions: session.NewManager(l),
		subs:     make(map[model.SessionID][]chan model.Event),
		done:     make(map[model.SessionID]chan struct{}),
	}, nil
}

// newSigner 签名客户端工厂，引擎在配置切换到 signed 模式时调用
func newSigner(cfg model.RewriteConfig) (engine.Signer, error) {
	return signer.NewS3(context.Background(), cfg)
}

// StartSession 启动会话：加载重写配置快照并开始转发事件。
// 未指定端点时优先复用上次使用的 DevTools 端点，其次取应用配置
func (s *Service) StartSession(sc model.SessionConfig) (model.SessionID, error) {
	if sc.DevToolsURL == "" {
		if saved, err := s.store.LoadDevToolsURL(); err == nil && saved != "" {
			sc.DevToolsURL = saved
		} else {
			sc.DevToolsURL = s.cfg.DevTools.URL
		}
	}
	if err := s.store.SaveDevToolsURL(sc.DevToolsURL); err != nil {
		s.log.Warn("记录 DevTools 端点失败", "error", err)
	}
	if sc.ProcessTimeoutMS <= 0 {
		sc.ProcessTimeoutMS = s.cfg.ProcessTimeoutMS
	}
	rc, err := s.store.LoadRewriteConfig()
	if err != nil {
		return "", fmt.Errorf("加载重写配置失败: %w", err)
	}
	eng := engine.New(rc, newSigner, s.log)
	sess := s.sessions.Create(sc, eng)

	done := make(chan struct{})
	s.mu.Lock()
	s.done[sess.ID] = done
	s.mu.Unlock()
	go s.pump(sess, done)

	return sess.ID, nil
}

// StopSession 停止会话并分离全部目标
func (s *Service) StopSession(id model.SessionID) error {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return fmt.Errorf("会话不存在: %s", string(id))
	}
	for _, m := range sess.Managers() {
		if err := m.Detach(); err != nil {
			s.log.Err(err, "分离目标失败", "target", string(m.TargetID()))
		}
	}
	s.mu.Lock()
	if done, ok := s.done[id]; ok {
		close(done)
		delete(s.done, id)
	}
	delete(s.subs, id)
	s.mu.Unlock()
	s.sessions.Delete(id)
	return nil
}

// ListTargets 列出会话 DevTools 端点下的可附加目标
func (s *Service) ListTargets(id model.SessionID) ([]model.TargetInfo, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("会话不存在: %s", string(id))
	}
	return cdp.ListTargets(context.Background(), sess.Config.DevToolsURL)
}

// AttachTarget 附加目标，返回实际选中的目标ID
func (s *Service) AttachTarget(id model.SessionID, target model.TargetID) (model.TargetID, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return "", fmt.Errorf("会话不存在: %s", string(id))
	}
	m := cdp.New(sess.Config.DevToolsURL, sess.Engine, sess.Events, s.log, sess.Config.ProcessTimeoutMS)
	if err := m.Attach(target); err != nil {
		return "", err
	}
	sess.AddManager(m.TargetID(), m)
	return m.TargetID(), nil
}

// DetachTarget 分离目标
func (s *Service) DetachTarget(id model.SessionID, target model.TargetID) error {
	sess, m, err := s.manager(id, target)
	if err != nil {
		return err
	}
	defer sess.RemoveManager(target)
	return m.Detach()
}

// EnableInterception 对会话内全部目标启用拦截
func (s *Service) EnableInterception(id model.SessionID) error {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return fmt.Errorf("会话不存在: %s", string(id))
	}
	for _, m := range sess.Managers() {
		if err := m.Enable(); err != nil {
			return err
		}
	}
	return nil
}

// DisableInterception 对会话内全部目标禁用拦截
func (s *Service) DisableInterception(id model.SessionID) error {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return fmt.Errorf("会话不存在: %s", string(id))
	}
	for _, m := range sess.Managers() {
		if err := m.Disable(); err != nil {
			return err
		}
	}
	return nil
}

// RewriteConfig 返回持久化的重写配置
func (s *Service) RewriteConfig() (model.RewriteConfig, error) {
	return s.store.LoadRewriteConfig()
}

// UpdateRewriteConfig 原样持久化配置并整体替换所有会话的引擎快照；
// 进行中的重写继续使用旧快照完成。配置是否完整不在保存时裁决，
// 不完整的配置在重写时回退原始 URL 并告警
func (s *Service) UpdateRewriteConfig(rc model.RewriteConfig) error {
	if err := s.store.SaveRewriteConfig(rc); err != nil {
		return err
	}
	for _, sess := range s.sessions.List() {
		sess.Engine.UpdateConfig(rc)
	}
	return nil
}

// SecureAll 对目标当前渲染视图执行一次按需扫描，返回新处理数量
func (s *Service) SecureAll(ctx context.Context, id model.SessionID, target model.TargetID) (int, error) {
	sess, m, err := s.manager(id, target)
	if err != nil {
		return 0, err
	}
	if err := sess.Engine.Config().Validate(); err != nil {
		select {
		case sess.Events <- model.Event{
			Type:      model.EventConfigInvalid,
			Target:    target,
			Source:    model.SourceScan,
			Error:     err.Error(),
			Timestamp: time.Now().UnixMilli(),
		}:
		default:
		}
		return 0, err
	}
	return m.SecureAll(ctx)
}

// SecureAndOpen 上下文菜单动作：重写指定 URL 后在新标签页打开
func (s *Service) SecureAndOpen(ctx context.Context, id model.SessionID, target model.TargetID, rawurl string) error {
	_, m, err := s.manager(id, target)
	if err != nil {
		return err
	}
	return m.SecureAndOpen(ctx, rawurl)
}

// SubscribeEvents 订阅会话事件
func (s *Service) SubscribeEvents(id model.SessionID) (<-chan model.Event, error) {
	if _, ok := s.sessions.Get(id); !ok {
		return nil, fmt.Errorf("会话不存在: %s", string(id))
	}
	ch := make(chan model.Event, 256)
	s.mu.Lock()
	s.subs[id] = append(s.subs[id], ch)
	s.mu.Unlock()
	return ch, nil
}

// Stats 返回会话引擎统计
func (s *Service) Stats(id model.SessionID) (model.EngineStats, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return model.EngineStats{}, fmt.Errorf("会话不存在: %s", string(id))
	}
	return sess.Engine.Stats(), nil
}

// RecentEvents 返回最近的重写事件历史
func (s *Service) RecentEvents(limit int) ([]storage.RewriteEventRecord, error) {
	return s.store.RecentEvents(limit)
}

// Close 释放服务资源
func (s *Service) Close() error {
	for _, sess := range s.sessions.List() {
		_ = s.StopSession(sess.ID)
	}
	return s.store.Close()
}

// pump 将会话事件落库并转发给订阅者
func (s *Service) pump(sess *session.Session, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case evt := <-sess.Events:
			evt.Session = sess.ID
			if evt.Type != model.EventIntercepted {
				if err := s.store.RecordEvent(sess.ID, evt); err != nil {
					s.log.Err(err, "记录事件失败", "type", evt.Type)
				}
			}
			s.mu.Lock()
			subs := s.subs[sess.ID]
			s.mu.Unlock()
			for _, ch := range subs {
				select {
				case ch <- evt:
				default:
				}
			}
		}
	}
}

func (s *Service) manager(id model.SessionID, target model.TargetID) (*session.Session, *cdp.Manager, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, nil, fmt.Errorf("会话不存在: %s", string(id))
	}
	m, ok := sess.Manager(target)
	if !ok {
		return nil, nil, fmt.Errorf("目标未附加: %s", string(target))
	}
	return sess, m, nil
}

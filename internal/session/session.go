package session

import (
	"sync"

	"securelink/internal/cdp"
	"securelink/internal/engine"
	"securelink/pkg/model"
)

// Session 一次拦截会话：一个配置引擎加若干已附加目标
type Session struct {
	ID     model.SessionID
	Config model.SessionConfig
	Engine *engine.Engine
	Events chan model.Event

	mu       sync.RWMutex
	managers map[model.TargetID]*cdp.Manager
}

// New 创建会话
func New(id model.SessionID, cfg model.SessionConfig, eng *engine.Engine) *Session {
	capacity := cfg.EventCapacity
	if capacity <= 0 {
		capacity = 256
	}
	return &Session{
		ID:       id,
		Config:   cfg,
		Engine:   eng,
		Events:   make(chan model.Event, capacity),
		managers: make(map[model.TargetID]*cdp.Manager),
	}
}

// AddManager 登记目标管理器
func (s *Session) AddManager(id model.TargetID, m *cdp.Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managers[id] = m
}

// Manager 获取目标管理器
func (s *Session) Manager(id model.TargetID) (*cdp.Manager, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.managers[id]
	return m, ok
}

// RemoveManager 移除目标管理器
func (s *Session) RemoveManager(id model.TargetID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.managers, id)
}

// Managers 返回全部目标管理器
func (s *Session) Managers() []*cdp.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*cdp.Manager, 0, len(s.managers))
	for _, m := range s.managers {
		out = append(out, m)
	}
	return out
}

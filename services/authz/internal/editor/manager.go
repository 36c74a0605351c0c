package editor

import (
	"sync"

	"github.com/goconsole/pkg/errors"
	"github.com/google/uuid"
)

// Manager 进程内的编辑会话表
type Manager struct {
	updater  RoleUpdater
	readOnly bool

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager 创建会话管理器
func NewManager(updater RoleUpdater, readOnly bool) *Manager {
	return &Manager{
		updater:  updater,
		readOnly: readOnly,
		sessions: make(map[string]*Session),
	}
}

// Create 新建会话
func (m *Manager) Create() *Session {
	s := NewSession(uuid.NewString(), m.updater, m.readOnly)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

// Get 获取会话
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("编辑会话")
	}
	return s, nil
}

// Remove 删除会话，保存中的会话不可删除
func (m *Manager) Remove(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := s.Close(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Len 会话数量
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

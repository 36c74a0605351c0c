// Package editor 权限矩阵单元格的编辑会话
package editor

import (
	"context"
	"sync"

	"github.com/goconsole/pkg/errors"
	"github.com/goconsole/services/authz/internal/matrix"
)

// State 会话状态
type State int

const (
	StateClosed State = iota
	StateOpen
	StateSaving
)

// String 状态名
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateSaving:
		return "saving"
	default:
		return "closed"
	}
}

// MarshalText 以状态名序列化
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 从状态名解析
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "open":
		*s = StateOpen
	case "saving":
		*s = StateSaving
	case "closed":
		*s = StateClosed
	default:
		return errors.BadRequest("未知的会话状态 " + string(text))
	}
	return nil
}

// RoleUpdater 角色权限的写入端。expectedVersion 为 0 时不做版本校验
type RoleUpdater interface {
	UpdateRole(ctx context.Context, roleKey string, permissions []string, expectedVersion int64) (matrix.Role, error)
}

// Session 单个编辑会话，同一时刻最多针对一个 角色×菜单 单元格
type Session struct {
	id       string
	readOnly bool
	updater  RoleUpdater

	mu        sync.Mutex
	state     State
	role      matrix.Role
	menu      matrix.Menu
	baseline  []string
	selection []string
	lastErr   error
}

// NewSession 创建会话
func NewSession(id string, updater RoleUpdater, readOnly bool) *Session {
	return &Session{
		id:       id,
		readOnly: readOnly,
		updater:  updater,
	}
}

// ID 会话ID
func (s *Session) ID() string {
	return s.id
}

// Open 打开单元格。已打开的单元格中未保存的选择会被直接丢弃
func (s *Session) Open(role matrix.Role, menu matrix.Menu) error {
	if s.readOnly {
		return errors.ErrReadOnly
	}
	if role.BuiltIn {
		return errors.ErrBuiltInRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSaving {
		return errors.ErrInvalidSession
	}

	s.state = StateOpen
	s.role = role
	s.menu = menu
	s.baseline = matrix.SelectionFor(role, menu)
	s.selection = append([]string(nil), s.baseline...)
	s.lastErr = nil
	return nil
}

// Toggle 切换菜单内的某个权限
func (s *Session) Toggle(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return errors.ErrInvalidSession
	}
	if !matrix.NewKeySet(s.menu.Permissions).Has(key) {
		return errors.Validation("权限 " + key + " 不属于菜单 " + s.menu.AppKey)
	}

	s.selection = matrix.ToggleSelection(s.selection, key, s.role.BuiltIn)
	return nil
}

// Save 提交当前选择。成功后会话关闭；失败后回到打开状态并保留选择
func (s *Session) Save(ctx context.Context) (matrix.Role, error) {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return matrix.Role{}, errors.ErrInvalidSession
	}
	if s.role.BuiltIn {
		s.mu.Unlock()
		return matrix.Role{}, errors.ErrBuiltInRole
	}
	if !matrix.HasChanges(s.selection, s.baseline) {
		s.mu.Unlock()
		return matrix.Role{}, errors.ErrNoChanges
	}

	merged, err := matrix.MergeMenuPermissions(s.role, s.menu, s.selection)
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return matrix.Role{}, err
	}
	role := s.role
	s.state = StateSaving
	s.mu.Unlock()

	updated, err := s.updater.UpdateRole(ctx, role.Key, merged, role.Version)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateOpen
		s.lastErr = err
		return matrix.Role{}, err
	}

	s.state = StateClosed
	s.role = updated
	s.menu = matrix.Menu{}
	s.baseline = nil
	s.selection = nil
	s.lastErr = nil
	return updated, nil
}

// Close 关闭会话并丢弃未保存的选择，保存中不可关闭
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSaving {
		return errors.ErrInvalidSession
	}
	s.state = StateClosed
	s.menu = matrix.Menu{}
	s.baseline = nil
	s.selection = nil
	s.lastErr = nil
	return nil
}

// View 会话快照
type View struct {
	ID         string   `json:"id"`
	State      State    `json:"state"`
	RoleKey    string   `json:"roleKey,omitempty"`
	AppKey     string   `json:"appKey,omitempty"`
	Selection  []string `json:"selection"`
	Baseline   []string `json:"baseline"`
	HasChanges bool     `json:"hasChanges"`
	Error      string   `json:"error,omitempty"`
}

// View 获取会话快照
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:         s.id,
		State:      s.state,
		Selection:  append([]string{}, s.selection...),
		Baseline:   append([]string{}, s.baseline...),
		HasChanges: s.state != StateClosed && matrix.HasChanges(s.selection, s.baseline),
	}
	if s.state != StateClosed {
		v.RoleKey = s.role.Key
		v.AppKey = s.menu.AppKey
	}
	if s.lastErr != nil {
		v.Error = errors.GetMessage(s.lastErr)
	}
	return v
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

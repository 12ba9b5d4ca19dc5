package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"activitylog/internal/logger"
	"activitylog/internal/stream"
	"activitylog/pkg/domain"
)

// Session 一个打开的活动流
type Session struct {
	ID        domain.StreamID
	Buffer    *stream.Buffer
	CreatedAt time.Time

	changed chan struct{}
}

// Changed 活动流内容或筛选结果变化时收到通知，多次变化可能合并为一次
func (s *Session) Changed() <-chan struct{} { return s.changed }

func (s *Session) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Manager 全局活动流管理器
type Manager struct {
	mu       sync.RWMutex
	sessions map[domain.StreamID]*Session
	log      logger.Logger
}

// NewManager 创建活动流管理器
func NewManager(l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		sessions: make(map[domain.StreamID]*Session),
		log:      l,
	}
}

// Create 为扩展创建并注册新活动流
func (m *Manager) Create(ext domain.ExtensionID, src stream.Source, opts ...stream.Option) *Session {
	id := domain.StreamID(uuid.NewString())
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		changed:   make(chan struct{}, 1),
	}
	opts = append([]stream.Option{
		stream.WithLogger(m.log.With("streamID", string(id))),
		stream.WithOnChange(s.notify),
	}, opts...)
	s.Buffer = stream.New(ext, src, opts...)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.log.Info("创建活动流", "streamID", string(id), "extensionID", string(ext))
	return s
}

// Get 获取活动流
func (m *Manager) Get(id domain.StreamID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete 注销监听器并销毁活动流
func (m *Manager) Delete(id domain.StreamID) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Buffer.Close()
	m.log.Info("销毁活动流", "streamID", string(id))
	return true
}

// List 按创建时间返回所有活动流
func (m *Manager) List() []*Session {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

// CloseAll 销毁全部活动流
func (m *Manager) CloseAll() {
	for _, s := range m.List() {
		m.Delete(s.ID)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"activitylog/internal/history"
	"activitylog/internal/logger"
	"activitylog/internal/match"
	"activitylog/internal/session"
	"activitylog/internal/source"
	"activitylog/internal/storage"
	"activitylog/internal/stream"
	"activitylog/pkg/domain"
)

var (
	// ErrStreamNotFound 活动流不存在
	ErrStreamNotFound = errors.New("stream not found")
	// ErrNoArchive 未启用活动历史
	ErrNoArchive = errors.New("activity archive disabled")
)

const archiveTimeout = 2 * time.Second

// Options 服务配置
type Options struct {
	QueueSize int
	Store     *storage.Store // 为 nil 时不记录历史
}

// Service 活动流服务实现
type Service struct {
	log      logger.Logger
	hub      *source.Hub
	sessions *session.Manager
	store    *storage.Store
	archive  stream.ListenerID
}

// New 创建服务；配置了存储时所有活动同时写入历史
func New(opts Options, l logger.Logger) *Service {
	if l == nil {
		l = logger.NewNop()
	}
	s := &Service{
		log:      l,
		hub:      source.NewHub(opts.QueueSize, l.With("component", "hub")),
		sessions: session.NewManager(l.With("component", "session")),
		store:    opts.Store,
	}
	if s.store != nil {
		s.archive = s.hub.AddListener(s.store.Listener(archiveTimeout))
	}
	return s
}

// Run 运行事件分发循环
func (s *Service) Run(ctx context.Context) error {
	return s.hub.Run(ctx)
}

// Close 销毁所有活动流并停止分发
func (s *Service) Close() error {
	s.sessions.CloseAll()
	if s.archive != "" {
		s.hub.RemoveListener(s.archive)
	}
	s.hub.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Publish 发布一条活动
func (s *Service) Publish(ctx context.Context, ev domain.ActivityEvent) error {
	return s.hub.Publish(ctx, ev)
}

// OpenStream 为扩展打开活动流，初始为暂停状态
func (s *Service) OpenStream(ext domain.ExtensionID) (domain.StreamID, error) {
	if ext == "" {
		return "", fmt.Errorf("扩展 ID 不能为空")
	}
	return s.sessions.Create(ext, s.hub).ID, nil
}

// CloseStream 关闭活动流
func (s *Service) CloseStream(id domain.StreamID) error {
	if !s.sessions.Delete(id) {
		return ErrStreamNotFound
	}
	return nil
}

// StartStream 开始接收活动
func (s *Service) StartStream(id domain.StreamID) error {
	b, err := s.buffer(id)
	if err != nil {
		return err
	}
	b.Start()
	return nil
}

// PauseStream 暂停接收活动
func (s *Service) PauseStream(id domain.StreamID) error {
	b, err := s.buffer(id)
	if err != nil {
		return err
	}
	b.Pause()
	return nil
}

// ToggleStream 切换开启/暂停
func (s *Service) ToggleStream(id domain.StreamID) (bool, error) {
	b, err := s.buffer(id)
	if err != nil {
		return false, err
	}
	return b.Toggle(), nil
}

// ClearStream 清空活动流
func (s *Service) ClearStream(id domain.StreamID) error {
	b, err := s.buffer(id)
	if err != nil {
		return err
	}
	b.Clear()
	return nil
}

// SetSearch 设置搜索词，返回是否发生变化
func (s *Service) SetSearch(id domain.StreamID, raw string) (bool, error) {
	b, err := s.buffer(id)
	if err != nil {
		return false, err
	}
	return b.SetSearchTerm(raw), nil
}

// ToggleExpanded 切换某条记录的展开状态
func (s *Service) ToggleExpanded(id domain.StreamID, index int) (bool, error) {
	b, err := s.buffer(id)
	if err != nil {
		return false, err
	}
	return b.ToggleExpanded(index)
}

// FilteredView 返回筛选后的记录
func (s *Service) FilteredView(id domain.StreamID) ([]domain.StreamRecord, error) {
	b, err := s.buffer(id)
	if err != nil {
		return nil, err
	}
	return b.FilteredView(), nil
}

// StreamState 返回活动流状态
func (s *Service) StreamState(id domain.StreamID) (domain.StreamState, error) {
	b, err := s.buffer(id)
	if err != nil {
		return domain.StreamState{}, err
	}
	view := b.FilteredView()
	return domain.StreamState{
		ID:                     id,
		ExtensionID:            b.Owner(),
		Streaming:              b.IsStreaming(),
		SearchTerm:             b.SearchTerm(),
		Total:                  b.Len(),
		Filtered:               len(view),
		ShowEmptySearchMessage: b.ShowEmptySearchMessage(),
	}, nil
}

// Changes 返回活动流的变化通知通道
func (s *Service) Changes(id domain.StreamID) (<-chan struct{}, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrStreamNotFound
	}
	return sess.Changed(), nil
}

// History 按 API 调用聚合扩展的历史活动
func (s *Service) History(ctx context.Context, ext domain.ExtensionID, spec match.Spec) ([]domain.ActivityGroup, error) {
	if s.store == nil {
		return nil, ErrNoArchive
	}
	events, err := s.store.ListByExtension(ctx, ext)
	if err != nil {
		return nil, err
	}
	groups, skipped := history.Group(spec.Filter(events))
	if skipped > 0 {
		s.log.Warn("部分历史活动数据不合法，已跳过", "extensionID", string(ext), "skipped", skipped)
	}
	return groups, nil
}

// DeleteHistory 删除扩展的全部历史活动
func (s *Service) DeleteHistory(ctx context.Context, ext domain.ExtensionID) (int64, error) {
	if s.store == nil {
		return 0, ErrNoArchive
	}
	return s.store.DeleteByExtension(ctx, ext)
}

// DeleteActivities 按 ID 删除历史活动
func (s *Service) DeleteActivities(ctx context.Context, ids []domain.ActivityID) (int64, error) {
	if s.store == nil {
		return 0, ErrNoArchive
	}
	return s.store.DeleteActivities(ctx, ids)
}

func (s *Service) buffer(id domain.StreamID) (*stream.Buffer, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrStreamNotFound
	}
	return sess.Buffer, nil
}

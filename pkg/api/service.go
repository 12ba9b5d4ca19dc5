package api

import (
	"context"

	"activitylog/internal/logger"
	"activitylog/internal/match"
	"activitylog/internal/service"
	"activitylog/internal/storage"
	"activitylog/pkg/domain"
)

// Service 服务接口
type Service interface {
	// Run 运行事件分发循环，直到 ctx 结束
	Run(ctx context.Context) error

	// Close 释放全部资源
	Close() error

	// Publish 发布一条扩展活动
	Publish(ctx context.Context, ev domain.ActivityEvent) error

	// OpenStream 打开活动流
	OpenStream(ext domain.ExtensionID) (domain.StreamID, error)

	// CloseStream 关闭活动流
	CloseStream(id domain.StreamID) error

	// StartStream 开始接收
	StartStream(id domain.StreamID) error

	// PauseStream 暂停接收
	PauseStream(id domain.StreamID) error

	// ToggleStream 切换开启/暂停
	ToggleStream(id domain.StreamID) (bool, error)

	// ClearStream 清空活动流
	ClearStream(id domain.StreamID) error

	// SetSearch 设置搜索词
	SetSearch(id domain.StreamID, raw string) (bool, error)

	// ToggleExpanded 切换记录展开状态
	ToggleExpanded(id domain.StreamID, index int) (bool, error)

	// FilteredView 获取筛选后的记录
	FilteredView(id domain.StreamID) ([]domain.StreamRecord, error)

	// StreamState 获取活动流状态
	StreamState(id domain.StreamID) (domain.StreamState, error)

	// Changes 订阅活动流变化通知
	Changes(id domain.StreamID) (<-chan struct{}, error)

	// History 获取聚合后的历史活动
	History(ctx context.Context, ext domain.ExtensionID, spec match.Spec) ([]domain.ActivityGroup, error)

	// DeleteHistory 删除扩展的历史活动
	DeleteHistory(ctx context.Context, ext domain.ExtensionID) (int64, error)

	// DeleteActivities 按 ID 删除历史活动
	DeleteActivities(ctx context.Context, ids []domain.ActivityID) (int64, error)
}

// NewService 创建并返回服务接口实现，store 为 nil 时不记录历史
func NewService(queueSize int, store *storage.Store, l logger.Logger) Service {
	return service.New(service.Options{QueueSize: queueSize, Store: store}, l)
}

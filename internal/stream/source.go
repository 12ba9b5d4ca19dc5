package stream

import "activitylog/pkg/domain"

// ListenerID 事件源分配的监听器标识
type ListenerID string

// Listener 活动事件回调
type Listener func(ev domain.ActivityEvent)

// Source 可订阅的活动事件源
//
// 事件源同时承载所有扩展的活动，订阅方需要自行按扩展 ID 过滤。
// 同一事件源不会并发调用同一个监听器。
type Source interface {
	AddListener(fn Listener) ListenerID
	RemoveListener(id ListenerID)
}

package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"activitylog/internal/logger"
	"activitylog/internal/stream"
	"activitylog/pkg/domain"
)

// ErrClosed 事件中心已关闭
var ErrClosed = errors.New("activity hub closed")

type entry struct {
	id stream.ListenerID
	fn stream.Listener
}

// Hub 多扩展共享的活动事件中心
//
// 事件先进入有界队列，再由单个分发协程按发布顺序逐条投递给监听器，
// 因此同一监听器不会被并发调用。
type Hub struct {
	log   logger.Logger
	queue chan domain.ActivityEvent

	mu        sync.RWMutex
	listeners []entry

	dropped   atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub 创建事件中心，size 为队列容量
func NewHub(size int, l logger.Logger) *Hub {
	if l == nil {
		l = logger.NewNop()
	}
	if size <= 0 {
		size = 1
	}
	return &Hub{
		log:   l,
		queue: make(chan domain.ActivityEvent, size),
		done:  make(chan struct{}),
	}
}

// AddListener 注册监听器
func (h *Hub) AddListener(fn stream.Listener) stream.ListenerID {
	id := stream.ListenerID(uuid.NewString())
	h.mu.Lock()
	h.listeners = append(h.listeners, entry{id: id, fn: fn})
	n := len(h.listeners)
	h.mu.Unlock()
	h.log.Debug("注册活动监听器", "listener", string(id), "total", n)
	return id
}

// RemoveListener 注销监听器，未注册的 ID 会被忽略
func (h *Hub) RemoveListener(id stream.ListenerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.listeners {
		if h.listeners[i].id == id {
			h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
			h.log.Debug("注销活动监听器", "listener", string(id), "total", len(h.listeners))
			return
		}
	}
}

// ListenerCount 返回当前监听器数量
func (h *Hub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Publish 发布活动，队列满时阻塞直到入队、ctx 结束或事件中心关闭
func (h *Hub) Publish(ctx context.Context, ev domain.ActivityEvent) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	select {
	case h.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrClosed
	}
}

// TryPublish 非阻塞发布，队列已满时丢弃并返回 false
func (h *Hub) TryPublish(ev domain.ActivityEvent) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.queue <- ev:
		return true
	default:
		h.dropped.Add(1)
		h.log.Warn("活动队列已满，丢弃事件", "extensionID", string(ev.ExtensionID), "apiCall", ev.APICall)
		return false
	}
}

// Dropped 返回因队列满被丢弃的事件数
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Run 运行分发循环，直到 ctx 结束或事件中心关闭；正常退出时返回 nil
func (h *Hub) Run(ctx context.Context) error {
	h.log.Info("活动分发循环启动")
	defer h.log.Info("活动分发循环退出")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.done:
			return nil
		case ev := <-h.queue:
			h.dispatch(ev)
		}
	}
}

// Close 关闭事件中心，未分发的事件被丢弃
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// dispatch 将事件依次投递给当前监听器，投递前再次确认监听器仍处于注册状态
func (h *Hub) dispatch(ev domain.ActivityEvent) {
	h.mu.RLock()
	snapshot := make([]stream.ListenerID, len(h.listeners))
	for i, e := range h.listeners {
		snapshot[i] = e.id
	}
	h.mu.RUnlock()

	for _, id := range snapshot {
		if fn, ok := h.lookup(id); ok {
			fn(ev)
		}
	}
}

func (h *Hub) lookup(id stream.ListenerID) (stream.Listener, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range h.listeners {
		if e.id == id {
			return e.fn, true
		}
	}
	return nil, false
}

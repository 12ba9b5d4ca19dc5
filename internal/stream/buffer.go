package stream

import (
	"errors"
	"sync"

	"activitylog/internal/logger"
	"activitylog/pkg/domain"
)

// ErrRecordIndex 记录下标越界
var ErrRecordIndex = errors.New("record index out of range")

// Buffer 单个扩展的实时活动流
//
// 初始为暂停状态。Start 向事件源注册监听器，Pause 注销。
// 日志只追加，除 Clear 外不会删除记录。
type Buffer struct {
	owner  domain.ExtensionID
	source Source
	log    logger.Logger

	mu        sync.Mutex
	streaming bool
	listener  ListenerID
	records   []domain.StreamRecord
	search    string
	onChange  func()
}

// Option 活动流可选配置
type Option func(*Buffer)

// WithLogger 设置日志器
func WithLogger(l logger.Logger) Option {
	return func(b *Buffer) {
		if l != nil {
			b.log = l
		}
	}
}

// WithOnChange 设置记录或筛选结果变化时的回调，回调在锁外执行
func WithOnChange(fn func()) Option {
	return func(b *Buffer) { b.onChange = fn }
}

// New 创建只接收 owner 扩展活动的活动流
func New(owner domain.ExtensionID, src Source, opts ...Option) *Buffer {
	b := &Buffer{
		owner:  owner,
		source: src,
		log:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With("extensionID", string(owner))
	return b
}

// Owner 返回所属扩展 ID
func (b *Buffer) Owner() domain.ExtensionID { return b.owner }

// Start 开始接收活动，已开启时不做任何事
func (b *Buffer) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streaming {
		return
	}
	b.listener = b.source.AddListener(b.Ingest)
	b.streaming = true
	b.log.Debug("活动流已开启", "listener", string(b.listener))
}

// Pause 停止接收活动，已暂停时不做任何事
//
// 返回后到达的活动一律丢弃。
func (b *Buffer) Pause() {
	b.mu.Lock()
	if !b.streaming {
		b.mu.Unlock()
		return
	}
	id := b.listener
	b.streaming = false
	b.listener = ""
	b.mu.Unlock()

	b.source.RemoveListener(id)
	b.log.Debug("活动流已暂停", "listener", string(id))
}

// Toggle 在开启与暂停之间切换，返回切换后是否处于开启状态
func (b *Buffer) Toggle() bool {
	if b.IsStreaming() {
		b.Pause()
		return false
	}
	b.Start()
	return true
}

// Close 无条件注销监听器，用于销毁前的清理
func (b *Buffer) Close() {
	b.mu.Lock()
	id := b.listener
	b.streaming = false
	b.listener = ""
	b.mu.Unlock()

	if id != "" {
		b.source.RemoveListener(id)
	}
}

// Clear 清空全部记录，不影响开启状态与搜索词
func (b *Buffer) Clear() {
	b.mu.Lock()
	n := len(b.records)
	b.records = nil
	b.mu.Unlock()

	b.log.Debug("清空活动流", "removed", n)
	b.notify()
}

// Ingest 接收一条活动
//
// 暂停状态或其他扩展的活动直接丢弃。内容脚本参数不是数组时视为调用方违约并 panic。
func (b *Buffer) Ingest(ev domain.ActivityEvent) {
	if ev.ExtensionID != b.owner || !b.IsStreaming() {
		return
	}

	records, err := Expand(ev)
	if err != nil {
		b.log.Err(err, "活动数据不合法", "apiCall", ev.APICall, "activityType", string(ev.ActivityType))
		panic(err)
	}

	// 展开期间可能已暂停
	b.mu.Lock()
	if !b.streaming {
		b.mu.Unlock()
		return
	}
	b.records = append(b.records, records...)
	b.mu.Unlock()

	b.notify()
}

// SetSearchTerm 设置搜索词，归一化后与当前一致时不做任何事，返回是否发生变化
func (b *Buffer) SetSearchTerm(raw string) bool {
	term := NormalizeSearchTerm(raw)

	b.mu.Lock()
	if term == b.search {
		b.mu.Unlock()
		return false
	}
	b.search = term
	b.mu.Unlock()

	b.notify()
	return true
}

// SearchTerm 返回归一化后的搜索词
func (b *Buffer) SearchTerm() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.search
}

// FilteredView 返回按当前搜索词筛选后的记录副本
func (b *Buffer) FilteredView() []domain.StreamRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Filter(b.records, b.search)
}

// Records 返回全部记录的副本
func (b *Buffer) Records() []domain.StreamRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Filter(b.records, "")
}

// ToggleExpanded 切换筛选视图中第 i 条记录的展开状态，返回切换后的值
func (b *Buffer) ToggleExpanded(i int) (bool, error) {
	b.mu.Lock()
	idx := viewIndices(b.records, b.search)
	if i < 0 || i >= len(idx) {
		b.mu.Unlock()
		return false, ErrRecordIndex
	}
	r := &b.records[idx[i]]
	r.Expanded = !r.Expanded
	expanded := r.Expanded
	b.mu.Unlock()

	b.notify()
	return expanded, nil
}

// IsStreaming 是否处于开启状态
func (b *Buffer) IsStreaming() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streaming
}

// Len 返回记录条数
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// IsEmpty 活动流是否为空
func (b *Buffer) IsEmpty() bool { return b.Len() == 0 }

// IsFilteredEmpty 筛选结果是否为空
func (b *Buffer) IsFilteredEmpty() bool { return len(b.FilteredView()) == 0 }

// ShowEmptySearchMessage 有记录但搜索无结果
func (b *Buffer) ShowEmptySearchMessage() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records) > 0 && len(Filter(b.records, b.search)) == 0
}

func (b *Buffer) notify() {
	if b.onChange != nil {
		b.onChange()
	}
}

package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/rpcc"

	adapter "activitylog/internal/adapter/cdp"
	"activitylog/internal/logger"
	"activitylog/pkg/domain"
)

// BindingName 注入页面的上报函数名，页面调用 window.__activityLog(JSON.stringify(activity))
const BindingName = "__activityLog"

// ErrNoTarget 没有可附加的调试目标
var ErrNoTarget = errors.New("no debuggable target")

// ErrNotAttached 尚未附加目标
var ErrNotAttached = errors.New("not attached")

// Publisher 活动发布接口
type Publisher interface {
	Publish(ctx context.Context, ev domain.ActivityEvent) error
}

// Manager 附加到一个调试目标，将其网络与运行时事件转换为扩展活动
type Manager struct {
	devtoolsURL string
	pub         Publisher
	baseLog     logger.Logger
	log         logger.Logger

	mu     sync.Mutex
	conn   *rpcc.Conn
	client *cdp.Client
	ctx    context.Context
	cancel context.CancelFunc
	target *devtool.Target
	ext    domain.ExtensionID
	wg     sync.WaitGroup
}

// New 创建 CDP 活动采集器
func New(devtoolsURL string, pub Publisher, l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{devtoolsURL: devtoolsURL, pub: pub, baseLog: l, log: l}
}

// ListTargets 列出可附加的调试目标
func (m *Manager) ListTargets(ctx context.Context) ([]*devtool.Target, error) {
	targets, err := devtool.New(m.devtoolsURL).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取调试目标失败: %w", err)
	}
	return targets, nil
}

// Attach 附加到目标并开始采集，targetID 为空时选择第一个扩展页面或普通页面
func (m *Manager) Attach(ctx context.Context, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return fmt.Errorf("已附加到目标 %s", m.target.ID)
	}

	targets, err := m.ListTargets(ctx)
	if err != nil {
		return err
	}
	sel, err := SelectTarget(targets, targetID)
	if err != nil {
		return err
	}

	conn, err := rpcc.DialContext(ctx, sel.WebSocketDebuggerURL)
	if err != nil {
		return fmt.Errorf("连接调试目标失败: %w", err)
	}
	client := cdp.NewClient(conn)

	sctx, cancel := context.WithCancel(context.Background())
	if err := enableDomains(ctx, client); err != nil {
		cancel()
		_ = conn.Close()
		return err
	}

	m.conn, m.client, m.ctx, m.cancel = conn, client, sctx, cancel
	m.target = sel
	m.ext = adapter.ExtensionIDFromTarget(sel)
	m.log = m.baseLog.With("target", sel.ID, "extensionID", string(m.ext))

	if err := m.subscribe(); err != nil {
		m.closeLocked()
		return err
	}
	m.log.Info("已附加调试目标", "url", sel.URL, "type", string(sel.Type))
	return nil
}

// ExtensionID 返回当前目标对应的扩展 ID
func (m *Manager) ExtensionID() domain.ExtensionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ext
}

// Detach 停止采集并断开连接
func (m *Manager) Detach() error {
	m.mu.Lock()
	if m.client == nil {
		m.mu.Unlock()
		return ErrNotAttached
	}
	err := m.closeLocked()
	m.mu.Unlock()

	m.wg.Wait()
	m.log.Info("已断开调试目标")
	return err
}

// Wait 等待所有事件流结束
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) closeLocked() error {
	m.cancel()
	err := m.conn.Close()
	m.client = nil
	m.conn = nil
	return err
}

// SelectTarget 按 ID 选择目标；ID 为空时优先选择扩展页面，其次普通页面
func SelectTarget(targets []*devtool.Target, id string) (*devtool.Target, error) {
	if id != "" {
		for _, t := range targets {
			if t.ID == id {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNoTarget, id)
	}
	var page *devtool.Target
	for _, t := range targets {
		switch t.Type {
		case devtool.BackgroundPage, devtool.ServiceWorker:
			return t, nil
		case devtool.Page:
			if page == nil {
				page = t
			}
		}
	}
	if page == nil {
		return nil, ErrNoTarget
	}
	return page, nil
}

func enableDomains(ctx context.Context, c *cdp.Client) error {
	if err := c.Network.Enable(ctx, nil); err != nil {
		return fmt.Errorf("启用 Network 失败: %w", err)
	}
	if err := c.Runtime.Enable(ctx); err != nil {
		return fmt.Errorf("启用 Runtime 失败: %w", err)
	}
	if err := c.Runtime.AddBinding(ctx, runtime.NewAddBindingArgs(BindingName)); err != nil {
		return fmt.Errorf("注入上报函数失败: %w", err)
	}
	return nil
}

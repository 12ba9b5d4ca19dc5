package cdp

import (
	"context"
	"fmt"
	"time"

	adapter "activitylog/internal/adapter/cdp"
	"activitylog/pkg/domain"
)

// subscribe 订阅三个事件流并为每个流启动消费协程，调用方持有 m.mu
func (m *Manager) subscribe() error {
	ctx, client, ext, pageURL := m.ctx, m.client, m.ext, m.target.URL

	requests, err := client.Network.RequestWillBeSent(ctx)
	if err != nil {
		return fmt.Errorf("订阅网络请求事件失败: %w", err)
	}
	console, err := client.Runtime.ConsoleAPICalled(ctx)
	if err != nil {
		requests.Close()
		return fmt.Errorf("订阅控制台事件失败: %w", err)
	}
	bindings, err := client.Runtime.BindingCalled(ctx)
	if err != nil {
		requests.Close()
		console.Close()
		return fmt.Errorf("订阅上报事件失败: %w", err)
	}

	m.consume("network", requests, func() (domain.ActivityEvent, bool, error) {
		ev, err := requests.Recv()
		if err != nil {
			return domain.ActivityEvent{}, false, err
		}
		return adapter.FromRequestWillBeSent(ext, ev), true, nil
	})
	m.consume("console", console, func() (domain.ActivityEvent, bool, error) {
		ev, err := console.Recv()
		if err != nil {
			return domain.ActivityEvent{}, false, err
		}
		return adapter.FromConsoleAPICalled(ext, pageURL, ev), true, nil
	})
	m.consume("binding", bindings, func() (domain.ActivityEvent, bool, error) {
		ev, err := bindings.Recv()
		if err != nil {
			return domain.ActivityEvent{}, false, err
		}
		if ev.Name != BindingName {
			return domain.ActivityEvent{}, false, nil
		}
		act, perr := adapter.FromBindingPayload(ext, pageURL, ev.Payload, time.Now())
		if perr != nil {
			m.log.Warn("忽略不合法的活动上报", "error", perr.Error())
			return domain.ActivityEvent{}, false, nil
		}
		return act, true, nil
	})
	return nil
}

type closer interface{ Close() error }

// consume 持续接收事件并发布，事件流关闭或出错时退出
func (m *Manager) consume(name string, stream closer, next func() (domain.ActivityEvent, bool, error)) {
	ctx := m.ctx
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer stream.Close()

		m.log.Debug("开始消费事件流", "stream", name)
		for {
			ev, ok, err := next()
			if err != nil {
				m.handleStreamClosed(ctx, name, err)
				return
			}
			if !ok {
				continue
			}
			if err := m.pub.Publish(ctx, ev); err != nil {
				if ctx.Err() == nil {
					m.log.Err(err, "发布活动失败", "stream", name)
				}
				return
			}
		}
	}()
}

// handleStreamClosed 区分主动断开与连接异常
func (m *Manager) handleStreamClosed(ctx context.Context, name string, err error) {
	if ctx.Err() != nil {
		m.log.Debug("事件流已关闭", "stream", name)
		return
	}
	m.log.Err(err, "接收事件失败，事件流中断", "stream", name)
}

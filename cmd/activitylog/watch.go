package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"activitylog/internal/cdp"
	"activitylog/internal/storage"
	"activitylog/pkg/api"
	"activitylog/pkg/domain"
)

type watchCmd struct {
	gs *globalState

	devtools  string
	target    string
	extension string
	search    string
	noArchive bool
	paused    bool
}

func getCmdWatch(gs *globalState) *cobra.Command {
	c := &watchCmd{gs: gs}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "实时查看扩展活动流",
		Long: `附加到扩展的后台页或 Service Worker，实时输出活动流。

运行期间可在标准输入中使用以下命令:
  pause            暂停接收
  start            开始接收
  toggle           切换开启/暂停
  clear            清空活动流
  search <词>      按名称、页面 URL、活动类型筛选，空白会被忽略
  expand <序号>    展开或收起一条记录
  redraw           重新绘制
  quit             退出`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	flags := cmd.Flags()
	flags.StringVar(&c.devtools, "devtools", "", "DevTools 地址，默认使用配置 stream.devToolsURL")
	flags.StringVarP(&c.target, "target", "t", "", "调试目标 ID，为空时自动选择扩展后台")
	flags.StringVarP(&c.extension, "extension", "e", "", "扩展 ID，为空时从调试目标推断")
	flags.StringVarP(&c.search, "search", "s", "", "初始搜索词")
	flags.BoolVar(&c.noArchive, "no-archive", false, "不写入活动历史")
	flags.BoolVar(&c.paused, "paused", false, "以暂停状态启动")
	return cmd
}

func (c *watchCmd) sessionConfig() domain.SessionConfig {
	cfg := c.gs.cfg
	sc := domain.SessionConfig{
		DevToolsURL: cfg.Stream.DevToolsURL,
		TargetID:    c.target,
		ExtensionID: domain.ExtensionID(c.extension),
		Archive:     cfg.Stream.Archive && !c.noArchive,
	}
	if c.devtools != "" {
		sc.DevToolsURL = c.devtools
	}
	return sc
}

func (c *watchCmd) run(cmd *cobra.Command, _ []string) error {
	gs := c.gs
	sc := c.sessionConfig()
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var store *storage.Store
	if sc.Archive {
		s, err := storage.Open(gs.cfg, gs.log.With("component", "storage"))
		if err != nil {
			return err
		}
		store = s
	}
	svc := api.NewService(gs.cfg.Stream.QueueSize, store, gs.log)
	defer svc.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := svc.Run(ctx); err != nil {
			gs.log.Err(err, "事件分发结束")
		}
	}()
	defer wg.Wait()
	defer cancel()

	mgr := cdp.New(sc.DevToolsURL, svc, gs.log.With("component", "cdp"))
	if err := mgr.Attach(ctx, sc.TargetID); err != nil {
		return err
	}
	defer mgr.Detach()

	ext := sc.ExtensionID
	if ext == "" {
		ext = mgr.ExtensionID()
	}
	id, err := svc.OpenStream(ext)
	if err != nil {
		return err
	}
	if _, err := svc.SetSearch(id, c.search); err != nil {
		return err
	}
	if !c.paused {
		if err := svc.StartStream(id); err != nil {
			return err
		}
	}
	fmt.Fprintln(gs.stdOut, faint.Sprint(commandHelp))
	return c.loop(ctx, svc, id)
}

// loop 在变化通知与刷新周期之间绘制活动流，并处理交互命令
func (c *watchCmd) loop(ctx context.Context, svc api.Service, id domain.StreamID) error {
	gs := c.gs
	changes, err := svc.Changes(id)
	if err != nil {
		return err
	}
	r := newRenderer(gs.stdOut)
	lines := readLines(ctx, gs.stdIn)
	ticker := time.NewTicker(time.Duration(gs.cfg.Stream.RefreshMS) * time.Millisecond)
	defer ticker.Stop()

	draw := func(full bool) error {
		state, err := svc.StreamState(id)
		if err != nil {
			return err
		}
		view, err := svc.FilteredView(id)
		if err != nil {
			return err
		}
		if full {
			r.Redraw(state, view)
		} else {
			r.Render(state, view)
		}
		return nil
	}
	if err := draw(true); err != nil {
		return err
	}

	dirty := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			dirty = true
		case <-ticker.C:
			if !dirty {
				continue
			}
			dirty = false
			if err := draw(false); err != nil {
				return err
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			res, err := runCommand(svc, id, line)
			if err != nil {
				fmt.Fprintln(gs.stdErr, color.RedString("%v", err))
			}
			if res.message != "" {
				fmt.Fprintln(gs.stdOut, faint.Sprint(res.message))
			}
			if res.quit {
				return nil
			}
			if res.redraw {
				dirty = false
				if err := draw(true); err != nil {
					return err
				}
			}
		}
	}
}

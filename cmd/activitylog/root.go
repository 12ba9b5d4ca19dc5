package main

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"activitylog/internal/config"
	"activitylog/internal/logger"
)

// BannerColor 标题颜色
var BannerColor = color.New(color.FgCyan, color.Bold)

// globalFlags 所有子命令共享的参数
type globalFlags struct {
	configPath string
	logLevel   string
	noColor    bool
}

// globalState 命令运行所需的全局状态，在 PersistentPreRunE 中初始化
type globalState struct {
	ctx    context.Context
	stdOut io.Writer
	stdErr io.Writer
	stdIn  io.Reader

	flags globalFlags
	cfg   *config.Config
	log   logger.Logger
}

func newGlobalState(ctx context.Context) *globalState {
	return &globalState{
		ctx:    ctx,
		stdOut: color.Output,
		stdErr: color.Error,
		stdIn:  os.Stdin,
		cfg:    config.NewConfig(),
		log:    logger.NewNop(),
	}
}

func newRootCommand(gs *globalState) *cobra.Command {
	root := &cobra.Command{
		Use:           "activitylog",
		Short:         "扩展活动日志",
		Long:          BannerColor.Sprint("activitylog") + " 通过 DevTools 协议实时查看浏览器扩展的活动流，并记录活动历史。",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return gs.init()
		},
	}
	root.SetOut(gs.stdOut)
	root.SetErr(gs.stdErr)
	root.SetIn(gs.stdIn)

	pf := root.PersistentFlags()
	pf.StringVarP(&gs.flags.configPath, "config", "c", "activitylog.yaml", "配置文件路径，不存在时使用默认配置")
	pf.StringVar(&gs.flags.logLevel, "log-level", "", "覆盖配置中的日志级别")
	pf.BoolVar(&gs.flags.noColor, "no-color", false, "禁用彩色输出")

	root.AddCommand(
		getCmdWatch(gs),
		getCmdTargets(gs),
		getCmdHistory(gs),
		getCmdClearHistory(gs),
	)
	return root
}

// init 加载配置并创建日志器
func (gs *globalState) init() error {
	cfg, err := config.Load(gs.flags.configPath)
	if err != nil {
		return err
	}
	if gs.flags.logLevel != "" {
		cfg.Log.Level = gs.flags.logLevel
	}
	if gs.flags.noColor {
		color.NoColor = true
	}
	gs.cfg = cfg
	gs.log = logger.New(cfg)
	return nil
}

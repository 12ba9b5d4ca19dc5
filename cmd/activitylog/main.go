package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	gs := newGlobalState(ctx)
	err := newRootCommand(gs).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(gs.stdErr, color.RedString("错误: %v", err))
		os.Exit(1)
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"activitylog/pkg/api"
	"activitylog/pkg/domain"
)

// commandResult 交互命令的执行结果
type commandResult struct {
	quit    bool
	redraw  bool
	message string
}

const commandHelp = "命令: pause | start | toggle | clear | search <词> | expand <序号> | redraw | quit"

// runCommand 执行一条交互命令，命令可带 "/" 前缀
func runCommand(svc api.Service, id domain.StreamID, line string) (commandResult, error) {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if line == "" {
		return commandResult{}, nil
	}
	name, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(name) {
	case "quit", "q", "exit":
		return commandResult{quit: true}, nil
	case "pause":
		return commandResult{redraw: true, message: "已暂停"}, svc.PauseStream(id)
	case "start":
		return commandResult{redraw: true, message: "开始接收"}, svc.StartStream(id)
	case "toggle":
		streaming, err := svc.ToggleStream(id)
		if err != nil {
			return commandResult{}, err
		}
		msg := "已暂停"
		if streaming {
			msg = "开始接收"
		}
		return commandResult{redraw: true, message: msg}, nil
	case "clear":
		return commandResult{redraw: true, message: "已清空"}, svc.ClearStream(id)
	case "search":
		changed, err := svc.SetSearch(id, arg)
		if err != nil {
			return commandResult{}, err
		}
		return commandResult{redraw: changed}, nil
	case "expand":
		i, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return commandResult{}, fmt.Errorf("无效的记录序号 %q", arg)
		}
		if _, err := svc.ToggleExpanded(id, i); err != nil {
			return commandResult{}, err
		}
		return commandResult{redraw: true}, nil
	case "redraw":
		return commandResult{redraw: true}, nil
	case "help", "?":
		return commandResult{message: commandHelp}, nil
	default:
		return commandResult{message: commandHelp}, fmt.Errorf("未知命令 %q", name)
	}
}

// readLines 按行读取输入，r 结束或 ctx 取消时关闭通道
func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

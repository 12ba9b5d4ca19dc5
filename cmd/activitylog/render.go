package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tidwall/pretty"

	"activitylog/pkg/domain"
)

var typeColors = map[domain.ActivityType]*color.Color{
	domain.ActivityAPICall:       color.New(color.FgCyan),
	domain.ActivityAPIEvent:      color.New(color.FgBlue),
	domain.ActivityContentScript: color.New(color.FgMagenta),
	domain.ActivityDOMAccess:     color.New(color.FgGreen),
	domain.ActivityDOMEvent:      color.New(color.FgYellow),
	domain.ActivityWebRequest:    color.New(color.FgRed),
}

var (
	faint  = color.New(color.Faint)
	notice = color.New(color.FgYellow, color.Bold)
)

func typeLabel(t domain.ActivityType) string {
	label := "[" + strings.ToUpper(string(t)) + "]"
	if c, ok := typeColors[t]; ok {
		return c.Sprint(label)
	}
	return label
}

// renderer 增量输出活动流，筛选条件变化或记录减少时整体重绘
type renderer struct {
	w     io.Writer
	shown int
	term  string
	drawn bool
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{w: w}
}

// Render 输出自上次绘制以来新增的记录
func (r *renderer) Render(state domain.StreamState, view []domain.StreamRecord) {
	if !r.drawn || state.SearchTerm != r.term || len(view) < r.shown {
		r.Redraw(state, view)
		return
	}
	for i := r.shown; i < len(view); i++ {
		r.record(i, view[i])
	}
	r.shown = len(view)
}

// Redraw 输出状态行和当前全部筛选结果
func (r *renderer) Redraw(state domain.StreamState, view []domain.StreamRecord) {
	r.drawn = true
	r.term = state.SearchTerm
	r.shown = len(view)
	r.header(state)
	switch {
	case state.ShowEmptySearchMessage:
		fmt.Fprintln(r.w, notice.Sprintf("没有与 %q 匹配的活动", state.SearchTerm))
	case state.Total == 0:
		fmt.Fprintln(r.w, faint.Sprint("活动流为空"))
	}
	for i, rec := range view {
		r.record(i, rec)
	}
}

func (r *renderer) header(state domain.StreamState) {
	status := color.GreenString("接收中")
	if !state.Streaming {
		status = color.YellowString("已暂停")
	}
	line := fmt.Sprintf("── %s  %s  %d/%d", BannerColor.Sprint(state.ExtensionID), status, state.Filtered, state.Total)
	if state.SearchTerm != "" {
		line += "  搜索: " + state.SearchTerm
	}
	fmt.Fprintln(r.w, line)
}

func (r *renderer) record(i int, rec domain.StreamRecord) {
	ts := time.UnixMilli(rec.Timestamp).Format("15:04:05.000")
	fmt.Fprintf(r.w, "%4d %s %s %s", i, faint.Sprint(ts), typeLabel(rec.ActivityType), rec.Name)
	if rec.PageURL != "" {
		fmt.Fprintf(r.w, " %s", faint.Sprint(rec.PageURL))
	}
	fmt.Fprintln(r.w)
	if rec.Expanded {
		r.details(rec)
	}
}

func (r *renderer) details(rec domain.StreamRecord) {
	fmt.Fprintf(r.w, "       参数: %s\n", rec.Args)
	if rec.ArgURL != "" {
		fmt.Fprintf(r.w, "       参数 URL: %s\n", rec.ArgURL)
	}
	if rec.WebRequestInfo != "" {
		body := pretty.Pretty([]byte(rec.WebRequestInfo))
		fmt.Fprintln(r.w, "       网络请求:")
		for _, l := range strings.Split(strings.TrimRight(string(body), "\n"), "\n") {
			fmt.Fprintln(r.w, "         "+l)
		}
	}
}

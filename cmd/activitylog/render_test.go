package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"activitylog/pkg/domain"
)

func TestRenderer(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	r := newRenderer(&buf)

	state := domain.StreamState{ExtensionID: "ext", Streaming: true}
	r.Render(state, nil)
	assert.Contains(t, buf.String(), "ext  接收中  0/0")
	assert.Contains(t, buf.String(), "活动流为空")

	recs := []domain.StreamRecord{
		{Name: "tabs.query", ActivityType: domain.ActivityAPICall, PageURL: "https://a.com"},
		{Name: "a.js", ActivityType: domain.ActivityContentScript, Args: "[]"},
	}
	buf.Reset()
	state.Total, state.Filtered = 1, 1
	r.Render(state, recs[:1])
	assert.NotContains(t, buf.String(), "──")
	assert.Contains(t, buf.String(), "[API_CALL] tabs.query https://a.com")

	buf.Reset()
	state.Total, state.Filtered = 2, 2
	r.Render(state, recs)
	assert.NotContains(t, buf.String(), "tabs.query")
	assert.Contains(t, buf.String(), "[CONTENT_SCRIPT] a.js")

	buf.Reset()
	state.SearchTerm, state.Filtered, state.ShowEmptySearchMessage = "zzz", 0, true
	r.Render(state, nil)
	assert.Contains(t, buf.String(), "搜索: zzz")
	assert.Contains(t, buf.String(), `没有与 "zzz" 匹配的活动`)
}

func TestRendererDetails(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	r := newRenderer(&buf)
	r.Redraw(domain.StreamState{ExtensionID: "ext", Total: 1, Filtered: 1}, []domain.StreamRecord{{
		Name:           "webRequest.onBeforeRequest",
		ActivityType:   domain.ActivityWebRequest,
		Args:           `["https://b.com"]`,
		ArgURL:         "https://b.com",
		WebRequestInfo: `{"method":"GET"}`,
		Expanded:       true,
	}})
	out := buf.String()
	assert.Contains(t, out, "已暂停")
	assert.Contains(t, out, `参数: ["https://b.com"]`)
	assert.Contains(t, out, "参数 URL: https://b.com")
	assert.Contains(t, out, `"method": "GET"`)
}

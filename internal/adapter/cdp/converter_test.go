package cdp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/network"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"activitylog/internal/stream"
	"activitylog/pkg/domain"
)

func TestExtensionIDFromTarget(t *testing.T) {
	assert.Equal(t, domain.ExtensionID("abcdefgh"),
		ExtensionIDFromTarget(&devtool.Target{ID: "T1", URL: "chrome-extension://abcdefgh/background.html"}))
	assert.Equal(t, domain.ExtensionID("T2"),
		ExtensionIDFromTarget(&devtool.Target{ID: "T2", URL: "https://example.com/"}))
}

func TestFromRequestWillBeSent(t *testing.T) {
	ev := &network.RequestWillBeSentReply{
		RequestID:   "42.1",
		DocumentURL: "https://page.example/",
		WallTime:    1700000000.5,
	}
	ev.Request.URL = "https://api.example/data?q=1"
	ev.Request.Method = "POST"
	ev.Request.Headers = network.Headers(`{"Content-Type":"application/json"}`)

	act := FromRequestWillBeSent("ext", ev)
	assert.Equal(t, domain.ActivityWebRequest, act.ActivityType)
	assert.Equal(t, "webRequest.onBeforeRequest", act.APICall)
	assert.Equal(t, `["https://api.example/data?q=1"]`, act.Args)
	assert.Equal(t, "https://api.example/data?q=1", act.ArgURL)
	assert.Equal(t, "https://page.example/", act.PageURL)
	assert.Equal(t, int64(1700000000500), act.Time)

	require.NotNil(t, act.Other)
	desc := gjson.Parse(act.Other.WebRequest)
	assert.Equal(t, "42.1", desc.Get("requestId").String())
	assert.Equal(t, "POST", desc.Get("method").String())
	assert.Equal(t, "application/json", desc.Get("requestHeaders.Content-Type").String())
}

func TestFromConsoleAPICalled(t *testing.T) {
	desc := "HTMLDivElement"
	ev := &runtime.ConsoleAPICalledReply{
		Type:      "log",
		Timestamp: 1700000000123,
		Args: []runtime.RemoteObject{
			{Type: "string", Value: json.RawMessage(`"hello"`)},
			{Type: "number", Value: json.RawMessage(`3`)},
			{Type: "object", Description: &desc},
			{Type: "undefined"},
		},
	}

	act := FromConsoleAPICalled("ext", "https://page.example/", ev)
	assert.Equal(t, domain.ActivityAPICall, act.ActivityType)
	assert.Equal(t, "console.log", act.APICall)
	assert.JSONEq(t, `["hello",3,"HTMLDivElement","undefined"]`, act.Args)
	assert.Equal(t, "https://page.example/", act.PageURL)
	assert.Equal(t, int64(1700000000123), act.Time)
}

func TestFromBindingPayload(t *testing.T) {
	now := time.UnixMilli(5000)

	act, err := FromBindingPayload("ext", "https://page/", `{"activityType":"CONTENT_SCRIPT","args":["a.js","b.js"]}`, now)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityContentScript, act.ActivityType)
	assert.Equal(t, `["a.js","b.js"]`, act.Args)
	assert.Equal(t, "https://page/", act.PageURL)
	assert.Equal(t, int64(5000), act.Time)

	act, err = FromBindingPayload("ext", "https://page/",
		`{"activityType":"api_call","apiCall":"tabs.query","args":"[{\"active\":true}]","pageUrl":"https://other/","time":7,"webRequest":{"method":"GET"}}`, now)
	require.NoError(t, err)
	assert.Equal(t, "tabs.query", act.APICall)
	assert.Equal(t, `[{"active":true}]`, act.Args)
	assert.Equal(t, "https://other/", act.PageURL)
	assert.Equal(t, int64(7), act.Time)
	require.NotNil(t, act.Other)
	assert.Equal(t, "GET", gjson.Get(act.Other.WebRequest, "method").String())

	act, err = FromBindingPayload("ext", "", `{"activityType":"dom_access","apiCall":"Storage.getItem"}`, now)
	require.NoError(t, err)
	assert.Equal(t, "[]", act.Args)
}

func TestFromBindingPayloadRejects(t *testing.T) {
	bad := []string{
		`not json`,
		`[1,2]`,
		`{"activityType":"teleport"}`,
		`{"activityType":"api_call","args":5}`,
		`{"activityType":"content_script","args":"{\"a\":1}"}`,
		`{"activityType":"content_script","args":"[\"a\""}`,
	}
	for _, payload := range bad {
		_, err := FromBindingPayload("ext", "", payload, time.Now())
		assert.ErrorIs(t, err, ErrInvalidPayload, payload)
	}
}

func TestFromBindingPayloadContentScriptExpands(t *testing.T) {
	accepted := []string{
		`{"activityType":"content_script","args":["a.js","b.js"]}`,
		`{"activityType":"content_script","args":"[\"a.js\"]"}`,
		`{"activityType":"content_script","args":""}`,
		`{"activityType":"content_script"}`,
	}
	for _, payload := range accepted {
		ev, err := FromBindingPayload("ext", "", payload, time.Now())
		require.NoError(t, err, payload)
		_, err = stream.Expand(ev)
		assert.NoError(t, err, payload)
	}
}

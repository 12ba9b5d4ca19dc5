package cdp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/network"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"activitylog/internal/stream"
	"activitylog/pkg/domain"
)

// ErrInvalidPayload 绑定上报的活动数据不合法
var ErrInvalidPayload = errors.New("invalid activity payload")

// ExtensionIDFromTarget 从调试目标推断扩展 ID
//
// chrome-extension:// 页面取 host，其余目标使用目标 ID。
func ExtensionIDFromTarget(t *devtool.Target) domain.ExtensionID {
	if u, err := url.Parse(t.URL); err == nil && u.Scheme == "chrome-extension" && u.Host != "" {
		return domain.ExtensionID(u.Host)
	}
	return domain.ExtensionID(t.ID)
}

// FromRequestWillBeSent 将 Network.requestWillBeSent 转换为网络请求活动
func FromRequestWillBeSent(ext domain.ExtensionID, ev *network.RequestWillBeSentReply) domain.ActivityEvent {
	args, _ := sjson.Set(emptyArray, "-1", ev.Request.URL)

	desc := "{}"
	desc, _ = sjson.Set(desc, "requestId", string(ev.RequestID))
	desc, _ = sjson.Set(desc, "method", ev.Request.Method)
	desc, _ = sjson.Set(desc, "url", ev.Request.URL)
	if ev.DocumentURL != "" {
		desc, _ = sjson.Set(desc, "documentUrl", ev.DocumentURL)
	}
	if len(ev.Request.Headers) > 0 && gjson.ValidBytes(ev.Request.Headers) {
		desc, _ = sjson.SetRaw(desc, "requestHeaders", string(ev.Request.Headers))
	}

	return domain.ActivityEvent{
		ExtensionID:  ext,
		ActivityType: domain.ActivityWebRequest,
		APICall:      "webRequest.onBeforeRequest",
		Args:         args,
		ArgURL:       ev.Request.URL,
		PageURL:      ev.DocumentURL,
		Time:         wallTimeMillis(float64(ev.WallTime)),
		Other:        &domain.ActivityOther{WebRequest: desc},
	}
}

// FromConsoleAPICalled 将 Runtime.consoleAPICalled 转换为 API 调用活动
func FromConsoleAPICalled(ext domain.ExtensionID, pageURL string, ev *runtime.ConsoleAPICalledReply) domain.ActivityEvent {
	return domain.ActivityEvent{
		ExtensionID:  ext,
		ActivityType: domain.ActivityAPICall,
		APICall:      "console." + ev.Type,
		Args:         remoteObjectsToArgs(ev.Args),
		PageURL:      pageURL,
		Time:         int64(ev.Timestamp),
	}
}

// FromBindingPayload 解析页面通过绑定函数上报的活动
//
// 载荷为 JSON 对象：activityType、apiCall、args（数组或已序列化的字符串）、argUrl、pageUrl、time。
// 内容脚本活动的 args 必须是脚本名数组。
func FromBindingPayload(ext domain.ExtensionID, pageURL, payload string, now time.Time) (domain.ActivityEvent, error) {
	if !gjson.Valid(payload) {
		return domain.ActivityEvent{}, fmt.Errorf("%w: not json", ErrInvalidPayload)
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return domain.ActivityEvent{}, fmt.Errorf("%w: not an object", ErrInvalidPayload)
	}

	typ, ok := domain.ParseActivityType(root.Get("activityType").String())
	if !ok {
		return domain.ActivityEvent{}, fmt.Errorf("%w: unknown activityType %q", ErrInvalidPayload, root.Get("activityType").String())
	}

	args := emptyArray
	switch a := root.Get("args"); {
	case a.IsArray():
		args = a.Raw
	case a.Type == gjson.String:
		args = a.String()
	case a.Exists() && a.Type != gjson.Null:
		return domain.ActivityEvent{}, fmt.Errorf("%w: args must be an array", ErrInvalidPayload)
	}
	if typ == domain.ActivityContentScript {
		if _, err := stream.ScriptNames(args); err != nil {
			return domain.ActivityEvent{}, fmt.Errorf("%w: content script args must be an array of names", ErrInvalidPayload)
		}
	}

	ev := domain.ActivityEvent{
		ExtensionID:  ext,
		ActivityType: typ,
		APICall:      root.Get("apiCall").String(),
		Args:         args,
		ArgURL:       root.Get("argUrl").String(),
		PageURL:      pageURL,
		Time:         now.UnixMilli(),
	}
	if v := root.Get("pageUrl"); v.Exists() {
		ev.PageURL = v.String()
	}
	if v := root.Get("time"); v.Exists() {
		ev.Time = v.Int()
	}
	if v := root.Get("webRequest"); v.Exists() {
		ev.Other = &domain.ActivityOther{WebRequest: v.Raw}
	}
	return ev, nil
}

const emptyArray = "[]"

func remoteObjectsToArgs(objs []runtime.RemoteObject) string {
	args := emptyArray
	for _, o := range objs {
		switch {
		case len(o.Value) > 0 && gjson.ValidBytes(o.Value):
			args, _ = sjson.SetRaw(args, "-1", string(o.Value))
		case o.Description != nil:
			args, _ = sjson.Set(args, "-1", *o.Description)
		case o.UnserializableValue != nil:
			args, _ = sjson.Set(args, "-1", string(*o.UnserializableValue))
		default:
			args, _ = sjson.Set(args, "-1", strings.TrimSpace(o.Type))
		}
	}
	return args
}

// wallTimeMillis 将秒级时间戳转换为毫秒
func wallTimeMillis(sec float64) int64 {
	return int64(sec * 1000)
}

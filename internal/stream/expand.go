package stream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"activitylog/pkg/domain"
)

// EmptyArgs 空参数数组的序列化形式
const EmptyArgs = "[]"

// ErrInvalidScriptNames 内容脚本活动的参数不是脚本名数组
var ErrInvalidScriptNames = errors.New("invalid data for script names")

// Expand 将一条活动展开为流记录
//
// 内容脚本活动按调用的脚本逐个拆分，参数统一置为空数组；
// 其余活动生成一条以 APICall 命名的记录。
func Expand(ev domain.ActivityEvent) ([]domain.StreamRecord, error) {
	args := ev.Args
	names := []string{ev.APICall}

	if ev.ActivityType == domain.ActivityContentScript {
		args = EmptyArgs
		var err error
		if names, err = ScriptNames(ev.Args); err != nil {
			return nil, err
		}
	}

	var webRequestInfo string
	if ev.Other != nil {
		webRequestInfo = ev.Other.WebRequest
	}

	records := make([]domain.StreamRecord, 0, len(names))
	for _, name := range names {
		records = append(records, domain.StreamRecord{
			Name:           name,
			Args:           args,
			ArgURL:         ev.ArgURL,
			ActivityType:   ev.ActivityType,
			PageURL:        ev.PageURL,
			Timestamp:      ev.Time,
			WebRequestInfo: webRequestInfo,
		})
	}
	return records, nil
}

// ScriptNames 解析内容脚本活动中的脚本名数组，空载荷视为空数组
func ScriptNames(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScriptNames, raw)
	}
	res := gjson.Parse(raw)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScriptNames, raw)
	}

	items := res.Array()
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.String())
	}
	return names, nil
}

// WebRequest 返回记录携带的网络请求描述，可用 gjson 路径继续读取
func WebRequest(r domain.StreamRecord) gjson.Result {
	if r.WebRequestInfo == "" {
		return gjson.Result{}
	}
	return gjson.Parse(r.WebRequestInfo)
}

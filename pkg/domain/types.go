package domain

import "strings"

type ExtensionID string
type StreamID string
type ActivityID string

// ActivityType 扩展活动类型
type ActivityType string

const (
	ActivityAPICall       ActivityType = "api_call"
	ActivityAPIEvent      ActivityType = "api_event"
	ActivityContentScript ActivityType = "content_script"
	ActivityDOMAccess     ActivityType = "dom_access"
	ActivityDOMEvent      ActivityType = "dom_event"
	ActivityWebRequest    ActivityType = "web_request"
)

// ActivityTypes 返回全部已知的活动类型
func ActivityTypes() []ActivityType {
	return []ActivityType{
		ActivityAPICall,
		ActivityAPIEvent,
		ActivityContentScript,
		ActivityDOMAccess,
		ActivityDOMEvent,
		ActivityWebRequest,
	}
}

// ParseActivityType 解析活动类型（大小写不敏感）
func ParseActivityType(s string) (ActivityType, bool) {
	t := ActivityType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ActivityTypes() {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// ActivityOther 活动的附加信息
type ActivityOther struct {
	Prerender  bool   `json:"prerender,omitempty"`
	DOMVerb    string `json:"domVerb,omitempty"`
	WebRequest string `json:"webRequest,omitempty"` // JSON 编码的网络请求描述
	Extra      string `json:"extra,omitempty"`
}

// ActivityEvent 事件源推送的一条扩展活动
type ActivityEvent struct {
	ActivityID   ActivityID     `json:"activityId,omitempty"`
	ExtensionID  ExtensionID    `json:"extensionId"`
	ActivityType ActivityType   `json:"activityType"`
	APICall      string         `json:"apiCall"`
	Args         string         `json:"args"` // JSON 序列化的参数数组；内容脚本时为脚本名数组
	ArgURL       string         `json:"argUrl,omitempty"`
	PageURL      string         `json:"pageUrl,omitempty"`
	PageTitle    string         `json:"pageTitle,omitempty"`
	Time         int64          `json:"time"` // 毫秒时间戳
	Other        *ActivityOther `json:"other,omitempty"`
}

// StreamRecord 活动流中的一条展示记录
type StreamRecord struct {
	Name           string       `json:"name"`
	Args           string       `json:"args"`
	ArgURL         string       `json:"argUrl,omitempty"`
	ActivityType   ActivityType `json:"activityType"`
	PageURL        string       `json:"pageUrl,omitempty"`
	Timestamp      int64        `json:"timestamp"`
	WebRequestInfo string       `json:"webRequestInfo,omitempty"`
	Expanded       bool         `json:"expanded"`
}

// ActivityGroup 历史视图中按 API 调用聚合的活动
type ActivityGroup struct {
	Key          string       `json:"key"`
	ActivityType ActivityType `json:"activityType"`
	ActivityIDs  []ActivityID `json:"activityIds"`
	Count        int          `json:"count"`
	CountsByURL  []URLCount   `json:"countsByUrl"`
	Expanded     bool         `json:"expanded"`
}

// URLCount 某个页面 URL 的调用次数
type URLCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

type SessionConfig struct {
	DevToolsURL string      `json:"devToolsURL"`
	TargetID    string      `json:"targetID"`
	ExtensionID ExtensionID `json:"extensionID"`
	Archive     bool        `json:"archive"`
}

// StreamState 活动流状态快照
type StreamState struct {
	ID                     StreamID    `json:"id"`
	ExtensionID            ExtensionID `json:"extensionID"`
	Streaming              bool        `json:"streaming"`
	SearchTerm             string      `json:"searchTerm"`
	Total                  int         `json:"total"`
	Filtered               int         `json:"filtered"`
	ShowEmptySearchMessage bool        `json:"showEmptySearchMessage"`
}

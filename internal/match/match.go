package match

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"activitylog/pkg/domain"
)

// Field 可匹配的活动字段
type Field string

const (
	FieldAPICall      Field = "apiCall"
	FieldPageURL      Field = "pageUrl"
	FieldArgURL       Field = "argUrl"
	FieldActivityType Field = "activityType"
	FieldExtensionID  Field = "extensionId"
)

// Mode 匹配方式
type Mode string

const (
	ModeGlob     Mode = "glob"
	ModeExact    Mode = "exact"
	ModePrefix   Mode = "prefix"
	ModeContains Mode = "contains"
	ModeRegex    Mode = "regex"
)

// Condition 单个匹配条件
type Condition struct {
	Field   Field  `json:"field" yaml:"field"`
	Mode    Mode   `json:"mode" yaml:"mode"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// Spec 条件组合：AllOf 全部满足、AnyOf 至少一个、NoneOf 全不满足
type Spec struct {
	AllOf  []Condition `json:"allOf,omitempty" yaml:"allOf,omitempty"`
	AnyOf  []Condition `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`
	NoneOf []Condition `json:"noneOf,omitempty" yaml:"noneOf,omitempty"`
}

// IsZero 是否未设置任何条件
func (s Spec) IsZero() bool {
	return len(s.AllOf) == 0 && len(s.AnyOf) == 0 && len(s.NoneOf) == 0
}

// Match 判断活动是否满足条件组合，空组合匹配全部
func (s Spec) Match(ev domain.ActivityEvent) bool {
	ok := true
	if len(s.AllOf) > 0 {
		ok = ok && allOf(ev, s.AllOf)
	}
	if len(s.AnyOf) > 0 {
		ok = ok && anyOf(ev, s.AnyOf)
	}
	if len(s.NoneOf) > 0 {
		ok = ok && !anyOf(ev, s.NoneOf)
	}
	return ok
}

// Filter 返回满足条件的活动，保持原有顺序
func (s Spec) Filter(events []domain.ActivityEvent) []domain.ActivityEvent {
	if s.IsZero() {
		return events
	}
	out := make([]domain.ActivityEvent, 0, len(events))
	for _, ev := range events {
		if s.Match(ev) {
			out = append(out, ev)
		}
	}
	return out
}

func allOf(ev domain.ActivityEvent, cs []Condition) bool {
	for i := range cs {
		if !cs[i].Match(ev) {
			return false
		}
	}
	return true
}

func anyOf(ev domain.ActivityEvent, cs []Condition) bool {
	for i := range cs {
		if cs[i].Match(ev) {
			return true
		}
	}
	return false
}

// Match 判断单个条件
func (c Condition) Match(ev domain.ActivityEvent) bool {
	v, ok := fieldValue(ev, c.Field)
	if !ok {
		return false
	}
	switch c.Mode {
	case ModeExact:
		return v == c.Pattern
	case ModePrefix:
		return strings.HasPrefix(v, c.Pattern)
	case ModeContains:
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Pattern))
	case ModeRegex:
		return matchRegex(v, c.Pattern)
	default:
		return glob(v, c.Pattern)
	}
}

func fieldValue(ev domain.ActivityEvent, f Field) (string, bool) {
	switch f {
	case FieldAPICall:
		return ev.APICall, true
	case FieldPageURL:
		return ev.PageURL, true
	case FieldArgURL:
		return ev.ArgURL, true
	case FieldActivityType:
		return string(ev.ActivityType), true
	case FieldExtensionID:
		return string(ev.ExtensionID), true
	default:
		return "", false
	}
}

// ParseCondition 解析命令行条件，格式为 field:mode:pattern 或 field=pattern（glob）
func ParseCondition(s string) (Condition, error) {
	if field, pattern, ok := strings.Cut(s, "="); ok && !strings.Contains(field, ":") {
		c := Condition{Field: Field(field), Mode: ModeGlob, Pattern: pattern}
		return c, c.Validate()
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Condition{}, fmt.Errorf("条件格式错误: %q", s)
	}
	c := Condition{Field: Field(parts[0]), Mode: Mode(parts[1]), Pattern: parts[2]}
	return c, c.Validate()
}

// Validate 校验条件字段、方式与正则
func (c Condition) Validate() error {
	if _, ok := fieldValue(domain.ActivityEvent{}, c.Field); !ok {
		return fmt.Errorf("未知字段: %q", c.Field)
	}
	switch c.Mode {
	case ModeGlob, ModeExact, ModePrefix, ModeContains:
	case ModeRegex:
		if _, err := regexCache.get(c.Pattern); err != nil {
			return fmt.Errorf("正则表达式无效: %w", err)
		}
	default:
		return fmt.Errorf("未知匹配方式: %q", c.Mode)
	}
	return nil
}

type reCache struct {
	mu sync.RWMutex
	m  map[string]*regexp.Regexp
}

var regexCache = &reCache{m: make(map[string]*regexp.Regexp)}

func (c *reCache) get(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.m[pattern]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.m[pattern] = re
	c.mu.Unlock()
	return re, nil
}

func matchRegex(s, pattern string) bool {
	re, err := regexCache.get(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func glob(s, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(s, strings.TrimPrefix(pattern, "*")) {
		return true
	}
	if strings.HasSuffix(pattern, "*") && strings.HasPrefix(s, strings.TrimSuffix(pattern, "*")) {
		return true
	}
	return s == pattern
}

package stream

import (
	"strings"

	"activitylog/pkg/domain"
)

// NormalizeSearchTerm 去除全部空白字符并转为小写
//
// API 名称与 URL 不含空白，只支持单个搜索词。
func NormalizeSearchTerm(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), ""))
}

// Filter 按搜索词筛选记录，保持原有顺序
//
// 匹配字段为 name、pageUrl、activityType；空字段不参与匹配。
// 搜索词为空时返回全部记录的副本。
func Filter(records []domain.StreamRecord, term string) []domain.StreamRecord {
	if term == "" {
		out := make([]domain.StreamRecord, len(records))
		copy(out, records)
		return out
	}

	out := make([]domain.StreamRecord, 0)
	for _, r := range records {
		if matchRecord(r, term) {
			out = append(out, r)
		}
	}
	return out
}

// viewIndices 返回筛选视图中每条记录在完整日志中的下标
func viewIndices(records []domain.StreamRecord, term string) []int {
	idx := make([]int, 0, len(records))
	for i, r := range records {
		if term == "" || matchRecord(r, term) {
			idx = append(idx, i)
		}
	}
	return idx
}

func matchRecord(r domain.StreamRecord, term string) bool {
	for _, field := range [...]string{r.Name, r.PageURL, string(r.ActivityType)} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

package history

import (
	"sort"

	"activitylog/internal/stream"
	"activitylog/pkg/domain"
)

type groupKey struct {
	key string
	typ domain.ActivityType
}

// Group 按 API 调用聚合活动
//
// 内容脚本活动按调用的每个脚本名分别计数；参数不合法的内容脚本活动被跳过并计入 skipped。
// 分组按次数降序、键名升序排列；分组内页面 URL 按次数降序、URL 升序排列。
func Group(events []domain.ActivityEvent) (groups []domain.ActivityGroup, skipped int) {
	index := make(map[groupKey]*builder)
	var order []groupKey

	add := func(k groupKey, ev domain.ActivityEvent) {
		b, ok := index[k]
		if !ok {
			b = &builder{urls: make(map[string]int)}
			index[k] = b
			order = append(order, k)
		}
		b.count++
		if ev.ActivityID != "" {
			b.ids = append(b.ids, ev.ActivityID)
		}
		if ev.PageURL != "" {
			b.urls[ev.PageURL]++
		}
	}

	for _, ev := range events {
		if ev.ActivityType != domain.ActivityContentScript {
			add(groupKey{key: ev.APICall, typ: ev.ActivityType}, ev)
			continue
		}
		names, err := stream.ScriptNames(ev.Args)
		if err != nil {
			skipped++
			continue
		}
		for _, name := range names {
			add(groupKey{key: name, typ: ev.ActivityType}, ev)
		}
	}

	groups = make([]domain.ActivityGroup, 0, len(order))
	for _, k := range order {
		b := index[k]
		groups = append(groups, domain.ActivityGroup{
			Key:          k.key,
			ActivityType: k.typ,
			ActivityIDs:  b.ids,
			Count:        b.count,
			CountsByURL:  SortedURLCounts(b.urls),
		})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups, skipped
}

type builder struct {
	count int
	ids   []domain.ActivityID
	urls  map[string]int
}

// SortedURLCounts 将 URL 计数按次数降序排列
func SortedURLCounts(m map[string]int) []domain.URLCount {
	out := make([]domain.URLCount, 0, len(m))
	for u, n := range m {
		out = append(out, domain.URLCount{URL: u, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].URL < out[j].URL
	})
	return out
}

package search

// PageNumber 按页寻址的后端使用的 1 起始页码
func PageNumber(q Query) int {
	return (q.Start-1)/q.Count + 1
}

// Window 将结果裁剪到调用方请求的 [start, start+count) 窗口，越界返回空切片
func Window[T any](items []T, q Query, addressing Addressing) []T {
	var from int
	switch addressing {
	case AddressPaged:
		// 后端返回的第一条对应序号 (PageNumber-1)*count+1
		from = (q.Start - 1) % q.Count
	default:
		from = q.Start - 1
	}
	if from < 0 || from >= len(items) {
		return []T{}
	}
	to := min(from+q.Count, len(items))
	return items[from:to]
}

// Navigation 上一页/下一页描述，不存在时为 nil
type Navigation struct {
	Next     *int
	Previous *int
}

// Navigate 根据实际返回条数决定 nextPage 与 previousPage
func Navigate(q Query, returned int) Navigation {
	var nav Navigation
	if returned == q.Count && q.Start+q.Count <= MaxStart {
		next := q.Start + q.Count
		nav.Next = &next
	}
	if q.Start > 1 {
		prev := max(1, q.Start-q.Count)
		nav.Previous = &prev
	}
	return nav
}

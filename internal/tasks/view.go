package tasks

import (
	"fmt"
	"strings"
)

// DefaultPageSize matches the first page-size option of the original list.
const DefaultPageSize = 5

// FilterType selects one of the mutually exclusive filter modes.
type FilterType string

const (
	FilterAll  FilterType = "all"
	FilterText FilterType = "text"
	FilterDate FilterType = "date"
	// FilterPage only switches the page-size picker on; it filters nothing.
	FilterPage FilterType = "page"
)

// ParseFilterType accepts the four filter names; empty means all.
func ParseFilterType(s string) (FilterType, error) {
	switch f := FilterType(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterText, FilterDate, FilterPage:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q (want all, text, date, page)", s)
	}
}

// Query is the transient selection state the view is derived from.
type Query struct {
	Filter     FilterType
	SearchText string
	SearchDate Date
	PageSize   int
	Page       int
}

// ActiveView is what the view layer renders.
type ActiveView struct {
	Items            []Task
	TotalActiveCount int
	TotalPages       int
	CurrentPage      int
	// Offset is the index of Items[0] within the filtered list.
	Offset int
}

func (v ActiveView) HasPrev() bool { return v.CurrentPage > 1 }
func (v ActiveView) HasNext() bool { return v.Offset+len(v.Items) < v.TotalActiveCount }

// ComputeActiveView drops deleted tasks, applies the filter, and slices out
// the requested page. The page is clamped into [1, TotalPages].
func ComputeActiveView(all []Task, q Query) ActiveView {
	matched := filterActive(all, q)

	size := q.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	total := totalPages(len(matched), size)
	page := q.Page
	if page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * size
	end := min(start+size, len(matched))
	items := make([]Task, 0, end-start)
	for _, t := range matched[start:end] {
		items = append(items, t.clone())
	}
	return ActiveView{
		Items:            items,
		TotalActiveCount: len(matched),
		TotalPages:       total,
		CurrentPage:      page,
		Offset:           start,
	}
}

func totalPages(n, size int) int {
	if n == 0 {
		return 1
	}
	return (n + size - 1) / size
}

func filterActive(all []Task, q Query) []Task {
	needle := strings.ToLower(q.SearchText)
	out := make([]Task, 0, len(all))
	for _, t := range all {
		if t.Deleted() {
			continue
		}
		switch q.Filter {
		case FilterText:
			if needle != "" && !strings.Contains(strings.ToLower(t.Text), needle) {
				continue
			}
		case FilterDate:
			if q.SearchDate != "" && t.CreatedAt != q.SearchDate {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

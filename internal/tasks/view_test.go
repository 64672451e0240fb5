package tasks

import (
	"fmt"
	"testing"
)

func seedTasks(n int, created Date) []Task {
	out := make([]Task, n)
	for i := range out {
		out[i] = Task{ID: ParseID(fmt.Sprint(1000 + i)), Text: fmt.Sprintf("task %d", i), CreatedAt: created}
	}
	return out
}

func TestComputeActiveView_PaginationInvariant(t *testing.T) {
	for n := 0; n <= 23; n++ {
		for size := 1; size <= 7; size++ {
			all := seedTasks(n, "2026-10-18")
			wantPages := 1
			if n > 0 {
				wantPages = (n + size - 1) / size
			}
			seen := 0
			for page := 1; page <= wantPages; page++ {
				v := ComputeActiveView(all, Query{Filter: FilterAll, PageSize: size, Page: page})
				if v.TotalPages != wantPages {
					t.Fatalf("n=%d size=%d: pages = %d, want %d", n, size, v.TotalPages, wantPages)
				}
				if v.CurrentPage != page {
					t.Fatalf("n=%d size=%d: current = %d, want %d", n, size, v.CurrentPage, page)
				}
				if len(v.Items) > size {
					t.Fatalf("n=%d size=%d: page holds %d items", n, size, len(v.Items))
				}
				if v.Offset != (page-1)*size {
					t.Fatalf("n=%d size=%d page=%d: offset = %d", n, size, page, v.Offset)
				}
				for i, item := range v.Items {
					if item.ID != all[v.Offset+i].ID {
						t.Fatalf("n=%d size=%d page=%d: item %d out of order", n, size, page, i)
					}
				}
				seen += len(v.Items)
			}
			if seen != n {
				t.Fatalf("n=%d size=%d: pages covered %d items", n, size, seen)
			}
		}
	}
}

func TestComputeActiveView_ClampsPage(t *testing.T) {
	all := seedTasks(7, "2026-10-18")
	cases := []struct {
		page int
		want int
	}{
		{page: -3, want: 1},
		{page: 0, want: 1},
		{page: 2, want: 2},
		{page: 3, want: 2},
		{page: 99, want: 2},
	}
	for _, tc := range cases {
		v := ComputeActiveView(all, Query{PageSize: 5, Page: tc.page})
		if v.CurrentPage != tc.want {
			t.Errorf("page %d clamped to %d, want %d", tc.page, v.CurrentPage, tc.want)
		}
	}
}

func TestComputeActiveView_EmptyHasOnePage(t *testing.T) {
	v := ComputeActiveView(nil, Query{PageSize: 5, Page: 4})
	if v.TotalPages != 1 || v.CurrentPage != 1 || len(v.Items) != 0 {
		t.Fatalf("empty view = %+v", v)
	}
	if v.HasPrev() || v.HasNext() {
		t.Fatal("empty view must not allow paging")
	}
}

func TestComputeActiveView_NonPositivePageSizeFallsBack(t *testing.T) {
	v := ComputeActiveView(seedTasks(12, "2026-10-18"), Query{PageSize: 0, Page: 1})
	if len(v.Items) != DefaultPageSize || v.TotalPages != 3 {
		t.Fatalf("view = %d items, %d pages", len(v.Items), v.TotalPages)
	}
}

func TestComputeActiveView_Filters(t *testing.T) {
	deleted := Date("2026-10-18")
	all := []Task{
		{ID: ParseID("1"), Text: "Buy MILK", CreatedAt: "2026-10-18"},
		{ID: ParseID("2"), Text: "Write report", CreatedAt: "2026-10-17"},
		{ID: ParseID("3"), Text: "milk the cow", CreatedAt: "2026-10-17", DeletedAt: &deleted},
		{ID: ParseID("4"), Text: "call mom", CreatedAt: "2026-10-18"},
	}

	cases := []struct {
		name  string
		query Query
		want  []string
	}{
		{"all", Query{Filter: FilterAll}, []string{"1", "2", "4"}},
		{"page mode filters nothing", Query{Filter: FilterPage, SearchText: "milk"}, []string{"1", "2", "4"}},
		{"text is case insensitive", Query{Filter: FilterText, SearchText: "milk"}, []string{"1"}},
		{"empty text matches all", Query{Filter: FilterText}, []string{"1", "2", "4"}},
		{"text ignored outside text mode", Query{Filter: FilterAll, SearchText: "zzz"}, []string{"1", "2", "4"}},
		{"date", Query{Filter: FilterDate, SearchDate: "2026-10-17"}, []string{"2"}},
		{"empty date matches all", Query{Filter: FilterDate}, []string{"1", "2", "4"}},
		{"no match", Query{Filter: FilterText, SearchText: "nothing"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.query.PageSize = 50
			v := ComputeActiveView(all, tc.query)
			var got []string
			for _, item := range v.Items {
				got = append(got, item.ID.String())
			}
			if fmt.Sprint(got) != fmt.Sprint(tc.want) {
				t.Fatalf("ids = %v, want %v", got, tc.want)
			}
			if v.TotalActiveCount != len(tc.want) {
				t.Fatalf("count = %d, want %d", v.TotalActiveCount, len(tc.want))
			}
		})
	}
}

func TestComputeActiveView_ItemsAreCopies(t *testing.T) {
	updated := Date("2026-10-18")
	all := []Task{{ID: ParseID("1"), Text: "x", CreatedAt: "2026-10-18", UpdatedAt: &updated}}
	v := ComputeActiveView(all, Query{PageSize: 5, Page: 1})
	*v.Items[0].UpdatedAt = "1999-01-01"
	if *all[0].UpdatedAt != "2026-10-18" {
		t.Fatal("view items must not alias the collection")
	}
}

func TestActiveView_PagerBounds(t *testing.T) {
	all := seedTasks(11, "2026-10-18")
	first := ComputeActiveView(all, Query{PageSize: 5, Page: 1})
	if first.HasPrev() || !first.HasNext() {
		t.Fatalf("first page prev=%v next=%v", first.HasPrev(), first.HasNext())
	}
	last := ComputeActiveView(all, Query{PageSize: 5, Page: 3})
	if !last.HasPrev() || last.HasNext() {
		t.Fatalf("last page prev=%v next=%v", last.HasPrev(), last.HasNext())
	}
}

func TestParseFilterType(t *testing.T) {
	for in, want := range map[string]FilterType{"": FilterAll, "ALL": FilterAll, " text ": FilterText, "date": FilterDate, "page": FilterPage} {
		got, err := ParseFilterType(in)
		if err != nil || got != want {
			t.Errorf("ParseFilterType(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFilterType("priority"); err == nil {
		t.Error("expected error for unknown filter")
	}
}

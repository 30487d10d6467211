package aggregate

import (
	"testing"
	"time"

	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/analyzer"
)

func row(fields map[string]interface{}) map[string]interface{} { return fields }

func titles(rows []map[string]interface{}) []string {
	var out []string
	for _, r := range rows {
		title, _ := r["title"].(string)
		out = append(out, title)
	}
	return out
}

func TestFilterByStatus(t *testing.T) {
	rows := []map[string]interface{}{
		row(map[string]interface{}{"title": "done", "completed": true}),
		row(map[string]interface{}{"title": "open", "completed": false}),
		row(map[string]interface{}{"title": "shelved", "completed": false, "status": "archived"}),
	}

	tests := []struct {
		name       string
		status     string
		wantTitles []string
	}{
		{"completed", analyzer.StatusCompleted, []string{"done"}},
		{"active excludes archived", analyzer.StatusActive, []string{"open"}},
		{"archived", analyzer.StatusArchived, []string{"shelved"}},
		{"empty status keeps everything", "", []string{"done", "open", "shelved"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titles(FilterByStatus(rows, tt.status))
			if len(got) != len(tt.wantTitles) {
				t.Fatalf("kept %v, want %v", got, tt.wantTitles)
			}
			for i := range got {
				if got[i] != tt.wantTitles[i] {
					t.Errorf("kept %v, want %v", got, tt.wantTitles)
					break
				}
			}
		})
	}
}

func TestFilterByDateRange(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	constraints := analyzer.Constraints{
		DateRange: &analyzer.DateRange{Start: start, End: start.AddDate(0, 0, 7)},
	}

	rows := []map[string]interface{}{
		row(map[string]interface{}{"title": "inside", "due_on": "2026-03-12"}),
		row(map[string]interface{}{"title": "boundary start", "due_on": "2026-03-10"}),
		row(map[string]interface{}{"title": "boundary end", "due_on": "2026-03-17"}),
		row(map[string]interface{}{"title": "before", "due_on": "2026-03-09"}),
		row(map[string]interface{}{"title": "after", "due_on": "2026-03-18"}),
		row(map[string]interface{}{"title": "undated"}),
	}

	got := titles(FilterByDate(rows, constraints))
	want := []string{"inside", "boundary start", "boundary end"}
	if len(got) != len(want) {
		t.Fatalf("kept %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kept %v, want %v", got, want)
			break
		}
	}
}

func TestFilterByExactDueDate(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	constraints := analyzer.Constraints{DueDate: &due}

	rows := []map[string]interface{}{
		row(map[string]interface{}{"title": "today", "due_on": "2026-03-10"}),
		row(map[string]interface{}{"title": "tomorrow", "due_on": "2026-03-11"}),
	}
	got := titles(FilterByDate(rows, constraints))
	if len(got) != 1 || got[0] != "today" {
		t.Errorf("kept %v, want [today]", got)
	}
}

func TestSortByDueAscending(t *testing.T) {
	rows := []map[string]interface{}{
		row(map[string]interface{}{"title": "late", "due_on": "2026-04-01"}),
		row(map[string]interface{}{"title": "undated a"}),
		row(map[string]interface{}{"title": "early", "due_on": "2026-03-01"}),
		row(map[string]interface{}{"title": "undated b"}),
	}

	got := titles(SortByDueAscending(rows))
	want := []string{"early", "late", "undated a", "undated b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	// Input order untouched.
	if rows[0]["title"] != "late" {
		t.Error("input slice was reordered")
	}
}

func TestGroupByAssigneeAndStats(t *testing.T) {
	rows := []map[string]interface{}{
		row(map[string]interface{}{"title": "a", "assignee_ids": []interface{}{float64(101)}}),
		row(map[string]interface{}{"title": "b", "assignee_ids": []interface{}{float64(101)}}),
		row(map[string]interface{}{"title": "c", "assignee_ids": []interface{}{float64(102)}}),
		row(map[string]interface{}{"title": "d"}),
	}

	groups := GroupByAssignee(rows)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}

	// Largest group first.
	if groups[0]["count"] != 2 {
		t.Errorf("first group count = %v, want 2", groups[0]["count"])
	}
	if id, _ := groups[0]["assignee_id"].(float64); id != 101 {
		t.Errorf("first group assignee_id = %v, want 101", groups[0]["assignee_id"])
	}

	var unassigned map[string]interface{}
	for _, g := range groups {
		if _, ok := g["assignee_id"]; !ok {
			unassigned = g
		}
	}
	if unassigned == nil || unassigned["count"] != 1 {
		t.Errorf("unassigned group = %v, want count 1", unassigned)
	}

	stats := Stats(groups)
	if stats["total_todos"] != 4 {
		t.Errorf("total_todos = %v, want 4", stats["total_todos"])
	}
	if stats["group_count"] != 3 {
		t.Errorf("group_count = %v, want 3", stats["group_count"])
	}
	if stats["unassigned_todos"] != 1 {
		t.Errorf("unassigned_todos = %v, want 1", stats["unassigned_todos"])
	}
}

// Package aggregate applies pattern-specific shaping to enriched rows:
// status filtering, date-window filtering with ascending sort, grouping by
// assignee with per-group counts, and summary stats. The chain executor
// calls into these as step bodies; the engine uses them again when
// assembling the final payload.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/analyzer"
)

const dueDateLayout = "2006-01-02"

// FilterByStatus keeps rows matching the extracted status constraint.
// completed and active map onto the completed flag; archived matches the
// row's lifecycle status field.
func FilterByStatus(rows []map[string]interface{}, status string) []map[string]interface{} {
	if status == "" {
		return rows
	}
	var kept []map[string]interface{}
	for _, row := range rows {
		completed, _ := row["completed"].(bool)
		lifecycle, _ := row["status"].(string)

		switch status {
		case analyzer.StatusCompleted:
			if completed {
				kept = append(kept, row)
			}
		case analyzer.StatusActive:
			if !completed && lifecycle != "archived" {
				kept = append(kept, row)
			}
		case analyzer.StatusArchived:
			if lifecycle == "archived" {
				kept = append(kept, row)
			}
		}
	}
	return kept
}

// FilterByDate keeps rows whose due date satisfies the constraint: inside
// the inclusive range, or equal to the single due date. Rows without a
// parseable due date are dropped — a date-scoped question is about dated
// work.
func FilterByDate(rows []map[string]interface{}, constraints analyzer.Constraints) []map[string]interface{} {
	if constraints.DateRange == nil && constraints.DueDate == nil {
		return rows
	}
	var kept []map[string]interface{}
	for _, row := range rows {
		raw, _ := row["due_on"].(string)
		if _, err := time.Parse(dueDateLayout, raw); err != nil {
			continue
		}
		// Calendar-day comparison: YYYY-MM-DD strings order correctly and
		// sidestep timezone mismatches between parsed and constructed dates.
		switch {
		case constraints.DateRange != nil:
			start := constraints.DateRange.Start.Format(dueDateLayout)
			end := constraints.DateRange.End.Format(dueDateLayout)
			if raw >= start && raw <= end {
				kept = append(kept, row)
			}
		case constraints.DueDate != nil:
			if raw == constraints.DueDate.Format(dueDateLayout) {
				kept = append(kept, row)
			}
		}
	}
	return kept
}

// SortByDueAscending orders rows by due date, earliest first. Rows without
// a due date sort last, keeping their relative order.
func SortByDueAscending(rows []map[string]interface{}) []map[string]interface{} {
	sorted := append([]map[string]interface{}(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, iOK := dueDate(sorted[i])
		dj, jOK := dueDate(sorted[j])
		if iOK && jOK {
			return di.Before(dj)
		}
		return iOK && !jOK
	})
	return sorted
}

// GroupByAssignee buckets rows by their first assignee id. Rows without an
// assignee fall into the "unassigned" bucket. Groups come back sorted by
// count descending, then key, so output is deterministic.
func GroupByAssignee(rows []map[string]interface{}) []map[string]interface{} {
	type bucket struct {
		key        string
		assigneeID interface{}
		todos      []map[string]interface{}
	}

	order := []string{}
	buckets := map[string]*bucket{}
	for _, row := range rows {
		key := "unassigned"
		var assigneeID interface{}
		if ids, ok := row["assignee_ids"].([]interface{}); ok && len(ids) > 0 {
			assigneeID = ids[0]
			key = fmt.Sprintf("%v", ids[0])
		} else if ids, ok := row["assignee_ids"].([]int64); ok && len(ids) > 0 {
			assigneeID = ids[0]
			key = fmt.Sprintf("%v", ids[0])
		}
		b, found := buckets[key]
		if !found {
			b = &bucket{key: key, assigneeID: assigneeID}
			buckets[key] = b
			order = append(order, key)
		}
		b.todos = append(b.todos, row)
	}

	sort.SliceStable(order, func(i, j int) bool {
		bi, bj := buckets[order[i]], buckets[order[j]]
		if len(bi.todos) != len(bj.todos) {
			return len(bi.todos) > len(bj.todos)
		}
		return bi.key < bj.key
	})

	groups := make([]map[string]interface{}, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		group := map[string]interface{}{
			"count": len(b.todos),
			"todos": b.todos,
		}
		if b.assigneeID != nil {
			group["assignee_id"] = b.assigneeID
		}
		groups = append(groups, group)
	}
	return groups
}

// Stats summarizes assignee groups: total todos, group count, and how many
// ended up unassigned.
func Stats(groups []map[string]interface{}) map[string]interface{} {
	total := 0
	unassigned := 0
	for _, group := range groups {
		count, _ := group["count"].(int)
		total += count
		if _, hasAssignee := group["assignee_id"]; !hasAssignee {
			unassigned += count
		}
	}
	return map[string]interface{}{
		"total_todos":      total,
		"group_count":      len(groups),
		"unassigned_todos": unassigned,
	}
}

func dueDate(row map[string]interface{}) (time.Time, bool) {
	raw, _ := row["due_on"].(string)
	if raw == "" {
		return time.Time{}, false
	}
	due, err := time.Parse(dueDateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return due, true
}

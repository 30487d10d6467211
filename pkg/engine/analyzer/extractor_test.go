package analyzer

import (
	"reflect"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func TestExtractPersonNames(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantNames []string
	}{
		{
			name:      "possessive single name after verb",
			query:     "Show John's incomplete todos due next week",
			wantNames: []string{"John"},
		},
		{
			name:      "multi word name",
			query:     "Who is Sarah Chen?",
			wantNames: []string{"Sarah Chen"},
		},
		{
			name:      "single token already inside multi word match",
			query:     "Sarah Chen asked Sarah for an update",
			wantNames: []string{"Sarah Chen"},
		},
		{
			name:      "capitalized sentence starter is not a name",
			query:     "Show all todos",
			wantNames: nil,
		},
		{
			name:      "lowercase fallback with person cue",
			query:     "who is marcus?",
			wantNames: []string{"marcus"},
		},
		{
			name:      "no cue no fallback",
			query:     "everything about launch",
			wantNames: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAt(tt.query, testNow)
			if !reflect.DeepEqual(got.Entities.PersonNames, tt.wantNames) {
				t.Errorf("PersonNames = %v, want %v", got.Entities.PersonNames, tt.wantNames)
			}
		})
	}
}

func TestExtractResourceTypes(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantTypes []string
	}{
		{"plural todos", "show all todos", []string{"todo"}},
		{"singular message", "find the kickoff message", []string{"message"}},
		{"mixed resources", "documents and cards for review", []string{"document", "card"}},
		{"no resources", "what happened yesterday", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAt(tt.query, testNow)
			if !reflect.DeepEqual(got.Entities.ResourceTypes, tt.wantTypes) {
				t.Errorf("ResourceTypes = %v, want %v", got.Entities.ResourceTypes, tt.wantTypes)
			}
		})
	}
}

func TestExtractConstraints(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("incomplete wins over complete substring", func(t *testing.T) {
		got := ExtractAt("show incomplete todos", testNow)
		if got.Constraints.Status != StatusActive {
			t.Errorf("Status = %q, want %q", got.Constraints.Status, StatusActive)
		}
	})

	t.Run("archived status", func(t *testing.T) {
		got := ExtractAt("show archived todos", testNow)
		if got.Constraints.Status != StatusArchived {
			t.Errorf("Status = %q, want %q", got.Constraints.Status, StatusArchived)
		}
	})

	t.Run("completed status", func(t *testing.T) {
		got := ExtractAt("what did Mike complete?", testNow)
		if got.Constraints.Status != StatusCompleted {
			t.Errorf("Status = %q, want %q", got.Constraints.Status, StatusCompleted)
		}
	})

	t.Run("today due date", func(t *testing.T) {
		got := ExtractAt("todos due today", testNow)
		if got.Constraints.DueDate == nil || !got.Constraints.DueDate.Equal(today) {
			t.Errorf("DueDate = %v, want %v", got.Constraints.DueDate, today)
		}
	})

	t.Run("week range", func(t *testing.T) {
		got := ExtractAt("todos due next week", testNow)
		r := got.Constraints.DateRange
		if r == nil {
			t.Fatal("DateRange is nil")
		}
		if !r.Start.Equal(today) || !r.End.Equal(today.AddDate(0, 0, 7)) {
			t.Errorf("DateRange = [%v, %v], want [%v, %v]", r.Start, r.End, today, today.AddDate(0, 0, 7))
		}
	})

	t.Run("urgent priority", func(t *testing.T) {
		got := ExtractAt("urgent tasks please", testNow)
		if got.Constraints.Priority != PriorityHigh {
			t.Errorf("Priority = %q, want %q", got.Constraints.Priority, PriorityHigh)
		}
	})
}

func TestExtractProjectRefs(t *testing.T) {
	got := ExtractAt(`todos in project "Website Redesign"`, testNow)
	want := []string{"website redesign"}
	if !reflect.DeepEqual(got.Entities.ProjectRefs, want) {
		t.Errorf("ProjectRefs = %v, want %v", got.Entities.ProjectRefs, want)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	query := "Show John's incomplete todos due next week"
	first := ExtractAt(query, testNow)
	second := ExtractAt(query, testNow)
	if !reflect.DeepEqual(first.Entities, second.Entities) {
		t.Errorf("entities differ across runs: %+v vs %+v", first.Entities, second.Entities)
	}
	if !reflect.DeepEqual(first.Constraints, second.Constraints) {
		t.Errorf("constraints differ across runs: %+v vs %+v", first.Constraints, second.Constraints)
	}
}

func TestExtractEmptyQuery(t *testing.T) {
	got := ExtractAt("", testNow)
	if len(got.Entities.PersonNames) != 0 || len(got.Entities.ResourceTypes) != 0 || len(got.Entities.ProjectRefs) != 0 {
		t.Errorf("entities = %+v, want all empty", got.Entities)
	}
	if got.Constraints != (Constraints{}) {
		t.Errorf("constraints = %+v, want zero value", got.Constraints)
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("find discussions about the launch checklist")
	want := []string{"discussions", "launch", "checklist"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keywords = %v, want %v", got, want)
	}
}

// Package pattern maps a QueryAnalysis onto a named intent pattern and its
// execution chain. The catalog is an ordered list of concrete pattern
// types evaluated first-match-wins; "generic" always matches, so every
// query resolves to a non-empty chain.
package pattern

import (
	"strings"

	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/analyzer"
)

// Abstract operation names that compose execution chains. The executor's
// step registry binds each one to a primary strategy plus fallbacks.
const (
	StepFindPersonByName    = "find_person_by_name"
	StepListTodosForProject = "list_todos_for_project"
	StepFilterByAssignee    = "filter_by_assignee"
	StepFilterByDate        = "filter_by_date"
	StepSortByDate          = "sort_by_date"
	StepFilterByStatus      = "filter_by_status"
	StepGroupByAssignee     = "group_by_assignee"
	StepEnrichAssignees     = "enrich_assignees"
	StepAggregateStats      = "aggregate_stats"
	StepSearchProject       = "search_project"
	StepExtractReferences   = "extract_references"
	StepFetchRelatedData    = "fetch_related_data"
	StepSearch              = "search"
	StepEnrich              = "enrich"
)

// Pattern names.
const (
	NamePersonFinder = "person_finder"
	NameTimeline     = "timeline"
	NameAssignment   = "assignment"
	NameSearchEnrich = "search_enrich"
	NameStatusFilter = "status_filter"
	NameGeneric      = "generic"
)

// Pattern is a named intent classifier: a pure predicate over a
// QueryAnalysis plus the chain it selects.
type Pattern interface {
	Name() string
	Matches(a *analyzer.QueryAnalysis) bool
	Chain() []string
}

// Catalog returns the patterns in their fixed priority order. The order is
// the contract: person_finder beats timeline, so a query carrying both a
// person name and a date range ("Show John's incomplete todos due next
// week") resolves to person_finder. Generic is last and always matches.
func Catalog() []Pattern {
	return []Pattern{
		personFinder{},
		timeline{},
		assignment{},
		searchEnrich{},
		statusFilter{},
		generic{},
	}
}

// Match evaluates the catalog first-match-wins and stamps the analysis
// with the winning pattern and chain. Exactly one pattern wins per query.
func Match(a *analyzer.QueryAnalysis) (string, []string) {
	for _, p := range Catalog() {
		if p.Matches(a) {
			a.Pattern = p.Name()
			a.Chain = p.Chain()
			return a.Pattern, a.Chain
		}
	}
	// Unreachable while generic is in the catalog, kept as the documented
	// floor: chain must never be empty.
	a.Pattern = NameGeneric
	a.Chain = []string{StepSearch, StepEnrich}
	return a.Pattern, a.Chain
}

type personFinder struct{}

func (personFinder) Name() string { return NamePersonFinder }

// Matches requires a person name and tolerates only the todo resource
// type; any other resource type hands the query to a later pattern.
func (personFinder) Matches(a *analyzer.QueryAnalysis) bool {
	if len(a.Entities.PersonNames) == 0 {
		return false
	}
	for _, rt := range a.Entities.ResourceTypes {
		if rt != "todo" {
			return false
		}
	}
	return true
}

func (personFinder) Chain() []string {
	return []string{StepFindPersonByName, StepListTodosForProject, StepFilterByAssignee, StepEnrich}
}

type timeline struct{}

func (timeline) Name() string { return NameTimeline }

func (timeline) Matches(a *analyzer.QueryAnalysis) bool {
	if a.Constraints.DateRange != nil || a.Constraints.DueDate != nil {
		return true
	}
	return strings.Contains(a.NormalizedQuery, "week") || strings.Contains(a.NormalizedQuery, "month")
}

func (timeline) Chain() []string {
	return []string{StepListTodosForProject, StepFilterByDate, StepSortByDate, StepEnrich}
}

type assignment struct{}

func (assignment) Name() string { return NameAssignment }

func (assignment) Matches(a *analyzer.QueryAnalysis) bool {
	for _, cue := range []string{"assign", "who has", "who is"} {
		if strings.Contains(a.NormalizedQuery, cue) {
			return true
		}
	}
	return false
}

func (assignment) Chain() []string {
	return []string{StepListTodosForProject, StepGroupByAssignee, StepEnrichAssignees, StepAggregateStats}
}

type searchEnrich struct{}

func (searchEnrich) Name() string { return NameSearchEnrich }

func (searchEnrich) Matches(a *analyzer.QueryAnalysis) bool {
	if a.HasResourceType("document") || a.HasResourceType("message") {
		return true
	}
	return strings.Contains(a.NormalizedQuery, "search") || strings.Contains(a.NormalizedQuery, "find")
}

func (searchEnrich) Chain() []string {
	return []string{StepSearchProject, StepExtractReferences, StepFetchRelatedData, StepEnrich}
}

type statusFilter struct{}

func (statusFilter) Name() string { return NameStatusFilter }

func (statusFilter) Matches(a *analyzer.QueryAnalysis) bool {
	return a.Constraints.Status != ""
}

func (statusFilter) Chain() []string {
	return []string{StepListTodosForProject, StepFilterByStatus, StepEnrich}
}

type generic struct{}

func (generic) Name() string { return NameGeneric }

func (generic) Matches(a *analyzer.QueryAnalysis) bool { return true }

func (generic) Chain() []string {
	return []string{StepSearch, StepEnrich}
}

package analyzer

import "time"

// Status constraint values extracted from query text.
const (
	StatusCompleted = "completed"
	StatusActive    = "active"
	StatusArchived  = "archived"
)

// Priority constraint values.
const (
	PriorityHigh = "high"
)

// DateRange is an inclusive calendar-day window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Entities holds everything the extractor pulled out of the query text.
type Entities struct {
	// PersonNames is ordered and de-duplicated. Names found via the
	// lowercase fallback heuristic are best-effort and may be wrong.
	PersonNames []string
	// ResourceTypes are canonical singular type names drawn from the
	// fixed vocabulary (todo, message, document, card, comment, schedule).
	ResourceTypes []string
	// ProjectRefs are project names the user referenced explicitly.
	ProjectRefs []string
}

// Constraints captures status/date/priority filters. Zero values mean
// "not present".
type Constraints struct {
	Status    string
	DateRange *DateRange
	DueDate   *time.Time
	Priority  string
}

// QueryAnalysis is the immutable product of one extraction pass plus the
// pattern match result. Pattern and Chain are filled in by the catalog;
// Chain is never empty.
type QueryAnalysis struct {
	OriginalQuery   string
	NormalizedQuery string
	Entities        Entities
	Constraints     Constraints
	Pattern         string
	Chain           []string
}

// HasResourceType reports whether the given canonical type was detected.
func (a *QueryAnalysis) HasResourceType(resourceType string) bool {
	for _, rt := range a.Entities.ResourceTypes {
		if rt == resourceType {
			return true
		}
	}
	return false
}

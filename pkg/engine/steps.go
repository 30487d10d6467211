package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wickeddevsupport/bcgpt-sub008/pkg/basecamp"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/aggregate"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/analyzer"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/enrich"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/executor"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/pattern"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/reqctx"
)

// StateKeySummary carries the aggregate_stats output to the final payload.
const StateKeySummary = "summary"

// buildRegistry binds every abstract chain operation to its primary
// strategy and fallbacks. Degraded alternatives are preferred over total
// failure wherever one exists: enrichment falls back to returning raw
// rows, a todo listing falls back to project search, a preloaded-people
// scan falls back to a live refetch.
func buildRegistry(client basecamp.Client, enricher *enrich.Enricher) map[string]executor.Step {
	steps := []executor.Step{
		{
			Operation: pattern.StepFindPersonByName,
			Primary:   executor.Strategy{Name: "preloaded_people_scan", Run: findPersonPreloaded},
			Fallbacks: []executor.Strategy{
				{Name: "live_people_scan", Run: findPersonLive(client)},
			},
		},
		{
			Operation: pattern.StepListTodosForProject,
			Primary:   executor.Strategy{Name: "list_todo_groups", Run: listTodos(client)},
			Fallbacks: []executor.Strategy{
				{Name: "project_search", Run: listTodosViaSearch(client)},
			},
		},
		{
			Operation:  pattern.StepFilterByAssignee,
			Primary:    executor.Strategy{Name: "assignee_filter", Run: filterByAssignee},
			NeedsPrior: true,
		},
		{
			Operation:  pattern.StepFilterByDate,
			Primary:    executor.Strategy{Name: "date_filter", Run: filterByDate},
			NeedsPrior: true,
		},
		{
			Operation:  pattern.StepSortByDate,
			Primary:    executor.Strategy{Name: "due_date_sort", Run: sortByDate},
			NeedsPrior: true,
		},
		{
			Operation:  pattern.StepFilterByStatus,
			Primary:    executor.Strategy{Name: "status_filter", Run: filterByStatus},
			NeedsPrior: true,
		},
		{
			Operation:  pattern.StepGroupByAssignee,
			Primary:    executor.Strategy{Name: "assignee_grouping", Run: groupByAssignee},
			NeedsPrior: true,
		},
		{
			Operation:  pattern.StepEnrichAssignees,
			Primary:    executor.Strategy{Name: "resolve_assignees", Run: enrichAssignees(enricher)},
			NeedsPrior: true,
			Fallbacks: []executor.Strategy{
				{Name: "skip_assignee_enrichment", Run: passThrough},
			},
		},
		{
			Operation:  pattern.StepAggregateStats,
			Primary:    executor.Strategy{Name: "group_stats", Run: aggregateStats},
			NeedsPrior: true,
		},
		{
			Operation: pattern.StepSearchProject,
			Primary:   executor.Strategy{Name: "project_search", Run: searchProject(client)},
			Fallbacks: []executor.Strategy{
				{Name: "todo_title_scan", Run: searchViaTodoScan(client)},
			},
		},
		{
			Operation:  pattern.StepExtractReferences,
			Primary:    executor.Strategy{Name: "reference_scan", Run: extractReferences},
			NeedsPrior: true,
		},
		{
			Operation:  pattern.StepFetchRelatedData,
			Primary:    executor.Strategy{Name: "reference_prefetch", Run: fetchRelatedData(enricher)},
			NeedsPrior: true,
			Fallbacks: []executor.Strategy{
				{Name: "skip_prefetch", Run: passThrough},
			},
		},
		{
			// The generic chain uses the plain "search" operation name.
			Operation: pattern.StepSearch,
			Primary:   executor.Strategy{Name: "project_search", Run: searchProject(client)},
			Fallbacks: []executor.Strategy{
				{Name: "todo_title_scan", Run: searchViaTodoScan(client)},
			},
		},
		{
			Operation:  pattern.StepEnrich,
			Primary:    executor.Strategy{Name: "resolve_references", Run: enrichRows(enricher)},
			NeedsPrior: true,
			Fallbacks: []executor.Strategy{
				{Name: "skip_enrichment", Run: passThrough},
			},
		},
	}

	registry := make(map[string]executor.Step, len(steps))
	for _, step := range steps {
		registry[step.Operation] = step
	}
	return registry
}

// --- Lookup Steps ---

func findPersonPreloaded(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
	name := firstPersonName(in)
	if name == "" {
		return nil, fmt.Errorf("no person name extracted from query")
	}
	person := rc.LookupPersonByName(name)
	if person == nil {
		return nil, fmt.Errorf("person %q not in preloaded set", name)
	}
	return person, nil
}

func findPersonLive(client basecamp.Client) executor.StepFunc {
	return func(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
		name := firstPersonName(in)
		if name == "" {
			return nil, fmt.Errorf("no person name extracted from query")
		}
		start := time.Now()
		people, err := client.ListPeople(ctx)
		rc.RecordCall("list_people", time.Since(start), false)
		if err != nil {
			return nil, err
		}
		needle := strings.ToLower(name)
		for i := range people {
			haystack := strings.ToLower(people[i].Name)
			if haystack == needle || strings.Contains(haystack, needle) {
				return &people[i], nil
			}
		}
		return nil, fmt.Errorf("person %q not found", name)
	}
}

func firstPersonName(in *executor.StepInput) string {
	if len(in.Analysis.Entities.PersonNames) == 0 {
		return ""
	}
	return in.Analysis.Entities.PersonNames[0]
}

// --- Fetch Steps ---

func listTodos(client basecamp.Client) executor.StepFunc {
	return func(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
		start := time.Now()
		groups, err := client.ListTodosForProject(ctx, in.ProjectID)
		rc.RecordCall("list_todos_for_project", time.Since(start), false)
		if err != nil {
			return nil, err
		}
		var rows []map[string]interface{}
		for _, group := range groups {
			for _, todo := range group.Todos {
				rows = append(rows, basecamp.TodoRaw(todo))
			}
		}
		return rows, nil
	}
}

func listTodosViaSearch(client basecamp.Client) executor.StepFunc {
	return func(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
		start := time.Now()
		results, err := client.SearchProject(ctx, in.ProjectID, "")
		rc.RecordCall("search_project", time.Since(start), false)
		if err != nil {
			return nil, err
		}
		var rows []map[string]interface{}
		for _, result := range results {
			if result.Type == basecamp.TypeTodo {
				rows = append(rows, result.Raw)
			}
		}
		return rows, nil
	}
}

func searchProject(client basecamp.Client) executor.StepFunc {
	return func(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
		query := searchTerms(in)
		start := time.Now()
		results, err := client.SearchProject(ctx, in.ProjectID, query)
		rc.RecordCall("search_project", time.Since(start), false)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]interface{}, 0, len(results))
		for _, result := range results {
			row := result.Raw
			if row == nil {
				row = map[string]interface{}{}
			}
			if _, ok := row["type"]; !ok {
				row["type"] = result.Type
			}
			if _, ok := row["id"]; !ok {
				row["id"] = result.ID
			}
			rows = append(rows, row)
		}
		return rows, nil
	}
}

// searchViaTodoScan degrades a failed project search to a todo listing
// filtered by the query's keywords.
func searchViaTodoScan(client basecamp.Client) executor.StepFunc {
	return func(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
		start := time.Now()
		groups, err := client.ListTodosForProject(ctx, in.ProjectID)
		rc.RecordCall("list_todos_for_project", time.Since(start), false)
		if err != nil {
			return nil, err
		}
		keywords := keywordsOf(in)
		var rows []map[string]interface{}
		for _, group := range groups {
			for _, todo := range group.Todos {
				if len(keywords) == 0 || titleMatchesAny(todo.Title, keywords) {
					rows = append(rows, basecamp.TodoRaw(todo))
				}
			}
		}
		return rows, nil
	}
}

func searchTerms(in *executor.StepInput) string {
	return strings.Join(keywordsOf(in), " ")
}

func keywordsOf(in *executor.StepInput) []string {
	return analyzer.Keywords(in.Analysis.NormalizedQuery)
}

func titleMatchesAny(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// --- Shaping Steps ---

func filterByAssignee(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
	rawPerson, ok := in.Output(pattern.StepFindPersonByName)
	if !ok {
		return nil, fmt.Errorf("filter_by_assignee: no person from %s", pattern.StepFindPersonByName)
	}
	person, ok := rawPerson.(*basecamp.Person)
	if !ok || person == nil {
		return nil, fmt.Errorf("filter_by_assignee: unexpected person output %T", rawPerson)
	}

	rows := rowsFrom(stateOr(in, pattern.StepListTodosForProject))
	var kept []map[string]interface{}
	for _, row := range rows {
		for _, id := range rowAssigneeIDs(row) {
			if id == person.ID {
				kept = append(kept, row)
				break
			}
		}
	}
	return kept, nil
}

func filterByDate(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
	return aggregate.FilterByDate(rowsFrom(in.Value), in.Analysis.Constraints), nil
}

func sortByDate(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
	return aggregate.SortByDueAscending(rowsFrom(in.Value)), nil
}

func filterByStatus(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
	return aggregate.FilterByStatus(rowsFrom(in.Value), in.Analysis.Constraints.Status), nil
}

func groupByAssignee(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
	return aggregate.GroupByAssignee(rowsFrom(in.Value)), nil
}

func enrichAssignees(enricher *enrich.Enricher) executor.StepFunc {
	return func(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
		groups := rowsFrom(in.Value)
		for _, group := range groups {
			id, ok := enrich.AsID(group["assignee_id"])
			if !ok {
				continue
			}
			group["assignee"] = enricher.ResolveEntity(ctx, rc, in.ProjectID, basecamp.TypePerson, id)
		}
		return groups, nil
	}
}

func aggregateStats(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
	groups := rowsFrom(in.Value)
	in.State[StateKeySummary] = aggregate.Stats(groups)
	return groups, nil
}

// --- Enrichment Steps ---

func extractReferences(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
	rows := rowsFrom(in.Value)
	in.State[pattern.StepExtractReferences+"_refs"] = enrich.CollectReferences(rows)
	return rows, nil
}

func fetchRelatedData(enricher *enrich.Enricher) executor.StepFunc {
	return func(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
		rows := rowsFrom(in.Value)
		refs, _ := in.State[pattern.StepExtractReferences+"_refs"].([]enrich.Reference)
		if len(refs) == 0 {
			return rows, nil
		}
		// Warms the request cache so the enrich step is all hits.
		if _, err := enricher.Resolve(ctx, rc, in.ProjectID, refs); err != nil {
			return nil, err
		}
		return rows, nil
	}
}

func enrichRows(enricher *enrich.Enricher) executor.StepFunc {
	return func(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
		return enricher.Enrich(ctx, rc, in.ProjectID, rowsFrom(in.Value))
	}
}

func passThrough(ctx context.Context, rc *reqctx.Context, in *executor.StepInput) (interface{}, error) {
	return rowsFrom(in.Value), nil
}

// --- Helpers ---

func stateOr(in *executor.StepInput, operation string) interface{} {
	if v, ok := in.Output(operation); ok {
		return v
	}
	return in.Value
}

func rowsFrom(value interface{}) []map[string]interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []map[string]interface{}:
		return v
	case []interface{}:
		rows := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			if row, ok := item.(map[string]interface{}); ok {
				rows = append(rows, row)
			}
		}
		return rows
	default:
		return nil
	}
}

func rowAssigneeIDs(row map[string]interface{}) []int64 {
	switch ids := row["assignee_ids"].(type) {
	case []int64:
		return ids
	case []interface{}:
		var out []int64
		for _, raw := range ids {
			if id, ok := enrich.AsID(raw); ok {
				out = append(out, id)
			}
		}
		return out
	}
	return nil
}

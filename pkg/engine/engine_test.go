package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wickeddevsupport/bcgpt-sub008/pkg/basecamp"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/pattern"
)

func seededClient() *basecamp.MemoryClient {
	client := basecamp.NewMemoryClient()
	client.People = []basecamp.Person{
		{ID: 101, Name: "John Smith", EmailAddress: "john@example.com"},
		{ID: 102, Name: "Sarah Chen", EmailAddress: "sarah@example.com"},
	}
	client.Projects = []basecamp.Project{
		{ID: 201, Name: "Website Redesign", Status: "active"},
	}

	in := func(days int) string { return time.Now().AddDate(0, 0, days).Format("2006-01-02") }
	client.Groups[201] = []basecamp.TodoGroup{
		{ID: 301, Name: "Design", ProjectID: 201, Todos: []basecamp.Todo{
			{ID: 401, Title: "Draft homepage hero", ProjectID: 201, AssigneeIDs: []int64{101}, DueOn: in(5)},
			{ID: 402, Title: "Ship style guide", ProjectID: 201, AssigneeIDs: []int64{102}, Completed: true, DueOn: in(-1)},
			{ID: 403, Title: "Audit old blog posts", ProjectID: 201, Status: "archived"},
		}},
	}
	return client
}

func TestAnalyzeAndExecutePersonFinder(t *testing.T) {
	client := seededClient()
	eng := New(client, nil)

	result, err := eng.AnalyzeAndExecute(context.Background(),
		"Show John's incomplete todos due next week",
		&Scope{ProjectName: "Website Redesign"})
	require.NoError(t, err)

	assert.Equal(t, pattern.NamePersonFinder, result.Pattern)
	assert.NotEmpty(t, result.InvocationID)
	require.Len(t, result.Results, 1)

	row := result.Results[0]
	assert.Equal(t, "Draft homepage hero", row["title"])

	// Assignee ids were resolved into full entities alongside the raw field.
	assignees, ok := row["assignees"].([]interface{})
	require.True(t, ok, "assignees missing: %v", row)
	require.Len(t, assignees, 1)
	assignee := assignees[0].(map[string]interface{})
	assert.Equal(t, "John Smith", assignee["name"])
	assert.NotNil(t, row["assignee_ids"], "raw field must survive enrichment")

	assert.Greater(t, result.Metrics.CallsMade, 0)
	assert.NotEmpty(t, result.CallLog)
}

func TestAnalyzeAndExecuteAssignmentSummary(t *testing.T) {
	client := seededClient()
	eng := New(client, nil)

	result, err := eng.AnalyzeAndExecute(context.Background(),
		"who has the most assigned tasks",
		&Scope{ProjectID: "201"})
	require.NoError(t, err)

	assert.Equal(t, pattern.NameAssignment, result.Pattern)
	require.NotNil(t, result.Summary)
	assert.Equal(t, 3, result.Summary["total_todos"])
	assert.Equal(t, 3, result.Summary["group_count"])
	assert.Equal(t, 1, result.Summary["unassigned_todos"])
}

func TestAnalyzeAndExecuteStatusFilter(t *testing.T) {
	client := seededClient()
	eng := New(client, nil)

	result, err := eng.AnalyzeAndExecute(context.Background(),
		"archived todos",
		&Scope{ProjectID: "201"})
	require.NoError(t, err)

	assert.Equal(t, pattern.NameStatusFilter, result.Pattern)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "Audit old blog posts", result.Results[0]["title"])
}

func TestAnalyzeAndExecuteEmptyFilterDoesNotLeakUnfilteredRows(t *testing.T) {
	client := seededClient()
	eng := New(client, nil)

	// Drop the archived todo so the filter matches nothing.
	client.Groups[201][0].Todos = client.Groups[201][0].Todos[:2]

	result, err := eng.AnalyzeAndExecute(context.Background(),
		"archived todos",
		&Scope{ProjectID: "201"})
	require.NoError(t, err)
	assert.Empty(t, result.Results)
}

func TestAnalyzeAndExecuteCachesRepeatedReferences(t *testing.T) {
	client := seededClient()
	// Two more todos pointing at the same assignee.
	client.Groups[201][0].Todos = append(client.Groups[201][0].Todos,
		basecamp.Todo{ID: 404, Title: "Review nav copy", ProjectID: 201, AssigneeIDs: []int64{101}},
		basecamp.Todo{ID: 405, Title: "Retire old banner", ProjectID: 201, AssigneeIDs: []int64{101}},
	)
	eng := New(client, nil)

	result, err := eng.AnalyzeAndExecute(context.Background(),
		"Show John's todos",
		&Scope{ProjectID: "201"})
	require.NoError(t, err)
	require.Len(t, result.Results, 3)

	fetches := 0
	for _, op := range client.Calls {
		if op == "get_person" {
			fetches++
		}
	}
	assert.Equal(t, 1, fetches, "repeated references to one person must resolve once")
}

type downClient struct{}

var errDown = errors.New("upstream unavailable")

func (downClient) ListPeople(context.Context) ([]basecamp.Person, error) { return nil, errDown }
func (downClient) ListProjects(context.Context) ([]basecamp.Project, error) {
	return nil, errDown
}
func (downClient) ListTodosForProject(context.Context, int64) ([]basecamp.TodoGroup, error) {
	return nil, errDown
}
func (downClient) SearchProject(context.Context, int64, string) ([]basecamp.SearchResult, error) {
	return nil, errDown
}
func (downClient) GetPerson(context.Context, int64) (*basecamp.Person, error) { return nil, errDown }
func (downClient) GetProject(context.Context, int64) (*basecamp.Project, error) {
	return nil, errDown
}
func (downClient) GetTodo(context.Context, int64, int64) (*basecamp.Todo, error) {
	return nil, errDown
}
func (downClient) CreateTodo(context.Context, int64, *basecamp.Todo) (*basecamp.Todo, error) {
	return nil, errDown
}

func TestAnalyzeAndExecuteExhaustionPropagates(t *testing.T) {
	eng := New(downClient{}, nil)

	_, err := eng.AnalyzeAndExecute(context.Background(), "archived todos", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDown)
}

type capturingPublisher struct {
	results []*QueryResult
}

func (p *capturingPublisher) QueryExecuted(result *QueryResult) {
	p.results = append(p.results, result)
}

func TestAnalyzeAndExecuteNotifiesPublisher(t *testing.T) {
	client := seededClient()
	pub := &capturingPublisher{}
	eng := New(client, nil, WithPublisher(pub))

	result, err := eng.AnalyzeAndExecute(context.Background(),
		"archived todos",
		&Scope{ProjectID: "201"})
	require.NoError(t, err)

	require.Len(t, pub.results, 1)
	assert.Equal(t, result.InvocationID, pub.results[0].InvocationID)
}

package basecamp

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryClient is an in-memory Client used by the debug CLI and by tests.
// It is safe for concurrent use within one process.
type MemoryClient struct {
	mu       sync.Mutex
	People   []Person
	Projects []Project
	Groups   map[int64][]TodoGroup // projectID -> groups
	nextID   int64

	// Calls records every operation name in invocation order.
	Calls []string
}

// NewMemoryClient returns an empty in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		Groups: make(map[int64][]TodoGroup),
		nextID: 9000,
	}
}

func (m *MemoryClient) record(op string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, op)
	m.mu.Unlock()
}

func (m *MemoryClient) ListPeople(ctx context.Context) ([]Person, error) {
	m.record("list_people")
	return append([]Person(nil), m.People...), nil
}

func (m *MemoryClient) ListProjects(ctx context.Context) ([]Project, error) {
	m.record("list_projects")
	return append([]Project(nil), m.Projects...), nil
}

func (m *MemoryClient) ListTodosForProject(ctx context.Context, projectID int64) ([]TodoGroup, error) {
	m.record("list_todos_for_project")
	groups, ok := m.Groups[projectID]
	if !ok {
		return nil, &RemoteError{Kind: ErrKindNotFound, Operation: "list_todos_for_project", Err: fmt.Errorf("project %d", projectID)}
	}
	return append([]TodoGroup(nil), groups...), nil
}

func (m *MemoryClient) SearchProject(ctx context.Context, projectID int64, query string) ([]SearchResult, error) {
	m.record("search_project")
	query = strings.ToLower(strings.TrimSpace(query))

	var results []SearchResult
	for _, group := range m.Groups[projectID] {
		for _, todo := range group.Todos {
			if query != "" && !strings.Contains(strings.ToLower(todo.Title), query) {
				continue
			}
			results = append(results, SearchResult{
				Type: TypeTodo,
				ID:   todo.ID,
				Raw:  TodoRaw(todo),
			})
		}
	}
	return results, nil
}

func (m *MemoryClient) GetPerson(ctx context.Context, id int64) (*Person, error) {
	m.record("get_person")
	for _, p := range m.People {
		if p.ID == id {
			person := p
			return &person, nil
		}
	}
	return nil, &RemoteError{Kind: ErrKindNotFound, Operation: "get_person", Err: fmt.Errorf("person %d", id)}
}

func (m *MemoryClient) GetProject(ctx context.Context, id int64) (*Project, error) {
	m.record("get_project")
	for _, p := range m.Projects {
		if p.ID == id {
			project := p
			return &project, nil
		}
	}
	return nil, &RemoteError{Kind: ErrKindNotFound, Operation: "get_project", Err: fmt.Errorf("project %d", id)}
}

func (m *MemoryClient) GetTodo(ctx context.Context, projectID, id int64) (*Todo, error) {
	m.record("get_todo")
	for _, group := range m.Groups[projectID] {
		for _, todo := range group.Todos {
			if todo.ID == id {
				t := todo
				return &t, nil
			}
		}
	}
	return nil, &RemoteError{Kind: ErrKindNotFound, Operation: "get_todo", Err: fmt.Errorf("todo %d", id)}
}

func (m *MemoryClient) CreateTodo(ctx context.Context, projectID int64, todo *Todo) (*Todo, error) {
	m.record("create_todo")
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	created := *todo
	created.ID = m.nextID
	created.ProjectID = projectID

	groups := m.Groups[projectID]
	if len(groups) == 0 {
		groups = []TodoGroup{{ID: m.nextID + 100000, Name: "Inbox", ProjectID: projectID}}
	}
	groups[0].Todos = append(groups[0].Todos, created)
	m.Groups[projectID] = groups
	return &created, nil
}

// TodoRaw converts a todo to the wire shape of a raw result row, keeping
// the *_id fields the enricher looks for.
func TodoRaw(todo Todo) map[string]interface{} {
	raw := map[string]interface{}{
		"type":       TypeTodo,
		"id":         todo.ID,
		"title":      todo.Title,
		"completed":  todo.Completed,
		"project_id": todo.ProjectID,
	}
	if todo.DueOn != "" {
		raw["due_on"] = todo.DueOn
	}
	if todo.Status != "" {
		raw["status"] = todo.Status
	}
	if len(todo.AssigneeIDs) > 0 {
		ids := make([]interface{}, 0, len(todo.AssigneeIDs))
		for _, id := range todo.AssigneeIDs {
			ids = append(ids, id)
		}
		raw["assignee_ids"] = ids
	}
	if todo.CreatorID != 0 {
		raw["creator_id"] = todo.CreatorID
	}
	return raw
}

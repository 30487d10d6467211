package basecamp

import "context"

// Client is the set of primitive operations against the upstream
// project-management API. The query engine never touches the network
// directly; everything goes through this interface so tests and the
// debug CLI can substitute an in-memory implementation.
type Client interface {
	ListPeople(ctx context.Context) ([]Person, error)
	ListProjects(ctx context.Context) ([]Project, error)
	ListTodosForProject(ctx context.Context, projectID int64) ([]TodoGroup, error)
	SearchProject(ctx context.Context, projectID int64, query string) ([]SearchResult, error)
	GetPerson(ctx context.Context, id int64) (*Person, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	GetTodo(ctx context.Context, projectID, id int64) (*Todo, error)
	CreateTodo(ctx context.Context, projectID int64, todo *Todo) (*Todo, error)
}

package basecamp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient talks to the upstream API over HTTPS with a bearer token.
// Per-call timeouts live here; the engine above sees timeouts as ordinary
// step failures handled by its fallback wrapper.
type HTTPClient struct {
	baseURL     string
	accountID   string
	accessToken string
	client      *http.Client
}

// NewHTTPClient builds a client for one account. timeout applies to every
// individual call.
func NewHTTPClient(baseURL, accountID, accessToken string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL:     baseURL,
		accountID:   accountID,
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) ListPeople(ctx context.Context) ([]Person, error) {
	var people []Person
	if err := c.get(ctx, "list_people", "/people.json", &people); err != nil {
		return nil, err
	}
	return people, nil
}

func (c *HTTPClient) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.get(ctx, "list_projects", "/projects.json", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *HTTPClient) ListTodosForProject(ctx context.Context, projectID int64) ([]TodoGroup, error) {
	var groups []TodoGroup
	path := fmt.Sprintf("/projects/%d/todogroups.json", projectID)
	if err := c.get(ctx, "list_todos_for_project", path, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *HTTPClient) SearchProject(ctx context.Context, projectID int64, query string) ([]SearchResult, error) {
	var results []SearchResult
	path := fmt.Sprintf("/projects/%d/search.json?q=%s", projectID, url.QueryEscape(query))
	if err := c.get(ctx, "search_project", path, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *HTTPClient) GetPerson(ctx context.Context, id int64) (*Person, error) {
	var person Person
	if err := c.get(ctx, "get_person", fmt.Sprintf("/people/%d.json", id), &person); err != nil {
		return nil, err
	}
	return &person, nil
}

func (c *HTTPClient) GetProject(ctx context.Context, id int64) (*Project, error) {
	var project Project
	if err := c.get(ctx, "get_project", fmt.Sprintf("/projects/%d.json", id), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *HTTPClient) GetTodo(ctx context.Context, projectID, id int64) (*Todo, error) {
	var todo Todo
	path := fmt.Sprintf("/projects/%d/todos/%d.json", projectID, id)
	if err := c.get(ctx, "get_todo", path, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *HTTPClient) CreateTodo(ctx context.Context, projectID int64, todo *Todo) (*Todo, error) {
	payload, err := json.Marshal(todo)
	if err != nil {
		return nil, &RemoteError{Kind: ErrKindRemote, Operation: "create_todo", Err: err}
	}

	path := fmt.Sprintf("/projects/%d/todos.json", projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewBuffer(payload))
	if err != nil {
		return nil, &RemoteError{Kind: ErrKindRemote, Operation: "create_todo", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var created Todo
	if err := c.do(req, "create_todo", &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// --- Transport Helpers ---

func (c *HTTPClient) endpoint(path string) string {
	return fmt.Sprintf("%s/%s%s", c.baseURL, c.accountID, path)
}

func (c *HTTPClient) get(ctx context.Context, operation, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return &RemoteError{Kind: ErrKindRemote, Operation: operation, Err: err}
	}
	return c.do(req, operation, out)
}

func (c *HTTPClient) do(req *http.Request, operation string, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return &RemoteError{Kind: ErrKindNetwork, Operation: operation, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return &RemoteError{Kind: ErrKindNetwork, Operation: operation, Err: err}
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return &RemoteError{Kind: ErrKindAuthorization, Operation: operation, Err: fmt.Errorf("status %d", res.StatusCode)}
	case res.StatusCode == http.StatusNotFound:
		return &RemoteError{Kind: ErrKindNotFound, Operation: operation, Err: fmt.Errorf("status %d", res.StatusCode)}
	case res.StatusCode >= 400:
		return &RemoteError{Kind: ErrKindRemote, Operation: operation, Err: fmt.Errorf("status %d: %s", res.StatusCode, truncateBody(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &RemoteError{Kind: ErrKindRemote, Operation: operation, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func truncateBody(body []byte) string {
	const maxLen = 200
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "..."
}

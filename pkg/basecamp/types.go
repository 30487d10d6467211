package basecamp

// Entity type names used as cache keys and for foreign-key resolution.
const (
	TypePerson   = "person"
	TypeProject  = "project"
	TypeTodo     = "todo"
	TypeCard     = "card"
	TypeDocument = "document"
	TypeMessage  = "message"
	TypeSchedule = "schedule"
	TypeComment  = "comment"
)

// Person is an account member.
type Person struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	EmailAddress string `json:"email_address"`
	Title        string `json:"title,omitempty"`
	Admin        bool   `json:"admin"`
}

// Project is a top-level container for todos, messages and documents.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"` // active | archived | trashed
}

// Todo is a single task inside a todo group.
type Todo struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Completed   bool    `json:"completed"`
	DueOn       string  `json:"due_on,omitempty"` // YYYY-MM-DD
	AssigneeIDs []int64 `json:"assignee_ids,omitempty"`
	CreatorID   int64   `json:"creator_id,omitempty"`
	ProjectID   int64   `json:"project_id"`
	Status      string  `json:"status,omitempty"` // active | archived | trashed
}

// TodoGroup is a named list of todos within a project.
type TodoGroup struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProjectID int64  `json:"project_id"`
	Todos     []Todo `json:"todos"`
}

// Card is a kanban card.
type Card struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Column      string  `json:"column,omitempty"`
	AssigneeIDs []int64 `json:"assignee_ids,omitempty"`
	ProjectID   int64   `json:"project_id"`
}

// Document is a rich-text document posted to a project.
type Document struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content,omitempty"`
	CreatorID int64  `json:"creator_id,omitempty"`
	ProjectID int64  `json:"project_id"`
}

// Message is a message-board post.
type Message struct {
	ID        int64  `json:"id"`
	Subject   string `json:"subject"`
	Content   string `json:"content,omitempty"`
	CreatorID int64  `json:"creator_id,omitempty"`
	ProjectID int64  `json:"project_id"`
}

// SearchResult is a loosely typed match returned by project search. The
// raw payload keeps whatever fields the upstream returned so that the
// enricher can resolve *_id references inside it.
type SearchResult struct {
	Type string                 `json:"type"` // todo | message | document | card | comment
	ID   int64                  `json:"id"`
	Raw  map[string]interface{} `json:"raw"`
}

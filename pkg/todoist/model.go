package todoist

import "time"

// Task is the external service's task resource.
type Task struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	IsCompleted bool      `json:"is_completed"`
	Priority    int       `json:"priority"` // 1 (lowest) .. 4 (highest)
	Due         *Due      `json:"due,omitempty"`
	ProjectID   string    `json:"project_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Due carries the external service's due representation. Date is always set
// ("2006-01-02"); Datetime is present only when the task has a time of day.
type Due struct {
	Date     string `json:"date"`
	Datetime string `json:"datetime,omitempty"`
}

// DueTime parses the due date. Datetime is preferred when present.
func (d *Due) DueTime() (time.Time, error) {
	if d.Datetime != "" {
		return time.Parse(time.RFC3339, d.Datetime)
	}
	return time.Parse("2006-01-02", d.Date)
}

// Project is the external service's project resource.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TaskParams is a partial task record for create and update calls. Zero
// fields are omitted from the request, so the server leaves them unchanged.
type TaskParams struct {
	Content     string `json:"content,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	DueDatetime string `json:"due_datetime,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	SectionID   string `json:"section_id,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
}

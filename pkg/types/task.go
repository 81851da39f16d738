package types

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Task statuses.
const (
	TaskOpen    TaskStatus = "open"
	TaskDone    TaskStatus = "done"
	TaskSnoozed TaskStatus = "snoozed"
)

// Valid reports whether s is a recognized status.
func (s TaskStatus) Valid() bool {
	return s == TaskOpen || s == TaskDone || s == TaskSnoozed
}

// Task is a follow-up item attached to a lead. It is deleted with its lead.
type Task struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	LeadID      string     `json:"leadId"`
	Title       string     `json:"title"`
	DueAt       Millis     `json:"dueAt"`
	DoneAt      *Millis    `json:"doneAt,omitempty"`
	Status      TaskStatus `json:"status"`
	SnoozeUntil *Millis    `json:"snoozeUntil,omitempty"`
}

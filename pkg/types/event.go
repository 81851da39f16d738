package types

// EventType classifies an activity event.
type EventType string

// Activity event types.
const (
	EventCreated         EventType = "CREATED"
	EventMovedStage      EventType = "MOVED_STAGE"
	EventNoteUpdated     EventType = "NOTE_UPDATED"
	EventPriorityChanged EventType = "PRIORITY_CHANGED"
	EventTaskCreated     EventType = "TASK_CREATED"
	EventTaskDone        EventType = "TASK_DONE"
)

// ActivityEvent is an append-only audit record about a lead. Events are
// never changed; they are removed only together with their lead.
type ActivityEvent struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	LeadID      string    `json:"leadId"`
	Type        EventType `json:"type"`
	FromStageID string    `json:"fromStageId,omitempty"`
	ToStageID   string    `json:"toStageId,omitempty"`
	At          Millis    `json:"at"`
	Day         int       `json:"day"` // yyyymmdd in local time
}

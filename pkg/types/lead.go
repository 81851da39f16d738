package types

import (
	"slices"
	"strings"
)

// Board identifies one of the independent outreach pipelines.
type Board string

// Boards.
const (
	BoardOutbound Board = "OUTBOUND"
	BoardSocial   Board = "SOCIAL"
)

// Boards lists every recognized board.
var Boards = []Board{BoardOutbound, BoardSocial}

// Valid reports whether b is a recognized board.
func (b Board) Valid() bool {
	return b == BoardOutbound || b == BoardSocial
}

// Priority of a lead.
type Priority string

// Priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a recognized priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// DefaultStage is the stage new leads enter when none is given.
const DefaultStage = "Leads novos"

// Lead is a profile handle tracked through a board's stages.
// (WorkspaceID, UsernameLower) identifies at most one lead.
type Lead struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`

	Board   Board  `json:"board"`
	StageID string `json:"stageId"`

	Username      string `json:"username"`
	UsernameLower string `json:"usernameLower"`

	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`

	Priority Priority `json:"priority"`
	Tags     []string `json:"tags"`
	Notes    string   `json:"notes"`

	CreatedAt      Millis  `json:"createdAt"`
	UpdatedAt      Millis  `json:"updatedAt"`
	LastTouchedAt  Millis  `json:"lastTouchedAt"`
	NextFollowUpAt *Millis `json:"nextFollowUpAt,omitempty"`
}

// NormalizeUsername trims the handle and strips one leading "@".
func NormalizeUsername(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "@")
	return strings.TrimSpace(s)
}

// UsernameKey returns the lowercase dedup key for a handle.
func UsernameKey(raw string) string {
	return strings.ToLower(NormalizeUsername(raw))
}

// NormalizeTags trims, drops empties and removes duplicates while keeping
// first-seen order, so a tag list behaves as a set.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

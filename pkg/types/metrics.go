package types

// DailyMetrics holds one day of outreach counters for a workspace board.
// Percentages are derived on read and never stored.
type DailyMetrics struct {
	ID          string `json:"id"` // MetricsID(WorkspaceID, Board, DateKey)
	WorkspaceID string `json:"workspaceId"`
	Board       Board  `json:"board"`
	DateKey     string `json:"dateKey"` // YYYY-MM-DD, local date

	// New approaches.
	Msg1Disparos  int `json:"msg1Disparos"`
	Msg1Respostas int `json:"msg1Respostas"`
	Msg2Disparos  int `json:"msg2Disparos"`
	Msg2Respostas int `json:"msg2Respostas"`

	CtaDisparos int `json:"ctaDisparos"`
	AgendNovos  int `json:"agendNovos"`

	// Follow-up.
	FollowEnviados  int `json:"followEnviados"`
	FollowRespostas int `json:"followRespostas"`
	FollowCta       int `json:"followCta"`
	AgendFollow     int `json:"agendFollow"`

	CreatedAt Millis  `json:"createdAt"`
	UpdatedAt Millis  `json:"updatedAt"`
	ClosedAt  *Millis `json:"closedAt,omitempty"`
}

// MetricsID returns the composite key of a metrics row.
func MetricsID(workspaceID string, board Board, dateKey string) string {
	return workspaceID + ":" + string(board) + ":" + dateKey
}

// IsClosed reports whether the day has been closed.
func (m *DailyMetrics) IsClosed() bool {
	return m.ClosedAt != nil
}

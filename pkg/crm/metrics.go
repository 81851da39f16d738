package crm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// DateKeyLayout is the layout of a metrics date key.
const DateKeyLayout = "2006-01-02"

var dateKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDateKey reports whether s has the YYYY-MM-DD shape.
func ValidDateKey(s string) bool {
	return dateKeyPattern.MatchString(s)
}

// TodayDateKey returns the date key of now in its own location.
func TodayDateKey(now time.Time) string {
	return now.Format(DateKeyLayout)
}

// WeekRange returns the seven date keys of the Monday-to-Sunday week that
// contains dateKey.
func WeekRange(dateKey string) ([]string, error) {
	if !ValidDateKey(dateKey) {
		return nil, types.Invalid("dateKey", fmt.Sprintf("%q is not YYYY-MM-DD", dateKey))
	}
	day, err := time.Parse(DateKeyLayout, dateKey)
	if err != nil {
		return nil, types.Invalid("dateKey", err.Error())
	}
	sinceMonday := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -sinceMonday)

	keys := make([]string, 7)
	for i := range keys {
		keys[i] = monday.AddDate(0, 0, i).Format(DateKeyLayout)
	}
	return keys, nil
}

// DayMetrics pairs a date key with its metrics row, nil when the day has no
// row.
type DayMetrics struct {
	DateKey string              `json:"dateKey"`
	Metrics *types.DailyMetrics `json:"metrics"`
}

// Metrics is the repository of daily outreach metrics. Closing a day is
// advisory: the repository records closedAt but does not refuse later
// writes to a closed day.
type Metrics struct {
	repo
}

// NewMetrics returns a Metrics repository over store.
func NewMetrics(store types.Store, opts ...Option) *Metrics {
	return &Metrics{repo: newRepo(store, opts)}
}

// Today returns the date key of the repository clock in its location.
func (m *Metrics) Today() string {
	return TodayDateKey(m.now().In(m.loc))
}

func validateMetricsKey(workspaceID string, board types.Board, dateKey string) error {
	if err := requireWorkspace(workspaceID); err != nil {
		return err
	}
	if !board.Valid() {
		return types.Invalid("board", "unknown board "+string(board))
	}
	if !ValidDateKey(dateKey) {
		return types.Invalid("dateKey", fmt.Sprintf("%q is not YYYY-MM-DD", dateKey))
	}
	return nil
}

// EmptyDailyMetrics returns a zeroed row for the day stamped with the
// current time. It is not stored.
func (m *Metrics) EmptyDailyMetrics(workspaceID string, board types.Board, dateKey string) types.DailyMetrics {
	now := m.nowMillis()
	return types.DailyMetrics{
		ID:          types.MetricsID(workspaceID, board, dateKey),
		WorkspaceID: workspaceID,
		Board:       board,
		DateKey:     dateKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// GetDailyMetrics returns the day's row or nil.
func (m *Metrics) GetDailyMetrics(ctx context.Context, workspaceID string, board types.Board, dateKey string) (*types.DailyMetrics, error) {
	if err := validateMetricsKey(workspaceID, board, dateKey); err != nil {
		return nil, err
	}
	var out *types.DailyMetrics
	err := m.store.View(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableDailyMetrics)
		if err != nil {
			return err
		}
		out, err = getMetrics(ctx, tbl, types.MetricsID(workspaceID, board, dateKey))
		return err
	})
	return out, err
}

func getMetrics(ctx context.Context, tbl types.Table, id string) (*types.DailyMetrics, error) {
	rec, err := tbl.Get(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var dm types.DailyMetrics
	if err := rec.Decode(&dm); err != nil {
		return nil, err
	}
	return &dm, nil
}

func putMetrics(ctx context.Context, tbl types.Table, dm types.DailyMetrics) error {
	rec, err := types.ToRecord(dm)
	if err != nil {
		return err
	}
	_, err = tbl.Put(ctx, rec)
	return err
}

// UpsertDailyMetrics stores the row. The createdAt of an existing row is
// kept, otherwise the incoming one, otherwise now; updatedAt is always
// set to now. The id is derived from workspace, board and date key.
func (m *Metrics) UpsertDailyMetrics(ctx context.Context, dm types.DailyMetrics) (*types.DailyMetrics, error) {
	if err := validateMetricsKey(dm.WorkspaceID, dm.Board, dm.DateKey); err != nil {
		return nil, err
	}
	dm.ID = types.MetricsID(dm.WorkspaceID, dm.Board, dm.DateKey)

	err := m.store.Update(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableDailyMetrics)
		if err != nil {
			return err
		}
		existing, err := getMetrics(ctx, tbl, dm.ID)
		if err != nil {
			return err
		}
		now := m.nowMillis()
		switch {
		case existing != nil && existing.CreatedAt != 0:
			dm.CreatedAt = existing.CreatedAt
		case dm.CreatedAt == 0:
			dm.CreatedAt = now
		}
		dm.UpdatedAt = now
		return putMetrics(ctx, tbl, dm)
	})
	if err != nil {
		return nil, err
	}
	return &dm, nil
}

// CloseDailyMetrics marks the day closed, creating an empty row first when
// none exists.
func (m *Metrics) CloseDailyMetrics(ctx context.Context, workspaceID string, board types.Board, dateKey string) (*types.DailyMetrics, error) {
	if err := validateMetricsKey(workspaceID, board, dateKey); err != nil {
		return nil, err
	}
	var out *types.DailyMetrics
	err := m.store.Update(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableDailyMetrics)
		if err != nil {
			return err
		}
		dm, err := getMetrics(ctx, tbl, types.MetricsID(workspaceID, board, dateKey))
		if err != nil {
			return err
		}
		if dm == nil {
			empty := m.EmptyDailyMetrics(workspaceID, board, dateKey)
			dm = &empty
		}
		now := m.nowMillis()
		dm.ClosedAt = now.Ptr()
		dm.UpdatedAt = now
		out = dm
		return putMetrics(ctx, tbl, *dm)
	})
	if err != nil {
		return nil, err
	}
	m.logger.Debug("closed day", "workspace", workspaceID, "board", board, "date", dateKey)
	return out, nil
}

// ReopenDailyMetrics clears closedAt. It returns nil when the day has no
// row.
func (m *Metrics) ReopenDailyMetrics(ctx context.Context, workspaceID string, board types.Board, dateKey string) (*types.DailyMetrics, error) {
	if err := validateMetricsKey(workspaceID, board, dateKey); err != nil {
		return nil, err
	}
	var out *types.DailyMetrics
	err := m.store.Update(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableDailyMetrics)
		if err != nil {
			return err
		}
		dm, err := getMetrics(ctx, tbl, types.MetricsID(workspaceID, board, dateKey))
		if err != nil || dm == nil {
			return err
		}
		dm.ClosedAt = nil
		dm.UpdatedAt = m.nowMillis()
		out = dm
		return putMetrics(ctx, tbl, *dm)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetWeekMetrics returns the seven days of the week containing dateKey,
// Monday first, each with its row or nil.
func (m *Metrics) GetWeekMetrics(ctx context.Context, workspaceID string, board types.Board, dateKey string) ([]DayMetrics, error) {
	if err := validateMetricsKey(workspaceID, board, dateKey); err != nil {
		return nil, err
	}
	keys, err := WeekRange(dateKey)
	if err != nil {
		return nil, err
	}
	week := make([]DayMetrics, len(keys))
	err = m.store.View(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableDailyMetrics)
		if err != nil {
			return err
		}
		for i, k := range keys {
			dm, err := getMetrics(ctx, tbl, types.MetricsID(workspaceID, board, k))
			if err != nil {
				return err
			}
			week[i] = DayMetrics{DateKey: k, Metrics: dm}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return week, nil
}

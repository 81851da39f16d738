package crm

import (
	"cmp"
	"context"
	"slices"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

const (
	idxEventsByDay      = "[workspaceId+type+day]"
	idxEventsByStageDay = "[workspaceId+type+toStageId+day]"
)

// Events reads the activity log. Events are written only by the other
// repositories.
type Events struct {
	repo
}

// NewEvents returns an Events reader over store.
func NewEvents(store types.Store, opts ...Option) *Events {
	return &Events{repo: newRepo(store, opts)}
}

// ListByLead returns the lead's events in chronological order.
func (e *Events) ListByLead(ctx context.Context, workspaceID, leadID string) ([]types.ActivityEvent, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	return e.list(ctx, idxByWorkspaceLeadID, workspaceID, leadID)
}

// ListStageEntries returns the MOVED_STAGE events into toStageID on the
// given yyyymmdd day.
func (e *Events) ListStageEntries(ctx context.Context, workspaceID, toStageID string, day int) ([]types.ActivityEvent, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	return e.list(ctx, idxEventsByStageDay, workspaceID, types.EventMovedStage, toStageID, day)
}

// CountByDay counts the events of one type on the given yyyymmdd day.
func (e *Events) CountByDay(ctx context.Context, workspaceID string, typ types.EventType, day int) (int, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return 0, err
	}
	events, err := e.list(ctx, idxEventsByDay, workspaceID, typ, day)
	return len(events), err
}

func (e *Events) list(ctx context.Context, index string, values ...any) ([]types.ActivityEvent, error) {
	var events []types.ActivityEvent
	err := e.store.View(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableEvents)
		if err != nil {
			return err
		}
		recs, err := tbl.Where(ctx, index, values...)
		if err != nil {
			return err
		}
		events, err = decodeAll[types.ActivityEvent](recs)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(events, func(a, b types.ActivityEvent) int {
		return cmp.Compare(a.At, b.At)
	})
	return events, nil
}

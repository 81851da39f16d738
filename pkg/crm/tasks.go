package crm

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

const idxTasksByStatus = "[workspaceId+status]"

var taskOptionalFields = []string{"doneAt", "snoozeUntil"}

// Tasks is the repository of follow-up tasks. A task always belongs to a
// lead and is removed with it.
type Tasks struct {
	repo
}

// NewTasks returns a Tasks repository over store.
func NewTasks(store types.Store, opts ...Option) *Tasks {
	return &Tasks{repo: newRepo(store, opts)}
}

// CreateTask adds an open task to the lead and records TASK_CREATED. It
// returns nil when the lead is absent or belongs to another workspace.
func (t *Tasks) CreateTask(ctx context.Context, workspaceID, leadID, title string, dueAt types.Millis) (*types.Task, error) {
	title = strings.TrimSpace(title)
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	if title == "" {
		return nil, types.Invalid("title", "required")
	}

	var created *types.Task
	err := t.store.Update(ctx, func(tx types.Tx) error {
		leads, err := tx.Table(types.TableLeads)
		if err != nil {
			return err
		}
		var lead types.Lead
		raw, err := getScoped(ctx, leads, workspaceID, leadID, &lead)
		if err != nil || raw == nil {
			return err
		}

		task := types.Task{
			ID:          newID(),
			WorkspaceID: workspaceID,
			LeadID:      leadID,
			Title:       title,
			DueAt:       dueAt,
			Status:      types.TaskOpen,
		}
		tasks, err := tx.Table(types.TableTasks)
		if err != nil {
			return err
		}
		rec, err := types.ToRecord(task)
		if err != nil {
			return err
		}
		if _, err := tasks.Add(ctx, rec); err != nil {
			return err
		}
		if err := appendEvents(ctx, tx, t.newEvent(workspaceID, leadID, types.EventTaskCreated, t.nowMillis())); err != nil {
			return err
		}
		created = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CompleteTask marks the task done and records TASK_DONE. Completing a task
// that is already done changes nothing. It returns nil when the task is
// absent or belongs to another workspace.
func (t *Tasks) CompleteTask(ctx context.Context, workspaceID, taskID string) (*types.Task, error) {
	return t.modify(ctx, workspaceID, taskID, func(task *types.Task, now types.Millis) (bool, []types.ActivityEvent, error) {
		if task.Status == types.TaskDone {
			return false, nil, nil
		}
		task.Status = types.TaskDone
		task.DoneAt = now.Ptr()
		task.SnoozeUntil = nil
		return true, []types.ActivityEvent{t.newEvent(workspaceID, task.LeadID, types.EventTaskDone, now)}, nil
	})
}

// SnoozeTask postpones an open task until the given time.
func (t *Tasks) SnoozeTask(ctx context.Context, workspaceID, taskID string, until types.Millis) (*types.Task, error) {
	return t.modify(ctx, workspaceID, taskID, func(task *types.Task, _ types.Millis) (bool, []types.ActivityEvent, error) {
		if task.Status == types.TaskDone {
			return false, nil, types.Invalid("status", "task is already done")
		}
		task.Status = types.TaskSnoozed
		task.SnoozeUntil = until.Ptr()
		return true, nil, nil
	})
}

// modify loads a task, lets fn change it and writes it back with the
// events fn returns.
func (t *Tasks) modify(ctx context.Context, workspaceID, taskID string,
	fn func(task *types.Task, now types.Millis) (bool, []types.ActivityEvent, error),
) (*types.Task, error) {
	var out *types.Task
	err := t.store.Update(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableTasks)
		if err != nil {
			return err
		}
		var task types.Task
		raw, err := getScoped(ctx, tbl, workspaceID, taskID, &task)
		if err != nil || raw == nil {
			return err
		}
		changed, events, err := fn(&task, t.nowMillis())
		if err != nil {
			return err
		}
		if changed {
			rec, err := overlay(raw, task, taskOptionalFields...)
			if err != nil {
				return err
			}
			if _, err := tbl.Put(ctx, rec); err != nil {
				return err
			}
			if err := appendEvents(ctx, tx, events...); err != nil {
				return err
			}
		}
		out = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListTasksByLead returns the tasks of a lead ordered by due date.
func (t *Tasks) ListTasksByLead(ctx context.Context, workspaceID, leadID string) ([]types.Task, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	return t.list(ctx, idxByWorkspaceLeadID, workspaceID, leadID)
}

// ListTasksByStatus returns the workspace's tasks in the given status
// ordered by due date.
func (t *Tasks) ListTasksByStatus(ctx context.Context, workspaceID string, status types.TaskStatus) ([]types.Task, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, types.Invalid("status", "unknown status "+string(status))
	}
	return t.list(ctx, idxTasksByStatus, workspaceID, status)
}

func (t *Tasks) list(ctx context.Context, index string, values ...any) ([]types.Task, error) {
	var tasks []types.Task
	err := t.store.View(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableTasks)
		if err != nil {
			return err
		}
		recs, err := tbl.Where(ctx, index, values...)
		if err != nil {
			return err
		}
		tasks, err = decodeAll[types.Task](recs)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(tasks, func(a, b types.Task) int {
		return cmp.Compare(a.DueAt, b.DueAt)
	})
	return tasks, nil
}

package crm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

func TestTasks_Lifecycle(t *testing.T) {
	store := newStore(t)
	l := NewLeads(store, testOptions()...)
	tasks := NewTasks(store, WithClock(stepClock(t0.Add(time.Hour))), WithLocation(time.UTC))
	ctx := context.Background()
	lead := addLead(t, l, "joana")

	task, err := tasks.CreateTask(ctx, ws, lead.ID, "  send proposal ", 5000)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "send proposal", task.Title)
	assert.Equal(t, types.TaskOpen, task.Status)

	snoozed, err := tasks.SnoozeTask(ctx, ws, task.ID, 9000)
	require.NoError(t, err)
	assert.Equal(t, types.TaskSnoozed, snoozed.Status)
	require.NotNil(t, snoozed.SnoozeUntil)
	assert.Equal(t, types.Millis(9000), *snoozed.SnoozeUntil)

	done, err := tasks.CompleteTask(ctx, ws, task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskDone, done.Status)
	assert.NotNil(t, done.DoneAt)
	assert.Nil(t, done.SnoozeUntil)

	// Completing twice records nothing new.
	_, err = tasks.CompleteTask(ctx, ws, task.ID)
	require.NoError(t, err)

	_, err = tasks.SnoozeTask(ctx, ws, task.ID, 10000)
	assert.ErrorIs(t, err, types.ErrValidation)

	list, err := NewEvents(store).ListByLead(ctx, ws, lead.ID)
	require.NoError(t, err)
	var typesSeen []types.EventType
	for _, ev := range list {
		typesSeen = append(typesSeen, ev.Type)
	}
	assert.Equal(t, []types.EventType{types.EventCreated, types.EventTaskCreated, types.EventTaskDone}, typesSeen)
}

func TestTasks_RequireLeadInWorkspace(t *testing.T) {
	store := newStore(t)
	l := NewLeads(store)
	tasks := NewTasks(store)
	ctx := context.Background()
	lead := addLead(t, l, "x")

	got, err := tasks.CreateTask(ctx, "other", lead.ID, "t", 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = tasks.CreateTask(ctx, ws, "missing", "t", 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = tasks.CreateTask(ctx, ws, lead.ID, "  ", 0)
	assert.ErrorIs(t, err, types.ErrValidation)

	task, err := tasks.CreateTask(ctx, ws, lead.ID, "t", 0)
	require.NoError(t, err)
	got, err = tasks.CompleteTask(ctx, "other", task.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTasks_ListByStatusOrderedByDue(t *testing.T) {
	store := newStore(t)
	l := NewLeads(store)
	tasks := NewTasks(store)
	ctx := context.Background()
	lead := addLead(t, l, "x")

	late, err := tasks.CreateTask(ctx, ws, lead.ID, "late", 300)
	require.NoError(t, err)
	early, err := tasks.CreateTask(ctx, ws, lead.ID, "early", 100)
	require.NoError(t, err)
	finished, err := tasks.CreateTask(ctx, ws, lead.ID, "finished", 200)
	require.NoError(t, err)
	_, err = tasks.CompleteTask(ctx, ws, finished.ID)
	require.NoError(t, err)

	open, err := tasks.ListTasksByStatus(ctx, ws, types.TaskOpen)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, early.ID, open[0].ID)
	assert.Equal(t, late.ID, open[1].ID)

	doneList, err := tasks.ListTasksByStatus(ctx, ws, types.TaskDone)
	require.NoError(t, err)
	require.Len(t, doneList, 1)
	assert.Equal(t, finished.ID, doneList[0].ID)

	_, err = tasks.ListTasksByStatus(ctx, ws, "archived")
	assert.ErrorIs(t, err, types.ErrValidation)
}

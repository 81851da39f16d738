package crm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

func TestWeekRange(t *testing.T) {
	tests := []struct {
		dateKey string
		monday  string
		sunday  string
	}{
		{"2024-06-10", "2024-06-10", "2024-06-16"}, // Monday
		{"2024-06-16", "2024-06-10", "2024-06-16"}, // Sunday
		{"2024-06-13", "2024-06-10", "2024-06-16"},
		{"2024-03-01", "2024-02-26", "2024-03-03"}, // leap year
		{"2025-01-01", "2024-12-30", "2025-01-05"},
	}
	for _, tt := range tests {
		t.Run(tt.dateKey, func(t *testing.T) {
			keys, err := WeekRange(tt.dateKey)
			require.NoError(t, err)
			require.Len(t, keys, 7)
			assert.Equal(t, tt.monday, keys[0])
			assert.Equal(t, tt.sunday, keys[6])
			assert.Contains(t, keys, tt.dateKey)
		})
	}

	_, err := WeekRange("2024-6-1")
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = WeekRange("2024-13-01")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestDateKeys(t *testing.T) {
	assert.True(t, ValidDateKey("2024-06-10"))
	assert.False(t, ValidDateKey("2024/06/10"))
	assert.False(t, ValidDateKey(""))
	assert.Equal(t, "2024-06-10", TodayDateKey(t0))
}

func TestMetrics_UpsertKeepsCreatedAt(t *testing.T) {
	m := NewMetrics(newStore(t), testOptions()...)
	ctx := context.Background()

	row := m.EmptyDailyMetrics(ws, types.BoardOutbound, "2024-06-10")
	row.Msg1Disparos = 10
	first, err := m.UpsertDailyMetrics(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, "w1:OUTBOUND:2024-06-10", first.ID)

	row.Msg1Disparos = 12
	row.CreatedAt = 1
	second, err := m.UpsertDailyMetrics(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Greater(t, second.UpdatedAt, first.UpdatedAt)

	got, err := m.GetDailyMetrics(ctx, ws, types.BoardOutbound, "2024-06-10")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 12, got.Msg1Disparos)

	missing, err := m.GetDailyMetrics(ctx, ws, types.BoardSocial, "2024-06-10")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = m.UpsertDailyMetrics(ctx, types.DailyMetrics{WorkspaceID: ws, Board: types.BoardOutbound, DateKey: "today"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestMetrics_CloseAndReopen(t *testing.T) {
	m := NewMetrics(newStore(t), testOptions()...)
	ctx := context.Background()

	reopened, err := m.ReopenDailyMetrics(ctx, ws, types.BoardSocial, "2024-06-11")
	require.NoError(t, err)
	assert.Nil(t, reopened, "reopening a missing day returns nil")

	closed, err := m.CloseDailyMetrics(ctx, ws, types.BoardSocial, "2024-06-11")
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.True(t, closed.IsClosed())
	assert.Zero(t, closed.Msg1Disparos)

	// Closing is advisory; counters can still be written.
	edit := *closed
	edit.AgendNovos = 2
	stored, err := m.UpsertDailyMetrics(ctx, edit)
	require.NoError(t, err)
	assert.True(t, stored.IsClosed())

	reopened, err = m.ReopenDailyMetrics(ctx, ws, types.BoardSocial, "2024-06-11")
	require.NoError(t, err)
	require.NotNil(t, reopened)
	assert.False(t, reopened.IsClosed())
	assert.Equal(t, 2, reopened.AgendNovos)

	got, err := m.GetDailyMetrics(ctx, ws, types.BoardSocial, "2024-06-11")
	require.NoError(t, err)
	assert.Nil(t, got.ClosedAt)
}

func TestMetrics_GetWeekMetrics(t *testing.T) {
	m := NewMetrics(newStore(t), testOptions()...)
	ctx := context.Background()

	for _, day := range []string{"2024-06-11", "2024-06-14", "2024-06-17"} {
		_, err := m.UpsertDailyMetrics(ctx, m.EmptyDailyMetrics(ws, types.BoardOutbound, day))
		require.NoError(t, err)
	}

	week, err := m.GetWeekMetrics(ctx, ws, types.BoardOutbound, "2024-06-12")
	require.NoError(t, err)
	require.Len(t, week, 7)
	assert.Equal(t, "2024-06-10", week[0].DateKey)
	assert.Nil(t, week[0].Metrics)
	require.NotNil(t, week[1].Metrics)
	assert.Equal(t, "2024-06-11", week[1].Metrics.DateKey)
	assert.NotNil(t, week[4].Metrics)
	assert.Nil(t, week[6].Metrics, "next Monday's row is outside the week")
}

func TestMetrics_TodayUsesLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	m := NewMetrics(newStore(t), WithClock(func() time.Time {
		return time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC)
	}), WithLocation(loc))
	assert.Equal(t, "2024-06-09", m.Today())
}

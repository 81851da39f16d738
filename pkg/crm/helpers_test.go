package crm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ignis/pkg/sqlite"
	"github.com/mesh-intelligence/ignis/pkg/types"
)

const ws = "w1"

// newStore attaches a store in a temp dir for the duration of the test.
func newStore(t *testing.T) types.Store {
	t.Helper()
	store := sqlite.NewBackend(nil)
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { store.Detach() })
	return store
}

// stepClock returns a clock that starts at start and advances one second
// on every call.
func stepClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

var t0 = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

// testOptions pins clock and zone.
func testOptions() []Option {
	return []Option{WithClock(stepClock(t0)), WithLocation(time.UTC)}
}

// Tests for the SQLite backend lifecycle and schema migrations.
package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// newAttachedBackend attaches a backend to an isolated temp directory and
// detaches it when the test ends.
func newAttachedBackend(t *testing.T, opts ...Option) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b := NewBackend(opts...)
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { b.Detach() })
	return b, dir
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: tmpDir,
	}

	err := b.Attach(config)
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	// Verify database file created
	dbPath := filepath.Join(tmpDir, types.DefaultDBName+".db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("%s not created", dbPath)
	}

	// Verify double attach fails
	err = b.Attach(config)
	if err != types.ErrAlreadyAttached {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}

	b.Detach()
}

func TestBackend_AttachUsesDBName(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: tmpDir, DBName: "profile-2"}))
	defer b.Detach()

	assert.Equal(t, "profile-2", b.Name())
	assert.FileExists(t, filepath.Join(tmpDir, "profile-2.db"))
}

func TestBackend_AttachRejectsInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: "postgres", DataDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)

	err = b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir(), DBName: "a/b"})
	assert.ErrorIs(t, err, types.ErrDBNameInvalid)
}

func TestBackend_Detach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: tmpDir}))

	require.NoError(t, b.Detach())
	// Verify idempotent
	require.NoError(t, b.Detach())

	// Verify operations fail after detach
	err := b.View(context.Background(), func(tx types.Tx) error { return nil })
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	err = b.Update(context.Background(), func(tx types.Tx) error { return nil })
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestBackend_SchemaListsAllTables(t *testing.T) {
	b, _ := newAttachedBackend(t)

	var names []string
	for _, s := range b.Schema() {
		names = append(names, s.Name)
		assert.Equal(t, "id", s.PrimaryKey)
		assert.False(t, s.Auto)
	}
	assert.Equal(t, types.StandardTableNames, names)
}

func TestBackend_TableNotFound(t *testing.T) {
	b, _ := newAttachedBackend(t)

	err := b.View(context.Background(), func(tx types.Tx) error {
		_, err := tx.Table("unknown")
		return err
	})
	assert.ErrorIs(t, err, types.ErrTableNotFound)
}

func TestBackend_DataSurvivesReattach(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(cfg))
	require.NoError(t, b.Update(ctx, func(tx types.Tx) error {
		leads, err := tx.Table(types.TableLeads)
		if err != nil {
			return err
		}
		_, err = leads.Add(ctx, types.Record{"id": "l1", "workspaceId": "w", "username": "john"})
		return err
	}))
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(cfg))
	defer b2.Detach()

	require.NoError(t, b2.View(ctx, func(tx types.Tx) error {
		leads, err := tx.Table(types.TableLeads)
		if err != nil {
			return err
		}
		rec, err := leads.Get(ctx, "l1")
		if err != nil {
			return err
		}
		assert.Equal(t, "john", rec["username"])
		return nil
	}))
}

func TestBackend_MigrationPreservesRows(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	// Open at version 1: no dailyMetrics table yet.
	v1 := NewBackend(withMigrations(migrations[:1]))
	require.NoError(t, v1.Attach(cfg))
	require.Len(t, v1.Schema(), 3)
	require.NoError(t, v1.Update(ctx, func(tx types.Tx) error {
		leads, _ := tx.Table(types.TableLeads)
		events, _ := tx.Table(types.TableEvents)
		if _, err := leads.Add(ctx, types.Record{"id": "l1", "workspaceId": "w", "usernameLower": "ana"}); err != nil {
			return err
		}
		_, err := events.Add(ctx, types.Record{"id": "e1", "workspaceId": "w", "leadId": "l1", "type": "CREATED"})
		return err
	}))
	err := v1.View(ctx, func(tx types.Tx) error {
		_, err := tx.Table(types.TableDailyMetrics)
		return err
	})
	require.ErrorIs(t, err, types.ErrTableNotFound)
	require.NoError(t, v1.Detach())

	// Reopen with the full migration list.
	v2 := NewBackend()
	require.NoError(t, v2.Attach(cfg))
	defer v2.Detach()
	require.Len(t, v2.Schema(), 4)

	require.NoError(t, v2.View(ctx, func(tx types.Tx) error {
		leads, _ := tx.Table(types.TableLeads)
		recs, err := leads.Where(ctx, "[workspaceId+usernameLower]", "w", "ana")
		require.NoError(t, err)
		require.Len(t, recs, 1)

		events, _ := tx.Table(types.TableEvents)
		n, err := events.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		metrics, err := tx.Table(types.TableDailyMetrics)
		require.NoError(t, err)
		n, err = metrics.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		return nil
	}))
}

func TestBackend_RefusesNewerDatabase(t *testing.T) {
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(cfg))
	require.NoError(t, b.Detach())

	old := NewBackend(withMigrations(migrations[:1]))
	err := old.Attach(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestMigrationDDL_RejectsRemovals(t *testing.T) {
	_, err := migrationDDL([]types.TableSchema{leadsSchema, tasksSchema}, []types.TableSchema{leadsSchema})
	assert.Error(t, err)

	trimmed := leadsSchema
	trimmed.Indexes = leadsSchema.Indexes[:2]
	_, err = migrationDDL([]types.TableSchema{leadsSchema}, []types.TableSchema{trimmed})
	assert.Error(t, err)
}

func TestMigrationDDL_AddsIndexToExistingTable(t *testing.T) {
	grown := tasksSchema
	grown.Indexes = append(append([]types.IndexSchema{}, tasksSchema.Indexes...), types.NewIndex("workspaceId", "title"))

	stmts, err := migrationDDL([]types.TableSchema{tasksSchema}, []types.TableSchema{grown})
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], `ADD COLUMN "f_title"`)
	assert.Contains(t, stmts[1], `CREATE INDEX "idx_tasks_workspaceId_title"`)
}

func TestBackend_UpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	b, _ := newAttachedBackend(t)
	boom := errors.New("boom")

	err := b.Update(ctx, func(tx types.Tx) error {
		leads, _ := tx.Table(types.TableLeads)
		events, _ := tx.Table(types.TableEvents)
		if _, err := leads.Add(ctx, types.Record{"id": "l1", "workspaceId": "w"}); err != nil {
			return err
		}
		if _, err := events.Add(ctx, types.Record{"id": "e1", "workspaceId": "w", "leadId": "l1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, b.View(ctx, func(tx types.Tx) error {
		for _, name := range []string{types.TableLeads, types.TableEvents} {
			tbl, _ := tx.Table(name)
			n, err := tbl.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n, name)
		}
		return nil
	}))
}

func TestBackend_UpdateRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	b, _ := newAttachedBackend(t)

	assert.Panics(t, func() {
		_ = b.Update(ctx, func(tx types.Tx) error {
			leads, _ := tx.Table(types.TableLeads)
			_, _ = leads.Add(ctx, types.Record{"id": "l1"})
			panic("boom")
		})
	})

	require.NoError(t, b.View(ctx, func(tx types.Tx) error {
		leads, _ := tx.Table(types.TableLeads)
		n, err := leads.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	}))
}

func TestBackend_ViewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	b, _ := newAttachedBackend(t)

	err := b.View(ctx, func(tx types.Tx) error {
		leads, _ := tx.Table(types.TableLeads)
		_, err := leads.Put(ctx, types.Record{"id": "l1"})
		return err
	})
	assert.ErrorIs(t, err, types.ErrReadOnly)
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// Compile-time interface check.
var _ types.Store = (*Backend)(nil)

// Backend implements types.Store on a single SQLite file per profile.
//
// Writers are serialized by mu and by a one-connection pool, so one Update
// runs to completion before the next begins and readers never observe a
// partially applied multi-table change.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	path     string
	logger   *slog.Logger

	migrations []migration
	schema     []types.TableSchema
	byName     map[string]types.TableSchema
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for lifecycle and migration messages.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// withMigrations replaces the migration list. Tests use it to open a
// database at an older schema version.
func withMigrations(ms []migration) Option {
	return func(b *Backend) { b.migrations = ms }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		migrations: migrations,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens or creates <DataDir>/<DBName>.db, applies pending migrations
// and makes the tables available.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	path := filepath.Join(dataDir, config.EffectiveDBName()+".db")
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection: SQLite allows a single writer and this keeps every
	// transaction strictly ordered.
	db.SetMaxOpenConns(1)

	schema, err := b.migrate(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("migrating %s: %w", path, err)
	}

	b.db = db
	b.path = path
	b.config = config
	b.schema = schema
	b.byName = make(map[string]types.TableSchema, len(schema))
	for _, s := range schema {
		b.byName[s.Name] = s
	}
	b.attached = true
	b.logger.Debug("store attached", "path", path, "tables", len(schema))
	return nil
}

// Detach releases all resources held by the backend. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	b.byName = nil
	b.logger.Debug("store detached", "path", b.path)
	return nil
}

// Name returns the database name.
func (b *Backend) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.EffectiveDBName()
}

// Path returns the database file path of the attached store.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Schema returns the table schemas of the attached database.
func (b *Backend) Schema() []types.TableSchema {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]types.TableSchema, len(b.schema))
	copy(out, b.schema)
	return out
}

// View runs fn in a read-only transaction.
func (b *Backend) View(ctx context.Context, fn func(tx types.Tx) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.run(ctx, false, fn)
}

// Update runs fn in a read-write transaction. The transaction commits only
// if fn returns nil; otherwise every write is rolled back.
func (b *Backend) Update(ctx context.Context, fn func(tx types.Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run(ctx, true, fn)
}

// run executes fn inside a transaction. The caller must hold b.mu.
func (b *Backend) run(ctx context.Context, writable bool, fn func(tx types.Tx) error) error {
	if !b.attached {
		return types.ErrStoreDetached
	}
	sqlTx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txScope{backend: b, tx: sqlTx, writable: writable}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// migrate brings db to the newest version in b.migrations and returns the
// resulting schema. Each version is applied in its own transaction together
// with the user_version bump.
func (b *Backend) migrate(db *sql.DB) ([]types.TableSchema, error) {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return nil, fmt.Errorf("reading schema version: %w", err)
	}
	if len(b.migrations) == 0 {
		return nil, fmt.Errorf("no migrations defined")
	}
	latest := b.migrations[len(b.migrations)-1]
	if current > latest.version {
		return nil, fmt.Errorf("database version %d is newer than supported version %d", current, latest.version)
	}

	var prev []types.TableSchema
	for _, m := range b.migrations {
		if m.version <= current {
			prev = m.tables
			continue
		}
		stmts, err := migrationDDL(prev, m.tables)
		if err != nil {
			return nil, fmt.Errorf("version %d: %w", m.version, err)
		}
		if err := applyMigration(db, m.version, stmts); err != nil {
			return nil, fmt.Errorf("version %d: %w", m.version, err)
		}
		b.logger.Info("applied migration", "version", m.version, "statements", len(stmts))
		prev = m.tables
	}
	return latest.tables, nil
}

func applyMigration(db *sql.DB, version int, stmts []string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}
	return tx.Commit()
}

// generateUUID generates a new UUID v7 for row keys.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

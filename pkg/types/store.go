package types

import (
	"context"
	"errors"
)

// Store is the local transactional database holding every CRM table.
// Callers attach to a backend, run work inside View or Update, and detach
// when done. There is one Store per profile; it is shared by every caller
// in the process.
type Store interface {
	// Attach opens (creating if needed) the database described by config
	// and applies pending migrations. Returns ErrAlreadyAttached if called
	// while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, View and Update return ErrStoreDetached.
	Detach() error

	// Name returns the database name.
	Name() string

	// Schema describes every table of the current schema version, in a
	// stable order.
	Schema() []TableSchema

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn in a read-write transaction. Either every write made
	// through tx commits or, if fn returns an error, none does.
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is a transaction scope spanning all tables.
type Tx interface {
	// Table returns the table with the given name.
	// Returns ErrTableNotFound if the name is not part of the schema.
	Table(name string) (Table, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrTableNotFound   = errors.New("table not found")
	ErrReadOnly        = errors.New("write in read-only transaction")
)

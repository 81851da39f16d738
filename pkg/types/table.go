package types

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Table provides raw document access to a single table. Rows are exchanged
// as Records so that callers which do not know the entity type (the backup
// engine) see every stored field, including ones this version does not
// model.
type Table interface {
	// Schema describes the table's primary key and indexes.
	Schema() TableSchema

	// Get returns the row stored under key.
	// Returns ErrNotFound if no row exists with that key.
	Get(ctx context.Context, key string) (Record, error)

	// Put inserts or replaces the row identified by its primary-key field.
	// When the key field is absent a new UUID v7 is generated.
	// Returns the key used.
	Put(ctx context.Context, rec Record) (string, error)

	// Add inserts the row. When the key field is absent a new UUID v7 is
	// generated. Returns ErrKeyExists if a row with the key already exists.
	Add(ctx context.Context, rec Record) (string, error)

	// BulkPut applies Put to every record in order.
	BulkPut(ctx context.Context, recs []Record) error

	// BulkAdd applies Add to every record in order.
	BulkAdd(ctx context.Context, recs []Record) error

	// Delete removes the row stored under key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every row.
	Clear(ctx context.Context) error

	// All returns every row ordered by primary key.
	All(ctx context.Context) ([]Record, error)

	// Count returns the number of rows.
	Count(ctx context.Context) (int, error)

	// Where returns the rows whose index fields equal values. values may
	// cover a leading prefix of a compound index, which makes Where a range
	// scan over the remaining fields.
	// Returns ErrIndexNotFound for an unknown index name.
	Where(ctx context.Context, index string, values ...any) ([]Record, error)

	// DeleteWhere removes the rows Where would return and reports how many
	// were removed.
	DeleteWhere(ctx context.Context, index string, values ...any) (int, error)
}

// Table operation errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidKey    = errors.New("invalid primary key")
	ErrKeyExists     = errors.New("key already exists")
	ErrInvalidData   = errors.New("invalid entity data")
	ErrIndexNotFound = errors.New("index not found")
	ErrInvalidFilter = errors.New("invalid filter value")
)

// KeyPath names the field, or ordered fields, a key or index is built on.
// It encodes to JSON as a string for a single field and as an array for a
// compound key, the shape used by backup envelopes.
type KeyPath []string

// MarshalJSON implements json.Marshaler.
func (k KeyPath) MarshalJSON() ([]byte, error) {
	if len(k) == 1 {
		return json.Marshal(k[0])
	}
	return json.Marshal([]string(k))
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *KeyPath) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*k = KeyPath{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*k = KeyPath(many)
	return nil
}

// Compound reports whether the key path spans more than one field.
func (k KeyPath) Compound() bool { return len(k) > 1 }

// IndexSchema describes a secondary index.
type IndexSchema struct {
	Name    string  `json:"name"`
	KeyPath KeyPath `json:"keyPath"`
}

// NewIndex builds an IndexSchema named after its fields: a single field
// keeps its own name, a compound index is named "[a+b+c]".
func NewIndex(fields ...string) IndexSchema {
	name := fields[0]
	if len(fields) > 1 {
		name = "[" + strings.Join(fields, "+") + "]"
	}
	return IndexSchema{Name: name, KeyPath: KeyPath(fields)}
}

// TableSchema describes a table: its primary-key field, whether keys are
// assigned by the store, and its indexes.
type TableSchema struct {
	Name       string        `json:"name"`
	PrimaryKey string        `json:"primaryKey"`
	Auto       bool          `json:"auto"`
	Indexes    []IndexSchema `json:"indexes"`
}

// Index returns the index with the given name.
func (s TableSchema) Index(name string) (IndexSchema, bool) {
	for _, idx := range s.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexSchema{}, false
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// Compile-time interface checks.
var (
	_ types.Tx    = (*txScope)(nil)
	_ types.Table = (*docTable)(nil)
)

// txScope is the types.Tx handed to View and Update callbacks.
type txScope struct {
	backend  *Backend
	tx       *sql.Tx
	writable bool
}

// Table returns the accessor for name bound to this transaction.
func (s *txScope) Table(name string) (types.Table, error) {
	schema, ok := s.backend.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrTableNotFound, name)
	}
	return &docTable{schema: schema, scope: s}, nil
}

// docTable implements types.Table over one SQLite table of JSON documents.
type docTable struct {
	schema types.TableSchema
	scope  *txScope
}

func (t *docTable) Schema() types.TableSchema { return t.schema }

func (t *docTable) table() string { return quoteIdent(t.schema.Name) }

func (t *docTable) checkWritable() error {
	if !t.scope.writable {
		return types.ErrReadOnly
	}
	return nil
}

// Get retrieves the row stored under key.
func (t *docTable) Get(ctx context.Context, key string) (types.Record, error) {
	if key == "" {
		return nil, types.ErrInvalidKey
	}
	var doc string
	err := t.scope.tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", docColumn, t.table(), keyColumn), key,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s %s: %w", t.schema.Name, key, err)
	}
	return types.DecodeRecord([]byte(doc))
}

// prepare copies rec and makes sure it carries a primary key, generating a
// UUID v7 when it does not.
func (t *docTable) prepare(rec types.Record) (types.Record, string, []byte, error) {
	if rec == nil {
		return nil, "", nil, types.ErrInvalidData
	}
	out := rec.Clone()
	key := out.Key(t.schema.PrimaryKey)
	if key == "" {
		key = generateUUID()
		out[t.schema.PrimaryKey] = key
	}
	doc, err := json.Marshal(out)
	if err != nil {
		return nil, "", nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	return out, key, doc, nil
}

// Put inserts or replaces the row identified by its primary key.
func (t *docTable) Put(ctx context.Context, rec types.Record) (string, error) {
	if err := t.checkWritable(); err != nil {
		return "", err
	}
	_, key, doc, err := t.prepare(rec)
	if err != nil {
		return "", err
	}
	_, err = t.scope.tx.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT(%s) DO UPDATE SET %s = excluded.%s",
		t.table(), keyColumn, docColumn, keyColumn, docColumn, docColumn), key, string(doc))
	if err != nil {
		return "", fmt.Errorf("putting %s %s: %w", t.schema.Name, key, err)
	}
	return key, nil
}

// Add inserts the row; it fails with ErrKeyExists on a duplicate key.
func (t *docTable) Add(ctx context.Context, rec types.Record) (string, error) {
	if err := t.checkWritable(); err != nil {
		return "", err
	}
	_, key, doc, err := t.prepare(rec)
	if err != nil {
		return "", err
	}
	var exists int
	err = t.scope.tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", t.table(), keyColumn), key,
	).Scan(&exists)
	if err == nil {
		return "", fmt.Errorf("adding %s %s: %w", t.schema.Name, key, types.ErrKeyExists)
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("checking %s existence: %w", t.schema.Name, err)
	}
	if _, err := t.scope.tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", t.table(), keyColumn, docColumn),
		key, string(doc)); err != nil {
		return "", fmt.Errorf("adding %s %s: %w", t.schema.Name, key, err)
	}
	return key, nil
}

// BulkPut applies Put to every record in order.
func (t *docTable) BulkPut(ctx context.Context, recs []types.Record) error {
	for _, rec := range recs {
		if _, err := t.Put(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// BulkAdd applies Add to every record in order.
func (t *docTable) BulkAdd(ctx context.Context, recs []types.Record) error {
	for _, rec := range recs {
		if _, err := t.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the row stored under key.
func (t *docTable) Delete(ctx context.Context, key string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if key == "" {
		return types.ErrInvalidKey
	}
	if _, err := t.scope.tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.table(), keyColumn), key); err != nil {
		return fmt.Errorf("deleting %s %s: %w", t.schema.Name, key, err)
	}
	return nil
}

// Clear removes every row.
func (t *docTable) Clear(ctx context.Context) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if _, err := t.scope.tx.ExecContext(ctx, "DELETE FROM "+t.table()); err != nil {
		return fmt.Errorf("clearing %s: %w", t.schema.Name, err)
	}
	return nil
}

// All returns every row ordered by primary key.
func (t *docTable) All(ctx context.Context) ([]types.Record, error) {
	return t.query(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", docColumn, t.table(), keyColumn))
}

// Count returns the number of rows.
func (t *docTable) Count(ctx context.Context) (int, error) {
	var n int
	if err := t.scope.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table()).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", t.schema.Name, err)
	}
	return n, nil
}

// Where returns the rows whose leading index fields equal values.
func (t *docTable) Where(ctx context.Context, index string, values ...any) ([]types.Record, error) {
	cond, args, err := t.whereClause(index, values)
	if err != nil {
		return nil, err
	}
	return t.query(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		docColumn, t.table(), cond, keyColumn), args...)
}

// DeleteWhere removes the rows Where would return.
func (t *docTable) DeleteWhere(ctx context.Context, index string, values ...any) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	cond, args, err := t.whereClause(index, values)
	if err != nil {
		return 0, err
	}
	res, err := t.scope.tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", t.table(), cond), args...)
	if err != nil {
		return 0, fmt.Errorf("deleting from %s by %s: %w", t.schema.Name, index, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting from %s by %s: %w", t.schema.Name, index, err)
	}
	return int(n), nil
}

// whereClause builds an equality condition over the first len(values)
// fields of the named index. A nil value matches a missing or null field.
func (t *docTable) whereClause(index string, values []any) (string, []any, error) {
	idx, ok := t.schema.Index(index)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s.%s", types.ErrIndexNotFound, t.schema.Name, index)
	}
	if len(values) == 0 || len(values) > len(idx.KeyPath) {
		return "", nil, fmt.Errorf("%w: index %s takes 1..%d values, got %d",
			types.ErrInvalidFilter, index, len(idx.KeyPath), len(values))
	}
	conds := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for i, v := range values {
		arg, err := sqlArg(v)
		if err != nil {
			return "", nil, err
		}
		col := fieldColumn(idx.KeyPath[i])
		if arg == nil {
			conds = append(conds, col+" IS NULL")
			continue
		}
		conds = append(conds, col+" = ?")
		args = append(args, arg)
	}
	return strings.Join(conds, " AND "), args, nil
}

func (t *docTable) query(ctx context.Context, query string, args ...any) ([]types.Record, error) {
	rows, err := t.scope.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.schema.Name, err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.schema.Name, err)
		}
		rec, err := types.DecodeRecord([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("%s row: %w", t.schema.Name, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// sqlArg converts a filter value into a driver value comparable with the
// result of json_extract: strings to TEXT, integers to INTEGER, floats to
// REAL and booleans to 0/1 as SQLite's JSON functions return them.
func sqlArg(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidFilter, err)
		}
		return f, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Bool:
		if rv.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return sqlArg(rv.Elem().Interface())
	default:
		return nil, fmt.Errorf("%w: %T", types.ErrInvalidFilter, v)
	}
}

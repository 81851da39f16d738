// Package sqlite implements the embedded SQLite store for the CRM tables.
// Each table keeps whole JSON documents keyed by primary key; every index
// field is exposed as a virtual generated column so compound lookups run on
// real SQLite indexes.
package sqlite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// Table schemas of the current version.
var (
	leadsSchema = types.TableSchema{
		Name:       types.TableLeads,
		PrimaryKey: "id",
		Indexes: []types.IndexSchema{
			types.NewIndex("workspaceId"),
			types.NewIndex("workspaceId", "usernameLower"),
			types.NewIndex("workspaceId", "board", "stageId"),
			types.NewIndex("workspaceId", "nextFollowUpAt"),
			types.NewIndex("createdAt"),
			types.NewIndex("updatedAt"),
		},
	}

	tasksSchema = types.TableSchema{
		Name:       types.TableTasks,
		PrimaryKey: "id",
		Indexes: []types.IndexSchema{
			types.NewIndex("workspaceId"),
			types.NewIndex("workspaceId", "status"),
			types.NewIndex("workspaceId", "dueAt"),
			types.NewIndex("workspaceId", "leadId"),
		},
	}

	eventsSchema = types.TableSchema{
		Name:       types.TableEvents,
		PrimaryKey: "id",
		Indexes: []types.IndexSchema{
			types.NewIndex("workspaceId"),
			types.NewIndex("workspaceId", "type", "day"),
			types.NewIndex("workspaceId", "type", "toStageId", "day"),
			types.NewIndex("workspaceId", "leadId"),
			types.NewIndex("at"),
		},
	}

	dailyMetricsSchema = types.TableSchema{
		Name:       types.TableDailyMetrics,
		PrimaryKey: "id",
		Indexes: []types.IndexSchema{
			types.NewIndex("workspaceId"),
			types.NewIndex("workspaceId", "board", "dateKey"),
			types.NewIndex("workspaceId", "dateKey"),
			types.NewIndex("workspaceId", "board", "closedAt"),
			types.NewIndex("dateKey"),
			types.NewIndex("updatedAt"),
			types.NewIndex("closedAt"),
		},
	}
)

// migration is one schema version. tables lists every table of that
// version, so each step is a full description and upgrades are computed as
// the difference from the previous step.
type migration struct {
	version int
	tables  []types.TableSchema
}

// migrations are applied in order. They are additive only: a version may add
// tables and indexes but never remove them.
var migrations = []migration{
	{version: 1, tables: []types.TableSchema{leadsSchema, tasksSchema, eventsSchema}},
	{version: 2, tables: []types.TableSchema{leadsSchema, tasksSchema, eventsSchema, dailyMetricsSchema}},
}

var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Storage column names. Field columns are prefixed so document fields never
// collide with them.
const (
	keyColumn = "pk"
	docColumn = "doc"
)

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func fieldColumn(field string) string {
	return quoteIdent("f_" + field)
}

func indexName(table string, idx types.IndexSchema) string {
	return quoteIdent("idx_" + table + "_" + strings.Join(idx.KeyPath, "_"))
}

// validateSchema rejects names that cannot be embedded in DDL or JSON paths.
func validateSchema(s types.TableSchema) error {
	if !fieldNameRe.MatchString(s.Name) {
		return fmt.Errorf("table name %q: %w", s.Name, types.ErrInvalidData)
	}
	if !fieldNameRe.MatchString(s.PrimaryKey) {
		return fmt.Errorf("table %s primary key %q: %w", s.Name, s.PrimaryKey, types.ErrInvalidData)
	}
	for _, idx := range s.Indexes {
		if len(idx.KeyPath) == 0 {
			return fmt.Errorf("table %s index %q has no fields: %w", s.Name, idx.Name, types.ErrInvalidData)
		}
		for _, f := range idx.KeyPath {
			if !fieldNameRe.MatchString(f) {
				return fmt.Errorf("table %s index field %q: %w", s.Name, f, types.ErrInvalidData)
			}
		}
	}
	return nil
}

// indexFields returns the distinct fields used by the table's indexes in
// first-seen order.
func indexFields(indexes []types.IndexSchema) []string {
	var fields []string
	seen := make(map[string]bool)
	for _, idx := range indexes {
		for _, f := range idx.KeyPath {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	return fields
}

func generatedColumnDef(field string) string {
	return fmt.Sprintf("%s GENERATED ALWAYS AS (json_extract(%s, '$.%s')) VIRTUAL",
		fieldColumn(field), docColumn, field)
}

// createTableDDL returns the CREATE TABLE and CREATE INDEX statements for a
// table that does not exist yet.
func createTableDDL(s types.TableSchema) []string {
	cols := []string{
		keyColumn + " TEXT PRIMARY KEY",
		docColumn + " TEXT NOT NULL",
	}
	for _, f := range indexFields(s.Indexes) {
		cols = append(cols, generatedColumnDef(f))
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", quoteIdent(s.Name), strings.Join(cols, ",\n    "))}
	for _, idx := range s.Indexes {
		stmts = append(stmts, createIndexDDL(s.Name, idx))
	}
	return stmts
}

func createIndexDDL(table string, idx types.IndexSchema) string {
	cols := make([]string, len(idx.KeyPath))
	for i, f := range idx.KeyPath {
		cols[i] = fieldColumn(f)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s(%s)", indexName(table, idx), quoteIdent(table), strings.Join(cols, ", "))
}

// upgradeDDL returns the statements that bring a table from prev to next:
// new generated columns first, then new indexes.
func upgradeDDL(prev, next types.TableSchema) []string {
	var stmts []string
	have := make(map[string]bool)
	for _, f := range indexFields(prev.Indexes) {
		have[f] = true
	}
	for _, f := range indexFields(next.Indexes) {
		if !have[f] {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(next.Name), generatedColumnDef(f)))
		}
	}
	for _, idx := range next.Indexes {
		if _, ok := prev.Index(idx.Name); !ok {
			stmts = append(stmts, createIndexDDL(next.Name, idx))
		}
	}
	return stmts
}

// migrationDDL computes the statements that move a database from prev to
// next. It fails if next drops a table, an index, or changes a primary key.
func migrationDDL(prev, next []types.TableSchema) ([]string, error) {
	prevByName := make(map[string]types.TableSchema, len(prev))
	for _, s := range prev {
		prevByName[s.Name] = s
	}
	nextNames := make(map[string]bool, len(next))
	var stmts []string
	for _, s := range next {
		if err := validateSchema(s); err != nil {
			return nil, err
		}
		nextNames[s.Name] = true
		old, ok := prevByName[s.Name]
		if !ok {
			stmts = append(stmts, createTableDDL(s)...)
			continue
		}
		if old.PrimaryKey != s.PrimaryKey || old.Auto != s.Auto {
			return nil, fmt.Errorf("table %s: primary key cannot change", s.Name)
		}
		for _, idx := range old.Indexes {
			if _, ok := s.Index(idx.Name); !ok {
				return nil, fmt.Errorf("table %s: index %s cannot be removed", s.Name, idx.Name)
			}
		}
		stmts = append(stmts, upgradeDDL(old, s)...)
	}
	for name := range prevByName {
		if !nextNames[name] {
			return nil, fmt.Errorf("table %s cannot be removed", name)
		}
	}
	return stmts, nil
}

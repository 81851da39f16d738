package backup

import (
	"context"
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// Mode selects how an import treats existing data.
type Mode string

// Import modes.
const (
	// ModeMerge upserts incoming rows and never deletes.
	ModeMerge Mode = "merge"
	// ModeReplace clears every imported table first. It requires
	// Options.ConfirmReplace.
	ModeReplace Mode = "replace"
)

// Options controls an import.
type Options struct {
	Mode           Mode // default ModeMerge
	ConfirmReplace bool
	// KeepExistingLeadStage keeps the stored stage of a lead when the
	// incoming row has a different one. Nil means true.
	KeepExistingLeadStage *bool
}

func (o Options) mode() Mode {
	if o.Mode == "" {
		return ModeMerge
	}
	return o.Mode
}

func (o Options) keepStage() bool {
	return o.KeepExistingLeadStage == nil || *o.KeepExistingLeadStage
}

// TableResult reports what an import did to one table.
type TableResult struct {
	Name     string `json:"name"`
	Incoming int    `json:"incoming"`
	Added    int    `json:"added"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
}

// Result lists the per-table outcome of an import.
type Result struct {
	Tables []TableResult `json:"tables"`
}

// ImportFile reads a backup file and imports it.
func (e *Engine) ImportFile(ctx context.Context, path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading backup: %w", err)
	}
	return e.ImportJSON(ctx, data, opts)
}

// ImportJSON parses, validates and imports a backup.
func (e *Engine) ImportJSON(ctx context.Context, data []byte, opts Options) (*Result, error) {
	env, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return e.Import(ctx, env, opts)
}

// Import applies env to the store in one transaction spanning every
// imported table. Tables the store does not have are ignored.
func (e *Engine) Import(ctx context.Context, env *Envelope, opts Options) (*Result, error) {
	if env == nil || env.Format != Format || env.BackupVersion != BackupVersion || env.Tables == nil {
		return nil, invalid("wrong format")
	}
	mode := opts.mode()
	switch mode {
	case ModeMerge:
	case ModeReplace:
		if !opts.ConfirmReplace {
			return nil, types.ErrDestructiveOperationBlocked
		}
	default:
		return nil, types.Invalid("mode", "unknown import mode "+string(mode))
	}

	known := make(map[string]bool)
	for _, s := range e.store.Schema() {
		known[s.Name] = true
	}
	var names []string
	for _, name := range env.TableNames() {
		if known[name] {
			names = append(names, name)
		} else {
			e.logger.Debug("ignoring unknown table", "table", name)
		}
	}
	// Leads go first so rows referring to a lead that merged under another
	// id can be relinked.
	sort.SliceStable(names, func(i, j int) bool {
		return isLeadsTable(names[i]) && !isLeadsTable(names[j])
	})

	result := &Result{Tables: make([]TableResult, 0, len(names))}
	err := e.store.Update(ctx, func(tx types.Tx) error {
		if mode == ModeReplace {
			for _, name := range names {
				tbl, err := tx.Table(name)
				if err != nil {
					return err
				}
				if err := tbl.Clear(ctx); err != nil {
					return err
				}
			}
		}
		links := make(map[string]string)
		for _, name := range names {
			tbl, err := tx.Table(name)
			if err != nil {
				return err
			}
			var rows []types.Record
			if dump := env.Tables[name]; dump != nil {
				rows = dump.Rows
			}
			var res TableResult
			switch {
			case mode == ModeReplace:
				res, err = replaceTable(ctx, tbl, rows)
			case isLeadsTable(name):
				var moved map[string]string
				res, moved, err = mergeLeads(ctx, tbl, rows, opts.keepStage(), e.now)
				maps.Copy(links, moved)
			default:
				res, err = mergeGeneric(ctx, tbl, relinkLeads(rows, links))
			}
			if err != nil {
				return fmt.Errorf("importing %s: %w", name, err)
			}
			res.Name = name
			res.Incoming = len(rows)
			result.Tables = append(result.Tables, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result.Tables, func(i, j int) bool {
		return result.Tables[i].Name < result.Tables[j].Name
	})
	for _, t := range result.Tables {
		e.logger.Info("imported table", "mode", mode, "table", t.Name,
			"incoming", t.Incoming, "added", t.Added, "updated", t.Updated, "skipped", t.Skipped)
	}
	return result, nil
}

// isLeadsTable reports whether rows of the table are merged by natural key.
func isLeadsTable(name string) bool {
	return strings.Contains(strings.ToLower(name), "lead")
}

// autoKey returns the primary key field when the store assigns it, or ""
// when incoming keys are kept.
func autoKey(schema types.TableSchema) string {
	if schema.Auto {
		return schema.PrimaryKey
	}
	return ""
}

// stripKey returns a copy of row without field; an empty field leaves the
// row as is.
func stripKey(row types.Record, field string) types.Record {
	if field == "" {
		return row
	}
	out := row.Clone()
	delete(out, field)
	return out
}

func replaceTable(ctx context.Context, tbl types.Table, rows []types.Record) (TableResult, error) {
	var res TableResult
	auto := autoKey(tbl.Schema())
	adds := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			res.Skipped++
			continue
		}
		adds = append(adds, stripKey(row, auto))
	}
	if err := tbl.BulkAdd(ctx, adds); err != nil {
		return res, err
	}
	res.Added = len(adds)
	return res, nil
}

// mergeGeneric upserts rows that carry a key and inserts the others. Every
// keyed row counts as updated, whether or not it existed before.
func mergeGeneric(ctx context.Context, tbl types.Table, rows []types.Record) (TableResult, error) {
	var res TableResult
	schema := tbl.Schema()
	auto := autoKey(schema)
	var puts, adds []types.Record
	for _, row := range rows {
		if row == nil {
			res.Skipped++
			continue
		}
		if row.Has(schema.PrimaryKey) {
			puts = append(puts, row)
		} else {
			adds = append(adds, stripKey(row, auto))
		}
	}
	if err := tbl.BulkPut(ctx, puts); err != nil {
		return res, err
	}
	if err := tbl.BulkAdd(ctx, adds); err != nil {
		return res, err
	}
	res.Updated = len(puts)
	res.Added = len(adds)
	return res, nil
}

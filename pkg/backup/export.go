package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// timestampLayout matches the ISO 8601 form with milliseconds in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Export snapshots every table of the store, rows unmodified, inside a
// single read transaction.
func (e *Engine) Export(ctx context.Context) (*Envelope, error) {
	schemas := e.store.Schema()
	env := &Envelope{
		Format:        Format,
		BackupVersion: BackupVersion,
		ExportedAt:    e.now().UTC().Format(timestampLayout),
		App:           e.app,
		Tables:        make(map[string]*TableDump, len(schemas)),
	}

	err := e.store.View(ctx, func(tx types.Tx) error {
		for _, schema := range schemas {
			tbl, err := tx.Table(schema.Name)
			if err != nil {
				return err
			}
			rows, err := tbl.All(ctx)
			if err != nil {
				return err
			}
			if rows == nil {
				rows = []types.Record{}
			}
			env.Tables[schema.Name] = &TableDump{
				PrimaryKey: &PrimaryKey{KeyPath: types.KeyPath{schema.PrimaryKey}, Auto: schema.Auto},
				Indexes:    schema.Indexes,
				Count:      len(rows),
				Rows:       rows,
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("exporting: %w", err)
	}
	for _, name := range env.TableNames() {
		e.logger.Debug("exported table", "table", name, "rows", env.Tables[name].Count)
	}
	return env, nil
}

// Marshal renders the envelope as JSON indented by two spaces.
func (env *Envelope) Marshal() ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}

// Filename returns the export file name for an envelope stamped
// exportedAt: "ignis-backup-" plus the timestamp with ':' and '.' turned
// into '-', 'T' into '_' and 'Z' removed.
func Filename(exportedAt string) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(exportedAt)
	ts = strings.Replace(ts, "T", "_", 1)
	ts = strings.Replace(ts, "Z", "", 1)
	return "ignis-backup-" + ts + ".json"
}

// ExportToFile exports the store and hands the JSON to saver under the
// conventional file name, which it returns.
func (e *Engine) ExportToFile(ctx context.Context, saver Saver) (string, error) {
	env, err := e.Export(ctx)
	if err != nil {
		return "", err
	}
	data, err := env.Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding backup: %w", err)
	}
	name := Filename(env.ExportedAt)
	if err := saver.Save(ctx, name, data); err != nil {
		return "", fmt.Errorf("saving %s: %w", name, err)
	}
	e.logger.Info("backup exported", "file", name, "tables", len(env.Tables), "bytes", len(data))
	return name, nil
}

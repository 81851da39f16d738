// Package backup exports the whole store into a versioned JSON envelope
// and imports such envelopes back, either merging into the existing data
// or replacing it.
//
// The engine works on raw table rows and bypasses the repositories. Lead
// rows are merged by their natural key (board and username) rather than by
// row id, because ids are generated independently on every device.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// Envelope constants.
const (
	Format        = "ignis-crm-backup"
	BackupVersion = 1
	AppName       = "CRM IGNIS"
)

// Envelope is a full snapshot of the store.
type Envelope struct {
	Format        string                `json:"format"`
	BackupVersion int                   `json:"backupVersion"`
	ExportedAt    string                `json:"exportedAt"`
	App           AppInfo               `json:"app"`
	Tables        map[string]*TableDump `json:"tables"`
}

// AppInfo identifies the program and database that produced an envelope.
type AppInfo struct {
	Name             string `json:"name"`
	ExtensionVersion string `json:"extensionVersion,omitempty"`
	DBName           string `json:"dbName,omitempty"`
}

// PrimaryKey describes a table's key.
type PrimaryKey struct {
	KeyPath types.KeyPath `json:"keyPath,omitempty"`
	Auto    bool          `json:"auto"`
}

// TableDump holds one table of an envelope. A nil entry in Rows stands for
// a null row and is skipped on import.
type TableDump struct {
	PrimaryKey *PrimaryKey         `json:"primaryKey,omitempty"`
	Indexes    []types.IndexSchema `json:"indexes,omitempty"`
	Count      int                 `json:"count"`
	Rows       []types.Record      `json:"rows"`
}

// TableNames returns the envelope's table names in sorted order.
func (e *Envelope) TableNames() []string {
	names := make([]string, 0, len(e.Tables))
	for name := range e.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", types.ErrInvalidFormat, msg)
}

// Validate reports whether data is a backup envelope this version can
// import.
func Validate(data []byte) error {
	_, err := Parse(data)
	return err
}

// Parse decodes and validates an envelope. The top level must be an object
// with the expected format and version and an object of tables. Inside a
// table, rows that are not an array count as no rows, and array elements
// that are not objects become nil rows.
func Parse(data []byte) (*Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return nil, invalid("not a JSON object")
	}

	var format string
	if err := json.Unmarshal(top["format"], &format); err != nil || format != Format {
		return nil, invalid("wrong format")
	}
	var version float64
	if err := json.Unmarshal(top["backupVersion"], &version); err != nil || version != BackupVersion {
		return nil, invalid(fmt.Sprintf("unsupported version (expected v%d)", BackupVersion))
	}
	var rawTables map[string]json.RawMessage
	if err := json.Unmarshal(top["tables"], &rawTables); err != nil || rawTables == nil {
		return nil, invalid("tables missing")
	}

	env := &Envelope{
		Format:        format,
		BackupVersion: BackupVersion,
		Tables:        make(map[string]*TableDump, len(rawTables)),
	}
	// Metadata is informative; a malformed value is ignored.
	_ = json.Unmarshal(top["exportedAt"], &env.ExportedAt)
	_ = json.Unmarshal(top["app"], &env.App)

	for name, raw := range rawTables {
		env.Tables[name] = parseTable(raw)
	}
	return env, nil
}

func parseTable(raw json.RawMessage) *TableDump {
	dump := &TableDump{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return dump
	}
	var pk PrimaryKey
	if err := json.Unmarshal(fields["primaryKey"], &pk); err == nil {
		dump.PrimaryKey = &pk
	}
	_ = json.Unmarshal(fields["indexes"], &dump.Indexes)
	_ = json.Unmarshal(fields["count"], &dump.Count)

	var rows []json.RawMessage
	if err := json.Unmarshal(fields["rows"], &rows); err != nil {
		return dump
	}
	dump.Rows = make([]types.Record, len(rows))
	for i, row := range rows {
		if bytes.Equal(bytes.TrimSpace(row), []byte("null")) {
			continue
		}
		rec, err := types.DecodeRecord(row)
		if err != nil {
			continue
		}
		dump.Rows[i] = rec
	}
	return dump
}

package backup

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// Field names searched, in order, for the parts of a lead's natural key.
// Rows written by older versions used several names.
var (
	usernameFields = []string{"username", "igUsername", "instagramUsername", "handle", "user"}
	boardFields    = []string{"boardId", "board", "funnel", "boardName", "pipeline"}
)

const defaultBoard = "default"

// firstField returns the first field of row that is present and not null.
func firstField(row types.Record, fields []string) (string, bool) {
	for _, f := range fields {
		if row.Has(f) {
			return row.Key(f), true
		}
	}
	return "", false
}

// NaturalKey returns the cross-device identity of a lead row,
// "board::username" lowercased and trimmed, and its username part.
func NaturalKey(row types.Record) (key, username string) {
	board, ok := firstField(row, boardFields)
	if !ok {
		board = defaultBoard
	}
	user, _ := firstField(row, usernameFields)
	username = strings.ToLower(strings.TrimSpace(user))
	return strings.ToLower(strings.TrimSpace(board)) + "::" + username, username
}

// leadEntry is a lead row known to a merge: either stored before the
// import or inserted by it.
type leadEntry struct {
	row     types.Record
	pending bool // inserted by this import
	dirty   bool // stored row changed by this import
}

// usernameKey returns the lowercase handle of a lead row, from
// usernameLower when present and from the username fallbacks otherwise.
func usernameKey(row types.Record) string {
	if row.Truthy("usernameLower") {
		return strings.ToLower(row.Text("usernameLower"))
	}
	user, _ := firstField(row, usernameFields)
	return types.UsernameKey(user)
}

// sameLead reports whether two rows describe the same person in the same
// workspace.
func sameLead(a, b types.Record) bool {
	return a.Key("workspaceId") == b.Key("workspaceId") && usernameKey(a) == usernameKey(b)
}

// fillUsername derives username and usernameLower from the fallback fields
// of rows written by older versions.
func fillUsername(row types.Record) {
	user, ok := firstField(row, usernameFields)
	if !ok {
		return
	}
	if !row.Truthy("username") {
		row["username"] = types.NormalizeUsername(user)
	}
	if !row.Truthy("usernameLower") {
		row["usernameLower"] = types.UsernameKey(user)
	}
}

func newLeadID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// mergeLeads reconciles incoming lead rows with the stored ones. A row
// matches a stored lead by natural key or, when the lead moved to another
// board, by id with the same workspace and username. A matching row is
// overlaid field by field, except that its key is kept, its createdAt is
// kept when the incoming row has none and, with keepStage, its stage is
// kept when both rows are on one board and name different stages. Rows
// without a match are inserted; an id held by a different stored lead is
// replaced with a fresh one.
//
// The returned map takes every incoming lead id that now lives under
// another id to that id, so rows referring to leads can follow them.
func mergeLeads(ctx context.Context, tbl types.Table, rows []types.Record, keepStage bool, now func() time.Time) (TableResult, map[string]string, error) {
	var res TableResult
	schema := tbl.Schema()
	pk := schema.PrimaryKey
	auto := autoKey(schema)

	existing, err := tbl.All(ctx)
	if err != nil {
		return res, nil, err
	}
	byKey := make(map[string]*leadEntry, len(existing))
	byID := make(map[string]*leadEntry, len(existing))
	var stored []*leadEntry
	for _, row := range existing {
		e := &leadEntry{row: row}
		key, _ := NaturalKey(row)
		byKey[key] = e
		byID[row.Key(pk)] = e
		stored = append(stored, e)
	}

	links := make(map[string]string)
	link := func(from, to string) {
		if from != "" && to != "" && from != to {
			links[from] = to
		}
	}

	var added []*leadEntry
	for _, inc := range rows {
		if inc == nil {
			res.Skipped++
			continue
		}
		key, username := NaturalKey(inc)
		if username == "" {
			res.Skipped++
			continue
		}
		incID := inc.Key(pk)

		target, stage := byKey[key], keepStage
		if target == nil {
			if e := byID[incID]; e != nil && sameLead(e.row, inc) {
				target, stage = e, false
			}
		}
		if target != nil {
			oldKey, _ := NaturalKey(target.row)
			target.row = mergeLead(target.row, inc, pk, stage)
			fillUsername(target.row)
			target.dirty = !target.pending
			delete(byKey, oldKey)
			byKey[key] = target
			link(incID, target.row.Key(pk))
			res.Updated++
			continue
		}

		fresh := stripKey(inc, auto).Clone()
		if auto == "" {
			if id := fresh.Key(pk); id == "" || byID[id] != nil {
				fresh[pk] = newLeadID()
			}
		}
		if !fresh.Truthy("createdAt") {
			fresh["createdAt"] = types.MillisOf(now())
		}
		fillUsername(fresh)
		e := &leadEntry{row: fresh, pending: true}
		byKey[key] = e
		if id := fresh.Key(pk); id != "" {
			byID[id] = e
			link(incID, id)
		}
		added = append(added, e)
		res.Added++
	}

	var puts, adds []types.Record
	for _, e := range stored {
		if e.dirty {
			puts = append(puts, e.row)
		}
	}
	for _, e := range added {
		adds = append(adds, e.row)
	}
	if err := tbl.BulkPut(ctx, puts); err != nil {
		return res, nil, err
	}
	if err := tbl.BulkAdd(ctx, adds); err != nil {
		return res, nil, err
	}
	return res, links, nil
}

// relinkLeads returns rows with every leadId found in links replaced.
// Changed rows are copies; rows is not modified.
func relinkLeads(rows []types.Record, links map[string]string) []types.Record {
	if len(links) == 0 {
		return rows
	}
	out := make([]types.Record, len(rows))
	for i, row := range rows {
		if to, ok := links[row.Key("leadId")]; ok {
			row = row.Clone()
			row["leadId"] = to
		}
		out[i] = row
	}
	return out
}

// mergeLead overlays inc on found.
func mergeLead(found, inc types.Record, pk string, keepStage bool) types.Record {
	merged := found.Clone()
	for k, v := range inc {
		merged[k] = v
	}
	if keepStage && found.Truthy("stageId") && inc.Truthy("stageId") &&
		found.Key("stageId") != inc.Key("stageId") {
		merged["stageId"] = found["stageId"]
	}
	if found.Has(pk) {
		merged[pk] = found[pk]
	}
	if found.Truthy("createdAt") && !inc.Truthy("createdAt") {
		merged["createdAt"] = found["createdAt"]
	}
	return merged
}

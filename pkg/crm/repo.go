package crm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// Option configures a repository.
type Option func(*repo)

// WithClock replaces time.Now. Tests use it to make timestamps
// deterministic.
func WithClock(now func() time.Time) Option {
	return func(r *repo) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLocation sets the zone used to derive event day keys and date keys.
// The default is time.Local.
func WithLocation(loc *time.Location) Option {
	return func(r *repo) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithLogger sets the logger for repository messages.
func WithLogger(l *slog.Logger) Option {
	return func(r *repo) {
		if l != nil {
			r.logger = l
		}
	}
}

// repo holds what every repository shares.
type repo struct {
	store  types.Store
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger
}

func newRepo(store types.Store, opts []Option) repo {
	r := repo{
		store:  store,
		now:    time.Now,
		loc:    time.Local,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r *repo) nowMillis() types.Millis {
	return types.MillisOf(r.now())
}

// newEvent builds an audit event stamped at.
func (r *repo) newEvent(workspaceID, leadID string, typ types.EventType, at types.Millis) types.ActivityEvent {
	return types.ActivityEvent{
		ID:          newID(),
		WorkspaceID: workspaceID,
		LeadID:      leadID,
		Type:        typ,
		At:          at,
		Day:         types.DayKey(at, r.loc),
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// appendEvents adds events to the events table of tx.
func appendEvents(ctx context.Context, tx types.Tx, events ...types.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}
	tbl, err := tx.Table(types.TableEvents)
	if err != nil {
		return err
	}
	recs := make([]types.Record, 0, len(events))
	for _, ev := range events {
		rec, err := types.ToRecord(ev)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	return tbl.BulkAdd(ctx, recs)
}

// getScoped loads the row key from tbl and decodes it into v. It returns
// (nil, nil) when the row is missing or its workspaceId differs.
func getScoped(ctx context.Context, tbl types.Table, workspaceID, key string, v any) (types.Record, error) {
	if key == "" {
		return nil, nil
	}
	rec, err := tbl.Get(ctx, key)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Key("workspaceId") != workspaceID {
		return nil, nil
	}
	if err := rec.Decode(v); err != nil {
		return nil, err
	}
	return rec, nil
}

// overlay writes the fields of v on top of raw and returns the result.
// Fields of raw unknown to v are kept; the optional fields are removed
// first so that clearing one in v clears it in the stored row.
func overlay(raw types.Record, v any, optional ...string) (types.Record, error) {
	fields, err := types.ToRecord(v)
	if err != nil {
		return nil, err
	}
	out := raw.Clone()
	for _, f := range optional {
		delete(out, f)
	}
	for k, val := range fields {
		out[k] = val
	}
	return out, nil
}

// decodeAll decodes every record into a T.
func decodeAll[T any](recs []types.Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err := rec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func requireWorkspace(workspaceID string) error {
	if workspaceID == "" {
		return types.Invalid("workspaceId", "required")
	}
	return nil
}

package backup

import (
	"io"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// Engine exports and imports the tables of one store.
type Engine struct {
	store  types.Store
	app    AppInfo
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger for export and import summaries.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithApp sets the identity written to exported envelopes. An empty name
// becomes AppName.
func WithApp(app AppInfo) Option {
	return func(e *Engine) { e.app = app }
}

// New returns an Engine over store.
func New(store types.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.app.Name == "" {
		e.app.Name = AppName
	}
	return e
}

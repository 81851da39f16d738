package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ignis/pkg/sqlite"
	"github.com/mesh-intelligence/ignis/pkg/types"
)

// usageError marks an error caused by the command line itself.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// exitCode maps an error to the process exit code: 1 for bad input, 2 for
// everything else.
func exitCode(err error) int {
	var usage usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &usage),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrInvalidFormat),
		errors.Is(err, types.ErrDestructiveOperationBlocked),
		errors.Is(err, errNotFound):
		return exitUserError
	default:
		return exitSysError
	}
}

var errNotFound = errors.New("not found")

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// openStore attaches the configured backend. The caller must Detach it.
func openStore() (types.Store, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend: config.GetString(cfgKeyBackend),
		DataDir: dataDir,
		DBName:  dbName(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageError{fmt.Errorf("config: %w", err)}
	}
	store := sqlite.NewBackend(logger)
	if err := store.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return store, nil
}

func dbName() string {
	if flagDBName != "" {
		return flagDBName
	}
	return config.GetString(cfgKeyDBName)
}

// workspace returns --workspace or the configured workspace.
func workspace() string {
	if flagWorkspace != "" {
		return flagWorkspace
	}
	return config.GetString(cfgKeyWorkspace)
}

// writeJSON prints v indented.
func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// parseBoard accepts a board name in any case.
func parseBoard(s string) (types.Board, error) {
	b := types.Board(strings.ToUpper(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", usagef("invalid board %q (valid: %s, %s)", s, types.BoardOutbound, types.BoardSocial)
	}
	return b, nil
}

// parseTime accepts epoch milliseconds, RFC 3339 or a local YYYY-MM-DD date.
func parseTime(s string) (types.Millis, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return types.Millis(n), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return types.MillisOf(t), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return types.MillisOf(t), nil
	}
	return 0, usagef("invalid time %q (use epoch ms, RFC 3339 or YYYY-MM-DD)", s)
}

// formatTime renders m for humans, "-" for zero.
func formatTime(m types.Millis) string {
	if m == 0 {
		return "-"
	}
	return m.Time().Format("2006-01-02 15:04")
}

package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want types.Millis
	}{
		{"epoch millis", "1718010000000", 1718010000000},
		{"rfc3339", "2024-06-10T09:00:00Z", types.MillisOf(time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC))},
		{"local date", "2024-06-10", types.MillisOf(time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local))},
		{"surrounding space", " 42 ", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseTime("next tuesday")
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestParseBoard(t *testing.T) {
	b, err := parseBoard(" social ")
	require.NoError(t, err)
	assert.Equal(t, types.BoardSocial, b)

	_, err = parseBoard("email")
	assert.Error(t, err)
}

func TestUsernameArg(t *testing.T) {
	got, err := usernameArg("@Maria")
	require.NoError(t, err)
	assert.Equal(t, "@Maria", got)

	got, err = usernameArg("https://www.instagram.com/maria.silva/")
	require.NoError(t, err)
	assert.Equal(t, "maria.silva", got)

	_, err = usernameArg("https://www.instagram.com/p/abc123/")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"usage", usageError{errors.New("bad flag")}, exitUserError},
		{"validation", fmt.Errorf("add: %w", types.Invalid("username", "required")), exitUserError},
		{"invalid backup", fmt.Errorf("import: %w", types.ErrInvalidFormat), exitUserError},
		{"replace blocked", types.ErrDestructiveOperationBlocked, exitUserError},
		{"not found", leadNotFound("x"), exitUserError},
		{"other", errors.New("disk full"), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

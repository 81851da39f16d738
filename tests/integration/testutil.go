// Package integration runs the ignis binary end to end against isolated
// configuration and data directories.
package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// ignisBin is the path to the built ignis binary.
	ignisBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot walks up from the working directory to the one holding
// go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv is an isolated environment with its own config, data and backup
// directories.
type TestEnv struct {
	t         *testing.T
	TempDir   string
	ConfigDir string
	DataDir   string
	BackupDir string
}

// NewTestEnv creates a new isolated test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build ignis: %v", buildErr)
	}
	if ignisBin == "" {
		t.Fatal("ignis binary not built")
	}

	tempDir := t.TempDir()
	return &TestEnv{
		t:         t,
		TempDir:   tempDir,
		ConfigDir: filepath.Join(tempDir, "config"),
		DataDir:   filepath.Join(tempDir, "data"),
		BackupDir: filepath.Join(tempDir, "backups"),
	}
}

// CmdResult holds the result of one ignis invocation.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes ignis with the environment's directories and the given
// arguments. The process runs in TempDir so no stray .env is loaded.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()

	allArgs := append([]string{"--config-dir", e.ConfigDir, "--data-dir", e.DataDir, "--workspace", "w1"}, args...)
	cmd := exec.Command(ignisBin, allArgs...)
	cmd.Dir = e.TempDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			e.t.Fatalf("failed to run ignis: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}

// MustRun executes ignis and fails the test on a non-zero exit.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("ignis %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", s, err)
	}
	return result
}

// Lead is the subset of a lead the tests inspect.
type Lead struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	StageID  string `json:"stageId"`
	Priority string `json:"priority"`
	Notes    string `json:"notes"`
}

// AddResult is the output of "lead add --json".
type AddResult struct {
	Status string `json:"status"`
	Lead   Lead   `json:"lead"`
}

// Task is the subset of a task the tests inspect.
type Task struct {
	ID     string `json:"id"`
	LeadID string `json:"leadId"`
	Status string `json:"status"`
}

// Event is the subset of an activity event the tests inspect.
type Event struct {
	Type      string `json:"type"`
	ToStageID string `json:"toStageId"`
}

// ImportResult is the output of "backup import --json".
type ImportResult struct {
	Tables []struct {
		Name     string `json:"name"`
		Incoming int    `json:"incoming"`
		Added    int    `json:"added"`
		Updated  int    `json:"updated"`
		Skipped  int    `json:"skipped"`
	} `json:"tables"`
}

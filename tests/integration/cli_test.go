package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain builds the ignis binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		buildErr = err
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "ignis-test-*")
	if err != nil {
		buildErr = err
		os.Exit(1)
	}
	ignisBin = filepath.Join(tmpDir, "ignis")

	cmd := exec.Command("go", "build", "-o", ignisBin, "./cmd/ignis")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		buildErr = &BuildError{Err: err, Output: string(output)}
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func TestInit(t *testing.T) {
	env := NewTestEnv(t)

	result := env.MustRun("init")
	assert.Contains(t, result.Stdout, "crm-ignis")

	_, err := os.Stat(filepath.Join(env.ConfigDir, "config.yaml"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(env.DataDir, "crm-ignis.db"))
	assert.NoError(t, err)
}

func TestLeadLifecycle(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRun("init")

	added := ParseJSON[AddResult](t, env.MustRun("lead", "add", "@Maria", "--board", "social", "--json").Stdout)
	assert.Equal(t, "created", added.Status)
	assert.Equal(t, "Maria", added.Lead.Username)
	assert.Equal(t, "Leads novos", added.Lead.StageID)

	again := ParseJSON[AddResult](t, env.MustRun("lead", "add", "https://www.instagram.com/maria/", "--board", "SOCIAL", "--json").Stdout)
	assert.Equal(t, "exists", again.Status)
	assert.Equal(t, added.Lead.ID, again.Lead.ID)

	id := added.Lead.ID
	moved := ParseJSON[Lead](t, env.MustRun("lead", "move", id, "Contatados", "--json").Stdout)
	assert.Equal(t, "Contatados", moved.StageID)

	updated := ParseJSON[Lead](t, env.MustRun("lead", "update", id, "--priority", "high", "--notes", "call after 6pm", "--json").Stdout)
	assert.Equal(t, "high", updated.Priority)
	assert.Equal(t, "call after 6pm", updated.Notes)
	assert.Equal(t, "Contatados", updated.StageID)

	events := ParseJSON[[]Event](t, env.MustRun("events", "list", id, "--json").Stdout)
	var kinds []string
	for _, e := range events {
		kinds = append(kinds, e.Type)
	}
	assert.ElementsMatch(t, []string{"CREATED", "MOVED_STAGE", "NOTE_UPDATED", "PRIORITY_CHANGED"}, kinds)

	list := ParseJSON[[]Lead](t, env.MustRun("lead", "list", "--board", "SOCIAL", "--json").Stdout)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	env.MustRun("lead", "delete", id)
	assert.Equal(t, 1, env.Run("lead", "show", id).ExitCode)
}

func TestTaskLifecycle(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRun("init")

	lead := ParseJSON[AddResult](t, env.MustRun("lead", "add", "joao", "--json").Stdout).Lead

	task := ParseJSON[Task](t, env.MustRun("task", "add", lead.ID, "Send proposal", "--due", "2024-06-20", "--json").Stdout)
	assert.Equal(t, "open", task.Status)
	assert.Equal(t, lead.ID, task.LeadID)

	done := ParseJSON[Task](t, env.MustRun("task", "done", task.ID, "--json").Stdout)
	assert.Equal(t, "done", done.Status)

	assert.Equal(t, 1, env.Run("task", "snooze", task.ID, "2024-06-21").ExitCode)

	byLead := ParseJSON[[]Task](t, env.MustRun("task", "list", "--lead", lead.ID, "--json").Stdout)
	require.Len(t, byLead, 1)
	assert.Equal(t, "done", byLead[0].Status)
}

func TestMetricsRow(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRun("init")

	env.MustRun("metrics", "set", "--date", "2024-06-10", "--msg1-disparos", "40", "--msg1-respostas", "6")
	row := env.MustRun("metrics", "row", "--date", "2024-06-10").Stdout

	cols := strings.Split(strings.TrimSuffix(row, "\n"), "\t")
	require.Len(t, cols, 16)
	assert.Equal(t, []string{"segunda", "40", "6", "15%"}, cols[:4])
	assert.Equal(t, "40", cols[15])
}

func TestBackupRoundTrip(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRun("init")

	lead := ParseJSON[AddResult](t, env.MustRun("lead", "add", "ana", "--json").Stdout).Lead
	env.MustRun("task", "add", lead.ID, "Follow up", "--due", "2024-06-20")

	out := ParseJSON[map[string]string](t, env.MustRun("backup", "export", "--out", env.BackupDir, "--json").Stdout)
	file := out["file"]
	require.FileExists(t, file)
	assert.True(t, strings.HasPrefix(filepath.Base(file), "ignis-backup-"))
	env.MustRun("backup", "validate", file)

	env.MustRun("lead", "delete", lead.ID)

	res := ParseJSON[ImportResult](t, env.MustRun("backup", "import", file, "--json").Stdout)
	added := map[string]int{}
	upserted := map[string]int{}
	for _, tbl := range res.Tables {
		added[tbl.Name] = tbl.Added
		upserted[tbl.Name] = tbl.Updated
	}
	assert.Equal(t, 1, added["leads"])
	// Keyed rows of the other tables are upserted and reported as updated.
	assert.Equal(t, 1, upserted["tasks"])

	shown := ParseJSON[Lead](t, env.MustRun("lead", "show", lead.ID, "--json").Stdout)
	assert.Equal(t, "ana", shown.Username)

	blocked := env.Run("backup", "import", file, "--mode", "replace")
	assert.Equal(t, 1, blocked.ExitCode)
	assert.Contains(t, blocked.Stderr, "ignis:")

	env.MustRun("backup", "import", file, "--mode", "replace", "--confirm-replace")
	list := ParseJSON[[]Lead](t, env.MustRun("lead", "list", "--json").Stdout)
	assert.Len(t, list, 1)
}

func TestUsageErrors(t *testing.T) {
	env := NewTestEnv(t)

	assert.Equal(t, 1, env.Run("lead", "list", "--no-such-flag").ExitCode)
	assert.Equal(t, 1, env.Run("lead", "add", "x", "--board", "EMAIL").ExitCode)
	assert.Equal(t, 1, env.Run("lead", "show").ExitCode)
}

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeItemsFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "items.jsonl")
	content := `{"id":"100","text":"thread start","createdAt":"2025-01-01T10:00:00Z","accountId":"me","source":"post"}
{"id":"101","text":"thread continues","createdAt":"2025-01-01T10:05:00Z","parentId":"100","inReplyToUserId":"me","accountId":"me","source":"post"}
not json at all
{"id":"102","text":"reply to someone else","createdAt":"2025-01-01T10:10:00Z","parentId":"101","inReplyToUserId":"other","accountId":"me","source":"post"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunCommand_Text(t *testing.T) {
	dir := t.TempDir()
	items := writeItemsFile(t, dir)
	ws := filepath.Join(dir, "ws")

	out, err := execute(t, "-w", ws, "run", items)
	require.NoError(t, err)

	assert.Contains(t, out, "checkpoint cp-")
	assert.Contains(t, out, "3 items -> 3 filtered, 1 threads, 1 conversations")
}

func TestRunCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	items := writeItemsFile(t, dir)
	ws := filepath.Join(dir, "ws")

	out, err := execute(t, "-w", ws, "--format", "json", "run", items)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), data["itemCount"])
	assert.Equal(t, float64(1), data["threadCount"])
}

func TestRunCommand_MissingItemsFile(t *testing.T) {
	ws := filepath.Join(t.TempDir(), "ws")

	_, err := execute(t, "-w", ws, "run", filepath.Join(t.TempDir(), "absent.jsonl"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_WithConfigAndNotes(t *testing.T) {
	dir := t.TempDir()
	items := writeItemsFile(t, dir)
	ws := filepath.Join(dir, "ws")

	cfgPath := filepath.Join(dir, "spool.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("filter:\n  minLength: 15\n"), 0o644))

	out, err := execute(t, "-w", ws, "run", items, "-c", cfgPath, "--notes", "from test")
	require.NoError(t, err)
	assert.Contains(t, out, "3 items -> 2 filtered")

	out, err = execute(t, "-w", ws, "--format", "json", "checkpoints", "latest")
	require.NoError(t, err)
	assert.Contains(t, out, `"notes":"from test"`)
}

func TestCheckpointsListAndShow(t *testing.T) {
	dir := t.TempDir()
	items := writeItemsFile(t, dir)
	ws := filepath.Join(dir, "ws")

	_, err := execute(t, "-w", ws, "run", items)
	require.NoError(t, err)
	_, err = execute(t, "-w", ws, "run", items)
	require.NoError(t, err)

	out, err := execute(t, "-w", ws, "checkpoints", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "parent=-")
	assert.Contains(t, lines[1], "parent=cp-")

	id := strings.Fields(lines[0])[1]
	out, err = execute(t, "-w", ws, "checkpoints", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "`+id+`"`)
	assert.Contains(t, out, `"transforms"`)
}

func TestCheckpointsShow_NotFound(t *testing.T) {
	ws := filepath.Join(t.TempDir(), "ws")

	_, err := execute(t, "-w", ws, "checkpoints", "show", "cp-nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheckpointsLatest_EmptyWorkspace(t *testing.T) {
	ws := filepath.Join(t.TempDir(), "ws")

	_, err := execute(t, "-w", ws, "checkpoints", "latest")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDecisionsFold_Text(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "decisions.ndjson")
	log := `{"id":"b","status":"skip","ts":"2025-01-01"}
{"id":"a","status":"export","tags":["keep"],"ts":"2025-01-02"}
{"id":"b","status":"export","ts":"2025-01-03"}
`
	require.NoError(t, os.WriteFile(logPath, []byte(log), 0o644))

	out, err := execute(t, "decisions", "fold", logPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "a  status=export  tags=keep")
	assert.Contains(t, lines[1], "b  status=export")
}

func TestDecisionsFold_IDList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ids.json")
	require.NoError(t, os.WriteFile(path, []byte(`["x","y"]`), 0o644))

	out, err := execute(t, "decisions", "fold", path, "--ids-status", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "x  status=export")
	assert.Contains(t, out, "y  status=export")
}

func TestDecisionsFold_AllowedStatuses(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "decisions.ndjson")
	require.NoError(t, os.WriteFile(logPath,
		[]byte(`{"id":"a","status":"bogus","tags":["t"],"ts":"2025-01-01"}`+"\n"), 0o644))

	out, err := execute(t, "decisions", "fold", logPath, "--allowed-statuses", "export,skip")
	require.NoError(t, err)
	assert.Contains(t, out, "a  status=-  tags=t")
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	items := writeItemsFile(t, dir)
	ws := filepath.Join(dir, "ws")

	_, err := execute(t, "-w", ws, "run", items)
	require.NoError(t, err)

	out, err := execute(t, "-w", ws, "stats")
	require.NoError(t, err)
	// Raw and filtered item blobs are byte-identical here, so they dedup
	// into one sequence.
	assert.Contains(t, out, "objects: 2")
	assert.Contains(t, out, "sequences: 1")
	assert.Contains(t, out, "checkpoints: 1")

	out, err = execute(t, "-w", ws, "stats", "--rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, "checkpoints: 1")
}

func TestInvalidFormatRejected(t *testing.T) {
	_, err := execute(t, "--format", "yaml", "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestExitError(t *testing.T) {
	base := errors.New("boom")
	err := WrapExitError(ExitCommandError, "doing thing", base)

	assert.Equal(t, "doing thing: boom", err.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestOutputFormatter_JSONEnvelope(t *testing.T) {
	buf := new(bytes.Buffer)
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Successf("done %d", 7))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "done 7", resp.Data)
}

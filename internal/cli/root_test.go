package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greentic-ai/cards2flow/internal/ir"
)

// runCommand executes the CLI with args and returns stdout and the error.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeCardFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cards := map[string]string{
		"welcome.json": `{
			"type": "AdaptiveCard",
			"greentic": {"cardId": "welcome", "flow": "main"},
			"actions": [{"type": "Action.Submit", "title": "Next", "data": {"step": "done"}}]
		}`,
		"done.json": `{"type": "AdaptiveCard", "greentic": {"cardId": "done", "flow": "main"}, "body": []}`,
	}
	for rel, contents := range cards {
		require.NoError(t, os.WriteFile(filepath.Join(dir, rel), []byte(contents), 0o644))
	}
	return dir
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	_, err := runCommand(t, "scan", "--cards", t.TempDir(), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestScanCommandJSONEnvelope(t *testing.T) {
	cards := writeCardFixtures(t)
	out, err := runCommand(t, "scan", "--cards", cards, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   ir.Manifest `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Version)
	require.Len(t, resp.Data.Flows, 1)
	assert.Equal(t, "main", resp.Data.Flows[0].FlowName)
	assert.Equal(t, 2, resp.Data.Diagnostics.CardsProcessed)
	// Scan never emits flow files.
	assert.Empty(t, resp.Data.Diagnostics.FlowPaths)
}

func TestScanCommandTextSummary(t *testing.T) {
	cards := writeCardFixtures(t)
	out, err := runCommand(t, "scan", "--cards", cards)
	require.NoError(t, err)
	assert.Contains(t, out, "Cards processed: 2")
	assert.Contains(t, out, "- main (2 cards)")
}

func TestScanCommandMissingDirectory(t *testing.T) {
	_, err := runCommand(t, "scan", "--cards", "/does/not/exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScanCommandInvalidGroupBy(t *testing.T) {
	_, err := runCommand(t, "scan", "--cards", t.TempDir(), "--group-by", "bogus")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScanCommandStrictFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{oops`), 0o644))

	out, err := runCommand(t, "scan", "--cards", dir, "--strict", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.NotEmpty(t, resp.Error.Diagnostics)
}

func TestGenerateCommandEndToEnd(t *testing.T) {
	cards := writeCardFixtures(t)
	out := filepath.Join(t.TempDir(), "out")

	stdout, err := runCommand(t, "generate",
		"--cards", cards, "--out", out, "--name", "demo-pack")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Workspace: "+out)
	assert.Contains(t, stdout, "- flows/main.ygtc")

	_, statErr := os.Stat(filepath.Join(out, "flows", "main.ygtc"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(out, ".cards2flow", "manifest.json"))
	assert.NoError(t, statErr)
}

func TestGenerateCommandStrictFailure(t *testing.T) {
	dir := t.TempDir()
	card := `{
		"type": "AdaptiveCard",
		"greentic": {"cardId": "start", "flow": "main"},
		"actions": [{"type": "Action.Submit", "title": "Go", "data": {"step": "nowhere"}}]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "start.json"), []byte(card), 0o644))
	out := filepath.Join(t.TempDir(), "out")

	stdout, err := runCommand(t, "generate",
		"--cards", dir, "--out", out, "--name", "demo-pack", "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "missing_route_target")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateCommandRequiresFlags(t *testing.T) {
	_, err := runCommand(t, "generate", "--cards", t.TempDir())
	require.Error(t, err)
}

func TestParseGroupBy(t *testing.T) {
	got, err := parseGroupBy("folder")
	require.NoError(t, err)
	assert.Equal(t, "folder", string(got))

	got, err = parseGroupBy("")
	require.NoError(t, err)
	assert.Empty(t, string(got))

	_, err = parseGroupBy("nope")
	require.Error(t, err)
}

package emit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greentic-ai/cards2flow/internal/ir"
)

func fixedWriter() *ManifestWriter {
	return &ManifestWriter{
		Now:      func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) },
		NewRunID: func() string { return "run-0001" },
	}
}

func TestManifestBuildStamps(t *testing.T) {
	m := fixedWriter().Build(
		ir.InputInfo{CardsDir: "cards", GroupBy: "folder", Strict: true},
		[]ir.FlowGroup{{FlowName: "main"}},
		nil,
		ir.RunDiagnostics{WorkspaceRoot: "out", CardsProcessed: 3},
	)

	assert.Equal(t, ManifestVersion, m.Version)
	assert.Equal(t, "run-0001", m.RunID)
	assert.Equal(t, "2026-03-14T09:26:53Z", m.GeneratedAt)
	assert.True(t, m.Input.Strict)
	require.Len(t, m.Flows, 1)
	// nil warnings marshal as an empty list, never null.
	assert.NotNil(t, m.Warnings)
	assert.Empty(t, m.Warnings)
}

func TestManifestBuildDefaultsAreUnique(t *testing.T) {
	w := &ManifestWriter{}
	a := w.Build(ir.InputInfo{}, nil, nil, ir.RunDiagnostics{})
	b := w.Build(ir.InputInfo{}, nil, nil, ir.RunDiagnostics{})
	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestWriteManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	idx := 2
	m := fixedWriter().Build(
		ir.InputInfo{CardsDir: "cards", DefaultFlow: "main"},
		[]ir.FlowGroup{{FlowName: "main", Cards: []ir.CardDoc{{RelPath: "a.json", CardID: "a", FlowName: "main"}}}},
		[]ir.Warning{{Kind: "missing_route_target", Path: "a.json", ActionIndex: &idx, Message: "missing target b"}},
		ir.RunDiagnostics{WorkspaceRoot: "out", FlowPaths: []string{"flows/main.ygtc"}, CardsProcessed: 1, WarningsCount: 1},
	)
	require.NoError(t, WriteManifest(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1])

	var loaded ir.Manifest
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, m.RunID, loaded.RunID)
	assert.Equal(t, m.GeneratedAt, loaded.GeneratedAt)
	require.Len(t, loaded.Warnings, 1)
	require.NotNil(t, loaded.Warnings[0].ActionIndex)
	assert.Equal(t, 2, *loaded.Warnings[0].ActionIndex)
	assert.Equal(t, []string{"flows/main.ygtc"}, loaded.Diagnostics.FlowPaths)
}

func TestRenderReadmeSection(t *testing.T) {
	section := RenderReadmeSection([][2]string{
		{"main", "welcome"},
		{"support", "intake"},
	})
	assert.Contains(t, section, ReadmeBeginMarker)
	assert.Contains(t, section, ReadmeEndMarker)
	assert.Contains(t, section, "- `main` entry: `welcome`")
	assert.Contains(t, section, "- `support` entry: `intake`")

	empty := RenderReadmeSection(nil)
	assert.Contains(t, empty, "- (none)")
}

package emit

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/greentic-ai/cards2flow/internal/ir"
)

// ManifestVersion is the manifest schema version external tooling matches on.
const ManifestVersion = 1

// ManifestWriter stamps and serializes run manifests. Now and NewRunID are
// injectable so tests get deterministic output.
type ManifestWriter struct {
	Now      func() time.Time
	NewRunID func() string
}

func (w *ManifestWriter) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *ManifestWriter) runID() string {
	if w.NewRunID != nil {
		return w.NewRunID()
	}
	return uuid.NewString()
}

// Build assembles the manifest for one run.
func (w *ManifestWriter) Build(input ir.InputInfo, flows []ir.FlowGroup, warnings []ir.Warning, diagnostics ir.RunDiagnostics) ir.Manifest {
	if warnings == nil {
		warnings = []ir.Warning{}
	}
	return ir.Manifest{
		Version:     ManifestVersion,
		RunID:       w.runID(),
		GeneratedAt: w.now().UTC().Format(time.RFC3339),
		Input:       input,
		Flows:       flows,
		Warnings:    warnings,
		Diagnostics: diagnostics,
	}
}

// WriteManifest serializes the manifest as indented JSON with a trailing
// newline.
func WriteManifest(path string, m ir.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// RenderReadmeSection renders the generated-flows listing that is merged
// into the workspace README between the README marker pair.
func RenderReadmeSection(entries [][2]string) string {
	var b strings.Builder
	b.WriteString(ReadmeBeginMarker)
	b.WriteString("\n## Generated Flows\n")
	if len(entries) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, entry := range entries {
		fmt.Fprintf(&b, "- `%s` entry: `%s`\n", entry[0], entry[1])
	}
	b.WriteString(ReadmeEndMarker)
	return b.String()
}

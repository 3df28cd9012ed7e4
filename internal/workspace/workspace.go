// Package workspace orchestrates one generation run: scan, graph
// construction, the strict gate, and the plan/commit emission of the
// workspace tree.
//
// Emission is two-phase by design. Every output file's final contents are
// planned first, from a fresh read of whatever is on disk; only when every
// plan succeeds does anything get written. A fatal diagnostic therefore
// never leaves a partially generated workspace behind.
package workspace

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/greentic-ai/cards2flow/internal/diag"
	"github.com/greentic-ai/cards2flow/internal/emit"
	"github.com/greentic-ai/cards2flow/internal/graph"
	"github.com/greentic-ai/cards2flow/internal/ir"
	"github.com/greentic-ai/cards2flow/internal/pack"
	"github.com/greentic-ai/cards2flow/internal/scan"
)

// stateDir is the workspace subdirectory owned entirely by the generator.
const stateDir = ".cards2flow"

// Options configures one generation run.
type Options struct {
	CardsDir    string
	OutDir      string
	Name        string
	GroupBy     scan.GroupBy
	DefaultFlow string
	Strict      bool

	// Packer, when non-nil, runs the downstream packaging steps after the
	// workspace is written.
	Packer pack.Packer

	Logger   *slog.Logger
	Now      func() time.Time
	NewRunID func() string
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Result reports a successful generation run.
type Result struct {
	Manifest  ir.Manifest
	FlowPaths []string
}

// FatalError carries every fatal diagnostic of an aborted run. No output
// file has been created or modified when it is returned.
type FatalError struct {
	Diags []diag.Diagnostic
}

func (e *FatalError) Error() string {
	if len(e.Diags) == 1 {
		return e.Diags[0].String()
	}
	return fmt.Sprintf("generation failed with %d fatal diagnostics", len(e.Diags))
}

// filePlan is one pending write, fully rendered before commit.
type filePlan struct {
	path     string
	contents string
}

// Generate runs the full pipeline for one cards directory.
func Generate(ctx context.Context, opts Options) (*Result, error) {
	log := opts.logger()

	// Stages 1-4: load, resolve, extract, group.
	scanRes, collector, err := scan.Scan(ctx, scan.Config{
		CardsDir:    opts.CardsDir,
		GroupBy:     opts.GroupBy,
		DefaultFlow: opts.DefaultFlow,
		Strict:      opts.Strict,
	})
	if err != nil {
		return nil, err
	}
	log.Debug("scan complete", "flows", len(scanRes.Groups), "cards", scanRes.CardsTotal)

	// Stage 5: per-flow graphs, independent across groups.
	graphs := make([]*graph.Graph, len(scanRes.Groups))
	graphDiags := make([][]diag.Diagnostic, len(scanRes.Groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, grp := range scanRes.Groups {
		i, grp := i, grp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			graphs[i], graphDiags[i] = graph.Build(grp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building flow graphs: %w", err)
	}
	for _, ds := range graphDiags {
		collector.Append(ds)
	}

	// Strict gate: the whole input set has been evaluated; abort before any
	// write if anything resolved to fatal severity.
	if fatal := collector.Fatal(opts.Strict); len(fatal) > 0 {
		return nil, &FatalError{Diags: fatal}
	}

	// Plan phase: render every output file from a fresh read of the target.
	plans, flowPaths, err := planFlows(graphs, opts.OutDir, collector)
	if err != nil {
		return nil, err
	}

	readmePlan, err := planReadme(graphs, opts.OutDir, opts.Name)
	if err != nil {
		return nil, err
	}
	plans = append(plans, readmePlan)

	// Marker corruption is fatal in both modes and surfaces during
	// planning, before anything has been written.
	if fatal := collector.Fatal(opts.Strict); len(fatal) > 0 {
		return nil, &FatalError{Diags: fatal}
	}

	// Commit phase: scaffold, copy card assets, write every plan.
	if err := scaffold(opts.OutDir); err != nil {
		return nil, err
	}
	if err := copyCards(opts.CardsDir, filepath.Join(opts.OutDir, "assets", "cards")); err != nil {
		return nil, err
	}
	for _, plan := range plans {
		if err := os.WriteFile(plan.path, []byte(plan.contents), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", plan.path, err)
		}
		log.Debug("wrote output file", "path", plan.path)
	}

	// Downstream packaging, when requested.
	distArtifact := ""
	if opts.Packer != nil {
		distArtifact, err = runPackaging(ctx, opts, collector)
		if err != nil {
			return nil, err
		}
	}

	// Manifest last, so it records packaging warnings too.
	writer := &emit.ManifestWriter{Now: opts.Now, NewRunID: opts.NewRunID}
	manifest := writer.Build(
		ir.InputInfo{
			CardsDir:    opts.CardsDir,
			GroupBy:     string(opts.GroupBy),
			DefaultFlow: opts.DefaultFlow,
			Strict:      opts.Strict,
		},
		scanRes.Groups,
		collector.ManifestWarnings(),
		ir.RunDiagnostics{
			WorkspaceRoot:  opts.OutDir,
			DistArtifact:   distArtifact,
			FlowPaths:      flowPaths,
			CardsProcessed: scanRes.CardsTotal,
			Flows:          scan.Summaries(scanRes.Groups),
			WarningsCount:  collector.Len(),
		},
	)
	manifestPath := filepath.Join(opts.OutDir, stateDir, "manifest.json")
	if err := emit.WriteManifest(manifestPath, manifest); err != nil {
		return nil, err
	}

	return &Result{Manifest: manifest, FlowPaths: flowPaths}, nil
}

// planFlows renders each graph and merges it against the current contents of
// its target file. Corruption findings go into the collector so a single run
// reports every corrupted file.
func planFlows(graphs []*graph.Graph, outDir string, collector *diag.Collector) ([]filePlan, []string, error) {
	var plans []filePlan
	var flowPaths []string

	for _, g := range graphs {
		body, err := emit.RenderFlow(g)
		if err != nil {
			return nil, nil, err
		}
		block := emit.WrapGenerated(body)

		relPath := filepath.ToSlash(filepath.Join("flows", flowFileName(g.FlowName)))
		target := filepath.Join(outDir, "flows", flowFileName(g.FlowName))

		existing, err := os.ReadFile(target)
		var contents string
		switch {
		case os.IsNotExist(err):
			contents = emit.NewFile(block)
		case err != nil:
			return nil, nil, fmt.Errorf("reading %s: %w", target, err)
		default:
			merged, err := emit.MergeGenerated(relPath, string(existing), block)
			if err != nil {
				collector.Add(diag.New(diag.MarkerCorruption, relPath, err.Error()))
				continue
			}
			contents = merged
		}

		plans = append(plans, filePlan{path: target, contents: contents})
		flowPaths = append(flowPaths, relPath)
	}

	sort.Strings(flowPaths)
	return plans, flowPaths, nil
}

// planReadme renders the README with its generated-flows section merged in.
func planReadme(graphs []*graph.Graph, outDir, name string) (filePlan, error) {
	entries := make([][2]string, 0, len(graphs))
	for _, g := range graphs {
		entry := g.EntryNode()
		if entry == "" {
			entry = "unknown"
		}
		entries = append(entries, [2]string{g.FlowName, entry})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i][0] < entries[j][0] })

	section := emit.RenderReadmeSection(entries)
	target := filepath.Join(outDir, "README.md")

	existing, err := os.ReadFile(target)
	switch {
	case os.IsNotExist(err):
		contents := fmt.Sprintf("# %s\n\nGenerated by cards2flow.\n\n%s\n", name, section)
		return filePlan{path: target, contents: contents}, nil
	case err != nil:
		return filePlan{}, fmt.Errorf("reading %s: %w", target, err)
	}

	merged, err := emit.Merge("README.md", string(existing), section,
		emit.ReadmeBeginMarker, emit.ReadmeEndMarker)
	if err != nil {
		return filePlan{}, err
	}
	return filePlan{path: target, contents: merged}, nil
}

// scaffold creates the workspace directory layout.
func scaffold(outDir string) error {
	for _, dir := range []string{
		filepath.Join(outDir, "assets", "cards"),
		filepath.Join(outDir, "flows"),
		filepath.Join(outDir, "dist"),
		filepath.Join(outDir, stateDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// copyCards mirrors the card JSON tree into the workspace assets directory,
// preserving layout.
func copyCards(cardsDir, destRoot string) error {
	return filepath.WalkDir(cardsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		rel, err := filepath.Rel(cardsDir, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(destRoot, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("copying %s: %w", path, err)
		}
		return nil
	})
}

// runPackaging drives the downstream tool. Failures are fatal under strict
// and recorded warnings otherwise, matching the diagnostic taxonomy.
func runPackaging(ctx context.Context, opts Options, collector *diag.Collector) (string, error) {
	p := opts.Packer

	if _, err := os.Stat(filepath.Join(opts.OutDir, "pack.yaml")); os.IsNotExist(err) {
		if err := p.New(ctx, opts.OutDir, opts.Name); err != nil {
			return "", fmt.Errorf("initializing pack workspace: %w", err)
		}
	}

	type packStep struct {
		kind diag.Kind
		name string
		run  func() error
	}
	steps := []packStep{
		{diag.PackOutput, "update", func() error { return p.Update(ctx, opts.OutDir) }},
	}
	// Vendored components are registered before resolve runs against them.
	if _, err := os.Stat(filepath.Join(opts.OutDir, "components")); err == nil {
		steps = append(steps, packStep{diag.PackOutput, "components", func() error { return p.Components(ctx, opts.OutDir) }})
	}
	steps = append(steps,
		packStep{diag.Validation, "resolve", func() error { return p.Resolve(ctx, opts.OutDir) }},
		packStep{diag.Validation, "doctor", func() error { return p.Doctor(ctx, opts.OutDir) }},
	)
	for _, step := range steps {
		if err := step.run(); err != nil {
			if opts.Strict {
				return "", fmt.Errorf("packaging %s failed: %w", step.name, err)
			}
			collector.Add(diag.New(step.kind, "", fmt.Sprintf("packaging %s failed: %v", step.name, err)))
		}
	}

	distDir := filepath.Join(opts.OutDir, "dist")
	outFile := filepath.Join(distDir, opts.Name+".gtpack")
	if _, err := p.Build(ctx, opts.OutDir, outFile); err != nil {
		if opts.Strict {
			return "", err
		}
		collector.Add(diag.New(diag.PackOutput, "", err.Error()))
		return "", nil
	}

	artifact, warn, err := ensureNamedArtifact(distDir, opts.Name)
	if err != nil {
		if opts.Strict {
			return "", err
		}
		collector.Add(diag.New(diag.PackOutput, "", err.Error()))
		return "", nil
	}
	if warn != "" {
		collector.Add(diag.New(diag.PackOutput, "", warn))
	}
	return artifact, nil
}

// ensureNamedArtifact normalizes the build output to dist/<name>.gtpack when
// the tool wrote the artifact under a different name.
func ensureNamedArtifact(distDir, name string) (string, string, error) {
	target := filepath.Join(distDir, name+".gtpack")
	if _, err := os.Stat(target); err == nil {
		return target, "", nil
	}

	entries, err := os.ReadDir(distDir)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", distDir, err)
	}

	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".gtpack" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(distDir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", "", fmt.Errorf("no .gtpack artifact found in %s", distDir)
	}

	if err := os.Rename(newest, target); err != nil {
		return "", "", fmt.Errorf("normalizing %s: %w", newest, err)
	}
	warn := fmt.Sprintf("normalized pack artifact from %s to %s", filepath.Base(newest), filepath.Base(target))
	return target, warn, nil
}

// flowFileName maps a flow name to its output file, replacing anything that
// would escape the flows directory.
func flowFileName(flowName string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, flowName)
	if sanitized == "" {
		sanitized = "flow"
	}
	return sanitized + ".ygtc"
}

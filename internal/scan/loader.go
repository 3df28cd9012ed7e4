package scan

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/greentic-ai/cards2flow/internal/diag"
	"github.com/greentic-ai/cards2flow/internal/ir"
)

// GroupBy selects the flow-name fallback strategy.
type GroupBy string

const (
	// GroupByFolder activates the parent-folder fallback for flow names.
	GroupByFolder GroupBy = "folder"
	// GroupByFlowField relies on the flow field chain only.
	GroupByFlowField GroupBy = "flow-field"
)

// Config carries the scan configuration supplied by the CLI layer.
type Config struct {
	CardsDir    string
	GroupBy     GroupBy // empty means unset
	DefaultFlow string
	Strict      bool
}

// discriminatorValue is the top-level type value that marks a card document.
const discriminatorValue = "AdaptiveCard"

// fileResult is the outcome of loading a single candidate file.
// card is nil when the file was not a recognized card.
type fileResult struct {
	card  *ir.CardDoc
	diags []diag.Diagnostic
}

// listCardFiles walks the cards directory and returns the relative paths of
// all candidate files, sorted, with forward slashes.
func listCardFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cards directory not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", path, err)
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return files, nil
}

// loadFile reads, parses and classifies one candidate file, then resolves
// its metadata. Pure with respect to shared state: all findings come back
// in the result's diagnostic list.
func loadFile(cfg Config, rel string) fileResult {
	var res fileResult

	abs := filepath.Join(cfg.CardsDir, filepath.FromSlash(rel))
	raw, err := os.ReadFile(abs)
	if err != nil {
		res.diags = append(res.diags, diag.New(diag.ParseError, rel,
			fmt.Sprintf("failed to read file: %v", err)))
		return res
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		res.diags = append(res.diags, diag.New(diag.ParseError, rel,
			fmt.Sprintf("invalid JSON: %v", err)))
		return res
	}

	object, ok := value.(map[string]any)
	if !ok {
		res.diags = append(res.diags, diag.New(diag.IgnoredFile, rel, "non-object JSON ignored"))
		return res
	}

	if !isCard(object, rel, &res.diags) {
		return res
	}

	res.diags = append(res.diags, validateCard(rel, raw)...)

	extracted := extractActions(object, rel)
	res.diags = append(res.diags, extracted.diags...)

	cardID, idDiags := resolveCardID(extracted.cardIDs, object, rel)
	res.diags = append(res.diags, idDiags...)

	flowName, flowDiags := resolveFlowName(extracted.flows, object, rel, cfg)
	res.diags = append(res.diags, flowDiags...)

	res.card = &ir.CardDoc{
		RelPath:  rel,
		AbsPath:  abs,
		CardID:   cardID,
		FlowName: flowName,
		Actions:  extracted.actions,
	}
	return res
}

// isCard applies the discriminator check. A wrong type value or a document
// with neither actions nor body is ignored with a warning; a directory may
// legitimately contain non-card JSON.
func isCard(object map[string]any, rel string, diags *[]diag.Diagnostic) bool {
	if typ, ok := object["type"].(string); ok {
		if typ != discriminatorValue {
			*diags = append(*diags, diag.New(diag.IgnoredFile, rel,
				fmt.Sprintf("non-card JSON ignored (type=%s)", typ)))
			return false
		}
		return true
	}
	if _, ok := object["actions"]; ok {
		return true
	}
	if _, ok := object["body"]; ok {
		return true
	}
	*diags = append(*diags, diag.New(diag.IgnoredFile, rel, "non-card JSON ignored"))
	return false
}

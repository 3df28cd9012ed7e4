package scan

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/greentic-ai/cards2flow/internal/diag"
)

// metadataKey is the document-level custom metadata object consulted as the
// second fallback for both card_id and flow_name.
const metadataKey = "greentic"

// reservedFlow is the fallback group assigned in lenient mode when every
// flow-name rule comes up empty.
const reservedFlow = "misc"

// resolveCardID derives the card identity, first rule that yields a value:
//  1. a consistent data.cardId across the action list
//  2. the document-level metadata field
//  3. the filename stem
func resolveCardID(actionIDs []string, object map[string]any, rel string) (string, []diag.Diagnostic) {
	value, diags := consistentValue(actionIDs, diag.IdentityConflict, "cardId", rel)
	if value != "" {
		return canonical(value), diags
	}

	if meta := metadataField(object, "cardId"); meta != "" {
		return canonical(meta), diags
	}

	return canonical(fileStem(rel)), diags
}

// resolveFlowName derives the workflow assignment, first rule that yields a
// value:
//  1. a consistent data.flow across the action list
//  2. the document-level metadata field
//  3. the first folder component, when folder grouping is configured
//  4. the configured default flow
//  5. lenient: the reserved misc group with a warning; strict: fatal
func resolveFlowName(actionFlows []string, object map[string]any, rel string, cfg Config) (string, []diag.Diagnostic) {
	value, diags := consistentValue(actionFlows, diag.FlowConflict, "flow", rel)
	if value != "" {
		return canonical(value), diags
	}

	if meta := metadataField(object, "flow"); meta != "" {
		return canonical(meta), diags
	}

	if cfg.GroupBy == GroupByFolder {
		if folder := firstFolderComponent(rel); folder != "" {
			return canonical(folder), diags
		}
	}

	if cfg.DefaultFlow != "" {
		return canonical(cfg.DefaultFlow), diags
	}

	diags = append(diags, diag.New(diag.MissingFlow, rel,
		fmt.Sprintf("flow name missing; using %s", reservedFlow)))
	return reservedFlow, diags
}

// consistentValue enforces the cross-action consistency rule: all actions
// that specify the field must agree. On disagreement the first occurrence is
// the resolved value and a conflict diagnostic is recorded; whether that is
// fatal is decided later against the active mode.
func consistentValue(values []string, kind diag.Kind, label, rel string) (string, []diag.Diagnostic) {
	if len(values) == 0 {
		return "", nil
	}

	unique := make([]string, len(values))
	copy(unique, values)
	sort.Strings(unique)
	unique = dedupe(unique)

	if len(unique) > 1 {
		d := diag.New(kind, rel, fmt.Sprintf("inconsistent %s values: %s; using %s",
			label, strings.Join(unique, ", "), values[0]))
		return values[0], []diag.Diagnostic{d}
	}
	return unique[0], nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for _, v := range sorted {
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	return out
}

// metadataField reads a string field from the document-level metadata object.
func metadataField(object map[string]any, field string) string {
	meta, ok := object[metadataKey].(map[string]any)
	if !ok {
		return ""
	}
	value, _ := meta[field].(string)
	return value
}

// firstFolderComponent returns the leading directory of a nested relative
// path, or "" for files at the root of the cards directory.
func firstFolderComponent(rel string) string {
	parts := strings.Split(rel, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

func fileStem(rel string) string {
	base := path.Base(rel)
	return strings.TrimSuffix(base, path.Ext(base))
}

// canonical NFC-normalizes a resolved identity so equality is stable across
// differently-encoded inputs.
func canonical(value string) string {
	return norm.NFC.String(value)
}

package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/greentic-ai/cards2flow/internal/ir"
)

// Kind enumerates the diagnostic taxonomy.
type Kind string

const (
	ParseError         Kind = "parse_error"
	IgnoredFile        Kind = "ignored_file"
	IdentityConflict   Kind = "identity_conflict"
	FlowConflict       Kind = "flow_conflict"
	MissingFlow        Kind = "missing_flow"
	MissingRouteTarget Kind = "missing_route_target"
	DuplicateRouteKey  Kind = "duplicate_route_key"
	DuplicateCardID    Kind = "duplicate_card_id"
	MarkerCorruption   Kind = "marker_corruption"
	Validation         Kind = "validation"
	PackOutput         Kind = "pack_output"
)

// Severity is the resolved weight of a diagnostic under a given mode.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Severity resolves the kind against the active mode. MarkerCorruption is
// fatal in both modes; IgnoredFile, Validation and PackOutput are permanent
// warnings; everything else escalates only under strict.
func (k Kind) Severity(strict bool) Severity {
	switch k {
	case MarkerCorruption:
		return SeverityError
	case IgnoredFile, Validation, PackOutput:
		return SeverityWarning
	default:
		if strict {
			return SeverityError
		}
		return SeverityWarning
	}
}

// NoAction marks a diagnostic that is not tied to a specific action entry.
const NoAction = -1

// Diagnostic is one recorded condition with its source location.
type Diagnostic struct {
	Kind        Kind   `json:"kind"`
	Path        string `json:"path,omitempty"`
	ActionIndex int    `json:"action_index"` // NoAction when file-level
	Message     string `json:"message"`
}

// New builds a file-level diagnostic.
func New(kind Kind, path, message string) Diagnostic {
	return Diagnostic{Kind: kind, Path: path, ActionIndex: NoAction, Message: message}
}

// At builds a diagnostic tied to an action index within a card.
func At(kind Kind, path string, actionIndex int, message string) Diagnostic {
	return Diagnostic{Kind: kind, Path: path, ActionIndex: actionIndex, Message: message}
}

// String renders the diagnostic with its location, for CLI error listings.
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Path != "" {
		b.WriteString(d.Path)
		if d.ActionIndex != NoAction {
			fmt.Fprintf(&b, " (action %d)", d.ActionIndex)
		}
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s: %s", d.Kind, d.Message)
	return b.String()
}

// Warning converts the diagnostic to its manifest representation.
func (d Diagnostic) Warning() ir.Warning {
	w := ir.Warning{Kind: string(d.Kind), Path: d.Path, Message: d.Message}
	if d.ActionIndex != NoAction {
		idx := d.ActionIndex
		w.ActionIndex = &idx
	}
	return w
}

// Collector accumulates diagnostics from all pipeline stages.
// It is not safe for concurrent use; parallel producers build their own
// slices and merge them afterward via Append.
type Collector struct {
	diags []Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records a single diagnostic.
func (c *Collector) Add(d Diagnostic) {
	c.diags = append(c.diags, d)
}

// Append concatenates a producer's diagnostic list onto the collector.
func (c *Collector) Append(ds []Diagnostic) {
	c.diags = append(c.diags, ds...)
}

// Len reports the number of accumulated diagnostics.
func (c *Collector) Len() int {
	return len(c.diags)
}

// Sorted returns all diagnostics ordered by path, action index, kind and
// message, for stable reporting independent of producer interleaving.
func (c *Collector) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].ActionIndex != out[j].ActionIndex {
			return out[i].ActionIndex < out[j].ActionIndex
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// Fatal returns the sorted subset whose severity resolves to error under the
// given mode. A non-empty result means generation must abort with no output
// files written or modified.
func (c *Collector) Fatal(strict bool) []Diagnostic {
	var fatal []Diagnostic
	for _, d := range c.Sorted() {
		if d.Kind.Severity(strict) == SeverityError {
			fatal = append(fatal, d)
		}
	}
	return fatal
}

// Warnings returns the sorted subset that stays at warning severity under
// the given mode.
func (c *Collector) Warnings(strict bool) []Diagnostic {
	var warns []Diagnostic
	for _, d := range c.Sorted() {
		if d.Kind.Severity(strict) == SeverityWarning {
			warns = append(warns, d)
		}
	}
	return warns
}

// ManifestWarnings converts the sorted diagnostics to manifest warnings.
func (c *Collector) ManifestWarnings() []ir.Warning {
	warnings := make([]ir.Warning, 0, len(c.diags))
	for _, d := range c.Sorted() {
		warnings = append(warnings, d.Warning())
	}
	return warnings
}

package ir

import "encoding/json"

// RouteKind discriminates the two resolvable route target forms.
type RouteKind string

const (
	// RouteStep targets a named step via the action's data.step field.
	RouteStep RouteKind = "step"
	// RouteCard targets another card via the action's data.cardId field.
	RouteCard RouteKind = "card_id"
)

// RouteTarget is the tagged route destination of a card action. A nil
// *RouteTarget means the action routes nowhere (the card may be terminal).
type RouteTarget struct {
	Kind  RouteKind `json:"kind"`
	Value string    `json:"value"`
}

// CardAction is one entry of a card's top-level action list. Data retains the
// action's raw associated data for later templating; it is never interpreted
// beyond the documented resolution fields.
type CardAction struct {
	ActionType string          `json:"action_type"`
	Title      string          `json:"title,omitempty"`
	Target     *RouteTarget    `json:"target,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// CardDoc is a recognized card document with its resolved identity.
type CardDoc struct {
	RelPath  string       `json:"rel_path"`
	AbsPath  string       `json:"abs_path"`
	CardID   string       `json:"card_id"`
	FlowName string       `json:"flow_name"`
	Actions  []CardAction `json:"actions"`
}

// FlowGroup is the set of cards belonging to one workflow, ordered by
// relative path. Read-only after grouping.
type FlowGroup struct {
	FlowName string    `json:"flow_name"`
	Cards    []CardDoc `json:"cards"`
}

// FlowSummary is the per-flow entry of the run diagnostics.
type FlowSummary struct {
	FlowName  string `json:"flow_name"`
	CardCount int    `json:"card_count"`
}

// Warning is the manifest-facing record of one diagnostic.
type Warning struct {
	Kind        string `json:"kind"`
	Path        string `json:"path,omitempty"`
	ActionIndex *int   `json:"action_index,omitempty"`
	Message     string `json:"message"`
}

// InputInfo records the configuration a manifest was generated under.
type InputInfo struct {
	CardsDir    string `json:"cards_dir"`
	GroupBy     string `json:"group_by,omitempty"`
	DefaultFlow string `json:"default_flow,omitempty"`
	Strict      bool   `json:"strict"`
}

// RunDiagnostics summarizes one generation run for external inspection.
type RunDiagnostics struct {
	WorkspaceRoot  string        `json:"workspace_root"`
	DistArtifact   string        `json:"dist_artifact,omitempty"`
	FlowPaths      []string      `json:"flow_paths"`
	CardsProcessed int           `json:"cards_processed"`
	Flows          []FlowSummary `json:"flows"`
	WarningsCount  int           `json:"warnings_count"`
}

// Manifest is the machine-readable record of one run, written to
// .cards2flow/manifest.json and consumed only by external tooling.
type Manifest struct {
	Version     int            `json:"version"`
	RunID       string         `json:"run_id"`
	GeneratedAt string         `json:"generated_at"`
	Input       InputInfo      `json:"input"`
	Flows       []FlowGroup    `json:"flows"`
	Warnings    []Warning      `json:"warnings"`
	Diagnostics RunDiagnostics `json:"diagnostics"`
}

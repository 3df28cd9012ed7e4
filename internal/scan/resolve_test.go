package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greentic-ai/cards2flow/internal/diag"
	"github.com/greentic-ai/cards2flow/internal/ir"
)

func TestResolveCardIDActionFieldWins(t *testing.T) {
	object := map[string]any{
		"greentic": map[string]any{"cardId": "from-meta"},
	}
	id, diags := resolveCardID([]string{"from-action", "from-action"}, object, "cards/welcome.json")
	assert.Equal(t, "from-action", id)
	assert.Empty(t, diags)
}

func TestResolveCardIDMetadataFallback(t *testing.T) {
	object := map[string]any{
		"greentic": map[string]any{"cardId": "from-meta"},
	}
	id, diags := resolveCardID(nil, object, "cards/welcome.json")
	assert.Equal(t, "from-meta", id)
	assert.Empty(t, diags)
}

func TestResolveCardIDFilenameStemFallback(t *testing.T) {
	id, diags := resolveCardID(nil, map[string]any{}, "nested/dir/Welcome Card.json")
	assert.Equal(t, "Welcome Card", id)
	assert.Empty(t, diags)
}

func TestResolveCardIDConflictKeepsFirstOccurrence(t *testing.T) {
	id, diags := resolveCardID([]string{"beta", "alpha"}, map[string]any{}, "cards/a.json")
	assert.Equal(t, "beta", id)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.IdentityConflict, diags[0].Kind)
	assert.Contains(t, diags[0].Message, "alpha, beta")
}

func TestResolveFlowNamePriorityChain(t *testing.T) {
	cfg := Config{GroupBy: GroupByFolder, DefaultFlow: "fallback"}
	object := map[string]any{
		"greentic": map[string]any{"flow": "meta-flow"},
	}

	// Action field beats everything.
	name, diags := resolveFlowName([]string{"action-flow"}, object, "support/a.json", cfg)
	assert.Equal(t, "action-flow", name)
	assert.Empty(t, diags)

	// Metadata beats folder and default.
	name, _ = resolveFlowName(nil, object, "support/a.json", cfg)
	assert.Equal(t, "meta-flow", name)

	// Folder beats default when folder grouping is on.
	name, _ = resolveFlowName(nil, map[string]any{}, "support/a.json", cfg)
	assert.Equal(t, "support", name)

	// Root-level files have no folder component.
	name, _ = resolveFlowName(nil, map[string]any{}, "a.json", cfg)
	assert.Equal(t, "fallback", name)
}

func TestResolveFlowNameFolderInactiveWithoutGrouping(t *testing.T) {
	cfg := Config{DefaultFlow: "fallback"}
	name, diags := resolveFlowName(nil, map[string]any{}, "support/a.json", cfg)
	assert.Equal(t, "fallback", name)
	assert.Empty(t, diags)
}

func TestResolveFlowNameReservedFallback(t *testing.T) {
	name, diags := resolveFlowName(nil, map[string]any{}, "a.json", Config{})
	assert.Equal(t, "misc", name)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.MissingFlow, diags[0].Kind)
}

func TestResolveFlowNameConflict(t *testing.T) {
	name, diags := resolveFlowName([]string{"sales", "support"}, map[string]any{}, "a.json", Config{})
	assert.Equal(t, "sales", name)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.FlowConflict, diags[0].Kind)
}

func TestCanonicalNormalizesToNFC(t *testing.T) {
	decomposed := "cafe\u0301"
	precomposed := "caf\u00e9"
	assert.NotEqual(t, precomposed, decomposed)
	assert.Equal(t, canonical(precomposed), canonical(decomposed))
}

func TestRouteKeyPriority(t *testing.T) {
	withTarget := ir.CardAction{
		ActionType: "Action.Submit",
		Title:      "Next",
		Target:     &ir.RouteTarget{Kind: ir.RouteStep, Value: "checkout"},
	}
	assert.Equal(t, "checkout", RouteKey(withTarget, 0))

	titled := ir.CardAction{ActionType: "Action.Submit", Title: "Next"}
	assert.Equal(t, "Next", RouteKey(titled, 0))

	bare := ir.CardAction{ActionType: "Action.Submit"}
	assert.Equal(t, "action-3", RouteKey(bare, 2))
}

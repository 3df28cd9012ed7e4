package scan

import (
	"encoding/json"
	"fmt"

	"github.com/greentic-ai/cards2flow/internal/diag"
	"github.com/greentic-ai/cards2flow/internal/ir"
)

// extractedActions holds the action records of one card plus the identity and
// flow values its actions carried, in action order.
type extractedActions struct {
	actions []ir.CardAction
	cardIDs []string
	flows   []string
	diags   []diag.Diagnostic
}

// extractActions reads the card's top-level action list. Nested or composite
// actions are not descended into. Non-object entries are skipped with a
// warning so one malformed action never hides the rest of the card.
func extractActions(object map[string]any, rel string) extractedActions {
	var out extractedActions

	list, ok := object["actions"].([]any)
	if !ok {
		return out
	}

	for i, entry := range list {
		action, ok := entry.(map[string]any)
		if !ok {
			out.diags = append(out.diags, diag.At(diag.IgnoredFile, rel, i,
				"ignored non-object action"))
			continue
		}

		record := ir.CardAction{ActionType: "Unknown"}
		if typ, ok := action["type"].(string); ok && typ != "" {
			record.ActionType = typ
		}
		if title, ok := action["title"].(string); ok {
			record.Title = title
		}

		if data, ok := action["data"]; ok {
			raw, err := json.Marshal(data)
			if err != nil {
				out.diags = append(out.diags, diag.At(diag.ParseError, rel, i,
					fmt.Sprintf("unserializable action data: %v", err)))
			} else {
				record.Data = raw
			}
		}

		dataObj, _ := action["data"].(map[string]any)
		if cardID, ok := dataObj["cardId"].(string); ok && cardID != "" {
			out.cardIDs = append(out.cardIDs, cardID)
		}
		if flow, ok := dataObj["flow"].(string); ok && flow != "" {
			out.flows = append(out.flows, flow)
		}
		record.Target = routeTarget(dataObj)

		out.actions = append(out.actions, record)
	}

	return out
}

// routeTarget resolves the action's route destination: an explicit step
// reference wins over a card reference; neither means no route.
func routeTarget(dataObj map[string]any) *ir.RouteTarget {
	if step, ok := dataObj["step"].(string); ok && step != "" {
		return &ir.RouteTarget{Kind: ir.RouteStep, Value: step}
	}
	if cardID, ok := dataObj["cardId"].(string); ok && cardID != "" {
		return &ir.RouteTarget{Kind: ir.RouteCard, Value: cardID}
	}
	return nil
}

// RouteKey chooses the label under which an action's edge is emitted:
// the target value if non-empty, else the action title, else a stable
// positional label. Every edge gets a deterministic, non-empty key even when
// authored metadata is sparse.
func RouteKey(action ir.CardAction, index int) string {
	if action.Target != nil && action.Target.Value != "" {
		return action.Target.Value
	}
	if action.Title != "" {
		return action.Title
	}
	return fmt.Sprintf("action-%d", index+1)
}

package graph

import (
	"fmt"
	"sort"

	"github.com/greentic-ai/cards2flow/internal/diag"
	"github.com/greentic-ai/cards2flow/internal/ir"
	"github.com/greentic-ai/cards2flow/internal/scan"
)

// assetPrefix is where card documents live inside the generated workspace.
const assetPrefix = "assets/cards/"

// Graph is the routing graph of one flow.
type Graph struct {
	FlowName string
	Nodes    map[string]*Node
	Order    []string // deterministic emission order, see NodeOrder
}

// Node is one graph vertex. A real node is backed by a card document and
// carries its asset path; a stub stands in for a route target that could not
// be resolved to a card.
type Node struct {
	Name      string
	AssetPath string // empty for stubs
	Stub      bool
	Routes    []Route
}

// Terminal reports whether the node has no outgoing routes and is therefore
// an implicit end of flow.
func (n *Node) Terminal() bool {
	return len(n.Routes) == 0
}

// Route is a directed, keyed transition to another node in the same graph.
type Route struct {
	Key    string
	Target string
}

// Build constructs the flow graph for one group. It never fails: conditions
// that are fatal under strict mode are recorded as diagnostics and decided
// at the gate, so a single run reports every routing problem in the input.
func Build(group ir.FlowGroup) (*Graph, []diag.Diagnostic) {
	g := &Graph{
		FlowName: group.FlowName,
		Nodes:    make(map[string]*Node),
	}
	var diags []diag.Diagnostic

	// Node phase: one real node per distinct card identity. Grouping already
	// dropped duplicate identities, so first write wins here by construction.
	for _, card := range group.Cards {
		if _, ok := g.Nodes[card.CardID]; ok {
			continue
		}
		g.Nodes[card.CardID] = &Node{
			Name:      card.CardID,
			AssetPath: assetPrefix + card.RelPath,
		}
	}

	// Edge phase: resolve every routed action against the complete node set.
	for _, card := range group.Cards {
		source := g.Nodes[card.CardID]
		usedKeys := make(map[string]bool)

		for i, action := range card.Actions {
			if action.Target == nil {
				continue
			}
			target := action.Target.Value

			if _, ok := g.Nodes[target]; !ok {
				diags = append(diags, diag.At(diag.MissingRouteTarget, card.RelPath, i,
					fmt.Sprintf("missing target %s referenced from card %s in flow %s; creating stub",
						target, card.CardID, group.FlowName)))
				g.Nodes[target] = &Node{Name: target, Stub: true}
			}

			key := scan.RouteKey(action, i)
			if usedKeys[key] {
				// The downstream DSL cannot disambiguate two routes under
				// one key; keep the first-registered route.
				diags = append(diags, diag.At(diag.DuplicateRouteKey, card.RelPath, i,
					fmt.Sprintf("duplicate route key %s in card %s; keeping first route",
						key, card.CardID)))
				continue
			}
			usedKeys[key] = true

			source.Routes = append(source.Routes, Route{Key: key, Target: target})
		}
	}

	g.Order = NodeOrder(g)
	return g, diags
}

// NodeOrder returns a deterministic topological order over the graph's
// nodes: Kahn's algorithm with a lexicographically sorted ready queue,
// sources first. Nodes left over by cycles are appended in name order.
func NodeOrder(g *Graph) []string {
	indegree := make(map[string]int, len(g.Nodes))
	for name := range g.Nodes {
		indegree[name] = 0
	}
	for _, node := range g.Nodes {
		for _, route := range node.Routes {
			indegree[route.Target]++
		}
	}

	var ready []string
	for name, count := range indegree {
		if count == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	ordered := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, name)

		for _, route := range g.Nodes[name].Routes {
			indegree[route.Target]--
			if indegree[route.Target] == 0 {
				ready = append(ready, route.Target)
				sort.Strings(ready)
			}
		}
	}

	if len(ordered) != len(g.Nodes) {
		emitted := make(map[string]bool, len(ordered))
		for _, name := range ordered {
			emitted[name] = true
		}
		var remaining []string
		for name := range g.Nodes {
			if !emitted[name] {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		ordered = append(ordered, remaining...)
	}

	return ordered
}

// EntryNode returns the first real node in emission order, used as the
// flow's documented entry point. Empty when the flow has only stubs.
func (g *Graph) EntryNode() string {
	for _, name := range g.Order {
		if !g.Nodes[name].Stub {
			return name
		}
	}
	return ""
}

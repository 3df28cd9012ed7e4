package emit

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/greentic-ai/cards2flow/internal/graph"
)

// ComponentRef is the component every emitted node executes. The flow DSL
// schema itself is owned by the packaging tool; this emitter reproduces only
// the subset needed for nodes, routes and the end-of-flow marker.
const ComponentRef = "oci://ghcr.io/greentic-ai/components/component-adaptive-card:latest"

// stubAssetPath marks a stub node's missing card reference in the emitted
// flow so authors can spot unresolved targets.
const stubAssetPath = "TODO"

// RenderFlow serializes a flow graph into the DSL text representation:
// one node block per graph node in deterministic order, one route entry per
// edge keyed by its route key, and an explicit end-of-flow route on terminal
// nodes.
func RenderFlow(g *graph.Graph) (string, error) {
	doc := mapping(
		scalar("id"), scalar(g.FlowName),
		scalar("type"), scalar("messaging"),
		scalar("nodes"), nodesMapping(g),
	)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encoding flow %s: %w", g.FlowName, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding flow %s: %w", g.FlowName, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func nodesMapping(g *graph.Graph) *yaml.Node {
	var pairs []*yaml.Node
	for _, name := range g.Order {
		pairs = append(pairs, scalar(name), nodeMapping(g.Nodes[name]))
	}
	return mapping(pairs...)
}

func nodeMapping(n *graph.Node) *yaml.Node {
	return mapping(
		scalar("component.exec"), mapping(
			scalar("component"), scalar(ComponentRef),
			scalar("operation"), scalar("card"),
			scalar("input"), inputMapping(n),
		),
		scalar("routing"), routingSequence(n),
	)
}

func inputMapping(n *graph.Node) *yaml.Node {
	cardSpec := []*yaml.Node{scalar("asset_path"), scalar(n.AssetPath)}
	if n.Stub {
		cardSpec = []*yaml.Node{
			scalar("asset_path"), scalar(stubAssetPath),
			scalar("stub"), boolean(true),
		}
	}
	return mapping(
		scalar("card_source"), scalar("asset"),
		scalar("card_spec"), mapping(cardSpec...),
		scalar("interaction"), mapping(
			scalar("action_id"), scalar("action-1"),
			scalar("card_instance_id"), scalar(n.Name),
			scalar("interaction_type"), scalar("Submit"),
			scalar("raw_inputs"), emptyMapping(),
			scalar("enabled"), boolean(!n.Terminal()),
		),
		scalar("mode"), scalar("renderAndValidate"),
		scalar("node_id"), scalar(n.Name),
		scalar("payload"), emptyMapping(),
		scalar("session"), emptyMapping(),
		scalar("state"), emptyMapping(),
		scalar("validation_mode"), scalar("warn"),
	)
}

func routingSequence(n *graph.Node) *yaml.Node {
	if n.Terminal() {
		return sequence(mapping(scalar("out"), boolean(true)))
	}
	var entries []*yaml.Node
	for _, route := range n.Routes {
		entries = append(entries, mapping(
			scalar("key"), scalar(route.Key),
			scalar("to"), scalar(route.Target),
		))
	}
	return sequence(entries...)
}

// yaml.Node constructors. Mappings are built from explicit key/value pairs
// so the emitted document order is exactly the order given, never map
// iteration order.

func mapping(pairs ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: pairs}
}

func emptyMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: yaml.FlowStyle}
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func boolean(value bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprintf("%t", value)}
}

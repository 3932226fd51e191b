package modelio

import (
	"fmt"
	"slices"

	"github.com/rnshah9/root/pkg/graph"
)

// Node kind strings used in serialized models.
const (
	KindVariable      = "variable"
	KindFunction      = "function"
	KindDensity       = "density"
	KindCachedDensity = "cached-density"
	KindNormalized    = "normalized"
)

// Model is the canonical serialization format for probability models.
// Used for API payloads, storage, caching, and hand-written model files.
//
// The format is human-readable and designed for round-trip fidelity:
// import → unfold → export → re-import produces identical results.
type Model struct {
	Name  string `json:"name,omitempty" bson:"name,omitempty" toml:"name"`
	Top   string `json:"top" bson:"top" toml:"top"`
	Nodes []Node `json:"nodes" bson:"nodes" toml:"nodes"`
	Edges []Edge `json:"edges" bson:"edges" toml:"edges"`
}

// Node is the serialized form of a graph node.
type Node struct {
	ID             string              `json:"id" bson:"id" toml:"id"`
	Kind           string              `json:"kind,omitempty" bson:"kind,omitempty" toml:"kind"`
	SelfNormalized bool                `json:"self_normalized,omitempty" bson:"self_normalized,omitempty" toml:"self_normalized"`
	Overrides      map[string][]string `json:"norm_overrides,omitempty" bson:"norm_overrides,omitempty" toml:"norm_overrides"`
	Meta           map[string]any      `json:"meta,omitempty" bson:"meta,omitempty" toml:"meta"`
}

// Edge represents a directed dependency: From reads To. Shape marks purely
// structural dependencies that carry no value flow.
type Edge struct {
	From  string `json:"from" bson:"from" toml:"from"`
	To    string `json:"to" bson:"to" toml:"to"`
	Shape bool   `json:"shape,omitempty" bson:"shape,omitempty" toml:"shape"`
}

// FromGraph converts an expression graph to its serialization format.
// Nodes are sorted by ID for deterministic output.
func FromGraph(g *graph.Graph, top string) Model {
	nodes := g.Nodes()
	out := Model{
		Top:   top,
		Nodes: make([]Node, len(nodes)),
	}

	for i, n := range nodes {
		out.Nodes[i] = Node{
			ID:             n.ID,
			Kind:           kindToString(n.Kind),
			SelfNormalized: n.SelfNormalized,
			Overrides:      copyOverrides(n.Overrides),
			Meta:           copyMeta(n.Meta),
		}
	}

	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, Edge{From: e.From, To: e.To, Shape: !e.Value})
	}

	return out
}

// ToGraph converts a serialized model to an expression graph.
// Returns an error if the structure violates graph constraints or
// references an unknown node kind.
func ToGraph(m Model) (*graph.Graph, error) {
	g := graph.New()

	for _, nj := range m.Nodes {
		kind, err := kindFromString(nj.Kind)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nj.ID, err)
		}
		n := graph.Node{
			ID:             nj.ID,
			Kind:           kind,
			SelfNormalized: nj.SelfNormalized,
			Overrides:      copyOverrides(nj.Overrides),
			Meta:           copyMeta(nj.Meta),
		}
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("add node %s: %w", nj.ID, err)
		}
	}

	for _, ej := range m.Edges {
		if err := g.AddEdge(graph.Edge{From: ej.From, To: ej.To, Value: !ej.Shape}); err != nil {
			return nil, fmt.Errorf("add edge %s→%s: %w", ej.From, ej.To, err)
		}
	}

	if m.Top != "" {
		if _, ok := g.Node(m.Top); !ok {
			return nil, fmt.Errorf("top node %q not in model", m.Top)
		}
	}

	return g, nil
}

func copyMeta(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

func copyOverrides(m map[string][]string) map[string][]string {
	if len(m) == 0 {
		return nil
	}
	result := make(map[string][]string, len(m))
	for k, v := range m {
		result[k] = slices.Clone(v)
	}
	return result
}

func kindToString(k graph.NodeKind) string {
	switch k {
	case graph.KindFunction:
		return KindFunction
	case graph.KindDensity:
		return KindDensity
	case graph.KindCachedDensity:
		return KindCachedDensity
	case graph.KindNormalized:
		return KindNormalized
	default:
		return KindVariable
	}
}

func kindFromString(s string) (graph.NodeKind, error) {
	switch s {
	case KindVariable, "":
		return graph.KindVariable, nil
	case KindFunction:
		return graph.KindFunction, nil
	case KindDensity:
		return graph.KindDensity, nil
	case KindCachedDensity:
		return graph.KindCachedDensity, nil
	case KindNormalized:
		return graph.KindNormalized, nil
	default:
		return 0, fmt.Errorf("unknown node kind %q", s)
	}
}

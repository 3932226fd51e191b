package graph

import (
	"maps"
	"slices"
)

// Metadata stores arbitrary key-value pairs attached to nodes.
// It is commonly used to carry display labels or model annotations.
// Metadata maps are never nil - they are automatically initialized
// to empty maps when a node is added to a graph.
type Metadata map[string]any

// NodeKind distinguishes the roles a node can play in a probability model.
// The kind is set at construction time and queried directly, so no type
// inspection is needed anywhere in the engine.
type NodeKind int

const (
	// KindVariable is a fundamental leaf with no dependencies of its own,
	// e.g. an observable or a fit parameter.
	KindVariable NodeKind = iota
	// KindFunction is a derived expression computed from its servers.
	KindFunction
	// KindDensity is a probability density. Densities are assigned a
	// normalization set during unfolding and may be wrapped by a
	// synthetic normalized node.
	KindDensity
	// KindCachedDensity is a density with an internal evaluation cache.
	// Cached densities are special-cased during unfolding: they are always
	// wrapped even when self-normalized, and clients of this kind keep
	// referencing the original node during redirection.
	KindCachedDensity
	// KindNormalized is a synthetic wrapper created by
	// [Graph.NewNormalizedWrapper]. Wrappers apply a normalization
	// integral around an existing density and live only for the duration
	// of an unfolding session.
	KindNormalized
)

// String returns a human-readable kind name used in diagnostics.
func (k NodeKind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindFunction:
		return "function"
	case KindDensity:
		return "density"
	case KindCachedDensity:
		return "cached-density"
	case KindNormalized:
		return "normalized"
	default:
		return "unknown"
	}
}

// Node is a vertex in the expression graph.
//
// The zero value is not usable - ID must be set before adding to a Graph.
// Adjacency (servers and clients) lives on the Graph, not on the node.
type Node struct {
	ID   string   // Unique identifier (also used as display label)
	Kind NodeKind // Role of the node in the model
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)

	// SelfNormalized marks densities that already apply their own
	// normalization. Self-normalized densities are not wrapped during
	// unfolding unless they are cached densities.
	SelfNormalized bool

	// Overrides maps a server ID to the normalization set that server
	// should be evaluated under, overriding plain inheritance of the
	// client's own set. A missing entry means the server inherits.
	// This is how product-like densities restrict each factor to the
	// variables it actually covers.
	Overrides map[string][]string

	attrs  map[string]bool
	primed map[string]struct{}
}

// IsDensity reports whether the node is a probability density of any
// flavor, including cached densities and synthetic normalized wrappers.
func (n *Node) IsDensity() bool {
	return n.Kind == KindDensity || n.Kind == KindCachedDensity || n.Kind == KindNormalized
}

// IsFundamental reports whether the node is a leaf with no dependencies.
func (n *Node) IsFundamental() bool { return n.Kind == KindVariable }

// IsDerived reports whether the node is computed from other nodes.
func (n *Node) IsDerived() bool { return n.Kind != KindVariable }

// IsSynthetic reports whether the node was created during unfolding rather
// than being part of the original model.
func (n *Node) IsSynthetic() bool { return n.Kind == KindNormalized }

// SetAttribute sets or clears a named boolean tag on the node.
// Clearing removes the tag entirely, so a node that has had every tag
// cleared compares equal to one that was never tagged.
func (n *Node) SetAttribute(name string, on bool) {
	if !on {
		delete(n.attrs, name)
		return
	}
	if n.attrs == nil {
		n.attrs = make(map[string]bool)
	}
	n.attrs[name] = true
}

// HasAttribute reports whether the named tag is set.
func (n *Node) HasAttribute(name string) bool { return n.attrs[name] }

// Attributes returns all set tags in sorted order.
// Returns nil if no tags are set.
func (n *Node) Attributes() []string {
	if len(n.attrs) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(n.attrs))
}

// NormSetForServer returns the normalization set the given server should be
// evaluated under instead of inheriting this node's set. The second return
// value is false if no override exists. Returned overrides are canonicalized.
func (n *Node) NormSetForServer(serverID string) (NormSet, bool) {
	if n.Overrides == nil {
		return nil, false
	}
	ns, ok := n.Overrides[serverID]
	if !ok {
		return nil, false
	}
	return Canonical(ns), true
}

// Prime records that the node has been evaluated once under the given
// normalization set, warming any internal evaluation cache. Priming is
// sticky: it survives the unfolding session that triggered it, mirroring
// the evaluation-cache side effect of the legacy evaluation path.
func (n *Node) Prime(ns NormSet) {
	if n.primed == nil {
		n.primed = make(map[string]struct{})
	}
	n.primed[Canonical(ns).String()] = struct{}{}
}

// Primed reports whether the node has been primed for the given set.
func (n *Node) Primed(ns NormSet) bool {
	_, ok := n.primed[Canonical(ns).String()]
	return ok
}

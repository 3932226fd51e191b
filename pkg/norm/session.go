package norm

import (
	"fmt"

	"github.com/rnshah9/root/pkg/graph"
)

// placeholderPrefix names the synthetic root a session inserts above the
// top node. The session does not own the top node, but it does own the
// placeholder, which gives the rewiring passes a stable container to
// redirect even when the top node itself gets wrapped.
const placeholderPrefix = "__normfold_top"

// Session is a scoped unfolding of normalization integrals. Opening a
// session rewrites the graph in place; closing it restores the original
// topology exactly. The session exclusively owns the synthetic wrapper
// nodes and normalization-set entries it creates.
//
// Sessions are single-threaded and non-reentrant: nothing may observe or
// mutate the graph between Open and Close.
type Session struct {
	g             *graph.Graph
	placeholderID string

	normSets map[string]graph.NormSet
	replaced []string
	created  []string

	normSetWasEmpty bool
	closed          bool
}

// Open unfolds normalization integrals below topID for the given
// normalization set and returns the session that scopes the rewrite.
//
// If two graph paths request incompatible normalization sets for the same
// node, Open fails with a *ConflictError. The conflict is detected before
// any wrapping happens, so the graph is left exactly as it was and no
// session needs to be closed.
func Open(g *graph.Graph, topID string, normSet graph.NormSet) (*Session, error) {
	if _, ok := g.Node(topID); !ok {
		return nil, fmt.Errorf("norm: open session: unknown top node %q", topID)
	}

	placeholderID := placeholderPrefix
	for suffix := 2; ; suffix++ {
		if _, exists := g.Node(placeholderID); !exists {
			break
		}
		placeholderID = fmt.Sprintf("%s__%d", placeholderPrefix, suffix)
	}
	if err := g.AddNode(graph.Node{ID: placeholderID, Kind: graph.KindFunction}); err != nil {
		return nil, fmt.Errorf("norm: open session: %w", err)
	}
	if err := g.AddEdge(graph.Edge{From: placeholderID, To: topID, Value: true}); err != nil {
		g.RemoveNode(placeholderID)
		return nil, fmt.Errorf("norm: open session: %w", err)
	}

	s := &Session{
		g:               g,
		placeholderID:   placeholderID,
		normSets:        make(map[string]graph.NormSet),
		normSetWasEmpty: len(normSet) == 0,
	}

	replaced, created, err := unfoldIntegrals(g, placeholderID, normSet, s.normSets)
	if err != nil {
		g.RemoveNode(placeholderID)
		return nil, err
	}
	s.replaced = replaced
	s.created = created

	return s, nil
}

// Top returns the ID of the effective top node: the original top, or the
// synthetic wrapper around it if the top node itself was wrapped. Use this
// for evaluation while the session is open.
func (s *Session) Top() string {
	servers := s.g.Servers(s.placeholderID)
	if len(servers) == 0 {
		return ""
	}
	return servers[0].To
}

// NormSet returns the pruned normalization set assigned to the given node
// during this session, or nil if none was assigned.
func (s *Session) NormSet(id string) graph.NormSet {
	return s.normSets[id]
}

// NormSets returns a copy of the per-density normalization-set assignments.
func (s *Session) NormSets() map[string]graph.NormSet {
	out := make(map[string]graph.NormSet, len(s.normSets))
	for id, ns := range s.normSets {
		out[id] = append(graph.NormSet(nil), ns...)
	}
	return out
}

// Replaced returns the IDs of the nodes that were substituted, in
// substitution order.
func (s *Session) Replaced() []string { return append([]string(nil), s.replaced...) }

// Created returns the IDs of the synthetic wrappers, index-aligned with
// Replaced.
func (s *Session) Created() []string { return append([]string(nil), s.created...) }

// Close folds every substitution back, removes the synthetic wrappers and
// the placeholder root, and releases the session's normalization-set
// entries. The graph is restored to its pre-session topology exactly.
// Close never fails and is idempotent.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	// If there was no normalization set to unfold the graph for, there is
	// also nothing to fold back in.
	if !s.normSetWasEmpty {
		patcher{s.g}.fold(s.placeholderID, s.replaced, s.created)
		for _, id := range s.created {
			s.g.RemoveNode(id)
		}
	}

	s.g.RemoveNode(s.placeholderID)
	s.normSets = nil
	s.replaced = nil
	s.created = nil
}

package norm

import (
	"github.com/rnshah9/root/pkg/graph"
)

// originMarker is the attribute tag temporarily set during redirection to
// record which node a replacement logically stands for. It preserves
// name-based lookups while a rewire is in flight and is always cleared
// before the patch operation returns.
const originMarker = "origname:"

// patcher performs the actual graph surgery of an unfolding session: the
// per-substitution client redirection on apply, and one batched recursive
// redirection on undo. Both directions leave no markers behind.
type patcher struct {
	g *graph.Graph
}

// substitute redirects every client of oldID that is part of the collected
// graph to newID. Cached-density clients are exempt and keep referencing
// the original node; this mirrors a known necessary exception in the legacy
// engine and must not be generalized.
func (p patcher) substitute(collected *collection, newID, oldID string) {
	marker := originMarker + oldID
	newNode, _ := p.g.Node(newID)
	newNode.SetAttribute(marker, true)

	for _, clientID := range p.g.Clients(oldID) {
		if !collected.contains(clientID) {
			continue
		}
		client, _ := p.g.Node(clientID)
		if client.Kind == graph.KindCachedDensity {
			continue
		}
		p.g.RedirectServers(clientID, map[string]string{oldID: newID})
	}

	newNode.SetAttribute(marker, false)
}

// fold restores the graph as if unfolding never happened: every remaining
// reference to created[i] is rewritten back to replaced[i]. The two lists
// must be index-aligned; a mismatch is a programming error.
//
// The whole undo is a single batched recursive pass from topID, so
// multi-level substitutions resolve in one traversal.
func (p patcher) fold(topID string, replaced, created []string) {
	if len(replaced) != len(created) {
		panic("norm: substitution record out of sync: replaced and created lists differ in length")
	}

	repl := make(map[string]string, len(created))
	for i := range replaced {
		orig, _ := p.g.Node(replaced[i])
		orig.SetAttribute(originMarker+created[i], true)
		repl[created[i]] = replaced[i]
	}

	p.g.RecursiveRedirectServers(topID, repl)

	for i := range replaced {
		orig, _ := p.g.Node(replaced[i])
		orig.SetAttribute(originMarker+created[i], false)
	}
}

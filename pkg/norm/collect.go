package norm

import (
	"fmt"

	"github.com/rnshah9/root/pkg/graph"
)

// ConflictError reports that the same node is reachable via two graph paths
// requesting incompatible normalization sets. This is a hard modelling
// error: a density cannot be evaluated under two different normalizations
// within one model.
type ConflictError struct {
	NodeID    string        // node with the conflicting requests
	NodeKind  graph.NodeKind
	Requested graph.NormSet // set requested by the conflicting client
	Existing  graph.NormSet // set assigned when the node was first reached

	RequestedBy string // client requesting the conflicting set
	FirstBy     string // client that caused the first assignment
}

// Error formats the conflict naming both sets and both requesting clients.
func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"%s %q is requested to be evaluated with two different normalization sets in the same model: "+
			"%s requested by %q, %s first requested by %q",
		e.NodeKind, e.NodeID, e.Requested, e.RequestedBy, e.Existing, e.FirstBy)
}

// collection holds the result of one collection pass: every node reachable
// from the top via value-server edges in stable first-visit order, and the
// normalization set assigned to each density.
type collection struct {
	nodes    []string
	inGraph  map[string]struct{}
	normSets map[string]graph.NormSet
	firstBy  map[string]string // density ID -> client that assigned its set
}

func (c *collection) contains(id string) bool {
	_, ok := c.inGraph[id]
	return ok
}

// collect walks the graph from topID following value-server edges only,
// assigning each density the normalization set it should be evaluated
// under. normSet must be canonical. The normSets map is populated in place
// so the caller can own the entries beyond the pass.
func collect(g *graph.Graph, topID string, normSet graph.NormSet, normSets map[string]graph.NormSet) (*collection, error) {
	c := &collection{
		inGraph:  make(map[string]struct{}),
		normSets: normSets,
		firstBy:  make(map[string]string),
	}
	if err := c.visit(g, topID, normSet, ""); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *collection) visit(g *graph.Graph, id string, normSet graph.NormSet, requestedBy string) error {
	// A normset assignment doubles as the visited marker: densities are
	// entered at most once per pass. Non-density nodes may be re-entered
	// from other branches; the node list stays deduplicated.
	if _, ok := c.normSets[id]; ok {
		return nil
	}

	if _, seen := c.inGraph[id]; !seen {
		c.inGraph[id] = struct{}{}
		c.nodes = append(c.nodes, id)
	}

	node, ok := g.Node(id)
	if !ok {
		return fmt.Errorf("collect: %w: %s", graph.ErrInvalidEdgeEndpoint, id)
	}

	// Normalization sets only need to be assigned to densities.
	if node.IsDensity() {
		c.normSets[id] = append(graph.NormSet(nil), normSet...)
		c.firstBy[id] = requestedBy
	}

	if !node.IsDerived() || node.IsFundamental() {
		return nil
	}

	for _, e := range g.Servers(id) {
		if !e.Value {
			continue
		}

		serverSet := normSet
		if override, ok := node.NormSetForServer(e.To); ok {
			serverSet = override
		}

		// The server must not already be part of the computation graph
		// with a different normalization set.
		if existing, ok := c.normSets[e.To]; ok {
			if len(existing) != len(serverSet) || !existing.Equal(serverSet) {
				server, _ := g.Node(e.To)
				return &ConflictError{
					NodeID:      e.To,
					NodeKind:    server.Kind,
					Requested:   serverSet,
					Existing:    existing,
					RequestedBy: id,
					FirstBy:     c.firstBy[e.To],
				}
			}
			continue
		}

		if err := c.visit(g, e.To, serverSet, id); err != nil {
			return err
		}
	}

	return nil
}

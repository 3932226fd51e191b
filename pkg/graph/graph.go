package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with
	// the same ID already exists. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownClientNode is returned by [Graph.AddEdge] when the From
	// node does not exist.
	ErrUnknownClientNode = errors.New("unknown client node")

	// ErrUnknownServerNode is returned by [Graph.AddEdge] when the To node
	// does not exist.
	ErrUnknownServerNode = errors.New("unknown server node")

	// ErrInvalidEdgeEndpoint is returned by [Graph.Validate] when an edge
	// references a node that doesn't exist. This indicates graph corruption.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrGraphHasCycle is returned by [Graph.Validate] when a dependency
	// cycle is detected. Expression graphs must be acyclic.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Edge is a directed dependency: From reads To's value. Value distinguishes
// servers that contribute to the client's computed value from purely
// structural dependencies.
type Edge struct {
	From  string // Client node ID
	To    string // Server node ID
	Value bool   // True if To contributes to From's computed value
}

// Graph is a directed acyclic expression graph with explicit forward
// (servers) and reverse (clients) adjacency, kept consistent on every
// mutation.
//
// The zero value is not usable - use New. Graph is not safe for concurrent
// use without external synchronization, and no operation may observe the
// graph while an unfolding session is rewiring it.
type Graph struct {
	nodes   map[string]*Node
	servers map[string][]Edge   // client ID -> its server edges, insertion order
	clients map[string][]string // server ID -> client IDs
}

// New creates an empty expression graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		servers: make(map[string][]Edge),
		clients: make(map[string][]string),
	}
}

// AddNode adds a node to the graph. Returns ErrInvalidNodeID if the node ID
// is empty, or ErrDuplicateNodeID if a node with the same ID already exists.
// The node's Meta field is initialized to an empty map if nil.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	g.nodes[n.ID] = &n
	return nil
}

// AddEdge adds a directed dependency edge between two existing nodes.
// Returns ErrUnknownClientNode or ErrUnknownServerNode if an endpoint is
// missing. Duplicate edges between the same pair are allowed but unusual.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownClientNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownServerNode
	}
	g.servers[e.From] = append(g.servers[e.From], e)
	g.clients[e.To] = append(g.clients[e.To], e.From)
	return nil
}

// RemoveEdge removes the edge from→to if it exists. No error is returned if
// the edge does not exist. If multiple edges exist between the same pair,
// only the first is removed.
func (g *Graph) RemoveEdge(from, to string) {
	if i := slices.IndexFunc(g.servers[from], func(e Edge) bool { return e.To == to }); i >= 0 {
		g.setServers(from, slices.Delete(g.servers[from], i, i+1))
	}
	if i := slices.Index(g.clients[to], from); i >= 0 {
		g.setClients(to, slices.Delete(g.clients[to], i, i+1))
	}
}

// setServers stores the client's server list, dropping the map key when the
// list is empty. An absent key and an empty list must stay indistinguishable
// so that unfold/fold cycles restore adjacency snapshots exactly.
func (g *Graph) setServers(id string, edges []Edge) {
	if len(edges) == 0 {
		delete(g.servers, id)
		return
	}
	g.servers[id] = edges
}

// setClients stores the server's client list, dropping the map key when the
// list is empty.
func (g *Graph) setClients(id string, clients []string) {
	if len(clients) == 0 {
		delete(g.clients, id)
		return
	}
	g.clients[id] = clients
}

// RemoveNode deletes a node and detaches it on both adjacency sides: its
// server edges are removed from the servers' client lists, and any client
// edges pointing at it are removed from the clients' server lists.
// Removing an unknown ID is a no-op.
func (g *Graph) RemoveNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	for _, e := range g.servers[id] {
		if i := slices.Index(g.clients[e.To], id); i >= 0 {
			g.setClients(e.To, slices.Delete(g.clients[e.To], i, i+1))
		}
	}
	for _, client := range g.clients[id] {
		g.setServers(client, slices.DeleteFunc(g.servers[client], func(e Edge) bool { return e.To == id }))
	}
	delete(g.servers, id)
	delete(g.clients, id)
	delete(g.nodes, id)
}

// Node returns the node with the given ID and true, or nil and false if not
// found. The returned pointer refers to the actual node in the graph.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in the graph sorted by ID for deterministic
// iteration.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, id := range slices.Sorted(maps.Keys(g.nodes)) {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, edges := range g.servers {
		count += len(edges)
	}
	return count
}

// Edges returns a copy of all edges, grouped by client in sorted client
// order and in insertion order within each client.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, id := range slices.Sorted(maps.Keys(g.servers)) {
		out = append(out, g.servers[id]...)
	}
	return out
}

// Servers returns a copy of the node's server edges in insertion order.
// Insertion order is stable across redirects, so traversals that follow
// server edges are deterministic.
func (g *Graph) Servers(id string) []Edge {
	return slices.Clone(g.servers[id])
}

// ValueServers returns the IDs of servers that contribute to the node's
// computed value, in insertion order.
func (g *Graph) ValueServers(id string) []string {
	var out []string
	for _, e := range g.servers[id] {
		if e.Value {
			out = append(out, e.To)
		}
	}
	return out
}

// Clients returns the IDs of nodes that read from this node, sorted.
// The reverse adjacency has no meaningful order, so a sorted copy keeps
// client enumeration deterministic and stable across unfold/fold cycles.
func (g *Graph) Clients(id string) []string {
	out := slices.Clone(g.clients[id])
	slices.Sort(out)
	return out
}

// HasServer reports whether from has a direct server edge to to.
func (g *Graph) HasServer(from, to string) bool {
	return slices.IndexFunc(g.servers[from], func(e Edge) bool { return e.To == to }) >= 0
}

// RedirectServers rewrites the client's server references according to repl:
// every server edge whose target is a key in repl is retargeted to the
// mapped ID, in place, preserving the edge's value flag and position. The
// reverse adjacency is updated for both the old and the new target.
// Redirecting an unknown client or an empty mapping is a no-op.
func (g *Graph) RedirectServers(clientID string, repl map[string]string) {
	edges := g.servers[clientID]
	for i, e := range edges {
		newID, ok := repl[e.To]
		if !ok || newID == e.To {
			continue
		}
		if j := slices.Index(g.clients[e.To], clientID); j >= 0 {
			g.setClients(e.To, slices.Delete(g.clients[e.To], j, j+1))
		}
		edges[i].To = newID
		g.clients[newID] = append(g.clients[newID], clientID)
	}
}

// RecursiveRedirectServers applies repl to every node reachable from topID
// via server edges, in a single batched depth-first pass. Each node is
// visited exactly once; recursion follows the redirected targets, so
// multi-level substitutions resolve correctly in one traversal.
func (g *Graph) RecursiveRedirectServers(topID string, repl map[string]string) {
	visited := make(map[string]struct{})
	var walk func(id string)
	walk = func(id string) {
		if _, ok := visited[id]; ok {
			return
		}
		visited[id] = struct{}{}
		g.RedirectServers(id, repl)
		for _, e := range g.servers[id] {
			walk(e.To)
		}
	}
	walk(topID)
}

// NewNormalizedWrapper constructs a synthetic normalized node around orig.
// The wrapper is a self-normalized density whose value servers are the
// original node and every variable in the normalization set. Its ID is
// derived from the original's ("orig_normalized"), suffixed on collision.
//
// The wrapper is added to the graph; the caller owns it and is responsible
// for removing it when the unfolding session ends.
func (g *Graph) NewNormalizedWrapper(origID string, normSet NormSet) (*Node, error) {
	orig, ok := g.nodes[origID]
	if !ok {
		return nil, fmt.Errorf("normalized wrapper: %w: %s", ErrUnknownServerNode, origID)
	}

	id := orig.ID + "_normalized"
	for suffix := 2; ; suffix++ {
		if _, exists := g.nodes[id]; !exists {
			break
		}
		id = fmt.Sprintf("%s_normalized__%d", orig.ID, suffix)
	}

	wrapper := Node{
		ID:             id,
		Kind:           KindNormalized,
		SelfNormalized: true,
		Meta:           Metadata{"wraps": orig.ID, "normset": normSet.String()},
	}
	if err := g.AddNode(wrapper); err != nil {
		return nil, err
	}
	if err := g.AddEdge(Edge{From: id, To: orig.ID, Value: true}); err != nil {
		return nil, err
	}
	for _, v := range normSet {
		if err := g.AddEdge(Edge{From: id, To: v, Value: true}); err != nil {
			return nil, err
		}
	}
	return g.nodes[id], nil
}

// Validate checks graph integrity and returns nil if valid. It verifies
// that all edges connect existing nodes and that the dependency relation is
// acyclic. Cycle detection runs in O(N+E) time using depth-first search
// with white/gray/black coloring.
func (g *Graph) Validate() error {
	for from, edges := range g.servers {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidEdgeEndpoint, from)
		}
		for _, e := range edges {
			if _, ok := g.nodes[e.To]; !ok {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidEdgeEndpoint, e.From, e.To)
			}
		}
	}
	return g.detectCycles()
}

func (g *Graph) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, e := range g.servers[id] {
			switch color[e.To] {
			case white:
				dfs(e.To)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for id := range g.nodes {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

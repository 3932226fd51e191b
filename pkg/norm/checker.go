package norm

import (
	"fmt"
	"slices"

	"github.com/rnshah9/root/pkg/graph"
)

// DependencyChecker answers transitive dependency queries over a snapshot
// of the graph reachable from a top node. It is built once per unfolding
// pass and memoizes every query it resolves, so repeated lookups never
// re-traverse the graph.
type DependencyChecker struct {
	// serverLists maps each reachable node to its direct servers,
	// deduplicated and sorted. Read-only after construction.
	serverLists map[string][]string
	results     map[[2]string]bool

	// visits counts recursive resolution steps, used by tests to verify
	// that memoization suppresses re-traversal.
	visits int
}

// NewDependencyChecker builds a checker over every node reachable from
// topID via the full server relation, including structural (non-value)
// edges.
func NewDependencyChecker(g *graph.Graph, topID string) *DependencyChecker {
	c := &DependencyChecker{
		serverLists: make(map[string][]string),
		results:     make(map[[2]string]bool),
	}

	var walk func(id string)
	walk = func(id string) {
		if _, ok := c.serverLists[id]; ok {
			return
		}
		edges := g.Servers(id)
		list := make([]string, 0, len(edges))
		for _, e := range edges {
			list = append(list, e.To)
		}
		slices.Sort(list)
		c.serverLists[id] = slices.Compact(list)
		for _, server := range c.serverLists[id] {
			walk(server)
		}
	}
	walk(topID)

	return c
}

// DependsOn reports whether node id transitively depends on target.
// The relation is reflexive: every node depends on itself.
//
// The node id must be known to the checker (reachable from the top node it
// was built over); querying an unknown node is a programming error and
// panics. target may be any ID.
func (c *DependencyChecker) DependsOn(id, target string) bool {
	key := [2]string{id, target}
	if res, ok := c.results[key]; ok {
		return res
	}

	if id == target {
		return true
	}

	serverList, ok := c.serverLists[id]
	if !ok {
		panic(fmt.Sprintf("norm: dependency query for node %q outside the checker's graph", id))
	}

	c.visits++

	// Direct dependence first.
	if _, found := slices.BinarySearch(serverList, target); found {
		c.results[key] = true
		return true
	}

	// Otherwise recurse, caching the result for every server visited.
	for _, server := range serverList {
		t := c.DependsOn(server, target)
		c.results[[2]string{server, target}] = t
		if t {
			c.results[key] = true
			return true
		}
	}

	c.results[key] = false
	return false
}

package norm

import (
	"github.com/rnshah9/root/pkg/graph"
)

// unfoldIntegrals rewrites the graph below topID so that every density
// carrying a non-empty normalization set is wrapped by a synthetic
// normalized node, with all collected clients redirected to the wrapper.
//
// normSets is populated with the pruned per-density assignments and the
// returned replaced/created lists record every substitution, index-aligned,
// for the inverse patch. The graph is only mutated once collection has
// completed, so a conflict error leaves it untouched.
func unfoldIntegrals(g *graph.Graph, topID string, normSet graph.NormSet, normSets map[string]graph.NormSet) (replaced, created []string, err error) {
	// No normalization set: no integrals to create.
	if len(normSet) == 0 {
		return nil, nil, nil
	}

	checker := NewDependencyChecker(g, topID)

	// Norm sets are kept canonical so they can be compared for equality.
	coll, err := collect(g, topID, graph.Canonical(normSet), normSets)
	if err != nil {
		return nil, nil, err
	}

	// Clean norm sets of the variables the density does not actually
	// depend on: a node must never be normalized over a variable that is
	// irrelevant to it. Retained variables are the collected IDs
	// themselves, so identity-based lookups stay valid downstream.
	for id, ns := range normSets {
		if len(ns) == 0 {
			continue
		}
		pruned := make(graph.NormSet, 0, len(ns))
		for _, v := range ns {
			if checker.DependsOn(id, v) {
				pruned = append(pruned, v)
			}
		}
		normSets[id] = pruned
	}

	// Replace every density that needs normalization with a wrapper that
	// applies the right integral.
	p := patcher{g}
	for _, id := range coll.nodes {
		node, ok := g.Node(id)
		if !ok || !node.IsDensity() {
			continue
		}
		ns := normSets[id]
		if len(ns) == 0 {
			continue
		}

		// Prime the evaluation cache for this normalization set. This
		// matters when the same density is later evaluated through the
		// legacy path, which expects the cached state to exist.
		node.Prime(ns)

		if node.SelfNormalized && node.Kind != graph.KindCachedDensity {
			continue
		}

		wrapper, werr := g.NewNormalizedWrapper(id, ns)
		if werr != nil {
			// The wrapped node and all normset variables are collected
			// graph members, so this cannot fail on a valid graph.
			panic("norm: " + werr.Error())
		}

		p.substitute(coll, wrapper.ID, id)

		replaced = append(replaced, id)
		created = append(created, wrapper.ID)
	}

	return replaced, created, nil
}

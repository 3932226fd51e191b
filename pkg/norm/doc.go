// Package norm implements normalization-integral unfolding for probability
// models.
//
// Evaluating a model under a normalization set requires every density in the
// computation graph to apply the right normalization integral. Rather than
// threading normalization context through every evaluation call, the engine
// temporarily rewrites the graph: each density that needs normalization is
// wrapped by a synthetic [graph.KindNormalized] node, and every client of
// the density is redirected to the wrapper. When the session ends, the exact
// inverse rewrite restores the original topology.
//
// # Usage
//
// Unfolding is scoped to a [Session]:
//
//	s, err := norm.Open(g, "model", graph.NormSet{"x", "y"})
//	if err != nil {
//	    var conflict *norm.ConflictError
//	    if errors.As(err, &conflict) {
//	        // two graph paths request incompatible normalization sets
//	    }
//	    return err
//	}
//	defer s.Close()
//
//	top := s.Top() // evaluate via the (possibly wrapped) top node
//
// Note that after opening a session the original top node should not be
// used for evaluation anymore: if it is itself a density it is now wrapped,
// and Top returns the effective top of the rewritten graph.
//
// # Pipeline
//
// Open runs three phases: a collection pass assigning each density the
// normalization set it must be evaluated under (detecting conflicting
// requests from different graph paths), a pruning pass discarding variables
// a density does not transitively depend on, and a wrapping pass inserting
// the synthetic wrappers and redirecting clients. Close performs one
// batched recursive redirection that folds everything back, then releases
// the wrappers. An empty normalization set short-circuits: no work on open,
// no work on close.
package norm

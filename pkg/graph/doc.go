// Package graph implements the expression graph underlying NormFold's
// probability models.
//
// A model is a directed acyclic graph of expression nodes. Edges point from
// a node to the nodes it reads values from: node A "has server B" means A
// depends on B, and conversely A is a "client" of B. The graph keeps both
// adjacency directions consistent on every mutation, so dependency analysis
// (servers) and rewiring (clients) are both cheap.
//
// # Node kinds
//
// Nodes carry an explicit kind tag instead of relying on type inspection:
//
//   - [KindVariable]: a fundamental leaf, typically an observable or parameter
//   - [KindFunction]: a derived expression computed from its servers
//   - [KindDensity]: a probability density that must be normalized over a set
//     of variables before it yields a proper probability
//   - [KindCachedDensity]: a density that caches evaluations internally and
//     needs special treatment during unfolding
//   - [KindNormalized]: a synthetic wrapper inserted by the norm package that
//     applies a normalization integral around an existing density
//
// # Value vs. structural edges
//
// Each edge records whether the server contributes to the client's computed
// value ([Edge.Value]) or is a purely structural dependency (shape
// information, bookkeeping). Normalization-set propagation only follows
// value edges; dependency analysis follows all edges.
//
// # Rewiring
//
// [Graph.RedirectServers] and [Graph.RecursiveRedirectServers] replace server
// references according to an explicit old→new mapping, updating the reverse
// adjacency for both endpoints. They are the primitive used by the norm
// package to splice normalized wrappers into a model and to splice them back
// out afterwards.
package graph

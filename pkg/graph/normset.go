package graph

import (
	"slices"
	"strings"
)

// NormSet is an ordered set of variable IDs a density must be normalized
// (integrated) over when evaluated in a given context. Insertion order is
// irrelevant: sets are canonicalized by sorting and deduplication before
// any comparison.
type NormSet []string

// Canonical returns a sorted, deduplicated copy of the given variable IDs.
// The input is not modified. Canonical(nil) returns an empty set.
func Canonical(vars []string) NormSet {
	out := make(NormSet, len(vars))
	copy(out, vars)
	slices.Sort(out)
	return slices.Compact(out)
}

// Equal reports whether two canonical sets have the same size and layout.
// Both arguments must already be canonical.
func (ns NormSet) Equal(other NormSet) bool {
	return slices.Equal(ns, other)
}

// Contains reports whether the set includes the given variable.
func (ns NormSet) Contains(v string) bool {
	return slices.Contains(ns, v)
}

// String formats the set for diagnostics, e.g. "(x,y)".
func (ns NormSet) String() string {
	return "(" + strings.Join(ns, ",") + ")"
}

package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// The API server uses this to keep per-workspace caches separate when
// several analyses share one Redis instance.
//
// Example usage:
//
//	// Workspace-specific keys
//	wsKeyer := NewScopedKeyer(NewDefaultKeyer(), "ws:higgs2026:")
//
//	// Shared keys
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ModelKey generates a prefixed key for a parsed model.
func (k *ScopedKeyer) ModelKey(name, contentHash string) string {
	return k.prefix + k.inner.ModelKey(name, contentHash)
}

// UnfoldKey generates a prefixed key for an unfolding report.
func (k *ScopedKeyer) UnfoldKey(modelHash string, normSet []string) string {
	return k.prefix + k.inner.UnfoldKey(modelHash, normSet)
}

// ArtifactKey generates a prefixed key for a rendered artifact.
func (k *ScopedKeyer) ArtifactKey(modelHash string, normSet []string, format string) string {
	return k.prefix + k.inner.ArtifactKey(modelHash, normSet, format)
}

// Package cache provides caching for parsed models and rendered artifacts.
//
// Unfolding and rendering the same model repeatedly is common during
// interactive fitting sessions; the cache keys results by a content hash of
// the model plus the requested normalization set, so any change to either
// invalidates the entry.
//
// Three backends are provided: [FileCache] for CLI usage, [RedisCache] for
// the shared API deployment, and [NullCache] to disable caching.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given time-to-live. A zero ttl means
	// the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys for the different artifact classes.
// Implementations must produce keys that are stable across processes.
type Keyer interface {
	// ModelKey identifies a parsed model by name and content hash.
	ModelKey(name, contentHash string) string

	// UnfoldKey identifies an unfolding report for a model hash and a
	// canonical normalization set.
	UnfoldKey(modelHash string, normSet []string) string

	// ArtifactKey identifies a rendered artifact (svg, png, dot) for a
	// model hash, normalization set, and format.
	ArtifactKey(modelHash string, normSet []string, format string) string
}

// DefaultKeyer hashes key components with SHA-256. See [NewScopedKeyer]
// for namespaced variants.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// ModelKey generates a key for a parsed model.
func (k *DefaultKeyer) ModelKey(name, contentHash string) string {
	return hashKey("model", name, contentHash)
}

// UnfoldKey generates a key for an unfolding report.
func (k *DefaultKeyer) UnfoldKey(modelHash string, normSet []string) string {
	return hashKey("unfold", modelHash, normSet)
}

// ArtifactKey generates a key for a rendered artifact.
func (k *DefaultKeyer) ArtifactKey(modelHash string, normSet []string, format string) string {
	return hashKey("artifact", modelHash, normSet, format)
}

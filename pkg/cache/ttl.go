package cache

import "time"

// Default TTLs per artifact class. Models are content-addressed so they
// never go stale; reports and rendered artifacts are kept for a day so
// interactive sessions stay fast without pinning disk forever.
const (
	// TTLModel is the lifetime of parsed model entries.
	TTLModel = 7 * 24 * time.Hour

	// TTLUnfold is the lifetime of unfolding report entries.
	TTLUnfold = 24 * time.Hour

	// TTLArtifact is the lifetime of rendered artifact entries.
	TTLArtifact = 24 * time.Hour
)

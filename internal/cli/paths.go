package cli

import (
	"os"
	"path/filepath"

	"github.com/rnshah9/root/pkg/cache"
)

// defaultCacheDir returns the local cache directory, honoring the
// NORMFOLD_CACHE_DIR override.
func defaultCacheDir() string {
	if dir := os.Getenv("NORMFOLD_CACHE_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "normfold")
	}
	return filepath.Join(base, "normfold")
}

// openCache builds the cache backend from the shared flags. An empty dir
// selects the default location; noCache disables caching entirely.
func openCache(dir string, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if dir == "" {
		dir = defaultCacheDir()
	}
	return cache.NewFileCache(dir)
}

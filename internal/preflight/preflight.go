package preflight

import (
	"path/filepath"

	"flightstrip/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Root directory", cfg.Paths.RootDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	// The cache file may not exist yet; its directory must.
	if dir := filepath.Dir(cfg.NamingCache.Path); dir != filepath.Clean(cfg.Paths.RootDir) {
		results = append(results, CheckDirectoryAccess("Cache directory", dir))
	}

	results = append(results, CheckGeometryEngine(cfg.Geometry))
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

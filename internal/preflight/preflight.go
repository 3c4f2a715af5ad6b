package preflight

import (
	"context"
	"fmt"

	"slyce/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks a processing run depends on. Directories are
// created first so a fresh install passes.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return []Result{{Name: "Directories", Detail: err.Error()}}
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	for _, st := range CheckSystemDeps(ctx, cfg) {
		r := Result{Name: st.Name, Passed: st.Available || st.Optional, Detail: st.Detail}
		if st.Available {
			r.Detail = st.Command
		} else if st.Optional {
			r.Detail = fmt.Sprintf("optional: %s", st.Detail)
		}
		results = append(results, r)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

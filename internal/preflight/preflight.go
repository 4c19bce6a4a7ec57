package preflight

import (
	"context"

	"uploader/internal/config"
)

// RunAll executes the filesystem and endpoint checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Working directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Import directory", cfg.ImportDir()),
		CheckAppendable("Upload ledger", cfg.LedgerPath()),
		CheckAppendable("Log file", cfg.LogPath()),
	}
	results = append(results, CheckEndpoint(ctx, cfg.FTPURL, cfg.ProbeTimeout(), nil))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

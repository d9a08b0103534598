package preflight

import (
	"shelf/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Cache root (always checked)
	results = append(results, CheckDirectoryAccess("Cache root", cfg.Paths.CacheRoot))
	results = append(results, CheckFreeSpace("Cache free space", cfg.Paths.CacheRoot))

	// Library directory (when configured)
	if cfg.Paths.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
	}

	return results
}

// SystemDeps evaluates the external binaries the invocation pools shell
// out to. Both the daemon status endpoint and the CLI status command use
// this to avoid duplicating the requirements list.
func SystemDeps(cfg *config.Config) []BinaryStatus {
	requirements := []Requirement{
		{
			Name:        "Probe",
			Command:     cfg.Tools.ProbeBinary,
			Description: "Required for media inspection",
		},
		{
			Name:        "Thumbnail",
			Command:     cfg.Tools.ThumbnailBinary,
			Description: "Required for thumbnail extraction",
		},
	}
	return CheckBinaries(requirements)
}

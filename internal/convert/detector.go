package convert

import (
	"github.com/Norgate-AV/llmconv/internal/cache"
	"github.com/Norgate-AV/llmconv/internal/logging"
	"github.com/rs/zerolog"
)

// Job is one file selected for conversion
type Job struct {
	SourcePath string
	TargetPath string

	// CacheKey is built from the source path and the content fingerprint
	// seen during detection
	CacheKey string
}

// Plan is the outcome of change detection
type Plan struct {
	Jobs []Job

	// CacheHits counts files skipped because their key is cached and their
	// artifact exists
	CacheHits int

	// Unreadable counts files that could not be fingerprinted
	Unreadable int
}

// Detector selects the files that need converting
type Detector struct {
	SourceRoot string
	TargetRoot string
	Profile    Profile
	Results    *cache.Results

	logger zerolog.Logger
}

// NewDetector creates a detector for one source/target tree pair
func NewDetector(sourceRoot, targetRoot string, profile Profile, results *cache.Results) *Detector {
	return &Detector{
		SourceRoot: sourceRoot,
		TargetRoot: targetRoot,
		Profile:    profile,
		Results:    results,
		logger:     logging.GetLogger("detector"),
	}
}

// Detect fingerprints every file and emits a job when its cache key is
// unknown or its artifact is missing on disk. Order follows files.
func (d *Detector) Detect(files []string) Plan {
	var plan Plan
	targets := make(map[string]string, len(files))

	for _, path := range files {
		hash, err := cache.HashFile(path)
		if err != nil {
			plan.Unreadable++
			d.logger.Error().Err(err).Str("file", path).Msg("Failed to read file, skipping")
			continue
		}

		target, err := TargetPath(d.SourceRoot, d.TargetRoot, path, d.Profile.TargetExtension)
		if err != nil {
			plan.Unreadable++
			d.logger.Error().Err(err).Str("file", path).Msg("Failed to map target path, skipping")
			continue
		}

		if other, ok := targets[target]; ok {
			d.logger.Warn().
				Str("file", path).
				Str("other", other).
				Str("target", target).
				Msg("Multiple sources map to the same target")
		}
		targets[target] = path

		key := cache.Key(path, hash)
		if d.Results.Has(key) && cache.Exists(target) {
			plan.CacheHits++
			d.logger.Info().Str("file", path).Msg("Skipped (cached)")
			continue
		}

		plan.Jobs = append(plan.Jobs, Job{
			SourcePath: path,
			TargetPath: target,
			CacheKey:   key,
		})
	}

	return plan
}

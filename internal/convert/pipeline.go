// Package convert selects changed source files and converts them through
// the external API with a bounded pool of rate limited workers.
package convert

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Norgate-AV/llmconv/internal/cache"
	"github.com/Norgate-AV/llmconv/internal/config"
	"github.com/Norgate-AV/llmconv/internal/discovery"
	"github.com/Norgate-AV/llmconv/internal/logging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Summary reports the counts for one run
type Summary struct {
	RunID      string
	Discovered int
	Eligible   int
	Converted  int
	Failed     int
	Empty      int
	Cancelled  int
	// Skipped counts cache hits
	Skipped    int
	Unreadable int
	TargetDir  string
	Duration   time.Duration
}

// Print writes the human readable summary
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\nConversion complete!\n")
	fmt.Fprintf(w, "  Files discovered:         %d\n", s.Discovered)
	fmt.Fprintf(w, "  Files eligible:           %d\n", s.Eligible)
	fmt.Fprintf(w, "  Files converted:          %d\n", s.Converted)
	fmt.Fprintf(w, "  Files failed:             %d\n", s.Failed)
	fmt.Fprintf(w, "  Files skipped (cached):   %d\n", s.Skipped)

	if s.Empty > 0 {
		fmt.Fprintf(w, "  Files skipped (empty):    %d\n", s.Empty)
	}

	if s.Unreadable > 0 {
		fmt.Fprintf(w, "  Files unreadable:         %d\n", s.Unreadable)
	}

	if s.Cancelled > 0 {
		fmt.Fprintf(w, "  Files not started:        %d\n", s.Cancelled)
	}

	fmt.Fprintf(w, "  Output directory:         %s\n", s.TargetDir)
}

// Pipeline wires discovery, change detection and dispatch for one run
type Pipeline struct {
	cfg       *config.Config
	profile   Profile
	converter Converter
	limiter   Limiter
	results   *cache.Results
	journal   Recorder

	logger zerolog.Logger
}

// NewPipeline creates a pipeline for cfg
func NewPipeline(cfg *config.Config, profile Profile, converter Converter, limiter Limiter, results *cache.Results) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		profile:   profile.WithExtensions(cfg.SourceExtensions),
		converter: converter,
		limiter:   limiter,
		results:   results,
		logger:    logging.GetLogger("pipeline"),
	}
}

// WithJournal attaches an outcome recorder
func (p *Pipeline) WithJournal(r Recorder) *Pipeline {
	p.journal = r
	return p
}

// Run discovers, filters and converts. It returns an error only when the
// source tree cannot be walked at all.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{
		RunID:     uuid.NewString(),
		TargetDir: p.cfg.TargetDir,
	}

	files, err := discovery.Discover(p.cfg.SourceDir, p.profile.SourceExtensions)
	if err != nil {
		return summary, err
	}

	summary.Discovered = len(files)
	p.logger.Info().Int("files", len(files)).Str("source", p.cfg.SourceDir).Msg("Found source files")

	plan := NewDetector(p.cfg.SourceDir, p.cfg.TargetDir, p.profile, p.results).Detect(files)
	summary.Eligible = len(plan.Jobs)
	summary.Skipped = plan.CacheHits
	summary.Unreadable = plan.Unreadable

	p.logger.Info().
		Int("eligible", summary.Eligible).
		Int("cached", summary.Skipped).
		Int("workers", p.cfg.Workers).
		Int("rpm", p.cfg.RPM).
		Msg("Planned conversion")

	dispatcher := NewDispatcher(p.converter, p.limiter, p.results, Options{
		Workers:         p.cfg.Workers,
		CheckpointEvery: p.cfg.CheckpointEvery,
		Profile:         p.profile,
		RunID:           summary.RunID,
	})

	if p.journal != nil {
		dispatcher.WithJournal(p.journal)
	}

	result := dispatcher.Run(ctx, plan.Jobs)

	summary.Converted = result.Converted
	summary.Failed = result.Failed
	summary.Empty = result.Empty
	summary.Cancelled = result.Cancelled
	summary.Duration = time.Since(start)

	return summary, nil
}

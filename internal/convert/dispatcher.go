package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Norgate-AV/llmconv/internal/cache"
	"github.com/Norgate-AV/llmconv/internal/errors"
	"github.com/Norgate-AV/llmconv/internal/logging"
	"github.com/Norgate-AV/llmconv/internal/ratelimit"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Converter turns one source file into target language text
type Converter interface {
	Convert(ctx context.Context, credential, filename, source string) (string, error)
}

// Limiter grants a credential for one request, blocking while saturated
type Limiter interface {
	Acquire(ctx context.Context) (ratelimit.Slot, error)
}

// Recorder receives the outcome of every processed job
type Recorder interface {
	Record(o cache.Outcome) error
}

// Options configures a Dispatcher
type Options struct {
	Workers         int
	CheckpointEvery int
	Profile         Profile
	RunID           string
}

// Result counts job outcomes for one dispatch
type Result struct {
	Converted int
	Failed    int
	Empty     int
	Cancelled int
}

// Dispatcher runs conversion jobs on a bounded pool of workers
type Dispatcher struct {
	converter Converter
	limiter   Limiter
	results   *cache.Results
	journal   Recorder
	opts      Options

	now    func() time.Time
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher. Workers and CheckpointEvery below one
// are raised to one.
func NewDispatcher(converter Converter, limiter Limiter, results *cache.Results, opts Options) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	if opts.CheckpointEvery < 1 {
		opts.CheckpointEvery = 1
	}

	return &Dispatcher{
		converter: converter,
		limiter:   limiter,
		results:   results,
		opts:      opts,
		now:       time.Now,
		logger:    logging.GetLogger("dispatcher"),
	}
}

// WithJournal attaches an outcome recorder
func (d *Dispatcher) WithJournal(r Recorder) *Dispatcher {
	d.journal = r
	return d
}

type counters struct {
	converted atomic.Int64
	failed    atomic.Int64
	empty     atomic.Int64
	cancelled atomic.Int64
}

// Run processes every job and returns once all started jobs have finished.
// Failures stay within their job. Once ctx is cancelled no new job starts,
// but in-flight API calls complete. The result cache is flushed every
// CheckpointEvery successes and always once more before Run returns.
func (d *Dispatcher) Run(ctx context.Context, jobs []Job) Result {
	var (
		c counters
		g errgroup.Group
	)

	g.SetLimit(d.opts.Workers)

	for i, job := range jobs {
		if ctx.Err() != nil {
			for _, skipped := range jobs[i:] {
				d.cancel(skipped, &c)
			}

			break
		}

		g.Go(func() error {
			d.process(ctx, job, &c)
			return nil
		})
	}

	_ = g.Wait()

	if err := d.results.Flush(); err != nil {
		d.logger.Error().Err(err).Str("path", d.results.Path()).Msg("Failed to save cache")
	}

	return Result{
		Converted: int(c.converted.Load()),
		Failed:    int(c.failed.Load()),
		Empty:     int(c.empty.Load()),
		Cancelled: int(c.cancelled.Load()),
	}
}

// process runs one job; it never panics out or returns an error
func (d *Dispatcher) process(ctx context.Context, job Job, c *counters) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(job, errors.Newf(errors.ErrInternal, "panic: %v", r), c)
		}
	}()

	if ctx.Err() != nil {
		d.cancel(job, c)
		return
	}

	content, err := os.ReadFile(job.SourcePath)
	if err != nil {
		d.fail(job, errors.Wrapf(err, errors.ErrRead, "failed to read %s", job.SourcePath), c)
		return
	}

	// The key must describe the content actually converted
	job.CacheKey = cache.Key(job.SourcePath, cache.Fingerprint(content))

	if strings.TrimSpace(string(content)) == "" {
		c.empty.Add(1)
		d.logger.Info().Str("file", job.SourcePath).Msg("Skipped (empty)")
		d.journalRecord(job, cache.StatusEmpty, nil)
		return
	}

	slot, err := d.limiter.Acquire(ctx)
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrCancelled) {
			d.cancel(job, c)
			return
		}

		d.fail(job, err, c)
		return
	}

	d.logger.Debug().
		Str("file", job.SourcePath).
		Int("credential", slot.Index).
		Msg("Acquired credential")

	// Started requests finish even if the run is being stopped
	converted, err := d.converter.Convert(context.WithoutCancel(ctx), slot.Credential, filepath.Base(job.SourcePath), string(content))
	if err != nil {
		if errors.GetCode(err) == errors.ErrUnknown {
			err = errors.Wrap(err, errors.ErrAPI, "conversion failed")
		}

		d.fail(job, err, c)
		return
	}

	if err := WriteArtifact(d.opts.Profile, job, converted, d.now()); err != nil {
		d.fail(job, err, c)
		return
	}

	d.results.Record(job.CacheKey)
	n := c.converted.Add(1)

	d.logger.Info().
		Str("file", job.SourcePath).
		Str("target", job.TargetPath).
		Msg("Converted")

	if n%int64(d.opts.CheckpointEvery) == 0 {
		if err := d.results.Flush(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to checkpoint cache")
		} else {
			d.logger.Debug().Int64("converted", n).Msg("Checkpointed cache")
		}
	}

	d.journalRecord(job, cache.StatusConverted, nil)
}

func (d *Dispatcher) fail(job Job, err error, c *counters) {
	c.failed.Add(1)

	d.logger.Error().
		Err(err).
		Str("file", job.SourcePath).
		Str("code", string(errors.GetCode(err))).
		Msg("Failed to convert")

	d.journalRecord(job, cache.StatusFailed, err)
}

func (d *Dispatcher) cancel(job Job, c *counters) {
	c.cancelled.Add(1)

	d.logger.Debug().Str("file", job.SourcePath).Msg("Not started, run cancelled")
	d.journalRecord(job, cache.StatusCancelled, nil)
}

// journalRecord is best effort; journal errors never affect the job
func (d *Dispatcher) journalRecord(job Job, status cache.Status, err error) {
	if d.journal == nil {
		return
	}

	o := cache.Outcome{
		RunID:      d.opts.RunID,
		SourceFile: job.SourcePath,
		TargetFile: job.TargetPath,
		CacheKey:   job.CacheKey,
		Status:     status,
		Timestamp:  d.now(),
	}

	if err != nil {
		o.Error = err.Error()
		o.Code = string(errors.GetCode(err))
	}

	if jerr := d.journal.Record(o); jerr != nil {
		d.logger.Warn().Err(jerr).Str("file", job.SourcePath).Msg("Failed to record outcome")
	}
}

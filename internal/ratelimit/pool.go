// Package ratelimit shares a set of API credentials between concurrent
// workers while keeping each credential under its requests-per-minute budget.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/Norgate-AV/llmconv/internal/errors"
	"github.com/Norgate-AV/llmconv/internal/logging"
	"github.com/rs/zerolog"
)

const (
	// DefaultWindow is the sliding window the budget applies to
	DefaultWindow = time.Minute

	// DefaultMargin is added to every computed wait
	DefaultMargin = time.Second
)

// Slot is a credential granted for exactly one request
type Slot struct {
	Index      int
	Credential string

	// AcquiredAt is the timestamp counted against the slot's budget
	AcquiredAt time.Time
}

// Options tunes a Pool. Zero values select the defaults.
type Options struct {
	// Budget is the number of requests per window allowed for each credential
	Budget int
	Window time.Duration

	// Margin is added to computed waits; negative disables it
	Margin time.Duration
}

// Pool hands out credentials using least-recently-loaded selection over a
// sliding window of request timestamps per credential
type Pool struct {
	credentials []string
	budget      int
	window      time.Duration
	margin      time.Duration

	mu      sync.Mutex
	windows [][]time.Time

	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	logger zerolog.Logger
}

// NewPool creates a pool with the default one minute window
func NewPool(credentials []string, budget int) (*Pool, error) {
	return NewPoolWithOptions(credentials, Options{Budget: budget})
}

// NewPoolWithOptions creates a pool from explicit options
func NewPoolWithOptions(credentials []string, opts Options) (*Pool, error) {
	if len(credentials) == 0 {
		return nil, errors.New(errors.ErrConfigInvalid, "rate limiter needs at least one credential")
	}

	if opts.Budget < 1 {
		return nil, errors.Newf(errors.ErrConfigInvalid, "rate limit budget must be at least 1, got %d", opts.Budget)
	}

	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}

	if opts.Margin < 0 {
		opts.Margin = 0
	} else if opts.Margin == 0 {
		opts.Margin = DefaultMargin
	}

	creds := make([]string, len(credentials))
	copy(creds, credentials)

	return &Pool{
		credentials: creds,
		budget:      opts.Budget,
		window:      opts.Window,
		margin:      opts.Margin,
		windows:     make([][]time.Time, len(creds)),
		now:         time.Now,
		sleep:       sleepContext,
		logger:      logging.GetLogger("ratelimit"),
	}, nil
}

// Size returns the number of credential slots
func (p *Pool) Size() int {
	return len(p.credentials)
}

// Acquire returns a slot that may be used for one request now, blocking
// while every slot is saturated. The request is counted against the slot at
// acquisition time, not when the request completes.
func (p *Pool) Acquire(ctx context.Context) (Slot, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Slot{}, errors.Wrap(err, errors.ErrCancelled, "rate limiter acquire cancelled")
		}

		p.mu.Lock()
		now := p.now()
		p.pruneLocked(now)

		idx := p.leastLoadedLocked()
		if len(p.windows[idx]) < p.budget {
			p.windows[idx] = append(p.windows[idx], now)
			slot := Slot{Index: idx, Credential: p.credentials[idx], AcquiredAt: now}
			p.mu.Unlock()

			return slot, nil
		}

		wait := p.waitLocked(now)
		p.mu.Unlock()

		p.logger.Info().
			Dur("wait", wait).
			Int("credentials", len(p.credentials)).
			Msg("All credentials at rate limit, waiting")

		if err := p.sleep(ctx, wait); err != nil {
			return Slot{}, errors.Wrap(err, errors.ErrCancelled, "rate limiter wait cancelled")
		}
	}
}

// Usage returns the number of requests in the current window per slot
func (p *Pool) Usage() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneLocked(p.now())

	counts := make([]int, len(p.windows))
	for i, w := range p.windows {
		counts[i] = len(w)
	}

	return counts
}

// pruneLocked drops timestamps that have left the window
func (p *Pool) pruneLocked(now time.Time) {
	cutoff := now.Add(-p.window)

	for i, w := range p.windows {
		keep := 0
		for keep < len(w) && !w[keep].After(cutoff) {
			keep++
		}

		if keep > 0 {
			p.windows[i] = append(w[:0:0], w[keep:]...)
		}
	}
}

// leastLoadedLocked picks the slot with the fewest requests, lowest index on ties
func (p *Pool) leastLoadedLocked() int {
	best := 0
	for i := 1; i < len(p.windows); i++ {
		if len(p.windows[i]) < len(p.windows[best]) {
			best = i
		}
	}

	return best
}

// waitLocked is the time until the oldest timestamp across all slots
// leaves the window, plus the safety margin
func (p *Pool) waitLocked(now time.Time) time.Duration {
	var oldest time.Time
	for _, w := range p.windows {
		if len(w) > 0 && (oldest.IsZero() || w[0].Before(oldest)) {
			oldest = w[0]
		}
	}

	wait := oldest.Add(p.window).Sub(now)
	if wait < 0 {
		wait = 0
	}

	return wait + p.margin
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reel/internal/job"
	"reel/internal/logging"
	"reel/internal/services"
)

// Retriever fetches the current snapshot for a render job.
type Retriever interface {
	Retrieve(ctx context.Context, videoID string) (job.Record, error)
}

// Options controls one polling run. Both durations must be positive.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Poller drives jobs to completion. Construct with New; the zero value has
// no retriever and rejects every run.
type Poller struct {
	retriever Retriever
	logger    *slog.Logger
	now       func() time.Time
	sleeper   func(time.Duration)
}

// Option customizes a poller.
type Option func(*Poller)

// WithLogger attaches a logger for per-attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logging.NewComponentLogger(logger, "poll")
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSleeper overrides how interval sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(p *Poller) {
		p.sleeper = sleeper
	}
}

// New constructs a poller over the given retriever.
func New(retriever Retriever, opts ...Option) *Poller {
	p := &Poller{
		retriever: retriever,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UntilTerminal retrieves the job until its status is terminal and returns
// the final snapshot. When the run times out, the last snapshot comes back
// alongside the timeout error so callers can still report where the job
// stood.
func (p *Poller) UntilTerminal(ctx context.Context, videoID string, opts Options) (job.Record, error) {
	const op = "poll"

	if p == nil || p.retriever == nil {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "retriever required", nil)
	}
	id := strings.TrimSpace(videoID)
	if id == "" {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "video id required", nil)
	}
	if opts.Interval <= 0 {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "interval must be positive", nil)
	}
	if opts.Timeout <= 0 {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "timeout must be positive", nil)
	}

	start := p.now()
	for attempt := 1; ; attempt++ {
		record, err := p.retriever.Retrieve(ctx, id)
		if err != nil {
			return nil, err
		}
		status := record.Status()
		if status.IsTerminal() {
			p.logger.Debug("job reached terminal status",
				logging.String("video_id", id),
				logging.String("status", string(status)),
				logging.Int("attempts", attempt))
			return record, nil
		}
		elapsed := p.now().Sub(start)
		if elapsed > opts.Timeout {
			return record, services.Wrap(services.ErrTimeout, op,
				fmt.Sprintf("job %s not finished after %s", id, opts.Timeout), nil)
		}
		p.logger.Debug("job still in flight",
			logging.String("video_id", id),
			logging.String("status", string(status)),
			logging.Duration("elapsed", elapsed))
		if err := p.sleep(ctx, opts.Interval); err != nil {
			return record, err
		}
	}
}

func (p *Poller) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("poll: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if p.sleeper != nil {
		p.sleeper(delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

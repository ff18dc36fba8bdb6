package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/session"
)

const (
	// DefaultPageDelay keeps successive requests under upstream rate limits.
	DefaultPageDelay = time.Second
	// DefaultCooldown is the pause after the upstream reports a fault.
	DefaultCooldown = 5 * time.Minute
)

// errBudget means the run budget ran out while waiting to retry.
var errBudget = errors.New("run budget exhausted")

// Options configures pacing and fault recovery.
type Options struct {
	PageDelay time.Duration
	Cooldown  time.Duration
	// MaxRetries bounds consecutive transient failures on one request;
	// zero retries until the run budget or context ends.
	MaxRetries int
	Stop       Stop
	// Sleep waits out a cool-down. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

type retrier struct {
	run        *session.Run
	limiter    *rate.Limiter
	cooldown   time.Duration
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

func newRetrier(run *session.Run, opts Options) *retrier {
	limit := rate.Inf
	if opts.PageDelay > 0 {
		limit = rate.Every(opts.PageDelay)
	}
	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &retrier{
		run:        run,
		limiter:    rate.NewLimiter(limit, 1),
		cooldown:   cooldown,
		maxRetries: opts.MaxRetries,
		sleep:      sleep,
	}
}

// do paces and runs call, pausing and repeating it for as long as the
// upstream reports itself unavailable.
func (r *retrier) do(ctx context.Context, what string, call func(context.Context) (domain.Page, error)) (domain.Page, error) {
	for attempt := 1; ; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return domain.Page{}, err
		}
		page, err := call(ctx)
		if err == nil {
			return page, nil
		}
		if !errors.Is(err, domain.ErrUpstreamUnavailable) {
			return domain.Page{}, err
		}
		if r.maxRetries > 0 && attempt > r.maxRetries {
			return domain.Page{}, fmt.Errorf("%s: giving up after %d attempts: %w", what, attempt, err)
		}

		wait := r.cooldown
		var ue *domain.UpstreamError
		if errors.As(err, &ue) && ue.RetryAfter > wait {
			wait = ue.RetryAfter
		}
		r.run.Logger.Warn("upstream unavailable, pausing before retry",
			"request", what, "attempt", attempt, "pause", wait, "err", err)
		if err := r.sleep(ctx, wait); err != nil {
			return domain.Page{}, err
		}
		if r.run.Expired() {
			return domain.Page{}, errBudget
		}
		r.run.Logger.Info("resuming after pause", "request", what, "attempt", attempt+1)
	}
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

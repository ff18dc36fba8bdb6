// Package fetch turns paged, streamed and id-batch upstreams into lazy item
// sequences with stop conditions and fault recovery.
package fetch

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/session"
)

// ErrConsumed is yielded when a sequence is ranged over a second time.
var ErrConsumed = errors.New("fetch: sequence already consumed")

// Stop holds the conditions that end a sequence early. Zero values are
// disabled. The run's elapsed-time budget always applies.
type Stop struct {
	// Cutoff ends the sequence at the first item created before it.
	// Items are expected newest first.
	Cutoff         time.Time
	TimestampField string

	MaxItems int
	MaxPages int
}

// reachedCutoff reports whether raw is older than the cutoff. Items whose
// timestamp is missing or unreadable never stop the sequence.
func (s Stop) reachedCutoff(raw domain.RawItem) bool {
	if s.Cutoff.IsZero() || s.TimestampField == "" {
		return false
	}
	v, ok := raw.Get(s.TimestampField)
	if !ok {
		return false
	}
	t, err := domain.ParseTimestamp(v)
	if err != nil {
		return false
	}
	return t.Before(s.Cutoff)
}

// Fetcher pages through a PageSource one request at a time.
type Fetcher struct {
	src   domain.PageSource
	run   *session.Run
	opts  Options
	retry *retrier

	used    bool
	yielded int
	cursor  string
}

func New(src domain.PageSource, run *session.Run, opts Options) *Fetcher {
	return &Fetcher{src: src, run: run, opts: opts, retry: newRetrier(run, opts)}
}

// Yielded is the number of items handed out so far.
func (f *Fetcher) Yielded() int { return f.yielded }

// Items returns the item sequence. It can be ranged over once; pages are
// only requested as the caller consumes items.
func (f *Fetcher) Items(ctx context.Context) iter.Seq2[domain.Item, error] {
	return func(yield func(domain.Item, error) bool) {
		if f.used {
			yield(domain.Item{}, ErrConsumed)
			return
		}
		f.used = true
		log := f.run.Logger
		stop := f.opts.Stop

		pages := 0
		for {
			if stop.MaxPages > 0 && pages >= stop.MaxPages {
				log.Info("page limit reached", "pages", pages)
				return
			}
			if f.run.Expired() {
				log.Info("time budget exhausted", "elapsed", f.run.Elapsed().Round(time.Second))
				return
			}

			page, err := f.retry.do(ctx, "page", func(ctx context.Context) (domain.Page, error) {
				return f.src.FetchPage(ctx, f.cursor)
			})
			if err != nil {
				if f.stoppedByBudget(ctx, err) {
					log.Info("time budget exhausted", "elapsed", f.run.Elapsed().Round(time.Second))
					return
				}
				yield(domain.Item{}, err)
				return
			}
			pages++
			f.run.Pages++
			log.Info("fetched page", "page", pages, "items", len(page.Items), "total", f.yielded)

			if len(page.Items) == 0 {
				return
			}
			for i, raw := range page.Items {
				if stop.reachedCutoff(raw) {
					log.Info("reached cutoff, no newer items left", "cutoff", stop.Cutoff, "item", raw.String("id"))
					return
				}
				if stop.MaxItems > 0 && f.yielded >= stop.MaxItems {
					log.Info("item limit reached", "items", f.yielded)
					return
				}
				if f.run.Expired() {
					log.Info("time budget exhausted", "elapsed", f.run.Elapsed().Round(time.Second))
					return
				}
				f.yielded++
				if !yield(domain.Item{Raw: raw, Users: page.Users, Index: i}, nil) {
					return
				}
			}
			if page.Next == "" {
				return
			}
			f.cursor = page.Next
		}
	}
}

func (f *Fetcher) stoppedByBudget(ctx context.Context, err error) bool {
	if errors.Is(err, errBudget) {
		return true
	}
	return ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded) && f.run.Budget > 0
}

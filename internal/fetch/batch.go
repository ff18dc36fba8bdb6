package fetch

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/session"
)

// BatchSize is the most ids one lookup request may carry.
const BatchSize = 100

// Batches splits ids into consecutive groups of at most size, keeping order.
func Batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = BatchSize
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

// BatchFetcher looks up an id list batch by batch. A failed batch is logged
// and counted; the remaining batches still run.
type BatchFetcher struct {
	src     domain.BatchSource
	run     *session.Run
	batches [][]string
	opts    Options
	retry   *retrier

	used     bool
	yielded  int
	failures int
	done     int
}

func NewBatch(src domain.BatchSource, ids []string, run *session.Run, opts Options) *BatchFetcher {
	return &BatchFetcher{
		src:     src,
		run:     run,
		batches: Batches(ids, BatchSize),
		opts:    opts,
		retry:   newRetrier(run, opts),
	}
}

// Batches is the number of batches the id list was split into.
func (b *BatchFetcher) Batches() int { return len(b.batches) }

// Failures is the number of batches that failed.
func (b *BatchFetcher) Failures() int { return b.failures }

// Completed is the number of batches that returned.
func (b *BatchFetcher) Completed() int { return b.done }

func (b *BatchFetcher) Items(ctx context.Context) iter.Seq2[domain.Item, error] {
	return func(yield func(domain.Item, error) bool) {
		if b.used {
			yield(domain.Item{}, ErrConsumed)
			return
		}
		b.used = true
		log := b.run.Logger
		stop := b.opts.Stop

		for n, ids := range b.batches {
			if b.run.Expired() {
				log.Info("time budget exhausted", "elapsed", b.run.Elapsed().Round(time.Second))
				return
			}
			page, err := b.retry.do(ctx, "batch", func(ctx context.Context) (domain.Page, error) {
				return b.src.Lookup(ctx, ids)
			})
			if err != nil {
				if errors.Is(err, errBudget) {
					return
				}
				if ctx.Err() != nil {
					yield(domain.Item{}, ctx.Err())
					return
				}
				b.failures++
				log.Error("batch failed, continuing with next batch",
					"batch", n+1, "of", len(b.batches), "ids", len(ids), "err", err)
				continue
			}
			b.done++
			b.run.Pages++
			log.Info("fetched batch", "batch", n+1, "of", len(b.batches), "items", len(page.Items), "total", b.yielded)

			for i, raw := range page.Items {
				if stop.MaxItems > 0 && b.yielded >= stop.MaxItems {
					log.Info("item limit reached", "items", b.yielded)
					return
				}
				b.yielded++
				if !yield(domain.Item{Raw: raw, Users: page.Users, Index: i}, nil) {
					return
				}
			}
		}
	}
}

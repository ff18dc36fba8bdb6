package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/qepting91/misinfo-collector/internal/collector"
	"github.com/qepting91/misinfo-collector/internal/dedupe"
	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/fetch"
	"github.com/qepting91/misinfo-collector/internal/normalize"
	"github.com/qepting91/misinfo-collector/internal/session"
	"github.com/qepting91/misinfo-collector/internal/storage"
)

// Reddit collects new posts for a list of subreddits. Each subreddit keeps
// its own directory under OutDir and resumes from the newest post found
// there.
type Reddit struct {
	Run        *session.Run
	Client     domain.Collector
	Normalizer *normalize.Normalizer
	OutDir     string
	Stamp      string
	MinDate    time.Time
	// ListingLimit caps posts per subreddit; the listing ends there anyway.
	ListingLimit int
	PageSize     int
	// Pause is slept between subreddits.
	Pause    time.Duration
	Fetch    fetch.Options
	Keywords []string
	Sync     bool
	// NewSeen returns the seen set for a subreddit. Nil uses an in-memory
	// set seeded from the newest output file.
	NewSeen func(sub string) (dedupe.Set, error)
}

// Summary totals one command run.
type Summary struct {
	Targets    int
	Failed     int
	Written    int
	Duplicates int
	NoUser     int
}

// Collect runs every subreddit in order. Upstream failures are logged and
// the next subreddit is tried; configuration and watermark errors end the
// run.
func (r *Reddit) Collect(ctx context.Context, subs []string) (Summary, error) {
	var sum Summary
	log := r.Run.Logger
	log.Info("collecting subreddits", "count", len(subs), "fields", r.Normalizer.Fields())
	for i, sub := range subs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if i > 0 && r.Pause > 0 {
			log.Info("pausing between subreddits", "pause", r.Pause)
			if err := sleep(ctx, r.Fetch.Sleep, r.Pause); err != nil {
				return sum, err
			}
		}

		sum.Targets++
		c, err := r.collectOne(ctx, sub)
		if c != nil {
			sum.Written += c.Written
			sum.Duplicates += c.Duplicates
			sum.NoUser += c.NoUser
		}
		if err != nil {
			if Fatal(err) || ctx.Err() != nil {
				return sum, fmt.Errorf("r/%s: %w", sub, err)
			}
			sum.Failed++
			log.Error("subreddit failed, moving on", "subreddit", sub, "err", err)
			continue
		}
		log.Info("subreddit done", "subreddit", sub, "written", c.Written, "duplicates", c.Duplicates)
	}
	return sum, nil
}

func (r *Reddit) collectOne(ctx context.Context, sub string) (*Collection, error) {
	dir := filepath.Join(r.OutDir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", domain.ErrConfiguration, dir, err)
	}
	target := domain.Target{
		Name:       sub,
		OutputDir:  dir,
		OutputPath: filepath.Join(dir, sub+"_"+r.Stamp+".json"),
	}
	cutoff, err := storage.ComputeCutoff(dir, r.MinDate)
	if err != nil {
		return nil, err
	}
	target.Cutoff = cutoff
	log := r.Run.Logger.With("subreddit", sub)
	log.Info("collecting subreddit", "cutoff", cutoff, "out", target.OutputPath)

	seen, err := r.seenSet(ctx, target)
	if err != nil {
		return nil, err
	}
	defer seen.Close()

	w, err := storage.NewWriter(target.OutputPath)
	if err != nil {
		return nil, err
	}
	w.Sync = r.Sync
	defer w.Close()

	opts := r.Fetch
	opts.Stop = fetch.Stop{
		Cutoff:         target.Cutoff,
		TimestampField: "created_utc",
		MaxItems:       r.ListingLimit,
	}
	run := *r.Run
	run.Logger = log
	f := fetch.New(&collector.Listing{Client: r.Client, Subreddit: sub, Limit: r.PageSize}, &run, opts)

	c := &Collection{
		Run:           &run,
		Normalizer:    r.Normalizer,
		Writer:        w,
		IDField:       "id",
		Seen:          seen,
		Keywords:      r.Keywords,
		KeywordFields: []string{"title", "selftext"},
	}
	err = c.Consume(ctx, f.Items(ctx))
	r.Run.Items, r.Run.Pages = run.Items, run.Pages
	log.Debug("listing read", "fetched", f.Yielded(), "pages", run.Pages)
	return c, err
}

// seenSet returns the target's seen set, seeded with the ids of the newest
// output file that has any.
func (r *Reddit) seenSet(ctx context.Context, target domain.Target) (dedupe.Set, error) {
	var set dedupe.Set = dedupe.NewMemory()
	if r.NewSeen != nil {
		s, err := r.NewSeen(target.Name)
		if err != nil {
			return nil, err
		}
		set = s
	}
	files, err := storage.FilesByModTime(target.OutputDir)
	if err != nil {
		set.Close()
		return nil, err
	}
	for _, path := range files {
		n, err := dedupe.SeedFromFile(ctx, set, path, "id")
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("seeding seen ids: %w", err)
		}
		if n > 0 {
			r.Run.Logger.Debug("seeded seen ids", "file", path, "ids", n)
			break
		}
	}
	return set, nil
}

// Fatal reports whether err should stop the process rather than only the
// current target.
func Fatal(err error) bool {
	return errors.Is(err, domain.ErrConfiguration) ||
		errors.Is(err, domain.ErrMalformedRecord) ||
		errors.Is(err, domain.ErrMissingFile)
}

func sleep(ctx context.Context, fn func(context.Context, time.Duration) error, d time.Duration) error {
	if fn != nil {
		return fn(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

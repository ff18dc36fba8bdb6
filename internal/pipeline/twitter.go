package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qepting91/misinfo-collector/internal/collector"
	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/fetch"
	"github.com/qepting91/misinfo-collector/internal/logging"
	"github.com/qepting91/misinfo-collector/internal/normalize"
	"github.com/qepting91/misinfo-collector/internal/session"
	"github.com/qepting91/misinfo-collector/internal/storage"
)

var tweetKeywordFields = []string{"text"}

// Tweets holds what the tweet commands share.
type Tweets struct {
	Run        *session.Run
	Normalizer *normalize.Normalizer
	// OutDir receives tweets_<stamp>.json, MetaDir the aggregate files.
	OutDir   string
	MetaDir  string
	Fetch    fetch.Options
	Keywords []string
	Sync     bool
}

func (t *Tweets) prepare(stamp string) (*storage.Writer, error) {
	for _, dir := range []string{t.OutDir, t.MetaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", domain.ErrConfiguration, dir, err)
		}
	}
	w, err := storage.NewWriter(filepath.Join(t.OutDir, "tweets_"+stamp+".json"))
	if err != nil {
		return nil, err
	}
	w.Sync = t.Sync
	return w, nil
}

func (t *Tweets) collection(w *storage.Writer, agg *session.Aggregator) *Collection {
	return &Collection{
		Run:           t.Run,
		Normalizer:    t.Normalizer,
		Writer:        w,
		IDField:       "id",
		Keywords:      t.Keywords,
		KeywordFields: tweetKeywordFields,
		Aggregator:    agg,
	}
}

// consume runs seq into a fresh file and aggregate named by stamp. The
// aggregate is written even when the sequence fails part way.
func (t *Tweets) consume(ctx context.Context, stamp string, seq func(context.Context) error, c *Collection, agg *session.Aggregator) error {
	err := seq(ctx)
	d, e, ferr := FlushCounts(t.MetaDir, stamp, agg)
	if ferr != nil {
		if err == nil {
			err = ferr
		}
	} else {
		t.Run.Logger.Info("wrote aggregates", "domains", d, "entities", e)
	}
	t.Run.Logger.Info("collection finished",
		"file", c.Writer.FilePath, "written", c.Written, "no_user", c.NoUser)
	return err
}

// Search runs a recent-search query over consecutive windows, one output
// file and aggregate per window.
type Search struct {
	Tweets
	Source     func(query string, w Window) domain.PageSource
	Query      string
	Iterations int
}

func (s *Search) Collect(ctx context.Context, windows []Window) (Summary, error) {
	var sum Summary
	log := s.Run.Logger
	for _, win := range windows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Targets++
		stamp := win.Start.Format(logging.StampLayout)
		w, err := s.prepare(stamp)
		if err != nil {
			return sum, err
		}
		agg := session.NewAggregator()
		c := s.collection(w, agg)
		opts := s.Fetch
		opts.Stop = fetch.Stop{MaxPages: s.Iterations}
		f := fetch.New(s.Source(s.Query, win), s.Run, opts)

		log.Info("searching window", "start", win.Start, "end", win.End, "query", s.Query)
		err = s.consume(ctx, stamp, func(ctx context.Context) error {
			return c.Consume(ctx, f.Items(ctx))
		}, c, agg)
		w.Close()
		sum.Written += c.Written
		sum.NoUser += c.NoUser
		if err != nil {
			if Fatal(err) || ctx.Err() != nil {
				return sum, err
			}
			sum.Failed++
			log.Error("window failed, moving on", "start", win.Start, "err", err)
		}
	}
	return sum, nil
}

// Lookup hydrates tweets by id in batches of 100.
type Lookup struct {
	Tweets
	Source domain.BatchSource
	Stamp  string
}

func (l *Lookup) Collect(ctx context.Context, ids []string) (Summary, error) {
	w, err := l.prepare(l.Stamp)
	if err != nil {
		return Summary{}, err
	}
	defer w.Close()
	agg := session.NewAggregator()
	c := l.collection(w, agg)
	b := fetch.NewBatch(l.Source, ids, l.Run, l.Fetch)

	err = l.consume(ctx, l.Stamp, func(ctx context.Context) error {
		return c.Consume(ctx, b.Items(ctx))
	}, c, agg)
	sum := Summary{Targets: b.Batches(), Failed: b.Failures(), Written: c.Written, NoUser: c.NoUser}
	if b.Failures() > 0 {
		l.Run.Logger.Warn("some batches failed",
			"failed", b.Failures(), "completed", b.Completed(), "of", b.Batches())
	}
	return sum, err
}

// RuleAPI manages filtered-stream rules.
type RuleAPI interface {
	Rules(ctx context.Context) ([]collector.Rule, error)
	DeleteRules(ctx context.Context, ids []string) error
	AddRule(ctx context.Context, value string) error
}

// StreamSource is the connection a stream collection reads from.
type StreamSource interface {
	domain.PageSource
	Close() error
}

// Stream replaces the stream rules with one per term and records matching
// tweets until the run budget or the context ends.
type Stream struct {
	Tweets
	Rules  RuleAPI
	Source StreamSource
	Stamp  string
}

// ResetRules deletes every existing rule then adds one per term, stopping
// at the first term the API rejects. It returns the number of rules added.
func (s *Stream) ResetRules(ctx context.Context, terms []string) (int, error) {
	log := s.Run.Logger
	rules, err := s.Rules.Rules(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing rules: %w", err)
	}
	if len(rules) > 0 {
		ids := make([]string, 0, len(rules))
		for _, r := range rules {
			ids = append(ids, r.ID)
		}
		if err := s.Rules.DeleteRules(ctx, ids); err != nil {
			return 0, fmt.Errorf("deleting rules: %w", err)
		}
		log.Info("deleted stream rules", "count", len(ids))
	}
	added := 0
	for _, term := range terms {
		if err := s.Rules.AddRule(ctx, term); err != nil {
			log.Warn("rule rejected, not adding further rules", "rule", term, "err", err)
			break
		}
		added++
	}
	log.Info("added stream rules", "count", added)
	return added, nil
}

func (s *Stream) Collect(ctx context.Context, terms []string) (Summary, error) {
	if _, err := s.ResetRules(ctx, terms); err != nil {
		return Summary{}, err
	}
	if s.Run.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, s.Run.Start.Add(s.Run.Budget))
		defer cancel()
	}
	w, err := s.prepare(s.Stamp)
	if err != nil {
		return Summary{}, err
	}
	defer w.Close()
	defer s.Source.Close()

	agg := session.NewAggregator()
	c := s.collection(w, agg)
	opts := s.Fetch
	opts.PageDelay = 0
	f := fetch.New(s.Source, s.Run, opts)

	err = s.consume(ctx, s.Stamp, func(ctx context.Context) error {
		return c.Consume(ctx, f.Items(ctx))
	}, c, agg)
	return Summary{Targets: 1, Written: c.Written, NoUser: c.NoUser}, err
}

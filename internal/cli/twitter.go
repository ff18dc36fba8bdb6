package cli

import (
	"github.com/spf13/cobra"

	"github.com/qepting91/misinfo-collector/internal/collector"
	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/ingest"
	"github.com/qepting91/misinfo-collector/internal/normalize"
	"github.com/qepting91/misinfo-collector/internal/pipeline"
)

// tweetDirs are the output flags every tweet command takes.
type tweetDirs struct {
	out  string
	meta string
}

func (d *tweetDirs) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&d.out, "out", "o", "", "tweet output directory (default from config)")
	cmd.Flags().StringVarP(&d.meta, "meta", "m", "", "aggregate output directory (default from config)")
}

func (a *app) tweets(dirs tweetDirs, keywordsPath string) (pipeline.Tweets, *collector.Twitter, error) {
	cfg := a.cfg
	if dirs.out != "" {
		cfg.Output.TweetsDir = dirs.out
	}
	if dirs.meta != "" {
		cfg.Output.MetaDir = dirs.meta
	}
	tw, err := collector.NewTwitter(cfg.Twitter.BaseURL, a.creds.TwitterBearerToken, collector.TwitterFields{
		Expansions:  cfg.Twitter.Expansions,
		TweetFields: cfg.Twitter.TweetFields,
		MediaFields: cfg.Twitter.MediaFields,
		UserFields:  cfg.Twitter.UserFields,
	}, cfg.Twitter.MaxResults, cfg.Twitter.Timeout)
	if err != nil {
		return pipeline.Tweets{}, nil, err
	}
	norm, err := normalize.New(TwitterNormalizeOptions(cfg), a.run.Logger)
	if err != nil {
		return pipeline.Tweets{}, nil, err
	}
	var keywords []string
	if keywordsPath != "" {
		if keywords, err = ingest.LoadKeywords(keywordsPath); err != nil {
			return pipeline.Tweets{}, nil, err
		}
	}
	return pipeline.Tweets{
		Run:        a.run,
		Normalizer: norm,
		OutDir:     cfg.Output.TweetsDir,
		MetaDir:    cfg.Output.MetaDir,
		Fetch:      a.fetchOptions(),
		Keywords:   keywords,
		Sync:       cfg.Output.Sync,
	}, tw, nil
}

var searchFlags struct {
	dirs       tweetDirs
	terms      string
	keywords   string
	startDate  string
	startTime  string
	delta      int
	deltaUnit  string
	iterations int
	windows    int
}

var searchCmd = &cobra.Command{
	Use:   "search -s terms.txt -d 2022-11-20 [-t 14:00] [-e 60 -u minutes] [--windows N]",
	Short: "Collects recent tweets matching the search terms over consecutive time windows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup("twitter_search", 0)
		if err != nil {
			return err
		}
		job, windows, err := a.searchJob()
		if err != nil {
			return a.finish(pipeline.Summary{}, err)
		}
		return a.finish(job.Collect(cmd.Context(), windows))
	},
}

func (a *app) searchJob() (*pipeline.Search, []pipeline.Window, error) {
	terms, err := ingest.LoadLines(searchFlags.terms)
	if err != nil {
		return nil, nil, err
	}
	query := ingest.BuildQuery(terms, a.cfg.Twitter.QueryTerms)
	if query == "" {
		return nil, nil, domain.Configf("no search terms in %s", searchFlags.terms)
	}
	width, err := pipeline.Span(searchFlags.delta, searchFlags.deltaUnit)
	if err != nil {
		return nil, nil, err
	}
	now := a.run.Now()
	start := now.Add(-width)
	if searchFlags.startDate != "" {
		s := searchFlags.startDate
		if searchFlags.startTime != "" {
			s += " " + searchFlags.startTime + ":00"
		}
		if start, err = domain.ParseTimeString(s); err != nil {
			return nil, nil, domain.Configf("start date: %v", err)
		}
	}
	windows, err := pipeline.PlanWindows(start, width, searchFlags.windows, now)
	if err != nil {
		return nil, nil, err
	}

	base, tw, err := a.tweets(searchFlags.dirs, searchFlags.keywords)
	if err != nil {
		return nil, nil, err
	}
	iterations := searchFlags.iterations
	if iterations <= 0 {
		iterations = a.cfg.Twitter.Iterations
	}
	return &pipeline.Search{
		Tweets: base,
		Source: func(query string, w pipeline.Window) domain.PageSource {
			return tw.Search(query, w.Start, w.End)
		},
		Query:      query,
		Iterations: iterations,
	}, windows, nil
}

var lookupFlags struct {
	dirs     tweetDirs
	ids      string
	keywords string
}

var lookupCmd = &cobra.Command{
	Use:   "lookup --ids ids.txt",
	Short: "Hydrates tweets by id, 100 per request.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup("twitter_lookup", 0)
		if err != nil {
			return err
		}
		ids, skipped, err := ingest.LoadTweetIDs(lookupFlags.ids)
		if err != nil {
			return a.finish(pipeline.Summary{}, err)
		}
		if skipped > 0 {
			a.run.Logger.Warn("skipped lines that are not tweet ids", "count", skipped)
		}
		base, tw, err := a.tweets(lookupFlags.dirs, lookupFlags.keywords)
		if err != nil {
			return a.finish(pipeline.Summary{}, err)
		}
		job := &pipeline.Lookup{Tweets: base, Source: tw, Stamp: a.stamp}
		return a.finish(job.Collect(cmd.Context(), ids))
	},
}

var streamFlags struct {
	dirs     tweetDirs
	terms    string
	keywords string
	killTime int
	timeUnit string
}

var streamCmd = &cobra.Command{
	Use:   "stream -s terms.txt -k 60 [-t minutes|seconds]",
	Short: "Records the filtered stream for the search terms until the kill time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		budget, err := pipeline.Span(streamFlags.killTime, streamFlags.timeUnit, "minutes", "seconds")
		if err != nil {
			return err
		}
		a, err := setup("twitter_stream", budget)
		if err != nil {
			return err
		}
		terms, err := ingest.LoadLines(streamFlags.terms)
		if err != nil {
			return a.finish(pipeline.Summary{}, err)
		}
		base, tw, err := a.tweets(streamFlags.dirs, streamFlags.keywords)
		if err != nil {
			return a.finish(pipeline.Summary{}, err)
		}
		job := &pipeline.Stream{Tweets: base, Rules: tw, Source: tw.Stream(), Stamp: a.stamp}
		a.run.Logger.Info("streaming", "budget", budget, "terms", len(terms))
		return a.finish(job.Collect(cmd.Context(), terms))
	},
}

func init() {
	f := searchCmd.Flags()
	searchFlags.dirs.register(searchCmd)
	f.StringVarP(&searchFlags.terms, "search-terms", "s", "input/search_terms.txt", "file with one search term per line")
	f.StringVar(&searchFlags.keywords, "keywords", "", "optional keyword file; matches are tagged on records")
	f.StringVarP(&searchFlags.startDate, "start-date", "d", "", "window start date, YYYY-MM-DD (default: one window before now)")
	f.StringVarP(&searchFlags.startTime, "start-time", "t", "", "window start time, HH:MM")
	f.IntVarP(&searchFlags.delta, "delta", "e", 60, "window width")
	f.StringVarP(&searchFlags.deltaUnit, "delta-unit", "u", "minutes", "seconds, minutes or hours")
	f.IntVarP(&searchFlags.iterations, "iterations", "i", 0, "max pages per window (default from config)")
	f.IntVar(&searchFlags.windows, "windows", 1, "number of consecutive windows")

	lookupFlags.dirs.register(lookupCmd)
	lookupCmd.Flags().StringVar(&lookupFlags.ids, "ids", "input/tweet_ids.txt", "file with one tweet id per line")
	lookupCmd.Flags().StringVar(&lookupFlags.keywords, "keywords", "", "optional keyword file; matches are tagged on records")

	streamFlags.dirs.register(streamCmd)
	sf := streamCmd.Flags()
	sf.StringVarP(&streamFlags.terms, "search-terms", "s", "input/search_terms.txt", "file with one rule per line")
	sf.StringVar(&streamFlags.keywords, "keywords", "", "optional keyword file; matches are tagged on records")
	sf.IntVarP(&streamFlags.killTime, "kill-time", "k", 60, "how long to stream")
	sf.StringVarP(&streamFlags.timeUnit, "time-unit", "t", "minutes", "minutes or seconds")

	rootCmd.AddCommand(searchCmd, lookupCmd, streamCmd)
}


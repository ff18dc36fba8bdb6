package cli

import (
	"github.com/spf13/cobra"

	"github.com/qepting91/misinfo-collector/internal/collector"
	"github.com/qepting91/misinfo-collector/internal/config"
	"github.com/qepting91/misinfo-collector/internal/dedupe"
	"github.com/qepting91/misinfo-collector/internal/ingest"
	"github.com/qepting91/misinfo-collector/internal/normalize"
	"github.com/qepting91/misinfo-collector/internal/pipeline"
)

var redditFlags struct {
	subreddits string
	out        string
	keywords   string
	mode       string
}

var redditCmd = &cobra.Command{
	Use:   "reddit [-s subreddits.csv] [-o out_dir]",
	Short: "Collects new posts from each subreddit since the last run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup("reddit", 0)
		if err != nil {
			return err
		}
		if redditFlags.mode != "" {
			a.cfg.Reddit.Mode = redditFlags.mode
		}
		if redditFlags.out != "" {
			a.cfg.Output.RedditDir = redditFlags.out
		}
		job, subs, err := a.redditJob()
		if err != nil {
			return a.finish(pipeline.Summary{}, err)
		}
		a.run.Logger.Info("collector initialized", "mode", a.cfg.Reddit.Mode, "subreddits", len(subs))
		return a.finish(job.Collect(cmd.Context(), subs))
	},
}

func init() {
	f := redditCmd.Flags()
	f.StringVarP(&redditFlags.subreddits, "subreddits", "s", "input/subreddits.csv", "file listing subreddits")
	f.StringVarP(&redditFlags.out, "out", "o", "", "output directory (default from config)")
	f.StringVar(&redditFlags.keywords, "keywords", "", "optional keyword file; matches are tagged on records")
	f.StringVar(&redditFlags.mode, "mode", "", "api, public or mock (default from config or COLLECTOR_MODE)")
	rootCmd.AddCommand(redditCmd)
}

func (a *app) redditJob() (*pipeline.Reddit, []string, error) {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	subs, err := ingest.LoadSubreddits(redditFlags.subreddits)
	if err != nil {
		return nil, nil, err
	}
	var keywords []string
	if redditFlags.keywords != "" {
		if keywords, err = ingest.LoadKeywords(redditFlags.keywords); err != nil {
			return nil, nil, err
		}
	}
	minDate, err := cfg.MinDate()
	if err != nil {
		return nil, nil, err
	}

	userAgent := a.creds.RedditUserAgent
	if userAgent == "" {
		userAgent = "misinfo-collector/1.0"
	}
	client, err := collector.NewCollector(collector.RedditSettings{
		Mode:         cfg.Reddit.Mode,
		UserAgent:    userAgent,
		BaseURL:      cfg.Reddit.BaseURL,
		ClientID:     a.creds.RedditClientID,
		ClientSecret: a.creds.RedditClientSecret,
		Username:     a.creds.RedditUsername,
		Password:     a.creds.RedditPassword,
		ResolveUsers: cfg.Reddit.ResolveUsers,
	})
	if err != nil {
		return nil, nil, err
	}
	norm, err := normalize.New(RedditNormalizeOptions(cfg), a.run.Logger)
	if err != nil {
		return nil, nil, err
	}

	job := &pipeline.Reddit{
		Run:          a.run,
		Client:       client,
		Normalizer:   norm,
		OutDir:       cfg.Output.RedditDir,
		Stamp:        a.stamp,
		MinDate:      minDate,
		ListingLimit: cfg.Reddit.ListingLimit,
		PageSize:     cfg.Reddit.PageSize,
		Pause:        cfg.Reddit.TargetPause,
		Fetch:        a.fetchOptions(),
		Keywords:     keywords,
		Sync:         cfg.Output.Sync,
	}
	if cfg.Dedupe.ValkeyAddress != "" {
		opts := dedupe.ValkeyOptions{
			Address:  cfg.Dedupe.ValkeyAddress,
			Password: a.creds.ValkeyPassword,
			TLS:      cfg.Dedupe.ValkeyTLS,
			TTL:      cfg.Dedupe.TTL,
		}
		job.NewSeen = func(sub string) (dedupe.Set, error) {
			return dedupe.NewValkey(opts, dedupe.Key("reddit:"+sub))
		}
	}
	return job, subs, nil
}

// RedditNormalizeOptions maps the reddit config onto normalizer options.
func RedditNormalizeOptions(cfg *config.Config) normalize.Options {
	return normalize.Options{
		CoreFields:         cfg.Reddit.Fields.Core,
		ExtraFields:        cfg.Reddit.Fields.Extra,
		Mode:               fieldMode(cfg.Reddit.Fields),
		TimestampField:     "created_utc",
		ConvertTimestamp:   cfg.Reddit.Fields.ConvertTimestamp,
		AuthorField:        "author",
		UserMatchField:     "name",
		UserFields:         cfg.Reddit.UserFields,
		UserStyle:          normalize.UserFlat,
		UserTimestampField: "created_utc",
		TextField:          "selftext",
	}
}

// TwitterNormalizeOptions maps the twitter config onto normalizer options.
func TwitterNormalizeOptions(cfg *config.Config) normalize.Options {
	return normalize.Options{
		CoreFields:       cfg.Twitter.Fields.Core,
		ExtraFields:      cfg.Twitter.Fields.Extra,
		Mode:             fieldMode(cfg.Twitter.Fields),
		TimestampField:   "created_at",
		ConvertTimestamp: cfg.Twitter.Fields.ConvertTimestamp,
		AuthorField:      "author_id",
		UserMatchField:   "id",
		UserFields:       cfg.Twitter.OutUserFields,
		UserStyle:        normalize.UserNested,
		TextField:        "text",
		AnnotationsField: "context_annotations",
	}
}

func fieldMode(f config.FieldsConfig) normalize.Mode {
	if f.Replace {
		return normalize.ModeReplace
	}
	return normalize.ModeExtend
}

package config

import "time"

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Reddit: RedditConfig{
			Mode:         "api",
			BaseURL:      "https://www.reddit.com",
			MinDate:      "2022-11-15",
			ListingLimit: 1000,
			PageSize:     100,
			TargetPause:  30 * time.Second,
			ResolveUsers: true,
			Fields: FieldsConfig{
				Core:             []string{"id", "created_utc", "title", "selftext", "domain", "url", "num_comments", "score", "ups", "downs", "author"},
				ConvertTimestamp: true,
			},
			UserFields: []string{"name", "id", "total_karma", "verified", "created_utc"},
		},
		Twitter: TwitterConfig{
			BaseURL:     "https://api.twitter.com",
			MaxResults:  100,
			Iterations:  1000,
			QueryTerms:  5,
			Timeout:     30 * time.Second,
			Expansions:  []string{"author_id", "referenced_tweets.id"},
			TweetFields: []string{"created_at", "public_metrics", "source", "context_annotations"},
			MediaFields: []string{"media_key", "type", "url", "duration_ms"},
			UserFields:  []string{"id", "name", "username", "created_at", "description", "location", "public_metrics", "protected"},
			Fields: FieldsConfig{
				Core: []string{"author_id", "created_at", "id", "public_metrics", "referenced_tweets", "source", "text"},
			},
			OutUserFields: []string{"created_at", "description", "id", "location", "name", "public_metrics", "username"},
		},
		Fetch: FetchConfig{
			PageDelay:  time.Second,
			Cooldown:   5 * time.Minute,
			MaxRetries: 0,
		},
		Output: OutputConfig{
			RedditDir: "data/reddit_posts",
			TweetsDir: "data/tweets",
			MetaDir:   "data/tweets_meta",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    "data/logfiles",
		},
		Dedupe: DedupeConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Dashboard: DashboardConfig{
			Port: "8080",
		},
	}
}

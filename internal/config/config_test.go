package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "api", cfg.Reddit.Mode)
	assert.Equal(t, "2022-11-15", cfg.Reddit.MinDate)
	assert.Equal(t, 1000, cfg.Reddit.ListingLimit)
	assert.Equal(t, 100, cfg.Reddit.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Reddit.TargetPause)
	assert.True(t, cfg.Reddit.Fields.ConvertTimestamp)
	assert.Contains(t, cfg.Reddit.Fields.Core, "created_utc")
	assert.Equal(t, []string{"name", "id", "total_karma", "verified", "created_utc"}, cfg.Reddit.UserFields)
	assert.Equal(t, 100, cfg.Twitter.MaxResults)
	assert.Equal(t, 5, cfg.Twitter.QueryTerms)
	assert.Contains(t, cfg.Twitter.TweetFields, "context_annotations")
	assert.Equal(t, time.Second, cfg.Fetch.PageDelay)
	assert.Equal(t, 5*time.Minute, cfg.Fetch.Cooldown)
	assert.Equal(t, "data/reddit_posts", cfg.Output.RedditDir)
	assert.Equal(t, "data/tweets_meta", cfg.Output.MetaDir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "8080", cfg.Dashboard.Port)
	require.NoError(t, cfg.Validate())

	min, err := cfg.MinDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 11, 15, 0, 0, 0, 0, time.UTC), min)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("COLLECTOR_MODE", "")
	t.Setenv("PORT", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadLayersLocalOverrides(t *testing.T) {
	t.Setenv("COLLECTOR_MODE", "")
	t.Setenv("PORT", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
reddit:
  mode: public
  target_pause: 5s
fetch:
  cooldown: 2m
output:
  reddit_dir: /tmp/reddit
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.yaml"), []byte(`
reddit:
  mode: mock
logging:
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Reddit.Mode)
	assert.Equal(t, 5*time.Second, cfg.Reddit.TargetPause)
	assert.Equal(t, 2*time.Minute, cfg.Fetch.Cooldown)
	assert.Equal(t, "/tmp/reddit", cfg.Output.RedditDir)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 100, cfg.Reddit.PageSize, "untouched defaults survive")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COLLECTOR_MODE", "public")
	t.Setenv("PORT", "9999")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.Reddit.Mode)
	assert.Equal(t, "9999", cfg.Dashboard.Port)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("COLLECTOR_MODE", "")
	cases := map[string]string{
		"bad yaml":         "reddit: [",
		"bad mode":         "reddit:\n  mode: scrape\n",
		"bad min date":     "reddit:\n  min_date: soon\n",
		"replace no extra": "twitter:\n  fields:\n    replace: true\n",
		"max results":      "twitter:\n  max_results: 500\n",
		"log format":       "logging:\n  format: xml\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := Load(path)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestLocalPath(t *testing.T) {
	assert.Equal(t, "conf/config.local.yaml", LocalPath("conf/config.yaml"))
	assert.Equal(t, "settings.local", LocalPath("settings"))
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("TWITTER_BEARER_TOKEN", "tok")
	c := CredentialsFromEnv()
	assert.Equal(t, "id", c.RedditClientID)
	assert.Equal(t, "tok", c.TwitterBearerToken)
}

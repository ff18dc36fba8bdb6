// Package config loads collector settings: tunables from YAML, credentials
// from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "config.yaml"

// Config holds all collector configuration.
type Config struct {
	Reddit    RedditConfig    `yaml:"reddit"`
	Twitter   TwitterConfig   `yaml:"twitter"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Dedupe    DedupeConfig    `yaml:"dedupe"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

type RedditConfig struct {
	Mode         string        `yaml:"mode"`
	BaseURL      string        `yaml:"base_url"`
	MinDate      string        `yaml:"min_date"`
	ListingLimit int           `yaml:"listing_limit"`
	PageSize     int           `yaml:"page_size"`
	TargetPause  time.Duration `yaml:"target_pause"`
	ResolveUsers bool          `yaml:"resolve_users"`
	Fields       FieldsConfig  `yaml:"fields"`
	UserFields   []string      `yaml:"user_fields"`
}

type TwitterConfig struct {
	BaseURL     string        `yaml:"base_url"`
	MaxResults  int           `yaml:"max_results"`
	Iterations  int           `yaml:"iterations"`
	QueryTerms  int           `yaml:"query_terms"`
	Timeout     time.Duration `yaml:"timeout"`
	Expansions  []string      `yaml:"expansions"`
	TweetFields []string      `yaml:"tweet_fields"`
	MediaFields []string      `yaml:"media_fields"`
	UserFields  []string      `yaml:"user_fields"`
	Fields      FieldsConfig  `yaml:"fields"`
	// OutUserFields are the user attributes kept on records.
	OutUserFields []string `yaml:"out_user_fields"`
}

// FieldsConfig picks the record fields. Replace swaps Core for Extra
// instead of adding to it.
type FieldsConfig struct {
	Core             []string `yaml:"core"`
	Extra            []string `yaml:"extra"`
	Replace          bool     `yaml:"replace"`
	ConvertTimestamp bool     `yaml:"convert_timestamp"`
}

type FetchConfig struct {
	PageDelay  time.Duration `yaml:"page_delay"`
	Cooldown   time.Duration `yaml:"cooldown"`
	MaxRetries int           `yaml:"max_retries"`
}

type OutputConfig struct {
	RedditDir string `yaml:"reddit_dir"`
	TweetsDir string `yaml:"tweets_dir"`
	MetaDir   string `yaml:"meta_dir"`
	Sync      bool   `yaml:"sync"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
	Stdout bool   `yaml:"stdout"`
}

type DedupeConfig struct {
	ValkeyAddress string        `yaml:"valkey_address"`
	ValkeyTLS     bool          `yaml:"valkey_tls"`
	TTL           time.Duration `yaml:"ttl"`
}

type DashboardConfig struct {
	Port string `yaml:"port"`
}

// Load reads the YAML config at path over the defaults, then applies
// <name>.local.<ext> on top if it exists. A missing base file is not an
// error; the defaults are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing config file %s: %v", domain.ErrConfiguration, path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	local := LocalPath(path)
	data, err = os.ReadFile(local)
	switch {
	case err == nil:
		var override Config
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("%w: parsing config file %s: %v", domain.ErrConfiguration, local, err)
		}
		if err := mergo.Merge(cfg, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging %s: %w", local, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LocalPath is the override file for path: config.yaml -> config.local.yaml.
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// Validate checks values that would otherwise fail mid-run.
func (c *Config) Validate() error {
	switch c.Reddit.Mode {
	case "api", "public", "mock":
	default:
		return domain.Configf("reddit.mode must be api, public or mock, got %q", c.Reddit.Mode)
	}
	if _, err := c.MinDate(); err != nil {
		return err
	}
	if c.Reddit.PageSize < 1 || c.Reddit.PageSize > 100 {
		return domain.Configf("reddit.page_size must be between 1 and 100, got %d", c.Reddit.PageSize)
	}
	if c.Reddit.Fields.Replace && len(c.Reddit.Fields.Extra) == 0 {
		return domain.Configf("reddit.fields.replace needs reddit.fields.extra")
	}
	if c.Twitter.Fields.Replace && len(c.Twitter.Fields.Extra) == 0 {
		return domain.Configf("twitter.fields.replace needs twitter.fields.extra")
	}
	if c.Twitter.MaxResults < 10 || c.Twitter.MaxResults > 100 {
		return domain.Configf("twitter.max_results must be between 10 and 100, got %d", c.Twitter.MaxResults)
	}
	if c.Fetch.PageDelay < 0 || c.Fetch.Cooldown < 0 || c.Reddit.TargetPause < 0 {
		return domain.Configf("durations must not be negative")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return domain.Configf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// MinDate is the cutoff used for targets with no earlier output.
func (c *Config) MinDate() (time.Time, error) {
	t, err := domain.ParseTimeString(c.Reddit.MinDate)
	if err != nil {
		return time.Time{}, domain.Configf("reddit.min_date: %v", err)
	}
	return t, nil
}

package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Credentials are the secrets read from the environment.
type Credentials struct {
	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
	RedditUserAgent    string
	TwitterBearerToken string
	ValkeyPassword     string
}

// LoadEnv loads .env files into the environment. Missing files are ignored
// and variables already set win.
func LoadEnv(files ...string) {
	godotenv.Load(files...)
}

// CredentialsFromEnv reads credentials from the environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUsername:     os.Getenv("REDDIT_USERNAME"),
		RedditPassword:     os.Getenv("REDDIT_PASSWORD"),
		RedditUserAgent:    os.Getenv("REDDIT_USER_AGENT"),
		TwitterBearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
		ValkeyPassword:     os.Getenv("VALKEY_PASSWORD"),
	}
}

// ApplyEnv lets COLLECTOR_MODE and PORT override the file.
func (c *Config) ApplyEnv() {
	if mode := os.Getenv("COLLECTOR_MODE"); mode != "" {
		c.Reddit.Mode = mode
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Dashboard.Port = port
	}
}

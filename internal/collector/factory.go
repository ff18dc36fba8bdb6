package collector

import (
	"github.com/qepting91/misinfo-collector/internal/domain"
)

// RedditSettings selects and configures a Reddit collector.
type RedditSettings struct {
	Mode         string
	UserAgent    string
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	ResolveUsers bool
}

// NewCollector selects the correct implementation based on the mode
func NewCollector(s RedditSettings) (domain.Collector, error) {
	switch s.Mode {
	case "api":
		c, err := NewAPIClient(s.ClientID, s.ClientSecret, s.Username, s.Password, s.UserAgent)
		if err != nil {
			return nil, err
		}
		c.ResolveUsers = s.ResolveUsers
		return c, nil
	case "public":
		c, err := NewPublicClient(s.UserAgent, s.BaseURL)
		if err != nil {
			return nil, err
		}
		c.ResolveUsers = s.ResolveUsers
		return c, nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, domain.Configf("unknown COLLECTOR_MODE: %s (use 'api', 'public', or 'mock')", s.Mode)
	}
}

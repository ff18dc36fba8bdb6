package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"golang.org/x/time/rate"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// redditPost is the subset of a submission the go-reddit client exposes,
// under the field names the Reddit API itself uses.
type redditPost struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	CreatedUTC            float64 `json:"created_utc"`
	Title                 string  `json:"title"`
	Selftext              string  `json:"selftext"`
	URL                   string  `json:"url"`
	Permalink             string  `json:"permalink"`
	Subreddit             string  `json:"subreddit"`
	SubredditNamePrefixed string  `json:"subreddit_name_prefixed"`
	Author                string  `json:"author"`
	AuthorFullname        string  `json:"author_fullname"`
	Score                 int     `json:"score"`
	UpvoteRatio           float32 `json:"upvote_ratio"`
	NumComments           int     `json:"num_comments"`
	Over18                bool    `json:"over_18"`
	Spoiler               bool    `json:"spoiler"`
	Locked                bool    `json:"locked"`
	Stickied              bool    `json:"stickied"`
	IsSelf                bool    `json:"is_self"`
}

// redditUser carries the user attributes kept on records.
type redditUser struct {
	Name       string  `json:"name"`
	ID         string  `json:"id"`
	TotalKarma int     `json:"total_karma"`
	Verified   bool    `json:"verified"`
	CreatedUTC float64 `json:"created_utc,omitempty"`
}

// APIClient talks to the authenticated Reddit API.
type APIClient struct {
	client  *reddit.Client
	limiter *rate.Limiter
	// ResolveUsers looks up each post's author.
	ResolveUsers bool

	users map[string]*domain.RawItem
}

func NewAPIClient(id, secret, user, pass, userAgent string) (*APIClient, error) {
	if id == "" || secret == "" {
		return nil, domain.Configf("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET are required for api mode")
	}
	creds := reddit.Credentials{ID: id, Secret: secret, Username: user, Password: pass}

	client, err := reddit.NewClient(creds, reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, err
	}

	// API Rate Limit: ~60 reqs/min (safe buffer)
	limiter := rate.NewLimiter(rate.Every(1*time.Second), 1)

	return &APIClient{
		client:       client,
		limiter:      limiter,
		ResolveUsers: true,
		users:        make(map[string]*domain.RawItem),
	}, nil
}

func (ac *APIClient) FetchNewPosts(ctx context.Context, sub, after string, limit int) (domain.Page, error) {
	if err := ac.limiter.Wait(ctx); err != nil {
		return domain.Page{}, err
	}

	posts, resp, err := ac.client.Subreddit.NewPosts(ctx, sub, &reddit.ListOptions{Limit: limit, After: after})
	if err != nil {
		return domain.Page{}, apiError(err)
	}

	var page domain.Page
	if resp != nil {
		page.Next = resp.After
	}
	seen := make(map[string]bool)
	for _, p := range posts {
		raw, err := domain.RawFromValue(toRedditPost(p))
		if err != nil {
			return domain.Page{}, fmt.Errorf("encode post %s: %w", p.ID, err)
		}
		page.Items = append(page.Items, raw)

		if !ac.ResolveUsers || seen[p.Author] {
			continue
		}
		seen[p.Author] = true
		if u := ac.user(ctx, p.Author); u != nil {
			page.Users = append(page.Users, *u)
		}
	}
	return page, nil
}

// user looks an author up once per run. Deleted, suspended or otherwise
// unreadable accounts resolve to nil rather than failing the page.
func (ac *APIClient) user(ctx context.Context, name string) *domain.RawItem {
	if name == "" || name == "[deleted]" {
		return nil
	}
	if u, ok := ac.users[name]; ok {
		return u
	}
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil
	}
	var out *domain.RawItem
	u, _, err := ac.client.User.Get(ctx, name)
	if err == nil && u != nil {
		ru := redditUser{
			Name:       u.Name,
			ID:         u.ID,
			TotalKarma: u.PostKarma + u.CommentKarma,
			Verified:   u.HasVerifiedEmail,
		}
		if u.Created != nil {
			ru.CreatedUTC = float64(u.Created.Time.Unix())
		}
		if raw, err := domain.RawFromValue(ru); err == nil {
			out = &raw
		}
	}
	ac.users[name] = out
	return out
}

func toRedditPost(p *reddit.Post) redditPost {
	rp := redditPost{
		ID:                    p.ID,
		Name:                  p.FullID,
		Title:                 p.Title,
		Selftext:              p.Body,
		URL:                   p.URL,
		Permalink:             p.Permalink,
		Subreddit:             p.SubredditName,
		SubredditNamePrefixed: p.SubredditNamePrefixed,
		Author:                p.Author,
		AuthorFullname:        p.AuthorID,
		Score:                 p.Score,
		UpvoteRatio:           p.UpvoteRatio,
		NumComments:           p.NumberOfComments,
		Over18:                p.NSFW,
		Spoiler:               p.Spoiler,
		Locked:                p.Locked,
		Stickied:              p.Stickied,
		IsSelf:                p.IsSelfPost,
	}
	if p.Created != nil {
		rp.CreatedUTC = float64(p.Created.Time.Unix())
	}
	return rp
}

// apiError turns go-reddit's rate limit and 5xx errors into UpstreamErrors.
func apiError(err error) error {
	var rle *reddit.RateLimitError
	if errors.As(err, &rle) {
		wait := time.Until(rle.Rate.Reset)
		return &domain.UpstreamError{Service: "reddit", StatusCode: http.StatusTooManyRequests, RetryAfter: max(wait, 0), Err: err}
	}
	var er *reddit.ErrorResponse
	if errors.As(err, &er) && er.Response != nil && er.Response.StatusCode >= 500 {
		return &domain.UpstreamError{Service: "reddit", StatusCode: er.Response.StatusCode, Err: err}
	}
	return fmt.Errorf("authenticated api error: %w", err)
}

package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// DefaultPublicBaseURL serves Reddit's unauthenticated JSON listings.
const DefaultPublicBaseURL = "https://www.reddit.com"

// PublicClient reads the public .json endpoints, which need no credentials
// but are limited more strictly.
type PublicClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	baseURL    string
	// ResolveUsers fetches each author's about.json.
	ResolveUsers bool

	users map[string]*domain.RawItem
}

func NewPublicClient(userAgent, baseURL string) (*PublicClient, error) {
	if userAgent == "" {
		return nil, domain.Configf("REDDIT_USER_AGENT is required for public mode")
	}
	if baseURL == "" {
		baseURL = DefaultPublicBaseURL
	}
	return &PublicClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Public JSON Limit: 1 req / 2 seconds (Stricter)
		limiter:      rate.NewLimiter(rate.Every(2*time.Second), 1),
		userAgent:    userAgent,
		baseURL:      baseURL,
		ResolveUsers: true,
		users:        make(map[string]*domain.RawItem),
	}, nil
}

func (pc *PublicClient) FetchNewPosts(ctx context.Context, sub, after string, limit int) (domain.Page, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")
	if after != "" {
		q.Set("after", after)
	}
	body, err := pc.get(ctx, fmt.Sprintf("%s/r/%s/new.json?%s", pc.baseURL, url.PathEscape(sub), q.Encode()))
	if err != nil {
		return domain.Page{}, err
	}

	listing := gjson.ParseBytes(body)
	page := domain.Page{Next: listing.Get("data.after").String()}
	seen := make(map[string]bool)
	for _, child := range listing.Get("data.children").Array() {
		post := child.Get("data")
		if !post.IsObject() {
			continue
		}
		page.Items = append(page.Items, domain.RawFromResult(post))

		author := post.Get("author").String()
		if !pc.ResolveUsers || seen[author] {
			continue
		}
		seen[author] = true
		if u := pc.user(ctx, author); u != nil {
			page.Users = append(page.Users, *u)
		}
	}
	return page, nil
}

func (pc *PublicClient) user(ctx context.Context, name string) *domain.RawItem {
	if name == "" || name == "[deleted]" {
		return nil
	}
	if u, ok := pc.users[name]; ok {
		return u
	}
	var out *domain.RawItem
	body, err := pc.get(ctx, fmt.Sprintf("%s/user/%s/about.json", pc.baseURL, url.PathEscape(name)))
	if err == nil {
		if data := gjson.GetBytes(body, "data"); data.IsObject() {
			u := domain.RawFromResult(data)
			out = &u
		}
	}
	pc.users[name] = out
	return out
}

func (pc *PublicClient) get(ctx context.Context, u string) ([]byte, error) {
	if err := pc.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", pc.userAgent)

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, transportError("reddit", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError("reddit", err)
	}
	if err := statusError("reddit", resp.StatusCode, resp.Header, string(body)); err != nil {
		return nil, err
	}
	return body, nil
}

package collector

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// DefaultTwitterBaseURL is the v2 API host.
const DefaultTwitterBaseURL = "https://api.twitter.com"

// TwitterFields are the expansions and field lists requested with every
// tweet query.
type TwitterFields struct {
	Expansions  []string
	TweetFields []string
	MediaFields []string
	UserFields  []string
}

func (f TwitterFields) params() map[string]string {
	p := make(map[string]string)
	set := func(key string, vals []string) {
		if len(vals) > 0 {
			p[key] = strings.Join(vals, ",")
		}
	}
	set("expansions", f.Expansions)
	set("tweet.fields", f.TweetFields)
	set("media.fields", f.MediaFields)
	set("user.fields", f.UserFields)
	return p
}

// Twitter is a bearer-token client for the v2 search, lookup and filtered
// stream endpoints.
type Twitter struct {
	http       *resty.Client
	stream     *resty.Client
	fields     TwitterFields
	maxResults int
}

// NewTwitter builds the client. timeout bounds whole search and lookup
// requests; for the filtered stream it only bounds the wait for response
// headers, and the stream stays open until its context ends.
func NewTwitter(baseURL, bearerToken string, fields TwitterFields, maxResults int, timeout time.Duration) (*Twitter, error) {
	if bearerToken == "" {
		return nil, domain.Configf("TWITTER_BEARER_TOKEN is required")
	}
	if baseURL == "" {
		baseURL = DefaultTwitterBaseURL
	}
	if maxResults < 10 || maxResults > 100 {
		return nil, domain.Configf("max results must be between 10 and 100, got %d", maxResults)
	}
	client := newTwitterClient(baseURL, bearerToken)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	stream := newTwitterClient(baseURL, bearerToken)
	if timeout > 0 {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = timeout
		stream.SetTransport(tr)
	}
	return &Twitter{http: client, stream: stream, fields: fields, maxResults: maxResults}, nil
}

func newTwitterClient(baseURL, bearerToken string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(bearerToken).
		SetHeader("User-Agent", "misinfo-collector")
}

// Search returns a source paging through recent tweets matching query
// created in [start, end).
func (t *Twitter) Search(query string, start, end time.Time) domain.PageSource {
	return &searchSource{t: t, query: query, start: start, end: end}
}

type searchSource struct {
	t     *Twitter
	query string
	start time.Time
	end   time.Time
}

func (s *searchSource) FetchPage(ctx context.Context, cursor string) (domain.Page, error) {
	params := s.t.fields.params()
	params["query"] = s.query
	params["max_results"] = strconv.Itoa(s.t.maxResults)
	if !s.start.IsZero() {
		params["start_time"] = s.start.UTC().Format(time.RFC3339)
	}
	if !s.end.IsZero() {
		params["end_time"] = s.end.UTC().Format(time.RFC3339)
	}
	if cursor != "" {
		params["next_token"] = cursor
	}
	resp, err := s.t.http.R().SetContext(ctx).SetQueryParams(params).Get("/2/tweets/search/recent")
	if err := checkTwitter(resp, err); err != nil {
		return domain.Page{}, err
	}
	return parseTweetPage(resp.Body()), nil
}

// Lookup fetches up to 100 tweets by id.
func (t *Twitter) Lookup(ctx context.Context, ids []string) (domain.Page, error) {
	if len(ids) > 100 {
		return domain.Page{}, fmt.Errorf("lookup: %d ids exceeds 100", len(ids))
	}
	params := t.fields.params()
	params["ids"] = strings.Join(ids, ",")
	resp, err := t.http.R().SetContext(ctx).SetQueryParams(params).Get("/2/tweets")
	if err := checkTwitter(resp, err); err != nil {
		return domain.Page{}, err
	}
	page := parseTweetPage(resp.Body())
	page.Next = ""
	return page, nil
}

// Rule is a filtered-stream rule.
type Rule struct {
	ID    string
	Value string
}

// Rules lists the active stream rules.
func (t *Twitter) Rules(ctx context.Context) ([]Rule, error) {
	resp, err := t.http.R().SetContext(ctx).Get("/2/tweets/search/stream/rules")
	if err := checkTwitter(resp, err); err != nil {
		return nil, err
	}
	var rules []Rule
	for _, r := range gjson.GetBytes(resp.Body(), "data").Array() {
		rules = append(rules, Rule{ID: r.Get("id").String(), Value: r.Get("value").String()})
	}
	return rules, nil
}

// DeleteRules removes rules by id.
func (t *Twitter) DeleteRules(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"delete": map[string]any{"ids": ids}}
	resp, err := t.http.R().SetContext(ctx).SetBody(body).Post("/2/tweets/search/stream/rules")
	return checkTwitter(resp, err)
}

// AddRule adds one rule. A rule the API rejects is returned as an error.
func (t *Twitter) AddRule(ctx context.Context, value string) error {
	body := map[string]any{"add": []map[string]string{{"value": value}}}
	resp, err := t.http.R().SetContext(ctx).SetBody(body).Post("/2/tweets/search/stream/rules")
	if err := checkTwitter(resp, err); err != nil {
		return err
	}
	if errs := gjson.GetBytes(resp.Body(), "errors"); errs.IsArray() && len(errs.Array()) > 0 {
		return fmt.Errorf("rule %q rejected: %s", value, errs.Array()[0].Get("title").String())
	}
	return nil
}

// parseTweetPage reads the data, includes.users and meta.next_token parts of
// a v2 response.
func parseTweetPage(body []byte) domain.Page {
	res := gjson.ParseBytes(body)
	page := domain.Page{Next: res.Get("meta.next_token").String()}
	for _, tw := range res.Get("data").Array() {
		page.Items = append(page.Items, domain.RawFromResult(tw))
	}
	for _, u := range res.Get("includes.users").Array() {
		page.Users = append(page.Users, domain.RawFromResult(u))
	}
	return page
}

func checkTwitter(resp *resty.Response, err error) error {
	if err != nil {
		return transportError("twitter", err)
	}
	return statusError("twitter", resp.StatusCode(), resp.Header(), resp.String())
}

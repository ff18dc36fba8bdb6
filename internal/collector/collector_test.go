package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

func TestStatusError(t *testing.T) {
	assert.NoError(t, statusError("x", 200, nil, ""))

	err := statusError("x", 503, nil, "")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	h := http.Header{}
	h.Set("Retry-After", "120")
	err = statusError("x", 429, h, "")
	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 2*time.Minute, ue.RetryAfter)

	err = statusError("x", 404, nil, "not found")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUpstreamUnavailable))
	assert.Contains(t, err.Error(), "404")
}

func TestRetryAfterRateLimitReset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := http.Header{}
	h.Set("x-rate-limit-reset", strconv.FormatInt(now.Add(90*time.Second).Unix(), 10))
	assert.Equal(t, 90*time.Second, retryAfter(h, now))
	assert.Zero(t, retryAfter(http.Header{}, now))
}

func TestTransportErrorKeepsCancellation(t *testing.T) {
	assert.Equal(t, context.Canceled, transportError("x", context.Canceled))
	assert.ErrorIs(t, transportError("x", io.ErrUnexpectedEOF), domain.ErrUpstreamUnavailable)
}

func TestMockClientPages(t *testing.T) {
	mc := &MockClient{Pages: 2, Newest: time.Date(2022, 11, 20, 12, 0, 0, 0, time.UTC)}
	l := &Listing{Client: mc, Subreddit: "news", Limit: 3}

	p1, err := l.FetchPage(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, p1.Items, 3)
	assert.Equal(t, "1", p1.Next)
	assert.Equal(t, MockPostID("news", mc.Newest), p1.Items[0].String("id"))
	assert.Len(t, p1.Users, 5)

	p2, err := l.FetchPage(context.Background(), p1.Next)
	require.NoError(t, err)
	assert.Equal(t, "", p2.Next)
	assert.Equal(t, MockPostID("news", mc.Newest.Add(-3*time.Minute)), p2.Items[0].String("id"))

	t0, _ := p1.Items[0].Get("created_utc")
	t1, _ := p2.Items[0].Get("created_utc")
	assert.Greater(t, t0.Int(), t1.Int(), "newest first")

	p3, err := l.FetchPage(context.Background(), "2")
	require.NoError(t, err)
	assert.Empty(t, p3.Items)
}

func TestNewCollectorModes(t *testing.T) {
	c, err := NewCollector(RedditSettings{Mode: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, c)

	_, err = NewCollector(RedditSettings{Mode: "api"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = NewCollector(RedditSettings{Mode: "public"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = NewCollector(RedditSettings{Mode: "scrape"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestPublicClientListing(t *testing.T) {
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/r/news/new.json":
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			if r.URL.Query().Get("after") == "t3_b" {
				fmt.Fprint(w, `{"data":{"after":null,"children":[]}}`)
				return
			}
			fmt.Fprint(w, `{"data":{"after":"t3_b","children":[
				{"kind":"t3","data":{"id":"a","author":"alice","created_utc":1668954600}},
				{"kind":"t3","data":{"id":"b","author":"alice","created_utc":1668954500}}]}}`)
		case "/user/alice/about.json":
			fmt.Fprint(w, `{"data":{"name":"alice","total_karma":5}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	pc, err := NewPublicClient("test-agent", srv.URL)
	require.NoError(t, err)
	pc.limiter = rate.NewLimiter(rate.Inf, 1)

	page, err := pc.FetchNewPosts(context.Background(), "news", "", 100)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "t3_b", page.Next)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "alice", page.Users[0].String("name"))

	page, err = pc.FetchNewPosts(context.Background(), "news", "t3_b", 100)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, "", page.Next)

	for _, a := range agents {
		assert.Equal(t, "test-agent", a)
	}
}

func TestPublicClientMapsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	pc, err := NewPublicClient("ua", srv.URL)
	require.NoError(t, err)
	_, err = pc.FetchNewPosts(context.Background(), "news", "", 10)

	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 503, ue.StatusCode)
	assert.Equal(t, 30*time.Second, ue.RetryAfter)
}

func newTestTwitter(t *testing.T, h http.Handler) *Twitter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tw, err := NewTwitter(srv.URL, "token", TwitterFields{
		Expansions:  []string{"author_id"},
		TweetFields: []string{"created_at", "context_annotations"},
	}, 100, 5*time.Second)
	require.NoError(t, err)
	return tw
}

func TestTwitterSearch(t *testing.T) {
	start := time.Date(2022, 11, 20, 14, 0, 0, 0, time.UTC)
	tw := newTestTwitter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "(a) OR (b)", q.Get("query"))
		assert.Equal(t, "2022-11-20T14:00:00Z", q.Get("start_time"))
		assert.Equal(t, "2022-11-20T15:00:00Z", q.Get("end_time"))
		assert.Equal(t, "author_id", q.Get("expansions"))
		assert.Equal(t, "created_at,context_annotations", q.Get("tweet.fields"))
		assert.Equal(t, "100", q.Get("max_results"))
		if q.Get("next_token") == "" {
			fmt.Fprint(w, `{"data":[{"id":"1","author_id":"9"}],"includes":{"users":[{"id":"9"}]},"meta":{"next_token":"n2"}}`)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"2","author_id":"9"}],"meta":{}}`)
	}))

	src := tw.Search("(a) OR (b)", start, start.Add(time.Hour))
	p1, err := src.FetchPage(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "n2", p1.Next)
	require.Len(t, p1.Items, 1)
	require.Len(t, p1.Users, 1)

	p2, err := src.FetchPage(context.Background(), "n2")
	require.NoError(t, err)
	assert.Equal(t, "", p2.Next)
	assert.Equal(t, "2", p2.Items[0].String("id"))
}

func TestTwitterLookup(t *testing.T) {
	tw := newTestTwitter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.Equal(t, "1,2", r.URL.Query().Get("ids"))
		fmt.Fprint(w, `{"data":[{"id":"1"},{"id":"2"}]}`)
	}))

	page, err := tw.Lookup(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	_, err = tw.Lookup(context.Background(), make([]string, 101))
	assert.Error(t, err)
}

func TestTwitterRateLimited(t *testing.T) {
	tw := newTestTwitter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	_, err := tw.Lookup(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestTwitterRules(t *testing.T) {
	var bodies []string
	tw := newTestTwitter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/search/stream/rules", r.URL.Path)
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `{"data":[{"id":"r1","value":"old"}]}`)
			return
		}
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if strings.Contains(string(b), "bad rule") {
			fmt.Fprint(w, `{"errors":[{"title":"Invalid Rule"}]}`)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"r2"}]}`)
	}))
	ctx := context.Background()

	rules, err := tw.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Rule{{ID: "r1", Value: "old"}}, rules)

	require.NoError(t, tw.DeleteRules(ctx, []string{"r1"}))
	require.NoError(t, tw.DeleteRules(ctx, nil))
	require.NoError(t, tw.AddRule(ctx, "world cup"))
	err = tw.AddRule(ctx, "bad rule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Rule")

	require.Len(t, bodies, 3)
	assert.JSONEq(t, `{"delete":{"ids":["r1"]}}`, bodies[0])
	assert.JSONEq(t, `{"add":[{"value":"world cup"}]}`, bodies[1])
}

func TestNewTwitterNeedsToken(t *testing.T) {
	_, err := NewTwitter("", "", TwitterFields{}, 100, 0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = NewTwitter("", "tok", TwitterFields{}, 5, 0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestStreamReadsMessagesAndReconnects(t *testing.T) {
	connects := 0
	tw := newTestTwitter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/search/stream", r.URL.Path)
		connects++
		if connects == 1 {
			fmt.Fprint(w, "\r\n"+`{"data":{"id":"1","author_id":"9"},"includes":{"users":[{"id":"9"}]}}`+"\r\n\r\n"+
				`{"data":{"id":"2"}}`+"\r\n")
			return
		}
		fmt.Fprint(w, `{"data":{"id":"3"}}`+"\n")
	}))
	s := tw.Stream()
	defer s.Close()
	ctx := context.Background()

	p, err := s.FetchPage(ctx, "")
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "1", p.Items[0].String("id"))
	assert.Len(t, p.Users, 1)
	assert.Equal(t, "stream", p.Next)

	p, err = s.FetchPage(ctx, p.Next)
	require.NoError(t, err)
	assert.Equal(t, "2", p.Items[0].String("id"))

	_, err = s.FetchPage(ctx, p.Next)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable, "a closed connection is transient")

	p, err = s.FetchPage(ctx, "stream")
	require.NoError(t, err)
	assert.Equal(t, "3", p.Items[0].String("id"))
	assert.Equal(t, 2, connects)
}

func TestStreamOutlivesClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 1; i <= 8; i++ {
			fmt.Fprintf(w, `{"data":{"id":"%d"}}`+"\n", i)
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
	}))
	t.Cleanup(srv.Close)
	tw, err := NewTwitter(srv.URL, "token", TwitterFields{}, 100, 300*time.Millisecond)
	require.NoError(t, err)

	s := tw.Stream()
	defer s.Close()
	ctx := context.Background()
	for i := 1; i <= 8; i++ {
		p, err := s.FetchPage(ctx, "stream")
		require.NoError(t, err, "message %d", i)
		assert.Equal(t, strconv.Itoa(i), p.Items[0].String("id"))
	}
}

func TestStreamErrorMessage(t *testing.T) {
	tw := newTestTwitter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"title":"operational-disconnect"}]}`+"\n")
	}))
	s := tw.Stream()
	_, err := s.FetchPage(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "operational-disconnect")
}

package collector

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// Listing pages through one subreddit's newest posts.
type Listing struct {
	Client    domain.Collector
	Subreddit string
	Limit     int
}

func (l *Listing) FetchPage(ctx context.Context, cursor string) (domain.Page, error) {
	return l.Client.FetchNewPosts(ctx, l.Subreddit, cursor, l.Limit)
}

// statusError maps rate limiting and server faults to a transient
// UpstreamError; other non-2xx statuses are returned as plain errors.
func statusError(service string, code int, header http.Header, body string) error {
	switch {
	case code == http.StatusTooManyRequests || code >= 500:
		return &domain.UpstreamError{
			Service:    service,
			StatusCode: code,
			RetryAfter: retryAfter(header, time.Now()),
		}
	case code >= 300:
		if len(body) > 200 {
			body = body[:200]
		}
		return &httpError{service: service, code: code, body: body}
	}
	return nil
}

// transportError wraps a failed round trip. Context errors pass through
// untouched so cancellation is not mistaken for an outage.
func transportError(service string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.UpstreamError{Service: service, Err: err}
}

type httpError struct {
	service string
	code    int
	body    string
}

func (e *httpError) Error() string {
	return e.service + ": status " + strconv.Itoa(e.code) + ": " + e.body
}

// retryAfter reads Retry-After (seconds) or x-rate-limit-reset (epoch
// seconds) from a response.
func retryAfter(h http.Header, now time.Time) time.Duration {
	if h == nil {
		return 0
	}
	if v := h.Get("Retry-After"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
	}
	if v := h.Get("x-rate-limit-reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Unix(epoch, 0).Sub(now); d > 0 {
				return d
			}
		}
	}
	return 0
}

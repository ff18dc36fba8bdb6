package collector

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// MockClient implements domain.Collector but returns fake data: a fixed
// number of pages of posts, newest first, one minute apart.
type MockClient struct {
	Pages   int
	Newest  time.Time
	Latency time.Duration
}

func NewMockClient() *MockClient {
	return &MockClient{Pages: 3, Newest: time.Now().UTC(), Latency: 500 * time.Millisecond}
}

// MockPostID is the id of the simulated post created at t. Ids depend on
// time rather than position so a later run sees the same post under the
// same id.
func MockPostID(sub string, t time.Time) string {
	return fmt.Sprintf("mock_%s_%d", sub, t.Unix())
}

func (mc *MockClient) FetchNewPosts(ctx context.Context, sub, after string, limit int) (domain.Page, error) {
	// Simulate network latency
	if mc.Latency > 0 {
		select {
		case <-ctx.Done():
			return domain.Page{}, ctx.Err()
		case <-time.After(mc.Latency):
		}
	}

	pageNo := 0
	if after != "" {
		n, err := strconv.Atoi(after)
		if err != nil {
			return domain.Page{}, fmt.Errorf("mock: bad cursor %q", after)
		}
		pageNo = n
	}
	if pageNo >= mc.Pages {
		return domain.Page{}, nil
	}

	var page domain.Page
	for i := 0; i < limit; i++ {
		n := pageNo*limit + i
		author := fmt.Sprintf("simulated_user_%d", n%5)
		created := mc.Newest.Add(-time.Duration(n) * time.Minute)
		raw, err := domain.RawFromValue(redditPost{
			ID:                    MockPostID(sub, created),
			CreatedUTC:            float64(created.Unix()),
			Title:                 fmt.Sprintf("[%s] Simulated report #%d", sub, n),
			Selftext:              "see https://example.com/mock-" + strconv.Itoa(n),
			URL:                   "http://localhost/mock-url",
			Subreddit:             sub,
			SubredditNamePrefixed: "r/" + sub,
			Author:                author,
			Score:                 rand.Intn(500),
			NumComments:           rand.Intn(50),
		})
		if err != nil {
			return domain.Page{}, err
		}
		page.Items = append(page.Items, raw)
	}
	for i := 0; i < 5; i++ {
		u, _ := domain.RawFromValue(redditUser{
			Name:       fmt.Sprintf("simulated_user_%d", i),
			ID:         fmt.Sprintf("u%d", i),
			TotalKarma: 100 * i,
			CreatedUTC: float64(mc.Newest.AddDate(-1, 0, 0).Unix()),
		})
		page.Users = append(page.Users, u)
	}
	if pageNo+1 < mc.Pages {
		page.Next = strconv.Itoa(pageNo + 1)
	}
	return page, nil
}

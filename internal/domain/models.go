package domain

import (
	"context"
	"time"
)

// Target is a single source to collect from: a subreddit, a search query
// over a time window, or an id list.
type Target struct {
	Name  string
	Query string

	// OutputDir holds the files of previous runs for this target and is
	// what the cutoff is computed from. OutputPath is this run's file.
	OutputDir  string
	OutputPath string

	// Cutoff is set once before fetching starts.
	Cutoff time.Time

	// Window bounds for time-windowed search targets.
	Start time.Time
	End   time.Time
}

// Item is one raw item plus the user objects returned alongside it.
// Users is not positionally aligned with the page's items; Index is only a
// hint for where the matching user usually sits.
type Item struct {
	Raw   RawItem
	Users []RawItem
	Index int
}

// Page is a single upstream response.
type Page struct {
	Items []RawItem
	Users []RawItem
	// Next is the cursor for the following page, empty when there is none.
	Next string
}

// PageSource is a cursor-paginated (or streamed) upstream.
type PageSource interface {
	FetchPage(ctx context.Context, cursor string) (Page, error)
}

// BatchSource looks items up by id.
type BatchSource interface {
	Lookup(ctx context.Context, ids []string) (Page, error)
}

// Collector lists a subreddit's posts newest first, one page per call,
// with the authors of those posts in Page.Users.
type Collector interface {
	FetchNewPosts(ctx context.Context, subreddit, after string, limit int) (Page, error)
}

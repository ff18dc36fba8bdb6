package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/session"
)

type lookupSource struct {
	fail  map[int]error
	calls [][]string
}

func (s *lookupSource) Lookup(_ context.Context, ids []string) (domain.Page, error) {
	s.calls = append(s.calls, ids)
	if err := s.fail[len(s.calls)]; err != nil {
		return domain.Page{}, err
	}
	var page domain.Page
	for _, id := range ids {
		page.Items = append(page.Items, domain.NewRawItem([]byte(fmt.Sprintf(`{"id":%q}`, id))))
	}
	return page, nil
}

func idList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d", 1000+i)
	}
	return out
}

func TestBatches(t *testing.T) {
	for _, n := range []int{0, 1, 99, 100, 101, 250, 1000} {
		batches := Batches(idList(n), BatchSize)
		assert.Len(t, batches, (n+BatchSize-1)/BatchSize, "n=%d", n)

		var joined []string
		for _, b := range batches {
			assert.LessOrEqual(t, len(b), BatchSize)
			joined = append(joined, b...)
		}
		assert.Equal(t, strings.Join(idList(n), ","), strings.Join(joined, ","))
	}
}

func TestBatchFetcherContinuesPastFailedBatch(t *testing.T) {
	src := &lookupSource{fail: map[int]error{2: errors.New("bad request")}}
	b := NewBatch(src, idList(250), session.NewRun(nil, 0), Options{Sleep: noSleep(nil)})

	var got []string
	for item, err := range b.Items(context.Background()) {
		require.NoError(t, err)
		got = append(got, item.Raw.String("id"))
	}
	assert.Equal(t, 3, b.Batches())
	assert.Equal(t, 1, b.Failures())
	assert.Equal(t, 2, b.Completed())
	assert.Len(t, src.calls, 3)
	assert.Equal(t, append(idList(250)[:100:100], idList(250)[200:]...), got)
}

func TestBatchFetcherRetriesTransientFaults(t *testing.T) {
	var sleeps int
	src := &lookupSource{fail: map[int]error{1: &domain.UpstreamError{Service: "test", StatusCode: 500}}}
	b := NewBatch(src, idList(150), session.NewRun(nil, 0), Options{
		Sleep: func(context.Context, time.Duration) error { sleeps++; return nil },
	})

	n := 0
	for _, err := range b.Items(context.Background()) {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 150, n)
	assert.Equal(t, 0, b.Failures())
	assert.Equal(t, 1, sleeps)
	assert.Len(t, src.calls, 3)
}

func TestBatchFetcherIsNotRestartable(t *testing.T) {
	b := NewBatch(&lookupSource{}, idList(5), session.NewRun(nil, 0), Options{})
	for range b.Items(context.Background()) {
	}
	var errs []error
	for _, err := range b.Items(context.Background()) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrConsumed)
}

package dedupe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"
)

func TestValkeySeen(t *testing.T) {
	ctx := context.Background()
	client := mock.NewClient(gomock.NewController(t))
	v := newValkey(client, Key("news"), time.Hour)

	client.EXPECT().Do(ctx, mock.Match("SISMEMBER", "collector:seen:news", "a")).
		Return(mock.Result(mock.ValkeyInt64(1)))
	client.EXPECT().Do(ctx, mock.Match("SISMEMBER", "collector:seen:news", "b")).
		Return(mock.Result(mock.ValkeyInt64(0)))

	seen, err := v.Seen(ctx, "a")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = v.Seen(ctx, "b")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestValkeyMarkRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	client := mock.NewClient(gomock.NewController(t))
	v := newValkey(client, Key("news"), time.Hour)

	client.EXPECT().DoMulti(ctx,
		mock.Match("SADD", "collector:seen:news", "a"),
		mock.Match("EXPIRE", "collector:seen:news", "3600"),
	).Return([]valkey.ValkeyResult{
		mock.Result(mock.ValkeyInt64(1)),
		mock.Result(mock.ValkeyInt64(1)),
	})

	require.NoError(t, v.Mark(ctx, "a"))
}

func TestValkeyMarkWithoutTTL(t *testing.T) {
	ctx := context.Background()
	client := mock.NewClient(gomock.NewController(t))
	v := newValkey(client, Key("news"), 0)

	client.EXPECT().DoMulti(ctx, mock.Match("SADD", "collector:seen:news", "a")).
		Return([]valkey.ValkeyResult{mock.Result(mock.ValkeyInt64(1))})

	require.NoError(t, v.Mark(ctx, "a"))
}

func TestValkeyErrors(t *testing.T) {
	ctx := context.Background()
	client := mock.NewClient(gomock.NewController(t))
	v := newValkey(client, Key("news"), time.Hour)
	down := errors.New("connection refused")

	client.EXPECT().Do(ctx, mock.Match("SISMEMBER", "collector:seen:news", "a")).
		Return(mock.ErrorResult(down))
	client.EXPECT().DoMulti(ctx, gomock.Any(), gomock.Any()).
		Return([]valkey.ValkeyResult{mock.Result(mock.ValkeyInt64(1)), mock.ErrorResult(down)})

	_, err := v.Seen(ctx, "a")
	assert.ErrorIs(t, err, down)
	assert.ErrorIs(t, v.Mark(ctx, "a"), down)
}

func TestValkeyClose(t *testing.T) {
	client := mock.NewClient(gomock.NewController(t))
	client.EXPECT().Close()
	assert.NoError(t, newValkey(client, Key("news"), 0).Close())
}

package dedupe

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyOptions configures a shared seen set.
type ValkeyOptions struct {
	Address  string
	Password string
	TLS      bool
	// TTL is refreshed on every Mark; zero keeps ids forever.
	TTL time.Duration
}

// Valkey keeps seen ids in a valkey set so they survive across runs and
// machines.
type Valkey struct {
	client valkey.Client
	key    string
	ttl    time.Duration
}

// NewValkey connects and pings. key names the set, one per target.
func NewValkey(opts ValkeyOptions, key string) (*Valkey, error) {
	co := valkey.ClientOption{
		InitAddress:      []string{opts.Address},
		Password:         opts.Password,
		ConnWriteTimeout: 5 * time.Second,
	}
	if opts.TLS {
		co.TLSConfig = &tls.Config{}
	}
	client, err := valkey.NewClient(co)
	if err != nil {
		return nil, fmt.Errorf("connect valkey %s: %w", opts.Address, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey %s: %w", opts.Address, err)
	}
	return newValkey(client, key, opts.TTL), nil
}

func newValkey(client valkey.Client, key string, ttl time.Duration) *Valkey {
	return &Valkey{client: client, key: key, ttl: ttl}
}

// Key is the valkey set key for a target.
func Key(target string) string {
	return "collector:seen:" + target
}

func (v *Valkey) Seen(ctx context.Context, id string) (bool, error) {
	return v.client.Do(ctx, v.client.B().Sismember().Key(v.key).Member(id).Build()).AsBool()
}

func (v *Valkey) Mark(ctx context.Context, id string) error {
	cmds := []valkey.Completed{v.client.B().Sadd().Key(v.key).Member(id).Build()}
	if v.ttl > 0 {
		cmds = append(cmds, v.client.B().Expire().Key(v.key).Seconds(int64(v.ttl.Seconds())).Build())
	}
	for _, res := range v.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (v *Valkey) Close() error {
	v.client.Close()
	return nil
}

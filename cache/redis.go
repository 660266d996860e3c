package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "zimbra-connector:"

// Redis is the distributed ResultCache shared by every connector instance.
type Redis struct {
	client redis.Cmdable
}

var _ ResultCache = (*Redis)(nil)

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

// Dial connects to addr and checks the server answers.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "[cache.Dial] %s", addr)
	}
	return client, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "[Redis.Get]")
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return errors.Wrap(r.client.Set(ctx, keyPrefix+key, value, ttl).Err(), "[Redis.Set]")
}

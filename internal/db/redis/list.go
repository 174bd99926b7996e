package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/pickperfect/internal/db"
)

// PushCapped pipelines LPUSH, LTRIM and EXPIRE. Non-positive maxLen or ttl skip the
// corresponding step.
func (s *Store) PushCapped(ctx context.Context, key, value string, maxLen int, ttl time.Duration) error {
	cmds := make(rueidis.Commands, 0, 3)
	cmds = append(cmds, s.b().Lpush().Key(key).Element(value).Build())
	if maxLen > 0 {
		cmds = append(cmds, s.b().Ltrim().Key(key).Start(0).Stop(int64(maxLen-1)).Build())
	}
	if ttl > 0 {
		cmds = append(cmds, s.b().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build())
	}

	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return &db.Error{Op: db.OpLPush, Err: err}
		}
	}
	return nil
}

// Range returns list elements between start and stop inclusive.
func (s *Store) Range(ctx context.Context, key string, start, stop int) ([]string, error) {
	cmd := s.b().Lrange().Key(key).Start(int64(start)).Stop(int64(stop)).Build()
	vals, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	return vals, nil
}

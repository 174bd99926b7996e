package redis

import (
	"context"

	"github.com/kailas-cloud/pickperfect/internal/db"
)

// ZIncrBy increments member's score.
func (s *Store) ZIncrBy(ctx context.Context, key, member string, incr float64) error {
	cmd := s.b().Zincrby().Key(key).Increment(incr).Member(member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZIncrBy, Err: err}
	}
	return nil
}

// ZRevRange returns members between start and stop by descending score.
func (s *Store) ZRevRange(ctx context.Context, key string, start, stop int) ([]db.ScoredMember, error) {
	cmd := s.b().Zrevrange().Key(key).Start(int64(start)).Stop(int64(stop)).Withscores().Build()
	scores, err := s.do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRevRange, Err: err}
	}
	out := make([]db.ScoredMember, len(scores))
	for i, z := range scores {
		out[i] = db.ScoredMember{Member: z.Member, Score: z.Score}
	}
	return out, nil
}

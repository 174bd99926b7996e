package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	JSONStore
	KVStore
	IndexManager
	Searcher
	StreamStore
	ListStore
	SortedSetStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONStore provides JSON document operations.
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	// JSONGetMulti pipelines JSON.GET for every key. Missing keys yield nil entries.
	JSONGetMulti(ctx context.Context, keys []string, paths ...string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// KVStore provides the key-value operations behind the embedding cache.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs composite FT.SEARCH queries.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
}

// StreamStore provides consumer-group stream operations.
type StreamStore interface {
	// CreateGroup creates the group at the stream start, creating the stream
	// if needed. Returns ErrGroupExists when the group is already there.
	CreateGroup(ctx context.Context, stream, group string) error
	// ReadGroup reads up to count entries for consumer. id ">" reads new
	// entries, "0" re-reads the consumer's pending ones. A zero block
	// returns immediately.
	ReadGroup(ctx context.Context, r *ReadGroupRequest) ([]StreamEntry, error)
	Ack(ctx context.Context, stream, group string, ids ...string) error
	Add(ctx context.Context, stream string, fields map[string]string) (string, error)
}

// ListStore provides capped list operations.
type ListStore interface {
	// PushCapped prepends value, keeps the newest maxLen elements and
	// refreshes the key TTL.
	PushCapped(ctx context.Context, key, value string, maxLen int, ttl time.Duration) error
	Range(ctx context.Context, key string, start, stop int) ([]string, error)
}

// SortedSetStore provides sorted set counters.
type SortedSetStore interface {
	ZIncrBy(ctx context.Context, key, member string, incr float64) error
	// ZRevRange returns members ordered by descending score.
	ZRevRange(ctx context.Context, key string, start, stop int) ([]ScoredMember, error)
}

// ScoredMember is one sorted set member with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

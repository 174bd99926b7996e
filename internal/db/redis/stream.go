package redis

import (
	"context"
	"sort"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/pickperfect/internal/db"
)

// CreateGroup creates group at the start of stream (XGROUP CREATE ... 0 MKSTREAM).
func (s *Store) CreateGroup(ctx context.Context, stream, group string) error {
	cmd := s.b().Arbitrary("XGROUP", "CREATE").Keys(stream).Args(group, "0", "MKSTREAM").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "BUSYGROUP") {
			return db.ErrGroupExists
		}
		return &db.Error{Op: db.OpXGroup, Err: err}
	}
	return nil
}

// ReadGroup reads entries via XREADGROUP. A block timeout yields no entries and no error.
func (s *Store) ReadGroup(ctx context.Context, r *db.ReadGroupRequest) ([]db.StreamEntry, error) {
	id := r.ID
	if id == "" {
		id = ">"
	}

	var cmd rueidis.Completed
	if r.BlockMs > 0 {
		cmd = s.b().Xreadgroup().Group(r.Group, r.Consumer).Count(int64(r.Count)).
			Block(r.BlockMs).Streams().Key(r.Stream).Id(id).Build()
	} else {
		cmd = s.b().Xreadgroup().Group(r.Group, r.Consumer).Count(int64(r.Count)).
			Streams().Key(r.Stream).Id(id).Build()
	}

	streams, err := s.do(ctx, cmd).AsXRead()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpXReadGroup, Err: err}
	}

	raw := streams[r.Stream]
	entries := make([]db.StreamEntry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, db.StreamEntry{ID: e.ID, Fields: e.FieldValues})
	}
	return entries, nil
}

// Ack acknowledges processed entries.
func (s *Store) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	cmd := s.b().Xack().Key(stream).Group(group).Id(ids...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpXAck, Err: err}
	}
	return nil
}

// Add appends an entry with an auto-generated ID and returns that ID.
// Fields are written in key order.
func (s *Store) Add(ctx context.Context, stream string, fields map[string]string) (string, error) {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	args := make([]string, 0, 1+2*len(names))
	args = append(args, "*")
	for _, k := range names {
		args = append(args, k, fields[k])
	}

	cmd := s.b().Arbitrary("XADD").Keys(stream).Args(args...).Build()
	id, err := s.do(ctx, cmd).ToString()
	if err != nil {
		return "", &db.Error{Op: db.OpXAdd, Err: err}
	}
	return id, nil
}

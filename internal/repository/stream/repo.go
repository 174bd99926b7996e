package stream

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/pickperfect/internal/db"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
)

// PayloadField holds the serialized product record in each stream entry.
const PayloadField = domprod.StreamField

// Dead-letter entry fields.
const (
	DeadFieldID       = "id"
	DeadFieldPayload  = "payload"
	DeadFieldError    = "error"
	DeadFieldAttempts = "attempts"
)

// store is the consumer interface for stream operations (ISP).
type store interface {
	CreateGroup(ctx context.Context, stream, group string) error
	ReadGroup(ctx context.Context, r *db.ReadGroupRequest) ([]db.StreamEntry, error)
	Ack(ctx context.Context, stream, group string, ids ...string) error
	Add(ctx context.Context, stream string, fields map[string]string) (string, error)
}

// Config names the stream, group and consumer.
type Config struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int
	BlockMs   int64
}

// Repo wraps one consumer's view of the product stream.
type Repo struct {
	store store
	cfg   Config
}

// New creates a stream repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// DeadLetterStream is where entries that cannot be processed end up.
func (r *Repo) DeadLetterStream() string {
	return r.cfg.Stream + ":dead"
}

// EnsureGroup creates the consumer group, and the stream if needed.
// An existing group counts as success.
func (r *Repo) EnsureGroup(ctx context.Context) error {
	if err := r.store.CreateGroup(ctx, r.cfg.Stream, r.cfg.Group); err != nil {
		if errors.Is(err, db.ErrGroupExists) {
			return nil
		}
		return fmt.Errorf("create group %s/%s: %w", r.cfg.Stream, r.cfg.Group, err)
	}
	return nil
}

// ReadNew blocks up to BlockMs for entries never delivered to the group.
// A timeout yields an empty batch.
func (r *Repo) ReadNew(ctx context.Context) ([]db.StreamEntry, error) {
	return r.read(ctx, ">", r.cfg.BlockMs)
}

// ReadPending returns entries delivered to this consumer but not yet acknowledged.
func (r *Repo) ReadPending(ctx context.Context) ([]db.StreamEntry, error) {
	return r.read(ctx, "0", 0)
}

func (r *Repo) read(ctx context.Context, id string, blockMs int64) ([]db.StreamEntry, error) {
	entries, err := r.store.ReadGroup(ctx, &db.ReadGroupRequest{
		Stream:   r.cfg.Stream,
		Group:    r.cfg.Group,
		Consumer: r.cfg.Consumer,
		ID:       id,
		Count:    r.cfg.BatchSize,
		BlockMs:  blockMs,
	})
	if err != nil {
		return nil, fmt.Errorf("read %s (%s): %w", r.cfg.Stream, id, err)
	}
	return entries, nil
}

// Ack acknowledges processed entries.
func (r *Repo) Ack(ctx context.Context, ids ...string) error {
	if err := r.store.Ack(ctx, r.cfg.Stream, r.cfg.Group, ids...); err != nil {
		return fmt.Errorf("ack %s: %w", r.cfg.Stream, err)
	}
	return nil
}

// DeadLetter copies an entry with its failure onto the dead-letter stream.
// The caller acknowledges the original.
func (r *Repo) DeadLetter(ctx context.Context, entry db.StreamEntry, cause error, attempts int) error {
	fields := map[string]string{
		DeadFieldID:       entry.ID,
		DeadFieldPayload:  entry.Fields[PayloadField],
		DeadFieldError:    cause.Error(),
		DeadFieldAttempts: strconv.Itoa(attempts),
	}
	if _, err := r.store.Add(ctx, r.DeadLetterStream(), fields); err != nil {
		return fmt.Errorf("dead-letter %s: %w", entry.ID, err)
	}
	return nil
}

// Publish appends one serialized product record.
func (r *Repo) Publish(ctx context.Context, payload string) (string, error) {
	id, err := r.store.Add(ctx, r.cfg.Stream, map[string]string{PayloadField: payload})
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", r.cfg.Stream, err)
	}
	return id, nil
}

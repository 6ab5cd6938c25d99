package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/aleung/fsm/pkg/domain"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "fsm:"

// Journal implements ports.Journal using one capped Redis list per machine.
type Journal struct {
	client *backend.Client
	prefix string
	size   int64
}

type Option func(*Journal)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(j *Journal) {
		j.prefix = prefix
	}
}

// WithSize caps the number of records retained per machine. 0 keeps all.
func WithSize(size int) Option {
	return func(j *Journal) {
		j.size = int64(size)
	}
}

// NewJournal creates a new Redis journal with options.
func NewJournal(address, password string, db int, opts ...Option) *Journal {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewJournalFromClient(rdb, opts...)
}

// NewJournalFromClient creates a new Redis journal from an existing client.
func NewJournalFromClient(client *backend.Client, opts ...Option) *Journal {
	j := &Journal{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Client returns the underlying Redis client.
func (j *Journal) Client() *backend.Client {
	return j.client
}

func (j *Journal) key(machine string) string {
	return j.prefix + "journal:" + machine
}

// Record appends rec and trims the list to the configured size atomically.
func (j *Journal) Record(ctx context.Context, rec domain.TransitionEvent) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}

	key := j.key(rec.Machine)
	_, err = j.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if j.size > 0 {
			pipe.LTrim(ctx, key, -j.size, -1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// List returns up to limit most recent records, oldest first.
func (j *Journal) List(ctx context.Context, machine string, limit int) ([]domain.TransitionEvent, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	items, err := j.client.LRange(ctx, j.key(machine), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}

	recs := make([]domain.TransitionEvent, 0, len(items))
	for _, item := range items {
		var rec domain.TransitionEvent
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transition: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

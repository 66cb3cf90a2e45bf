package outbox

import (
	"context"
	"time"
)

// Repository stores outbox messages
type Repository interface {
	// SaveAll saves messages; callers pass a session context to join a transaction.
	SaveAll(ctx context.Context, messages []*Message) error

	// FindPending returns the oldest messages that are unpublished and still have attempts left.
	FindPending(ctx context.Context, limit int) ([]*Message, error)

	MarkPublished(ctx context.Context, id string) error

	// RecordFailure counts a failed attempt and keeps its error.
	RecordFailure(ctx context.Context, id string, reason string) error

	// DeletePublished removes messages published before the given age.
	DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error)

	FindByAggregateID(ctx context.Context, aggregateID string) ([]*Message, error)
}

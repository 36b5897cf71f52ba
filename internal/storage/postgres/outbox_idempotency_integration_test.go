package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()
	repo := NewOutboxRepository(store)

	first, err := repo.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   "order-1",
		EventType:     domain.EventTypeOrderCreated,
		Payload:       []byte(`{"id":"order-1"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	_, err = repo.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   "order-1",
		EventType:     domain.EventTypeOrderDeleted,
		Payload:       []byte(`{}`),
		CreatedAt:     time.Now().UTC().Add(time.Second),
	})
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.PendingCount)

	pending, err := repo.PullPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, first.ID, pending[0].ID)

	require.NoError(t, repo.MarkSent(ctx, first.ID))
	require.ErrorIs(t, repo.MarkFailed(ctx, "missing"), domain.ErrOutboxPublish)

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.PendingCount)
}

func TestOutboxRepository_EnqueueJoinsTransaction(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()
	repo := NewOutboxRepository(store)

	_ = store.WithinTx(ctx, func(ctx context.Context) error {
		_, err := repo.Enqueue(ctx, domain.OutboxMessage{AggregateType: "order", AggregateID: "x", EventType: "e", Payload: []byte(`{}`)})
		require.NoError(t, err)
		return context.Canceled
	})

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
}

func TestIdempotencyRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()
	repo := NewIdempotencyRepository(store)

	ttl := time.Now().UTC().Add(time.Hour)
	_, err := repo.CreateProcessing(ctx, "key-1", "hash-1", ttl)
	require.NoError(t, err)

	_, err = repo.CreateProcessing(ctx, "key-1", "hash-1", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	_, err = repo.CreateProcessing(ctx, "key-1", "hash-2", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)

	require.NoError(t, repo.MarkDone(ctx, "key-1", []byte(`{"id":"order-1"}`), 201))
	record, err := repo.Get(ctx, "key-1")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusDone, record.Status)
	require.Equal(t, 201, record.HTTPStatus)
	require.JSONEq(t, `{"id":"order-1"}`, string(record.ResponseBody))

	_, err = repo.CreateProcessing(ctx, "key-old", "hash", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.MarkFailed(ctx, "key-old", []byte(`{"success":false}`), 500))
	reused, err := repo.CreateProcessing(ctx, "key-old", "hash-reused", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusProcessing, reused.Status)
	record, err = repo.Get(ctx, "key-old")
	require.NoError(t, err)
	require.Equal(t, "hash-reused", record.RequestHash)
	require.Zero(t, record.HTTPStatus)
	removed, err := repo.DeleteExpired(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = repo.Get(ctx, "key-old")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
	require.ErrorIs(t, repo.MarkFailed(ctx, "missing", nil, 500), domain.ErrIdempotencyKeyNotFound)
}

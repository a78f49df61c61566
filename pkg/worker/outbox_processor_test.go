package worker_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository/memory"
	"github.com/pharmatrust/pharmacy-api/pkg/logger"
	"github.com/pharmatrust/pharmacy-api/pkg/metrics"
	"github.com/pharmatrust/pharmacy-api/pkg/worker"
)

type stubBroker struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (b *stubBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, channel)
	return nil
}

func (b *stubBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *stubBroker) Close() error { return nil }

func (b *stubBroker) channels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.published...)
}

func pendingEvent(eventType string) *model.OutboxEvent {
	now := time.Now()
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   []byte(`{"stock_quantity":3}`),
		Status:    model.OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func runProcessor(t *testing.T, repo *memory.OutboxRepository, broker *stubBroker) {
	t.Helper()
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	p := worker.NewOutboxProcessor(repo, broker, worker.OutboxProcessorConfig{
		BatchSize:    10,
		PollInterval: 10 * time.Millisecond,
	}, log, metrics.New(prometheus.NewRegistry()))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	p.Start(ctx)
}

func TestProcessorPublishesPendingEvents(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &stubBroker{}
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, pendingEvent(model.EventLowStockAlert)))
	require.NoError(t, repo.Create(ctx, pendingEvent(model.EventStockAdjusted)))

	runProcessor(t, repo, broker)

	assert.ElementsMatch(t, []string{model.EventLowStockAlert, model.EventStockAdjusted}, broker.channels())

	pending, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "published events leave the pending set")
}

func TestProcessorMarksFailedOnBrokerError(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &stubBroker{err: errors.New("connection refused")}
	ctx := context.Background()

	evt := pendingEvent(model.EventLowStockAlert)
	require.NoError(t, repo.Create(ctx, evt))

	runProcessor(t, repo, broker)

	pending, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "failed events are parked, not retried forever in place")
}

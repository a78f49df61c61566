package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
	"github.com/pharmatrust/pharmacy-api/pkg/logger"
	"github.com/pharmatrust/pharmacy-api/pkg/messaging"
	"github.com/pharmatrust/pharmacy-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// OutboxProcessor drains pending outbox events to the message broker. It is
// the only component that publishes; the API process just writes rows.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  log,
		metrics: m,
	}
}

// Start polls until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox processor stopped")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error(err, "outbox batch failed")
			}
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	events, err := p.repo.GetPending(ctx, p.config.BatchSize)
	if err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.OutboxQueueSize.Set(float64(len(events)))
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.logger.Error(err, "failed to publish event",
				"event_id", event.ID.String(), "event_type", event.EventType)
			if p.metrics != nil {
				p.metrics.OutboxEventsFailed.Inc()
			}
			if markErr := p.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
				p.logger.Error(markErr, "failed to mark event failed", "event_id", event.ID.String())
			}
			continue
		}
		if p.metrics != nil {
			p.metrics.OutboxEventsProcessed.Inc()
		}
		if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
			p.logger.Error(err, "failed to mark event processed", "event_id", event.ID.String())
		}
	}
	return nil
}

func (p *OutboxProcessor) publish(ctx context.Context, event *model.OutboxEvent) error {
	return p.broker.Publish(ctx, event.EventType, messaging.Message{
		Type:    event.EventType,
		Payload: json.RawMessage(event.Payload),
	})
}

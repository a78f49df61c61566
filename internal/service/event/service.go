package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
	"github.com/pharmatrust/pharmacy-api/pkg/logger"
)

// Emitter is what the core services see: fire-and-forget event emission.
// The core must remain correct even if no one is listening, so emission
// failures are logged and dropped, never propagated.
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{})
}

// Service writes events to the outbox table; a separate worker publishes
// them to the broker. The outbox row is written after the mutation it
// describes has committed.
type Service struct {
	repo   repository.OutboxRepository
	logger *logger.Logger
}

func NewService(repo repository.OutboxRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

func (s *Service) Emit(ctx context.Context, eventType string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error(err, "failed to marshal event payload", "event_type", eventType)
		return
	}

	now := time.Now()
	evt := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   body,
		Status:    model.OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, evt); err != nil {
		s.logger.Error(err, "failed to create outbox event", "event_type", eventType)
	}
}

// Discard drops every event, for wiring the core without an outbox.
type Discard struct{}

func (Discard) Emit(context.Context, string, interface{}) {}

package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service writes the operational audit trail: who did what to which entity.
// Distinct from the ledger, which only records stock-affecting events; the
// audit trail also covers role grants, rejections and reads of sensitive
// data, and its loss never affects core correctness.
type Service struct {
	log *zap.Logger
}

func NewService(log *zap.Logger) *Service {
	return &Service{log: log}
}

// Log records one action. Failures are swallowed: audit is observability,
// not a correctness dependency.
func (s *Service) Log(ctx context.Context, actorID uuid.UUID, action, entityType string, entityID uuid.UUID, details map[string]interface{}) {
	fields := []zap.Field{
		zap.String("actor_id", actorID.String()),
		zap.String("action", action),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID.String()),
	}
	for k, v := range details {
		fields = append(fields, zap.Any(k, v))
	}
	s.log.Info("audit", fields...)
}

// Sync flushes buffered entries; call on shutdown.
func (s *Service) Sync() {
	_ = s.log.Sync()
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
)

// OutboxRepository stores pending events in a map keyed by id.
type OutboxRepository struct {
	mu     sync.RWMutex
	events map[uuid.UUID]model.OutboxEvent
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{
		events: make(map[uuid.UUID]model.OutboxEvent),
	}
}

func (r *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = *event
	return nil
}

func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.OutboxEvent, 0)
	for _, evt := range r.events {
		if evt.Status == model.OutboxStatusPending {
			e := evt
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	evt, ok := r.events[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	evt.Status = model.OutboxStatusProcessed
	evt.ProcessedAt = &now
	evt.UpdatedAt = now
	r.events[id] = evt
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	evt, ok := r.events[id]
	if !ok {
		return ErrNotFound
	}
	evt.Status = model.OutboxStatusFailed
	evt.ErrorMessage = &errMsg
	evt.RetryCount++
	evt.UpdatedAt = time.Now()
	r.events[id] = evt
	return nil
}

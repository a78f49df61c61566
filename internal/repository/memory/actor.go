package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
)

// ActorRepository stores actors in maps keyed by id and lowercased email.
type ActorRepository struct {
	mu      sync.RWMutex
	actors  map[uuid.UUID]model.Actor
	byEmail map[string]uuid.UUID
}

func NewActorRepository() *ActorRepository {
	return &ActorRepository{
		actors:  make(map[uuid.UUID]model.Actor),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *ActorRepository) Create(ctx context.Context, actor *model.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[actor.ID] = *actor
	r.byEmail[strings.ToLower(actor.Email)] = actor.ID
	return nil
}

func (r *ActorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	actor, ok := r.actors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &actor, nil
}

func (r *ActorRepository) GetByEmail(ctx context.Context, email string) (*model.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	actor := r.actors[id]
	return &actor, nil
}

func (r *ActorRepository) Update(ctx context.Context, actor *model.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actors[actor.ID]; !ok {
		return ErrNotFound
	}
	r.actors[actor.ID] = *actor
	return nil
}

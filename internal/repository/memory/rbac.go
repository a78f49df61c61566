package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
)

// RBACRepository stores role assignments as an actor -> role set map.
type RBACRepository struct {
	mu    sync.RWMutex
	roles map[uuid.UUID]map[model.Role]model.RoleAssignment
}

func NewRBACRepository() *RBACRepository {
	return &RBACRepository{
		roles: make(map[uuid.UUID]map[model.Role]model.RoleAssignment),
	}
}

func (r *RBACRepository) Assign(ctx context.Context, assignment *model.RoleAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	held, ok := r.roles[assignment.ActorID]
	if !ok {
		held = make(map[model.Role]model.RoleAssignment)
		r.roles[assignment.ActorID] = held
	}
	held[assignment.Role] = *assignment
	return nil
}

func (r *RBACRepository) Revoke(ctx context.Context, actorID uuid.UUID, role model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	held, ok := r.roles[actorID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := held[role]; !ok {
		return ErrNotFound
	}
	delete(held, role)
	return nil
}

func (r *RBACRepository) HasRole(ctx context.Context, actorID uuid.UUID, role model.Role) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roles[actorID][role]
	return ok, nil
}

func (r *RBACRepository) ListRoles(ctx context.Context, actorID uuid.UUID) ([]model.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Role, 0, len(r.roles[actorID]))
	for role := range r.roles[actorID] {
		out = append(out, role)
	}
	return out, nil
}

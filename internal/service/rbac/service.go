package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
	"github.com/pharmatrust/pharmacy-api/internal/service/audit"
	apperrors "github.com/pharmatrust/pharmacy-api/pkg/errors"
)

// Service is the authorization table gating every state-changing operation.
// It mirrors an on-chain role registry but carries no chain semantics of its
// own.
type Service struct {
	repo    repository.RBACRepository
	auditor *audit.Service
}

func NewService(repo repository.RBACRepository, auditor *audit.Service) *Service {
	return &Service{
		repo:    repo,
		auditor: auditor,
	}
}

// Bootstrap grants Administrator to the initial actor. Intended to run once
// at system initialization; granting is idempotent.
func (s *Service) Bootstrap(ctx context.Context, actorID uuid.UUID) error {
	held, err := s.repo.HasRole(ctx, actorID, model.RoleAdministrator)
	if err != nil {
		return apperrors.Storage(err)
	}
	if held {
		return nil
	}

	assignment := &model.RoleAssignment{
		ActorID:   actorID,
		Role:      model.RoleAdministrator,
		GrantedBy: actorID,
		GrantedAt: time.Now(),
	}
	if err := s.repo.Assign(ctx, assignment); err != nil {
		return apperrors.Storage(err)
	}

	s.auditor.Log(ctx, actorID, "bootstrap", "role", actorID, map[string]interface{}{
		"role": model.RoleAdministrator,
	})
	return nil
}

// HasRole reports whether the actor holds the role.
func (s *Service) HasRole(ctx context.Context, actorID uuid.UUID, role model.Role) (bool, error) {
	held, err := s.repo.HasRole(ctx, actorID, role)
	if err != nil {
		return false, apperrors.Storage(err)
	}
	return held, nil
}

// Require fails with Unauthorized unless the actor holds the role.
func (s *Service) Require(ctx context.Context, actorID uuid.UUID, role model.Role) error {
	held, err := s.HasRole(ctx, actorID, role)
	if err != nil {
		return err
	}
	if !held {
		return apperrors.Unauthorized(fmt.Sprintf("actor lacks role %s", role))
	}
	return nil
}

// Assign grants a role. Only Administrator holders may assign.
func (s *Service) Assign(ctx context.Context, grantorID, actorID uuid.UUID, role model.Role) error {
	if !model.ValidRole(role) {
		return apperrors.Validation(fmt.Sprintf("unknown role %q", role), nil)
	}
	if err := s.Require(ctx, grantorID, model.RoleAdministrator); err != nil {
		return err
	}

	assignment := &model.RoleAssignment{
		ActorID:   actorID,
		Role:      role,
		GrantedBy: grantorID,
		GrantedAt: time.Now(),
	}
	if err := s.repo.Assign(ctx, assignment); err != nil {
		return apperrors.Storage(err)
	}

	s.auditor.Log(ctx, grantorID, "assign_role", "actor", actorID, map[string]interface{}{
		"role": role,
	})
	return nil
}

// Revoke removes a role. Roles never expire implicitly; this is the only way
// one goes away.
func (s *Service) Revoke(ctx context.Context, grantorID, actorID uuid.UUID, role model.Role) error {
	if err := s.Require(ctx, grantorID, model.RoleAdministrator); err != nil {
		return err
	}
	if err := s.repo.Revoke(ctx, actorID, role); err != nil {
		return apperrors.Storage(err)
	}

	s.auditor.Log(ctx, grantorID, "revoke_role", "actor", actorID, map[string]interface{}{
		"role": role,
	})
	return nil
}

// ListRoles returns every role the actor holds.
func (s *Service) ListRoles(ctx context.Context, actorID uuid.UUID) ([]model.Role, error) {
	roles, err := s.repo.ListRoles(ctx, actorID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return roles, nil
}

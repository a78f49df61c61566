package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
	"github.com/pharmatrust/pharmacy-api/internal/service/audit"
	"github.com/pharmatrust/pharmacy-api/internal/service/rbac"
	"github.com/pharmatrust/pharmacy-api/pkg/auth"
	apperrors "github.com/pharmatrust/pharmacy-api/pkg/errors"
	"github.com/pharmatrust/pharmacy-api/pkg/security"
	"github.com/pharmatrust/pharmacy-api/pkg/validator"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

// Service is the authentication boundary: it resolves credentials to the
// (actorId, roles) pair the core requires on every state-changing call.
type Service struct {
	actors    repository.ActorRepository
	access    *rbac.Service
	jwtSvc    auth.JWTService
	hasher    security.PasswordHasher
	validator validator.Validator
	auditor   *audit.Service
}

func NewService(
	actors repository.ActorRepository,
	access *rbac.Service,
	jwtSvc auth.JWTService,
	hasher security.PasswordHasher,
	v validator.Validator,
	auditor *audit.Service,
) *Service {
	return &Service{
		actors:    actors,
		access:    access,
		jwtSvc:    jwtSvc,
		hasher:    hasher,
		validator: v,
		auditor:   auditor,
	}
}

// Register creates a new actor. A fresh actor holds no roles until an
// administrator grants some.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.Actor, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("invalid registration", err)
	}
	if existing, _ := s.actors.GetByEmail(ctx, req.Email); existing != nil {
		return nil, apperrors.Validation("email already registered", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Validation("invalid password", err)
	}

	now := time.Now()
	actor := &model.Actor{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Status:       model.ActorStatusActive,
	}
	if err := s.actors.Create(ctx, actor); err != nil {
		return nil, apperrors.Storage(err)
	}

	s.auditor.Log(ctx, actor.ID, "register", "actor", actor.ID, nil)
	return actor, nil
}

// Login checks credentials and issues a token whose claims carry the
// actor's current role set.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("invalid login request", err)
	}

	actor, err := s.actors.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	if actor.Status == model.ActorStatusLocked {
		if time.Since(actor.LastLoginAttempt) < lockoutDuration {
			return nil, apperrors.Unauthorized("account locked, try again later")
		}
		actor.Status = model.ActorStatusActive
		actor.LoginAttempts = 0
	}

	if err := s.hasher.Compare(actor.PasswordHash, req.Password); err != nil {
		actor.LoginAttempts++
		actor.LastLoginAttempt = time.Now()
		if actor.LoginAttempts >= maxLoginAttempts {
			actor.Status = model.ActorStatusLocked
		}
		if updateErr := s.actors.Update(ctx, actor); updateErr != nil {
			return nil, apperrors.Storage(updateErr)
		}
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	actor.LoginAttempts = 0
	now := time.Now()
	actor.LastLoginAt = &now
	if err := s.actors.Update(ctx, actor); err != nil {
		return nil, apperrors.Storage(err)
	}

	roles, err := s.access.ListRoles(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	roleNames := make([]string, len(roles))
	for i, r := range roles {
		roleNames[i] = string(r)
	}

	token, expiresAt, err := s.jwtSvc.GenerateToken(actor.ID, roleNames)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.auditor.Log(ctx, actor.ID, "login", "actor", actor.ID, nil)
	return &model.TokenResponse{AccessToken: token, ExpiresAt: expiresAt}, nil
}

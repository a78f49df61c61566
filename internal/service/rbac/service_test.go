package rbac_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository/memory"
	"github.com/pharmatrust/pharmacy-api/internal/service/audit"
	"github.com/pharmatrust/pharmacy-api/internal/service/rbac"
	apperrors "github.com/pharmatrust/pharmacy-api/pkg/errors"
)

func newService() *rbac.Service {
	return rbac.NewService(memory.NewRBACRepository(), audit.NewService(zap.NewNop()))
}

func TestBootstrapIsIdempotent(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	admin := uuid.New()

	require.NoError(t, svc.Bootstrap(ctx, admin))
	require.NoError(t, svc.Bootstrap(ctx, admin))

	held, err := svc.HasRole(ctx, admin, model.RoleAdministrator)
	require.NoError(t, err)
	assert.True(t, held)

	roles, err := svc.ListRoles(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestAssignRequiresAdministrator(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	admin := uuid.New()
	require.NoError(t, svc.Bootstrap(ctx, admin))

	nobody := uuid.New()
	target := uuid.New()

	err := svc.Assign(ctx, nobody, target, model.RoleVerifier)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))

	require.NoError(t, svc.Assign(ctx, admin, target, model.RoleVerifier))
	held, err := svc.HasRole(ctx, target, model.RoleVerifier)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestAssignRejectsUnknownRole(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	admin := uuid.New()
	require.NoError(t, svc.Bootstrap(ctx, admin))

	err := svc.Assign(ctx, admin, uuid.New(), "superuser")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestRevoke(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	admin := uuid.New()
	target := uuid.New()
	require.NoError(t, svc.Bootstrap(ctx, admin))
	require.NoError(t, svc.Assign(ctx, admin, target, model.RoleDispenser))

	err := svc.Revoke(ctx, target, target, model.RoleDispenser)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized), "non-admins cannot revoke")

	require.NoError(t, svc.Revoke(ctx, admin, target, model.RoleDispenser))
	held, err := svc.HasRole(ctx, target, model.RoleDispenser)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestRequire(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	admin := uuid.New()
	require.NoError(t, svc.Bootstrap(ctx, admin))

	assert.NoError(t, svc.Require(ctx, admin, model.RoleAdministrator))

	err := svc.Require(ctx, admin, model.RoleDispenser)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized), "holding one role grants no other")

	err = svc.Require(ctx, uuid.New(), model.RoleAdministrator)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}

func TestActorMayHoldMultipleRoles(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	admin := uuid.New()
	target := uuid.New()
	require.NoError(t, svc.Bootstrap(ctx, admin))

	require.NoError(t, svc.Assign(ctx, admin, target, model.RoleVerifier))
	require.NoError(t, svc.Assign(ctx, admin, target, model.RoleDispenser))

	roles, err := svc.ListRoles(ctx, target)
	require.NoError(t, err)
	assert.Len(t, roles, 2)
}

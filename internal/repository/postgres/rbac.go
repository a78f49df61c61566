package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
)

type rbacRepository struct {
	db *sqlx.DB
}

func NewRBACRepository(db *sqlx.DB) repository.RBACRepository {
	return &rbacRepository{db: db}
}

func (r *rbacRepository) Assign(ctx context.Context, assignment *model.RoleAssignment) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO role_assignments (actor_id, role, granted_by, granted_at)
		VALUES (:actor_id, :role, :granted_by, :granted_at)
		ON CONFLICT (actor_id, role) DO NOTHING
	`, assignment)
	return err
}

func (r *rbacRepository) Revoke(ctx context.Context, actorID uuid.UUID, role model.Role) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM role_assignments WHERE actor_id = $1 AND role = $2
	`, actorID, role)
	return err
}

func (r *rbacRepository) HasRole(ctx context.Context, actorID uuid.UUID, role model.Role) (bool, error) {
	var held bool
	err := r.db.GetContext(ctx, &held, `
		SELECT EXISTS (
			SELECT 1 FROM role_assignments WHERE actor_id = $1 AND role = $2
		)
	`, actorID, role)
	return held, err
}

func (r *rbacRepository) ListRoles(ctx context.Context, actorID uuid.UUID) ([]model.Role, error) {
	roles := []model.Role{}
	err := r.db.SelectContext(ctx, &roles, `
		SELECT role FROM role_assignments WHERE actor_id = $1 ORDER BY role ASC
	`, actorID)
	return roles, err
}

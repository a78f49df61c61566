package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
)

type actorRepository struct {
	db *sqlx.DB
}

func NewActorRepository(db *sqlx.DB) repository.ActorRepository {
	return &actorRepository{db: db}
}

func (r *actorRepository) Create(ctx context.Context, actor *model.Actor) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO actors (
			id, name, email, password_hash, status, login_attempts,
			last_login_attempt, last_login_at, created_at, updated_at
		) VALUES (
			:id, :name, :email, :password_hash, :status, :login_attempts,
			:last_login_attempt, :last_login_at, :created_at, :updated_at
		)
	`, actor)
	return err
}

func (r *actorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Actor, error) {
	var actor model.Actor
	if err := r.db.GetContext(ctx, &actor, `SELECT * FROM actors WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &actor, nil
}

func (r *actorRepository) GetByEmail(ctx context.Context, email string) (*model.Actor, error) {
	var actor model.Actor
	if err := r.db.GetContext(ctx, &actor, `
		SELECT * FROM actors WHERE LOWER(email) = LOWER($1)
	`, email); err != nil {
		return nil, err
	}
	return &actor, nil
}

func (r *actorRepository) Update(ctx context.Context, actor *model.Actor) error {
	_, err := r.db.NamedExecContext(ctx, `
		UPDATE actors SET
			name = :name,
			email = :email,
			password_hash = :password_hash,
			status = :status,
			login_attempts = :login_attempts,
			last_login_attempt = :last_login_attempt,
			last_login_at = :last_login_at,
			updated_at = :updated_at
		WHERE id = :id
	`, actor)
	return err
}

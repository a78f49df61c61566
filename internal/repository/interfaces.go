package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/model"
)

// All repository interfaces in one file. Postgres implementations live in
// repository/postgres; the in-memory set in repository/memory backs the
// service tests and single-node deployments.
type (
	// DrugRepository persists inventory rows. The write operations that
	// pair a drug mutation with a ledger entry must commit both in one
	// storage transaction or fail without any partial write.
	DrugRepository interface {
		Create(ctx context.Context, drug *model.Drug, entry *model.LedgerEntry) error
		Get(ctx context.Context, id uuid.UUID) (*model.Drug, error)
		AdjustStock(ctx context.Context, drug *model.Drug, entry *model.LedgerEntry) error
		List(ctx context.Context, filters *model.DrugFilters) ([]*model.Drug, error)
	}

	// LedgerRepository persists the append-only chain. There is no update
	// or delete; List and ListBySubject return entries ascending by
	// sequence.
	LedgerRepository interface {
		Append(ctx context.Context, entry *model.LedgerEntry) error
		Last(ctx context.Context) (*model.LedgerEntry, error)
		List(ctx context.Context) ([]*model.LedgerEntry, error)
		ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*model.LedgerEntry, error)
	}

	PrescriptionRepository interface {
		Create(ctx context.Context, p *model.Prescription) error
		Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		Update(ctx context.Context, p *model.Prescription) error
		List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.Prescription, error)
		// Dispense commits the prescription update, the stock decrement and
		// the ledger entry as one transaction.
		Dispense(ctx context.Context, p *model.Prescription, drug *model.Drug, entry *model.LedgerEntry) error
	}

	RBACRepository interface {
		Assign(ctx context.Context, assignment *model.RoleAssignment) error
		Revoke(ctx context.Context, actorID uuid.UUID, role model.Role) error
		HasRole(ctx context.Context, actorID uuid.UUID, role model.Role) (bool, error)
		ListRoles(ctx context.Context, actorID uuid.UUID) ([]model.Role, error)
	}

	ActorRepository interface {
		Create(ctx context.Context, actor *model.Actor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Actor, error)
		GetByEmail(ctx context.Context, email string) (*model.Actor, error)
		Update(ctx context.Context, actor *model.Actor) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	}
)

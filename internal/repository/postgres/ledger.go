package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
)

type ledgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

const insertLedgerEntry = `
	INSERT INTO ledger_entries (
		sequence, subject_id, entry_type, quantity_delta, resulting_quantity,
		actor_id, actor_role, entry_timestamp, note, hash, previous_hash
	) VALUES (
		:sequence, :subject_id, :entry_type, :quantity_delta, :resulting_quantity,
		:actor_id, :actor_role, :entry_timestamp, :note, :hash, :previous_hash
	)
`

func (r *ledgerRepository) Append(ctx context.Context, entry *model.LedgerEntry) error {
	_, err := r.db.NamedExecContext(ctx, insertLedgerEntry, entry)
	return err
}

func appendLedgerEntryTx(ctx context.Context, tx *sqlx.Tx, entry *model.LedgerEntry) error {
	_, err := tx.NamedExecContext(ctx, insertLedgerEntry, entry)
	return err
}

func (r *ledgerRepository) Last(ctx context.Context) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	err := r.db.GetContext(ctx, &entry, `
		SELECT * FROM ledger_entries ORDER BY sequence DESC LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ledgerRepository) List(ctx context.Context) ([]*model.LedgerEntry, error) {
	entries := []*model.LedgerEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries ORDER BY sequence ASC
	`)
	return entries, err
}

func (r *ledgerRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*model.LedgerEntry, error) {
	entries := []*model.LedgerEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries WHERE subject_id = $1 ORDER BY sequence ASC
	`, subjectID)
	return entries, err
}

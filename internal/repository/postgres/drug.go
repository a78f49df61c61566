package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
)

type drugRepository struct {
	db *sqlx.DB
}

func NewDrugRepository(db *sqlx.DB) repository.DrugRepository {
	return &drugRepository{db: db}
}

// withTx executes fn inside a transaction.
func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

const insertDrug = `
	INSERT INTO drugs (
		id, name, generic_name, dosage_form, strength, manufacturer,
		batch_number, category, expiry_date, stock_quantity, min_stock_level,
		unit_price, active, last_ledger_hash, created_at, updated_at
	) VALUES (
		:id, :name, :generic_name, :dosage_form, :strength, :manufacturer,
		:batch_number, :category, :expiry_date, :stock_quantity, :min_stock_level,
		:unit_price, :active, :last_ledger_hash, :created_at, :updated_at
	)
`

const updateDrugStock = `
	UPDATE drugs SET
		stock_quantity = :stock_quantity,
		active = :active,
		last_ledger_hash = :last_ledger_hash,
		updated_at = :updated_at
	WHERE id = :id
`

func (r *drugRepository) Create(ctx context.Context, drug *model.Drug, entry *model.LedgerEntry) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertDrug, drug); err != nil {
			return fmt.Errorf("failed to insert drug: %w", err)
		}
		return appendLedgerEntryTx(ctx, tx, entry)
	})
}

func (r *drugRepository) Get(ctx context.Context, id uuid.UUID) (*model.Drug, error) {
	var drug model.Drug
	if err := r.db.GetContext(ctx, &drug, `SELECT * FROM drugs WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &drug, nil
}

func (r *drugRepository) AdjustStock(ctx context.Context, drug *model.Drug, entry *model.LedgerEntry) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, updateDrugStock, drug)
		if err != nil {
			return fmt.Errorf("failed to update drug stock: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("drug %s not found", drug.ID)
		}
		return appendLedgerEntryTx(ctx, tx, entry)
	})
}

func (r *drugRepository) List(ctx context.Context, filters *model.DrugFilters) ([]*model.Drug, error) {
	query := `SELECT * FROM drugs WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filters != nil {
		if filters.ActiveOnly {
			query += ` AND active = true`
		}
		if filters.Category != "" {
			query += fmt.Sprintf(` AND LOWER(category) = LOWER($%d)`, idx)
			args = append(args, filters.Category)
			idx++
		}
		if filters.SearchTerm != "" {
			query += fmt.Sprintf(
				` AND (name ILIKE $%d OR generic_name ILIKE $%d OR manufacturer ILIKE $%d)`,
				idx, idx, idx)
			args = append(args, "%"+filters.SearchTerm+"%")
			idx++
		}
		if filters.LowStock {
			query += ` AND stock_quantity <= min_stock_level`
		}
		if filters.Expired {
			query += ` AND expiry_date < NOW()`
		}
	}
	query += ` ORDER BY name ASC`

	drugs := []*model.Drug{}
	err := r.db.SelectContext(ctx, &drugs, query, args...)
	return drugs, err
}

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
)

type prescriptionRepository struct {
	db *sqlx.DB
}

func NewPrescriptionRepository(db *sqlx.DB) repository.PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

const insertPrescription = `
	INSERT INTO prescriptions (
		id, number, patient_id, prescriber_id, drug_id, quantity_requested,
		quantity_dispensed, instructions, duration_days, status, rejection_note,
		verifier_id, dispenser_id, dispensed_at, cancelled_at, expired_at,
		ledger_hash, created_at, updated_at
	) VALUES (
		:id, :number, :patient_id, :prescriber_id, :drug_id, :quantity_requested,
		:quantity_dispensed, :instructions, :duration_days, :status, :rejection_note,
		:verifier_id, :dispenser_id, :dispensed_at, :cancelled_at, :expired_at,
		:ledger_hash, :created_at, :updated_at
	)
`

const updatePrescription = `
	UPDATE prescriptions SET
		quantity_dispensed = :quantity_dispensed,
		status = :status,
		rejection_note = :rejection_note,
		verifier_id = :verifier_id,
		dispenser_id = :dispenser_id,
		dispensed_at = :dispensed_at,
		cancelled_at = :cancelled_at,
		expired_at = :expired_at,
		ledger_hash = :ledger_hash,
		updated_at = :updated_at
	WHERE id = :id
`

func (r *prescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	_, err := r.db.NamedExecContext(ctx, insertPrescription, p)
	return err
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	var p model.Prescription
	if err := r.db.GetContext(ctx, &p, `SELECT * FROM prescriptions WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepository) Update(ctx context.Context, p *model.Prescription) error {
	_, err := r.db.NamedExecContext(ctx, updatePrescription, p)
	return err
}

func (r *prescriptionRepository) Dispense(ctx context.Context, p *model.Prescription, drug *model.Drug, entry *model.LedgerEntry) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, updatePrescription, p); err != nil {
			return fmt.Errorf("failed to update prescription: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, updateDrugStock, drug); err != nil {
			return fmt.Errorf("failed to update drug stock: %w", err)
		}
		return appendLedgerEntryTx(ctx, tx, entry)
	})
}

func (r *prescriptionRepository) List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.Prescription, error) {
	query := `SELECT * FROM prescriptions WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filters != nil {
		if filters.PatientID != nil {
			query += fmt.Sprintf(` AND patient_id = $%d`, idx)
			args = append(args, *filters.PatientID)
			idx++
		}
		if filters.PrescriberID != nil {
			query += fmt.Sprintf(` AND prescriber_id = $%d`, idx)
			args = append(args, *filters.PrescriberID)
			idx++
		}
		if filters.Status != nil {
			query += fmt.Sprintf(` AND status = $%d`, idx)
			args = append(args, *filters.Status)
			idx++
		}
	}
	query += ` ORDER BY created_at ASC`

	list := []*model.Prescription{}
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

package postgres

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

// Unique constraint names defined in migrations/001_init.sql. Violations are
// translated to user-facing conflicts at this boundary so racing writers see
// the same error the pre-checks would have produced.
const (
	constraintDoctorLive  = "appointments_doctor_live_idx"
	constraintPatientLive = "appointments_patient_live_idx"
	constraintSlotTuple   = "slots_doctor_tuple_idx"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
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

// translateConflict maps storage-level unique violations to Conflict errors.
// Anything else passes through unchanged.
func translateConflict(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}

	switch pqErr.Constraint {
	case constraintDoctorLive:
		return apperrors.Conflict("doctor already has an appointment in this slot")
	case constraintPatientLive:
		return apperrors.Conflict("patient already has an appointment in this slot")
	case constraintSlotTuple:
		return apperrors.Conflict("slot with given time already exists")
	default:
		return apperrors.Conflict("resource already exists")
	}
}

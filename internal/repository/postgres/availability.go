package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mediflow/scheduling-api/internal/model"
	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

const insertWindowQuery = `
	INSERT INTO availability_windows (
		id, doctor_id, date, start_time, end_time, slot_duration,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const insertSlotQuery = `
	INSERT INTO slots (
		id, doctor_id, availability_id, date, start_time, end_time,
		status, slot_type, priority_tag, reason, added_by, patient_id,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

func (r *availabilityRepository) GetForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*model.AvailabilityWindow, error) {
	query := `
		SELECT id, doctor_id, date, start_time, end_time, slot_duration,
			   created_at, updated_at
		FROM availability_windows
		WHERE doctor_id = $1 AND date = $2
		ORDER BY start_time
		LIMIT 1
	`
	var window model.AvailabilityWindow
	err := r.db.GetContext(ctx, &window, query, doctorID, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("availability window")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability window: %w", err)
	}
	return &window, nil
}

func (r *availabilityRepository) ExistsForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM availability_windows WHERE doctor_id = $1 AND date = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, doctorID, date); err != nil {
		return false, fmt.Errorf("failed to check availability window: %w", err)
	}
	return exists, nil
}

// ReplaceDay swaps out a whole day inside one transaction so readers never
// observe an empty schedule between delete and insert.
func (r *availabilityRepository) ReplaceDay(ctx context.Context, window *model.AvailabilityWindow, slots []*model.Slot) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM slots WHERE doctor_id = $1 AND date = $2`,
			window.DoctorID, window.Date,
		); err != nil {
			return fmt.Errorf("failed to purge slots: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM availability_windows WHERE doctor_id = $1 AND date = $2`,
			window.DoctorID, window.Date,
		); err != nil {
			return fmt.Errorf("failed to purge availability window: %w", err)
		}
		if err := insertWindow(ctx, tx, window); err != nil {
			return err
		}
		return insertSlots(ctx, tx, slots)
	})
	return translateConflict(err)
}

// SaveGenerated commits a definition call as one atomic unit; no partial
// slot set is ever visible.
func (r *availabilityRepository) SaveGenerated(ctx context.Context, windows []*model.AvailabilityWindow, slots []*model.Slot) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, w := range windows {
			if err := insertWindow(ctx, tx, w); err != nil {
				return err
			}
		}
		return insertSlots(ctx, tx, slots)
	})
	return translateConflict(err)
}

func insertWindow(ctx context.Context, tx *sqlx.Tx, w *model.AvailabilityWindow) error {
	now := time.Now()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := tx.ExecContext(ctx, insertWindowQuery,
		w.ID, w.DoctorID, w.Date, w.StartTime, w.EndTime, w.SlotDuration,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert availability window: %w", err)
	}
	return nil
}

func insertSlots(ctx context.Context, tx *sqlx.Tx, slots []*model.Slot) error {
	now := time.Now()
	for _, s := range slots {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		s.CreatedAt = now
		s.UpdatedAt = now

		_, err := tx.ExecContext(ctx, insertSlotQuery,
			s.ID, s.DoctorID, s.AvailabilityID, s.Date, s.StartTime, s.EndTime,
			s.Status, s.Type, s.PriorityTag, s.Reason, s.AddedBy, s.PatientID,
			s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert slot: %w", err)
		}
	}
	return nil
}

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
	"github.com/mediflow/scheduling-api/internal/repository"
	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

const slotColumns = `
	id, doctor_id, availability_id, date, start_time, end_time,
	status, slot_type, priority_tag, reason, added_by, patient_id,
	created_at, updated_at
`

func (r *slotRepository) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`
	var slot model.Slot
	err := r.db.GetContext(ctx, &slot, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("slot")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &slot, nil
}

func (r *slotRepository) GetByDoctorAndTime(ctx context.Context, doctorID uuid.UUID, date, start time.Time) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE doctor_id = $1 AND date = $2 AND start_time = $3`
	var slot model.Slot
	err := r.db.GetContext(ctx, &slot, query, doctorID, date, start)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("slot")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &slot, nil
}

func (r *slotRepository) Exists(ctx context.Context, doctorID uuid.UUID, date, start, end time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM slots
			WHERE doctor_id = $1 AND date = $2 AND start_time = $3 AND end_time = $4
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, doctorID, date, start, end); err != nil {
		return false, fmt.Errorf("failed to check slot existence: %w", err)
	}
	return exists, nil
}

func (r *slotRepository) Insert(ctx context.Context, slot *model.Slot) error {
	now := time.Now()
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.CreatedAt = now
	slot.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, insertSlotQuery,
		slot.ID, slot.DoctorID, slot.AvailabilityID, slot.Date, slot.StartTime, slot.EndTime,
		slot.Status, slot.Type, slot.PriorityTag, slot.Reason, slot.AddedBy, slot.PatientID,
		slot.CreatedAt, slot.UpdatedAt,
	)
	if err != nil {
		if err = translateConflict(err); apperrors.IsKind(err, apperrors.KindConflict) {
			return err
		}
		return fmt.Errorf("failed to insert slot: %w", err)
	}
	return nil
}

func (r *slotRepository) ListByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE doctor_id = $1 AND date = $2 ORDER BY start_time`
	var slots []*model.Slot
	if err := r.db.SelectContext(ctx, &slots, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (r *slotRepository) ListByDoctorDateAndStatuses(ctx context.Context, doctorID uuid.UUID, date time.Time, statuses []model.SlotStatus) ([]*model.Slot, error) {
	query, args, err := sqlx.In(
		`SELECT `+slotColumns+` FROM slots WHERE doctor_id = ? AND date = ? AND status IN (?) ORDER BY start_time`,
		doctorID, date, statuses,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build slot query: %w", err)
	}
	query = r.db.Rebind(query)

	var slots []*model.Slot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list slots by status: %w", err)
	}
	return slots, nil
}

func (r *slotRepository) ListSchedule(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]repository.ScheduleSlotRow, error) {
	query := `
		SELECT s.id, s.doctor_id, s.availability_id, s.date, s.start_time, s.end_time,
			   s.status, s.slot_type, s.priority_tag, s.reason, s.added_by, s.patient_id,
			   s.created_at, s.updated_at,
			   nullif(trim(coalesce(u.first_name, '') || ' ' || coalesce(u.last_name, '')), '') AS patient_name
		FROM slots s
		LEFT JOIN users u ON u.id = s.patient_id
		WHERE s.doctor_id = $1 AND s.date = $2
		ORDER BY s.start_time
	`
	type row struct {
		model.Slot
		PatientName *string `db:"patient_name"`
	}
	var raw []row
	if err := r.db.SelectContext(ctx, &raw, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to list schedule slots: %w", err)
	}

	rows := make([]repository.ScheduleSlotRow, 0, len(raw))
	for _, rr := range raw {
		rows = append(rows, repository.ScheduleSlotRow{Slot: rr.Slot, PatientName: rr.PatientName})
	}
	return rows, nil
}

// UpdateStatus performs the precondition check and the write as one
// statement so concurrent transitions from the same prior state cannot both
// succeed.
func (r *slotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []model.SlotStatus, to model.SlotStatus) error {
	query, args, err := sqlx.In(
		`UPDATE slots SET status = ?, updated_at = now() WHERE id = ? AND status IN (?)`,
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("failed to build slot update: %w", err)
	}
	query = r.db.Rebind(query)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update slot status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.Conflictf("slot is not in a state that allows transition to %s", to)
	}
	return nil
}

func (r *slotRepository) SetPriority(ctx context.Context, id uuid.UUID, tag, reason string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE slots SET priority_tag = $1, reason = $2, updated_at = now() WHERE id = $3`,
		tag, reason, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set slot priority: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("slot")
	}
	return nil
}

func (r *slotRepository) BlockRange(ctx context.Context, doctorID uuid.UUID, date, start, end time.Time, reason, addedBy string, cancelExisting bool) (int, error) {
	var blocked int
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if cancelExisting {
			if _, err := tx.ExecContext(ctx, `
				UPDATE appointments a
				SET status = 'CANCELLED', updated_at = now()
				FROM slots s
				WHERE a.slot_id = s.id
				  AND s.doctor_id = $1 AND s.date = $2
				  AND s.start_time >= $3 AND s.start_time < $4
				  AND a.status NOT IN ('CANCELLED', 'COMPLETED')
			`, doctorID, date, start, end); err != nil {
				return fmt.Errorf("failed to cancel blocked appointments: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE slots
			SET status = 'BLOCKED',
				reason = nullif($5, ''),
				added_by = nullif($6, ''),
				patient_id = NULL,
				updated_at = now()
			WHERE doctor_id = $1 AND date = $2
			  AND start_time >= $3 AND start_time < $4
		`, doctorID, date, start, end, reason, addedBy)
		if err != nil {
			return fmt.Errorf("failed to block slots: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		blocked = int(rows)
		return nil
	})
	return blocked, err
}

func (r *slotRepository) UnblockRange(ctx context.Context, doctorID uuid.UUID, date, start, end time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE slots
		SET status = 'AVAILABLE', reason = NULL, updated_at = now()
		WHERE doctor_id = $1 AND date = $2
		  AND start_time >= $3 AND start_time < $4
		  AND status = 'BLOCKED'
	`, doctorID, date, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to unblock slots: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

func (r *slotRepository) Shift(ctx context.Context, doctorID uuid.UUID, date time.Time, minutes int) (int, error) {
	var shifted int
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE slots
			SET start_time = start_time + make_interval(mins => $3),
				end_time = end_time + make_interval(mins => $3),
				updated_at = now()
			WHERE doctor_id = $1 AND date = $2
		`, doctorID, date, minutes)
		if err != nil {
			return fmt.Errorf("failed to shift slots: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE appointments
			SET slot_time = slot_time + make_interval(mins => $3),
				updated_at = now()
			WHERE doctor_id = $1 AND appointment_date = $2
			  AND status NOT IN ('CANCELLED')
		`, doctorID, date, minutes); err != nil {
			return fmt.Errorf("failed to shift appointments: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		shifted = int(rows)
		return nil
	})
	return shifted, translateConflict(err)
}

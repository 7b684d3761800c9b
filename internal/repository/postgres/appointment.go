package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/repository"
	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

const appointmentColumns = `
	id, doctor_id, patient_id, slot_id, appointment_date, slot_time,
	appointment_type, status, rescheduled_from, created_at, updated_at
`

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

// Book runs the whole booking as one transaction: the slot row is locked,
// its status re-checked under the lock, the appointment inserted and the
// slot flipped. The partial unique indexes on live appointments are the
// final arbiter between racing writers.
func (r *appointmentRepository) Book(ctx context.Context, appt *model.Appointment, slotFrom []model.SlotStatus, event *model.OutboxEvent) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var slot model.Slot
		err := tx.GetContext(ctx, &slot, `
			SELECT `+slotColumns+`
			FROM slots
			WHERE doctor_id = $1 AND date = $2 AND start_time = $3
			FOR UPDATE
		`, appt.DoctorID, appt.Date, appt.SlotTime)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("slot")
		}
		if err != nil {
			return fmt.Errorf("failed to lock slot: %w", err)
		}

		allowed := false
		for _, s := range slotFrom {
			if slot.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperrors.Conflict("slot is not available")
		}

		now := time.Now()
		if appt.ID == uuid.Nil {
			appt.ID = uuid.New()
		}
		appt.SlotID = &slot.ID
		appt.Status = model.AppointmentStatusBooked
		appt.CreatedAt = now
		appt.UpdatedAt = now

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO appointments (
				id, doctor_id, patient_id, slot_id, appointment_date, slot_time,
				appointment_type, status, rescheduled_from, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			appt.ID, appt.DoctorID, appt.PatientID, appt.SlotID, appt.Date, appt.SlotTime,
			appt.Type, appt.Status, appt.RescheduledFrom, appt.CreatedAt, appt.UpdatedAt,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE slots
			SET status = 'BOOKED', patient_id = $2, updated_at = now()
			WHERE id = $1
		`, slot.ID, appt.PatientID); err != nil {
			return fmt.Errorf("failed to book slot: %w", err)
		}

		return enqueueInTx(ctx, tx, event)
	})
	return translateConflict(err)
}

// Cancel is a compare-and-set out of any live status; the slot is freed in
// the same transaction.
func (r *appointmentRepository) Cancel(ctx context.Context, id uuid.UUID, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var slotID *uuid.UUID
		err := tx.GetContext(ctx, &slotID, `
			UPDATE appointments
			SET status = 'CANCELLED', updated_at = now()
			WHERE id = $1 AND status NOT IN ('CANCELLED')
			RETURNING slot_id
		`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Conflict("appointment is no longer cancellable")
		}
		if err != nil {
			return fmt.Errorf("failed to cancel appointment: %w", err)
		}

		if slotID != nil {
			if _, err := tx.ExecContext(ctx, `
				UPDATE slots
				SET status = 'AVAILABLE', patient_id = NULL, updated_at = now()
				WHERE id = $1
			`, *slotID); err != nil {
				return fmt.Errorf("failed to release slot: %w", err)
			}
		}

		return enqueueInTx(ctx, tx, event)
	})
}

// Transition moves the appointment and its slot together; the status
// precondition rides in the UPDATE itself.
func (r *appointmentRepository) Transition(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, slotTo model.SlotStatus, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := sqlx.In(`
			UPDATE appointments
			SET status = ?, updated_at = now()
			WHERE id = ? AND status IN (?)
			RETURNING slot_id
		`, to, id, from)
		if err != nil {
			return fmt.Errorf("failed to build transition: %w", err)
		}
		query = tx.Rebind(query)

		var slotID *uuid.UUID
		err = tx.GetContext(ctx, &slotID, query, args...)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Conflictf("appointment is not in a state that allows transition to %s", to)
		}
		if err != nil {
			return fmt.Errorf("failed to transition appointment: %w", err)
		}

		if slotID != nil {
			if _, err := tx.ExecContext(ctx, `
				UPDATE slots SET status = $2, updated_at = now() WHERE id = $1
			`, *slotID, slotTo); err != nil {
				return fmt.Errorf("failed to transition slot: %w", err)
			}
		}

		return enqueueInTx(ctx, tx, event)
	})
}

func (r *appointmentRepository) ExistsLiveForDoctor(ctx context.Context, doctorID uuid.UUID, date, slotTime time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2 AND slot_time = $3
			  AND status NOT IN ('CANCELLED')
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, doctorID, date, slotTime); err != nil {
		return false, fmt.Errorf("failed to check doctor conflict: %w", err)
	}
	return exists, nil
}

func (r *appointmentRepository) ExistsLiveForPatient(ctx context.Context, patientID uuid.UUID, date, slotTime time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND appointment_date = $2 AND slot_time = $3
			  AND status NOT IN ('CANCELLED')
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, patientID, date, slotTime); err != nil {
		return false, fmt.Errorf("failed to check patient conflict: %w", err)
	}
	return exists, nil
}

func (r *appointmentRepository) ListByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2
		ORDER BY slot_time
	`
	var appts []*model.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appts, nil
}

func (r *appointmentRepository) PageByPatient(ctx context.Context, patientID uuid.UUID, p model.Pagination) ([]*model.Appointment, int, error) {
	p.Normalize()

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT count(*) FROM appointments WHERE patient_id = $1`, patientID,
	); err != nil {
		return nil, 0, fmt.Errorf("failed to count patient appointments: %w", err)
	}

	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appointment_date DESC, slot_time DESC
		LIMIT $2 OFFSET $3
	`
	var appts []*model.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, patientID, p.PageSize, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to page patient appointments: %w", err)
	}
	return appts, total, nil
}

func (r *appointmentRepository) Search(ctx context.Context, f repository.AppointmentSearch) ([]*model.Appointment, int, error) {
	f.Pagination.Normalize()

	conds := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ExactDate != nil {
		conds = append(conds, "a.appointment_date = "+arg(*f.ExactDate))
	} else if f.FromDate != nil && f.ToDate != nil {
		conds = append(conds, "a.appointment_date BETWEEN "+arg(*f.FromDate)+" AND "+arg(*f.ToDate))
	}
	if f.DoctorName != "" {
		conds = append(conds, "lower(d.first_name || ' ' || d.last_name) LIKE "+arg("%"+strings.ToLower(f.DoctorName)+"%"))
	}
	if f.Status != "" {
		conds = append(conds, "a.status = "+arg(f.Status))
	}

	where := strings.Join(conds, " AND ")
	base := `FROM appointments a JOIN users d ON d.id = a.doctor_id WHERE ` + where

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) `+base, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	query := `
		SELECT a.id, a.doctor_id, a.patient_id, a.slot_id, a.appointment_date, a.slot_time,
			   a.appointment_type, a.status, a.rescheduled_from, a.created_at, a.updated_at
		` + base + `
		ORDER BY a.appointment_date, a.slot_time
		LIMIT ` + arg(f.Pagination.PageSize) + ` OFFSET ` + arg(f.Pagination.Offset())

	var appts []*model.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to search appointments: %w", err)
	}
	return appts, total, nil
}

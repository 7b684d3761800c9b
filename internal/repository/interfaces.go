package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow/scheduling-api/internal/model"
)

// AppointmentSearch is a fully resolved search filter: the service has
// already translated range keywords into concrete dates.
type AppointmentSearch struct {
	ExactDate  *time.Time
	FromDate   *time.Time
	ToDate     *time.Time
	DoctorName string
	Status     model.AppointmentStatus
	Pagination model.Pagination
}

// ScheduleSlotRow is a slot joined with its occupant's name for the
// structured schedule view.
type ScheduleSlotRow struct {
	Slot        model.Slot
	PatientName *string
}

// All repository interfaces in one file
type (
	// UserRepository resolves directory identities. Implementations return
	// a NotFound AppError when the id does not resolve.
	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		SearchDoctors(ctx context.Context, name string, p model.Pagination) ([]*model.User, int, error)
	}

	AvailabilityRepository interface {
		// GetForDate returns the first availability window for the
		// doctor/date, or a NotFound AppError.
		GetForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*model.AvailabilityWindow, error)
		ExistsForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error)
		// ReplaceDay deletes the doctor's windows and slots for the date and
		// inserts the replacement set in one transaction.
		ReplaceDay(ctx context.Context, window *model.AvailabilityWindow, slots []*model.Slot) error
		// SaveGenerated inserts windows and slots from one definition call in
		// one transaction. Slot-tuple unique violations surface as Conflict.
		SaveGenerated(ctx context.Context, windows []*model.AvailabilityWindow, slots []*model.Slot) error
	}

	SlotRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Slot, error)
		GetByDoctorAndTime(ctx context.Context, doctorID uuid.UUID, date, start time.Time) (*model.Slot, error)
		Exists(ctx context.Context, doctorID uuid.UUID, date, start, end time.Time) (bool, error)
		Insert(ctx context.Context, slot *model.Slot) error
		ListByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*model.Slot, error)
		ListByDoctorDateAndStatuses(ctx context.Context, doctorID uuid.UUID, date time.Time, statuses []model.SlotStatus) ([]*model.Slot, error)
		ListSchedule(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]ScheduleSlotRow, error)
		// UpdateStatus is a compare-and-set transition: it succeeds only if
		// the slot currently holds one of the `from` statuses, otherwise it
		// returns a Conflict AppError.
		UpdateStatus(ctx context.Context, id uuid.UUID, from []model.SlotStatus, to model.SlotStatus) error
		SetPriority(ctx context.Context, id uuid.UUID, tag, reason string) error
		// BlockRange blocks slots whose start falls in [start, end],
		// optionally cancelling live appointments on them, atomically.
		// Returns the number of slots blocked.
		BlockRange(ctx context.Context, doctorID uuid.UUID, date, start, end time.Time, reason, addedBy string, cancelExisting bool) (int, error)
		// UnblockRange returns BLOCKED slots in the range to AVAILABLE.
		UnblockRange(ctx context.Context, doctorID uuid.UUID, date, start, end time.Time) (int, error)
		// Shift moves every slot of the day by the offset atomically.
		Shift(ctx context.Context, doctorID uuid.UUID, date time.Time, minutes int) (int, error)
	}

	AppointmentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// Book creates the appointment and flips its slot to BOOKED with the
		// patient bound, in one transaction. The slot must currently hold one
		// of `slotFrom`. The optional event rides in the same transaction.
		// Storage unique violations surface as Conflict AppErrors naming the
		// double-booked party.
		Book(ctx context.Context, appt *model.Appointment, slotFrom []model.SlotStatus, event *model.OutboxEvent) error
		// Cancel sets the appointment CANCELLED and returns its slot to
		// AVAILABLE with the patient cleared, in one transaction. It is a
		// compare-and-set from any live status.
		Cancel(ctx context.Context, id uuid.UUID, event *model.OutboxEvent) error
		// Transition moves the appointment from one of `from` to `to` and its
		// slot to `slotTo`, in one transaction.
		Transition(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, slotTo model.SlotStatus, event *model.OutboxEvent) error
		ExistsLiveForDoctor(ctx context.Context, doctorID uuid.UUID, date, slotTime time.Time) (bool, error)
		ExistsLiveForPatient(ctx context.Context, patientID uuid.UUID, date, slotTime time.Time) (bool, error)
		ListByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*model.Appointment, error)
		PageByPatient(ctx context.Context, patientID uuid.UUID, p model.Pagination) ([]*model.Appointment, int, error)
		Search(ctx context.Context, f AppointmentSearch) ([]*model.Appointment, int, error)
	}

	OutboxRepository interface {
		Enqueue(ctx context.Context, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkPublished(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID) error
	}
)

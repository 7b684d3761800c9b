package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/service/servicetest"
	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

type fixture struct {
	store   *servicetest.Store
	svc     *Service
	doctor  *model.User
	patient *model.User
	date    time.Time
	dateStr string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := servicetest.NewStore()
	doctor := store.AddUser(model.User{
		FirstName: "Ravi", LastName: "Menon",
		Role: model.RoleDoctor, Active: true,
	})
	patient := store.AddUser(model.User{
		FirstName: "Maya", LastName: "Iyer",
		Role: model.RolePatient, Active: true,
	})

	// Tomorrow, so past-date validation never interferes.
	date := model.DateOnly(time.Now().AddDate(0, 0, 1))
	for _, start := range []string{"09:00", "09:30", "10:00"} {
		startTime := mustClock(t, start)
		store.AddSlot(model.Slot{
			DoctorID:  doctor.ID,
			Date:      date,
			StartTime: startTime,
			EndTime:   startTime.Add(30 * time.Minute),
			Status:    model.SlotStatusAvailable,
			Type:      model.SlotTypeRegular,
		})
	}

	return &fixture{
		store:   store,
		svc:     NewService(store.Users(), store.Slots(), store.Appointments()),
		doctor:  doctor,
		patient: patient,
		date:    date,
		dateStr: date.Format(model.DateLayout),
	}
}

func (f *fixture) book(t *testing.T, slotTime string) *model.Appointment {
	t.Helper()
	appt, err := f.svc.BookAppointment(context.Background(), &model.BookAppointmentRequest{
		DoctorID:        f.doctor.ID,
		PatientID:       f.patient.ID,
		AppointmentDate: f.dateStr,
		SlotTime:        slotTime,
	})
	require.NoError(t, err)
	return appt
}

func TestBookAppointment(t *testing.T) {
	f := newFixture(t)

	appt := f.book(t, "09:00")
	assert.Equal(t, model.AppointmentStatusBooked, appt.Status)
	assert.Equal(t, model.AppointmentTypeInPerson, appt.Type, "type defaults when omitted")
	require.NotNil(t, appt.SlotID)

	slot := f.store.Slot(*appt.SlotID)
	require.NotNil(t, slot)
	assert.Equal(t, model.SlotStatusBooked, slot.Status)
	require.NotNil(t, slot.PatientID)
	assert.Equal(t, f.patient.ID, *slot.PatientID)

	events := f.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAppointmentBooked, events[0].EventType)
}

func TestBookAppointmentRejectsTakenSlot(t *testing.T) {
	f := newFixture(t)
	f.book(t, "09:00")

	other := f.store.AddUser(model.User{FirstName: "Dev", LastName: "Shah", Role: model.RolePatient, Active: true})
	_, err := f.svc.BookAppointment(context.Background(), &model.BookAppointmentRequest{
		DoctorID:        f.doctor.ID,
		PatientID:       other.ID,
		AppointmentDate: f.dateStr,
		SlotTime:        "09:00",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Contains(t, err.Error(), "not available")
}

// Two callers racing for the same slot: exactly one booking wins, the other
// gets Conflict, and the slot ends BOOKED.
func TestBookAppointmentConcurrentSameSlot(t *testing.T) {
	for i := 0; i < 100; i++ {
		f := newFixture(t)
		other := f.store.AddUser(model.User{
			FirstName: "Arjun", LastName: "Nair",
			Role: model.RolePatient, Active: true,
		})

		errs := make(chan error, 2)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for _, patientID := range []uuid.UUID{f.patient.ID, other.ID} {
			wg.Add(1)
			go func(pid uuid.UUID) {
				defer wg.Done()
				<-start
				_, err := f.svc.BookAppointment(context.Background(), &model.BookAppointmentRequest{
					DoctorID:        f.doctor.ID,
					PatientID:       pid,
					AppointmentDate: f.dateStr,
					SlotTime:        "09:00",
				})
				errs <- err
			}(patientID)
		}
		close(start)
		wg.Wait()
		close(errs)

		var won, lost int
		for err := range errs {
			if err == nil {
				won++
				continue
			}
			require.True(t, apperrors.IsKind(err, apperrors.KindConflict), "loser gets Conflict, got %v", err)
			lost++
		}
		require.Equal(t, 1, won, "exactly one booking wins")
		require.Equal(t, 1, lost)

		slot, err := f.store.Slots().GetByDoctorAndTime(context.Background(), f.doctor.ID, f.date, mustClock(t, "09:00"))
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusBooked, slot.Status)
	}
}

func TestBookAppointmentDoubleBookingChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Second doctor with a slot at the same time.
	doctor2 := f.store.AddUser(model.User{FirstName: "Nisha", LastName: "Pillai", Role: model.RoleDoctor, Active: true})
	start := mustClock(t, "09:00")
	f.store.AddSlot(model.Slot{
		DoctorID:  doctor2.ID,
		Date:      f.date,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    model.SlotStatusAvailable,
		Type:      model.SlotTypeRegular,
	})

	f.book(t, "09:00")

	// Same patient, different doctor, same time.
	_, err := f.svc.BookAppointment(ctx, &model.BookAppointmentRequest{
		DoctorID:        doctor2.ID,
		PatientID:       f.patient.ID,
		AppointmentDate: f.dateStr,
		SlotTime:        "09:00",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Contains(t, err.Error(), "patient already has an appointment")
}

func TestBookAppointmentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BookAppointment(ctx, &model.BookAppointmentRequest{
		DoctorID:        uuid.New(),
		PatientID:       f.patient.ID,
		AppointmentDate: f.dateStr,
		SlotTime:        "09:00",
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = f.svc.BookAppointment(ctx, &model.BookAppointmentRequest{
		DoctorID:        f.patient.ID,
		PatientID:       f.patient.ID,
		AppointmentDate: f.dateStr,
		SlotTime:        "09:00",
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "doctor id must resolve to a doctor")

	yesterday := model.DateOnly(time.Now().AddDate(0, 0, -1)).Format(model.DateLayout)
	_, err = f.svc.BookAppointment(ctx, &model.BookAppointmentRequest{
		DoctorID:        f.doctor.ID,
		PatientID:       f.patient.ID,
		AppointmentDate: yesterday,
		SlotTime:        "09:00",
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "past dates are rejected")

	_, err = f.svc.BookAppointment(ctx, &model.BookAppointmentRequest{
		DoctorID:        f.doctor.ID,
		PatientID:       f.patient.ID,
		AppointmentDate: f.dateStr,
		SlotTime:        "23:45",
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound), "no slot at that time")
}

func TestCancelAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, "09:00")

	require.NoError(t, f.svc.CancelAppointment(ctx, appt.ID))

	stored := f.store.Appointment(appt.ID)
	assert.Equal(t, model.AppointmentStatusCancelled, stored.Status)

	slot := f.store.Slot(*appt.SlotID)
	assert.Equal(t, model.SlotStatusAvailable, slot.Status, "slot is freed")
	assert.Nil(t, slot.PatientID)

	err := f.svc.CancelAppointment(ctx, appt.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Contains(t, err.Error(), "already cancelled")
}

func TestAttendanceTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, "09:00")

	// Completing before arrival is rejected.
	err := f.svc.MarkCompleted(ctx, appt.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	require.NoError(t, f.svc.MarkArrived(ctx, appt.ID))
	assert.Equal(t, model.AppointmentStatusArrived, f.store.Appointment(appt.ID).Status)
	assert.Equal(t, model.SlotStatusArrived, f.store.Slot(*appt.SlotID).Status)

	// Arriving twice is rejected.
	err = f.svc.MarkArrived(ctx, appt.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	require.NoError(t, f.svc.MarkCompleted(ctx, appt.ID))
	assert.Equal(t, model.AppointmentStatusCompleted, f.store.Appointment(appt.ID).Status)
	assert.Equal(t, model.SlotStatusCompleted, f.store.Slot(*appt.SlotID).Status)
}

func TestMarkNoShow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booked := f.book(t, "09:00")
	require.NoError(t, f.svc.MarkNoShow(ctx, booked.ID))
	assert.Equal(t, model.AppointmentStatusNoShow, f.store.Appointment(booked.ID).Status)
	assert.Equal(t, model.SlotStatusNoShow, f.store.Slot(*booked.SlotID).Status)

	arrived := f.book(t, "09:30")
	require.NoError(t, f.svc.MarkArrived(ctx, arrived.ID))
	require.NoError(t, f.svc.MarkNoShow(ctx, arrived.ID))

	// A no-show cannot then complete.
	err := f.svc.MarkCompleted(ctx, arrived.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := f.book(t, "09:00")

	replacement, err := f.svc.Reschedule(ctx, original.ID, &model.RescheduleRequest{
		AppointmentDate: f.dateStr,
		SlotTime:        "10:00",
	})
	require.NoError(t, err)

	require.NotNil(t, replacement.RescheduledFrom)
	assert.Equal(t, original.ID, *replacement.RescheduledFrom)
	assert.Equal(t, f.doctor.ID, replacement.DoctorID, "doctor falls back to the original")
	assert.Equal(t, original.Type, replacement.Type, "type falls back to the original")
	assert.Equal(t, model.AppointmentStatusBooked, replacement.Status)

	assert.Equal(t, model.AppointmentStatusCancelled, f.store.Appointment(original.ID).Status)
	assert.Equal(t, model.SlotStatusAvailable, f.store.Slot(*original.SlotID).Status, "old slot is freed")
	assert.Equal(t, model.SlotStatusBooked, f.store.Slot(*replacement.SlotID).Status)
}

func TestRescheduleRejectsTerminalStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := f.book(t, "09:00")
	require.NoError(t, f.svc.CancelAppointment(ctx, appt.ID))

	_, err := f.svc.Reschedule(ctx, appt.ID, &model.RescheduleRequest{
		AppointmentDate: f.dateStr,
		SlotTime:        "10:00",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Contains(t, err.Error(), "CANCELLED")

	done := f.book(t, "09:30")
	require.NoError(t, f.svc.MarkArrived(ctx, done.ID))
	require.NoError(t, f.svc.MarkCompleted(ctx, done.ID))

	_, err = f.svc.Reschedule(ctx, done.ID, &model.RescheduleRequest{
		AppointmentDate: f.dateStr,
		SlotTime:        "10:00",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COMPLETED")
}

func TestRescheduleToDifferentDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doctor2 := f.store.AddUser(model.User{FirstName: "Nisha", LastName: "Pillai", Role: model.RoleDoctor, Active: true})
	start := mustClock(t, "11:00")
	f.store.AddSlot(model.Slot{
		DoctorID:  doctor2.ID,
		Date:      f.date,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    model.SlotStatusAvailable,
		Type:      model.SlotTypeRegular,
	})

	original := f.book(t, "09:00")
	followUp := model.AppointmentTypeFollowUp
	replacement, err := f.svc.Reschedule(ctx, original.ID, &model.RescheduleRequest{
		DoctorID:        &doctor2.ID,
		AppointmentDate: f.dateStr,
		SlotTime:        "11:00",
		AppointmentType: &followUp,
	})
	require.NoError(t, err)
	assert.Equal(t, doctor2.ID, replacement.DoctorID)
	assert.Equal(t, model.AppointmentTypeFollowUp, replacement.Type)
	assert.Equal(t, f.patient.ID, replacement.PatientID, "patient never changes on reschedule")
}

func TestBookWalkIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := mustClock(t, "12:00")
	walkIn := f.store.AddSlot(model.Slot{
		DoctorID:  f.doctor.ID,
		Date:      f.date,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    model.SlotStatusWalkIn,
		Type:      model.SlotTypeWalkIn,
	})

	appt, err := f.svc.BookWalkIn(ctx, &model.WalkInBookingRequest{
		DoctorID:  f.doctor.ID,
		PatientID: f.patient.ID,
		Date:      f.dateStr,
		Time:      "12:00",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentTypeWalkIn, appt.Type)
	assert.Equal(t, model.SlotStatusBooked, f.store.Slot(walkIn.ID).Status)

	// A blocked slot cannot take a walk-in.
	blockedStart := mustClock(t, "13:00")
	f.store.AddSlot(model.Slot{
		DoctorID:  f.doctor.ID,
		Date:      f.date,
		StartTime: blockedStart,
		EndTime:   blockedStart.Add(30 * time.Minute),
		Status:    model.SlotStatusBlocked,
		Type:      model.SlotTypeRegular,
	})
	other := f.store.AddUser(model.User{FirstName: "Dev", LastName: "Shah", Role: model.RolePatient, Active: true})
	_, err = f.svc.BookWalkIn(ctx, &model.WalkInBookingRequest{
		DoctorID:  f.doctor.ID,
		PatientID: other.ID,
		Date:      f.dateStr,
		Time:      "13:00",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestAssignWalkInPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := mustClock(t, "12:00")
	slot := f.store.AddSlot(model.Slot{
		DoctorID:  f.doctor.ID,
		Date:      f.date,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    model.SlotStatusWalkIn,
		Type:      model.SlotTypeWalkIn,
	})

	updated, err := f.svc.AssignWalkInPriority(ctx, slot.ID, &model.WalkInPriorityRequest{
		PriorityTag: "URGENT",
		Reason:      "chest pain",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.PriorityTag)
	assert.Equal(t, "URGENT", *updated.PriorityTag)
	assert.Equal(t, model.SlotStatusWalkIn, updated.Status, "status is untouched")

	_, err = f.svc.AssignWalkInPriority(ctx, uuid.New(), &model.WalkInPriorityRequest{PriorityTag: "URGENT"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func mustClock(t *testing.T, s string) time.Time {
	t.Helper()
	c, err := model.ParseTimeOfDay(s)
	require.NoError(t, err)
	return c
}

package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/service/servicetest"
	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

func newTestService(store *servicetest.Store) *Service {
	return NewService(store.Users(), store.Availability(), store.Slots(), model.DefaultPermissionMatrix())
}

func seedDoctor(store *servicetest.Store) *model.User {
	return store.AddUser(model.User{
		FirstName: "Asha",
		LastName:  "Rao",
		Email:     "asha.rao@example.com",
		Role:      model.RoleDoctor,
		Active:    true,
	})
}

func TestDefineAvailabilityDateWise(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := seedDoctor(store)

	err := svc.DefineAvailability(context.Background(), model.RoleAdmin, doctor.ID, &model.DefineAvailabilityRequest{
		SlotDurationInMinutes: 30,
		DateWiseAvailability: map[string][]model.TimeRange{
			"2026-09-07": {
				{Start: "09:00", End: "11:00"},
				{Start: "14:00", End: "15:00"},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, store.WindowCount())
	assert.Equal(t, 6, store.SlotCount(), "four morning slots plus two afternoon slots")

	slots, err := store.Slots().ListByDoctorAndDate(context.Background(), doctor.ID, mustDate(t, "2026-09-07"))
	require.NoError(t, err)
	require.Len(t, slots, 6)
	assert.Equal(t, "09:00", model.FormatTimeOfDay(slots[0].StartTime))
	assert.Equal(t, model.SlotStatusAvailable, slots[0].Status)
	assert.Equal(t, model.SlotTypeRegular, slots[0].Type)
	assert.NotNil(t, slots[0].AvailabilityID)
}

func TestDefineAvailabilityWeekly(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := seedDoctor(store)

	err := svc.DefineAvailability(context.Background(), model.RoleDoctor, doctor.ID, &model.DefineAvailabilityRequest{
		SlotDurationInMinutes: 60,
		WeeklyAvailability: map[string][]model.TimeRange{
			"MONDAY": {{Start: "10:00", End: "12:00"}},
		},
	})
	require.NoError(t, err)

	// Four Mondays, one window each, two one-hour slots per window.
	assert.Equal(t, 4, store.WindowCount())
	assert.Equal(t, 8, store.SlotCount())
}

func TestDefineAvailabilityValidation(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := seedDoctor(store)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *model.DefineAvailabilityRequest
		kind apperrors.Kind
	}{
		{
			name: "duration too large",
			req: &model.DefineAvailabilityRequest{
				SlotDurationInMinutes: 241,
				DateWiseAvailability:  map[string][]model.TimeRange{"2026-09-07": {{Start: "09:00", End: "10:00"}}},
			},
			kind: apperrors.KindValidation,
		},
		{
			name: "duration zero",
			req: &model.DefineAvailabilityRequest{
				SlotDurationInMinutes: 0,
				DateWiseAvailability:  map[string][]model.TimeRange{"2026-09-07": {{Start: "09:00", End: "10:00"}}},
			},
			kind: apperrors.KindValidation,
		},
		{
			name: "no availability provided",
			req:  &model.DefineAvailabilityRequest{SlotDurationInMinutes: 30},
			kind: apperrors.KindValidation,
		},
		{
			name: "end before start",
			req: &model.DefineAvailabilityRequest{
				SlotDurationInMinutes: 30,
				DateWiseAvailability:  map[string][]model.TimeRange{"2026-09-07": {{Start: "11:00", End: "09:00"}}},
			},
			kind: apperrors.KindValidation,
		},
		{
			name: "unknown weekday",
			req: &model.DefineAvailabilityRequest{
				SlotDurationInMinutes: 30,
				WeeklyAvailability:    map[string][]model.TimeRange{"SOMEDAY": {{Start: "09:00", End: "10:00"}}},
			},
			kind: apperrors.KindValidation,
		},
		{
			name: "overlapping ranges on one date",
			req: &model.DefineAvailabilityRequest{
				SlotDurationInMinutes: 30,
				DateWiseAvailability: map[string][]model.TimeRange{
					"2026-09-07": {
						{Start: "09:00", End: "11:00"},
						{Start: "10:30", End: "12:00"},
					},
				},
			},
			kind: apperrors.KindConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.DefineAvailability(ctx, model.RoleAdmin, doctor.ID, tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, tt.kind), "got %v", err)
			assert.Equal(t, 0, store.SlotCount(), "nothing may be written on failure")
		})
	}
}

func TestDefineAvailabilityBackToBackRangesAllowed(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := seedDoctor(store)

	// [09:00,11:00) and [11:00,13:00) share only the boundary instant.
	err := svc.DefineAvailability(context.Background(), model.RoleAdmin, doctor.ID, &model.DefineAvailabilityRequest{
		SlotDurationInMinutes: 60,
		DateWiseAvailability: map[string][]model.TimeRange{
			"2026-09-07": {
				{Start: "09:00", End: "11:00"},
				{Start: "11:00", End: "13:00"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, store.SlotCount())
}

func TestDefineAvailabilityRejectsExistingSlot(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := seedDoctor(store)

	store.AddSlot(model.Slot{
		DoctorID:  doctor.ID,
		Date:      mustDate(t, "2026-09-07"),
		StartTime: mustClock(t, "09:00"),
		EndTime:   mustClock(t, "09:30"),
		Status:    model.SlotStatusAvailable,
		Type:      model.SlotTypeRegular,
	})

	err := svc.DefineAvailability(context.Background(), model.RoleAdmin, doctor.ID, &model.DefineAvailabilityRequest{
		SlotDurationInMinutes: 30,
		DateWiseAvailability:  map[string][]model.TimeRange{"2026-09-07": {{Start: "09:00", End: "10:00"}}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Equal(t, 1, store.SlotCount(), "only the pre-existing slot remains")
}

func TestDefineAvailabilityActorChecks(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := seedDoctor(store)
	patient := store.AddUser(model.User{Role: model.RolePatient, Active: true})

	req := &model.DefineAvailabilityRequest{
		SlotDurationInMinutes: 30,
		DateWiseAvailability:  map[string][]model.TimeRange{"2026-09-07": {{Start: "09:00", End: "10:00"}}},
	}

	err := svc.DefineAvailability(context.Background(), model.RolePatient, doctor.ID, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	err = svc.DefineAvailability(context.Background(), model.RoleAdmin, patient.ID, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "target must hold the doctor role")

	err = svc.DefineAvailability(context.Background(), model.RoleAdmin, uuid.New(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestCreateDayAvailability(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := seedDoctor(store)
	ctx := context.Background()

	req := &model.DayAvailabilityRequest{
		Date:                  "2026-09-08",
		StartTime:             "09:00",
		EndTime:               "12:00",
		SlotDurationInMinutes: 30,
	}
	require.NoError(t, svc.CreateDayAvailability(ctx, model.RoleAdmin, doctor.ID, req))
	assert.Equal(t, 6, store.SlotCount())

	err := svc.CreateDayAvailability(ctx, model.RoleAdmin, doctor.ID, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestReplaceDayAvailability(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := seedDoctor(store)
	ctx := context.Background()

	require.NoError(t, svc.CreateDayAvailability(ctx, model.RoleAdmin, doctor.ID, &model.DayAvailabilityRequest{
		Date:                  "2026-09-08",
		StartTime:             "09:00",
		EndTime:               "12:00",
		SlotDurationInMinutes: 30,
	}))
	require.Equal(t, 6, store.SlotCount())

	require.NoError(t, svc.ReplaceDayAvailability(ctx, model.RoleAdmin, doctor.ID, &model.DayAvailabilityRequest{
		Date:                  "2026-09-08",
		StartTime:             "10:00",
		EndTime:               "12:00",
		SlotDurationInMinutes: 60,
	}))
	assert.Equal(t, 2, store.SlotCount(), "old grid is replaced, not merged")
	assert.Equal(t, 1, store.WindowCount())
}

func TestAddEmergencySlot(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := seedDoctor(store)
	ctx := context.Background()

	window := store.AddWindow(model.AvailabilityWindow{
		DoctorID:     doctor.ID,
		Date:         mustDate(t, "2026-09-09"),
		StartTime:    mustClock(t, "09:00"),
		EndTime:      mustClock(t, "17:00"),
		SlotDuration: 30,
	})

	slot, err := svc.AddEmergencySlot(ctx, &model.EmergencySlotRequest{
		DoctorID:  doctor.ID,
		Date:      "2026-09-09",
		StartTime: "17:00",
		EndTime:   "17:20",
		Status:    model.SlotStatusReserved,
		AddedBy:   "frontdesk",
		Reason:    "post-surgery review",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SlotTypeAdditional, slot.Type)
	assert.Equal(t, model.SlotStatusReserved, slot.Status)
	require.NotNil(t, slot.AvailabilityID)
	assert.Equal(t, window.ID, *slot.AvailabilityID)

	// Same time again is a duplicate.
	_, err = svc.AddEmergencySlot(ctx, &model.EmergencySlotRequest{
		DoctorID:  doctor.ID,
		Date:      "2026-09-09",
		StartTime: "17:00",
		EndTime:   "17:20",
		Status:    model.SlotStatusReserved,
		AddedBy:   "frontdesk",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	// No declared availability for the date.
	_, err = svc.AddEmergencySlot(ctx, &model.EmergencySlotRequest{
		DoctorID:  doctor.ID,
		Date:      "2026-09-10",
		StartTime: "09:00",
		EndTime:   "09:20",
		Status:    model.SlotStatusReserved,
		AddedBy:   "frontdesk",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestBlockAndUnblockSlots(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := seedDoctor(store)
	ctx := context.Background()

	date := mustDate(t, "2026-09-10")
	for _, start := range []string{"09:00", "09:30", "10:00", "10:30"} {
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

	blocked, err := svc.BlockSlots(ctx, doctor.ID, &model.BlockSlotsRequest{
		Date:      "2026-09-10",
		StartTime: "09:00",
		EndTime:   "10:00",
		Reason:    "staff meeting",
		AddedBy:   "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, blocked)

	slots, err := store.Slots().ListByDoctorAndDate(ctx, doctor.ID, date)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusBlocked, slots[0].Status)
	assert.Equal(t, model.SlotStatusBlocked, slots[1].Status)
	assert.Equal(t, model.SlotStatusAvailable, slots[2].Status, "slot starting at the range end stays open")

	unblocked, err := svc.UnblockSlots(ctx, doctor.ID, &model.UnblockSlotsRequest{
		Date:      "2026-09-10",
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, unblocked)

	slots, err = store.Slots().ListByDoctorAndDate(ctx, doctor.ID, date)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusAvailable, slots[0].Status)
}

func TestShiftSlots(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := seedDoctor(store)
	ctx := context.Background()

	date := mustDate(t, "2026-09-11")
	start := mustClock(t, "09:00")
	store.AddSlot(model.Slot{
		DoctorID:  doctor.ID,
		Date:      date,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    model.SlotStatusAvailable,
		Type:      model.SlotTypeRegular,
	})

	shifted, err := svc.ShiftSlots(ctx, doctor.ID, &model.ShiftSlotsRequest{Date: "2026-09-11", ShiftByMinutes: 15})
	require.NoError(t, err)
	assert.Equal(t, 1, shifted)

	slots, err := store.Slots().ListByDoctorAndDate(ctx, doctor.ID, date)
	require.NoError(t, err)
	assert.Equal(t, "09:15", model.FormatTimeOfDay(slots[0].StartTime))
	assert.Equal(t, "09:45", model.FormatTimeOfDay(slots[0].EndTime))

	_, err = svc.ShiftSlots(ctx, doctor.ID, &model.ShiftSlotsRequest{Date: "2026-09-11", ShiftByMinutes: 0})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func mustClock(t *testing.T, s string) time.Time {
	t.Helper()
	c, err := model.ParseTimeOfDay(s)
	require.NoError(t, err)
	return c
}

package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/service/servicetest"
	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

// fixedNow pins the search clock so range keywords resolve predictably.
var fixedNow = time.Date(2026, time.September, 15, 10, 30, 0, 0, time.UTC)

func newTestService(store *servicetest.Store) *Service {
	svc := NewService(store.Users(), store.Slots(), store.Appointments())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func addSlot(store *servicetest.Store, doctor *model.User, date time.Time, start string, status model.SlotStatus) *model.Slot {
	st, _ := model.ParseTimeOfDay(start)
	return store.AddSlot(model.Slot{
		DoctorID:  doctor.ID,
		Date:      date,
		StartTime: st,
		EndTime:   st.Add(30 * time.Minute),
		Status:    status,
		Type:      model.SlotTypeRegular,
	})
}

func TestAvailableSlots(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := store.AddUser(model.User{FirstName: "Asha", LastName: "Rao", Role: model.RoleDoctor, Active: true})
	date := mustDate(t, "2026-09-15")

	addSlot(store, doctor, date, "09:00", model.SlotStatusAvailable)
	addSlot(store, doctor, date, "09:30", model.SlotStatusBooked)
	addSlot(store, doctor, date, "10:00", model.SlotStatusWalkIn)
	addSlot(store, doctor, date, "10:30", model.SlotStatusBlocked)

	views, err := svc.AvailableSlots(context.Background(), doctor.ID, date)
	require.NoError(t, err)
	require.Len(t, views, 2, "only AVAILABLE and WALKIN slots are open")
	assert.Equal(t, "09:00", views[0].StartTime)
	assert.Equal(t, "10:00", views[1].StartTime)
	assert.Equal(t, model.SlotStatusAvailable.Color(), views[0].Color)
}

func TestSlotBoard(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := store.AddUser(model.User{FirstName: "Asha", LastName: "Rao", Role: model.RoleDoctor, Active: true})
	date := mustDate(t, "2026-09-15")

	addSlot(store, doctor, date, "09:00", model.SlotStatusBooked)
	addSlot(store, doctor, date, "09:30", model.SlotStatusBlocked)

	views, err := svc.SlotBoard(context.Background(), doctor.ID, date)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, model.SlotStatusBooked, views[0].Status)
	assert.NotEmpty(t, views[0].Color)
	assert.Equal(t, "09:30", views[1].StartTime)
	assert.Equal(t, "10:00", views[1].EndTime)
}

func TestSearchAppointmentsRangeKeywords(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := store.AddUser(model.User{FirstName: "Ravi", LastName: "Menon", Role: model.RoleDoctor, Active: true})
	patient := store.AddUser(model.User{FirstName: "Maya", LastName: "Iyer", Role: model.RolePatient, Active: true})

	add := func(date string) {
		d := mustDate(t, date)
		st, _ := model.ParseTimeOfDay("09:00")
		store.AddAppointment(model.Appointment{
			DoctorID:  doctor.ID,
			PatientID: patient.ID,
			Date:      d,
			SlotTime:  st,
			Type:      model.AppointmentTypeInPerson,
			Status:    model.AppointmentStatusBooked,
		})
	}
	add("2026-09-15") // today
	add("2026-09-16") // tomorrow
	add("2026-09-14") // yesterday
	add("2026-09-10") // inside the trailing week
	add("2026-09-01") // start of month, outside the week window
	add("2026-08-28") // previous month

	ctx := context.Background()
	cases := []struct {
		keyword string
		want    int
	}{
		{RangeToday, 1},
		{RangePrev, 1},
		{RangeNext, 1},
		{RangeDay, 1},
		{RangeWeek, 3},
		{RangeMonth, 4},
	}
	for _, tc := range cases {
		t.Run(tc.keyword, func(t *testing.T) {
			page, err := svc.SearchAppointments(ctx, model.AppointmentFilters{Range: tc.keyword})
			require.NoError(t, err)
			assert.Equal(t, tc.want, page.Total)
		})
	}

	_, err := svc.SearchAppointments(ctx, model.AppointmentFilters{Range: "FORTNIGHT"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestSearchAppointmentsByDoctorNameAndStatus(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	menon := store.AddUser(model.User{FirstName: "Ravi", LastName: "Menon", Role: model.RoleDoctor, Active: true})
	pillai := store.AddUser(model.User{FirstName: "Nisha", LastName: "Pillai", Role: model.RoleDoctor, Active: true})
	patient := store.AddUser(model.User{FirstName: "Maya", LastName: "Iyer", Role: model.RolePatient, Active: true})

	d := mustDate(t, "2026-09-15")
	st, _ := model.ParseTimeOfDay("09:00")
	store.AddAppointment(model.Appointment{
		DoctorID: menon.ID, PatientID: patient.ID,
		Date: d, SlotTime: st,
		Type: model.AppointmentTypeInPerson, Status: model.AppointmentStatusBooked,
	})
	st2, _ := model.ParseTimeOfDay("10:00")
	store.AddAppointment(model.Appointment{
		DoctorID: pillai.ID, PatientID: patient.ID,
		Date: d, SlotTime: st2,
		Type: model.AppointmentTypeInPerson, Status: model.AppointmentStatusCancelled,
	})

	ctx := context.Background()

	page, err := svc.SearchAppointments(ctx, model.AppointmentFilters{DoctorName: "menon"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total, "doctor name match is case-insensitive substring")
	assert.Equal(t, menon.ID, page.Items[0].DoctorID)

	page, err = svc.SearchAppointments(ctx, model.AppointmentFilters{Status: model.AppointmentStatusCancelled})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, pillai.ID, page.Items[0].DoctorID)

	_, err = svc.SearchAppointments(ctx, model.AppointmentFilters{Status: "MAYBE"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestPatientAppointmentsPaging(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := store.AddUser(model.User{FirstName: "Ravi", LastName: "Menon", Role: model.RoleDoctor, Active: true})
	patient := store.AddUser(model.User{FirstName: "Maya", LastName: "Iyer", Role: model.RolePatient, Active: true})

	st, _ := model.ParseTimeOfDay("09:00")
	for day := 1; day <= 5; day++ {
		store.AddAppointment(model.Appointment{
			DoctorID: doctor.ID, PatientID: patient.ID,
			Date:     time.Date(2026, time.September, day, 0, 0, 0, 0, time.UTC),
			SlotTime: st,
			Type:     model.AppointmentTypeInPerson, Status: model.AppointmentStatusCompleted,
		})
	}

	page, err := svc.PatientAppointments(context.Background(), patient.ID, model.Pagination{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 5, page.Items[0].Date.Day(), "most recent first")

	page, err = svc.PatientAppointments(context.Background(), patient.ID, model.Pagination{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Items[0].Date.Day())
}

func TestDoctorSchedulesGroupsByHour(t *testing.T) {
	store := servicetest.NewStore()
	svc := newTestService(store)
	doctor := store.AddUser(model.User{FirstName: "Asha", LastName: "Rao", Role: model.RoleDoctor, Active: true})
	patient := store.AddUser(model.User{FirstName: "Maya", LastName: "Iyer", Role: model.RolePatient, Active: true})
	date := mustDate(t, "2026-09-15")

	addSlot(store, doctor, date, "09:00", model.SlotStatusAvailable)
	booked := addSlot(store, doctor, date, "09:30", model.SlotStatusBooked)
	addSlot(store, doctor, date, "13:00", model.SlotStatusLunchBreak)

	// Bind the patient to the booked slot so the board shows the name.
	store.BindPatient(booked.ID, patient.ID)

	page, err := svc.DoctorSchedules(context.Background(), "rao", date, model.Pagination{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	sched := page.Items[0]
	assert.Equal(t, "Asha Rao", sched.Name)

	require.Len(t, sched.TimeSlots, 2)
	nine := sched.TimeSlots[0]
	assert.Equal(t, "09:00", nine.TimeLabel)
	require.Len(t, nine.Slots, 2)
	assert.Equal(t, "09:30", nine.Slots[1].Time)
	require.NotNil(t, nine.Slots[1].PatientName)
	assert.Equal(t, "Maya Iyer", *nine.Slots[1].PatientName)

	lunch := sched.TimeSlots[1]
	assert.Equal(t, "13:00", lunch.TimeLabel)
	require.Len(t, lunch.Slots, 1)
	require.NotNil(t, lunch.Slots[0].PatientName)
	assert.Equal(t, "Lunch Break", *lunch.Slots[0].PatientName)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

// Package schedule implements the read side: open-slot listings, filtered
// appointment search and the structured front-desk schedule board.
package schedule

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/repository"
	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

// Range keywords accepted by the appointment search filter.
const (
	RangeToday = "TODAY"
	RangePrev  = "PREV"
	RangeNext  = "NEXT"
	RangeDay   = "DAY"
	RangeWeek  = "WEEK"
	RangeMonth = "MONTH"
)

// lunchBreakLabel replaces the patient name on break slots in the
// structured schedule.
const lunchBreakLabel = "Lunch Break"

type Service struct {
	users        repository.UserRepository
	slots        repository.SlotRepository
	appointments repository.AppointmentRepository

	// now is swappable for tests.
	now func() time.Time
}

func NewService(
	users repository.UserRepository,
	slots repository.SlotRepository,
	appointments repository.AppointmentRepository,
) *Service {
	return &Service{
		users:        users,
		slots:        slots,
		appointments: appointments,
		now:          time.Now,
	}
}

// AvailableSlots lists a doctor's open slots for one date as status-board
// rows. Walk-in slots count as open.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]model.SlotStatusView, error) {
	slots, err := s.slots.ListByDoctorDateAndStatuses(ctx, doctorID, date,
		[]model.SlotStatus{model.SlotStatusAvailable, model.SlotStatusWalkIn})
	if err != nil {
		return nil, err
	}
	views := make([]model.SlotStatusView, 0, len(slots))
	for _, sl := range slots {
		views = append(views, slotView(sl))
	}
	return views, nil
}

// SlotBoard lists every slot of a doctor's day with its display colour.
func (s *Service) SlotBoard(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]model.SlotStatusView, error) {
	slots, err := s.slots.ListByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	views := make([]model.SlotStatusView, 0, len(slots))
	for _, sl := range slots {
		views = append(views, slotView(sl))
	}
	return views, nil
}

func slotView(sl *model.Slot) model.SlotStatusView {
	return model.SlotStatusView{
		StartTime: model.FormatTimeOfDay(sl.StartTime),
		EndTime:   model.FormatTimeOfDay(sl.EndTime),
		Status:    sl.Status,
		Type:      sl.Type,
		Color:     sl.Status.Color(),
	}
}

// DoctorAppointments lists a doctor's appointments for one date.
func (s *Service) DoctorAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*model.Appointment, error) {
	return s.appointments.ListByDoctorAndDate(ctx, doctorID, date)
}

// PatientAppointments pages a patient's history, most recent first.
func (s *Service) PatientAppointments(ctx context.Context, patientID uuid.UUID, p model.Pagination) (*model.AppointmentPage, error) {
	p.Normalize()
	items, total, err := s.appointments.PageByPatient(ctx, patientID, p)
	if err != nil {
		return nil, err
	}
	return &model.AppointmentPage{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

// SearchAppointments resolves range keywords to concrete dates and runs the
// paged search.
func (s *Service) SearchAppointments(ctx context.Context, f model.AppointmentFilters) (*model.AppointmentPage, error) {
	search := repository.AppointmentSearch{
		DoctorName: f.DoctorName,
		Status:     f.Status,
		Pagination: f.Pagination,
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.Validationf("unknown appointment status: %s", f.Status)
	}
	search.Pagination.Normalize()

	switch {
	case f.Date != nil:
		d := model.DateOnly(*f.Date)
		search.ExactDate = &d
	case f.Range != "":
		from, to, exact, err := s.resolveRange(f.Range)
		if err != nil {
			return nil, err
		}
		search.FromDate, search.ToDate, search.ExactDate = from, to, exact
	}

	items, total, err := s.appointments.Search(ctx, search)
	if err != nil {
		return nil, err
	}
	return &model.AppointmentPage{
		Items:    items,
		Total:    total,
		Page:     search.Pagination.Page,
		PageSize: search.Pagination.PageSize,
	}, nil
}

// resolveRange maps a range keyword to dates relative to today. WEEK is the
// trailing seven days including today; MONTH is month-to-date.
func (s *Service) resolveRange(keyword string) (from, to, exact *time.Time, err error) {
	today := model.DateOnly(s.now())
	switch strings.ToUpper(keyword) {
	case RangeToday:
		return nil, nil, &today, nil
	case RangePrev:
		yesterday := today.AddDate(0, 0, -1)
		return nil, nil, &yesterday, nil
	case RangeNext, RangeDay:
		tomorrow := today.AddDate(0, 0, 1)
		return nil, nil, &tomorrow, nil
	case RangeWeek:
		start := today.AddDate(0, 0, -6)
		return &start, &today, nil, nil
	case RangeMonth:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return &start, &today, nil, nil
	default:
		return nil, nil, nil, apperrors.Validationf("unknown range keyword: %s", keyword)
	}
}

// DoctorSchedules builds the structured front-desk view: a page of doctors
// matched by name, each with the date's slots bucketed by hour.
func (s *Service) DoctorSchedules(ctx context.Context, name string, date time.Time, p model.Pagination) (*model.DoctorSchedulePage, error) {
	p.Normalize()
	doctors, total, err := s.users.SearchDoctors(ctx, name, p)
	if err != nil {
		return nil, err
	}

	items := make([]model.DoctorSchedule, 0, len(doctors))
	for _, doctor := range doctors {
		rows, err := s.slots.ListSchedule(ctx, doctor.ID, date)
		if err != nil {
			return nil, err
		}
		items = append(items, model.DoctorSchedule{
			DoctorID:  doctor.ID,
			Name:      doctor.FullName(),
			TimeSlots: groupByHour(rows),
		})
	}
	return &model.DoctorSchedulePage{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

// groupByHour buckets slots by start hour preserving time order. Break
// slots carry a synthetic label instead of a patient name.
func groupByHour(rows []repository.ScheduleSlotRow) []model.HourlySlotGroup {
	var groups []model.HourlySlotGroup
	index := map[string]int{}
	for _, row := range rows {
		label := row.Slot.StartTime.Format("15") + ":00"
		slot := model.ScheduleSlot{
			Time:   model.FormatTimeOfDay(row.Slot.StartTime),
			Status: row.Slot.Status,
		}
		if row.Slot.Status == model.SlotStatusLunchBreak {
			name := lunchBreakLabel
			slot.PatientName = &name
		} else {
			slot.PatientName = row.PatientName
		}

		i, ok := index[label]
		if !ok {
			groups = append(groups, model.HourlySlotGroup{TimeLabel: label})
			i = len(groups) - 1
			index[label] = i
		}
		groups[i].Slots = append(groups[i].Slots, slot)
	}
	return groups
}

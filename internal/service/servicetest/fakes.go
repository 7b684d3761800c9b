// Package servicetest provides in-memory repository implementations for
// service tests. The fakes honor the same compare-and-set and uniqueness
// contracts as the SQL layer so concurrency-sensitive tests run without a
// database.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/repository"
	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

// Store is a shared in-memory backing store. One Store hands out all
// repository fakes so cross-repository operations see the same data.
type Store struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*model.User
	windows      map[uuid.UUID]*model.AvailabilityWindow
	slots        map[uuid.UUID]*model.Slot
	appointments map[uuid.UUID]*model.Appointment
	events       []*model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		users:        map[uuid.UUID]*model.User{},
		windows:      map[uuid.UUID]*model.AvailabilityWindow{},
		slots:        map[uuid.UUID]*model.Slot{},
		appointments: map[uuid.UUID]*model.Appointment{},
	}
}

func (s *Store) Users() repository.UserRepository                 { return &userRepo{s} }
func (s *Store) Availability() repository.AvailabilityRepository  { return &availabilityRepo{s} }
func (s *Store) Slots() repository.SlotRepository                 { return &slotRepo{s} }
func (s *Store) Appointments() repository.AppointmentRepository   { return &appointmentRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return &outboxRepo{s} }

// Seed helpers. They take value copies so tests cannot alias store state.

func (s *Store) AddUser(u model.User) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = &u
	return &u
}

func (s *Store) AddSlot(sl model.Slot) *model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl.ID == uuid.Nil {
		sl.ID = uuid.New()
	}
	s.slots[sl.ID] = &sl
	return &sl
}

func (s *Store) AddWindow(w model.AvailabilityWindow) *model.AvailabilityWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	s.windows[w.ID] = &w
	return &w
}

func (s *Store) AddAppointment(a model.Appointment) *model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.appointments[a.ID] = &a
	return &a
}

// BindPatient attaches a patient to a seeded slot.
func (s *Store) BindPatient(slotID, patientID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[slotID]; ok {
		id := patientID
		sl.PatientID = &id
	}
}

// Snapshot accessors for assertions.

func (s *Store) Slot(id uuid.UUID) *model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[id]; ok {
		cp := *sl
		return &cp
	}
	return nil
}

func (s *Store) Appointment(id uuid.UUID) *model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.appointments[id]; ok {
		cp := *a
		return &cp
	}
	return nil
}

func (s *Store) SlotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

func (s *Store) WindowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *Store) Events() []*model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.OutboxEvent, len(s.events))
	copy(out, s.events)
	return out
}

func sameDate(a, b time.Time) bool {
	return a.Format(model.DateLayout) == b.Format(model.DateLayout)
}

func sameClock(a, b time.Time) bool {
	return a.Format(model.TimeLayout) == b.Format(model.TimeLayout)
}

type userRepo struct{ s *Store }

func (r *userRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) SearchDoctors(_ context.Context, name string, p model.Pagination) ([]*model.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.Normalize()
	var matched []*model.User
	needle := strings.ToLower(name)
	for _, u := range r.s.users {
		if u.Role != model.RoleDoctor || !u.Active {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(u.FullName()), needle) {
			continue
		}
		cp := *u
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].FullName() < matched[j].FullName() })
	total := len(matched)
	return page(matched, p), total, nil
}

type availabilityRepo struct{ s *Store }

func (r *availabilityRepo) GetForDate(_ context.Context, doctorID uuid.UUID, date time.Time) (*model.AvailabilityWindow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *model.AvailabilityWindow
	for _, w := range r.s.windows {
		if w.DoctorID != doctorID || !sameDate(w.Date, date) {
			continue
		}
		if found == nil || w.StartTime.Before(found.StartTime) {
			found = w
		}
	}
	if found == nil {
		return nil, apperrors.NotFound("availability")
	}
	cp := *found
	return &cp, nil
}

func (r *availabilityRepo) ExistsForDate(_ context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.windows {
		if w.DoctorID == doctorID && sameDate(w.Date, date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *availabilityRepo) ReplaceDay(_ context.Context, window *model.AvailabilityWindow, slots []*model.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, w := range r.s.windows {
		if w.DoctorID == window.DoctorID && sameDate(w.Date, window.Date) {
			delete(r.s.windows, id)
		}
	}
	for id, sl := range r.s.slots {
		if sl.DoctorID == window.DoctorID && sameDate(sl.Date, window.Date) {
			delete(r.s.slots, id)
		}
	}
	r.s.insertWindowLocked(window)
	return r.s.insertSlotsLocked(slots)
}

func (r *availabilityRepo) SaveGenerated(_ context.Context, windows []*model.AvailabilityWindow, slots []*model.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkSlotTuplesLocked(slots); err != nil {
		return err
	}
	for _, w := range windows {
		r.s.insertWindowLocked(w)
	}
	return r.s.insertSlotsLocked(slots)
}

func (s *Store) insertWindowLocked(w *model.AvailabilityWindow) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	cp := *w
	s.windows[w.ID] = &cp
}

func (s *Store) checkSlotTuplesLocked(slots []*model.Slot) error {
	for _, sl := range slots {
		if s.findSlotLocked(sl.DoctorID, sl.Date, sl.StartTime, sl.EndTime) != nil {
			return apperrors.Conflict("slot with given time already exists")
		}
	}
	return nil
}

func (s *Store) insertSlotsLocked(slots []*model.Slot) error {
	if err := s.checkSlotTuplesLocked(slots); err != nil {
		return err
	}
	for _, sl := range slots {
		if sl.ID == uuid.Nil {
			sl.ID = uuid.New()
		}
		cp := *sl
		s.slots[sl.ID] = &cp
	}
	return nil
}

func (s *Store) findSlotLocked(doctorID uuid.UUID, date, start, end time.Time) *model.Slot {
	for _, sl := range s.slots {
		if sl.DoctorID == doctorID && sameDate(sl.Date, date) &&
			sameClock(sl.StartTime, start) && sameClock(sl.EndTime, end) {
			return sl
		}
	}
	return nil
}

type slotRepo struct{ s *Store }

func (r *slotRepo) Get(_ context.Context, id uuid.UUID) (*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sl, ok := r.s.slots[id]
	if !ok {
		return nil, apperrors.NotFound("slot")
	}
	cp := *sl
	return &cp, nil
}

func (r *slotRepo) GetByDoctorAndTime(_ context.Context, doctorID uuid.UUID, date, start time.Time) (*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sl := range r.s.slots {
		if sl.DoctorID == doctorID && sameDate(sl.Date, date) && sameClock(sl.StartTime, start) {
			cp := *sl
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("slot")
}

func (r *slotRepo) Exists(_ context.Context, doctorID uuid.UUID, date, start, end time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.findSlotLocked(doctorID, date, start, end) != nil, nil
}

func (r *slotRepo) Insert(_ context.Context, slot *model.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertSlotsLocked([]*model.Slot{slot})
}

func (r *slotRepo) ListByDoctorAndDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Slot
	for _, sl := range r.s.slots {
		if sl.DoctorID == doctorID && sameDate(sl.Date, date) {
			cp := *sl
			out = append(out, &cp)
		}
	}
	sortSlots(out)
	return out, nil
}

func (r *slotRepo) ListByDoctorDateAndStatuses(_ context.Context, doctorID uuid.UUID, date time.Time, statuses []model.SlotStatus) ([]*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	allowed := map[model.SlotStatus]bool{}
	for _, st := range statuses {
		allowed[st] = true
	}
	var out []*model.Slot
	for _, sl := range r.s.slots {
		if sl.DoctorID == doctorID && sameDate(sl.Date, date) && allowed[sl.Status] {
			cp := *sl
			out = append(out, &cp)
		}
	}
	sortSlots(out)
	return out, nil
}

func (r *slotRepo) ListSchedule(_ context.Context, doctorID uuid.UUID, date time.Time) ([]repository.ScheduleSlotRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []repository.ScheduleSlotRow
	for _, sl := range r.s.slots {
		if sl.DoctorID != doctorID || !sameDate(sl.Date, date) {
			continue
		}
		row := repository.ScheduleSlotRow{Slot: *sl}
		if sl.PatientID != nil {
			if patient, ok := r.s.users[*sl.PatientID]; ok {
				name := patient.FullName()
				row.PatientName = &name
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.StartTime.Before(out[j].Slot.StartTime) })
	return out, nil
}

func (r *slotRepo) UpdateStatus(_ context.Context, id uuid.UUID, from []model.SlotStatus, to model.SlotStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sl, ok := r.s.slots[id]
	if !ok || !statusIn(sl.Status, from) {
		return apperrors.Conflictf("slot is not in a state that allows transition to %s", to)
	}
	sl.Status = to
	return nil
}

func (r *slotRepo) SetPriority(_ context.Context, id uuid.UUID, tag, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sl, ok := r.s.slots[id]
	if !ok {
		return apperrors.NotFound("slot")
	}
	sl.PriorityTag = &tag
	if reason != "" {
		sl.Reason = &reason
	}
	return nil
}

func (r *slotRepo) BlockRange(_ context.Context, doctorID uuid.UUID, date, start, end time.Time, reason, addedBy string, cancelExisting bool) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	blocked := 0
	for _, sl := range r.s.slots {
		if sl.DoctorID != doctorID || !sameDate(sl.Date, date) {
			continue
		}
		if sl.StartTime.Before(start) || !sl.StartTime.Before(end) {
			continue
		}
		if cancelExisting {
			for _, a := range r.s.appointments {
				if a.SlotID != nil && *a.SlotID == sl.ID && a.Status.Live() {
					a.Status = model.AppointmentStatusCancelled
				}
			}
		}
		sl.Status = model.SlotStatusBlocked
		sl.PatientID = nil
		if reason != "" {
			sl.Reason = &reason
		}
		if addedBy != "" {
			sl.AddedBy = &addedBy
		}
		blocked++
	}
	return blocked, nil
}

func (r *slotRepo) UnblockRange(_ context.Context, doctorID uuid.UUID, date, start, end time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	unblocked := 0
	for _, sl := range r.s.slots {
		if sl.DoctorID != doctorID || !sameDate(sl.Date, date) || sl.Status != model.SlotStatusBlocked {
			continue
		}
		if sl.StartTime.Before(start) || !sl.StartTime.Before(end) {
			continue
		}
		sl.Status = model.SlotStatusAvailable
		sl.Reason = nil
		unblocked++
	}
	return unblocked, nil
}

func (r *slotRepo) Shift(_ context.Context, doctorID uuid.UUID, date time.Time, minutes int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	offset := time.Duration(minutes) * time.Minute
	shifted := 0
	for _, sl := range r.s.slots {
		if sl.DoctorID != doctorID || !sameDate(sl.Date, date) {
			continue
		}
		sl.StartTime = sl.StartTime.Add(offset)
		sl.EndTime = sl.EndTime.Add(offset)
		shifted++
	}
	for _, a := range r.s.appointments {
		if a.DoctorID == doctorID && sameDate(a.Date, date) && a.Status.Live() {
			a.SlotTime = a.SlotTime.Add(offset)
		}
	}
	return shifted, nil
}

type appointmentRepo struct{ s *Store }

func (r *appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment")
	}
	cp := *a
	return &cp, nil
}

func (r *appointmentRepo) Book(_ context.Context, appt *model.Appointment, slotFrom []model.SlotStatus, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var slot *model.Slot
	for _, sl := range r.s.slots {
		if sl.DoctorID == appt.DoctorID && sameDate(sl.Date, appt.Date) && sameClock(sl.StartTime, appt.SlotTime) {
			slot = sl
			break
		}
	}
	if slot == nil {
		return apperrors.NotFound("slot")
	}
	if !statusIn(slot.Status, slotFrom) {
		return apperrors.Conflict("slot is not available")
	}
	for _, a := range r.s.appointments {
		if !a.Status.Live() || !sameDate(a.Date, appt.Date) || !sameClock(a.SlotTime, appt.SlotTime) {
			continue
		}
		if a.DoctorID == appt.DoctorID {
			return apperrors.Conflict("doctor already has an appointment in this slot")
		}
		if a.PatientID == appt.PatientID {
			return apperrors.Conflict("patient already has an appointment in this slot")
		}
	}

	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	appt.Status = model.AppointmentStatusBooked
	appt.SlotID = &slot.ID
	cp := *appt
	r.s.appointments[appt.ID] = &cp

	slot.Status = model.SlotStatusBooked
	patientID := appt.PatientID
	slot.PatientID = &patientID

	r.s.enqueueLocked(event)
	return nil
}

func (r *appointmentRepo) Cancel(_ context.Context, id uuid.UUID, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok || !a.Status.Live() {
		return apperrors.Conflict("appointment is no longer cancellable")
	}
	a.Status = model.AppointmentStatusCancelled
	if a.SlotID != nil {
		if sl, ok := r.s.slots[*a.SlotID]; ok {
			sl.Status = model.SlotStatusAvailable
			sl.PatientID = nil
		}
	}
	r.s.enqueueLocked(event)
	return nil
}

func (r *appointmentRepo) Transition(_ context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, slotTo model.SlotStatus, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok || !appointmentStatusIn(a.Status, from) {
		return apperrors.Conflictf("appointment is not in a state that allows transition to %s", to)
	}
	a.Status = to
	if a.SlotID != nil {
		if sl, ok := r.s.slots[*a.SlotID]; ok {
			sl.Status = slotTo
		}
	}
	r.s.enqueueLocked(event)
	return nil
}

func (r *appointmentRepo) ExistsLiveForDoctor(_ context.Context, doctorID uuid.UUID, date, slotTime time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.appointments {
		if a.DoctorID == doctorID && a.Status.Live() && sameDate(a.Date, date) && sameClock(a.SlotTime, slotTime) {
			return true, nil
		}
	}
	return false, nil
}

func (r *appointmentRepo) ExistsLiveForPatient(_ context.Context, patientID uuid.UUID, date, slotTime time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.appointments {
		if a.PatientID == patientID && a.Status.Live() && sameDate(a.Date, date) && sameClock(a.SlotTime, slotTime) {
			return true, nil
		}
	}
	return false, nil
}

func (r *appointmentRepo) ListByDoctorAndDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.s.appointments {
		if a.DoctorID == doctorID && sameDate(a.Date, date) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotTime.Before(out[j].SlotTime) })
	return out, nil
}

func (r *appointmentRepo) PageByPatient(_ context.Context, patientID uuid.UUID, p model.Pagination) ([]*model.Appointment, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.Normalize()
	var matched []*model.Appointment
	for _, a := range r.s.appointments {
		if a.PatientID == patientID {
			cp := *a
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].SlotTime.After(matched[j].SlotTime)
	})
	total := len(matched)
	return page(matched, p), total, nil
}

func (r *appointmentRepo) Search(_ context.Context, f repository.AppointmentSearch) ([]*model.Appointment, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f.Pagination.Normalize()
	var matched []*model.Appointment
	for _, a := range r.s.appointments {
		if f.ExactDate != nil && !sameDate(a.Date, *f.ExactDate) {
			continue
		}
		if f.FromDate != nil && a.Date.Before(*f.FromDate) {
			continue
		}
		if f.ToDate != nil && a.Date.After(*f.ToDate) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.DoctorName != "" {
			doctor, ok := r.s.users[a.DoctorID]
			if !ok || !strings.Contains(strings.ToLower(doctor.FullName()), strings.ToLower(f.DoctorName)) {
				continue
			}
		}
		cp := *a
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.Before(matched[j].Date)
		}
		return matched[i].SlotTime.Before(matched[j].SlotTime)
	})
	total := len(matched)
	return page(matched, f.Pagination), total, nil
}

type outboxRepo struct{ s *Store }

func (s *Store) enqueueLocked(event *model.OutboxEvent) {
	if event == nil {
		return
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()
	cp := *event
	s.events = append(s.events, &cp)
}

func (r *outboxRepo) Enqueue(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.enqueueLocked(event)
	return nil
}

func (r *outboxRepo) GetPendingWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range r.s.events {
		if e.Status != model.OutboxStatusPending {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *outboxRepo) MarkPublished(_ context.Context, id uuid.UUID) error {
	return r.mark(id, func(e *model.OutboxEvent) {
		now := time.Now()
		e.Status = model.OutboxStatusPublished
		e.ProcessedAt = &now
	})
}

func (r *outboxRepo) MarkFailed(_ context.Context, id uuid.UUID) error {
	return r.mark(id, func(e *model.OutboxEvent) {
		e.Attempts++
		if e.Attempts >= 5 {
			e.Status = model.OutboxStatusFailed
		}
	})
}

func (r *outboxRepo) mark(id uuid.UUID, apply func(*model.OutboxEvent)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.events {
		if e.ID == id {
			apply(e)
			return nil
		}
	}
	return apperrors.NotFound("outbox event")
}

func statusIn(s model.SlotStatus, set []model.SlotStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func appointmentStatusIn(s model.AppointmentStatus, set []model.AppointmentStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func sortSlots(slots []*model.Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
}

func page[T any](items []T, p model.Pagination) []T {
	start := p.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// Package booking implements the appointment lifecycle: booking into
// generated slots, attendance transitions, cancellation and reschedule
// lineage, and walk-in handling.
package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/repository"
	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

type Service struct {
	users        repository.UserRepository
	slots        repository.SlotRepository
	appointments repository.AppointmentRepository
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
	}
}

func (s *Service) resolveParty(ctx context.Context, id uuid.UUID, label string) (*model.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.NotFound(label)
		}
		return nil, err
	}
	return u, nil
}

// checkConflicts rejects a booking when either party already holds a live
// appointment at the same date and time. The storage layer repeats this
// check under its unique indexes; doing it here first yields the clearer
// message in the common case.
func (s *Service) checkConflicts(ctx context.Context, doctorID, patientID uuid.UUID, date, slotTime time.Time) error {
	busy, err := s.appointments.ExistsLiveForDoctor(ctx, doctorID, date, slotTime)
	if err != nil {
		return err
	}
	if busy {
		return apperrors.Conflict("doctor already has an appointment in this slot")
	}
	busy, err = s.appointments.ExistsLiveForPatient(ctx, patientID, date, slotTime)
	if err != nil {
		return err
	}
	if busy {
		return apperrors.Conflict("patient already has an appointment in this slot")
	}
	return nil
}

func eventFor(eventType string, appt *model.Appointment) *model.OutboxEvent {
	payload, err := json.Marshal(model.AppointmentEventPayload{
		AppointmentID: appt.ID,
		DoctorID:      appt.DoctorID,
		PatientID:     appt.PatientID,
		Date:          appt.Date.Format(model.DateLayout),
		Time:          model.FormatTimeOfDay(appt.SlotTime),
		Status:        string(appt.Status),
	})
	if err != nil {
		return nil
	}
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
	}
}

// BookAppointment books a patient into an AVAILABLE slot.
func (s *Service) BookAppointment(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	doctor, err := s.resolveParty(ctx, req.DoctorID, "doctor")
	if err != nil {
		return nil, err
	}
	if !doctor.IsDoctor() {
		return nil, apperrors.Validation("user is not a doctor")
	}
	patient, err := s.resolveParty(ctx, req.PatientID, "patient")
	if err != nil {
		return nil, err
	}

	date, err := model.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, apperrors.Validationf("invalid appointment date: %s", req.AppointmentDate)
	}
	if date.Before(model.DateOnly(time.Now())) {
		return nil, apperrors.Validation("cannot book an appointment in the past")
	}
	slotTime, err := model.ParseTimeOfDay(req.SlotTime)
	if err != nil {
		return nil, apperrors.Validationf("invalid slot time: %s", req.SlotTime)
	}

	slot, err := s.slots.GetByDoctorAndTime(ctx, doctor.ID, date, slotTime)
	if err != nil {
		return nil, err
	}
	if slot.Status != model.SlotStatusAvailable {
		return nil, apperrors.Conflict("slot is not available")
	}

	if err := s.checkConflicts(ctx, doctor.ID, patient.ID, date, slotTime); err != nil {
		return nil, err
	}

	apptType := req.AppointmentType
	if apptType == "" {
		apptType = model.AppointmentTypeInPerson
	}
	appt := &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		Date:      date,
		SlotTime:  slotTime,
		Type:      apptType,
		Status:    model.AppointmentStatusBooked,
	}
	err = s.appointments.Book(ctx, appt,
		[]model.SlotStatus{model.SlotStatusAvailable},
		eventFor(model.EventAppointmentBooked, appt))
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// BookWalkIn claims a WALKIN or AVAILABLE slot; priority goes to slots
// published for walk-in use.
func (s *Service) BookWalkIn(ctx context.Context, req *model.WalkInBookingRequest) (*model.Appointment, error) {
	doctor, err := s.resolveParty(ctx, req.DoctorID, "doctor")
	if err != nil {
		return nil, err
	}
	patient, err := s.resolveParty(ctx, req.PatientID, "patient")
	if err != nil {
		return nil, err
	}

	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.Validationf("invalid date: %s", req.Date)
	}
	slotTime, err := model.ParseTimeOfDay(req.Time)
	if err != nil {
		return nil, apperrors.Validationf("invalid time: %s", req.Time)
	}

	slot, err := s.slots.GetByDoctorAndTime(ctx, doctor.ID, date, slotTime)
	if err != nil {
		return nil, err
	}
	if !slot.Bookable() {
		return nil, apperrors.Conflict("slot is not open for walk-in booking")
	}

	if err := s.checkConflicts(ctx, doctor.ID, patient.ID, date, slotTime); err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		Date:      date,
		SlotTime:  slotTime,
		Type:      model.AppointmentTypeWalkIn,
		Status:    model.AppointmentStatusBooked,
	}
	err = s.appointments.Book(ctx, appt,
		[]model.SlotStatus{model.SlotStatusWalkIn, model.SlotStatusAvailable},
		eventFor(model.EventAppointmentBooked, appt))
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// CancelAppointment frees the slot and ends the appointment's claim.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) error {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return err
	}
	if appt.Status == model.AppointmentStatusCancelled {
		return apperrors.Validation("appointment is already cancelled")
	}
	appt.Status = model.AppointmentStatusCancelled
	return s.appointments.Cancel(ctx, id, eventFor(model.EventAppointmentCancelled, appt))
}

// MarkArrived records patient check-in. Only a BOOKED appointment can arrive.
func (s *Service) MarkArrived(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id,
		[]model.AppointmentStatus{model.AppointmentStatusBooked},
		model.AppointmentStatusArrived, model.SlotStatusArrived,
		"only a booked appointment can be marked arrived", "")
}

// MarkCompleted closes the consultation. Only an ARRIVED appointment completes.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id,
		[]model.AppointmentStatus{model.AppointmentStatusArrived},
		model.AppointmentStatusCompleted, model.SlotStatusCompleted,
		"only an arrived appointment can be completed", "")
}

// MarkNoShow records a missed appointment from BOOKED or ARRIVED.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id,
		[]model.AppointmentStatus{model.AppointmentStatusBooked, model.AppointmentStatusArrived},
		model.AppointmentStatusNoShow, model.SlotStatusNoShow,
		"only a booked or arrived appointment can be marked no-show",
		model.EventAppointmentNoShow)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, slotTo model.SlotStatus, message, eventType string) error {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return err
	}
	allowed := false
	for _, st := range from {
		if appt.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperrors.Validation(message)
	}

	var event *model.OutboxEvent
	if eventType != "" {
		appt.Status = to
		event = eventFor(eventType, appt)
	}
	return s.appointments.Transition(ctx, id, from, to, slotTo, event)
}

// Reschedule cancels the original appointment and books a replacement
// linked back through the lineage pointer. Omitted doctor and type fall
// back to the original booking's; the patient never changes.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleRequest) (*model.Appointment, error) {
	original, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch original.Status {
	case model.AppointmentStatusCancelled, model.AppointmentStatusCompleted:
		return nil, apperrors.Validationf("cannot reschedule a %s appointment", original.Status)
	}

	doctorID := original.DoctorID
	if req.DoctorID != nil {
		doctorID = *req.DoctorID
	}
	doctor, err := s.resolveParty(ctx, doctorID, "doctor")
	if err != nil {
		return nil, err
	}
	if !doctor.IsDoctor() {
		return nil, apperrors.Validation("user is not a doctor")
	}

	date, err := model.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, apperrors.Validationf("invalid appointment date: %s", req.AppointmentDate)
	}
	if date.Before(model.DateOnly(time.Now())) {
		return nil, apperrors.Validation("cannot reschedule into the past")
	}
	slotTime, err := model.ParseTimeOfDay(req.SlotTime)
	if err != nil {
		return nil, apperrors.Validationf("invalid slot time: %s", req.SlotTime)
	}

	slot, err := s.slots.GetByDoctorAndTime(ctx, doctor.ID, date, slotTime)
	if err != nil {
		return nil, err
	}
	if slot.Status != model.SlotStatusAvailable {
		return nil, apperrors.Conflict("slot is not available")
	}

	apptType := original.Type
	if req.AppointmentType != nil {
		apptType = *req.AppointmentType
	}

	// Free the original slot first so a same-doctor move to another time
	// does not trip the live-appointment uniqueness check.
	cancelled := *original
	cancelled.Status = model.AppointmentStatusCancelled
	if err := s.appointments.Cancel(ctx, id, eventFor(model.EventAppointmentCancelled, &cancelled)); err != nil {
		return nil, err
	}

	if err := s.checkConflicts(ctx, doctor.ID, original.PatientID, date, slotTime); err != nil {
		return nil, err
	}

	replacement := &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		DoctorID:        doctor.ID,
		PatientID:       original.PatientID,
		Date:            date,
		SlotTime:        slotTime,
		Type:            apptType,
		Status:          model.AppointmentStatusBooked,
		RescheduledFrom: &original.ID,
	}
	err = s.appointments.Book(ctx, replacement,
		[]model.SlotStatus{model.SlotStatusAvailable},
		eventFor(model.EventAppointmentRescheduled, replacement))
	if err != nil {
		return nil, err
	}
	return replacement, nil
}

// AssignWalkInPriority attaches triage metadata to a slot without changing
// its status.
func (s *Service) AssignWalkInPriority(ctx context.Context, slotID uuid.UUID, req *model.WalkInPriorityRequest) (*model.Slot, error) {
	if err := s.slots.SetPriority(ctx, slotID, req.PriorityTag, req.Reason); err != nil {
		return nil, err
	}
	return s.slots.Get(ctx, slotID)
}

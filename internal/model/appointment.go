package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "BOOKED"
	AppointmentStatusArrived   AppointmentStatus = "ARRIVED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusNoShow    AppointmentStatus = "NO_SHOW"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusBooked, AppointmentStatusArrived,
		AppointmentStatusCompleted, AppointmentStatusCancelled,
		AppointmentStatusNoShow:
		return true
	}
	return false
}

// Live reports whether the appointment still occupies its slot for
// uniqueness purposes.
func (s AppointmentStatus) Live() bool {
	return s != AppointmentStatusCancelled
}

type AppointmentType string

const (
	AppointmentTypeInPerson  AppointmentType = "IN_PERSON"
	AppointmentTypeWalkIn    AppointmentType = "WALKIN"
	AppointmentTypeEmergency AppointmentType = "EMERGENCY"
	AppointmentTypeFollowUp  AppointmentType = "FOLLOW_UP"
)

// Appointment records one patient's claim on one doctor's slot. Date and
// SlotTime mirror the slot for querying. RescheduledFrom links back to the
// appointment this one replaced, forming a finite chain.
type Appointment struct {
	Base
	DoctorID        uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	SlotID          *uuid.UUID        `db:"slot_id" json:"slot_id,omitempty"`
	Date            time.Time         `db:"appointment_date" json:"appointment_date"`
	SlotTime        time.Time         `db:"slot_time" json:"slot_time"`
	Type            AppointmentType   `db:"appointment_type" json:"appointment_type"`
	Status          AppointmentStatus `db:"status" json:"status"`
	RescheduledFrom *uuid.UUID        `db:"rescheduled_from" json:"rescheduled_from,omitempty"`
}

// BookAppointmentRequest books a patient into an existing AVAILABLE slot.
type BookAppointmentRequest struct {
	DoctorID        uuid.UUID       `json:"doctor_id" binding:"required"`
	PatientID       uuid.UUID       `json:"patient_id" binding:"required"`
	AppointmentDate string          `json:"appointment_date" binding:"required,dateformat"`
	SlotTime        string          `json:"slot_time" binding:"required,clocktime"`
	AppointmentType AppointmentType `json:"appointment_type,omitempty"`
}

// RescheduleRequest moves an appointment to a new date/time, optionally a
// new doctor or type. Omitted fields fall back to the original booking.
type RescheduleRequest struct {
	DoctorID        *uuid.UUID       `json:"doctor_id,omitempty"`
	AppointmentDate string           `json:"appointment_date" binding:"required,dateformat"`
	SlotTime        string           `json:"slot_time" binding:"required,clocktime"`
	AppointmentType *AppointmentType `json:"appointment_type,omitempty"`
}

// WalkInBookingRequest claims a WALKIN or AVAILABLE slot for a walk-in
// patient at the given time.
type WalkInBookingRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id" binding:"required"`
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	Date      string    `json:"date" binding:"required,dateformat"`
	Time      string    `json:"time" binding:"required,clocktime"`
}

// WalkInPriorityRequest attaches triage metadata to a slot without touching
// its status.
type WalkInPriorityRequest struct {
	PriorityTag string `json:"priority_tag" binding:"required"`
	Reason      string `json:"reason,omitempty"`
}

// AppointmentFilters drives the paged appointment search.
type AppointmentFilters struct {
	Date       *time.Time
	Range      string
	DoctorName string
	Status     AppointmentStatus
	Pagination Pagination
}

// AppointmentPage is one page of search results.
type AppointmentPage struct {
	Items    []*Appointment `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

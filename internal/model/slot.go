package model

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusUnavailable SlotStatus = "UNAVAILABLE"
	SlotStatusAvailable   SlotStatus = "AVAILABLE"
	SlotStatusBooked      SlotStatus = "BOOKED"
	SlotStatusArrived     SlotStatus = "ARRIVED"
	SlotStatusCompleted   SlotStatus = "COMPLETED"
	SlotStatusWalkIn      SlotStatus = "WALKIN"
	SlotStatusBlocked     SlotStatus = "BLOCKED"
	SlotStatusNoShow      SlotStatus = "NO_SHOW"
	SlotStatusReserved    SlotStatus = "RESERVED"
	SlotStatusLunchBreak  SlotStatus = "LUNCH_BREAK"
)

// slotStatusColors are the display colours the front desk board uses.
var slotStatusColors = map[SlotStatus]string{
	SlotStatusUnavailable: "#E5E5EA",
	SlotStatusAvailable:   "#00B386",
	SlotStatusBooked:      "#F28C28",
	SlotStatusArrived:     "#EB4D9C",
	SlotStatusCompleted:   "#A069E5",
	SlotStatusWalkIn:      "#FBC02D",
	SlotStatusBlocked:     "#2F2F38",
	SlotStatusNoShow:      "#D32F2F",
	SlotStatusReserved:    "#4285F4",
	SlotStatusLunchBreak:  "#9E9E9E",
}

func (s SlotStatus) Color() string {
	return slotStatusColors[s]
}

func (s SlotStatus) Valid() bool {
	_, ok := slotStatusColors[s]
	return ok
}

type SlotType string

const (
	SlotTypeRegular    SlotType = "REGULAR"
	SlotTypeAdditional SlotType = "ADDITIONAL"
	SlotTypeWalkIn     SlotType = "WALKIN"
)

// Slot is the atomic bookable unit of time for one doctor. The tuple
// (doctor, date, start_time, end_time) is unique across the store.
type Slot struct {
	Base
	DoctorID       uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	AvailabilityID *uuid.UUID `db:"availability_id" json:"availability_id,omitempty"`
	Date           time.Time  `db:"date" json:"date"`
	StartTime      time.Time  `db:"start_time" json:"start_time"`
	EndTime        time.Time  `db:"end_time" json:"end_time"`
	Status         SlotStatus `db:"status" json:"status"`
	Type           SlotType   `db:"slot_type" json:"slot_type"`
	PriorityTag    *string    `db:"priority_tag" json:"priority_tag,omitempty"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
	AddedBy        *string    `db:"added_by" json:"added_by,omitempty"`
	PatientID      *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
}

// Bookable reports whether a walk-in booking may claim this slot.
func (s *Slot) Bookable() bool {
	return s.Status == SlotStatusAvailable || s.Status == SlotStatusWalkIn
}

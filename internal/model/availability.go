package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityWindow is a declared block of consultation time for one doctor
// on one date, the source of generated slots.
type AvailabilityWindow struct {
	Base
	DoctorID     uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date         time.Time `db:"date" json:"date"`
	StartTime    time.Time `db:"start_time" json:"start_time"`
	EndTime      time.Time `db:"end_time" json:"end_time"`
	SlotDuration int       `db:"slot_duration" json:"slot_duration_minutes"`
}

// TimeRange is one start/end pair inside an availability definition.
type TimeRange struct {
	Start string `json:"start" binding:"required,clocktime"`
	End   string `json:"end" binding:"required,clocktime"`
}

// DefineAvailabilityRequest covers both availability input modes. Weekly
// entries repeat for the next four occurrences of the weekday; date-wise
// entries are one-time. At least one mode must be present.
type DefineAvailabilityRequest struct {
	SlotDurationInMinutes int                    `json:"slot_duration_in_minutes" binding:"required"`
	WeeklyAvailability    map[string][]TimeRange `json:"weekly_availability,omitempty"`
	DateWiseAvailability  map[string][]TimeRange `json:"date_wise_availability,omitempty"`
}

// DayAvailabilityRequest declares a single window for one date. Existing
// slots for that doctor/date are replaced wholesale.
type DayAvailabilityRequest struct {
	Date                  string `json:"date" binding:"required,dateformat"`
	StartTime             string `json:"start_time" binding:"required,clocktime"`
	EndTime               string `json:"end_time" binding:"required,clocktime"`
	SlotDurationInMinutes int    `json:"slot_duration_in_minutes" binding:"required"`
}

// EmergencySlotRequest inserts an ad hoc slot outside the generated grid.
type EmergencySlotRequest struct {
	DoctorID    uuid.UUID  `json:"doctor_id" binding:"required"`
	Date        string     `json:"date" binding:"required,dateformat"`
	StartTime   string     `json:"start_time" binding:"required,clocktime"`
	EndTime     string     `json:"end_time" binding:"required,clocktime"`
	Status      SlotStatus `json:"status" binding:"required"`
	AddedBy     string     `json:"added_by" binding:"required"`
	Reason      string     `json:"reason,omitempty"`
	PriorityTag string     `json:"priority_tag,omitempty"`
}

// BlockSlotsRequest blocks every slot whose start time falls in the half
// open range [start, end); optionally cancels appointments already holding
// those slots.
type BlockSlotsRequest struct {
	Date           string `json:"date" binding:"required,dateformat"`
	StartTime      string `json:"start_time" binding:"required,clocktime"`
	EndTime        string `json:"end_time" binding:"required,clocktime"`
	Reason         string `json:"reason,omitempty"`
	AddedBy        string `json:"added_by,omitempty"`
	CancelExisting bool   `json:"cancel_existing"`
}

type UnblockSlotsRequest struct {
	Date      string `json:"date" binding:"required,dateformat"`
	StartTime string `json:"start_time" binding:"required,clocktime"`
	EndTime   string `json:"end_time" binding:"required,clocktime"`
}

// ShiftSlotsRequest moves every slot of the day by the given offset.
type ShiftSlotsRequest struct {
	Date           string `json:"date" binding:"required,dateformat"`
	ShiftByMinutes int    `json:"shift_by_minutes" binding:"required"`
}

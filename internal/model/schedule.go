package model

import "github.com/google/uuid"

// SlotStatusView is one row of the front-desk status board.
type SlotStatusView struct {
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time"`
	Status    SlotStatus `json:"status"`
	Type      SlotType   `json:"slot_type"`
	Color     string     `json:"color"`
}

// ScheduleSlot is one slot inside an hourly bucket: its exact time, status
// and the occupant's name, or a synthetic label for break slots.
type ScheduleSlot struct {
	Time        string     `json:"time"`
	Status      SlotStatus `json:"status"`
	PatientName *string    `json:"patient_name,omitempty"`
}

// HourlySlotGroup buckets a doctor's slots by start hour. TimeLabel is the
// slot start truncated to the hour, e.g. "09:00".
type HourlySlotGroup struct {
	TimeLabel string         `json:"time_label"`
	Slots     []ScheduleSlot `json:"slots"`
}

// DoctorSchedule is one doctor's day grouped for display.
type DoctorSchedule struct {
	DoctorID  uuid.UUID         `json:"doctor_id"`
	Name      string            `json:"name"`
	TimeSlots []HourlySlotGroup `json:"time_slots"`
}

// DoctorSchedulePage is one page of structured schedules.
type DoctorSchedulePage struct {
	Items    []DoctorSchedule `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

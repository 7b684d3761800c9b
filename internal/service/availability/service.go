package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/repository"
	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

// Slot duration bounds in minutes.
const (
	MinSlotDuration = 1
	MaxSlotDuration = 240
)

// weeklyOccurrences is how many weeks a weekly-recurring entry expands to.
const weeklyOccurrences = 4

type Service struct {
	users        repository.UserRepository
	availability repository.AvailabilityRepository
	slots        repository.SlotRepository
	perms        model.PermissionMatrix
}

func NewService(
	users repository.UserRepository,
	availability repository.AvailabilityRepository,
	slots repository.SlotRepository,
	perms model.PermissionMatrix,
) *Service {
	return &Service{
		users:        users,
		availability: availability,
		slots:        slots,
		perms:        perms,
	}
}

// timeRange is a parsed, validated start/end pair.
type timeRange struct {
	start, end time.Time
}

func (s *Service) validateDoctor(ctx context.Context, doctorID uuid.UUID) (*model.User, error) {
	doctor, err := s.users.Get(ctx, doctorID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.NotFound("doctor")
		}
		return nil, err
	}
	if !doctor.IsDoctor() {
		return nil, apperrors.Validation("user is not a doctor")
	}
	return doctor, nil
}

func (s *Service) checkActor(actor model.Role) error {
	if !s.perms.CanManageAvailability(actor) {
		return apperrors.Validationf("role %s may not manage doctor availability", actor)
	}
	return nil
}

// DefineAvailability generates slots from a weekly-recurring map, a
// date-wise map, or both. The whole call validates before any write and
// commits as one unit.
func (s *Service) DefineAvailability(ctx context.Context, actor model.Role, doctorID uuid.UUID, req *model.DefineAvailabilityRequest) error {
	if err := s.checkActor(actor); err != nil {
		return err
	}
	doctor, err := s.validateDoctor(ctx, doctorID)
	if err != nil {
		return err
	}

	duration := req.SlotDurationInMinutes
	if duration < MinSlotDuration || duration > MaxSlotDuration {
		return apperrors.Validation("slot duration must be between 1 and 240 minutes")
	}

	hasWeekly := len(req.WeeklyAvailability) > 0
	hasDateWise := len(req.DateWiseAvailability) > 0
	if !hasWeekly && !hasDateWise {
		return apperrors.Validation("provide either weekly_availability or date_wise_availability")
	}

	// Tracks time ranges already claimed per date within this request so
	// two input ranges mapping to the same date cannot overlap.
	tracker := map[string][]timeRange{}
	today := model.DateOnly(time.Now())

	var windows []*model.AvailabilityWindow
	var slots []*model.Slot

	appendRange := func(date time.Time, r timeRange) error {
		if err := checkOverlap(tracker, date, r); err != nil {
			return err
		}
		generated, err := s.generateChecked(ctx, doctor.ID, date, r, duration)
		if err != nil {
			return err
		}
		window := &model.AvailabilityWindow{
			Base:         model.Base{ID: uuid.New()},
			DoctorID:     doctor.ID,
			Date:         date,
			StartTime:    r.start,
			EndTime:      r.end,
			SlotDuration: duration,
		}
		for _, slot := range generated {
			slot.AvailabilityID = &window.ID
		}
		windows = append(windows, window)
		slots = append(slots, generated...)
		return nil
	}

	if hasWeekly {
		for dayName, ranges := range req.WeeklyAvailability {
			day, err := parseWeekday(dayName)
			if err != nil {
				return err
			}
			for _, raw := range ranges {
				r, err := parseRange(raw, "weekly_availability")
				if err != nil {
					return err
				}
				for _, date := range nextOccurrences(today, day, weeklyOccurrences) {
					if err := appendRange(date, r); err != nil {
						return err
					}
				}
			}
		}
	}

	if hasDateWise {
		seen := map[string]bool{}
		for dateStr, ranges := range req.DateWiseAvailability {
			date, err := model.ParseDate(dateStr)
			if err != nil {
				return apperrors.Validationf("invalid date in date_wise_availability: %s", dateStr)
			}
			key := date.Format(model.DateLayout)
			if seen[key] {
				return apperrors.Conflictf("duplicate date entry: %s", key)
			}
			seen[key] = true

			for _, raw := range ranges {
				r, err := parseRange(raw, "date_wise_availability")
				if err != nil {
					return err
				}
				if err := appendRange(date, r); err != nil {
					return err
				}
			}
		}
	}

	return s.availability.SaveGenerated(ctx, windows, slots)
}

// CreateDayAvailability declares a single window for one date; it rejects a
// second definition for the same doctor/date.
func (s *Service) CreateDayAvailability(ctx context.Context, actor model.Role, doctorID uuid.UUID, req *model.DayAvailabilityRequest) error {
	if err := s.checkActor(actor); err != nil {
		return err
	}
	doctor, err := s.validateDoctor(ctx, doctorID)
	if err != nil {
		return err
	}
	window, slots, err := buildDay(doctor.ID, req)
	if err != nil {
		return err
	}

	exists, err := s.availability.ExistsForDate(ctx, doctor.ID, window.Date)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.Conflict("availability already exists for this doctor and date")
	}
	return s.availability.ReplaceDay(ctx, window, slots)
}

// ReplaceDayAvailability regenerates one date wholesale: old slots for the
// doctor/date are purged and replaced in the same transaction.
func (s *Service) ReplaceDayAvailability(ctx context.Context, actor model.Role, doctorID uuid.UUID, req *model.DayAvailabilityRequest) error {
	if err := s.checkActor(actor); err != nil {
		return err
	}
	doctor, err := s.validateDoctor(ctx, doctorID)
	if err != nil {
		return err
	}
	window, slots, err := buildDay(doctor.ID, req)
	if err != nil {
		return err
	}
	return s.availability.ReplaceDay(ctx, window, slots)
}

// AddEmergencySlot inserts an ad hoc ADDITIONAL slot bound to the day's
// window, outside the generated grid.
func (s *Service) AddEmergencySlot(ctx context.Context, req *model.EmergencySlotRequest) (*model.Slot, error) {
	doctor, err := s.validateDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.Validationf("invalid date: %s", req.Date)
	}
	r, err := parseRange(model.TimeRange{Start: req.StartTime, End: req.EndTime}, "emergency slot")
	if err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, apperrors.Validationf("unknown slot status: %s", req.Status)
	}

	window, err := s.availability.GetForDate(ctx, doctor.ID, date)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.Validation("doctor availability not found for the date")
		}
		return nil, err
	}

	exists, err := s.slots.Exists(ctx, doctor.ID, date, r.start, r.end)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Conflict("slot with given time already exists")
	}

	slot := &model.Slot{
		DoctorID:       doctor.ID,
		AvailabilityID: &window.ID,
		Date:           date,
		StartTime:      r.start,
		EndTime:        r.end,
		Status:         req.Status,
		Type:           model.SlotTypeAdditional,
		AddedBy:        optional(req.AddedBy),
		Reason:         optional(req.Reason),
		PriorityTag:    optional(req.PriorityTag),
	}
	if err := s.slots.Insert(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// BlockSlots blocks every slot starting inside the range, optionally
// cancelling appointments already on them.
func (s *Service) BlockSlots(ctx context.Context, doctorID uuid.UUID, req *model.BlockSlotsRequest) (int, error) {
	doctor, err := s.validateDoctor(ctx, doctorID)
	if err != nil {
		return 0, err
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return 0, apperrors.Validationf("invalid date: %s", req.Date)
	}
	r, err := parseRange(model.TimeRange{Start: req.StartTime, End: req.EndTime}, "block request")
	if err != nil {
		return 0, err
	}

	return s.slots.BlockRange(ctx, doctor.ID, date, r.start, r.end, req.Reason, req.AddedBy, req.CancelExisting)
}

func (s *Service) UnblockSlots(ctx context.Context, doctorID uuid.UUID, req *model.UnblockSlotsRequest) (int, error) {
	doctor, err := s.validateDoctor(ctx, doctorID)
	if err != nil {
		return 0, err
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return 0, apperrors.Validationf("invalid date: %s", req.Date)
	}
	r, err := parseRange(model.TimeRange{Start: req.StartTime, End: req.EndTime}, "unblock request")
	if err != nil {
		return 0, err
	}
	return s.slots.UnblockRange(ctx, doctor.ID, date, r.start, r.end)
}

// ShiftSlots moves the whole day by the given offset.
func (s *Service) ShiftSlots(ctx context.Context, doctorID uuid.UUID, req *model.ShiftSlotsRequest) (int, error) {
	doctor, err := s.validateDoctor(ctx, doctorID)
	if err != nil {
		return 0, err
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return 0, apperrors.Validationf("invalid date: %s", req.Date)
	}
	if req.ShiftByMinutes == 0 {
		return 0, apperrors.Validation("shift_by_minutes must not be zero")
	}
	return s.slots.Shift(ctx, doctor.ID, date, req.ShiftByMinutes)
}

// generateChecked produces the slot grid for one range, failing on the
// first candidate that already exists in the store.
func (s *Service) generateChecked(ctx context.Context, doctorID uuid.UUID, date time.Time, r timeRange, duration int) ([]*model.Slot, error) {
	var slots []*model.Slot
	for _, gs := range generateGrid(r, duration) {
		exists, err := s.slots.Exists(ctx, doctorID, date, gs.start, gs.end)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.Conflictf("slot at %s already exists for %s",
				model.FormatTimeOfDay(gs.start), date.Format(model.DateLayout))
		}
		slots = append(slots, &model.Slot{
			DoctorID:  doctorID,
			Date:      date,
			StartTime: gs.start,
			EndTime:   gs.end,
			Status:    model.SlotStatusAvailable,
			Type:      model.SlotTypeRegular,
		})
	}
	return slots, nil
}

// generateGrid yields contiguous [start, start+duration) pairs; a trailing
// partial slot is dropped.
func generateGrid(r timeRange, durationMinutes int) []timeRange {
	var grid []timeRange
	duration := time.Duration(durationMinutes) * time.Minute
	for current := r.start; !current.Add(duration).After(r.end); current = current.Add(duration) {
		grid = append(grid, timeRange{start: current, end: current.Add(duration)})
	}
	return grid
}

func buildDay(doctorID uuid.UUID, req *model.DayAvailabilityRequest) (*model.AvailabilityWindow, []*model.Slot, error) {
	if req.SlotDurationInMinutes < MinSlotDuration || req.SlotDurationInMinutes > MaxSlotDuration {
		return nil, nil, apperrors.Validation("slot duration must be between 1 and 240 minutes")
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, nil, apperrors.Validationf("invalid date: %s", req.Date)
	}
	r, err := parseRange(model.TimeRange{Start: req.StartTime, End: req.EndTime}, "availability")
	if err != nil {
		return nil, nil, err
	}

	window := &model.AvailabilityWindow{
		Base:         model.Base{ID: uuid.New()},
		DoctorID:     doctorID,
		Date:         date,
		StartTime:    r.start,
		EndTime:      r.end,
		SlotDuration: req.SlotDurationInMinutes,
	}

	var slots []*model.Slot
	for _, gs := range generateGrid(r, req.SlotDurationInMinutes) {
		slots = append(slots, &model.Slot{
			DoctorID:       doctorID,
			AvailabilityID: &window.ID,
			Date:           date,
			StartTime:      gs.start,
			EndTime:        gs.end,
			Status:         model.SlotStatusAvailable,
			Type:           model.SlotTypeRegular,
		})
	}
	return window, slots, nil
}

func parseRange(raw model.TimeRange, source string) (timeRange, error) {
	if raw.Start == "" || raw.End == "" {
		return timeRange{}, apperrors.Validationf("start and end time must be provided in %s", source)
	}
	start, err := model.ParseTimeOfDay(raw.Start)
	if err != nil {
		return timeRange{}, apperrors.Validationf("invalid start time in %s: %s", source, raw.Start)
	}
	end, err := model.ParseTimeOfDay(raw.End)
	if err != nil {
		return timeRange{}, apperrors.Validationf("invalid end time in %s: %s", source, raw.End)
	}
	if !start.Before(end) {
		return timeRange{}, apperrors.Validationf("end time must be after start time in %s", source)
	}
	return timeRange{start: start, end: end}, nil
}

// checkOverlap enforces the half-open interval rule within one definition
// call: [s1,e1) and [s2,e2) overlap iff s1 < e2 && s2 < e1.
func checkOverlap(tracker map[string][]timeRange, date time.Time, r timeRange) error {
	key := date.Format(model.DateLayout)
	for _, existing := range tracker[key] {
		if existing.start.Before(r.end) && r.start.Before(existing.end) {
			return apperrors.Conflictf("overlapping time blocks on %s: %s-%s overlaps with %s-%s",
				key,
				model.FormatTimeOfDay(existing.start), model.FormatTimeOfDay(existing.end),
				model.FormatTimeOfDay(r.start), model.FormatTimeOfDay(r.end))
		}
	}
	tracker[key] = append(tracker[key], r)
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

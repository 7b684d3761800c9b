package availability

import (
	"strings"
	"time"

	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

var weekdays = map[string]time.Weekday{
	"SUNDAY":    time.Sunday,
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
}

func parseWeekday(name string) (time.Weekday, error) {
	day, ok := weekdays[strings.ToUpper(name)]
	if !ok {
		return 0, apperrors.Validationf("unknown day of week: %s", name)
	}
	return day, nil
}

// nextOccurrences returns the next count occurrences of the weekday starting
// on or after anchor, one week apart.
func nextOccurrences(anchor time.Time, day time.Weekday, count int) []time.Time {
	offset := (int(day) - int(anchor.Weekday()) + 7) % 7
	first := anchor.AddDate(0, 0, offset)

	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, first.AddDate(0, 0, 7*i))
	}
	return dates
}

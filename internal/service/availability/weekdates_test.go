package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	day, err := parseWeekday("MONDAY")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, day)

	day, err = parseWeekday("sunday")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, day)

	_, err = parseWeekday("FUNDAY")
	assert.Error(t, err)
}

func TestNextOccurrences(t *testing.T) {
	// 2026-03-02 is a Monday.
	anchor := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	mondays := nextOccurrences(anchor, time.Monday, 4)
	require.Len(t, mondays, 4)
	assert.Equal(t, anchor, mondays[0], "anchor day itself counts as the first occurrence")
	assert.Equal(t, anchor.AddDate(0, 0, 7), mondays[1])
	assert.Equal(t, anchor.AddDate(0, 0, 21), mondays[3])

	fridays := nextOccurrences(anchor, time.Friday, 2)
	require.Len(t, fridays, 2)
	assert.Equal(t, time.Friday, fridays[0].Weekday())
	assert.Equal(t, anchor.AddDate(0, 0, 4), fridays[0])
}

func TestGenerateGrid(t *testing.T) {
	start, _ := time.Parse("15:04", "09:00")
	end, _ := time.Parse("15:04", "10:00")

	grid := generateGrid(timeRange{start: start, end: end}, 15)
	require.Len(t, grid, 4)
	assert.Equal(t, "09:00", grid[0].start.Format("15:04"))
	assert.Equal(t, "09:15", grid[0].end.Format("15:04"))
	assert.Equal(t, "09:45", grid[3].start.Format("15:04"))
	assert.Equal(t, "10:00", grid[3].end.Format("15:04"))

	// A trailing partial slot is dropped.
	grid = generateGrid(timeRange{start: start, end: end}, 25)
	require.Len(t, grid, 2)
	assert.Equal(t, "09:50", grid[1].end.Format("15:04"))
}

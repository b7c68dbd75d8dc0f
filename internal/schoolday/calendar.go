package schoolday

import (
	"errors"
	"fmt"
	"time"

	"asistencia/internal/calendar"
)

// ErrInvalidMonth is returned when a caller asks for a month outside 1-12.
// The calculator never clamps.
var ErrInvalidMonth = errors.New("month out of range")

// WorkingDay is one calendar date of a month tagged with every exclusion
// that applies to it. Obligatory folds them together: a date requires an
// attendance mark only when it is a weekday inside an academic period with
// no holiday and no block.
type WorkingDay struct {
	Date       time.Time `json:"date"`
	Weekend    bool      `json:"weekend"`
	Holiday    bool      `json:"holiday"`
	InPeriod   bool      `json:"in_period"`
	Blocked    bool      `json:"blocked"`
	Obligatory bool      `json:"obligatory"`
}

// Calculator combines the holiday calendar, the academic periods of the year
// and the blocked-day overrides into the canonical working-day list. It is
// pure: all inputs are supplied up front.
type Calculator struct {
	holidays *calendar.HolidayCalendar
	periods  *calendar.PeriodSet
	blocks   *BlockSet
}

// NewCalculator wires a calculator. Nil arguments degrade to empty sources:
// no holidays, fallback-only periods, no blocks.
func NewCalculator(h *calendar.HolidayCalendar, p *calendar.PeriodSet, b *BlockSet) *Calculator {
	if h == nil {
		h = calendar.NewHolidayCalendarWith(nil)
	}
	if p == nil {
		p = calendar.NewPeriodSet(nil)
	}
	if b == nil {
		b = NewBlockSet(nil)
	}
	return &Calculator{holidays: h, periods: p, blocks: b}
}

// MonthDays returns every day of (year, month) in ascending order, tagged.
// Pass an empty courseID to consider global blocks only. Callers filter on
// Obligatory to get the canonical working-day date set.
func (c *Calculator) MonthDays(year int, month time.Month, courseID string) ([]WorkingDay, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := make([]WorkingDay, 0, 31)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		day := WorkingDay{
			Date:     d,
			Weekend:  wd == time.Saturday || wd == time.Sunday,
			Holiday:  c.holidays.IsHoliday(d),
			InPeriod: c.periods.InAnyPeriod(d),
			Blocked:  c.blocks.Blocked(d, courseID),
		}
		day.Obligatory = !day.Weekend && !day.Holiday && day.InPeriod && !day.Blocked
		days = append(days, day)
	}
	return days, nil
}

// ObligatoryDates filters a month's days down to the obligatory ones.
func ObligatoryDates(days []WorkingDay) []time.Time {
	var out []time.Time
	for _, d := range days {
		if d.Obligatory {
			out = append(out, d.Date)
		}
	}
	return out
}

// MonthBounds returns the first and last day of (year, month).
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}

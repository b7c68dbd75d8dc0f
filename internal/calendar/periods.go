package calendar

import "time"

// AcademicPeriod is a named semester window. Bounds are inclusive and
// compared at day granularity.
type AcademicPeriod struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls within [Start, End].
func (p AcademicPeriod) Contains(d time.Time) bool {
	day := dateOnly(d)
	return !day.Before(dateOnly(p.Start)) && !day.After(dateOnly(p.End))
}

// PeriodSet resolves academic periods by year. Stored periods are grouped by
// the year their start date falls in; a year with no stored periods gets two
// synthesized semester windows so downstream logic never reasons over an
// empty calendar.
type PeriodSet struct {
	byYear map[int][]AcademicPeriod
}

// NewPeriodSet builds a set from rows fetched out of the period store. An
// empty or nil slice is valid: every queried year then falls back to the
// synthesized semesters.
func NewPeriodSet(stored []AcademicPeriod) *PeriodSet {
	byYear := make(map[int][]AcademicPeriod, 2)
	for _, p := range stored {
		y := p.Start.Year()
		byYear[y] = append(byYear[y], p)
	}
	return &PeriodSet{byYear: byYear}
}

// FallbackPeriods synthesizes the two semester windows used when the period
// store has nothing for a year. The shape follows the Chilean school year:
// classes start in March and close before Christmas, with a winter break
// around the second half of July.
func FallbackPeriods(year int) []AcademicPeriod {
	return []AcademicPeriod{
		{
			Name:  "Primer Semestre",
			Start: time.Date(year, time.March, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, time.July, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			Name:  "Segundo Semestre",
			Start: time.Date(year, time.July, 28, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, time.December, 20, 0, 0, 0, 0, time.UTC),
		},
	}
}

// ForYear returns the periods in effect for a year, synthesizing the
// fallback semesters when none are stored.
func (s *PeriodSet) ForYear(year int) []AcademicPeriod {
	if ps, ok := s.byYear[year]; ok && len(ps) > 0 {
		return ps
	}
	return FallbackPeriods(year)
}

// InAnyPeriod reports whether d falls inside at least one period of its
// year. With no periods at all (even after fallback) every date is outside:
// a date cannot be obligatory without a period containing it.
func (s *PeriodSet) InAnyPeriod(d time.Time) bool {
	for _, p := range s.ForYear(d.Year()) {
		if p.Contains(d) {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

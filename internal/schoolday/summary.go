package schoolday

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Mark is one recorded attendance observation. At most one mark exists per
// (student, date); later writes overwrite earlier ones. Justified is only
// meaningful when Present is false.
type Mark struct {
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	Date      time.Time `json:"date"`
	Present   bool      `json:"present"`
	Justified bool      `json:"justified"`
}

// Student carries the roster fields the aggregator needs for ordering.
type Student struct {
	ID        string
	GivenName string
	Surname   string
}

// Summary is the per-student attendance result for a month. DaysObligatory
// is always derived from the working-day calendar clipped to enrollment; a
// day with no mark counts as absent.
type Summary struct {
	StudentID      string `json:"student_id"`
	GivenName      string `json:"given_name"`
	Surname        string `json:"surname"`
	CourseID       string `json:"course_id"`
	DaysObligatory int    `json:"days_obligatory"`
	DaysPresent    int    `json:"days_present"`
	DaysAbsent     int    `json:"days_absent"`
	DaysJustified  int    `json:"days_justified"`
	Percentage     int    `json:"percentage"`
	Perfect        bool   `json:"perfect"`
}

// Summarize joins a student's marks against the obligatory dates falling
// inside the spans' enrollment windows. Empty marks or spans are valid
// inputs and yield a zero summary, never an error. Perfect comes from exact
// count equality, not from the rounded percentage.
func Summarize(student Student, courseID string, days []WorkingDay, spans []EnrollmentSpan, marks []Mark) Summary {
	sum := Summary{
		StudentID: student.ID,
		GivenName: student.GivenName,
		Surname:   student.Surname,
		CourseID:  courseID,
	}

	byDay := make(map[string]Mark, len(marks))
	for _, m := range marks {
		if m.StudentID != student.ID {
			continue
		}
		byDay[dayKey(m.Date)] = m // last write wins, matching upsert semantics
	}

	for _, d := range days {
		if !d.Obligatory || !enrolledAny(spans, d.Date) {
			continue
		}
		sum.DaysObligatory++
		m, ok := byDay[dayKey(d.Date)]
		switch {
		case ok && m.Present:
			sum.DaysPresent++
		default:
			sum.DaysAbsent++
			if ok && m.Justified {
				sum.DaysJustified++
			}
		}
	}

	sum.Percentage = roundedPercent(sum.DaysPresent, sum.DaysObligatory)
	sum.Perfect = sum.DaysObligatory > 0 && sum.DaysPresent == sum.DaysObligatory
	return sum
}

// SummarizeCourse aggregates every student of a course over the month's
// working days, ordered by surname then given name under Spanish collation.
// spans may hold several spans per student; a date counts when any of that
// student's spans covers it.
func SummarizeCourse(courseID string, students []Student, days []WorkingDay, spans []EnrollmentSpan, marks []Mark) []Summary {
	spansByStudent := make(map[string][]EnrollmentSpan, len(students))
	for _, s := range spans {
		spansByStudent[s.StudentID] = append(spansByStudent[s.StudentID], s)
	}

	out := make([]Summary, 0, len(students))
	for _, st := range students {
		out = append(out, Summarize(st, courseID, days, spansByStudent[st.ID], marks))
	}
	SortSummaries(out)
	return out
}

// SortSummaries orders summaries by surname then given name, case-insensitive
// Spanish alphabetization (accented letters collate with their base letter).
func SortSummaries(sums []Summary) {
	col := collate.New(language.Spanish, collate.IgnoreCase)
	sort.SliceStable(sums, func(i, j int) bool {
		if c := col.CompareString(sums[i].Surname, sums[j].Surname); c != 0 {
			return c < 0
		}
		return col.CompareString(sums[i].GivenName, sums[j].GivenName) < 0
	})
}

func enrolledAny(spans []EnrollmentSpan, d time.Time) bool {
	for _, s := range spans {
		if s.EnrolledOn(d) {
			return true
		}
	}
	return false
}

// roundedPercent rounds 100*present/obligatory to the nearest integer with
// ties going up, using integer arithmetic only.
func roundedPercent(present, obligatory int) int {
	if obligatory == 0 {
		return 0
	}
	return (200*present + obligatory) / (2 * obligatory)
}

package schoolday

import "time"

// EnrollmentSpan is one contiguous interval of a student's membership in a
// course. A nil WithdrawalDate means the student never left. A student can
// accumulate several spans over time (withdrawal, re-enrollment, course
// change); each span is resolved on its own.
type EnrollmentSpan struct {
	StudentID      string
	CourseID       string
	EnrollmentDate time.Time
	WithdrawalDate *time.Time
	Current        bool
}

// EnrolledOn reports whether the student was a member of the course on d.
func (s EnrollmentSpan) EnrolledOn(d time.Time) bool {
	day := dateOnly(d)
	if day.Before(dateOnly(s.EnrollmentDate)) {
		return false
	}
	if s.WithdrawalDate != nil && day.After(dateOnly(*s.WithdrawalDate)) {
		return false
	}
	return true
}

// Window is the clipped sub-range of a month a span actually covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// ResolveWindow clips a span to [monthStart, monthEnd]. The second return is
// false when the span does not touch the month at all, e.g. the student
// enrolled after it ended or withdrew before it began.
func ResolveWindow(span EnrollmentSpan, monthStart, monthEnd time.Time) (Window, bool) {
	start := dateOnly(monthStart)
	if e := dateOnly(span.EnrollmentDate); e.After(start) {
		start = e
	}
	end := dateOnly(monthEnd)
	if span.WithdrawalDate != nil {
		if w := dateOnly(*span.WithdrawalDate); w.Before(end) {
			end = w
		}
	}
	if start.After(end) {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}

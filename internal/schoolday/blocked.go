package schoolday

import "time"

// BlockedDay is an administrative override suspending attendance on a date.
// A nil CourseID means the block applies to every course.
type BlockedDay struct {
	Date       time.Time `json:"date"`
	CourseID   *string   `json:"course_id,omitempty"`
	Reason     string    `json:"reason"`
	Resolution string    `json:"resolution"`
}

func (b BlockedDay) appliesTo(courseID string) bool {
	return b.CourseID == nil || *b.CourseID == courseID
}

// BlockSet indexes blocked-day rows by date so a whole month can be checked
// without further round-trips. Rows are fetched once per (month, course)
// by the caller.
type BlockSet struct {
	byDate map[string][]BlockedDay
}

// NewBlockSet builds an index over pre-fetched rows. Nil rows are valid and
// mean nothing is blocked.
func NewBlockSet(rows []BlockedDay) *BlockSet {
	byDate := make(map[string][]BlockedDay, len(rows))
	for _, r := range rows {
		k := dayKey(r.Date)
		byDate[k] = append(byDate[k], r)
	}
	return &BlockSet{byDate: byDate}
}

// Blocked reports whether d is blocked for courseID. An empty courseID
// matches only global records, which is what the calculator needs when no
// course is given.
func (s *BlockSet) Blocked(d time.Time, courseID string) bool {
	for _, r := range s.byDate[dayKey(d)] {
		if r.appliesTo(courseID) {
			return true
		}
	}
	return false
}

// Reasons returns the block records applying to d for courseID, for display
// alongside the attendance grid. Read path only.
func (s *BlockSet) Reasons(d time.Time, courseID string) []BlockedDay {
	var out []BlockedDay
	for _, r := range s.byDate[dayKey(d)] {
		if r.appliesTo(courseID) {
			out = append(out, r)
		}
	}
	return out
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

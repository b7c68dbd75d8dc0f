package schoolday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func TestBlockSet_CourseAndGlobalRecords(t *testing.T) {
	set := NewBlockSet([]BlockedDay{
		{Date: day(2025, time.March, 15), CourseID: strPtr("course-x"), Reason: "salida pedagógica"},
		{Date: day(2025, time.March, 17), Reason: "corte de agua", Resolution: "RES-2025-031"},
	})

	// Course-specific block hits only its course.
	assert.True(t, set.Blocked(day(2025, time.March, 15), "course-x"))
	assert.False(t, set.Blocked(day(2025, time.March, 15), "course-y"))
	assert.False(t, set.Blocked(day(2025, time.March, 15), ""))

	// Global block hits every course and the global-only lookup.
	assert.True(t, set.Blocked(day(2025, time.March, 17), "course-x"))
	assert.True(t, set.Blocked(day(2025, time.March, 17), "course-y"))
	assert.True(t, set.Blocked(day(2025, time.March, 17), ""))

	assert.False(t, set.Blocked(day(2025, time.March, 16), "course-x"))
}

func TestBlockSet_MultipleRecordsSameDate(t *testing.T) {
	set := NewBlockSet([]BlockedDay{
		{Date: day(2025, time.June, 2), CourseID: strPtr("course-x"), Reason: "evaluación externa"},
		{Date: day(2025, time.June, 2), Reason: "suspensión comunal", Resolution: "RES-2025-104"},
	})

	reasons := set.Reasons(day(2025, time.June, 2), "course-x")
	assert.Len(t, reasons, 2)

	reasons = set.Reasons(day(2025, time.June, 2), "course-y")
	assert.Len(t, reasons, 1)
	assert.Equal(t, "suspensión comunal", reasons[0].Reason)
}

func TestBlockSet_EmptyRows(t *testing.T) {
	set := NewBlockSet(nil)
	assert.False(t, set.Blocked(day(2025, time.March, 15), "course-x"))
	assert.Empty(t, set.Reasons(day(2025, time.March, 15), "course-x"))
}

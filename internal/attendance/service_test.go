package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asistencia/internal/calendar"
	"asistencia/internal/queue"
	"asistencia/internal/schoolday"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeStore struct {
	courses []Course
	periods []calendar.AcademicPeriod
	blocked map[string][]schoolday.BlockedDay
	spans   map[string][]schoolday.EnrollmentSpan
	roster  map[string][]schoolday.Student
	marks   map[string][]schoolday.Mark

	failRoster map[string]bool
	saved      [][]schoolday.Mark
}

func (f *fakeStore) Courses(context.Context) ([]Course, error) { return f.courses, nil }

func (f *fakeStore) PeriodsForYear(context.Context, int) ([]calendar.AcademicPeriod, error) {
	return f.periods, nil
}

func (f *fakeStore) BlockedDays(_ context.Context, courseID string, _, _ time.Time) ([]schoolday.BlockedDay, error) {
	return f.blocked[courseID], nil
}

func (f *fakeStore) Spans(_ context.Context, courseID string, _, _ time.Time) ([]schoolday.EnrollmentSpan, error) {
	return f.spans[courseID], nil
}

func (f *fakeStore) Roster(_ context.Context, courseID string, _, _ time.Time) ([]schoolday.Student, error) {
	if f.failRoster[courseID] {
		return nil, errors.New("connection reset")
	}
	return f.roster[courseID], nil
}

func (f *fakeStore) Marks(_ context.Context, courseID string, _, _ time.Time) ([]schoolday.Mark, error) {
	return f.marks[courseID], nil
}

func (f *fakeStore) SaveMarks(_ context.Context, marks []schoolday.Mark) error {
	f.saved = append(f.saved, marks)
	return nil
}

// march2025Store seeds one course with one student enrolled from 03-10 and
// present on every working day from then on.
func march2025Store() *fakeStore {
	st := &fakeStore{
		courses: []Course{{ID: "course-x", Name: "4° Básico A"}},
		periods: []calendar.AcademicPeriod{
			{Name: "S1", Start: day(2025, time.March, 5), End: day(2025, time.July, 12)},
			{Name: "S2", Start: day(2025, time.July, 29), End: day(2025, time.December, 20)},
		},
		blocked: map[string][]schoolday.BlockedDay{},
		spans: map[string][]schoolday.EnrollmentSpan{
			"course-x": {{StudentID: "st-1", CourseID: "course-x", EnrollmentDate: day(2025, time.March, 10), Current: true}},
		},
		roster: map[string][]schoolday.Student{
			"course-x": {{ID: "st-1", Surname: "Fuentes", GivenName: "Camila"}},
		},
		marks:      map[string][]schoolday.Mark{},
		failRoster: map[string]bool{},
	}
	for d := day(2025, time.March, 10); d.Month() == time.March; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		st.marks["course-x"] = append(st.marks["course-x"], schoolday.Mark{
			StudentID: "st-1", CourseID: "course-x", Date: d, Present: true,
		})
	}
	return st
}

func newTestService(st Store) *Service {
	return NewService(Options{Store: st})
}

func TestMonthSummaries(t *testing.T) {
	svc := newTestService(march2025Store())

	sums, err := svc.MonthSummaries(context.Background(), "course-x", 2025, time.March)
	require.NoError(t, err)
	require.Len(t, sums, 1)

	assert.Equal(t, 16, sums[0].DaysObligatory)
	assert.Equal(t, 16, sums[0].DaysPresent)
	assert.True(t, sums[0].Perfect)
}

func TestMonthSummaries_InvalidMonth(t *testing.T) {
	svc := newTestService(march2025Store())
	_, err := svc.MonthSummaries(context.Background(), "course-x", 2025, time.Month(13))
	assert.ErrorIs(t, err, schoolday.ErrInvalidMonth)
}

func TestPerfectByCourse_PartialFailure(t *testing.T) {
	st := march2025Store()
	st.courses = append(st.courses, Course{ID: "course-y", Name: "4° Básico B"})
	st.failRoster["course-y"] = true

	svc := newTestService(st)
	results, err := svc.PerfectByCourse(context.Background(), 2025, time.March)
	require.NoError(t, err, "one failing course must not abort the batch")
	require.Len(t, results, 2)

	assert.NoError(t, results[0].Err)
	assert.Len(t, results[0].Perfect, 1)
	assert.Equal(t, 1, results[0].TotalStudents)

	assert.Error(t, results[1].Err)
	assert.Empty(t, results[1].Perfect)
}

func TestPerfectAttendance_FlattensAndReportsFailures(t *testing.T) {
	st := march2025Store()
	st.courses = append(st.courses, Course{ID: "course-y", Name: "4° Básico B"})
	st.failRoster["course-y"] = true

	svc := newTestService(st)
	students, failed, err := svc.PerfectAttendance(context.Background(), 2025, time.March)
	require.NoError(t, err)

	require.Len(t, students, 1)
	assert.Equal(t, "st-1", students[0].StudentID)
	require.Len(t, failed, 1)
	assert.Equal(t, "course-y", failed[0].ID)
}

func TestPerfectByCourse_ZeroObligatoryExcluded(t *testing.T) {
	st := march2025Store()
	// Student enrolled only over the 03-01/03-02 weekend: zero obligatory
	// days, must never appear as perfect.
	withdraw := day(2025, time.March, 2)
	st.spans["course-x"] = []schoolday.EnrollmentSpan{{
		StudentID: "st-1", CourseID: "course-x",
		EnrollmentDate: day(2025, time.March, 1), WithdrawalDate: &withdraw,
	}}
	st.marks["course-x"] = nil

	svc := newTestService(st)
	results, err := svc.PerfectByCourse(context.Background(), 2025, time.March)
	require.NoError(t, err)

	assert.Equal(t, 1, results[0].TotalStudents)
	assert.Empty(t, results[0].Perfect)
}

func TestWorkingDays_UsesCourseBlocks(t *testing.T) {
	st := march2025Store()
	courseX := "course-x"
	st.blocked["course-x"] = []schoolday.BlockedDay{
		{Date: day(2025, time.March, 14), CourseID: &courseX, Reason: "jornada docente"},
	}

	svc := newTestService(st)
	days, err := svc.WorkingDays(context.Background(), "course-x", 2025, time.March)
	require.NoError(t, err)
	require.Len(t, days, 31)
	assert.True(t, days[13].Blocked)
	assert.False(t, days[13].Obligatory)
}

func TestBlockReasons(t *testing.T) {
	st := march2025Store()
	st.blocked[""] = []schoolday.BlockedDay{
		{Date: day(2025, time.March, 17), Reason: "suspensión comunal", Resolution: "RES-2025-031"},
	}

	svc := newTestService(st)
	reasons, err := svc.BlockReasons(context.Background(), day(2025, time.March, 17), "")
	require.NoError(t, err)
	require.Len(t, reasons, 1)
	assert.Equal(t, "RES-2025-031", reasons[0].Resolution)
}

func TestEnqueueMarks_PublishesBatch(t *testing.T) {
	st := march2025Store()
	q := queue.NewInMemory(1)
	svc := NewService(Options{Store: st, Queue: q})

	marks := []schoolday.Mark{{StudentID: "st-1", CourseID: "course-x", Date: day(2025, time.March, 10), Present: true}}
	require.NoError(t, svc.EnqueueMarks(context.Background(), marks))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case msg := <-messages:
		assert.Equal(t, SaveMarksMessage, msg.Type)
		var got []schoolday.Mark
		require.NoError(t, json.Unmarshal(msg.Body, &got))
		assert.Equal(t, marks, got)
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}
	assert.Empty(t, st.saved, "queued batches are not saved synchronously")
}

func TestEnqueueMarks_SynchronousWithoutQueue(t *testing.T) {
	st := march2025Store()
	svc := newTestService(st)

	marks := []schoolday.Mark{{StudentID: "st-1", CourseID: "course-x", Date: day(2025, time.March, 10), Present: true}}
	require.NoError(t, svc.EnqueueMarks(context.Background(), marks))
	require.Len(t, st.saved, 1)
	assert.Equal(t, marks, st.saved[0])
}

func TestEnqueueMarks_EmptyBatchRejected(t *testing.T) {
	svc := newTestService(march2025Store())
	assert.Error(t, svc.EnqueueMarks(context.Background(), nil))
}

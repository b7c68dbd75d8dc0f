package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"asistencia/internal/calendar"
	"asistencia/internal/metrics"
	"asistencia/internal/queue"
	"asistencia/internal/schoolday"
)

// SaveMarksMessage tags queue messages carrying a JSON-encoded mark batch.
const SaveMarksMessage = "marks.save"

// Store is the data access the service depends on. *Repository satisfies it;
// tests supply fakes.
type Store interface {
	Courses(ctx context.Context) ([]Course, error)
	PeriodsForYear(ctx context.Context, year int) ([]calendar.AcademicPeriod, error)
	BlockedDays(ctx context.Context, courseID string, from, to time.Time) ([]schoolday.BlockedDay, error)
	Spans(ctx context.Context, courseID string, from, to time.Time) ([]schoolday.EnrollmentSpan, error)
	Roster(ctx context.Context, courseID string, from, to time.Time) ([]schoolday.Student, error)
	Marks(ctx context.Context, courseID string, from, to time.Time) ([]schoolday.Mark, error)
	SaveMarks(ctx context.Context, marks []schoolday.Mark) error
}

// Options wires a Service. Queue and Cache are optional: without a queue,
// mark batches are saved synchronously; without a cache, working days are
// recomputed per request.
type Options struct {
	Store    Store
	Holidays *calendar.HolidayCalendar
	Queue    queue.Queue
	Cache    *redis.Client
	CacheTTL time.Duration
	Log      *zap.Logger
}

// Service composes repository rows into engine inputs and runs the
// eligibility computations the endpoints render.
type Service struct {
	store    Store
	holidays *calendar.HolidayCalendar
	queue    queue.Queue
	cache    *redis.Client
	cacheTTL time.Duration
	log      *zap.Logger
}

// NewService creates a service.
func NewService(opts Options) *Service {
	if opts.Holidays == nil {
		opts.Holidays = calendar.NewHolidayCalendar()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &Service{
		store:    opts.Store,
		holidays: opts.Holidays,
		queue:    opts.Queue,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		log:      opts.Log,
	}
}

// WorkingDays returns the tagged month calendar for a course, cached per
// (year, month, course) when Redis is configured. Cache trouble is logged
// and otherwise ignored: the computation is cheap enough to redo.
func (s *Service) WorkingDays(ctx context.Context, courseID string, year int, month time.Month) ([]schoolday.WorkingDay, error) {
	key := fmt.Sprintf("workdays:%d:%02d:%s", year, int(month), courseID)
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var days []schoolday.WorkingDay
			if jerr := json.Unmarshal(raw, &days); jerr == nil {
				metrics.CacheHits.Inc()
				return days, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Debug("workday cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.CacheMisses.Inc()
	}

	days, err := s.computeWorkingDays(ctx, courseID, year, month)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, jerr := json.Marshal(days); jerr == nil {
			if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
				s.log.Debug("workday cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return days, nil
}

func (s *Service) computeWorkingDays(ctx context.Context, courseID string, year int, month time.Month) ([]schoolday.WorkingDay, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: %d", schoolday.ErrInvalidMonth, month)
	}

	periods, err := s.store.PeriodsForYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("fetch periods for %d: %w", year, err)
	}

	from, to := schoolday.MonthBounds(year, month)
	blocked, err := s.store.BlockedDays(ctx, courseID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch blocked days: %w", err)
	}

	calc := schoolday.NewCalculator(s.holidays, calendar.NewPeriodSet(periods), schoolday.NewBlockSet(blocked))
	return calc.MonthDays(year, month, courseID)
}

// MonthSummaries computes the per-student summaries for a course and month,
// ordered by surname then given name under Spanish collation.
func (s *Service) MonthSummaries(ctx context.Context, courseID string, year int, month time.Month) ([]schoolday.Summary, error) {
	days, err := s.WorkingDays(ctx, courseID, year, month)
	if err != nil {
		return nil, err
	}

	from, to := schoolday.MonthBounds(year, month)
	roster, err := s.store.Roster(ctx, courseID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	spans, err := s.store.Spans(ctx, courseID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch spans: %w", err)
	}
	marks, err := s.store.Marks(ctx, courseID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch marks: %w", err)
	}

	sums := schoolday.SummarizeCourse(courseID, roster, days, spans, marks)
	metrics.SummariesComputed.Add(float64(len(sums)))
	return sums, nil
}

// CourseResult groups one course's perfect-attendance outcome. Err is set
// when that course could not be computed; the rest of the batch proceeds
// regardless, so callers can tell "computed zero" from "could not compute".
type CourseResult struct {
	Course        Course
	TotalStudents int
	Perfect       []schoolday.Summary
	Err           error
}

// PerfectByCourse computes the perfect-attendance list for every course,
// grouped with per-course totals. Students with no obligatory days are never
// listed as perfect.
func (s *Service) PerfectByCourse(ctx context.Context, year int, month time.Month) ([]CourseResult, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: %d", schoolday.ErrInvalidMonth, month)
	}
	courses, err := s.store.Courses(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch courses: %w", err)
	}

	out := make([]CourseResult, 0, len(courses))
	for _, c := range courses {
		res := CourseResult{Course: c}
		sums, err := s.MonthSummaries(ctx, c.ID, year, month)
		if err != nil {
			if errors.Is(err, schoolday.ErrInvalidMonth) {
				return nil, err
			}
			s.log.Warn("course summary failed", zap.String("course", c.ID), zap.Error(err))
			res.Err = err
			out = append(out, res)
			continue
		}
		res.TotalStudents = len(sums)
		for _, sum := range sums {
			if sum.Perfect {
				res.Perfect = append(res.Perfect, sum)
			}
		}
		out = append(out, res)
	}
	return out, nil
}

// PerfectAttendance flattens PerfectByCourse into a single school-wide list
// plus the courses that failed to compute.
func (s *Service) PerfectAttendance(ctx context.Context, year int, month time.Month) ([]schoolday.Summary, []Course, error) {
	results, err := s.PerfectByCourse(ctx, year, month)
	if err != nil {
		return nil, nil, err
	}

	var all []schoolday.Summary
	var failed []Course
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.Course)
			continue
		}
		all = append(all, r.Perfect...)
	}
	schoolday.SortSummaries(all)
	return all, failed, nil
}

// BlockReasons returns the block records applying to a date for a course,
// for display next to the attendance grid.
func (s *Service) BlockReasons(ctx context.Context, date time.Time, courseID string) ([]schoolday.BlockedDay, error) {
	rows, err := s.store.BlockedDays(ctx, courseID, date, date)
	if err != nil {
		return nil, fmt.Errorf("fetch blocked days: %w", err)
	}
	return schoolday.NewBlockSet(rows).Reasons(date, courseID), nil
}

// EnqueueMarks publishes a mark batch for the worker to upsert. Without a
// queue configured the batch is saved synchronously instead.
func (s *Service) EnqueueMarks(ctx context.Context, marks []schoolday.Mark) error {
	if len(marks) == 0 {
		return errors.New("empty mark batch")
	}
	if s.queue == nil {
		return s.SaveMarks(ctx, marks)
	}
	body, err := json.Marshal(marks)
	if err != nil {
		return err
	}
	if err := s.queue.Publish(ctx, queue.Message{Type: SaveMarksMessage, Body: body}); err != nil {
		return fmt.Errorf("publish mark batch: %w", err)
	}
	metrics.QueuePublished.Inc()
	return nil
}

// SaveMarks upserts a batch directly. Used by the worker and by the
// synchronous fallback.
func (s *Service) SaveMarks(ctx context.Context, marks []schoolday.Mark) error {
	if err := s.store.SaveMarks(ctx, marks); err != nil {
		return fmt.Errorf("save marks: %w", err)
	}
	metrics.WorkerSaves.Inc()
	return nil
}

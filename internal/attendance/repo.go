package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"asistencia/internal/calendar"
	"asistencia/internal/schoolday"
)

// Repository reads the attendance tables in Postgres. All reads are batched
// per (course, month) so the engine never issues one query per day or per
// student.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Course is a minimal course row.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Courses lists every course, ordered by name.
func (r *Repository) Courses(ctx context.Context) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, nombre FROM cursos ORDER BY nombre
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PeriodsForYear returns the academic periods whose start date falls within
// the year. Zero rows is not an error: the resolver synthesizes fallback
// semesters in that case.
func (r *Repository) PeriodsForYear(ctx context.Context, year int) ([]calendar.AcademicPeriod, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows, err := r.db.QueryContext(ctx, `
		SELECT nombre, fecha_inicio, fecha_fin
		FROM periodos_academicos
		WHERE fecha_inicio >= $1 AND fecha_inicio < $2
		ORDER BY fecha_inicio
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calendar.AcademicPeriod
	for rows.Next() {
		var p calendar.AcademicPeriod
		if err := rows.Scan(&p.Name, &p.Start, &p.End); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// BlockedDays returns the block records touching [from, to] that apply to
// courseID, global records included. An empty courseID fetches global
// records only.
func (r *Repository) BlockedDays(ctx context.Context, courseID string, from, to time.Time) ([]schoolday.BlockedDay, error) {
	query := `
		SELECT fecha, curso_id, motivo, resolucion
		FROM dias_bloqueados
		WHERE fecha >= $1 AND fecha <= $2 AND curso_id IS NULL
	`
	args := []any{from, to}
	if courseID != "" {
		query = `
		SELECT fecha, curso_id, motivo, resolucion
		FROM dias_bloqueados
		WHERE fecha >= $1 AND fecha <= $2 AND (curso_id IS NULL OR curso_id = $3)
	`
		args = append(args, courseID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schoolday.BlockedDay
	for rows.Next() {
		var b schoolday.BlockedDay
		if err := rows.Scan(&b.Date, &b.CourseID, &b.Reason, &b.Resolution); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Spans returns every enrollment span of the course overlapping [from, to].
func (r *Repository) Spans(ctx context.Context, courseID string, from, to time.Time) ([]schoolday.EnrollmentSpan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT estudiante_id, curso_id, fecha_matricula, fecha_retiro, es_actual
		FROM matriculas
		WHERE curso_id = $1
		  AND fecha_matricula <= $3
		  AND (fecha_retiro IS NULL OR fecha_retiro >= $2)
	`, courseID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schoolday.EnrollmentSpan
	for rows.Next() {
		var s schoolday.EnrollmentSpan
		var withdrawal sql.NullTime
		if err := rows.Scan(&s.StudentID, &s.CourseID, &s.EnrollmentDate, &withdrawal, &s.Current); err != nil {
			return nil, err
		}
		if withdrawal.Valid {
			t := withdrawal.Time
			s.WithdrawalDate = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Roster returns the students with a span overlapping [from, to] in the
// course, with the name fields the summaries are ordered by.
func (r *Repository) Roster(ctx context.Context, courseID string, from, to time.Time) ([]schoolday.Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT u.id, u.nombres, u.apellidos
		FROM usuarios u
		JOIN matriculas m ON m.estudiante_id = u.id
		WHERE m.curso_id = $1
		  AND m.fecha_matricula <= $3
		  AND (m.fecha_retiro IS NULL OR m.fecha_retiro >= $2)
	`, courseID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schoolday.Student
	for rows.Next() {
		var s schoolday.Student
		if err := rows.Scan(&s.ID, &s.GivenName, &s.Surname); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Marks returns the attendance marks of the course within [from, to].
func (r *Repository) Marks(ctx context.Context, courseID string, from, to time.Time) ([]schoolday.Mark, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT estudiante_id, curso_id, fecha, presente, justificado
		FROM asistencia
		WHERE curso_id = $1 AND fecha >= $2 AND fecha <= $3
	`, courseID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schoolday.Mark
	for rows.Next() {
		var m schoolday.Mark
		if err := rows.Scan(&m.StudentID, &m.CourseID, &m.Date, &m.Present, &m.Justified); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveMarks bulk-upserts marks, last write wins per (student, date). The
// whole batch commits or rolls back together.
func (r *Repository) SaveMarks(ctx context.Context, marks []schoolday.Mark) error {
	if len(marks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO asistencia (id, estudiante_id, curso_id, fecha, presente, justificado)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (estudiante_id, fecha) DO UPDATE SET
			curso_id = EXCLUDED.curso_id,
			presente = EXCLUDED.presente,
			justificado = EXCLUDED.justificado,
			updated_at = NOW()
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range marks {
		if m.StudentID == "" {
			return errors.New("mark without student id")
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), m.StudentID, m.CourseID, m.Date, m.Present, m.Justified); err != nil {
			return err
		}
	}
	return tx.Commit()
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn database
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `
	id, full_name, class_name, gender, avg_grade, grade_trend,
	absences, unexcused_absences, low_activity, homework_completion,
	teacher_alerts, subjects_at_risk
`

// GetByID returns a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	row := r.conn.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	s, err := scanStudent(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// List returns students matching the filter ordered by class and name.
func (r *StudentRepository) List(ctx context.Context, filter student.ListFilter) ([]student.Student, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + studentColumns + ` FROM students
		WHERE ($1 = '' OR class_name = $1)
		ORDER BY class_name, full_name, id`

	rows, err := r.conn.Query(ctx, query, filter.ClassName)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	out := []student.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ListClasses returns distinct class names.
func (r *StudentRepository) ListClasses(ctx context.Context) ([]string, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT DISTINCT class_name FROM students ORDER BY class_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	classes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan classes: %w", err)
	}
	return classes, nil
}

// Upsert inserts or updates snapshots in one transaction.
func (r *StudentRepository) Upsert(ctx context.Context, students ...student.Student) error {
	if len(students) == 0 {
		return nil
	}

	query := `
		INSERT INTO students (` + studentColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			class_name = EXCLUDED.class_name,
			gender = EXCLUDED.gender,
			avg_grade = EXCLUDED.avg_grade,
			grade_trend = EXCLUDED.grade_trend,
			absences = EXCLUDED.absences,
			unexcused_absences = EXCLUDED.unexcused_absences,
			low_activity = EXCLUDED.low_activity,
			homework_completion = EXCLUDED.homework_completion,
			teacher_alerts = EXCLUDED.teacher_alerts,
			subjects_at_risk = EXCLUDED.subjects_at_risk,
			updated_at = NOW()
	`

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, s := range students {
			batch.Queue(query,
				s.ID,
				s.FullName,
				s.ClassName,
				string(s.Gender),
				s.AvgGrade,
				s.GradeTrend,
				s.Absences,
				s.UnexcusedAbsences,
				s.LowActivity,
				s.HomeworkCompletion,
				s.TeacherAlerts,
				s.SubjectNames(),
			)
		}

		results := tx.SendBatch(ctx, batch)
		for i := range students {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to upsert student %s: %w", students[i].ID, err)
			}
		}
		return results.Close()
	})
}

// Count returns the number of students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return n, nil
}

func scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s        student.Student
		gender   string
		subjects []string
	)
	err := row.Scan(
		&s.ID,
		&s.FullName,
		&s.ClassName,
		&gender,
		&s.AvgGrade,
		&s.GradeTrend,
		&s.Absences,
		&s.UnexcusedAbsences,
		&s.LowActivity,
		&s.HomeworkCompletion,
		&s.TeacherAlerts,
		&subjects,
	)
	if err != nil {
		return nil, err
	}

	s.Gender = student.Gender(gender)
	if len(subjects) > 0 {
		s.SubjectsAtRisk = make([]student.SubjectCode, len(subjects))
		for i, code := range subjects {
			s.SubjectsAtRisk[i] = student.SubjectCode(code)
		}
	}
	return &s, nil
}

var _ student.Repository = (*StudentRepository)(nil)

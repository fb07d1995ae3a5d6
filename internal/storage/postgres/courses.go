package postgres

import (
	"context"
	"errors"
	"fmt"

	"ce_platform/internal/models"
	"ce_platform/internal/storage"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
)

func (r *PostgresRepo) SaveCourse(ctx context.Context, c *models.Course) (int64, error) {
	const op = "storage.postgres.SaveCourse"

	query := `
		INSERT INTO courses (course_number, title, instructor, ce_hours, session_date, price_cents, visible)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		c.CourseNumber,
		c.Title,
		c.Instructor,
		c.CEHours,
		c.SessionDate,
		c.PriceCents,
		c.Visible,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) UpdateCourse(ctx context.Context, c *models.Course) error {
	const op = "storage.postgres.UpdateCourse"

	query := `
		UPDATE courses
		SET course_number = $2, title = $3, instructor = $4, ce_hours = $5,
		    session_date = $6, price_cents = $7, visible = $8
		WHERE id = $1;
	`

	tag, err := r.pool.Exec(ctx, query,
		c.ID,
		c.CourseNumber,
		c.Title,
		c.Instructor,
		c.CEHours,
		c.SessionDate,
		c.PriceCents,
		c.Visible,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrCourseNotFound
	}

	return nil
}

func (r *PostgresRepo) Course(ctx context.Context, id int64) (models.Course, error) {
	query := `
		SELECT id, course_number, title, instructor, ce_hours, session_date, price_cents, visible, created_at
		FROM courses
		WHERE id = $1;
	`

	var c models.Course
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.CourseNumber,
		&c.Title,
		&c.Instructor,
		&c.CEHours,
		&c.SessionDate,
		&c.PriceCents,
		&c.Visible,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Course{}, storage.ErrCourseNotFound
	}

	return c, err
}

func (r *PostgresRepo) Courses(ctx context.Context, visibleOnly bool) ([]models.Course, error) {
	const op = "storage.postgres.Courses"

	query := `
		SELECT id, course_number, title, instructor, ce_hours, session_date, price_cents, visible, created_at
		FROM courses
	`
	if visibleOnly {
		query += ` WHERE visible = TRUE`
	}
	query += ` ORDER BY session_date NULLS LAST, id;`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var c models.Course
		err := rows.Scan(
			&c.ID,
			&c.CourseNumber,
			&c.Title,
			&c.Instructor,
			&c.CEHours,
			&c.SessionDate,
			&c.PriceCents,
			&c.Visible,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		courses = append(courses, c)
	}

	return courses, rows.Err()
}

func (r *PostgresRepo) SaveEnrollment(ctx context.Context, courseID, userID int64) (int64, error) {
	const op = "storage.postgres.SaveEnrollment"

	query := `
		INSERT INTO enrollments (course_id, user_id)
		VALUES ($1, $2)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, courseID, userID).Scan(&id)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return 0, storage.ErrAlreadyEnrolled
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) EnrollmentsByCourse(ctx context.Context, courseID int64) ([]models.Enrollment, error) {
	const op = "storage.postgres.EnrollmentsByCourse"

	query := `
		SELECT id, course_id, user_id, enrolled_at
		FROM enrollments
		WHERE course_id = $1
		ORDER BY enrolled_at;
	`

	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var enrollments []models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.ID, &e.CourseID, &e.UserID, &e.EnrolledAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		enrollments = append(enrollments, e)
	}

	return enrollments, rows.Err()
}

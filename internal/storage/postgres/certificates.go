package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ce_platform/internal/models"
	"ce_platform/internal/storage"

	"github.com/jackc/pgx/v5"
)

const certificateColumns = `
	id, course_id, user_id, external_enrollment_id, external_email,
	certificate_number, holder_name, course_title, course_number,
	instructor, school_name, ce_hours, course_date, issued_at,
	reissue_count, last_reissued_at, email_sent, email_sent_at
`

func scanCertificate(row pgx.Row) (models.Certificate, error) {
	var c models.Certificate
	err := row.Scan(
		&c.ID,
		&c.CourseID,
		&c.UserID,
		&c.ExternalEnrollmentID,
		&c.ExternalEmail,
		&c.Number,
		&c.HolderName,
		&c.CourseTitle,
		&c.CourseNumber,
		&c.Instructor,
		&c.SchoolName,
		&c.CEHours,
		&c.CourseDate,
		&c.IssuedAt,
		&c.ReissueCount,
		&c.LastReissuedAt,
		&c.EmailSent,
		&c.EmailSentAt,
	)

	return c, err
}

// CertificateExists checks for a prior issuance to the same recipient for
// the same course, which is how the no-duplicate policy is enforced.
// Exactly one of userID, externalEnrollmentID, externalEmail is set.
func (r *PostgresRepo) CertificateExists(
	ctx context.Context,
	courseID int64,
	userID *int64,
	externalEnrollmentID *int64,
	externalEmail string,
) (bool, error) {
	const op = "storage.postgres.CertificateExists"

	var (
		query string
		arg   any
	)

	switch {
	case userID != nil:
		query = `SELECT EXISTS (SELECT 1 FROM certificates WHERE course_id = $1 AND user_id = $2)`
		arg = *userID
	case externalEnrollmentID != nil:
		query = `SELECT EXISTS (SELECT 1 FROM certificates WHERE course_id = $1 AND external_enrollment_id = $2)`
		arg = *externalEnrollmentID
	default:
		query = `SELECT EXISTS (SELECT 1 FROM certificates WHERE course_id = $1 AND external_email = $2)`
		arg = externalEmail
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, query, courseID, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func (r *PostgresRepo) SaveCertificate(ctx context.Context, c *models.Certificate) (int64, error) {
	const op = "storage.postgres.SaveCertificate"

	query := `
		INSERT INTO certificates (
			course_id, user_id, external_enrollment_id, external_email,
			certificate_number, holder_name, course_title, course_number,
			instructor, school_name, ce_hours, course_date, issued_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		c.CourseID,
		c.UserID,
		c.ExternalEnrollmentID,
		c.ExternalEmail,
		c.Number,
		c.HolderName,
		c.CourseTitle,
		c.CourseNumber,
		c.Instructor,
		c.SchoolName,
		c.CEHours,
		c.CourseDate,
		c.IssuedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) Certificate(ctx context.Context, id int64) (models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1;`

	c, err := scanCertificate(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Certificate{}, storage.ErrCertificateNotFound
		}

		return models.Certificate{}, err
	}

	return c, nil
}

func (r *PostgresRepo) Certificates(ctx context.Context) ([]models.Certificate, error) {
	const op = "storage.postgres.Certificates"

	query := `SELECT ` + certificateColumns + ` FROM certificates ORDER BY issued_at DESC;`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var certs []models.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		certs = append(certs, c)
	}

	return certs, rows.Err()
}

// ReissueCertificate refreshes issued_at and bumps the reissue counter on
// the existing row. Reissue never creates a second certificate.
func (r *PostgresRepo) ReissueCertificate(ctx context.Context, id int64, issuedAt time.Time) (models.Certificate, error) {
	const op = "storage.postgres.ReissueCertificate"

	query := `
		UPDATE certificates
		SET issued_at = $2, reissue_count = reissue_count + 1, last_reissued_at = $2
		WHERE id = $1
		RETURNING ` + certificateColumns + `;`

	c, err := scanCertificate(r.pool.QueryRow(ctx, query, id, issuedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Certificate{}, storage.ErrCertificateNotFound
		}

		return models.Certificate{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (r *PostgresRepo) MarkCertificateEmailSent(ctx context.Context, id int64, sentAt time.Time) error {
	const op = "storage.postgres.MarkCertificateEmailSent"

	query := `UPDATE certificates SET email_sent = TRUE, email_sent_at = $2 WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, sentAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) ExternalEnrollment(ctx context.Context, id int64) (models.ExternalEnrollment, error) {
	query := `
		SELECT id, course_id, first_name, last_name, email, created_at
		FROM external_enrollments
		WHERE id = $1;
	`

	var e models.ExternalEnrollment
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.CourseID,
		&e.FirstName,
		&e.LastName,
		&e.Email,
		&e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ExternalEnrollment{}, storage.ErrEnrollmentNotFound
	}

	return e, err
}

func (r *PostgresRepo) SaveExternalEnrollment(ctx context.Context, e *models.ExternalEnrollment) (int64, error) {
	const op = "storage.postgres.SaveExternalEnrollment"

	query := `
		INSERT INTO external_enrollments (course_id, first_name, last_name, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, e.CourseID, e.FirstName, e.LastName, e.Email).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

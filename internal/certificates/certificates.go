// Package certificates issues, reissues and delivers course completion
// certificates for three recipient kinds: registered users, external
// enrollments, and bare email addresses.
package certificates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ce_platform/internal/certificates/pdf"
	"ce_platform/internal/config"
	"ce_platform/internal/lib/emailaddr"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"
)

var (
	ErrAlreadyIssued      = errors.New("certificate already issued for this recipient")
	ErrAmbiguousRecipient = errors.New("exactly one recipient kind must be set")
	ErrInvalidEmail       = errors.New("invalid recipient email")
	ErrNoRecipientEmail   = errors.New("could not determine recipient email")
)

type Store interface {
	Course(ctx context.Context, id int64) (models.Course, error)
	UserByID(ctx context.Context, id int64) (models.Profile, error)
	ExternalEnrollment(ctx context.Context, id int64) (models.ExternalEnrollment, error)

	CertificateExists(ctx context.Context, courseID int64, userID, externalEnrollmentID *int64, externalEmail string) (bool, error)
	SaveCertificate(ctx context.Context, c *models.Certificate) (int64, error)
	Certificate(ctx context.Context, id int64) (models.Certificate, error)
	Certificates(ctx context.Context) ([]models.Certificate, error)
	ReissueCertificate(ctx context.Context, id int64, issuedAt time.Time) (models.Certificate, error)
	MarkCertificateEmailSent(ctx context.Context, id int64, sentAt time.Time) error
}

type Dispatcher interface {
	DispatchAttachment(ctx context.Context, recipient, subject, html, text, category, attachmentName string, attachment []byte) (string, error)
	Enqueue(ctx context.Context, job models.EmailJob) error
}

type Service struct {
	log        *slog.Logger
	store      Store
	dispatcher Dispatcher
	brand      config.Branding
}

func New(log *slog.Logger, store Store, dispatcher Dispatcher, brand config.Branding) *Service {
	return &Service{
		log:        log,
		store:      store,
		dispatcher: dispatcher,
		brand:      brand,
	}
}

// IssueRequest identifies the course and exactly one recipient.
type IssueRequest struct {
	CourseID             int64
	UserID               *int64
	ExternalEnrollmentID *int64
	ExternalEmail        string
	HolderName           string
	CEHours              float64
}

// Issue creates a certificate under the no-duplicate policy: one
// certificate per (course, recipient), checked before insert. The course
// fields are snapshotted onto the certificate so later course edits do
// not rewrite history.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (models.Certificate, error) {
	const op = "certificates.Service.Issue"

	log := s.log.With(slog.String("op", op), slog.Int64("course_id", req.CourseID))

	if err := validateRecipient(req); err != nil {
		return models.Certificate{}, err
	}

	course, err := s.store.Course(ctx, req.CourseID)
	if err != nil {
		return models.Certificate{}, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := s.store.CertificateExists(ctx, req.CourseID, req.UserID, req.ExternalEnrollmentID, req.ExternalEmail)
	if err != nil {
		return models.Certificate{}, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return models.Certificate{}, ErrAlreadyIssued
	}

	holderName := req.HolderName
	if holderName == "" {
		holderName, err = s.resolveHolderName(ctx, req)
		if err != nil {
			return models.Certificate{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	ceHours := req.CEHours
	if ceHours == 0 {
		ceHours = course.CEHours
	}

	now := time.Now()

	cert := models.Certificate{
		CourseID:             course.ID,
		UserID:               req.UserID,
		ExternalEnrollmentID: req.ExternalEnrollmentID,
		ExternalEmail:        req.ExternalEmail,
		Number:               GenerateNumber(course.CourseNumber, now),
		HolderName:           holderName,
		CourseTitle:          course.Title,
		CourseNumber:         course.CourseNumber,
		Instructor:           course.Instructor,
		SchoolName:           s.brand.SchoolName,
		CEHours:              ceHours,
		CourseDate:           course.SessionDate,
		IssuedAt:             now,
	}

	id, err := s.store.SaveCertificate(ctx, &cert)
	if err != nil {
		log.Error("failed to save certificate", sl.Err(err))
		return models.Certificate{}, fmt.Errorf("%s: %w", op, err)
	}
	cert.ID = id

	log.Info("certificate issued",
		slog.Int64("certificate_id", id),
		slog.String("number", cert.Number),
	)

	return cert, nil
}

// Reissue refreshes issued_at and increments the reissue counter on the
// existing record. Certificates are never deleted or duplicated.
func (s *Service) Reissue(ctx context.Context, id int64) (models.Certificate, error) {
	const op = "certificates.Service.Reissue"

	cert, err := s.store.ReissueCertificate(ctx, id, time.Now())
	if err != nil {
		return models.Certificate{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("certificate reissued",
		slog.String("op", op),
		slog.Int64("certificate_id", id),
		slog.Int("reissue_count", cert.ReissueCount),
	)

	return cert, nil
}

func (s *Service) Certificate(ctx context.Context, id int64) (models.Certificate, error) {
	return s.store.Certificate(ctx, id)
}

func (s *Service) Certificates(ctx context.Context) ([]models.Certificate, error) {
	return s.store.Certificates(ctx)
}

// Render produces the PDF bytes for a certificate. Pure and
// deterministic; suitable for download or attachment.
func (s *Service) Render(cert models.Certificate) ([]byte, error) {
	data := pdf.Data{
		CertificateNumber: cert.Number,
		SchoolName:        cert.SchoolName,
		Instructor:        cert.Instructor,
		CourseTitle:       cert.CourseTitle,
		CourseNumber:      cert.CourseNumber,
		HolderName:        cert.HolderName,
		CEHours:           cert.CEHours,
		IssuedAt:          cert.IssuedAt,
	}
	if cert.CourseDate != nil {
		data.CourseDate = cert.CourseDate.Format("January 2, 2006")
	}

	return pdf.Render(data)
}

// Send renders the certificate and dispatches it as an attachment to the
// resolved recipient, then marks the record sent. The sent flag is
// best-effort, like the dispatch audit row: a failure to set it does not
// undo or fail the delivery.
func (s *Service) Send(ctx context.Context, id int64) (string, error) {
	const op = "certificates.Service.Send"

	log := s.log.With(slog.String("op", op), slog.Int64("certificate_id", id))

	cert, err := s.store.Certificate(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	recipient, err := s.resolveEmail(ctx, cert)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	doc, err := s.Render(cert)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	subject, html, text := renderCertificateEmail(s.brand, cert)

	messageID, err := s.dispatcher.DispatchAttachment(
		ctx, recipient, subject, html, text,
		"certificate", cert.Number+".pdf", doc,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.MarkCertificateEmailSent(ctx, id, time.Now()); err != nil {
		log.Warn("failed to mark certificate email sent", sl.Err(err))
	}

	log.Info("certificate sent", slog.String("recipient", recipient))

	return messageID, nil
}

// EnqueueSend queues the certificate email for the mail_sender worker
// instead of delivering inline. Used for bulk issuance.
func (s *Service) EnqueueSend(ctx context.Context, id int64) error {
	const op = "certificates.Service.EnqueueSend"

	cert, err := s.store.Certificate(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	recipient, err := s.resolveEmail(ctx, cert)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	doc, err := s.Render(cert)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	subject, html, text := renderCertificateEmail(s.brand, cert)

	return s.dispatcher.Enqueue(ctx, models.EmailJob{
		To:             recipient,
		Subject:        subject,
		HTML:           html,
		Text:           text,
		Category:       "certificate",
		AttachmentName: cert.Number + ".pdf",
		Attachment:     doc,
	})
}

func (s *Service) resolveHolderName(ctx context.Context, req IssueRequest) (string, error) {
	switch {
	case req.UserID != nil:
		user, err := s.store.UserByID(ctx, *req.UserID)
		if err != nil {
			return "", err
		}
		return user.DisplayName(), nil
	case req.ExternalEnrollmentID != nil:
		enr, err := s.store.ExternalEnrollment(ctx, *req.ExternalEnrollmentID)
		if err != nil {
			return "", err
		}
		return enr.DisplayName(), nil
	default:
		// Bare-email issuance with no name; the renderer substitutes
		// "Certificate Recipient".
		return "", nil
	}
}

func (s *Service) resolveEmail(ctx context.Context, cert models.Certificate) (string, error) {
	switch {
	case cert.UserID != nil:
		user, err := s.store.UserByID(ctx, *cert.UserID)
		if err != nil {
			return "", err
		}
		return user.Email, nil
	case cert.ExternalEnrollmentID != nil:
		enr, err := s.store.ExternalEnrollment(ctx, *cert.ExternalEnrollmentID)
		if err != nil {
			return "", err
		}
		return enr.Email, nil
	case cert.ExternalEmail != "":
		return cert.ExternalEmail, nil
	default:
		return "", ErrNoRecipientEmail
	}
}

func validateRecipient(req IssueRequest) error {
	count := 0
	if req.UserID != nil {
		count++
	}
	if req.ExternalEnrollmentID != nil {
		count++
	}
	if req.ExternalEmail != "" {
		if !emailaddr.Valid(req.ExternalEmail) {
			return fmt.Errorf("%w: %s", ErrInvalidEmail, req.ExternalEmail)
		}
		count++
	}
	if count != 1 {
		return ErrAmbiguousRecipient
	}

	return nil
}

package certificates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"ce_platform/internal/config"
	"ce_platform/internal/models"
	"ce_platform/internal/storage"
)

type stubStore struct {
	course     models.Course
	courseErr  error
	exists     bool
	existsErr  error
	saved      *models.Certificate
	cert       models.Certificate
	certErr    error
	enrollment models.ExternalEnrollment
	users      map[int64]models.Profile

	reissued    models.Certificate
	markedSent  int
	markSentErr error
}

func (s *stubStore) Course(_ context.Context, id int64) (models.Course, error) {
	if s.courseErr != nil {
		return models.Course{}, s.courseErr
	}
	return s.course, nil
}

func (s *stubStore) UserByID(_ context.Context, id int64) (models.Profile, error) {
	u, ok := s.users[id]
	if !ok {
		return models.Profile{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (s *stubStore) ExternalEnrollment(_ context.Context, id int64) (models.ExternalEnrollment, error) {
	if s.enrollment.ID != id {
		return models.ExternalEnrollment{}, storage.ErrEnrollmentNotFound
	}
	return s.enrollment, nil
}

func (s *stubStore) CertificateExists(_ context.Context, _ int64, _, _ *int64, _ string) (bool, error) {
	return s.exists, s.existsErr
}

func (s *stubStore) SaveCertificate(_ context.Context, c *models.Certificate) (int64, error) {
	s.saved = c
	return 42, nil
}

func (s *stubStore) Certificate(_ context.Context, id int64) (models.Certificate, error) {
	if s.certErr != nil {
		return models.Certificate{}, s.certErr
	}
	return s.cert, nil
}

func (s *stubStore) Certificates(_ context.Context) ([]models.Certificate, error) {
	return []models.Certificate{s.cert}, nil
}

func (s *stubStore) ReissueCertificate(_ context.Context, id int64, issuedAt time.Time) (models.Certificate, error) {
	s.reissued.IssuedAt = issuedAt
	s.reissued.ReissueCount++
	return s.reissued, nil
}

func (s *stubStore) MarkCertificateEmailSent(_ context.Context, _ int64, _ time.Time) error {
	s.markedSent++
	return s.markSentErr
}

type stubDispatcher struct {
	attachments    int
	enqueued       int
	lastRecipient  string
	lastAttachment string
	err            error
}

func (d *stubDispatcher) DispatchAttachment(_ context.Context, recipient, _, _, _, _ string, attachmentName string, _ []byte) (string, error) {
	d.attachments++
	d.lastRecipient = recipient
	d.lastAttachment = attachmentName
	if d.err != nil {
		return "", d.err
	}
	return "msg-1", nil
}

func (d *stubDispatcher) Enqueue(_ context.Context, job models.EmailJob) error {
	d.enqueued++
	d.lastRecipient = job.To
	d.lastAttachment = job.AttachmentName
	return d.err
}

func newService(store *stubStore, d *stubDispatcher) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, store, d, config.Branding{SchoolName: "RealEdu"})
}

func ptr(v int64) *int64 { return &v }

func sampleCourse() models.Course {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	return models.Course{
		ID:           3,
		CourseNumber: "156-4211-E",
		Title:        "Fair Housing Essentials",
		Instructor:   "Pat Morrow",
		CEHours:      4,
		SessionDate:  &date,
	}
}

func TestIssueSnapshotsCourseFields(t *testing.T) {
	store := &stubStore{
		course: sampleCourse(),
		users:  map[int64]models.Profile{9: {ID: 9, Email: "sam@example.com", FirstName: "Sam", LastName: "Reed"}},
	}

	svc := newService(store, &stubDispatcher{})

	cert, err := svc.Issue(context.Background(), IssueRequest{CourseID: 3, UserID: ptr(9)})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if cert.ID != 42 {
		t.Errorf("id = %d, want 42", cert.ID)
	}
	if cert.CourseTitle != "Fair Housing Essentials" || cert.Instructor != "Pat Morrow" {
		t.Error("course fields not snapshotted")
	}
	if cert.SchoolName != "RealEdu" {
		t.Errorf("school name = %q", cert.SchoolName)
	}
	if cert.HolderName != "Sam Reed" {
		t.Errorf("holder name = %q, want resolved display name", cert.HolderName)
	}
	if cert.CEHours != 4 {
		t.Errorf("ce hours = %v, want course default", cert.CEHours)
	}
	if cert.Number == "" {
		t.Error("certificate number not generated")
	}
}

func TestIssueRejectsDuplicate(t *testing.T) {
	store := &stubStore{course: sampleCourse(), exists: true}

	svc := newService(store, &stubDispatcher{})

	_, err := svc.Issue(context.Background(), IssueRequest{CourseID: 3, ExternalEmail: "sam@example.com"})
	if !errors.Is(err, ErrAlreadyIssued) {
		t.Fatalf("expected ErrAlreadyIssued, got %v", err)
	}
	if store.saved != nil {
		t.Error("duplicate must not be saved")
	}
}

func TestIssueRequiresExactlyOneRecipient(t *testing.T) {
	svc := newService(&stubStore{course: sampleCourse()}, &stubDispatcher{})

	cases := []IssueRequest{
		{CourseID: 3},
		{CourseID: 3, UserID: ptr(9), ExternalEmail: "sam@example.com"},
		{CourseID: 3, UserID: ptr(9), ExternalEnrollmentID: ptr(4)},
	}
	for _, req := range cases {
		if _, err := svc.Issue(context.Background(), req); !errors.Is(err, ErrAmbiguousRecipient) {
			t.Errorf("req %+v: expected ErrAmbiguousRecipient, got %v", req, err)
		}
	}
}

func TestIssueRejectsMalformedExternalEmail(t *testing.T) {
	svc := newService(&stubStore{course: sampleCourse()}, &stubDispatcher{})

	_, err := svc.Issue(context.Background(), IssueRequest{CourseID: 3, ExternalEmail: "broken"})
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestIssueResolvesExternalEnrollmentName(t *testing.T) {
	store := &stubStore{
		course:     sampleCourse(),
		enrollment: models.ExternalEnrollment{ID: 4, FirstName: "Dana", LastName: "Holt", Email: "dana@example.com"},
	}

	svc := newService(store, &stubDispatcher{})

	cert, err := svc.Issue(context.Background(), IssueRequest{CourseID: 3, ExternalEnrollmentID: ptr(4)})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if cert.HolderName != "Dana Holt" {
		t.Errorf("holder name = %q", cert.HolderName)
	}
}

func TestSendAttachesPDFAndMarksSent(t *testing.T) {
	store := &stubStore{
		cert: models.Certificate{
			ID:            42,
			Number:        "156-20260314-AB12",
			ExternalEmail: "sam@example.com",
			HolderName:    "Sam Reed",
			CourseTitle:   "Fair Housing Essentials",
			SchoolName:    "RealEdu",
			CEHours:       4,
			IssuedAt:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		},
	}
	dispatcher := &stubDispatcher{}

	svc := newService(store, dispatcher)

	if _, err := svc.Send(context.Background(), 42); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if dispatcher.attachments != 1 {
		t.Fatalf("attachments = %d, want 1", dispatcher.attachments)
	}
	if dispatcher.lastAttachment != "156-20260314-AB12.pdf" {
		t.Errorf("attachment name = %q", dispatcher.lastAttachment)
	}
	if dispatcher.lastRecipient != "sam@example.com" {
		t.Errorf("recipient = %q", dispatcher.lastRecipient)
	}
	if store.markedSent != 1 {
		t.Errorf("sent marks = %d, want 1", store.markedSent)
	}
}

func TestSendMarkFailureDoesNotFailDelivery(t *testing.T) {
	store := &stubStore{
		cert:        models.Certificate{ID: 42, Number: "000-20260314-AB12", ExternalEmail: "sam@example.com"},
		markSentErr: errors.New("db down"),
	}

	svc := newService(store, &stubDispatcher{})

	if _, err := svc.Send(context.Background(), 42); err != nil {
		t.Fatalf("delivery already happened, expected success, got %v", err)
	}
}

func TestSendWithoutRecipient(t *testing.T) {
	store := &stubStore{cert: models.Certificate{ID: 42, Number: "000-20260314-AB12"}}

	svc := newService(store, &stubDispatcher{})

	_, err := svc.Send(context.Background(), 42)
	if !errors.Is(err, ErrNoRecipientEmail) {
		t.Fatalf("expected ErrNoRecipientEmail, got %v", err)
	}
}

func TestEnqueueSendQueuesJob(t *testing.T) {
	store := &stubStore{
		cert: models.Certificate{ID: 42, Number: "000-20260314-AB12", ExternalEmail: "sam@example.com"},
	}
	dispatcher := &stubDispatcher{}

	svc := newService(store, dispatcher)

	if err := svc.EnqueueSend(context.Background(), 42); err != nil {
		t.Fatalf("EnqueueSend: %v", err)
	}
	if dispatcher.enqueued != 1 {
		t.Fatalf("enqueued = %d, want 1", dispatcher.enqueued)
	}
	if dispatcher.lastAttachment != "000-20260314-AB12.pdf" {
		t.Errorf("attachment name = %q", dispatcher.lastAttachment)
	}
}

func TestReissueMutatesExistingRecord(t *testing.T) {
	store := &stubStore{
		reissued: models.Certificate{ID: 42, Number: "000-20260314-AB12", ReissueCount: 1},
	}

	svc := newService(store, &stubDispatcher{})

	cert, err := svc.Reissue(context.Background(), 42)
	if err != nil {
		t.Fatalf("Reissue: %v", err)
	}
	if cert.ID != 42 {
		t.Error("reissue must keep the same record")
	}
	if cert.Number != "000-20260314-AB12" {
		t.Error("reissue must keep the certificate number")
	}
	if cert.ReissueCount != 2 {
		t.Errorf("reissue count = %d, want 2", cert.ReissueCount)
	}
}

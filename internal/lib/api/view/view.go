// Package view holds the JSON shapes handlers return for domain records.
package view

import (
	"time"

	"ce_platform/internal/models"
)

type Certificate struct {
	ID                   int64      `json:"id"`
	CourseID             int64      `json:"course_id"`
	UserID               *int64     `json:"user_id,omitempty"`
	ExternalEnrollmentID *int64     `json:"external_enrollment_id,omitempty"`
	ExternalEmail        string     `json:"external_email,omitempty"`
	Number               string     `json:"number"`
	HolderName           string     `json:"holder_name"`
	CourseTitle          string     `json:"course_title"`
	CourseNumber         string     `json:"course_number"`
	Instructor           string     `json:"instructor"`
	SchoolName           string     `json:"school_name"`
	CEHours              float64    `json:"ce_hours"`
	CourseDate           *time.Time `json:"course_date,omitempty"`
	IssuedAt             time.Time  `json:"issued_at"`
	ReissueCount         int        `json:"reissue_count"`
	LastReissuedAt       *time.Time `json:"last_reissued_at,omitempty"`
	EmailSent            bool       `json:"email_sent"`
	EmailSentAt          *time.Time `json:"email_sent_at,omitempty"`
}

func FromCertificate(c models.Certificate) Certificate {
	return Certificate{
		ID:                   c.ID,
		CourseID:             c.CourseID,
		UserID:               c.UserID,
		ExternalEnrollmentID: c.ExternalEnrollmentID,
		ExternalEmail:        c.ExternalEmail,
		Number:               c.Number,
		HolderName:           c.HolderName,
		CourseTitle:          c.CourseTitle,
		CourseNumber:         c.CourseNumber,
		Instructor:           c.Instructor,
		SchoolName:           c.SchoolName,
		CEHours:              c.CEHours,
		CourseDate:           c.CourseDate,
		IssuedAt:             c.IssuedAt,
		ReissueCount:         c.ReissueCount,
		LastReissuedAt:       c.LastReissuedAt,
		EmailSent:            c.EmailSent,
		EmailSentAt:          c.EmailSentAt,
	}
}

func FromCertificates(cs []models.Certificate) []Certificate {
	out := make([]Certificate, 0, len(cs))
	for _, c := range cs {
		out = append(out, FromCertificate(c))
	}
	return out
}

type Course struct {
	ID           int64      `json:"id"`
	CourseNumber string     `json:"course_number"`
	Title        string     `json:"title"`
	Instructor   string     `json:"instructor"`
	CEHours      float64    `json:"ce_hours"`
	SessionDate  *time.Time `json:"session_date,omitempty"`
	PriceCents   int64      `json:"price_cents"`
	Visible      bool       `json:"visible"`
	CreatedAt    time.Time  `json:"created_at"`
}

func FromCourse(c models.Course) Course {
	return Course{
		ID:           c.ID,
		CourseNumber: c.CourseNumber,
		Title:        c.Title,
		Instructor:   c.Instructor,
		CEHours:      c.CEHours,
		SessionDate:  c.SessionDate,
		PriceCents:   c.PriceCents,
		Visible:      c.Visible,
		CreatedAt:    c.CreatedAt,
	}
}

func FromCourses(cs []models.Course) []Course {
	out := make([]Course, 0, len(cs))
	for _, c := range cs {
		out = append(out, FromCourse(c))
	}
	return out
}

type Enrollment struct {
	ID         int64     `json:"id"`
	CourseID   int64     `json:"course_id"`
	UserID     int64     `json:"user_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

func FromEnrollment(e models.Enrollment) Enrollment {
	return Enrollment{
		ID:         e.ID,
		CourseID:   e.CourseID,
		UserID:     e.UserID,
		EnrolledAt: e.EnrolledAt,
	}
}

func FromEnrollments(es []models.Enrollment) []Enrollment {
	out := make([]Enrollment, 0, len(es))
	for _, e := range es {
		out = append(out, FromEnrollment(e))
	}
	return out
}

type Client struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func FromClient(c models.Client) Client {
	return Client{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
	}
}

func FromClients(cs []models.Client) []Client {
	out := make([]Client, 0, len(cs))
	for _, c := range cs {
		out = append(out, FromClient(c))
	}
	return out
}

type Communication struct {
	ID        int64     `json:"id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Category  string    `json:"category"`
	MessageID string    `json:"message_id,omitempty"`
	Failure   string    `json:"failure,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

func FromCommunication(c models.Communication) Communication {
	return Communication{
		ID:        c.ID,
		Recipient: c.Recipient,
		Subject:   c.Subject,
		Category:  c.Category,
		MessageID: c.MessageID,
		Failure:   c.Failure,
		SentAt:    c.SentAt,
	}
}

func FromCommunications(cs []models.Communication) []Communication {
	out := make([]Communication, 0, len(cs))
	for _, c := range cs {
		out = append(out, FromCommunication(c))
	}
	return out
}

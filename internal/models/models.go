package models

import "time"

type Profile struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	PassHash  []byte
	IsAdmin   bool
	CreatedAt time.Time
}

func (p *Profile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.Email
	}
}

type TokenPurpose string

const (
	PurposePasswordReset TokenPurpose = "password_reset"
	PurposeMagicLink     TokenPurpose = "magic_link"
)

// AuthToken is a single-use capability mailed to a user: either a
// password-reset link or a passwordless sign-in link. At most one live
// token per (owner, purpose); issuing a new one overwrites the old.
type AuthToken struct {
	ID        int64
	OwnerID   int64
	Secret    string
	Purpose   TokenPurpose
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func (t *AuthToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

type RefreshToken struct {
	TokenHash []byte
	UserID    int64
	ExpiresAt time.Time
}

type SessionPair struct {
	AccessToken  string
	RefreshToken string
}

type Course struct {
	ID           int64
	CourseNumber string
	Title        string
	Instructor   string
	CEHours      float64
	SessionDate  *time.Time
	PriceCents   int64
	Visible      bool
	CreatedAt    time.Time
}

type Enrollment struct {
	ID         int64
	CourseID   int64
	UserID     int64
	EnrolledAt time.Time
}

// ExternalEnrollment is a course participant without an account,
// registered by an admin on their behalf.
type ExternalEnrollment struct {
	ID        int64
	CourseID  int64
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}

func (e *ExternalEnrollment) DisplayName() string {
	if e.FirstName == "" && e.LastName == "" {
		return e.Email
	}
	return e.FirstName + " " + e.LastName
}

// Certificate holds one of three mutually exclusive recipient references:
// UserID (registered account), ExternalEnrollmentID, or ExternalEmail.
type Certificate struct {
	ID                   int64
	CourseID             int64
	UserID               *int64
	ExternalEnrollmentID *int64
	ExternalEmail        string
	Number               string
	HolderName           string
	CourseTitle          string
	CourseNumber         string
	Instructor           string
	SchoolName           string
	CEHours              float64
	CourseDate           *time.Time
	IssuedAt             time.Time
	ReissueCount         int
	LastReissuedAt       *time.Time
	EmailSent            bool
	EmailSentAt          *time.Time
}

// Communication is an append-only audit record of a dispatch attempt.
type Communication struct {
	ID        int64
	Recipient string
	Subject   string
	Category  string
	MessageID string
	Failure   string
	SentAt    time.Time
}

type Client struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	Notes     string
	CreatedAt time.Time
}

type Lead struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Message   string
	Source    string
	Status    string
	CreatedAt time.Time
}

// EmailJob is the queue message consumed by the mail_sender worker.
type EmailJob struct {
	To             string `json:"to"`
	Subject        string `json:"subject"`
	HTML           string `json:"html,omitempty"`
	Text           string `json:"text,omitempty"`
	Category       string `json:"category"`
	AttachmentName string `json:"attachment_name,omitempty"`
	Attachment     []byte `json:"attachment,omitempty"`
}

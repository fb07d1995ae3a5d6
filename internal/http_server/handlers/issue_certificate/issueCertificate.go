package issueCertificate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ce_platform/internal/certificates"
	resp "ce_platform/internal/lib/api/response"
	"ce_platform/internal/lib/api/view"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"
	"ce_platform/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Request names exactly one recipient: user_id, external_enrollment_id,
// or external_email.
type Request struct {
	CourseID             int64   `json:"course_id" validate:"required"`
	UserID               *int64  `json:"user_id,omitempty"`
	ExternalEnrollmentID *int64  `json:"external_enrollment_id,omitempty"`
	ExternalEmail        string  `json:"external_email,omitempty"`
	HolderName           string  `json:"holder_name,omitempty"`
	CEHours              float64 `json:"ce_hours,omitempty"`
	SendEmail            bool    `json:"send_email,omitempty"`
}

type Response struct {
	resp.Response
	Certificate view.Certificate `json:"certificate"`
}

type Issuer interface {
	Issue(ctx context.Context, req certificates.IssueRequest) (models.Certificate, error)
	Send(ctx context.Context, id int64) (string, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	issuer Issuer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.issueCertificate.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		cert, err := issuer.Issue(ctx, certificates.IssueRequest{
			CourseID:             req.CourseID,
			UserID:               req.UserID,
			ExternalEnrollmentID: req.ExternalEnrollmentID,
			ExternalEmail:        req.ExternalEmail,
			HolderName:           req.HolderName,
			CEHours:              req.CEHours,
		})
		if err != nil {
			switch {
			case errors.Is(err, certificates.ErrAmbiguousRecipient):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Exactly one recipient must be set"))
			case errors.Is(err, certificates.ErrInvalidEmail):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid recipient email"))
			case errors.Is(err, certificates.ErrAlreadyIssued):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Certificate already issued for this recipient"))
			case errors.Is(err, storage.ErrCourseNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Course not found"))
			case errors.Is(err, storage.ErrUserNotFound),
				errors.Is(err, storage.ErrEnrollmentNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Recipient not found"))
			default:
				log.Error("failed to issue certificate", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		// Delivery is optional at issue time and failure does not undo
		// the issued record.
		if req.SendEmail {
			if _, err := issuer.Send(ctx, cert.ID); err != nil {
				log.Warn("certificate issued but delivery failed", sl.Err(err))
			}
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response:    resp.OK(),
			Certificate: view.FromCertificate(cert),
		})
	}
}

package bulkSendCertificates

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "ce_platform/internal/lib/api/response"
	sl "ce_platform/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	CertificateIDs []int64 `json:"certificate_ids" validate:"required,min=1,max=500"`
}

type Failure struct {
	CertificateID int64  `json:"certificate_id"`
	Error         string `json:"error"`
}

type Response struct {
	resp.Response
	Queued   int       `json:"queued"`
	Failures []Failure `json:"failures,omitempty"`
}

type Enqueuer interface {
	EnqueueSend(ctx context.Context, id int64) error
}

// New queues certificate emails for the mail_sender worker instead of
// delivering inline, so a large batch does not block the request. Each
// certificate is queued independently; one failure does not stop the rest.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	enqueuer Enqueuer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bulkSendCertificates.New"

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

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		var failures []Failure
		queued := 0

		for _, id := range req.CertificateIDs {
			if err := enqueuer.EnqueueSend(ctx, id); err != nil {
				log.Warn("failed to queue certificate",
					slog.Int64("certificate_id", id), sl.Err(err))
				failures = append(failures, Failure{CertificateID: id, Error: err.Error()})
				continue
			}
			queued++
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Queued:   queued,
			Failures: failures,
		})
	}
}

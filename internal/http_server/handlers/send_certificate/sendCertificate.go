package sendCertificate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ce_platform/internal/certificates"
	resp "ce_platform/internal/lib/api/response"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	MessageID string `json:"message_id,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, id int64) (string, error)
}

// New emails the rendered certificate to its recipient. Not idempotent:
// every call sends another copy.
func New(log *slog.Logger, sender Sender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sendCertificate.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid certificate id"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		messageID, err := sender.Send(ctx, id)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrCertificateNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Certificate not found"))
			case errors.Is(err, certificates.ErrNoRecipientEmail):
				render.Status(r, http.StatusUnprocessableEntity)
				render.JSON(w, r, resp.Error("Certificate has no deliverable recipient"))
			default:
				log.Error("failed to send certificate", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		render.JSON(w, r, Response{
			Response:  resp.OK(),
			MessageID: messageID,
		})
	}
}

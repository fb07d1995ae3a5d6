package reissueCertificate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	resp "ce_platform/internal/lib/api/response"
	"ce_platform/internal/lib/api/view"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"
	"ce_platform/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Certificate view.Certificate `json:"certificate"`
}

type Reissuer interface {
	Reissue(ctx context.Context, id int64) (models.Certificate, error)
}

// New refreshes the issue date on an existing certificate. The record is
// updated in place, never duplicated.
func New(log *slog.Logger, reissuer Reissuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reissueCertificate.New"

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

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		cert, err := reissuer.Reissue(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrCertificateNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Certificate not found"))

				return
			}

			log.Error("failed to reissue certificate", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			Certificate: view.FromCertificate(cert),
		})
	}
}

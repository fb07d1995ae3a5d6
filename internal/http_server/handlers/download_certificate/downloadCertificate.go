package downloadCertificate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	resp "ce_platform/internal/lib/api/response"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"
	"ce_platform/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Renderer interface {
	Certificate(ctx context.Context, id int64) (models.Certificate, error)
	Render(cert models.Certificate) ([]byte, error)
}

// New streams the certificate PDF. The document is rendered on demand
// from the stored snapshot, nothing is cached.
func New(log *slog.Logger, renderer Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.downloadCertificate.New"

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

		cert, err := renderer.Certificate(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrCertificateNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Certificate not found"))

				return
			}

			log.Error("failed to load certificate", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		doc, err := renderer.Render(cert)
		if err != nil {
			log.Error("failed to render certificate", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.Number+".pdf"))
		w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write(doc); err != nil {
			log.Warn("failed to write pdf response", sl.Err(err))
		}
	}
}

package listCertificates

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "ce_platform/internal/lib/api/response"
	"ce_platform/internal/lib/api/view"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Certificates []view.Certificate `json:"certificates"`
}

type Lister interface {
	Certificates(ctx context.Context) ([]models.Certificate, error)
}

func New(log *slog.Logger, lister Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.listCertificates.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		certs, err := lister.Certificates(ctx)
		if err != nil {
			log.Error("failed to list certificates", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response:     resp.OK(),
			Certificates: view.FromCertificates(certs),
		})
	}
}

package listCommunications

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	resp "ce_platform/internal/lib/api/response"
	"ce_platform/internal/lib/api/view"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

const defaultLimit = 100

type Response struct {
	resp.Response
	Communications []view.Communication `json:"communications"`
}

type Lister interface {
	Communications(ctx context.Context, limit int) ([]models.Communication, error)
}

// New returns the most recent dispatch audit rows, newest first.
func New(log *slog.Logger, lister Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.listCommunications.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		comms, err := lister.Communications(ctx, limit)
		if err != nil {
			log.Error("failed to list communications", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response:       resp.OK(),
			Communications: view.FromCommunications(comms),
		})
	}
}

package listCourses

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
	Courses []view.Course `json:"courses"`
}

type Lister interface {
	Courses(ctx context.Context, visibleOnly bool) ([]models.Course, error)
}

// New lists courses. Hidden courses are included only when the query has
// all=true; the public catalog sees visible courses.
func New(log *slog.Logger, lister Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.listCourses.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		visibleOnly := r.URL.Query().Get("all") != "true"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		courses, err := lister.Courses(ctx, visibleOnly)
		if err != nil {
			log.Error("failed to list courses", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Courses:  view.FromCourses(courses),
		})
	}
}

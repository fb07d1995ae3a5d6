package listEnrollments

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

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Enrollments []view.Enrollment `json:"enrollments"`
}

type Lister interface {
	EnrollmentsByCourse(ctx context.Context, courseID int64) ([]models.Enrollment, error)
}

func New(log *slog.Logger, lister Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.listEnrollments.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid course id"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		enrollments, err := lister.EnrollmentsByCourse(ctx, courseID)
		if err != nil {
			log.Error("failed to list enrollments", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			Enrollments: view.FromEnrollments(enrollments),
		})
	}
}

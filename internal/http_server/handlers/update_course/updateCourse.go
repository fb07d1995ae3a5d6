package updateCourse

import (
	"context"
	"errors"
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
	"github.com/go-playground/validator/v10"
)

type Request struct {
	CourseNumber string     `json:"course_number" validate:"required"`
	Title        string     `json:"title" validate:"required"`
	Instructor   string     `json:"instructor"`
	CEHours      float64    `json:"ce_hours" validate:"gte=0"`
	SessionDate  *time.Time `json:"session_date,omitempty"`
	PriceCents   int64      `json:"price_cents" validate:"gte=0"`
	Visible      bool       `json:"visible"`
}

type Response struct {
	resp.Response
}

type CourseUpdater interface {
	UpdateCourse(ctx context.Context, c *models.Course) error
}

// New replaces the editable fields of a course. Certificates are not
// touched: they keep the snapshot taken at issue time.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	updater CourseUpdater,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.updateCourse.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid course id"))

			return
		}

		var req Request

		err = render.DecodeJSON(r.Body, &req)
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

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err = updater.UpdateCourse(ctx, &models.Course{
			ID:           id,
			CourseNumber: req.CourseNumber,
			Title:        req.Title,
			Instructor:   req.Instructor,
			CEHours:      req.CEHours,
			SessionDate:  req.SessionDate,
			PriceCents:   req.PriceCents,
			Visible:      req.Visible,
		})
		if err != nil {
			if errors.Is(err, storage.ErrCourseNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Course not found"))

				return
			}

			log.Error("failed to update course", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("course updated", slog.Int64("course_id", id))

		render.JSON(w, r, Response{Response: resp.OK()})
	}
}

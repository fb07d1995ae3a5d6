package createCourse

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "ce_platform/internal/lib/api/response"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"

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
	CourseID int64 `json:"course_id"`
}

type CourseSaver interface {
	SaveCourse(ctx context.Context, c *models.Course) (int64, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	saver CourseSaver,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.createCourse.New"

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

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		id, err := saver.SaveCourse(ctx, &models.Course{
			CourseNumber: req.CourseNumber,
			Title:        req.Title,
			Instructor:   req.Instructor,
			CEHours:      req.CEHours,
			SessionDate:  req.SessionDate,
			PriceCents:   req.PriceCents,
			Visible:      req.Visible,
		})
		if err != nil {
			log.Error("failed to save course", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("course created", slog.Int64("course_id", id))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response: resp.OK(),
			CourseID: id,
		})
	}
}

package enroll

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	resp "ce_platform/internal/lib/api/response"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	UserID int64 `json:"user_id" validate:"required"`
}

type Response struct {
	resp.Response
	EnrollmentID int64 `json:"enrollment_id"`
}

type EnrollmentSaver interface {
	SaveEnrollment(ctx context.Context, courseID, userID int64) (int64, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	saver EnrollmentSaver,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.enroll.New"

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

		id, err := saver.SaveEnrollment(ctx, courseID, req.UserID)
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyEnrolled) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("User is already enrolled in this course"))

				return
			}

			log.Error("failed to save enrollment", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response:     resp.OK(),
			EnrollmentID: id,
		})
	}
}

package createLead

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
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

type Response struct {
	resp.Response
	LeadID int64 `json:"lead_id"`
}

type LeadSaver interface {
	SaveLead(ctx context.Context, l *models.Lead) (int64, error)
}

// New records an inbound contact-form lead. Public endpoint.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	saver LeadSaver,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.createLead.New"

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

		id, err := saver.SaveLead(ctx, &models.Lead{
			Name:    req.Name,
			Email:   req.Email,
			Phone:   req.Phone,
			Message: req.Message,
			Source:  req.Source,
			Status:  "new",
		})
		if err != nil {
			log.Error("failed to save lead", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response: resp.OK(),
			LeadID:   id,
		})
	}
}

package forgotPassword

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "ce_platform/internal/lib/api/response"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"
	"ce_platform/internal/tokens"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type Response struct {
	resp.Response
	Message string `json:"message"`
}

type TokenIssuer interface {
	Issue(ctx context.Context, email string, purpose models.TokenPurpose) error
}

// New requests a password reset link. The response is the same whether
// the address is registered or not.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	issuer TokenIssuer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.forgotPassword.New"

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

		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()

		if err := issuer.Issue(ctx, req.Email, models.PurposePasswordReset); err != nil {
			if errors.Is(err, tokens.ErrInvalidEmail) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid email format"))

				return
			}

			log.Error("failed to issue password reset token", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "If an account with that email exists, a reset link has been sent",
		})
	}
}

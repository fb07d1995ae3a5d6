package resetPassword

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "ce_platform/internal/lib/api/response"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/tokens"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Token       string `json:"token" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type Response struct {
	resp.Response
}

type PasswordResetter interface {
	RedeemPasswordReset(ctx context.Context, secret, email, newPassword string) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	resetter PasswordResetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resetPassword.New"

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

		err = resetter.RedeemPasswordReset(ctx, req.Token, req.Email, req.NewPassword)
		if err != nil {
			switch {
			case errors.Is(err, tokens.ErrInvalidOrUsedToken):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid or already used reset link"))
			case errors.Is(err, tokens.ErrTokenExpired):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Reset link has expired, please request a new one"))
			case errors.Is(err, tokens.ErrEmailMismatch):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Email does not match this reset link"))
			default:
				log.Error("failed to reset password", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("password reset completed")

		render.JSON(w, r, Response{Response: resp.OK()})
	}
}

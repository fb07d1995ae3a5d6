package magicLogin

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
	Token string `json:"token" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type Response struct {
	resp.Response
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type MagicRedeemer interface {
	RedeemMagicLink(ctx context.Context, secret, email string) (models.SessionPair, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	redeemer MagicRedeemer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.magicLogin.New"

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

		pair, err := redeemer.RedeemMagicLink(ctx, req.Token, req.Email)
		if err != nil {
			switch {
			case errors.Is(err, tokens.ErrInvalidOrUsedToken):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid or already used sign-in link"))
			case errors.Is(err, tokens.ErrTokenExpired):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Sign-in link has expired, please request a new one"))
			case errors.Is(err, tokens.ErrEmailMismatch):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Email does not match this sign-in link"))
			default:
				log.Error("failed to redeem magic link", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		render.JSON(w, r, Response{
			Response:     resp.OK(),
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}

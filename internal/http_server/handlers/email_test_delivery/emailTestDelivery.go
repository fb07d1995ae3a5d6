package emailTestDelivery

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "ce_platform/internal/lib/api/response"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/notify"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Recipient string `json:"recipient" validate:"required,email"`
}

type Response struct {
	resp.Response
	Results []notify.TransportResult `json:"results"`
}

type DeliveryTester interface {
	TestDelivery(ctx context.Context, recipient string) ([]notify.TransportResult, error)
}

// New probes every configured mail transport with a test message and
// reports per-transport outcomes. Admin-only.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	tester DeliveryTester,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.emailTestDelivery.New"

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

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		results, err := tester.TestDelivery(ctx, req.Recipient)
		if err != nil {
			if errors.Is(err, notify.ErrInvalidRecipient) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid recipient address"))

				return
			}

			log.Error("failed to run delivery test", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Results:  results,
		})
	}
}

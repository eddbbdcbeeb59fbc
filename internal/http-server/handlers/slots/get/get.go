package get

import (
	"appointment-service/api"
	"appointment-service/pkg/response"
	"appointment-service/pkg/sl"
	"appointment-service/pkg/validate"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type SlotGetter interface {
	AvailableSlots(ctx context.Context, date string) ([]string, error)
}

type Response struct {
	response.Response
	Date  string   `json:"date,omitempty"`
	Slots []string `json:"slots"`
}

func New(log *slog.Logger, getter SlotGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := api.SlotsQuery{Date: r.URL.Query().Get("date")}

		if err := validate.Struct(q); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				render.JSON(w, r, response.ValidationError(verrs))
				return
			}

			log.Error("Failed to validate query", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to validate request"))
			return
		}

		slots, err := getter.AvailableSlots(r.Context(), q.Date)
		if err != nil {
			log.Error("Failed to get available slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "The Server Encountered an Error"))
			return
		}

		log.Debug("Slots retrieved", slog.String("date", q.Date), slog.Int("count", len(slots)))
		render.JSON(w, r, Response{
			Date:  q.Date,
			Slots: slots,
		})
	}
}

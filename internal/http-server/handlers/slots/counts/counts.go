package counts

import (
	"appointment-service/api"
	"appointment-service/pkg/response"
	"appointment-service/pkg/sl"
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type AvailabilityCounter interface {
	AvailabilityCounts(ctx context.Context) ([]api.DateSlotCount, error)
}

type Response struct {
	response.Response
	Slots []api.DateSlotCount `json:"slots"`
}

// New lists, for every bookable date, how many slots are still free.
func New(log *slog.Logger, counter AvailabilityCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.counts.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		counts, err := counter.AvailabilityCounts(r.Context())
		if err != nil {
			log.Error("Failed to count available slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "The Server Encountered an Error"))
			return
		}

		render.JSON(w, r, Response{
			Slots: counts,
		})
	}
}

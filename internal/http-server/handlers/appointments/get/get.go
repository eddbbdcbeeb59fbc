package get

import (
	"appointment-service/api"
	"appointment-service/pkg/response"
	"appointment-service/pkg/sl"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type AppointmentGetter interface {
	GetUserAppointment(ctx context.Context, userID, id string) (*api.AppointmentResponse, error)
}

type Response struct {
	response.Response
	Appointment *api.AppointmentResponse `json:"appointment,omitempty"`
}

func New(log *slog.Logger, getter AppointmentGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID := chi.URLParam(r, "user_id")
		id := chi.URLParam(r, "id")

		appointment, err := getter.GetUserAppointment(r.Context(), userID, id)

		if errors.Is(err, response.ErrNotFound) {
			log.Info("appointment not found", slog.String("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(response.NOT_FOUND, "Appointment not found"))
			return
		}

		if err != nil {
			log.Error("Failed to get appointment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to get appointment"))
			return
		}

		render.JSON(w, r, Response{
			Appointment: appointment,
		})
	}
}

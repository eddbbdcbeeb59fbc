package create

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
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, userID string, req *api.AppointmentRequest) (*api.AppointmentResponse, error)
}

type Response struct {
	response.Response
	Appointment *api.AppointmentResponse `json:"appointment,omitempty"`
}

func New(log *slog.Logger, creator AppointmentCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.AppointmentRequest

		if err := render.Decode(r, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, "failed to decode request"))
			return
		}

		log.Debug("Request body decoded", slog.Any("request", req))

		if err := validate.Struct(req); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				log.Info("Invalid request", sl.Err(err))
				w.WriteHeader(http.StatusUnprocessableEntity)
				render.JSON(w, r, response.ValidationError(verrs))
				return
			}

			log.Error("Failed to validate request", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to validate request"))
			return
		}

		userID := chi.URLParam(r, "user_id")

		appointment, err := creator.CreateAppointment(r.Context(), userID, &req)

		if errors.Is(err, response.ErrInvalidSlot) {
			log.Info("start or end time is not a bookable slot", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.SingleFieldError("start_time", response.ErrInvalidSlot.Error()))
			return
		}

		if errors.Is(err, response.ErrOutsideHorizon) {
			log.Info("date is outside the booking horizon", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.SingleFieldError("date", response.ErrOutsideHorizon.Error()))
			return
		}

		if errors.Is(err, response.ErrLocked) {
			log.Warn("slot is locked by another request")
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(response.LOCKED, "slot is being booked, try again"))
			return
		}

		if errors.Is(err, response.ErrSlotNotAvailable) {
			log.Info("slot is not available")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(response.SLOT_NOT_AVAILABLE,
				"Appointment on "+req.Date+" at "+req.StartTime+" not available."))
			return
		}

		if err != nil {
			log.Error("Failed to create appointment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to create appointment"))
			return
		}

		log.Info("Appointment created", slog.String("id", appointment.ID))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{
			Appointment: appointment,
		})
	}
}

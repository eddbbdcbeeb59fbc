package list

import (
	"appointment-service/api"
	"appointment-service/pkg/response"
	"appointment-service/pkg/sl"
	"appointment-service/pkg/validate"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

type AppointmentLister interface {
	ListUserAppointments(ctx context.Context, userID string, q *api.ListQuery) (*api.AppointmentPage, error)
}

type Response struct {
	response.Response
	Appointments []api.AppointmentResponse `json:"appointments"`
	Meta         *api.PageMeta             `json:"meta,omitempty"`
}

func New(log *slog.Logger, lister AppointmentLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		query := r.URL.Query()
		q := api.ListQuery{
			Page:   defaultPage,
			Limit:  defaultLimit,
			Search: query.Get("search"),
		}

		if pageStr := query.Get("page"); pageStr != "" {
			page, err := strconv.Atoi(pageStr)
			if err != nil {
				w.WriteHeader(http.StatusUnprocessableEntity)
				render.JSON(w, r, response.SingleFieldError("page", "Field 'page' must be a number"))
				return
			}
			q.Page = page
		}

		if limitStr := query.Get("limit"); limitStr != "" {
			limit, err := strconv.Atoi(limitStr)
			if err != nil {
				w.WriteHeader(http.StatusUnprocessableEntity)
				render.JSON(w, r, response.SingleFieldError("limit", "Field 'limit' must be a number"))
				return
			}
			q.Limit = limit
		}

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

		userID := chi.URLParam(r, "user_id")

		page, err := lister.ListUserAppointments(r.Context(), userID, &q)
		if err != nil {
			log.Error("Failed to list appointments", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "The Server Encountered an Error"))
			return
		}

		log.Debug("Appointments retrieved", slog.Int("count", len(page.Appointments)))
		render.JSON(w, r, Response{
			Appointments: page.Appointments,
			Meta:         &page.Meta,
		})
	}
}

package router

import (
	"appointment-service/internal/http-server/handlers/appointments/cancel"
	"appointment-service/internal/http-server/handlers/appointments/create"
	"appointment-service/internal/http-server/handlers/appointments/get"
	"appointment-service/internal/http-server/handlers/appointments/list"
	"appointment-service/internal/http-server/handlers/appointments/reschedule"
	"appointment-service/internal/http-server/handlers/slots/counts"
	slotGet "appointment-service/internal/http-server/handlers/slots/get"
	"appointment-service/internal/http-server/middleware/auth"
	"appointment-service/internal/http-server/middleware/ratelimit"
	"appointment-service/pkg/metrics"
	"appointment-service/pkg/middleware/mwLogger"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

type AppointmentService interface {
	slotGet.SlotGetter
	counts.AvailabilityCounter
	create.AppointmentCreator
	get.AppointmentGetter
	list.AppointmentLister
	reschedule.AppointmentRescheduler
	cancel.AppointmentCanceller
}

type Options struct {
	AllowedOrigins []string
	AllowedMethods []string

	// Optional.
	Limiter *ratelimit.Limiter
	Metrics *metrics.Collector
}

func New(log *slog.Logger, service AppointmentService, tokens auth.TokenValidator, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	// URLFormat reads the v5 route context, so it comes from the v5 package.
	router.Use(chimw.URLFormat)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   opts.AllowedMethods,
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
		router.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	router.Route("/api/v1", func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(opts.Limiter.Middleware(log))
		}
		r.Use(auth.New(log, tokens))

		// Slots
		r.Get("/appointments/slots", slotGet.New(log, service))
		r.Get("/appointments/slots/all", counts.New(log, service))

		// Appointments
		r.Route("/users/{user_id}/appointments", func(r chi.Router) {
			r.Use(auth.RequireOwner)

			r.Post("/", create.New(log, service))
			r.Get("/", list.New(log, service))
			r.Get("/{id}", get.New(log, service))
			r.Patch("/{id}", reschedule.New(log, service))
			r.Delete("/{id}", cancel.New(log, service))
		})
	})

	return router
}

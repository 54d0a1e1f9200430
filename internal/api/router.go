package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/appointment"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/auth"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/metrics"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/notification"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/schedule"
)

type RouterConfig struct {
	Appointments  *appointment.Service
	Schedule      *schedule.Service
	Patients      *patient.Service
	Notifications *notification.Service
	Professionals professional.Repository
	Verifier      *auth.Verifier

	BookingLimiter BookingLimiter // nil disables booking throttling
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
	Postgres       Pinger // nil when running on the in-memory store
	Redis          Pinger

	CORSOrigins  []string
	RateLimitRPS int // per IP, 0 disables
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	loc := cfg.Schedule.Location()

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitRPS, time.Second))
	}

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	// Public booking flow
	r.Get("/professionals", listProfessionalsHandler(cfg.Professionals))
	r.Get("/availability", availabilityHandler(cfg.Schedule))
	r.With(BookingThrottle(cfg.BookingLimiter, cfg.Metrics)).
		Post("/appointments", publicBookingHandler(cfg.Appointments, loc, cfg.Metrics))

	// Staff endpoints
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Verifier))
		r.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleProfessional))
		adminOnly := auth.RequireRole(auth.RoleAdmin)

		r.Post("/appointments/manual", manualBookingHandler(cfg.Appointments, loc, cfg.Metrics))
		r.Get("/appointments", listAppointmentsHandler(cfg.Appointments, loc))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments, loc))
		r.Put("/appointments/{id}/status", updateStatusHandler(cfg.Appointments, loc))
		r.Put("/appointments/{id}/reprogram", reprogramHandler(cfg.Appointments, loc))
		r.Put("/appointments/{id}/notes", updateNotesHandler(cfg.Appointments, loc))
		r.With(adminOnly).Delete("/appointments/{id}", purgeAppointmentHandler(cfg.Appointments))

		r.Get("/schedule/rules", listRulesHandler(cfg.Schedule))
		r.Post("/schedule/rules", createRuleHandler(cfg.Schedule))
		r.Put("/schedule/rules/{id}", updateRuleHandler(cfg.Schedule))
		r.Delete("/schedule/rules/{id}", deleteRuleHandler(cfg.Schedule))
		r.Get("/schedule/blocks", listBlocksHandler(cfg.Schedule))
		r.Post("/schedule/blocks", createBlockHandler(cfg.Schedule))
		r.Delete("/schedule/blocks/{id}", deleteBlockHandler(cfg.Schedule))

		r.Get("/patients", listPatientsHandler(cfg.Patients))
		r.Post("/patients", createPatientHandler(cfg.Patients))
		r.Get("/patients/{id}", getPatientHandler(cfg.Patients))
		r.Put("/patients/{id}", updatePatientHandler(cfg.Patients))
		r.Put("/patients/{id}/archive", patientStateHandler(cfg.Patients.Archive))
		r.Put("/patients/{id}/reactivate", patientStateHandler(cfg.Patients.Reactivate))
		r.With(adminOnly).Delete("/patients/{id}", deletePatientHandler(cfg.Patients))

		r.Get("/notifications", listNotificationsHandler(cfg.Notifications))
		r.Put("/notifications/{id}/read", markReadHandler(cfg.Notifications))
	})

	return r
}

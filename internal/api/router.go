package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/omasdev/provider-scheduling/internal/records"
	"github.com/omasdev/provider-scheduling/internal/scheduling"
	"github.com/omasdev/provider-scheduling/internal/session"
)

type RouterConfig struct {
	Service  *scheduling.Service
	Records  *records.PgStore
	Sessions session.Store
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   *zap.Logger
	Env      string
	Version  string
	DemoPIN  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(loggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/auth/login", loginHandler(cfg.Service, cfg.Sessions, cfg.DemoPIN))

	// Everything below requires a valid session token.
	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware(cfg.Sessions))

		r.Get("/auth/session", sessionHandler())
		r.Post("/auth/logout", logoutHandler(cfg.Sessions))

		r.Post("/patients", createPatientHandler(cfg.Service))
		r.Get("/patients", listPatientsHandler(cfg.Service))
		r.Get("/patients/{id}", getPatientHandler(cfg.Service))
		r.Put("/patients/{id}", updatePatientHandler(cfg.Service))
		r.Delete("/patients/{id}", deletePatientHandler(cfg.Service))

		r.Post("/providers", createProviderHandler(cfg.Service))
		r.Get("/providers", listProvidersHandler(cfg.Service))
		r.Get("/providers/{id}", getProviderHandler(cfg.Service))
		r.Put("/providers/{id}", updateProviderHandler(cfg.Service))
		r.Get("/providers/{id}/availability", getAvailabilityHandler(cfg.Service))

		r.Post("/provider-availability", createRuleHandler(cfg.Service))
		r.Get("/provider-availability", listRulesHandler(cfg.Service))
		r.Put("/provider-availability/{id}", updateRuleHandler(cfg.Service))
		r.Delete("/provider-availability/{id}", deleteRuleHandler(cfg.Service))

		r.Post("/provider-exceptions", createExceptionHandler(cfg.Service))
		r.Get("/provider-exceptions", listExceptionsHandler(cfg.Service))
		r.Put("/provider-exceptions/{id}", updateExceptionHandler(cfg.Service))
		r.Delete("/provider-exceptions/{id}", deleteExceptionHandler(cfg.Service))

		r.Post("/appointments", createAppointmentHandler(cfg.Service))
		r.Get("/appointments", listAppointmentsHandler(cfg.Service))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
		r.Put("/appointments/{id}", rescheduleAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))

		r.Post("/payments", createPaymentHandler(cfg.Records))
		r.Get("/payments", listPaymentsHandler(cfg.Records))
		r.Get("/payments/{id}", getPaymentHandler(cfg.Records))
		r.Put("/payments/{id}", updatePaymentHandler(cfg.Records))

		r.Post("/notification-preferences", createPreferenceHandler(cfg.Records))
		r.Get("/notification-preferences", listPreferencesHandler(cfg.Records))
		r.Put("/notification-preferences/{id}", updatePreferenceHandler(cfg.Records))

		r.Get("/notifications-outbox", listOutboxHandler(cfg.Records))
		r.Get("/audit-logs", listAuditLogsHandler(cfg.Records))
	})

	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/careops/opd-scheduling/internal/booking"
	"github.com/careops/opd-scheduling/internal/followup"
	"github.com/careops/opd-scheduling/internal/schedule"
)

type RouterConfig struct {
	Bookings  *booking.Service
	FollowUps *followup.Service
	Schedules schedule.Store
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability, day lists and weekly schedule templates
	r.Get("/doctors/{doctorID}/availability", getAvailabilityHandler(cfg.Bookings))
	r.Get("/doctors/{doctorID}/appointments", listDayAppointmentsHandler(cfg.Bookings))
	r.Get("/doctors/{doctorID}/followups", listWaitingFollowUpsHandler(cfg.FollowUps))
	r.Get("/doctors/{doctorID}/schedule/{weekday}", getScheduleHandler(cfg.Schedules))
	r.Put("/doctors/{doctorID}/schedule/{weekday}", upsertScheduleHandler(cfg.Schedules))
	r.Delete("/doctors/{doctorID}/schedule/{weekday}", deleteScheduleHandler(cfg.Schedules))

	// Appointments
	r.Post("/appointments", createBookingHandler(cfg.Bookings))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Bookings))
	r.Post("/appointments/{id}/status", transitionStatusHandler(cfg.Bookings, cfg.FollowUps))
	r.Post("/appointments/{id}/reschedule", rescheduleNoShowHandler(cfg.FollowUps))

	// Follow-ups
	r.Post("/followups", createFollowUpHandler(cfg.FollowUps))
	r.Get("/followups/{id}", getFollowUpHandler(cfg.FollowUps))
	r.Post("/followups/{id}/schedule", scheduleFollowUpHandler(cfg.FollowUps))

	return r
}

package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrScheduleNotFound = errors.New("weekly schedule entry not found")
	ErrInvalidEntry     = errors.New("invalid weekly schedule entry")
)

// Store holds each doctor's recurring weekly template.
type Store interface {
	// GetWeeklySchedule returns the entry for the doctor's weekday, or
	// ErrScheduleNotFound when none is configured.
	GetWeeklySchedule(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) (*WeeklyScheduleEntry, error)

	// UpsertWeeklySchedule creates or replaces the single entry for
	// (doctor, weekday). Existing appointments are never touched.
	UpsertWeeklySchedule(ctx context.Context, entry *WeeklyScheduleEntry) (*WeeklyScheduleEntry, error)

	// DeleteWeeklySchedule removes the entry for (doctor, weekday).
	// Already-booked appointments stay valid.
	DeleteWeeklySchedule(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) error
}

// ValidateEntry checks the template invariants before persistence.
func ValidateEntry(e *WeeklyScheduleEntry) error {
	if e.DoctorID == uuid.Nil {
		return ErrInvalidEntry
	}
	if e.Weekday < time.Sunday || e.Weekday > time.Saturday {
		return ErrInvalidEntry
	}
	if !e.StartTime.Valid() || !e.EndTime.Valid() || e.StartTime >= e.EndTime {
		return ErrInvalidEntry
	}
	if e.SlotMinutes <= 0 {
		return ErrInvalidEntry
	}
	return nil
}

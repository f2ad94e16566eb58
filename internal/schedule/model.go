package schedule

import (
	"time"

	"github.com/google/uuid"
)

// WeeklyScheduleEntry is a doctor's recurring availability template for a
// single weekday. At most one entry exists per (doctor, weekday).
type WeeklyScheduleEntry struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	Weekday     time.Weekday
	StartTime   TimeOfDay
	EndTime     TimeOfDay
	SlotMinutes int
	Location    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SlotInterval is a single bookable interval on a target date. Derived on
// every availability query, never persisted.
type SlotInterval struct {
	Start TimeOfDay
	End   TimeOfDay
}

package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/careops/opd-scheduling/internal/schedule"
)

type Status string

const (
	StatusBooked     Status = "booked"
	StatusCheckedIn  Status = "checked_in"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusNoShow     Status = "no_show"
	StatusCancelled  Status = "cancelled"
)

// BlockingStatuses are the statuses under which an appointment still occupies
// its slot and still counts against the one-appointment-per-patient-per-day
// rule. Terminal statuses release both.
var BlockingStatuses = []Status{StatusBooked, StatusCheckedIn, StatusInProgress}

func (s Status) Valid() bool {
	switch s {
	case StatusBooked, StatusCheckedIn, StatusInProgress, StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

// Blocking reports whether the status occupies a slot.
func (s Status) Blocking() bool {
	switch s {
	case StatusBooked, StatusCheckedIn, StatusInProgress:
		return true
	}
	return false
}

// Terminal statuses admit no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo encodes the appointment lifecycle:
// booked -> checked_in -> in_progress -> completed, with cancellation and
// no-show allowed from any blocking status.
func (s Status) CanTransitionTo(to Status) bool {
	if !to.Valid() || s.Terminal() {
		return false
	}
	switch to {
	case StatusCancelled, StatusNoShow:
		return s.Blocking()
	case StatusCheckedIn:
		return s == StatusBooked
	case StatusInProgress:
		return s == StatusCheckedIn
	case StatusCompleted:
		return s == StatusInProgress
	}
	return false
}

type Appointment struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	DepartmentID uuid.UUID
	Date         time.Time // calendar date, midnight in clinic-local time
	SlotStart    schedule.TimeOfDay
	SlotEnd      schedule.TimeOfDay
	Status       Status
	Purpose      string
	BookedBy     *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SlotState string

const (
	SlotFree   SlotState = "free"
	SlotBooked SlotState = "booked"
	SlotPast   SlotState = "past"
)

// AvailableSlot is one candidate interval from the doctor's template,
// annotated with its resolved state for the queried date.
type AvailableSlot struct {
	schedule.SlotInterval
	State SlotState
}

// DateOnly truncates t to its calendar date, keeping the location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dateBefore(a, b time.Time) bool {
	return DateOnly(a).Before(DateOnly(b))
}

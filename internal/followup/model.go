package followup

import (
	"time"

	"github.com/google/uuid"
)

type FollowUpStatus string

const (
	StatusWaiting   FollowUpStatus = "waiting"
	StatusScheduled FollowUpStatus = "scheduled"
	StatusCompleted FollowUpStatus = "completed"
	StatusCancelled FollowUpStatus = "cancelled"
)

// FollowUp is a pending instruction to bring a patient back. Once scheduled,
// AppointmentID points at the live appointment that satisfies it.
type FollowUp struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	DepartmentID  uuid.UUID
	DueDate       time.Time
	Note          string
	Status        FollowUpStatus
	AppointmentID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

package followup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrFollowUpNotFound   = errors.New("follow-up not found")
	ErrFollowUpNotWaiting = errors.New("follow-up is not waiting to be scheduled")
)

// Repository contains all DB interactions needed by the adapter.
type Repository interface {
	GetFollowUpByID(ctx context.Context, id uuid.UUID) (*FollowUp, error)

	// GetFollowUpByAppointmentID finds the follow-up linked to an
	// appointment, if any.
	GetFollowUpByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*FollowUp, error)

	CreateFollowUp(ctx context.Context, fu *FollowUp) (*FollowUp, error)

	// MarkScheduled swaps a waiting follow-up to scheduled and links the
	// appointment. Returns ErrFollowUpNotWaiting if the follow-up moved out
	// of waiting in the meantime.
	MarkScheduled(ctx context.Context, id, appointmentID uuid.UUID) (*FollowUp, error)

	UpdateFollowUpStatus(ctx context.Context, id uuid.UUID, from, to FollowUpStatus) (*FollowUp, error)

	// ListWaiting returns waiting follow-ups for a doctor due on or before
	// the given date, soonest first.
	ListWaiting(ctx context.Context, doctorID uuid.UUID, dueBefore time.Time) ([]FollowUp, error)
}

package followup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/careops/opd-scheduling/internal/booking"
	"github.com/careops/opd-scheduling/internal/schedule"
)

var (
	// ErrNotNoShow means a reschedule was requested for an appointment that
	// was never marked no_show.
	ErrNotNoShow = errors.New("appointment is not a no-show")
)

// Service converts follow-up and no-show records into new bookings through
// the booking coordinator. It never mutates appointment history: a no-show
// stays a no-show, a new appointment supersedes it.
type Service struct {
	repo     Repository
	bookings *booking.Service
}

func NewService(repo Repository, bookings *booking.Service) *Service {
	return &Service{
		repo:     repo,
		bookings: bookings,
	}
}

// ScheduleFollowUp books an appointment for a waiting follow-up and links it.
// Any booking failure leaves the follow-up untouched.
func (s *Service) ScheduleFollowUp(ctx context.Context, followUpID uuid.UUID, date time.Time, slotStart schedule.TimeOfDay, bookedBy *uuid.UUID) (*booking.Appointment, error) {
	fu, err := s.repo.GetFollowUpByID(ctx, followUpID)
	if err != nil {
		return nil, err
	}
	if fu.Status != StatusWaiting {
		return nil, ErrFollowUpNotWaiting
	}

	purpose := "Follow-up visit"
	if fu.Note != "" {
		purpose = fmt.Sprintf("Follow-up visit: %s", fu.Note)
	}

	appt, err := s.bookings.CreateBooking(ctx, booking.CreateBookingRequest{
		PatientID:    fu.PatientID,
		DoctorID:     fu.DoctorID,
		DepartmentID: fu.DepartmentID,
		Date:         date,
		SlotStart:    slotStart,
		Purpose:      purpose,
		BookedBy:     bookedBy,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.MarkScheduled(ctx, fu.ID, appt.ID); err != nil {
		// The booking landed but the follow-up could not be linked (raced
		// with another scheduler, most likely). Cancel the booking so we do
		// not strand a slot; the follow-up keeps whatever state won.
		if _, cancelErr := s.bookings.TransitionStatus(ctx, appt.ID, booking.StatusCancelled); cancelErr != nil {
			log.Printf("failed to cancel orphaned follow-up booking %s: %v", appt.ID, cancelErr)
		}
		return nil, err
	}

	return appt, nil
}

// RescheduleFromNoShow books a brand-new appointment for the patient and
// doctor of a no-show, preserving the old record as immutable history.
func (s *Service) RescheduleFromNoShow(ctx context.Context, oldAppointmentID uuid.UUID, date time.Time, slotStart schedule.TimeOfDay, bookedBy *uuid.UUID) (*booking.Appointment, error) {
	old, err := s.bookings.GetAppointment(ctx, oldAppointmentID)
	if err != nil {
		return nil, err
	}
	if old.Status != booking.StatusNoShow {
		return nil, ErrNotNoShow
	}

	return s.bookings.CreateBooking(ctx, booking.CreateBookingRequest{
		PatientID:    old.PatientID,
		DoctorID:     old.DoctorID,
		DepartmentID: old.DepartmentID,
		Date:         date,
		SlotStart:    slotStart,
		Purpose:      old.Purpose,
		BookedBy:     bookedBy,
	})
}

// CreateFollowUp registers a new waiting follow-up.
func (s *Service) CreateFollowUp(ctx context.Context, fu *FollowUp) (*FollowUp, error) {
	if fu.PatientID == uuid.Nil || fu.DoctorID == uuid.Nil || fu.DepartmentID == uuid.Nil {
		return nil, &booking.ValidationError{Reason: "patient, doctor and department are required"}
	}
	if fu.DueDate.IsZero() {
		return nil, &booking.ValidationError{Reason: "due date is required"}
	}
	return s.repo.CreateFollowUp(ctx, fu)
}

// SyncAppointmentOutcome propagates a terminal appointment outcome to the
// follow-up linked to it, if any. A completed appointment completes the
// follow-up; a cancellation or no-show reverts it to waiting so it can be
// scheduled again. Returns the updated follow-up, or nil when no linked
// follow-up needed a change.
func (s *Service) SyncAppointmentOutcome(ctx context.Context, appt *booking.Appointment) (*FollowUp, error) {
	fu, err := s.repo.GetFollowUpByAppointmentID(ctx, appt.ID)
	if err != nil {
		if errors.Is(err, ErrFollowUpNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if fu.Status != StatusScheduled {
		return nil, nil
	}

	var to FollowUpStatus
	switch appt.Status {
	case booking.StatusCompleted:
		to = StatusCompleted
	case booking.StatusCancelled, booking.StatusNoShow:
		to = StatusWaiting
	default:
		return nil, nil
	}

	updated, err := s.repo.UpdateFollowUpStatus(ctx, fu.ID, StatusScheduled, to)
	if err != nil {
		if errors.Is(err, ErrFollowUpNotFound) {
			// The follow-up moved out of scheduled since the lookup; whoever
			// moved it owns the outcome.
			return nil, nil
		}
		return nil, err
	}
	return updated, nil
}

// GetFollowUp loads a follow-up by id.
func (s *Service) GetFollowUp(ctx context.Context, id uuid.UUID) (*FollowUp, error) {
	return s.repo.GetFollowUpByID(ctx, id)
}

// ListWaiting returns a doctor's waiting follow-ups due on or before a date.
func (s *Service) ListWaiting(ctx context.Context, doctorID uuid.UUID, dueBefore time.Time) ([]FollowUp, error) {
	return s.repo.ListWaiting(ctx, doctorID, dueBefore)
}

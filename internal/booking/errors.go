package booking

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotUnavailable means the requested slot is not currently free:
	// already taken, lost to a concurrent booking, or not a candidate slot
	// at all. Callers should re-fetch availability.
	ErrSlotUnavailable = errors.New("slot is not available for booking")

	// Ledger-level conflict sentinels, raised when the storage uniqueness
	// constraints reject an insert. The coordinator translates them into
	// ErrSlotUnavailable / DuplicateBookingError after its single retry.
	ErrSlotConflict    = errors.New("another appointment holds this slot")
	ErrPatientConflict = errors.New("patient already has an appointment on this date")
)

// ValidationError rejects a malformed or past-dated request. User-correctable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid booking request: " + e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// DuplicateBookingError carries the appointment that blocks the patient from
// booking again on the same date, so callers can surface it.
type DuplicateBookingError struct {
	Conflicting *Appointment
}

func (e *DuplicateBookingError) Error() string {
	if e.Conflicting == nil {
		return "patient already has an appointment on this date"
	}
	return fmt.Sprintf("patient already has appointment %s with doctor %s on this date",
		e.Conflicting.ID, e.Conflicting.DoctorID)
}

// ConflictingID returns the blocking appointment's id, or uuid.Nil.
func (e *DuplicateBookingError) ConflictingID() uuid.UUID {
	if e.Conflicting == nil {
		return uuid.Nil
	}
	return e.Conflicting.ID
}

// InvalidTransitionError reports an illegal status move. Seeing one from a
// well-behaved client usually means a stale or buggy UI.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition appointment from %s to %s", e.From, e.To)
}

// StoreError wraps an infrastructure failure so callers can distinguish it
// from domain rejections without seeing driver internals.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger is the persistence surface for appointments. It is the only mutable
// shared state in the engine; every write goes through the Service.
//
// Implementations must enforce two uniqueness rules over rows in a blocking
// status (booked, checked_in, in_progress):
//   - at most one such row per (doctor_id, date, slot_start), surfaced as
//     ErrSlotConflict on insert;
//   - at most one such row per (patient_id, date), surfaced as
//     ErrPatientConflict on insert.
type Ledger interface {
	ListActiveAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)
	ListActiveAppointmentsForPatient(ctx context.Context, patientID uuid.UUID, date time.Time) ([]Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// InsertAppointment persists a new appointment, returning the stored row.
	InsertAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)

	// UpdateAppointmentStatus performs a compare-and-swap on status; it
	// returns ErrAppointmentNotFound when no row matches (id, from).
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// FindOverdueBooked returns appointments still in status booked whose
	// date is strictly before the given day. Used by the no-show sweep.
	FindOverdueBooked(ctx context.Context, before time.Time) ([]Appointment, error)
}

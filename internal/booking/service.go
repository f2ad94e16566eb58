package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/careops/opd-scheduling/internal/redis"
	"github.com/careops/opd-scheduling/internal/schedule"
)

type Service struct {
	schedules schedule.Store
	ledger    Ledger
	locker    redisclient.Locker
	now       func() time.Time
}

func NewService(schedules schedule.Store, ledger Ledger, locker redisclient.Locker) *Service {
	return NewServiceWithClock(schedules, ledger, locker, time.Now)
}

// NewServiceWithClock is NewService with an injected wall clock, so tests can
// pin "now".
func NewServiceWithClock(schedules schedule.Store, ledger Ledger, locker redisclient.Locker, now func() time.Time) *Service {
	return &Service{
		schedules: schedules,
		ledger:    ledger,
		locker:    locker,
		now:       now,
	}
}

// GetAvailability resolves a doctor's slots for a date against booked
// appointments and elapsed time. "now" is passed in rather than read from a
// global clock. Every candidate slot from the template appears in the result
// exactly once, in generation order, annotated free, booked or past. A doctor
// with no template entry for that weekday yields an empty list, not an error;
// callers cannot tell "no schedule" from "nothing free" and are not meant to.
func (s *Service) GetAvailability(ctx context.Context, doctorID uuid.UUID, date, now time.Time) ([]AvailableSlot, error) {
	entry, err := s.schedules.GetWeeklySchedule(ctx, doctorID, date.Weekday())
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			return []AvailableSlot{}, nil
		}
		return nil, &StoreError{Op: "load weekly schedule", Err: err}
	}

	candidates := schedule.GenerateSlots(entry, date)
	if len(candidates) == 0 {
		return []AvailableSlot{}, nil
	}

	active, err := s.ledger.ListActiveAppointments(ctx, doctorID, date)
	if err != nil {
		return nil, &StoreError{Op: "list active appointments", Err: err}
	}

	booked := make(map[schedule.TimeOfDay]struct{}, len(active))
	for _, a := range active {
		booked[a.SlotStart] = struct{}{}
	}

	result := make([]AvailableSlot, 0, len(candidates))
	for _, c := range candidates {
		state := SlotFree
		if _, taken := booked[c.Start]; taken {
			state = SlotBooked
		} else if slotInPast(c.Start, date, now) {
			state = SlotPast
		}
		result = append(result, AvailableSlot{SlotInterval: c, State: state})
	}
	return result, nil
}

// slotInPast: the whole date is behind us, or the slot starts at or before
// "now" on the current date. A slot starting exactly now is already past.
func slotInPast(start schedule.TimeOfDay, date, now time.Time) bool {
	if dateBefore(date, now) {
		return true
	}
	if sameDate(date, now) {
		return !start.OnDate(date).After(now)
	}
	return false
}

type CreateBookingRequest struct {
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	DepartmentID uuid.UUID
	Date         time.Time
	SlotStart    schedule.TimeOfDay
	Purpose      string
	BookedBy     *uuid.UUID
}

func (r *CreateBookingRequest) validate() error {
	if r.PatientID == uuid.Nil {
		return validationf("patient_id is required")
	}
	if r.DoctorID == uuid.Nil {
		return validationf("doctor_id is required")
	}
	if r.DepartmentID == uuid.Nil {
		return validationf("department_id is required")
	}
	if r.Date.IsZero() {
		return validationf("date is required")
	}
	if !r.SlotStart.Valid() {
		return validationf("slot_start %d is not a valid time of day", r.SlotStart.Minutes())
	}
	return nil
}

// CreateBooking validates a booking request against current availability and
// the duplicate-patient rule, then commits atomically. Concurrent requests
// for the same slot are serialized by a Redis lock scoped to
// (doctor, date, slot_start); the database's partial unique indexes remain
// the final authority, so exactly one of two racing requests wins even if
// both slip past the lock. A commit rejected by a constraint is retried once
// against fresh state and then fails with the matching typed error.
func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest) (*Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	if dateBefore(req.Date, now) {
		return nil, validationf("date %s is in the past", DateOnly(req.Date).Format("2006-01-02"))
	}
	if sameDate(req.Date, now) && !req.SlotStart.OnDate(req.Date).After(now) {
		return nil, validationf("slot %s has already passed", req.SlotStart)
	}

	var created *Appointment
	lockKey := fmt.Sprintf("%s:%s:%s", req.DoctorID, DateOnly(req.Date).Format("2006-01-02"), req.SlotStart)

	err := s.locker.WithBookingLock(ctx, lockKey, func(lockCtx context.Context) error {
		appt, err := s.tryCreate(lockCtx, req, now)
		if errors.Is(err, ErrSlotConflict) || errors.Is(err, ErrPatientConflict) {
			// Lost a race the lock did not cover. One retry against fresh
			// state; the availability and duplicate checks will now see the
			// winner's row and produce the right rejection.
			appt, err = s.tryCreate(lockCtx, req, now)
		}
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		return nil, s.mapCommitError(ctx, req, err)
	}

	return created, nil
}

// tryCreate runs the slot and duplicate checks and inserts. Checks and insert
// are not a single snapshot; the ledger's uniqueness constraints close the
// check-then-act window.
func (s *Service) tryCreate(ctx context.Context, req CreateBookingRequest, now time.Time) (*Appointment, error) {
	avail, err := s.GetAvailability(ctx, req.DoctorID, req.Date, now)
	if err != nil {
		return nil, err
	}

	var slot *AvailableSlot
	for i := range avail {
		if avail[i].Start == req.SlotStart {
			slot = &avail[i]
			break
		}
	}
	if slot == nil {
		return nil, ErrSlotUnavailable
	}
	switch slot.State {
	case SlotBooked:
		return nil, ErrSlotUnavailable
	case SlotPast:
		return nil, validationf("slot %s has already passed", req.SlotStart)
	}

	existing, err := s.ledger.ListActiveAppointmentsForPatient(ctx, req.PatientID, req.Date)
	if err != nil {
		return nil, &StoreError{Op: "check patient appointments", Err: err}
	}
	if len(existing) > 0 {
		return nil, &DuplicateBookingError{Conflicting: &existing[0]}
	}

	appt := &Appointment{
		PatientID:    req.PatientID,
		DoctorID:     req.DoctorID,
		DepartmentID: req.DepartmentID,
		Date:         DateOnly(req.Date),
		SlotStart:    slot.Start,
		SlotEnd:      slot.End,
		Status:       StatusBooked,
		Purpose:      req.Purpose,
		BookedBy:     req.BookedBy,
	}

	created, err := s.ledger.InsertAppointment(ctx, appt)
	if err != nil && IsTransientStoreError(err) {
		created, err = s.ledger.InsertAppointment(ctx, appt)
	}
	if err != nil {
		if errors.Is(err, ErrSlotConflict) || errors.Is(err, ErrPatientConflict) {
			return nil, err
		}
		return nil, &StoreError{Op: "insert appointment", Err: err}
	}
	return created, nil
}

// mapCommitError turns low-level rejection modes into the errors callers are
// documented to receive.
func (s *Service) mapCommitError(ctx context.Context, req CreateBookingRequest, err error) error {
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		// Another clerk holds the slot lock right now; to the caller that is
		// indistinguishable from the slot being taken.
		return ErrSlotUnavailable
	case errors.Is(err, ErrSlotConflict):
		return ErrSlotUnavailable
	case errors.Is(err, ErrPatientConflict):
		existing, lookupErr := s.ledger.ListActiveAppointmentsForPatient(ctx, req.PatientID, req.Date)
		if lookupErr != nil || len(existing) == 0 {
			return &DuplicateBookingError{}
		}
		return &DuplicateBookingError{Conflicting: &existing[0]}
	default:
		return err
	}
}

// TransitionStatus moves an appointment along its lifecycle, rejecting any
// move the state machine does not allow. The underlying update is a
// compare-and-swap keyed on the current status, so two actors cannot both
// apply a transition from the same state.
func (s *Service) TransitionStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	if !to.Valid() {
		return nil, validationf("unknown status %q", string(to))
	}

	appt, err := s.ledger.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "load appointment", Err: err}
	}

	if !appt.Status.CanTransitionTo(to) {
		return nil, &InvalidTransitionError{From: appt.Status, To: to}
	}

	updated, err := s.ledger.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Status changed under us between load and swap. Report against
			// the fresh state.
			fresh, freshErr := s.ledger.GetAppointmentByID(ctx, id)
			if freshErr != nil {
				if errors.Is(freshErr, ErrAppointmentNotFound) {
					return nil, ErrAppointmentNotFound
				}
				return nil, &StoreError{Op: "reload appointment", Err: freshErr}
			}
			return nil, &InvalidTransitionError{From: fresh.Status, To: to}
		}
		return nil, &StoreError{Op: "update appointment status", Err: err}
	}
	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.ledger.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "load appointment", Err: err}
	}
	return appt, nil
}

// ListDayAppointments returns the blocking-status appointments for a
// doctor's day, ordered by slot start.
func (s *Service) ListDayAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	appts, err := s.ledger.ListActiveAppointments(ctx, doctorID, date)
	if err != nil {
		return nil, &StoreError{Op: "list active appointments", Err: err}
	}
	return appts, nil
}

// SweepOverdueBooked marks appointments from past dates that were never
// acted on as no_show. Intended to be called periodically by the worker.
// Returns how many appointments were swept.
func (s *Service) SweepOverdueBooked(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.ledger.FindOverdueBooked(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find overdue booked appointments: %w", err)
	}

	swept := 0
	for _, appt := range overdue {
		_, err := s.ledger.UpdateAppointmentStatus(ctx, appt.ID, StatusBooked, StatusNoShow)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				// Someone transitioned it since the query; fine.
				continue
			}
			log.Printf("failed to mark appointment %s as no_show: %v", appt.ID, err)
			continue
		}
		swept++
	}
	return swept, nil
}

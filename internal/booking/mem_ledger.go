package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemLedger is an in-memory Ledger for tests and local development. It
// enforces the same two uniqueness rules as the Postgres partial indexes, so
// tests exercise the real conflict paths.
type MemLedger struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*Appointment
	order []uuid.UUID
}

func NewMemLedger() *MemLedger {
	return &MemLedger{
		rows: make(map[uuid.UUID]*Appointment),
	}
}

func (l *MemLedger) ListActiveAppointments(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []Appointment
	for _, id := range l.order {
		a := l.rows[id]
		if a.DoctorID == doctorID && sameDate(a.Date, date) && a.Status.Blocking() {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (l *MemLedger) ListActiveAppointmentsForPatient(_ context.Context, patientID uuid.UUID, date time.Time) ([]Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []Appointment
	for _, id := range l.order {
		a := l.rows[id]
		if a.PatientID == patientID && sameDate(a.Date, date) && a.Status.Blocking() {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (l *MemLedger) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.rows[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (l *MemLedger) InsertAppointment(_ context.Context, appt *Appointment) (*Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if appt.Status.Blocking() {
		for _, existing := range l.rows {
			if !existing.Status.Blocking() {
				continue
			}
			if existing.DoctorID == appt.DoctorID && sameDate(existing.Date, appt.Date) && existing.SlotStart == appt.SlotStart {
				return nil, ErrSlotConflict
			}
			if existing.PatientID == appt.PatientID && sameDate(existing.Date, appt.Date) {
				return nil, ErrPatientConflict
			}
		}
	}

	a := *appt
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Date = DateOnly(a.Date)

	l.rows[a.ID] = &a
	l.order = append(l.order, a.ID)

	out := a
	return &out, nil
}

func (l *MemLedger) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.rows[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()

	out := *a
	return &out, nil
}

func (l *MemLedger) FindOverdueBooked(_ context.Context, before time.Time) ([]Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []Appointment
	for _, id := range l.order {
		a := l.rows[id]
		if a.Status == StatusBooked && dateBefore(a.Date, before) {
			result = append(result, *a)
		}
	}
	return result, nil
}

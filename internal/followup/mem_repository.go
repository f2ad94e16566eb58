package followup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemRepository is an in-memory Repository for tests and local development.
type MemRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*FollowUp
}

func NewMemRepository() *MemRepository {
	return &MemRepository{rows: make(map[uuid.UUID]*FollowUp)}
}

func (r *MemRepository) GetFollowUpByID(_ context.Context, id uuid.UUID) (*FollowUp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.rows[id]
	if !ok {
		return nil, ErrFollowUpNotFound
	}
	out := *f
	return &out, nil
}

func (r *MemRepository) GetFollowUpByAppointmentID(_ context.Context, appointmentID uuid.UUID) (*FollowUp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.rows {
		if f.AppointmentID != nil && *f.AppointmentID == appointmentID {
			out := *f
			return &out, nil
		}
	}
	return nil, ErrFollowUpNotFound
}

func (r *MemRepository) CreateFollowUp(_ context.Context, fu *FollowUp) (*FollowUp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := *fu
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.Status = StatusWaiting
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now
	r.rows[f.ID] = &f

	out := f
	return &out, nil
}

func (r *MemRepository) MarkScheduled(_ context.Context, id, appointmentID uuid.UUID) (*FollowUp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.rows[id]
	if !ok {
		return nil, ErrFollowUpNotFound
	}
	if f.Status != StatusWaiting {
		return nil, ErrFollowUpNotWaiting
	}
	f.Status = StatusScheduled
	f.AppointmentID = &appointmentID
	f.UpdatedAt = time.Now()

	out := *f
	return &out, nil
}

func (r *MemRepository) UpdateFollowUpStatus(_ context.Context, id uuid.UUID, from, to FollowUpStatus) (*FollowUp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.rows[id]
	if !ok || f.Status != from {
		return nil, ErrFollowUpNotFound
	}
	f.Status = to
	f.UpdatedAt = time.Now()

	out := *f
	return &out, nil
}

func (r *MemRepository) ListWaiting(_ context.Context, doctorID uuid.UUID, dueBefore time.Time) ([]FollowUp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []FollowUp
	for _, f := range r.rows {
		if f.DoctorID == doctorID && f.Status == StatusWaiting && !f.DueDate.After(dueBefore) {
			result = append(result, *f)
		}
	}
	return result, nil
}

package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type weekKey struct {
	doctor  uuid.UUID
	weekday time.Weekday
}

// MemStore is an in-memory Store used by tests and local development. It
// mirrors the Postgres store's semantics, including the one-entry-per-
// (doctor, weekday) rule.
type MemStore struct {
	mu      sync.RWMutex
	entries map[weekKey]WeeklyScheduleEntry
}

func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[weekKey]WeeklyScheduleEntry),
	}
}

func (s *MemStore) GetWeeklySchedule(_ context.Context, doctorID uuid.UUID, weekday time.Weekday) (*WeeklyScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[weekKey{doctorID, weekday}]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	out := e
	return &out, nil
}

func (s *MemStore) UpsertWeeklySchedule(_ context.Context, entry *WeeklyScheduleEntry) (*WeeklyScheduleEntry, error) {
	if err := ValidateEntry(entry); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := *entry
	key := weekKey{e.DoctorID, e.Weekday}
	if prev, ok := s.entries[key]; ok {
		e.ID = prev.ID
		e.CreatedAt = prev.CreatedAt
	} else {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.CreatedAt = time.Now()
	}
	e.UpdatedAt = time.Now()
	s.entries[key] = e

	out := e
	return &out, nil
}

func (s *MemStore) DeleteWeeklySchedule(_ context.Context, doctorID uuid.UUID, weekday time.Weekday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := weekKey{doctorID, weekday}
	if _, ok := s.entries[key]; !ok {
		return ErrScheduleNotFound
	}
	delete(s.entries, key)
	return nil
}

package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func scanEntry(row pgx.Row) (*WeeklyScheduleEntry, error) {
	var e WeeklyScheduleEntry
	var weekday int
	var startMins, endMins int
	var location *string

	err := row.Scan(
		&e.ID,
		&e.DoctorID,
		&weekday,
		&startMins,
		&endMins,
		&e.SlotMinutes,
		&location,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	e.Weekday = time.Weekday(weekday)
	e.StartTime = TimeOfDay(startMins)
	e.EndTime = TimeOfDay(endMins)
	e.Location = location
	return &e, nil
}

func (s *PgStore) GetWeeklySchedule(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) (*WeeklyScheduleEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, doctor_id, weekday, start_mins, end_mins, slot_minutes, location, created_at, updated_at
		FROM weekly_schedules
		WHERE doctor_id = $1 AND weekday = $2
	`, doctorID, int(weekday))
	return scanEntry(row)
}

func (s *PgStore) UpsertWeeklySchedule(ctx context.Context, entry *WeeklyScheduleEntry) (*WeeklyScheduleEntry, error) {
	if err := ValidateEntry(entry); err != nil {
		return nil, err
	}

	id := entry.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO weekly_schedules (id, doctor_id, weekday, start_mins, end_mins, slot_minutes, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (doctor_id, weekday) DO UPDATE
		SET start_mins   = EXCLUDED.start_mins,
		    end_mins     = EXCLUDED.end_mins,
		    slot_minutes = EXCLUDED.slot_minutes,
		    location     = EXCLUDED.location,
		    updated_at   = now()
		RETURNING id, doctor_id, weekday, start_mins, end_mins, slot_minutes, location, created_at, updated_at
	`, id, entry.DoctorID, int(entry.Weekday), entry.StartTime.Minutes(), entry.EndTime.Minutes(), entry.SlotMinutes, entry.Location)

	return scanEntry(row)
}

func (s *PgStore) DeleteWeeklySchedule(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM weekly_schedules
		WHERE doctor_id = $1 AND weekday = $2
	`, doctorID, int(weekday))
	if err != nil {
		return fmt.Errorf("delete weekly schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/opd-scheduling/internal/schedule"
)

// Names of the partial unique indexes in migrations/0001_init.sql. They are
// the cross-process authority for the booking invariants.
const (
	slotLiveConstraint    = "appointments_slot_live_uq"
	patientLiveConstraint = "appointments_patient_live_uq"
)

type PgLedger struct {
	pool *pgxpool.Pool
}

func NewPgLedger(pool *pgxpool.Pool) *PgLedger {
	return &PgLedger{pool: pool}
}

const appointmentColumns = `
	id, patient_id, doctor_id, department_id, date,
	slot_start_mins, slot_end_mins, status, purpose, booked_by,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var startMins, endMins int
	var bookedBy *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.DepartmentID,
		&a.Date,
		&startMins,
		&endMins,
		&a.Status,
		&a.Purpose,
		&bookedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.SlotStart = schedule.TimeOfDay(startMins)
	a.SlotEnd = schedule.TimeOfDay(endMins)
	a.BookedBy = bookedBy
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (l *PgLedger) ListActiveAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		  AND status IN ('booked', 'checked_in', 'in_progress')
		ORDER BY slot_start_mins
	`, doctorID, DateOnly(date))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (l *PgLedger) ListActiveAppointmentsForPatient(ctx context.Context, patientID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		  AND date = $2
		  AND status IN ('booked', 'checked_in', 'in_progress')
		ORDER BY slot_start_mins
	`, patientID, DateOnly(date))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (l *PgLedger) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := l.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (l *PgLedger) InsertAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := appt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := l.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(id, patient_id, doctor_id, department_id, date,
			 slot_start_mins, slot_end_mins, status, purpose, booked_by,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, appt.PatientID, appt.DoctorID, appt.DepartmentID, DateOnly(appt.Date),
		appt.SlotStart.Minutes(), appt.SlotEnd.Minutes(), appt.Status, appt.Purpose, appt.BookedBy)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, translateConflict(err)
	}
	return created, nil
}

func (l *PgLedger) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := l.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (l *PgLedger) FindOverdueBooked(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'booked'
		  AND date < $1
		ORDER BY date, slot_start_mins
	`, DateOnly(before))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// translateConflict maps a unique violation on one of the live-row indexes to
// the matching ledger sentinel.
func translateConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case slotLiveConstraint:
		return ErrSlotConflict
	case patientLiveConstraint:
		return ErrPatientConflict
	}
	return err
}

// IsTransientStoreError reports whether a retry against the same pool might
// succeed: serialization failures, deadlocks, and connection-class errors.
func IsTransientStoreError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08")
	}
	return pgconn.SafeToRetry(err)
}

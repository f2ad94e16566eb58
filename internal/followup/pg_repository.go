package followup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const followUpColumns = `
	id, patient_id, doctor_id, department_id, due_date, note, status,
	appointment_id, created_at, updated_at`

func scanFollowUp(row pgx.Row) (*FollowUp, error) {
	var f FollowUp
	var appointmentID *uuid.UUID

	err := row.Scan(
		&f.ID,
		&f.PatientID,
		&f.DoctorID,
		&f.DepartmentID,
		&f.DueDate,
		&f.Note,
		&f.Status,
		&appointmentID,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFollowUpNotFound
		}
		return nil, err
	}

	f.AppointmentID = appointmentID
	return &f, nil
}

func (r *PgRepository) GetFollowUpByID(ctx context.Context, id uuid.UUID) (*FollowUp, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+followUpColumns+`
		FROM follow_ups
		WHERE id = $1
	`, id)
	return scanFollowUp(row)
}

func (r *PgRepository) GetFollowUpByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*FollowUp, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+followUpColumns+`
		FROM follow_ups
		WHERE appointment_id = $1
	`, appointmentID)
	return scanFollowUp(row)
}

func (r *PgRepository) CreateFollowUp(ctx context.Context, fu *FollowUp) (*FollowUp, error) {
	id := fu.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO follow_ups
			(id, patient_id, doctor_id, department_id, due_date, note, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'waiting', now(), now())
		RETURNING `+followUpColumns+`
	`, id, fu.PatientID, fu.DoctorID, fu.DepartmentID, fu.DueDate, fu.Note)
	return scanFollowUp(row)
}

func (r *PgRepository) MarkScheduled(ctx context.Context, id, appointmentID uuid.UUID) (*FollowUp, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE follow_ups
		SET status = 'scheduled',
		    appointment_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'waiting'
		RETURNING `+followUpColumns+`
	`, id, appointmentID)

	fu, err := scanFollowUp(row)
	if err != nil {
		if errors.Is(err, ErrFollowUpNotFound) {
			// Row exists but is no longer waiting, or is genuinely gone.
			if _, getErr := r.GetFollowUpByID(ctx, id); getErr == nil {
				return nil, ErrFollowUpNotWaiting
			}
			return nil, ErrFollowUpNotFound
		}
		return nil, err
	}
	return fu, nil
}

func (r *PgRepository) UpdateFollowUpStatus(ctx context.Context, id uuid.UUID, from, to FollowUpStatus) (*FollowUp, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE follow_ups
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+followUpColumns+`
	`, id, to, from)
	return scanFollowUp(row)
}

func (r *PgRepository) ListWaiting(ctx context.Context, doctorID uuid.UUID, dueBefore time.Time) ([]FollowUp, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+followUpColumns+`
		FROM follow_ups
		WHERE doctor_id = $1
		  AND status = 'waiting'
		  AND due_date <= $2
		ORDER BY due_date
	`, doctorID, dueBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

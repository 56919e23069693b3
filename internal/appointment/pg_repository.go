package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/appointment-booking/internal/store"
)

const appointmentColumns = `a.id, a.user_id, a.provider_id, a.time_slot_id, a.service_id,
	a.appointment_time, a.status, COALESCE(a.notes, ''), a.created_at, a.updated_at`

type PgRepository struct {
	db *store.Postgres
}

func NewPgRepository(db *store.Postgres) *PgRepository {
	return &PgRepository{db: db}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var slotID, serviceID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.ProviderID,
		&slotID,
		&serviceID,
		&a.AppointmentTime,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, store.Classify(err)
	}

	a.TimeSlotID = slotID
	a.ServiceID = serviceID
	return &a, nil
}

func (r *PgRepository) collect(ctx context.Context, sql string, args ...any) ([]Appointment, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, store.Classify(err)
	}
	return result, nil
}

func (r *PgRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.db.Conn(ctx).QueryRow(ctx, `
		WITH a AS (
			INSERT INTO appointments (id, user_id, provider_id, time_slot_id, service_id,
			                          appointment_time, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), now(), now())
			RETURNING *
		)
		SELECT `+appointmentColumns+` FROM a
	`, a.ID, a.UserID, a.ProviderID, a.TimeSlotID, a.ServiceID, a.AppointmentTime.UTC(), a.Status, a.Notes)

	created, err := scanAppointment(row)
	switch {
	case errors.Is(err, store.ErrUniqueViolation):
		return nil, fmt.Errorf("%w: %w", ErrSlotTaken, err)
	case errors.Is(err, store.ErrForeignKeyViolation) && strings.Contains(err.Error(), "user_id"):
		return nil, fmt.Errorf("%w: %w", ErrUserNotFound, err)
	}
	return created, err
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	row := r.db.Conn(ctx).QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments a WHERE a.id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	row := r.db.Conn(ctx).QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments a WHERE a.id = $1 FOR UPDATE`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Appointment, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	return r.collect(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.user_id = $1
		ORDER BY a.appointment_time DESC
	`, userID)
}

func (r *PgRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Appointment, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	return r.collect(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.provider_id = $1
		ORDER BY a.appointment_time DESC
	`, providerID)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	row := r.db.Conn(ctx).QueryRow(ctx, `
		UPDATE appointments a
		SET status = $2,
		    updated_at = now()
		WHERE a.id = $1
		  AND a.status = $3
		RETURNING `+appointmentColumns, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) FindElapsedConfirmed(ctx context.Context, now time.Time) ([]Appointment, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	return r.collect(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN time_slots ts ON ts.id = a.time_slot_id
		WHERE a.status = 'confirmed'
		  AND (ts.date + ts.end_time) < $1
	`, now.UTC())
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", store.Classify(err))
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

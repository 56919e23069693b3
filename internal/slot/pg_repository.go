package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/appointment-booking/internal/store"
)

const slotColumns = `id, provider_id, to_char(date, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'),
	to_char(end_time, 'HH24:MI'), is_booked, created_at, updated_at`

type PgRepository struct {
	db *store.Postgres
}

func NewPgRepository(db *store.Postgres) *PgRepository {
	return &PgRepository{db: db}
}

func scanSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot

	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.IsBooked,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, store.Classify(err)
	}

	return &s, nil
}

func (r *PgRepository) collect(ctx context.Context, sql string, args ...any) ([]TimeSlot, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	var result []TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, store.Classify(err)
	}
	return result, nil
}

func (r *PgRepository) ProviderExists(ctx context.Context, providerID uuid.UUID) (bool, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	var exists bool
	err := r.db.Conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM service_providers WHERE id = $1)`, providerID,
	).Scan(&exists)
	return exists, store.Classify(err)
}

func (r *PgRepository) Create(ctx context.Context, s *TimeSlot) (*TimeSlot, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	row := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO time_slots (id, provider_id, date, start_time, end_time, is_booked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, false, now(), now())
		RETURNING `+slotColumns,
		s.ID, s.ProviderID, s.Date, s.StartTime, s.EndTime)

	created, err := scanSlot(row)
	if errors.Is(err, store.ErrForeignKeyViolation) {
		return nil, ErrProviderNotFound
	}
	return created, err
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	row := r.db.Conn(ctx).QueryRow(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE id = $1`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]TimeSlot, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	return r.collect(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE provider_id = $1
		ORDER BY date, start_time
	`, providerID)
}

func (r *PgRepository) ListAvailable(ctx context.Context, providerID uuid.UUID, date string) ([]TimeSlot, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	return r.collect(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE provider_id = $1
		  AND date = $2
		  AND is_booked = false
		ORDER BY start_time
	`, providerID, date)
}

func (r *PgRepository) UpdateTimes(ctx context.Context, id, providerID uuid.UUID, start, end string) (*TimeSlot, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	row := r.db.Conn(ctx).QueryRow(ctx, `
		UPDATE time_slots
		SET start_time = $3,
		    end_time = $4,
		    updated_at = now()
		WHERE id = $1
		  AND provider_id = $2
		  AND is_booked = false
		RETURNING `+slotColumns,
		id, providerID, start, end)

	updated, err := scanSlot(row)
	if errors.Is(err, ErrSlotNotFound) {
		return nil, r.whyUntouched(ctx, id, providerID)
	}
	return updated, err
}

func (r *PgRepository) Delete(ctx context.Context, id, providerID uuid.UUID) error {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	tag, err := r.db.Conn(ctx).Exec(ctx, `
		DELETE FROM time_slots
		WHERE id = $1
		  AND provider_id = $2
		  AND is_booked = false
	`, id, providerID)
	if err != nil {
		return store.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return r.whyUntouched(ctx, id, providerID)
	}
	return nil
}

// whyUntouched explains a conditional write that matched no row.
func (r *PgRepository) whyUntouched(ctx context.Context, id, providerID uuid.UUID) error {
	var booked bool
	err := r.db.Conn(ctx).QueryRow(ctx,
		`SELECT is_booked FROM time_slots WHERE id = $1 AND provider_id = $2`, id, providerID,
	).Scan(&booked)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrSlotNotFound
	case err != nil:
		return store.Classify(err)
	case booked:
		return ErrSlotReserved
	default:
		// row changed between the two statements
		return fmt.Errorf("slot %s modified concurrently: %w", id, ErrSlotReserved)
	}
}

func (r *PgRepository) Reserve(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	row := r.db.Conn(ctx).QueryRow(ctx, `
		UPDATE time_slots
		SET is_booked = true,
		    updated_at = now()
		WHERE id = $1
		  AND is_booked = false
		RETURNING `+slotColumns, id)

	reserved, err := scanSlot(row)
	if !errors.Is(err, ErrSlotNotFound) {
		return reserved, err
	}

	var exists bool
	if err := r.db.Conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM time_slots WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return nil, store.Classify(err)
	}
	if exists {
		return nil, ErrSlotReserved
	}
	return nil, ErrSlotNotFound
}

func (r *PgRepository) Release(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	_, err := r.db.Conn(ctx).Exec(ctx, `
		UPDATE time_slots
		SET is_booked = false,
		    updated_at = now()
		WHERE id = $1
		  AND is_booked = true
	`, id)
	return store.Classify(err)
}

func (r *PgRepository) ReleaseFor(ctx context.Context, id, appointmentID uuid.UUID) (bool, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	tag, err := r.db.Conn(ctx).Exec(ctx, `
		UPDATE time_slots
		SET is_booked = false,
		    updated_at = now()
		WHERE id = $1
		  AND is_booked = true
		  AND NOT EXISTS (
		      SELECT 1 FROM appointments
		      WHERE time_slot_id = $1
		        AND id <> $2
		        AND status <> 'canceled'
		  )
	`, id, appointmentID)
	if err != nil {
		return false, store.Classify(err)
	}
	return tag.RowsAffected() == 1, nil
}

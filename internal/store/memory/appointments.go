package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/store"
)

type appointmentRepo struct {
	s *Store
}

func (r appointmentRepo) Create(ctx context.Context, a *appointment.Appointment) (*appointment.Appointment, error) {
	var created appointment.Appointment
	err := r.s.do(ctx, func(st *state) error {
		if _, ok := st.users[a.UserID]; !ok {
			return fmt.Errorf("%w: %w (appointments_user_id_fkey)", appointment.ErrUserNotFound, store.ErrForeignKeyViolation)
		}
		if _, ok := st.providers[a.ProviderID]; !ok {
			return fmt.Errorf("%w (appointments_provider_id_fkey)", store.ErrForeignKeyViolation)
		}
		if a.TimeSlotID != nil {
			if _, ok := st.slots[*a.TimeSlotID]; !ok {
				return fmt.Errorf("%w (appointments_time_slot_id_fkey)", store.ErrForeignKeyViolation)
			}
			for _, other := range st.appointments {
				if other.Status.Active() && other.TimeSlotID != nil && *other.TimeSlotID == *a.TimeSlotID {
					return appointment.ErrSlotTaken
				}
			}
		}

		created = *a
		if created.ID == uuid.Nil {
			created.ID = uuid.New()
		}
		created.AppointmentTime = created.AppointmentTime.UTC()
		created.CreatedAt = r.s.now()
		created.UpdatedAt = created.CreatedAt
		st.appointments[created.ID] = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r appointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var found appointment.Appointment
	err := r.s.do(ctx, func(st *state) error {
		a, ok := st.appointments[id]
		if !ok {
			return appointment.ErrAppointmentNotFound
		}
		found = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// GetByIDForUpdate needs no row lock: a transaction already holds the whole
// store.
func (r appointmentRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return r.GetByID(ctx, id)
}

func (r appointmentRepo) list(ctx context.Context, keep func(appointment.Appointment) bool) ([]appointment.Appointment, error) {
	out := []appointment.Appointment{}
	err := r.s.do(ctx, func(st *state) error {
		for _, a := range st.appointments {
			if keep(a) {
				out = append(out, a)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b appointment.Appointment) int {
		return b.AppointmentTime.Compare(a.AppointmentTime)
	})
	return out, err
}

func (r appointmentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]appointment.Appointment, error) {
	return r.list(ctx, func(a appointment.Appointment) bool { return a.UserID == userID })
}

func (r appointmentRepo) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]appointment.Appointment, error) {
	return r.list(ctx, func(a appointment.Appointment) bool { return a.ProviderID == providerID })
}

func (r appointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to appointment.AppointmentStatus) (*appointment.Appointment, error) {
	var updated appointment.Appointment
	err := r.s.do(ctx, func(st *state) error {
		a, ok := st.appointments[id]
		if !ok || a.Status != from {
			return appointment.ErrAppointmentNotFound
		}
		a.Status = to
		a.UpdatedAt = r.s.now()
		st.appointments[id] = a
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r appointmentRepo) FindElapsedConfirmed(ctx context.Context, now time.Time) ([]appointment.Appointment, error) {
	var out []appointment.Appointment
	err := r.s.do(ctx, func(st *state) error {
		for _, a := range st.appointments {
			if a.Status != appointment.StatusConfirmed || a.TimeSlotID == nil {
				continue
			}
			ts, ok := st.slots[*a.TimeSlotID]
			if !ok {
				continue
			}
			if end, err := ts.EndsAt(); err == nil && end.Before(now) {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

func (r appointmentRepo) InsertEvent(ctx context.Context, ev appointment.EventLog) error {
	return r.s.do(ctx, func(st *state) error {
		ev.ID = int64(len(st.events) + 1)
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = r.s.now()
		}
		st.events = append(st.events, ev)
		return nil
	})
}

package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/slot"
)

type slotRepo struct {
	s *Store
}

func (r slotRepo) ProviderExists(ctx context.Context, providerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.s.do(ctx, func(st *state) error {
		_, exists = st.providers[providerID]
		return nil
	})
	return exists, err
}

func (r slotRepo) Create(ctx context.Context, ts *slot.TimeSlot) (*slot.TimeSlot, error) {
	var created slot.TimeSlot
	err := r.s.do(ctx, func(st *state) error {
		if _, ok := st.providers[ts.ProviderID]; !ok {
			return slot.ErrProviderNotFound
		}
		created = *ts
		if created.ID == uuid.Nil {
			created.ID = uuid.New()
		}
		created.IsBooked = false
		created.CreatedAt = r.s.now()
		created.UpdatedAt = created.CreatedAt
		st.slots[created.ID] = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r slotRepo) GetByID(ctx context.Context, id uuid.UUID) (*slot.TimeSlot, error) {
	var found slot.TimeSlot
	err := r.s.do(ctx, func(st *state) error {
		ts, ok := st.slots[id]
		if !ok {
			return slot.ErrSlotNotFound
		}
		found = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func bySchedule(a, b slot.TimeSlot) int {
	return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.StartTime, b.StartTime))
}

func (r slotRepo) list(ctx context.Context, keep func(slot.TimeSlot) bool) ([]slot.TimeSlot, error) {
	var out []slot.TimeSlot
	err := r.s.do(ctx, func(st *state) error {
		for _, ts := range st.slots {
			if keep(ts) {
				out = append(out, ts)
			}
		}
		return nil
	})
	slices.SortFunc(out, bySchedule)
	return out, err
}

func (r slotRepo) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]slot.TimeSlot, error) {
	return r.list(ctx, func(ts slot.TimeSlot) bool {
		return ts.ProviderID == providerID
	})
}

func (r slotRepo) ListAvailable(ctx context.Context, providerID uuid.UUID, date string) ([]slot.TimeSlot, error) {
	return r.list(ctx, func(ts slot.TimeSlot) bool {
		return ts.ProviderID == providerID && ts.Date == date && !ts.IsBooked
	})
}

// owned returns the slot when it exists, belongs to providerID and is free.
func owned(st *state, id, providerID uuid.UUID) (slot.TimeSlot, error) {
	ts, ok := st.slots[id]
	switch {
	case !ok || ts.ProviderID != providerID:
		return ts, slot.ErrSlotNotFound
	case ts.IsBooked:
		return ts, slot.ErrSlotReserved
	}
	return ts, nil
}

func (r slotRepo) UpdateTimes(ctx context.Context, id, providerID uuid.UUID, start, end string) (*slot.TimeSlot, error) {
	var updated slot.TimeSlot
	err := r.s.do(ctx, func(st *state) error {
		ts, err := owned(st, id, providerID)
		if err != nil {
			return err
		}
		ts.StartTime, ts.EndTime = start, end
		ts.UpdatedAt = r.s.now()
		st.slots[id] = ts
		updated = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r slotRepo) Delete(ctx context.Context, id, providerID uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		if _, err := owned(st, id, providerID); err != nil {
			return err
		}
		delete(st.slots, id)
		// ON DELETE SET NULL
		for apptID, a := range st.appointments {
			if a.TimeSlotID != nil && *a.TimeSlotID == id {
				a.TimeSlotID = nil
				st.appointments[apptID] = a
			}
		}
		return nil
	})
}

func (r slotRepo) Reserve(ctx context.Context, id uuid.UUID) (*slot.TimeSlot, error) {
	var reserved slot.TimeSlot
	err := r.s.do(ctx, func(st *state) error {
		ts, ok := st.slots[id]
		if !ok {
			return slot.ErrSlotNotFound
		}
		if ts.IsBooked {
			return slot.ErrSlotReserved
		}
		ts.IsBooked = true
		ts.UpdatedAt = r.s.now()
		st.slots[id] = ts
		reserved = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reserved, nil
}

func (r slotRepo) Release(ctx context.Context, id uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		if ts, ok := st.slots[id]; ok && ts.IsBooked {
			ts.IsBooked = false
			ts.UpdatedAt = r.s.now()
			st.slots[id] = ts
		}
		return nil
	})
}

func (r slotRepo) ReleaseFor(ctx context.Context, id, appointmentID uuid.UUID) (bool, error) {
	var released bool
	err := r.s.do(ctx, func(st *state) error {
		ts, ok := st.slots[id]
		if !ok || !ts.IsBooked {
			return nil
		}
		for _, a := range st.appointments {
			if a.ID != appointmentID && a.Status.Active() && a.TimeSlotID != nil && *a.TimeSlotID == id {
				return nil
			}
		}
		ts.IsBooked = false
		ts.UpdatedAt = r.s.now()
		st.slots[id] = ts
		released = true
		return nil
	})
	return released, err
}

package slot_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/apperrors"
	"github.com/hackgods/appointment-booking/internal/slot"
	"github.com/hackgods/appointment-booking/internal/testutil"
)

func TestCreate(t *testing.T) {
	env := testutil.NewEnv(t)
	provider := env.Provider(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		in       slot.CreateInput
		wantCode string
	}{
		{"valid", slot.CreateInput{ProviderID: provider, Date: "2024-06-01", StartTime: "09:00", EndTime: "09:30"}, ""},
		{"seconds are dropped", slot.CreateInput{ProviderID: provider, Date: "2024-06-01", StartTime: "10:00:00", EndTime: "10:30:00"}, ""},
		{"overlap allowed", slot.CreateInput{ProviderID: provider, Date: "2024-06-01", StartTime: "09:15", EndTime: "09:45"}, ""},
		{"unknown provider", slot.CreateInput{ProviderID: uuid.New(), Date: "2024-06-01", StartTime: "09:00", EndTime: "09:30"}, apperrors.CodeNotFound},
		{"missing provider", slot.CreateInput{Date: "2024-06-01", StartTime: "09:00", EndTime: "09:30"}, apperrors.CodeInvalidInput},
		{"bad date", slot.CreateInput{ProviderID: provider, Date: "01/06/2024", StartTime: "09:00", EndTime: "09:30"}, apperrors.CodeInvalidInput},
		{"end before start", slot.CreateInput{ProviderID: provider, Date: "2024-06-01", StartTime: "10:00", EndTime: "09:00"}, apperrors.CodeInvalidInput},
		{"empty window", slot.CreateInput{ProviderID: provider, Date: "2024-06-01", StartTime: "10:00", EndTime: "10:00"}, apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Slots.Create(ctx, tt.in)
			if tt.wantCode != "" {
				if !apperrors.Is(err, tt.wantCode) {
					t.Fatalf("error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.IsBooked || got.ID == uuid.Nil || got.ProviderID != provider {
				t.Errorf("unexpected slot %+v", got)
			}
		})
	}

	t.Run("seconds normalised", func(t *testing.T) {
		s := env.Slot(t, provider, "2024-06-02", "11:00:00", "11:30:00")
		if s.StartTime != "11:00" || s.EndTime != "11:30" {
			t.Errorf("times = %s-%s", s.StartTime, s.EndTime)
		}
	})
}

func TestCreateUnknownProviderStoresNothing(t *testing.T) {
	env := testutil.NewEnv(t)
	ghost := uuid.New()

	_, err := env.Slots.Create(context.Background(), slot.CreateInput{
		ProviderID: ghost, Date: "2024-06-01", StartTime: "09:00", EndTime: "09:30",
	})
	if !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Fatalf("error = %v, want NOT_FOUND", err)
	}

	slots, err := env.Store.Slots().ListByProvider(context.Background(), ghost)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no rows, got %d", len(slots))
	}
}

func TestListings(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	provider := env.Provider(t)

	if _, err := env.Slots.ListForProvider(ctx, provider); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Fatalf("empty listing: error = %v, want NOT_FOUND", err)
	}

	late := env.Slot(t, provider, "2024-06-01", "11:00", "11:30")
	early := env.Slot(t, provider, "2024-06-01", "09:00", "09:30")
	env.Slot(t, provider, "2024-06-02", "09:00", "09:30")

	all, err := env.Slots.ListForProvider(ctx, provider)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != early.ID || all[1].ID != late.ID {
		t.Fatalf("unexpected order: %+v", all)
	}

	if _, err := env.Slots.Reserve(ctx, early.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	avail, err := env.Slots.ListAvailable(ctx, provider, "2024-06-01")
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(avail) != 1 || avail[0].ID != late.ID {
		t.Errorf("available = %+v, want only %s", avail, late.ID)
	}

	if _, err := env.Slots.ListAvailable(ctx, provider, "2024-07-01"); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("no availability: error = %v, want NOT_FOUND", err)
	}
	if _, err := env.Slots.ListAvailable(ctx, provider, "tomorrow"); !apperrors.Is(err, apperrors.CodeInvalidInput) {
		t.Errorf("bad date: error = %v, want INVALID_INPUT", err)
	}
	if _, err := env.Slots.ListAvailable(ctx, uuid.Nil, "2024-06-01"); !apperrors.Is(err, apperrors.CodeInvalidInput) {
		t.Errorf("missing provider: error = %v, want INVALID_INPUT", err)
	}
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	owner := env.Provider(t)
	other := env.Provider(t)

	s := env.Slot(t, owner, "2024-06-01", "09:00", "09:30")

	if _, err := env.Slots.UpdateTimes(ctx, s.ID, other, "10:00", "10:30"); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("foreign update: error = %v, want NOT_FOUND", err)
	}
	if err := env.Slots.Delete(ctx, s.ID, other); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("foreign delete: error = %v, want NOT_FOUND", err)
	}
	if _, err := env.Slots.UpdateTimes(ctx, uuid.New(), owner, "10:00", "10:30"); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("missing update: error = %v, want NOT_FOUND", err)
	}
	if _, err := env.Slots.UpdateTimes(ctx, s.ID, owner, "10:30", "10:00"); !apperrors.Is(err, apperrors.CodeInvalidInput) {
		t.Errorf("inverted window: error = %v, want INVALID_INPUT", err)
	}

	updated, err := env.Slots.UpdateTimes(ctx, s.ID, owner, "10:00", "10:30")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StartTime != "10:00" || updated.EndTime != "10:30" || updated.Date != "2024-06-01" {
		t.Errorf("updated = %+v", updated)
	}

	if err := env.Slots.Delete(ctx, s.ID, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Store.Slots().GetByID(ctx, s.ID); err == nil {
		t.Error("slot still present after delete")
	}
}

func TestReservedSlotIsFrozen(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	owner := env.Provider(t)
	s := env.Slot(t, owner, "2024-06-01", "09:00", "09:30")

	if _, err := env.Slots.Reserve(ctx, s.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if _, err := env.Slots.UpdateTimes(ctx, s.ID, owner, "10:00", "10:30"); !apperrors.Is(err, apperrors.CodeConflict) {
		t.Errorf("update reserved: error = %v, want CONFLICT", err)
	}
	if err := env.Slots.Delete(ctx, s.ID, owner); !apperrors.Is(err, apperrors.CodeConflict) {
		t.Errorf("delete reserved: error = %v, want CONFLICT", err)
	}
}

func TestReserveRelease(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	s := env.Slot(t, env.Provider(t), "2024-06-01", "09:00", "09:30")

	reserved, err := env.Slots.Reserve(ctx, s.ID)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !reserved.IsBooked {
		t.Error("reserved slot not marked booked")
	}

	if _, err := env.Slots.Reserve(ctx, s.ID); !apperrors.Is(err, apperrors.CodeConflict) {
		t.Errorf("second reserve: error = %v, want CONFLICT", err)
	}
	if _, err := env.Slots.Reserve(ctx, uuid.New()); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("missing slot: error = %v, want NOT_FOUND", err)
	}

	for i := 0; i < 2; i++ {
		if err := env.Slots.Release(ctx, s.ID); err != nil {
			t.Fatalf("release #%d: %v", i+1, err)
		}
	}
	if err := env.Slots.Release(ctx, uuid.New()); err != nil {
		t.Errorf("release of missing slot: %v", err)
	}

	if _, err := env.Slots.Reserve(ctx, s.ID); err != nil {
		t.Errorf("reserve after release: %v", err)
	}
}

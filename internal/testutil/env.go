// Package testutil builds a fully wired service graph over the in-memory
// store, plus fixtures for the records most tests need.
package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/logger"
	"github.com/hackgods/appointment-booking/internal/slot"
	"github.com/hackgods/appointment-booking/internal/store/memory"
	"github.com/hackgods/appointment-booking/internal/validation"
)

const Secret = "test-secret"

type Env struct {
	Store        *memory.Store
	Slots        *slot.Service
	Appointments *appointment.Service
	Accounts     *account.Service
	Tokens       *auth.Tokens
	Validator    *validation.Validator
	Log          *logger.Logger
}

func NewEnv(t testing.TB) *Env {
	t.Helper()

	v, err := validation.New()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	log := logger.Discard()
	mem := memory.New()
	tokens := auth.NewTokens(Secret, time.Hour)
	slots := slot.NewService(mem.Slots(), log)

	return &Env{
		Store:        mem,
		Slots:        slots,
		Appointments: appointment.NewService(mem.Appointments(), slots, mem, nil, log),
		Accounts:     account.NewService(mem.Accounts(), mem, tokens, v, log),
		Tokens:       tokens,
		Validator:    v,
		Log:          log,
	}
}

func (e *Env) user(t testing.TB) account.User {
	t.Helper()
	u, err := e.Store.Accounts().CreateUser(context.Background(), &account.User{
		FirstName:    gofakeit.FirstName(),
		LastName:     gofakeit.LastName(),
		Email:        strings.ToLower(uuid.NewString()[:8] + "@" + gofakeit.DomainName()),
		PasswordHash: "unused",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return *u
}

// Client stores a plain user and returns its id.
func (e *Env) Client(t testing.TB) uuid.UUID {
	t.Helper()
	return e.user(t).ID
}

// Provider stores a user with a provider row under the same id.
func (e *Env) Provider(t testing.TB) uuid.UUID {
	t.Helper()
	u := e.user(t)
	err := e.Store.Accounts().CreateProvider(context.Background(), &account.Provider{
		ID:          u.ID,
		Name:        u.FirstName + " " + u.LastName,
		ServiceType: gofakeit.JobTitle(),
		Email:       u.Email,
	})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	return u.ID
}

func (e *Env) Slot(t testing.TB, providerID uuid.UUID, date, start, end string) *slot.TimeSlot {
	t.Helper()
	s, err := e.Slots.Create(context.Background(), slot.CreateInput{
		ProviderID: providerID,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
	})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return s
}

// Token issues a bearer token for id.
func (e *Env) Token(t testing.TB, id uuid.UUID, role auth.Role) string {
	t.Helper()
	tok, err := e.Tokens.Issue(auth.Caller{ID: id, Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

// CheckReservations fails the test unless every slot of the provider is
// reserved exactly when one non-canceled appointment references it.
func (e *Env) CheckReservations(t testing.TB, providerID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	slots, err := e.Store.Slots().ListByProvider(ctx, providerID)
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	appts, err := e.Store.Appointments().ListByProvider(ctx, providerID)
	if err != nil {
		t.Fatalf("list appointments: %v", err)
	}

	active := map[uuid.UUID]int{}
	for _, a := range appts {
		if a.Status.Active() && a.TimeSlotID != nil {
			active[*a.TimeSlotID]++
		}
	}

	for _, s := range slots {
		n := active[s.ID]
		if n > 1 || s.IsBooked != (n == 1) {
			t.Errorf("slot %s: is_booked=%t with %d active appointments", s.ID, s.IsBooked, n)
		}
	}
}

// Package memory is an in-process store with the same semantics as the
// Postgres repositories. Transactions take a store-wide lock and roll back
// by restoring a snapshot.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/slot"
	"github.com/hackgods/appointment-booking/internal/store"
)

type state struct {
	users        map[uuid.UUID]account.User
	providers    map[uuid.UUID]account.Provider
	slots        map[uuid.UUID]slot.TimeSlot
	appointments map[uuid.UUID]appointment.Appointment
	events       []appointment.EventLog
}

func (s state) clone() state {
	return state{
		users:        maps.Clone(s.users),
		providers:    maps.Clone(s.providers),
		slots:        maps.Clone(s.slots),
		appointments: maps.Clone(s.appointments),
		events:       slices.Clone(s.events),
	}
}

type Store struct {
	mu  sync.Mutex
	st  state
	now func() time.Time
}

func New() *Store {
	return &Store{
		st: state{
			users:        map[uuid.UUID]account.User{},
			providers:    map[uuid.UUID]account.Provider{},
			slots:        map[uuid.UUID]slot.TimeSlot{},
			appointments: map[uuid.UUID]appointment.Appointment{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// WithinTx runs fn while holding the store lock. If fn fails or panics every
// change it made is discarded.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrTimeout, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	committed := false
	// runs before the unlock, also when fn panics
	defer func() {
		if !committed {
			s.st = snapshot
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// do runs a single repository call, locking unless ctx already holds the
// transaction.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrTimeout, err)
	}
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(&s.st)
}

func (s *Store) Slots() slot.Repository {
	return slotRepo{s}
}

func (s *Store) Appointments() appointment.Repository {
	return appointmentRepo{s}
}

func (s *Store) Accounts() account.Repository {
	return accountRepo{s}
}

// Events returns a copy of the event log.
func (s *Store) Events() []appointment.EventLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.events)
}

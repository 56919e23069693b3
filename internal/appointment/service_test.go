package appointment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/apperrors"
	"github.com/hackgods/appointment-booking/internal/appointment"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
	"github.com/hackgods/appointment-booking/internal/testutil"
)

func book(t *testing.T, env *testutil.Env, client, slotID, provider uuid.UUID) *appointment.Appointment {
	t.Helper()
	appt, err := env.Appointments.Book(context.Background(), appointment.BookInput{
		ClientID:   client,
		SlotID:     slotID,
		ProviderID: provider,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	return appt
}

func slotBooked(t *testing.T, env *testutil.Env, slotID uuid.UUID) bool {
	t.Helper()
	s, err := env.Store.Slots().GetByID(context.Background(), slotID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	return s.IsBooked
}

func TestStateMachine(t *testing.T) {
	tests := []struct {
		from, to appointment.AppointmentStatus
		want     bool
	}{
		{appointment.StatusBooked, appointment.StatusConfirmed, true},
		{appointment.StatusBooked, appointment.StatusCanceled, true},
		{appointment.StatusBooked, appointment.StatusCompleted, false},
		{appointment.StatusConfirmed, appointment.StatusCanceled, true},
		{appointment.StatusConfirmed, appointment.StatusCompleted, true},
		{appointment.StatusCanceled, appointment.StatusBooked, false},
		{appointment.StatusCompleted, appointment.StatusCanceled, false},
	}

	for _, tt := range tests {
		if got := appointment.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %t, want %t", tt.from, tt.to, got, tt.want)
		}
	}
}

// Provider P creates S, client C books and cancels, then D books S.
func TestBookCancelRebookScenario(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	p := env.Provider(t)
	c := env.Client(t)
	d := env.Client(t)
	s := env.Slot(t, p, "2024-06-01", "09:00", "09:30")

	a := book(t, env, c, s.ID, p)
	if a.Status != appointment.StatusBooked {
		t.Errorf("status = %s, want booked", a.Status)
	}
	if a.TimeSlotID == nil || *a.TimeSlotID != s.ID {
		t.Errorf("appointment not bound to slot: %+v", a)
	}
	want := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	if !a.AppointmentTime.Equal(want) {
		t.Errorf("appointment_time = %s, want %s", a.AppointmentTime, want)
	}
	if !slotBooked(t, env, s.ID) {
		t.Fatal("slot not reserved after booking")
	}

	canceled, err := env.Appointments.Cancel(ctx, a.ID, c)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != appointment.StatusCanceled {
		t.Errorf("status = %s, want canceled", canceled.Status)
	}
	if slotBooked(t, env, s.ID) {
		t.Fatal("slot still reserved after cancel")
	}

	second := book(t, env, d, s.ID, p)
	if second.UserID != d {
		t.Errorf("rebooked by %s, want %s", second.UserID, d)
	}
	env.CheckReservations(t, p)
}

func TestBookValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	p := env.Provider(t)
	other := env.Provider(t)
	c := env.Client(t)
	s := env.Slot(t, p, "2024-06-01", "09:00", "09:30")

	tests := []struct {
		name     string
		in       appointment.BookInput
		wantCode string
	}{
		{"missing slot", appointment.BookInput{ClientID: c, ProviderID: p}, apperrors.CodeInvalidInput},
		{"missing provider", appointment.BookInput{ClientID: c, SlotID: s.ID}, apperrors.CodeInvalidInput},
		{"unknown slot", appointment.BookInput{ClientID: c, SlotID: uuid.New(), ProviderID: p}, apperrors.CodeNotFound},
		{"slot of another provider", appointment.BookInput{ClientID: c, SlotID: s.ID, ProviderID: other}, apperrors.CodeInvalidInput},
		{"unknown client", appointment.BookInput{ClientID: uuid.New(), SlotID: s.ID, ProviderID: p}, apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.Appointments.Book(ctx, tt.in); !apperrors.Is(err, tt.wantCode) {
				t.Fatalf("error = %v, want %s", err, tt.wantCode)
			}
			// every failure rolls the reservation back
			if slotBooked(t, env, s.ID) {
				t.Fatal("slot left reserved after failed booking")
			}
		})
	}

	book(t, env, c, s.ID, p)
	if _, err := env.Appointments.Book(ctx, appointment.BookInput{ClientID: env.Client(t), SlotID: s.ID, ProviderID: p}); !apperrors.Is(err, apperrors.CodeConflict) {
		t.Errorf("double booking: error = %v, want CONFLICT", err)
	}
}

func TestConcurrentBookingsHaveOneWinner(t *testing.T) {
	env := testutil.NewEnv(t)
	p := env.Provider(t)
	s := env.Slot(t, p, "2024-06-01", "09:00", "09:30")

	const n = 32
	clients := make([]uuid.UUID, n)
	for i := range clients {
		clients[i] = env.Client(t)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
		others    []error
	)
	start := make(chan struct{})

	for _, c := range clients {
		wg.Add(1)
		go func(c uuid.UUID) {
			defer wg.Done()
			<-start
			_, err := env.Appointments.Book(context.Background(), appointment.BookInput{
				ClientID: c, SlotID: s.ID, ProviderID: p,
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperrors.Is(err, apperrors.CodeConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(c)
	}

	close(start)
	wg.Wait()

	if wins != 1 || conflicts != n-1 || len(others) != 0 {
		t.Fatalf("wins=%d conflicts=%d others=%v", wins, conflicts, others)
	}
	env.CheckReservations(t, p)
}

func TestCancelAccess(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	p := env.Provider(t)
	c := env.Client(t)
	stranger := env.Client(t)
	s := env.Slot(t, p, "2024-06-01", "09:00", "09:30")
	a := book(t, env, c, s.ID, p)

	if _, err := env.Appointments.Cancel(ctx, a.ID, stranger); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Fatalf("stranger cancel: error = %v, want FORBIDDEN", err)
	}
	got, err := env.Store.Appointments().GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != appointment.StatusBooked || !slotBooked(t, env, s.ID) {
		t.Fatalf("stranger cancel mutated state: status=%s", got.Status)
	}

	if _, err := env.Appointments.Cancel(ctx, uuid.New(), c); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("missing appointment: error = %v, want NOT_FOUND", err)
	}

	// the provider may cancel too
	if _, err := env.Appointments.Cancel(ctx, a.ID, p); err != nil {
		t.Fatalf("provider cancel: %v", err)
	}
	if _, err := env.Appointments.Cancel(ctx, a.ID, c); !apperrors.Is(err, apperrors.CodeConflict) {
		t.Errorf("second cancel: error = %v, want CONFLICT", err)
	}
	env.CheckReservations(t, p)
}

func TestProviderTransitions(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	p := env.Provider(t)
	otherProvider := env.Provider(t)
	c := env.Client(t)
	s := env.Slot(t, p, "2024-06-01", "09:00", "09:30")
	a := book(t, env, c, s.ID, p)

	if _, err := env.Appointments.Complete(ctx, a.ID, p); !apperrors.Is(err, apperrors.CodeConflict) {
		t.Errorf("complete from booked: error = %v, want CONFLICT", err)
	}
	if _, err := env.Appointments.Confirm(ctx, a.ID, otherProvider); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Errorf("confirm by other provider: error = %v, want FORBIDDEN", err)
	}

	confirmed, err := env.Appointments.Confirm(ctx, a.ID, p)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != appointment.StatusConfirmed {
		t.Errorf("status = %s", confirmed.Status)
	}

	completed, err := env.Appointments.Complete(ctx, a.ID, p)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != appointment.StatusCompleted {
		t.Errorf("status = %s", completed.Status)
	}

	// a completed appointment still holds its slot
	if !slotBooked(t, env, s.ID) {
		t.Error("slot released on completion")
	}
	if _, err := env.Appointments.Cancel(ctx, a.ID, c); !apperrors.Is(err, apperrors.CodeConflict) {
		t.Errorf("cancel completed: error = %v, want CONFLICT", err)
	}
	env.CheckReservations(t, p)
}

func TestGetAndLists(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	p := env.Provider(t)
	c := env.Client(t)
	stranger := env.Client(t)

	mine, err := env.Appointments.ListForClient(ctx, c)
	if err != nil {
		t.Fatalf("empty list: %v", err)
	}
	if mine == nil || len(mine) != 0 {
		t.Errorf("empty list = %#v, want non-nil empty slice", mine)
	}

	early := book(t, env, c, env.Slot(t, p, "2024-06-01", "09:00", "09:30").ID, p)
	late := book(t, env, c, env.Slot(t, p, "2024-06-02", "09:00", "09:30").ID, p)

	mine, err = env.Appointments.ListForClient(ctx, c)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != late.ID || mine[1].ID != early.ID {
		t.Errorf("client list order: %+v", mine)
	}

	theirs, err := env.Appointments.ListForProvider(ctx, p)
	if err != nil || len(theirs) != 2 {
		t.Fatalf("provider list: %d appointments, err=%v", len(theirs), err)
	}

	if _, err := env.Appointments.Get(ctx, early.ID, c); err != nil {
		t.Errorf("client get: %v", err)
	}
	if _, err := env.Appointments.Get(ctx, early.ID, p); err != nil {
		t.Errorf("provider get: %v", err)
	}
	if _, err := env.Appointments.Get(ctx, early.ID, stranger); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Errorf("stranger get: error = %v, want FORBIDDEN", err)
	}
	if _, err := env.Appointments.Get(ctx, uuid.New(), c); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("missing get: error = %v, want NOT_FOUND", err)
	}
}

func TestCompleteElapsed(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	p := env.Provider(t)

	past := book(t, env, env.Client(t), env.Slot(t, p, "2024-06-01", "09:00", "09:30").ID, p)
	future := book(t, env, env.Client(t), env.Slot(t, p, "2024-06-03", "09:00", "09:30").ID, p)
	unconfirmed := book(t, env, env.Client(t), env.Slot(t, p, "2024-06-01", "10:00", "10:30").ID, p)

	for _, a := range []*appointment.Appointment{past, future} {
		if _, err := env.Appointments.Confirm(ctx, a.ID, p); err != nil {
			t.Fatalf("confirm: %v", err)
		}
	}

	now := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	n, err := env.Appointments.CompleteElapsed(ctx, now)
	if err != nil {
		t.Fatalf("complete elapsed: %v", err)
	}
	if n != 1 {
		t.Fatalf("completed %d, want 1", n)
	}

	want := map[uuid.UUID]appointment.AppointmentStatus{
		past.ID:        appointment.StatusCompleted,
		future.ID:      appointment.StatusConfirmed,
		unconfirmed.ID: appointment.StatusBooked,
	}
	for id, status := range want {
		a, err := env.Store.Appointments().GetByID(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if a.Status != status {
			t.Errorf("%s: status = %s, want %s", id, a.Status, status)
		}
	}
}

func TestEventsAreRecorded(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	p := env.Provider(t)
	c := env.Client(t)
	a := book(t, env, c, env.Slot(t, p, "2024-06-01", "09:00", "09:30").ID, p)

	if _, err := env.Appointments.Cancel(ctx, a.ID, c); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	events := env.Store.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].EventType != appointment.EventAppointmentBooked || events[1].EventType != appointment.EventAppointmentCanceled {
		t.Errorf("event types = %s, %s", events[0].EventType, events[1].EventType)
	}
	if events[1].AppointmentID == nil || *events[1].AppointmentID != a.ID {
		t.Errorf("event not linked to appointment")
	}
}

type busyLocker struct{}

func (busyLocker) WithSlotLock(context.Context, uuid.UUID, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type brokenLocker struct{}

func (brokenLocker) WithSlotLock(context.Context, uuid.UUID, func(context.Context) error) error {
	return errors.Join(redisclient.ErrLockUnavailable, errors.New("dial tcp: connection refused"))
}

func TestLockFailures(t *testing.T) {
	tests := []struct {
		name     string
		locker   redisclient.Locker
		wantCode string
	}{
		{"held elsewhere", busyLocker{}, apperrors.CodeConflict},
		{"backend down", brokenLocker{}, apperrors.CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			svc := appointment.NewService(env.Store.Appointments(), env.Slots, env.Store, tt.locker, env.Log)
			p := env.Provider(t)
			s := env.Slot(t, p, "2024-06-01", "09:00", "09:30")

			_, err := svc.Book(context.Background(), appointment.BookInput{ClientID: env.Client(t), SlotID: s.ID, ProviderID: p})
			if !apperrors.Is(err, tt.wantCode) {
				t.Fatalf("error = %v, want %s", err, tt.wantCode)
			}
			if slotBooked(t, env, s.ID) {
				t.Error("slot reserved without the lock")
			}
		})
	}
}

func TestCanceledContextTimesOut(t *testing.T) {
	env := testutil.NewEnv(t)
	p := env.Provider(t)
	s := env.Slot(t, p, "2024-06-01", "09:00", "09:30")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.Appointments.Book(ctx, appointment.BookInput{ClientID: env.Client(t), SlotID: s.ID, ProviderID: p})
	if !apperrors.Is(err, apperrors.CodeTimeout) {
		t.Fatalf("error = %v, want TIMEOUT", err)
	}
}

package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrSlotTaken           = errors.New("slot already has an active appointment")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Create inserts the row; ErrSlotTaken when another active appointment
	// already references the slot.
	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetByIDForUpdate locks the row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]Appointment, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Appointment, error)

	// UpdateStatus is conditional on the current status being from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// Completion worker
	FindElapsedConfirmed(ctx context.Context, now time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

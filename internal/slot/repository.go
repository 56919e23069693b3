package slot

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound     = errors.New("slot not found")
	ErrProviderNotFound = errors.New("provider not found")
	ErrSlotReserved     = errors.New("slot is already reserved")
)

// Repository contains all store interactions for time slots.
type Repository interface {
	ProviderExists(ctx context.Context, providerID uuid.UUID) (bool, error)

	Create(ctx context.Context, s *TimeSlot) (*TimeSlot, error)
	GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]TimeSlot, error)
	ListAvailable(ctx context.Context, providerID uuid.UUID, date string) ([]TimeSlot, error)

	// UpdateTimes and Delete only touch unreserved slots owned by providerID.
	// A missing or foreign slot yields ErrSlotNotFound, a reserved one ErrSlotReserved.
	UpdateTimes(ctx context.Context, id, providerID uuid.UUID, start, end string) (*TimeSlot, error)
	Delete(ctx context.Context, id, providerID uuid.UUID) error

	// Reserve flips is_booked false -> true as a single conditional update.
	Reserve(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	Release(ctx context.Context, id uuid.UUID) error
	// ReleaseFor frees the slot unless an active appointment other than
	// appointmentID still references it.
	ReleaseFor(ctx context.Context, id, appointmentID uuid.UUID) (bool, error)
}

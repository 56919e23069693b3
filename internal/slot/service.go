package slot

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/apperrors"
	"github.com/hackgods/appointment-booking/internal/logger"
)

// Service is the slot lifecycle manager. Every read goes to the store; the
// service holds no slot state of its own.
type Service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

type CreateInput struct {
	ProviderID uuid.UUID
	Date       string
	StartTime  string
	EndTime    string
}

type window struct {
	date, start, end string
}

func normalizeWindow(date, start, end string) (window, error) {
	var w window
	var err error
	if date != "" {
		if w.date, err = NormalizeDate(date); err != nil {
			return w, apperrors.InvalidInput(err.Error())
		}
	}
	if w.start, err = NormalizeClock(start); err != nil {
		return w, apperrors.InvalidInput("start_time: " + err.Error())
	}
	if w.end, err = NormalizeClock(end); err != nil {
		return w, apperrors.InvalidInput("end_time: " + err.Error())
	}
	// HH:MM compares lexically
	if w.end <= w.start {
		return w, apperrors.InvalidInput("end_time must be after start_time")
	}
	return w, nil
}

// Create inserts an unreserved slot for an existing provider. Overlapping
// slots are allowed.
func (s *Service) Create(ctx context.Context, in CreateInput) (*TimeSlot, error) {
	if in.ProviderID == uuid.Nil {
		return nil, apperrors.InvalidInput("providerId is required")
	}
	if in.Date == "" {
		return nil, apperrors.InvalidInput("date is required")
	}
	w, err := normalizeWindow(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ProviderExists(ctx, in.ProviderID)
	if err != nil {
		s.log.Error("provider lookup failed", "provider_id", in.ProviderID, "error", err)
		return nil, apperrors.FromStore(err, "Failed to create time slot")
	}
	if !exists {
		return nil, apperrors.NotFoundWithID("Service provider", in.ProviderID.String())
	}

	created, err := s.repo.Create(ctx, &TimeSlot{
		ProviderID: in.ProviderID,
		Date:       w.date,
		StartTime:  w.start,
		EndTime:    w.end,
	})
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, apperrors.NotFoundWithID("Service provider", in.ProviderID.String())
		}
		s.log.Error("create time slot failed", "provider_id", in.ProviderID, "error", err)
		return nil, apperrors.FromStore(err, "Failed to create time slot")
	}

	s.log.Info("Time slot created",
		"slot_id", created.ID,
		"provider_id", created.ProviderID,
		"date", created.Date,
		"start_time", created.StartTime,
		"end_time", created.EndTime,
	)
	return created, nil
}

// ListForProvider returns every slot of the provider, reserved or not.
// An empty result is reported as NotFound.
func (s *Service) ListForProvider(ctx context.Context, providerID uuid.UUID) ([]TimeSlot, error) {
	slots, err := s.repo.ListByProvider(ctx, providerID)
	if err != nil {
		s.log.Error("list provider slots failed", "provider_id", providerID, "error", err)
		return nil, apperrors.FromStore(err, "Failed to retrieve time slots")
	}
	if len(slots) == 0 {
		return nil, apperrors.NotFound("Time slots")
	}
	return slots, nil
}

// ListAvailable returns the unreserved slots of a provider on one date.
// An empty result is reported as NotFound.
func (s *Service) ListAvailable(ctx context.Context, providerID uuid.UUID, date string) ([]TimeSlot, error) {
	if providerID == uuid.Nil {
		return nil, apperrors.InvalidInput("provider_id is required")
	}
	day, err := NormalizeDate(date)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	slots, err := s.repo.ListAvailable(ctx, providerID, day)
	if err != nil {
		s.log.Error("list available slots failed", "provider_id", providerID, "date", day, "error", err)
		return nil, apperrors.FromStore(err, "Failed to retrieve available time slots")
	}
	if len(slots) == 0 {
		return nil, apperrors.NotFound("Available time slots")
	}
	return slots, nil
}

// UpdateTimes moves the window of an unreserved slot owned by the caller.
func (s *Service) UpdateTimes(ctx context.Context, slotID, callerProviderID uuid.UUID, start, end string) (*TimeSlot, error) {
	if slotID == uuid.Nil {
		return nil, apperrors.InvalidInput("id is required")
	}
	w, err := normalizeWindow("", start, end)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateTimes(ctx, slotID, callerProviderID, w.start, w.end)
	if err != nil {
		return nil, s.ownedSlotError(err, slotID, "Failed to update time slot")
	}

	s.log.Info("Time slot updated", "slot_id", slotID, "start_time", updated.StartTime, "end_time", updated.EndTime)
	return updated, nil
}

// Delete removes an unreserved slot owned by the caller.
func (s *Service) Delete(ctx context.Context, slotID, callerProviderID uuid.UUID) error {
	if slotID == uuid.Nil {
		return apperrors.InvalidInput("id is required")
	}
	if err := s.repo.Delete(ctx, slotID, callerProviderID); err != nil {
		return s.ownedSlotError(err, slotID, "Failed to delete time slot")
	}

	s.log.Info("Time slot deleted", "slot_id", slotID, "provider_id", callerProviderID)
	return nil
}

func (s *Service) ownedSlotError(err error, slotID uuid.UUID, message string) error {
	switch {
	case errors.Is(err, ErrSlotNotFound):
		// foreign slots look missing to the caller
		return apperrors.NotFoundWithID("Time slot", slotID.String())
	case errors.Is(err, ErrSlotReserved):
		return apperrors.Conflict("Time slot is reserved by an active appointment")
	default:
		s.log.Error(message, "slot_id", slotID, "error", err)
		return apperrors.FromStore(err, message)
	}
}

// Reserve marks the slot booked with a compare-and-set. It must be called
// with a context carrying the booking transaction so the reservation commits
// or rolls back together with the appointment row.
func (s *Service) Reserve(ctx context.Context, slotID uuid.UUID) (*TimeSlot, error) {
	reserved, err := s.repo.Reserve(ctx, slotID)
	switch {
	case err == nil:
		return reserved, nil
	case errors.Is(err, ErrSlotNotFound):
		return nil, apperrors.NotFoundWithID("Time slot", slotID.String())
	case errors.Is(err, ErrSlotReserved):
		return nil, apperrors.Conflict("Selected time slot is not available")
	default:
		s.log.Error("reserve slot failed", "slot_id", slotID, "error", err)
		return nil, apperrors.FromStore(err, "Failed to reserve time slot")
	}
}

// Release frees the slot. Releasing a free or missing slot is a no-op.
func (s *Service) Release(ctx context.Context, slotID uuid.UUID) error {
	if err := s.repo.Release(ctx, slotID); err != nil {
		s.log.Error("release slot failed", "slot_id", slotID, "error", err)
		return apperrors.FromStore(err, "Failed to release time slot")
	}
	return nil
}

// ReleaseFor frees the slot on behalf of a canceled appointment, leaving it
// reserved when another active appointment holds it.
func (s *Service) ReleaseFor(ctx context.Context, slotID, appointmentID uuid.UUID) error {
	released, err := s.repo.ReleaseFor(ctx, slotID, appointmentID)
	if err != nil {
		s.log.Error("release slot failed", "slot_id", slotID, "appointment_id", appointmentID, "error", err)
		return apperrors.FromStore(err, "Failed to release time slot")
	}
	if !released {
		s.log.Warn("slot not released on cancel", "slot_id", slotID, "appointment_id", appointmentID)
	}
	return nil
}

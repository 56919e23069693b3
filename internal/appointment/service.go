package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/apperrors"
	"github.com/hackgods/appointment-booking/internal/logger"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
	"github.com/hackgods/appointment-booking/internal/slot"
	"github.com/hackgods/appointment-booking/internal/store"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCanceled  = "APPOINTMENT_CANCELED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

type Service struct {
	repo   Repository
	slots  *slot.Service
	tx     store.TxRunner
	locker redisclient.Locker
	log    *logger.Logger
}

// NewService wires the appointment manager. A nil locker disables the
// per-slot fast-fail lock; booking stays correct without it.
func NewService(repo Repository, slots *slot.Service, tx store.TxRunner, locker redisclient.Locker, log *logger.Logger) *Service {
	if locker == nil {
		locker = redisclient.NewNoopLocker()
	}
	return &Service{
		repo:   repo,
		slots:  slots,
		tx:     tx,
		locker: locker,
		log:    log,
	}
}

type BookInput struct {
	ClientID   uuid.UUID
	SlotID     uuid.UUID
	ProviderID uuid.UUID
	ServiceID  *uuid.UUID
	Notes      string
}

// Book reserves the slot and records the appointment in one transaction.
// A concurrent booking of the same slot loses the compare-and-set on the
// slot row and gets a Conflict.
func (s *Service) Book(ctx context.Context, in BookInput) (*Appointment, error) {
	if in.SlotID == uuid.Nil || in.ProviderID == uuid.Nil {
		return nil, apperrors.InvalidInput("slotId and providerId are required")
	}

	var created *Appointment

	err := s.locker.WithSlotLock(ctx, in.SlotID, func(lockCtx context.Context) error {
		return s.tx.WithinTx(lockCtx, func(txCtx context.Context) error {
			reserved, err := s.slots.Reserve(txCtx, in.SlotID)
			if err != nil {
				return err
			}
			if reserved.ProviderID != in.ProviderID {
				return apperrors.InvalidInput("time slot does not belong to the selected provider")
			}

			startsAt, err := reserved.StartsAt()
			if err != nil {
				return fmt.Errorf("slot %s start: %w", reserved.ID, err)
			}

			slotID := reserved.ID
			appt, err := s.repo.Create(txCtx, &Appointment{
				UserID:          in.ClientID,
				ProviderID:      in.ProviderID,
				TimeSlotID:      &slotID,
				ServiceID:       in.ServiceID,
				AppointmentTime: startsAt,
				Status:          StatusBooked,
				Notes:           in.Notes,
			})
			if err != nil {
				return s.createError(err, in)
			}

			created = appt
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, apperrors.Conflict("Time slot is being booked, please retry")
		}
		if errors.Is(err, redisclient.ErrLockUnavailable) {
			s.log.Error("slot lock unavailable", "slot_id", in.SlotID, "error", err)
			return nil, apperrors.Unavailable("lock", err)
		}
		return nil, s.boundaryError(err, "Failed to book appointment", "slot_id", in.SlotID)
	}

	s.log.Info("Appointment booked",
		"appointment_id", created.ID,
		"slot_id", in.SlotID,
		"user_id", in.ClientID,
		"provider_id", in.ProviderID,
	)
	s.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"slot_id":     in.SlotID.String(),
		"user_id":     in.ClientID.String(),
		"provider_id": in.ProviderID.String(),
	})

	return created, nil
}

func (s *Service) createError(err error, in BookInput) error {
	switch {
	case errors.Is(err, ErrSlotTaken):
		return apperrors.Conflict("Selected time slot is not available")
	case errors.Is(err, ErrUserNotFound):
		return apperrors.NotFoundWithID("User", in.ClientID.String())
	case errors.Is(err, store.ErrForeignKeyViolation):
		return apperrors.NotFoundWithID("Service provider", in.ProviderID.String())
	default:
		return err
	}
}

// boundaryError passes AppErrors through and maps anything else coming out
// of the store, logging the raw cause.
func (s *Service) boundaryError(err error, message string, args ...any) error {
	if apperrors.IsAppError(err) {
		return err
	}
	s.log.Error(message, append(args, "error", err)...)
	return apperrors.FromStore(err, message)
}

func (s *Service) ListForClient(ctx context.Context, clientID uuid.UUID) ([]Appointment, error) {
	appts, err := s.repo.ListByUser(ctx, clientID)
	if err != nil {
		return nil, s.boundaryError(err, "Failed to retrieve appointments", "user_id", clientID)
	}
	return appts, nil
}

func (s *Service) ListForProvider(ctx context.Context, providerID uuid.UUID) ([]Appointment, error) {
	appts, err := s.repo.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, s.boundaryError(err, "Failed to retrieve appointments", "provider_id", providerID)
	}
	return appts, nil
}

// Get returns the appointment to either of its parties.
func (s *Service) Get(ctx context.Context, id, callerID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, apperrors.NotFoundWithID("Appointment", id.String())
		}
		return nil, s.boundaryError(err, "Failed to retrieve appointment", "appointment_id", id)
	}
	if !appt.Involves(callerID) {
		return nil, apperrors.Forbidden("You are not a party to this appointment")
	}
	return appt, nil
}

// Cancel marks the appointment canceled and frees its slot in the same
// transaction. Either party may cancel.
func (s *Service) Cancel(ctx context.Context, id, callerID uuid.UUID) (*Appointment, error) {
	canceled, err := s.transition(ctx, id, StatusCanceled, func(a *Appointment) error {
		if !a.Involves(callerID) {
			return apperrors.Forbidden("You are not allowed to cancel this appointment")
		}
		return nil
	}, func(txCtx context.Context, a *Appointment) error {
		if a.TimeSlotID == nil {
			return nil
		}
		return s.slots.ReleaseFor(txCtx, *a.TimeSlotID, a.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Appointment canceled", "appointment_id", id, "canceled_by", callerID)
	s.logEvent(ctx, id, EventAppointmentCanceled, map[string]any{
		"canceled_by": callerID.String(),
	})
	return canceled, nil
}

// Confirm is the provider accepting a booked appointment.
func (s *Service) Confirm(ctx context.Context, id, providerID uuid.UUID) (*Appointment, error) {
	confirmed, err := s.transition(ctx, id, StatusConfirmed, s.ownedBy(providerID), nil)
	if err != nil {
		return nil, err
	}

	s.log.Info("Appointment confirmed", "appointment_id", id, "provider_id", providerID)
	s.logEvent(ctx, id, EventAppointmentConfirmed, map[string]any{})
	return confirmed, nil
}

// Complete closes a confirmed appointment. The slot stays reserved.
func (s *Service) Complete(ctx context.Context, id, providerID uuid.UUID) (*Appointment, error) {
	completed, err := s.transition(ctx, id, StatusCompleted, s.ownedBy(providerID), nil)
	if err != nil {
		return nil, err
	}

	s.log.Info("Appointment completed", "appointment_id", id, "provider_id", providerID)
	s.logEvent(ctx, id, EventAppointmentCompleted, map[string]any{"reason": "provider"})
	return completed, nil
}

func (s *Service) ownedBy(providerID uuid.UUID) func(*Appointment) error {
	return func(a *Appointment) error {
		if a.ProviderID != providerID {
			return apperrors.Forbidden("Only the appointment's provider can change its status")
		}
		return nil
	}
}

// transition locks the row, checks access and the state machine, and moves
// the appointment to `to`. after runs inside the same transaction.
func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	to AppointmentStatus,
	allow func(*Appointment) error,
	after func(context.Context, *Appointment) error,
) (*Appointment, error) {
	var updated *Appointment

	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		appt, err := s.repo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return apperrors.NotFoundWithID("Appointment", id.String())
			}
			return err
		}
		if err := allow(appt); err != nil {
			return err
		}
		if !CanTransition(appt.Status, to) {
			return apperrors.Conflict("Appointment is " + string(appt.Status) + " and cannot become " + string(to))
		}

		updated, err = s.repo.UpdateStatus(txCtx, id, appt.Status, to)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return apperrors.Conflict("Appointment changed concurrently, please retry")
			}
			return err
		}

		if after != nil {
			return after(txCtx, updated)
		}
		return nil
	})
	if err != nil {
		return nil, s.boundaryError(err, "Failed to update appointment", "appointment_id", id, "status", to)
	}

	return updated, nil
}

// CompleteElapsed is called by the completion worker. It moves confirmed
// appointments whose slot has ended to completed and returns how many moved.
func (s *Service) CompleteElapsed(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.repo.FindElapsedConfirmed(ctx, now)
	if err != nil {
		return 0, s.boundaryError(err, "Failed to find elapsed appointments")
	}

	done := 0
	for _, appt := range candidates {
		_, err := s.repo.UpdateStatus(ctx, appt.ID, StatusConfirmed, StatusCompleted)
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.log.Error("failed to complete appointment", "appointment_id", appt.ID, "error", err)
			}
			continue
		}
		done++
		s.logEvent(ctx, appt.ID, EventAppointmentCompleted, map[string]any{"reason": "worker"})
	}

	return done, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal event payload", "event_type", eventType, "error", err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn("failed to insert event log", "event_type", eventType, "appointment_id", appointmentID, "error", err)
	}
}

package appointment

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCanceled  AppointmentStatus = "canceled"
	StatusCompleted AppointmentStatus = "completed"
)

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusBooked:    {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusCanceled, StatusCompleted},
}

// CanTransition reports whether the state machine allows from -> to.
// Canceled and completed are terminal.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Active reports whether the appointment still holds its slot.
func (s AppointmentStatus) Active() bool {
	return s != StatusCanceled
}

type Appointment struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	ProviderID      uuid.UUID         `json:"provider_id"`
	TimeSlotID      *uuid.UUID        `json:"time_slot_id,omitempty"`
	ServiceID       *uuid.UUID        `json:"service_id,omitempty"`
	AppointmentTime time.Time         `json:"appointment_time"`
	Status          AppointmentStatus `json:"status"`
	Notes           string            `json:"notes,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Involves reports whether id is the requester or the provider.
func (a *Appointment) Involves(id uuid.UUID) bool {
	return a.UserID == id || a.ProviderID == id
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

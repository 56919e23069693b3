package api

import (
	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/slot"
)

type CreateSlotRequest struct {
	// ProviderID defaults to the caller when omitted.
	ProviderID string `json:"providerId" validate:"omitempty,uuid"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string `json:"start_time" validate:"required,clock"`
	EndTime    string `json:"end_time" validate:"required,clock"`
}

type UpdateSlotRequest struct {
	ID        string `json:"id" validate:"required,uuid"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

type BookAppointmentRequest struct {
	SlotID     string `json:"slotId" validate:"required,uuid"`
	ProviderID string `json:"providerId" validate:"required,uuid"`
	ServiceID  string `json:"serviceId" validate:"omitempty,uuid"`
	Notes      string `json:"notes" validate:"max=500"`
}

type SlotResponse struct {
	Message  string         `json:"message"`
	TimeSlot *slot.TimeSlot `json:"timeSlot"`
}

type SlotListResponse struct {
	TimeSlots []slot.TimeSlot `json:"timeSlots"`
}

type AvailableSlotsResponse struct {
	AvailableSlots []slot.TimeSlot `json:"availableSlots"`
}

type AppointmentResponse struct {
	Message     string                   `json:"message"`
	Appointment *appointment.Appointment `json:"appointment"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UserID struct {
	ID uuid.UUID `json:"id"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  UserID `json:"userId"`
}

type LoginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    account.User `json:"user"`
	Role    auth.Role    `json:"role"`
}

type CallerView struct {
	ID   uuid.UUID `json:"id"`
	Role auth.Role `json:"role"`
}

type MeResponse struct {
	User CallerView `json:"user"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

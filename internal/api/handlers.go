package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/apperrors"
	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/logger"
	"github.com/hackgods/appointment-booking/internal/slot"
	"github.com/hackgods/appointment-booking/internal/validation"
)

type handlers struct {
	slots        *slot.Service
	appointments *appointment.Service
	accounts     *account.Service
	validate     *validation.Validator
	log          *logger.Logger
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeAppError(w, r, h.log, err)
}

// auth

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterInput
	if err := decodeJSON(r, nil, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	message := "User registered successfully"
	if req.Role == auth.RoleProvider {
		message = "Provider registered successfully"
	}
	writeJSON(w, http.StatusCreated, RegisterResponse{Message: message, UserID: UserID{ID: id}})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req account.LoginInput
	if err := decodeJSON(r, nil, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message: "Login successful",
		Token:   res.Token,
		User:    res.User,
		Role:    res.Role,
	})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)
	writeJSON(w, http.StatusOK, MeResponse{User: CallerView{ID: caller.ID, Role: caller.Role}})
}

// time slots

func (h *handlers) createSlot(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)

	var req CreateSlotRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	providerID := caller.ID
	if req.ProviderID != "" {
		id, err := parseUUID(req.ProviderID, "providerId")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if id != caller.ID {
			h.fail(w, r, apperrors.Forbidden("Providers can only create their own time slots"))
			return
		}
		providerID = id
	}

	created, err := h.slots.Create(r.Context(), slot.CreateInput{
		ProviderID: providerID,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, SlotResponse{Message: "Time slot created successfully", TimeSlot: created})
}

func (h *handlers) viewSlots(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)

	slots, err := h.slots.ListForProvider(r.Context(), caller.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SlotListResponse{TimeSlots: slots})
}

func (h *handlers) updateSlot(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)

	var req UpdateSlotRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := parseUUID(req.ID, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.slots.UpdateTimes(r.Context(), id, caller.ID, req.StartTime, req.EndTime)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SlotResponse{Message: "Time slot updated successfully", TimeSlot: updated})
}

func (h *handlers) deleteSlot(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)

	id, err := parseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.slots.Delete(r.Context(), id, caller.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Time slot deleted successfully"})
}

func (h *handlers) availableSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("provider_id") == "" || q.Get("date") == "" {
		h.fail(w, r, apperrors.InvalidInput("provider_id and date are required"))
		return
	}
	providerID, err := parseUUID(q.Get("provider_id"), "provider_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	slots, err := h.slots.ListAvailable(r.Context(), providerID, q.Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AvailableSlotsResponse{AvailableSlots: slots})
}

// appointments

func (h *handlers) book(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)

	var req BookAppointmentRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	slotID, err := parseUUID(req.SlotID, "slotId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	providerID, err := parseUUID(req.ProviderID, "providerId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	serviceID, err := optionalUUID(req.ServiceID, "serviceId")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	appt, err := h.appointments.Book(r.Context(), appointment.BookInput{
		ClientID:   caller.ID,
		SlotID:     slotID,
		ProviderID: providerID,
		ServiceID:  serviceID,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AppointmentResponse{Message: "Appointment booked successfully", Appointment: appt})
}

func (h *handlers) myAppointments(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)

	appts, err := h.appointments.ListForClient(r.Context(), caller.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, appts)
}

func (h *handlers) providerAppointments(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)

	appts, err := h.appointments.ListForProvider(r.Context(), caller.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, appts)
}

func (h *handlers) appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := parseUUID(chi.URLParam(r, "appointmentId"), "appointmentId")
	if err != nil {
		h.fail(w, r, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}

	appt, err := h.appointments.Get(r.Context(), id, caller.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

func (h *handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}

	if _, err := h.appointments.Cancel(r.Context(), id, caller.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Appointment canceled successfully"})
}

func (h *handlers) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}

	appt, err := h.appointments.Confirm(r.Context(), id, caller.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AppointmentResponse{Message: "Appointment confirmed", Appointment: appt})
}

func (h *handlers) completeAppointment(w http.ResponseWriter, r *http.Request) {
	caller := mustCaller(r)
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}

	appt, err := h.appointments.Complete(r.Context(), id, caller.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AppointmentResponse{Message: "Appointment completed", Appointment: appt})
}

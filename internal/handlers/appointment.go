package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/salonbook/apiserver/internal/services"
	"github.com/salonbook/apiserver/types"
)

// AppointmentService is the appointment use-case surface served over HTTP.
type AppointmentService interface {
	Slots(ctx context.Context, date string) ([]types.Slot, error)
	Request(ctx context.Context, in services.RequestInput) (types.Appointment, error)
	ListByUser(ctx context.Context, username string) ([]types.Appointment, error)
	ListAll(ctx context.Context) ([]types.Appointment, error)
	Confirm(ctx context.Context, id int) (string, error)
	Reject(ctx context.Context, id int) error
}

// AppointmentHandler serves the public booking endpoints.
type AppointmentHandler struct {
	appointments AppointmentService
}

func NewAppointmentHandler(appointments AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// AppointmentRouter registers the booking routes on the given router.
func AppointmentRouter(r chi.Router, appointments AppointmentService) {
	handler := NewAppointmentHandler(appointments)

	r.Get("/slots", handler.Slots)
	r.Post("/request", handler.Request)
	r.Get("/my", handler.My)
}

// Slots lists the day's slots with their availability.
func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.appointments.Slots(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// Request books a pending appointment for the named client.
func (h *AppointmentHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req AppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, RequestResponse{Error: "invalid request"})
		return
	}

	appt, err := h.appointments.Request(r.Context(), services.RequestInput{
		Service:    req.Service,
		Date:       req.Date,
		Time:       req.Time,
		Note:       req.Note,
		ClientName: req.ClientName,
	})
	if err != nil {
		status, message := errorStatus(err, http.StatusBadRequest)
		writeJSON(w, status, RequestResponse{Error: message})
		return
	}

	writeJSON(w, http.StatusOK, RequestResponse{Success: true, AppointmentID: appt.ID})
}

// My lists a client's appointments.
func (h *AppointmentHandler) My(w http.ResponseWriter, r *http.Request) {
	appts, err := h.appointments.ListByUser(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

type AppointmentRequest struct {
	Service    string `json:"service"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Note       string `json:"note"`
	ClientName string `json:"clientName"`
}

type RequestResponse struct {
	Success       bool   `json:"success"`
	AppointmentID int    `json:"appointmentId,omitempty"`
	Error         string `json:"error,omitempty"`
}

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/salonbook/apiserver/types"
)

// ClientService manages client accounts.
type ClientService interface {
	AddClient(ctx context.Context, username, password, phone string) (types.User, error)
	ListClients(ctx context.Context) ([]types.User, error)
}

// Exporter uploads appointment snapshots.
type Exporter interface {
	Enabled() bool
	Export(ctx context.Context) (string, error)
}

// AdminHandler serves the operator endpoints. Every route sits behind
// RequireAuth and RequireAdmin.
type AdminHandler struct {
	appointments AppointmentService
	clients      ClientService
	exports      Exporter
}

func NewAdminHandler(appointments AppointmentService, clients ClientService, exports Exporter) *AdminHandler {
	return &AdminHandler{
		appointments: appointments,
		clients:      clients,
		exports:      exports,
	}
}

// AdminRouter registers the admin routes behind the auth middleware.
func AdminRouter(r chi.Router, handler *AdminHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware, RequireAdmin)

	r.Get("/appointments", handler.ListAppointments)
	r.Post("/appointments/{appointmentID}/confirm", handler.Confirm)
	r.Post("/appointments/{appointmentID}/reject", handler.Reject)
	r.Get("/clients", handler.ListClients)
	r.Post("/clients", handler.AddClient)
	r.Post("/exports", handler.Export)
}

func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.appointments.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

// Confirm creates the calendar event, notifies the client and only then
// marks the appointment confirmed.
func (h *AdminHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := parseAppointmentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	eventID, err := h.appointments.Confirm(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResponse{Success: true, EventID: eventID})
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseAppointmentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.appointments.Reject(r.Context(), id); err != nil {
		writeServiceError(w, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *AdminHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	users, err := h.clients.ListClients(r.Context())
	if err != nil {
		writeServiceError(w, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) AddClient(w http.ResponseWriter, r *http.Request) {
	var req AddClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.clients.AddClient(r.Context(), req.Username, req.Password, req.Phone)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, AddClientResponse{ID: user.ID, Message: "client created"})
}

// Export uploads a CSV snapshot of every appointment.
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil || !h.exports.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "exports are not configured")
		return
	}

	key, err := h.exports.Export(r.Context())
	if err != nil {
		writeServiceError(w, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, ExportResponse{Key: key})
}

type ConfirmResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type AddClientRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type AddClientResponse struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

type ExportResponse struct {
	Key string `json:"key"`
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/salonbook/apiserver/internal/services"
)

const maxBodyBytes = 1 << 20

type contextKey string

const contextClaimsKey contextKey = "claims"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func claimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(contextClaimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, errors.New("missing claims")
	}
	return claims, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func parseAppointmentID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "appointmentID")))
	if err != nil || id < 1 {
		return 0, errors.New("invalid appointment id")
	}
	return id, nil
}

// errorStatus maps a service error to its HTTP status and client message.
// notFound is the status used for NotFoundError, which differs between
// client lookups (400) and appointment lookups (404).
func errorStatus(err error, notFound int) (int, string) {
	var (
		verr *services.ValidationError
		aerr *services.AuthError
		nerr *services.NotFoundError
		cerr *services.ConflictError
		ierr *services.IntegrationError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Msg
	case errors.As(err, &aerr):
		return http.StatusUnauthorized, aerr.Msg
	case errors.As(err, &nerr):
		return notFound, nerr.Msg
	case errors.As(err, &cerr):
		return http.StatusConflict, cerr.Msg
	case errors.Is(err, services.ErrExportsDisabled):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &ierr):
		log.Printf("handlers: %v", err)
		return http.StatusInternalServerError, fmt.Sprintf("%s integration failed", ierr.Integration)
	default:
		log.Printf("handlers: %v", err)
		return http.StatusInternalServerError, "internal error"
	}
}

func writeServiceError(w http.ResponseWriter, err error, notFound int) {
	status, message := errorStatus(err, notFound)
	writeError(w, status, message)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// Healthz reports that the process is serving.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

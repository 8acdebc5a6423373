// Package handlers implements the dashboard HTTP surface: the slot grid,
// appointment reads and workflow writes, patient search, the printable
// prescription page, and session/profile endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/clinicdesk/dashboard/internal/appointments"
	"github.com/clinicdesk/dashboard/internal/booking"
	"github.com/clinicdesk/dashboard/pkg/logging"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondWorkflowError maps workflow failures onto HTTP statuses: local
// validation failures become 422 with the user-facing message, upstream
// failures become 502 carrying the server message when one was provided.
func respondWorkflowError(w http.ResponseWriter, logger *logging.Logger, err error) {
	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": ve.Message,
			"field": ve.Field,
		})
		return
	}
	logger.Error("upstream request failed", "error", err)
	respondMessage(w, http.StatusBadGateway, appointments.UserMessage(err))
}

func decodeBody(r *http.Request, out any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("handlers: invalid request body: %w", err)
	}
	return nil
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"worldcup-betting/internal/service"
	"worldcup-betting/internal/worker"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON serializes v and sets the status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrLocked),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, worker.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidSelection):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing text. Internal failures are not described.
func messageFor(err error, status int) string {
	switch {
	case status == http.StatusInternalServerError:
		return "internal error"
	case errors.Is(err, service.ErrNotFound):
		return "Match not found"
	case errors.Is(err, service.ErrLocked):
		return "Bet is locked because match is LIVE/COMPLETED"
	case errors.Is(err, service.ErrInvalidSelection):
		return "Invalid team selection"
	case errors.Is(err, service.ErrUnauthenticated):
		return "Login required"
	case errors.Is(err, service.ErrForbidden):
		return "Admin only"
	default:
		return err.Error()
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, status, errorBody{Error: messageFor(err, status)})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

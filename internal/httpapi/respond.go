package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/NematiDev/Zentec/internal/repository"
	"github.com/NematiDev/Zentec/internal/service"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, Response{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string, errs ...string) {
	respondJSON(w, status, Response{Success: false, Message: message, Errors: errs})
}

// respondServiceError maps service errors onto HTTP statuses. Business
// failures carry their own kind; anything else is a 500.
func respondServiceError(w http.ResponseWriter, err error) {
	if f, ok := service.AsFailure(err); ok {
		respondJSON(w, failureStatus(f.Kind), Response{
			Success: false,
			Message: f.Detail,
			Errors:  f.Errors,
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, repository.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart not found")
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func failureStatus(kind service.FailureKind) int {
	switch kind {
	case service.FailureEmptyCart, service.FailureInvalidItem, service.FailureIncompleteProfile:
		return http.StatusBadRequest
	case service.FailureProductUnavailable, service.FailureReservation, service.FailureConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

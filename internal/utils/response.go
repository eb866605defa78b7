package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"wablast-backend/internal/apperr"

	"github.com/rs/zerolog/log"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func JSONResponse(w http.ResponseWriter, statusCode int, success bool, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: success,
		Data:    data,
		Message: message,
	})
}

func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, false, nil, message)
}

func SuccessResponse(w http.ResponseWriter, statusCode int, data interface{}, message string) {
	JSONResponse(w, statusCode, true, data, message)
}

// ErrorFromService maps the service error taxonomy onto HTTP statuses.
// Unknown errors become a generic 500; the detail stays in the server log.
func ErrorFromService(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		ErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		ErrorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrInvalid), errors.Is(err, apperr.ErrUnavailable):
		ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrUnauthenticated):
		ErrorResponse(w, http.StatusUnauthorized, err.Error())
	default:
		log.Error().Err(err).Msg("internal error")
		ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}

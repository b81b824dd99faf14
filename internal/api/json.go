package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notely/internal/apperr"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error  string            `json:"error" validate:"required"`
	Fields map[string]string `json:"fields,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decodeJSON reads a bounded JSON body into v. It writes the 400 itself
// and reports false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// writeError maps the error taxonomy onto HTTP statuses. Only unexpected
// errors are logged.
func writeError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	var (
		verr  *apperr.ValidationError
		verrs validation.Errors
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for k, e := range verrs {
			fields[k] = e.Error()
		}
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "validation failed", Fields: fields})
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrTooShort):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(apperr.ErrTooShort.Error()))
	case errors.Is(err, apperr.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The request context ended; nobody reads the response.
		w.WriteHeader(http.StatusRequestTimeout)
	default:
		slog.Error(msg, append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}

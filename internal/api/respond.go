package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/apperrors"
	"github.com/hackgods/appointment-booking/internal/logger"
	"github.com/hackgods/appointment-booking/internal/validation"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeAppError renders err with the status of its kind. The wrapped cause
// is logged for 5xx and never sent to the client.
func writeAppError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", GetRequestID(r.Context()),
			"code", appErr.Code,
			"error", err,
		)
	}
	writeError(w, appErr.HTTPStatus, appErr.Code, appErr.Message)
}

// decodeJSON reads a single JSON object into dst and validates it.
func decodeJSON(r *http.Request, v *validation.Validator, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("request body is required")
		}
		return apperrors.InvalidInput("could not parse JSON body")
	}
	if v == nil {
		return nil
	}
	if err := v.Struct(dst); err != nil {
		return apperrors.InvalidInput(err.Error())
	}
	return nil
}

func parseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput(field + " must be a valid UUID")
	}
	return id, nil
}

func optionalUUID(raw, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseUUID(raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/msomdec/profiles-api/internal/domain"
)

const maxBodyBytes = 1 << 20

// writeJSON sends a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}

// writeError sends {"detail": message} with the given status code.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

// writeValidationError sends the field messages of verr as a 400 response.
func writeValidationError(w http.ResponseWriter, verr *domain.ValidationError) {
	writeJSON(w, http.StatusBadRequest, verr.Fields)
}

// readJSON decodes the request body into dst. An empty body leaves dst
// untouched so that required-field validation reports the missing fields.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// jsonKinds names JSON value kinds the way clients see them in
// non_field_errors.
var jsonKinds = map[string]string{
	"array":  "list",
	"number": "int",
	"string": "str",
	"bool":   "bool",
}

// writeDecodeError reports a body that could not be decoded. A well-formed
// body with a wrong-typed field is a field error; anything else is a parse
// error.
func writeDecodeError(w http.ResponseWriter, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			kind, ok := jsonKinds[typeErr.Value]
			if !ok {
				kind = typeErr.Value
			}
			writeValidationError(w, domain.NewValidationError("non_field_errors",
				"Invalid data. Expected a dictionary, but got "+kind+"."))
			return
		}
		writeValidationError(w, domain.NewValidationError(typeErr.Field, "Not a valid string."))
		return
	}
	writeError(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
}

// writeServiceError maps a service error onto its HTTP response. Anything
// unrecognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "You do not have permission to perform this action.")
	default:
		slog.Error(op, "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusInternalServerError, "A server error occurred.")
	}
}

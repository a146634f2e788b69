// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/DWE-CLOUD/metapi/internal/auth"
	"github.com/DWE-CLOUD/metapi/internal/service"
)

// genericServerError is returned for unexpected failures; details stay in
// the logs.
const genericServerError = "An unexpected error occurred"

// Handler wraps application-level endpoints that need no service
// dependencies.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Root is the API info endpoint.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"name":    "metapi",
		"version": "1.0.0",
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a flat {"error": message} response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFieldErrors writes a 400 response with per-field messages:
// {"error": {field: [msg, ...]}}.
func writeFieldErrors(w http.ResponseWriter, fieldErrs service.FieldErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": fieldErrs})
}

// writeServiceError maps a service-layer error to a response: validation
// errors become 400 field errors, everything else is a 500 with a generic
// message.
func writeServiceError(w http.ResponseWriter, err error) {
	if fieldErrs, ok := service.AsFieldErrors(err); ok {
		writeFieldErrors(w, fieldErrs)
		return
	}
	writeError(w, http.StatusInternalServerError, genericServerError)
}

// writeServiceErrorFor maps a service-layer error for whichever gate
// admitted the request. Key-authenticated callers get the flat
// {"error": "message"} shape the data API documents; session callers get
// field-keyed messages the dashboard renders per input.
func writeServiceErrorFor(w http.ResponseWriter, r *http.Request, err error) {
	fieldErrs, ok := service.AsFieldErrors(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, genericServerError)
		return
	}
	if auth.AuthFromContext(r.Context()) != nil {
		writeError(w, http.StatusBadRequest, fieldErrs.First())
		return
	}
	writeFieldErrors(w, fieldErrs)
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DWE-CLOUD/metapi/internal/auth"
	"github.com/DWE-CLOUD/metapi/internal/handler/dto"
	"github.com/DWE-CLOUD/metapi/internal/service"
)

// APIKeyHandler handles key management endpoints. These routes sit behind
// the session gate: keys are managed from the dashboard, not with other keys.
type APIKeyHandler struct {
	logger *slog.Logger
	keys   *service.KeyService
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(logger *slog.Logger, keys *service.KeyService) *APIKeyHandler {
	return &APIKeyHandler{
		logger: logger,
		keys:   keys,
	}
}

// List handles GET /v1/keys. Key strings are masked.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	keys, err := h.keys.ListKeys(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list API keys",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, genericServerError)
		return
	}

	responses := make([]dto.KeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, dto.ToKeyResponse(key))
	}

	writeJSON(w, http.StatusOK, map[string]any{"keys": responses})
}

// Create handles POST /v1/keys. The response carries the plaintext key; it
// is never retrievable again.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req dto.CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	key, err := h.keys.CreateKey(r.Context(), userID, req.Name, req.Type)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.logger.Info("API key created",
		slog.String("key_id", key.ID),
		slog.String("key_type", key.Type),
		slog.String("user_id", userID),
	)

	writeJSON(w, http.StatusCreated, dto.CreateKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		Key:       key.Key,
		Type:      key.Type,
		CreatedAt: key.CreatedAt,
	})
}

// Delete handles DELETE /v1/keys/{id}. Deleting an unknown or already
// deleted key still reports success.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	keyID := chi.URLParam(r, "id")

	if err := h.keys.DeleteKey(r.Context(), userID, keyID); err != nil {
		h.logger.Error("failed to delete API key",
			slog.String("key_id", keyID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, genericServerError)
		return
	}

	h.logger.Info("API key deleted",
		slog.String("key_id", keyID),
		slog.String("user_id", userID),
	)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

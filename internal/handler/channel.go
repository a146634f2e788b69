package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DWE-CLOUD/metapi/internal/auth"
	"github.com/DWE-CLOUD/metapi/internal/handler/dto"
	"github.com/DWE-CLOUD/metapi/internal/model"
	"github.com/DWE-CLOUD/metapi/internal/service"
)

// ChannelHandler handles channel CRUD endpoints. The same handler serves
// the key-gated data API routes and the session-gated dashboard routes; the
// acting user comes from whichever gate admitted the request.
type ChannelHandler struct {
	logger   *slog.Logger
	channels *service.ChannelService
}

// NewChannelHandler creates a new ChannelHandler.
func NewChannelHandler(logger *slog.Logger, channels *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{
		logger:   logger,
		channels: channels,
	}
}

// List handles GET /channels. Returns the acting user's channels.
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	channels, err := h.channels.ListChannels(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list channels",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, genericServerError)
		return
	}

	if channels == nil {
		channels = []*model.Channel{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": channels})
}

// Create handles POST /channels.
func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req dto.CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	input := service.CreateChannelInput{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	for _, field := range req.Fields {
		input.Fields = append(input.Fields, service.FieldInput{Name: field.Name, Type: field.Type})
	}

	channel, err := h.channels.CreateChannel(r.Context(), input)
	if err != nil {
		writeServiceErrorFor(w, r, err)
		return
	}

	h.logger.Info("channel created",
		slog.String("channel_id", channel.ID),
		slog.String("user_id", userID),
	)

	writeJSON(w, http.StatusCreated, map[string]any{"channel": channel})
}

// Get handles GET /channels/{id}. Public channels are visible to any
// authenticated caller; private channels only to their owner.
func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	channel, ok := h.loadVisible(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": channel})
}

// Update handles PUT /channels/{id}.
func (h *ChannelHandler) Update(w http.ResponseWriter, r *http.Request) {
	channel, ok := h.loadVisible(w, r, true)
	if !ok {
		return
	}

	var req dto.UpdateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.channels.UpdateChannel(r.Context(), service.UpdateChannelInput{
		ID:          channel.ID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		if errors.Is(err, service.ErrChannelNotFound) {
			writeError(w, http.StatusNotFound, "Channel not found")
			return
		}
		writeServiceErrorFor(w, r, err)
		return
	}

	h.logger.Info("channel updated", slog.String("channel_id", updated.ID))
	writeJSON(w, http.StatusOK, map[string]any{"channel": updated})
}

// Delete handles DELETE /channels/{id}. Reports success whether or not the
// channel existed; a channel owned by someone else is left untouched.
func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	channelID := chi.URLParam(r, "id")

	channel, err := h.channels.GetChannel(r.Context(), channelID)
	if err == nil && channel.UserID == userID {
		if err := h.channels.DeleteChannel(r.Context(), channelID); err != nil {
			h.logger.Error("failed to delete channel",
				slog.String("channel_id", channelID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, genericServerError)
			return
		}
		h.logger.Info("channel deleted",
			slog.String("channel_id", channelID),
			slog.String("user_id", userID),
		)
	} else if err != nil && !errors.Is(err, service.ErrChannelNotFound) {
		writeError(w, http.StatusInternalServerError, genericServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeleteChannelResponse{
		Success: true,
		Message: fmt.Sprintf("Channel %s deleted successfully", channelID),
	})
}

// loadVisible resolves the path channel and applies the visibility rule.
// ownerOnly restricts access to the owner regardless of is_public. Writes
// the error response and reports false when the channel is not accessible.
func (h *ChannelHandler) loadVisible(w http.ResponseWriter, r *http.Request, ownerOnly bool) (*model.Channel, bool) {
	userID := auth.UserIDFromContext(r.Context())
	channelID := chi.URLParam(r, "id")

	channel, err := h.channels.GetChannel(r.Context(), channelID)
	if err != nil {
		if errors.Is(err, service.ErrChannelNotFound) {
			writeError(w, http.StatusNotFound, "Channel not found")
		} else {
			h.logger.Error("failed to get channel",
				slog.String("channel_id", channelID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, genericServerError)
		}
		return nil, false
	}

	if channel.UserID != userID && (ownerOnly || !channel.IsPublic) {
		// 404, not 403: do not reveal that the channel exists.
		writeError(w, http.StatusNotFound, "Channel not found")
		return nil, false
	}

	return channel, true
}

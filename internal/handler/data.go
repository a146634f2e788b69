package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/DWE-CLOUD/metapi/internal/handler/dto"
	"github.com/DWE-CLOUD/metapi/internal/model"
	"github.com/DWE-CLOUD/metapi/internal/service"
)

// DataHandler handles the feed endpoints under a channel.
type DataHandler struct {
	logger   *slog.Logger
	channels *service.ChannelService
	loader   *ChannelHandler
}

// NewDataHandler creates a new DataHandler. It shares the channel handler's
// visibility rules.
func NewDataHandler(logger *slog.Logger, channels *service.ChannelService, loader *ChannelHandler) *DataHandler {
	return &DataHandler{
		logger:   logger,
		channels: channels,
		loader:   loader,
	}
}

// Get handles GET /channels/{id}/data?results=N&days=D. Entries come back
// oldest first.
func (h *DataHandler) Get(w http.ResponseWriter, r *http.Request) {
	channel, ok := h.loader.loadVisible(w, r, false)
	if !ok {
		return
	}

	results := parseIntParam(r, "results")
	days := parseIntParam(r, "days")

	feeds, err := h.channels.GetEntries(r.Context(), channel.ID, results, days)
	if err != nil {
		if errors.Is(err, service.ErrChannelNotFound) {
			writeError(w, http.StatusNotFound, "Channel not found")
			return
		}
		h.logger.Error("failed to query feeds",
			slog.String("channel_id", channel.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, genericServerError)
		return
	}

	if feeds == nil {
		feeds = []*model.Feed{}
	}
	writeJSON(w, http.StatusOK, dto.FeedListResponse{
		ChannelID: channel.ID,
		Feeds:     feeds,
	})
}

// Post handles POST /channels/{id}/data. At least one of field1..field8 must
// be present.
func (h *DataHandler) Post(w http.ResponseWriter, r *http.Request) {
	channel, ok := h.loader.loadVisible(w, r, true)
	if !ok {
		return
	}

	var req dto.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	feed, err := h.channels.AddEntry(r.Context(), channel.ID, service.FeedInput{
		Fields:    req.FieldSlots(),
		Latitude:  req.Latitude.StringPtr(),
		Longitude: req.Longitude.StringPtr(),
		Elevation: req.Elevation.StringPtr(),
		Status:    req.Status.StringPtr(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoFieldData):
			writeError(w, http.StatusBadRequest, "At least one field value is required")
		case errors.Is(err, service.ErrChannelNotFound):
			writeError(w, http.StatusNotFound, "Channel not found")
		default:
			h.logger.Error("failed to store feed entry",
				slog.String("channel_id", channel.ID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, genericServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreateEntryResponse{
		Success:   true,
		EntryID:   feed.ID,
		ChannelID: channel.ID,
	})
}

// parseIntParam reads a non-negative integer query parameter, returning 0
// when absent or unparseable so the service applies its defaults.
func parseIntParam(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/DWE-CLOUD/metapi/internal/metrics"
	"github.com/DWE-CLOUD/metapi/internal/model"
	"github.com/DWE-CLOUD/metapi/internal/repository"
)

// Feed query defaults and bounds.
const (
	defaultFeedResults = 10
	maxFeedResults     = 8000
	defaultFeedDays    = 1
)

// Service errors.
var (
	ErrChannelNotFound = errors.New("channel not found")
	// ErrNoFieldData indicates a data entry carried none of field1..field8.
	ErrNoFieldData = errors.New("at least one field value is required")
)

// ChannelStore is the persistence surface the channel service needs.
type ChannelStore interface {
	CreateChannel(ctx context.Context, channel *model.Channel) error
	GetChannelByID(ctx context.Context, id string) (*model.Channel, error)
	ListChannelsByUserID(ctx context.Context, userID string) ([]*model.Channel, error)
	UpdateChannel(ctx context.Context, channel *model.Channel) error
	DeleteChannel(ctx context.Context, id string) error
	InsertFeed(ctx context.Context, feed *model.Feed) error
	ListFeeds(ctx context.Context, channelID string, limit int, since time.Time) ([]*model.Feed, error)
}

// ChannelService handles channel CRUD and feed ingest/query.
type ChannelService struct {
	store   ChannelStore
	metrics metrics.Recorder
}

// NewChannelService creates a new ChannelService.
func NewChannelService(store ChannelStore, recorder metrics.Recorder) *ChannelService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ChannelService{store: store, metrics: recorder}
}

// FieldInput declares one channel field in a create request.
type FieldInput struct {
	Name string
	Type string
}

// CreateChannelInput defines input for creating a channel.
type CreateChannelInput struct {
	UserID      string
	Name        string
	Description string
	IsPublic    bool
	Fields      []FieldInput
}

// CreateChannel validates the input and persists the channel with its
// declared fields.
func (s *ChannelService) CreateChannel(ctx context.Context, input CreateChannelInput) (*model.Channel, error) {
	fieldErrs := FieldErrors{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		fieldErrs.Add("name", "Channel name is required")
	}

	if len(input.Fields) > model.MaxChannelFields {
		fieldErrs.Add("fields", fmt.Sprintf("A channel may declare at most %d fields", model.MaxChannelFields))
	}

	for i, field := range input.Fields {
		if strings.TrimSpace(field.Name) == "" {
			fieldErrs.Add(fmt.Sprintf("field%d", i+1), "Field name is required")
		}
		if !model.IsValidFieldType(field.Type) {
			fieldErrs.Add(fmt.Sprintf("field%d", i+1), "Invalid field type")
		}
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	now := time.Now()
	channel := &model.Channel{
		ID:          ulid.Make().String(),
		UserID:      input.UserID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsPublic:    input.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for i, field := range input.Fields {
		channel.Fields = append(channel.Fields, &model.ChannelField{
			ID:        ulid.Make().String(),
			ChannelID: channel.ID,
			Position:  i + 1,
			Name:      strings.TrimSpace(field.Name),
			Type:      field.Type,
			CreatedAt: now,
		})
	}

	if err := s.store.CreateChannel(ctx, channel); err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	s.metrics.IncChannelCreated()
	return channel, nil
}

// GetChannel retrieves a channel with its fields.
func (s *ChannelService) GetChannel(ctx context.Context, id string) (*model.Channel, error) {
	channel, err := s.store.GetChannelByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return channel, nil
}

// ListChannels returns all channels owned by the user.
func (s *ChannelService) ListChannels(ctx context.Context, userID string) ([]*model.Channel, error) {
	channels, err := s.store.ListChannelsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

// UpdateChannelInput defines input for updating a channel. Nil fields are
// left unchanged.
type UpdateChannelInput struct {
	ID          string
	Name        *string
	Description *string
	IsPublic    *bool
}

// UpdateChannel applies a partial update and bumps updated_at.
func (s *ChannelService) UpdateChannel(ctx context.Context, input UpdateChannelInput) (*model.Channel, error) {
	channel, err := s.GetChannel(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, FieldErrors{"name": {"Channel name is required"}}
		}
		channel.Name = name
	}
	if input.Description != nil {
		channel.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsPublic != nil {
		channel.IsPublic = *input.IsPublic
	}
	channel.UpdatedAt = time.Now()

	if err := s.store.UpdateChannel(ctx, channel); err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("update channel: %w", err)
	}

	s.metrics.IncChannelUpdated()
	return channel, nil
}

// DeleteChannel removes a channel and, via cascade, its fields and data.
// Deleting a nonexistent channel reports success.
func (s *ChannelService) DeleteChannel(ctx context.Context, id string) error {
	if err := s.store.DeleteChannel(ctx, id); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	s.metrics.IncChannelDeleted()
	return nil
}

// FeedInput defines a data entry to post to a channel.
type FeedInput struct {
	Fields    [model.MaxChannelFields]*string // field1..field8
	Latitude  *string
	Longitude *string
	Elevation *string
	Status    *string
}

// AddEntry validates and stores a data entry. At least one of field1..field8
// must be present; positional metadata (latitude, longitude, elevation,
// status) alone does not qualify.
func (s *ChannelService) AddEntry(ctx context.Context, channelID string, input FeedInput) (*model.Feed, error) {
	if _, err := s.GetChannel(ctx, channelID); err != nil {
		return nil, err
	}

	feed := &model.Feed{
		ID:        ulid.Make().String(),
		ChannelID: channelID,
		Field1:    input.Fields[0],
		Field2:    input.Fields[1],
		Field3:    input.Fields[2],
		Field4:    input.Fields[3],
		Field5:    input.Fields[4],
		Field6:    input.Fields[5],
		Field7:    input.Fields[6],
		Field8:    input.Fields[7],
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Elevation: input.Elevation,
		Status:    input.Status,
		CreatedAt: time.Now(),
	}

	if !feed.HasFieldValue() {
		return nil, ErrNoFieldData
	}

	if err := s.store.InsertFeed(ctx, feed); err != nil {
		return nil, fmt.Errorf("insert feed: %w", err)
	}

	s.metrics.IncFeedInserted()
	return feed, nil
}

// GetEntries returns up to results entries posted within the last days days,
// oldest first. results defaults to 10 and is clamped to [1, 8000]; days
// defaults to 1.
func (s *ChannelService) GetEntries(ctx context.Context, channelID string, results, days int) ([]*model.Feed, error) {
	if _, err := s.GetChannel(ctx, channelID); err != nil {
		return nil, err
	}

	if results <= 0 {
		results = defaultFeedResults
	}
	if results > maxFeedResults {
		results = maxFeedResults
	}
	if days <= 0 {
		days = defaultFeedDays
	}

	since := time.Now().AddDate(0, 0, -days)

	start := time.Now()
	feeds, err := s.store.ListFeeds(ctx, channelID, results, since)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	s.metrics.ObserveFeedQueryDuration(time.Since(start))

	return feeds, nil
}

// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"encoding/json"
	"fmt"

	"github.com/DWE-CLOUD/metapi/internal/model"
)

// FieldDecl declares one typed field in a channel create request.
type FieldDecl struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateChannelRequest represents the request body for creating a channel.
type CreateChannelRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	IsPublic    bool        `json:"is_public,omitempty"`
	Fields      []FieldDecl `json:"fields,omitempty"`
}

// UpdateChannelRequest represents the request body for updating a channel.
// Absent fields are left unchanged.
type UpdateChannelRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// FlexString is a string that also accepts JSON numbers and booleans,
// stringifying them. Device firmware posts field values in whichever type
// is convenient; storage is text either way.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexString(fmt.Sprintf("%t", b))
		return nil
	}

	return fmt.Errorf("value %s is not a string, number, or boolean", data)
}

// CreateEntryRequest represents the request body for posting a data entry.
type CreateEntryRequest struct {
	Field1    *FlexString `json:"field1,omitempty"`
	Field2    *FlexString `json:"field2,omitempty"`
	Field3    *FlexString `json:"field3,omitempty"`
	Field4    *FlexString `json:"field4,omitempty"`
	Field5    *FlexString `json:"field5,omitempty"`
	Field6    *FlexString `json:"field6,omitempty"`
	Field7    *FlexString `json:"field7,omitempty"`
	Field8    *FlexString `json:"field8,omitempty"`
	Latitude  *FlexString `json:"latitude,omitempty"`
	Longitude *FlexString `json:"longitude,omitempty"`
	Elevation *FlexString `json:"elevation,omitempty"`
	Status    *FlexString `json:"status,omitempty"`
}

// FieldSlots returns field1..field8 as plain string pointers in positional
// order.
func (r *CreateEntryRequest) FieldSlots() [model.MaxChannelFields]*string {
	flex := [model.MaxChannelFields]*FlexString{
		r.Field1, r.Field2, r.Field3, r.Field4,
		r.Field5, r.Field6, r.Field7, r.Field8,
	}
	var out [model.MaxChannelFields]*string
	for i, v := range flex {
		out[i] = v.StringPtr()
	}
	return out
}

// StringPtr converts a *FlexString to a *string, preserving nil.
func (f *FlexString) StringPtr() *string {
	if f == nil {
		return nil
	}
	s := string(*f)
	return &s
}

// CreateEntryResponse confirms a stored data entry.
type CreateEntryResponse struct {
	Success   bool   `json:"success"`
	EntryID   string `json:"entry_id"`
	ChannelID string `json:"channel_id"`
}

// FeedListResponse wraps a channel's data entries.
type FeedListResponse struct {
	ChannelID string        `json:"channel_id"`
	Feeds     []*model.Feed `json:"feeds"`
}

// DeleteChannelResponse confirms a channel deletion.
type DeleteChannelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}


package model

import (
	"slices"
	"time"
)

// MaxChannelFields is the maximum number of typed fields a channel may declare.
const MaxChannelFields = 8

// Channel field types.
const (
	FieldTypeNumber   = "number"
	FieldTypeString   = "string"
	FieldTypeBoolean  = "boolean"
	FieldTypeLocation = "location"
	FieldTypeStatus   = "status"
)

// ValidFieldTypes contains all accepted channel field types.
var ValidFieldTypes = []string{
	FieldTypeNumber,
	FieldTypeString,
	FieldTypeBoolean,
	FieldTypeLocation,
	FieldTypeStatus,
}

// IsValidFieldType reports whether t is one of the accepted field types.
func IsValidFieldType(t string) bool {
	return slices.Contains(ValidFieldTypes, t)
}

// Channel is a named collection of up to eight typed data fields into which
// time-stamped entries are written.
type Channel struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	IsPublic    bool            `json:"is_public"`
	Fields      []*ChannelField `json:"fields,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ChannelField declares one of a channel's data slots (field1..field8).
type ChannelField struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Position  int       `json:"position"` // 1..8, maps to the fieldN column
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Feed is a single time-stamped data entry posted to a channel. Field values
// are stored as text; interpretation is up to the declared field type.
type Feed struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Field1    *string   `json:"field1,omitempty"`
	Field2    *string   `json:"field2,omitempty"`
	Field3    *string   `json:"field3,omitempty"`
	Field4    *string   `json:"field4,omitempty"`
	Field5    *string   `json:"field5,omitempty"`
	Field6    *string   `json:"field6,omitempty"`
	Field7    *string   `json:"field7,omitempty"`
	Field8    *string   `json:"field8,omitempty"`
	Latitude  *string   `json:"latitude,omitempty"`
	Longitude *string   `json:"longitude,omitempty"`
	Elevation *string   `json:"elevation,omitempty"`
	Status    *string   `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FieldValues returns the eight field slots in positional order.
func (f *Feed) FieldValues() [MaxChannelFields]*string {
	return [MaxChannelFields]*string{
		f.Field1, f.Field2, f.Field3, f.Field4,
		f.Field5, f.Field6, f.Field7, f.Field8,
	}
}

// HasFieldValue reports whether at least one of field1..field8 is set.
func (f *Feed) HasFieldValue() bool {
	for _, v := range f.FieldValues() {
		if v != nil {
			return true
		}
	}
	return false
}

// Package core holds the desk domain: the records kept by GeoNotes 98,
// the ports a storage adapter must satisfy, and the Service that edits them.
package core

import (
	"fmt"
	"time"
)

// Collection names one of the three keyed collections of the desk store.
type Collection string

const (
	CollectionNotes    Collection = "notes"
	CollectionStickers Collection = "stickers"
	CollectionSettings Collection = "settings"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{CollectionNotes, CollectionStickers, CollectionSettings}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionNotes, CollectionStickers, CollectionSettings:
		return true
	}
	return false
}

// Metadata represents the flexible key-value payload of a stored record.
type Metadata map[string]any

// Record is the storage-level unit: a unique key and its payload.
// It is agnostic to the concrete entity (note, sticker, setting).
type Record struct {
	Key  string
	Data Metadata
}

// Note is a user-authored text entry.
type Note struct {
	ID        string `json:"id" validate:"required"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	Color     string `json:"color,omitempty"`
	// EchoParentID points at the note an echo was copied from.
	EchoParentID  string `json:"echoParentId,omitempty"`
	LastEchoCheck int64  `json:"lastEchoCheck,omitempty"`
}

// IsEcho reports whether the note was produced by the echo sweep.
func (n Note) IsEcho() bool {
	return n.EchoParentID != ""
}

// Sticker is a positioned decorative element on the desk.
// X and Y are normalized to [0,1] when placed by AddSticker; stored values
// outside that range are kept as they are.
type Sticker struct {
	ID        string  `json:"id" validate:"required"`
	Asset     string  `json:"asset"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Scale     float64 `json:"scale"`
	Rotation  float64 `json:"rotation"`
	DriftSeed float64 `json:"driftSeed"`
	ZIndex    int64   `json:"zIndex"`
	CreatedAt int64   `json:"createdAt"`
}

// Setting is a single key/value entry of the settings collection.
type Setting struct {
	Key   string `json:"key" validate:"required"`
	Value any    `json:"value"`
}

// Well-known setting keys.
const (
	SettingThemeID         = "themeId"
	SettingAmbientMessages = "ambientMessages"
	SettingClock24h        = "clock24h"
)

// DefaultThemeID is the theme pack selected on a fresh desk.
const DefaultThemeID = "sunset-desk"

// DesktopSettings is the typed view of the settings collection.
type DesktopSettings struct {
	ThemeID         string `json:"themeId"`
	AmbientMessages bool   `json:"ambientMessages"`
	Clock24h        bool   `json:"clock24h"`
}

// DefaultDesktopSettings returns the settings of a fresh desk.
func DefaultDesktopSettings() DesktopSettings {
	return DesktopSettings{
		ThemeID:         DefaultThemeID,
		AmbientMessages: true,
		Clock24h:        false,
	}
}

// EventType represents the type of change in the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
	// EventReload is emitted when the whole store was replaced from disk.
	EventReload EventType = "RELOAD"
)

// Event represents a change in the store.
type Event struct {
	Type       EventType
	Collection Collection
	Key        string
	Timestamp  int64 // epoch millis
}

// String renders the event for logs and lifecycle sinks.
func (e Event) String() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s", e.Type, e.Collection)
	}
	return fmt.Sprintf("%s %s/%s", e.Type, e.Collection, e.Key)
}

// Millis converts t to epoch milliseconds, the only timestamp form stored.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds back to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

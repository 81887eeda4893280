// Package types defines the shared data types exchanged between the dialog
// engine components: inbound user input, buttons, and media items.
//
// Keeping these in a leaf package avoids import cycles between the scenario
// model, the input validator, and the step processor, all of which speak in
// terms of the same input kinds.
package types

import "time"

// InputKind classifies a piece of user input. Exactly one kind is active per
// scenario step; the same kinds appear in scenario expected_input declarations
// and in inbound events from platform adapters.
type InputKind string

// Input kinds.
const (
	InputText     InputKind = "text"
	InputNumber   InputKind = "number"
	InputButton   InputKind = "button"
	InputFile     InputKind = "file"
	InputPhone    InputKind = "phone"
	InputEmail    InputKind = "email"
	InputDate     InputKind = "date"
	InputLocation InputKind = "location"
)

// Valid reports whether k is one of the known input kinds.
func (k InputKind) Valid() bool {
	switch k {
	case InputText, InputNumber, InputButton, InputFile,
		InputPhone, InputEmail, InputDate, InputLocation:
		return true
	}
	return false
}

// UserInput is a single inbound input event from a platform adapter,
// normalized to a platform-independent shape.
type UserInput struct {
	Kind      InputKind `json:"kind"`
	Value     string    `json:"value"`
	File      *FileMeta `json:"file,omitempty"`
	Location  *Location `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FileMeta describes an uploaded file. The binary itself lives in external
// media storage; the engine only validates metadata.
type FileMeta struct {
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	FileID    string `json:"file_id"`
	Name      string `json:"name,omitempty"`
}

// Location is a geographic point attached to a location input.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Button is a single reply option shown to the user.
type Button struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// MediaItem is one media attachment of a step message.
type MediaItem struct {
	Kind    string `json:"kind"`
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// LocalizedText is one language-tagged candidate string.
// Params: language tag and content, both optional on the wire.
// Returns: candidate for localized field resolution.
type LocalizedText struct {
	Language *string `json:"language"`
	Content  *string `json:"content"`
}

// LocalizedField is unordered candidate list for one display string.
// Params: wire array of language/content pairs.
// Returns: input for translate.Resolve.
type LocalizedField []LocalizedText

// RawAlert mirrors `data` object of fetch response.
// Params: multi-locale arrays and verbatim metadata fields.
// Returns: wire payload before translation.
type RawAlert struct {
	ID                *string        `json:"id"`
	Title             LocalizedField `json:"title"`
	Description       LocalizedField `json:"description"`
	Force             *bool          `json:"force"`
	Icon              *string        `json:"icon"`
	Link              *string        `json:"link"`
	ButtonTitle       LocalizedField `json:"button_title"`
	CancelButtonTitle LocalizedField `json:"cancel_button_title"`
	Version           LocalizedField `json:"version"`
	SDKVersion        *int64         `json:"sdk_version"`
	MinimumVersion    *string        `json:"minimum_version"`
	MaximumVersion    *string        `json:"maximum_version"`
	CreatedAt         *string        `json:"created_at"`
}

// RawPayload is fetch response envelope.
// Params: optional data object.
// Returns: decoded response body.
type RawPayload struct {
	Data *RawAlert `json:"data"`
}

// HasAlert reports whether payload carries an alert id.
// Params: none.
// Returns: false for empty body, null data, or null/blank id.
func (p *RawPayload) HasAlert() bool {
	if p == nil || p.Data == nil || p.Data.ID == nil {
		return false
	}
	return strings.TrimSpace(*p.Data.ID) != ""
}

// DecodePayload decodes fetch response body.
// Params: raw body bytes (empty body allowed).
// Returns: payload (nil for empty body) or decode error.
func DecodePayload(raw []byte) (*RawPayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var payload RawPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("decode alert payload: %w", err)
	}
	return &payload, nil
}

package domain

import "strings"

// Action is wire value of one user response reported to backend.
// Params: VIEW/ACCEPTED/CANCELED constants.
// Returns: form field value for action report.
type Action string

const (
	// ActionViewed is reported automatically when alert is shown.
	ActionViewed Action = "VIEW"
	// ActionAccepted is reported when user taps primary button.
	ActionAccepted Action = "ACCEPTED"
	// ActionCanceled is reported when user dismisses alert.
	ActionCanceled Action = "CANCELED"
)

// Valid reports whether action belongs to wire set.
// Params: none.
// Returns: true for VIEW/ACCEPTED/CANCELED.
func (a Action) Valid() bool {
	switch a {
	case ActionViewed, ActionAccepted, ActionCanceled:
		return true
	default:
		return false
	}
}

// AlertRecord is one resolved alert ready for display.
// Params: identity, resolved localized texts, and verbatim metadata.
// Returns: record consumed by state observers.
type AlertRecord struct {
	ID                   string  `json:"id"`
	Version              *string `json:"version,omitempty"`
	Title                *string `json:"title,omitempty"`
	Description          *string `json:"description,omitempty"`
	IconURL              *string `json:"icon_url,omitempty"`
	ActionURL            *string `json:"action_url,omitempty"`
	Force                *bool   `json:"force,omitempty"`
	PrimaryButtonLabel   *string `json:"primary_button_label,omitempty"`
	SecondaryButtonLabel *string `json:"secondary_button_label,omitempty"`
	SDKVersion           *string `json:"sdk_version,omitempty"`
	MinVersion           *string `json:"min_version,omitempty"`
	MaxVersion           *string `json:"max_version,omitempty"`
	CreatedAt            *string `json:"created_at,omitempty"`
}

// Active reports whether record describes an alert at all.
// Params: none.
// Returns: false when id is absent regardless of other fields.
func (r *AlertRecord) Active() bool {
	return r != nil && strings.TrimSpace(r.ID) != ""
}

// Forced reports force flag with absent treated as false.
// Params: none.
// Returns: true only for explicit force=true.
func (r *AlertRecord) Forced() bool {
	return r != nil && r.Force != nil && *r.Force
}

// StringValue dereferences optional text.
// Params: optional string pointer.
// Returns: value or empty string.
func StringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

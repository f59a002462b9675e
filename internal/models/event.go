package models

import "time"

// Account activity types.
const (
	EventRegister      = "REGISTER"
	EventLogin         = "LOGIN"
	EventProfileUpdate = "PROFILE_UPDATE"
)

// EventTypes lists every activity type, in lifecycle order.
var EventTypes = []string{EventRegister, EventLogin, EventProfileUpdate}

// Event is one entry in a user's security activity trail.
type Event struct {
	EventID     string    `json:"event_id"`
	UserID      int64     `json:"-"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type" example:"LOGIN"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

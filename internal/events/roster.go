// Package events defines the roster event payloads shared by the API and the auditor.
package events

import "time"

const (
	// TypeParticipantAdded is emitted after a successful signup.
	TypeParticipantAdded = "roster.participant_added"
	// TypeParticipantRemoved is emitted after a participant is removed.
	TypeParticipantRemoved = "roster.participant_removed"
)

// RosterChanged represents a single roster mutation.
type RosterChanged struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"event_type"`
	Activity   string    `json:"activity"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Known reports whether t is a roster event type this service emits.
func Known(t string) bool {
	return t == TypeParticipantAdded || t == TypeParticipantRemoved
}

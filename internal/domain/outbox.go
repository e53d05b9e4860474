package domain

import "time"

// OutboxEvent is an event recorded in the same transaction as the state
// change it describes and published later by the relay.
type OutboxEvent struct {
	ID           string     `json:"id"`
	Topic        string     `json:"topic"`
	AggregateID  string     `json:"aggregate_id"`
	EventType    string     `json:"event_type"`
	Payload      []byte     `json:"payload"`
	Attempts     int        `json:"attempts"`
	LastError    string     `json:"last_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	// ClaimedUntil is set while a relay is publishing the event.
	ClaimedUntil *time.Time `json:"claimed_until,omitempty"`
}

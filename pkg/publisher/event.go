package publisher

import (
	"errors"
	"time"
)

const (
	// SchemaRefreshV1 is the schema identifier for refresh publish events.
	SchemaRefreshV1 = "tokend.refresh.v1"
)

// ErrEmptyKey indicates an empty server key was provided where a value is required.
var ErrEmptyKey = errors.New("cannot create event with empty server key")

// Event is the publish payload for one completed token refresh.
type Event struct {
	Schema     string    `json:"schema"`
	Key        string    `json:"key"`
	TokenCount int       `json:"token_count"`
	DurationMS int64     `json:"duration_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent creates an Event for a completed refresh.
func NewEvent(key string, tokenCount int, duration time.Duration) (*Event, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	return &Event{
		Schema:     SchemaRefreshV1,
		Key:        key,
		TokenCount: tokenCount,
		DurationMS: duration.Milliseconds(),
		OccurredAt: time.Now(),
	}, nil
}

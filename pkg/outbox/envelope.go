package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted on the retention topic.
const (
	EventCancellationStarted  = "retention.cancellation.started"
	EventCancellationUpdated  = "retention.cancellation.updated"
	EventCancellationResolved = "retention.cancellation.resolved"
	EventSubscriptionRenewed  = "retention.subscription.renewed"
)

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	UserID     uuid.UUID       `json:"userId"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope wraps event data in a versioned envelope ready for the outbox.
func NewEnvelope(userID uuid.UUID, data any) (json.RawMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	envelope := PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		UserID:     userID,
		Data:       raw,
	}
	return json.Marshal(envelope)
}

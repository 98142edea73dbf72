package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is written in the same transaction as the state change it
// describes and drained to Pub/Sub by the outbox publisher.
type OutboxEvent struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Topic        string          `gorm:"column:topic;not null"`
	EventType    string          `gorm:"column:event_type;not null"`
	Payload      json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	AttemptCount int             `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string         `gorm:"column:last_error"`
	PublishedAt  *time.Time      `gorm:"column:published_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

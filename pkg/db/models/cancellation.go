package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/migratemate/retention-backend/pkg/enums"
)

// Cancellation is one attempt to leave the subscription. At most one row per
// user may have ResolvedAt = NULL; the partial unique index in the schema
// enforces it. Once ResolvedAt is set the row is immutable history.
type Cancellation struct {
	ID               uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	SubscriptionID   uuid.UUID             `gorm:"column:subscription_id;type:uuid;not null"`
	DownsellVariant  enums.DownsellVariant `gorm:"column:downsell_variant;not null"`
	FlowType         enums.FlowType        `gorm:"column:flow_type;not null;default:'standard'"`
	CurrentStep      enums.FlowStep        `gorm:"column:current_step;not null;default:'start'"`
	Reason           *string               `gorm:"column:reason"`
	AcceptedDownsell bool                  `gorm:"column:accepted_downsell;not null;default:false"`
	Details          json.RawMessage       `gorm:"column:details;type:jsonb"`
	ResolvedAt       *time.Time            `gorm:"column:resolved_at"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// Resolved reports whether the record has reached a terminal state.
func (c *Cancellation) Resolved() bool {
	return c != nil && c.ResolvedAt != nil
}

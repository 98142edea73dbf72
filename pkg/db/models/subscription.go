package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/migratemate/retention-backend/pkg/enums"
)

// Subscription persists the billing state the retention flow reconciles.
// MonthlyPrice is in minor currency units (cents).
type Subscription struct {
	ID           uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	MonthlyPrice int64                    `gorm:"column:monthly_price;not null"`
	Status       enums.SubscriptionStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the account that owns a subscription. Immutable as far as the
// retention flow is concerned.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"column:email;not null;unique"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

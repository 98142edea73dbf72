package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/migratemate/retention-backend/pkg/enums"
)

// FoundJobSurvey is the exit survey attached 1:1 to a found-job cancellation.
// Fields are pointers because the wizard persists answers step by step; the
// completion transition validates the full set before resolving.
type FoundJobSurvey struct {
	ID                   uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CancellationID       uuid.UUID    `gorm:"column:cancellation_id;type:uuid;not null;unique"`
	ViaMigrateMate       *enums.YesNo `gorm:"column:via_migrate_mate"`
	RolesApplied         *string      `gorm:"column:roles_applied"`
	CompaniesEmailed     *string      `gorm:"column:companies_emailed"`
	CompaniesInterviewed *string      `gorm:"column:companies_interviewed"`
	Feedback             *string      `gorm:"column:feedback"`
	VisaLawyer           *enums.YesNo `gorm:"column:visa_lawyer"`
	VisaType             *string      `gorm:"column:visa_type"`
	CreatedAt            time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

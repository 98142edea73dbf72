package cancellations

import (
	"github.com/google/uuid"

	"github.com/migratemate/retention-backend/pkg/enums"
)

// StartInput begins (or resumes) a cancellation flow for a user.
type StartInput struct {
	UserID   uuid.UUID
	FlowType enums.FlowType
}

// StartResult is returned by Start for both fresh and resumed flows.
type StartResult struct {
	CancellationID  uuid.UUID             `json:"cancellationId"`
	Variant         enums.DownsellVariant `json:"variant"`
	FlowType        enums.FlowType        `json:"flowType"`
	FlowDecision    enums.FlowStep        `json:"flowDecision"`
	MonthlyPrice    int64                 `json:"monthlyPrice"`
	DiscountedPrice int64                 `json:"discountedPrice"`
	AlreadyActive   bool                  `json:"alreadyActive"`
}

// FlowState is the resume payload for a user's wizard.
type FlowState struct {
	HasActiveCancellation bool                   `json:"hasActiveCancellation"`
	CancellationID        *uuid.UUID             `json:"cancellationId,omitempty"`
	CurrentStep           enums.FlowStep         `json:"currentStep"`
	Variant               *enums.DownsellVariant `json:"variant,omitempty"`
	FlowType              *enums.FlowType        `json:"flowType,omitempty"`
	MonthlyPrice          int64                  `json:"monthlyPrice"`
	DiscountedPrice       int64                  `json:"discountedPrice"`
	Survey                *SurveySnapshot        `json:"survey,omitempty"`
}

// UpdatePatch mutates an unresolved cancellation in place. flowType set to
// offer_accepted resolves the record and reactivates the subscription.
type UpdatePatch struct {
	Reason           *string         `json:"reason"`
	AcceptedDownsell *bool           `json:"acceptedDownsell"`
	Details          map[string]any  `json:"details"`
	FlowType         *enums.FlowType `json:"flowType"`
	Survey           *SurveyPatch    `json:"survey"`
}

// CompleteInput finishes a standard-flow cancellation.
type CompleteInput struct {
	Reason  *string        `json:"reason"`
	Details map[string]any `json:"details"`
}

// FoundJobResult reports the terminal step after a found-job completion.
type FoundJobResult struct {
	CancellationID uuid.UUID      `json:"cancellationId"`
	FinalStep      enums.FlowStep `json:"finalStep"`
}

// DownsellResult reports the state after accepting or declining the offer.
type DownsellResult struct {
	CancellationID     uuid.UUID                `json:"cancellationId"`
	Accepted           bool                     `json:"accepted"`
	SubscriptionStatus enums.SubscriptionStatus `json:"subscriptionStatus"`
	CurrentStep        enums.FlowStep           `json:"currentStep"`
}

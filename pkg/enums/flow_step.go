package enums

import "fmt"

// FlowStep names a position in the cancellation wizard. The UI reports its
// position through the step endpoint and resumes from the computed step after
// an abandonment.
type FlowStep string

const (
	FlowStepStart                     FlowStep = "start"
	FlowStepOffer                     FlowStep = "step1Offer"
	FlowStepOfferVariantA             FlowStep = "step2OfferVariantA"
	FlowStepReason                    FlowStep = "reason"
	FlowStepDownsell                  FlowStep = "downsell"
	FlowStepOfferAccepted             FlowStep = "offerAccepted"
	FlowStepSubscriptionCancelled     FlowStep = "subscriptionCancelled"
	FlowStepFoundJob1                 FlowStep = "foundJobStep1"
	FlowStepFoundJob2                 FlowStep = "foundJobStep2"
	FlowStepFoundJob3VariantA         FlowStep = "foundJobStep3VariantA"
	FlowStepFoundJob3VariantB         FlowStep = "foundJobStep3VariantB"
	FlowStepFoundJobCancelledNoHelp   FlowStep = "foundJobCancelledNoHelp"
	FlowStepFoundJobCancelledWithHelp FlowStep = "foundJobCancelledWithHelp"
)

var validFlowSteps = []FlowStep{
	FlowStepStart,
	FlowStepOffer,
	FlowStepOfferVariantA,
	FlowStepReason,
	FlowStepDownsell,
	FlowStepOfferAccepted,
	FlowStepSubscriptionCancelled,
	FlowStepFoundJob1,
	FlowStepFoundJob2,
	FlowStepFoundJob3VariantA,
	FlowStepFoundJob3VariantB,
	FlowStepFoundJobCancelledNoHelp,
	FlowStepFoundJobCancelledWithHelp,
}

// String implements fmt.Stringer.
func (s FlowStep) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s FlowStep) IsValid() bool {
	for _, candidate := range validFlowSteps {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseFlowStep converts raw input into a FlowStep.
func ParseFlowStep(value string) (FlowStep, error) {
	for _, candidate := range validFlowSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid flow step %q", value)
}

package enums

import "fmt"

// FlowType records which cancellation path the user declared at the start of
// the wizard, or that they were retained by the downsell offer.
type FlowType string

const (
	FlowTypeStandard      FlowType = "standard"
	FlowTypeFoundJob      FlowType = "found_job"
	FlowTypeOfferAccepted FlowType = "offer_accepted"
)

var validFlowTypes = []FlowType{
	FlowTypeStandard,
	FlowTypeFoundJob,
	FlowTypeOfferAccepted,
}

// String implements fmt.Stringer.
func (f FlowType) String() string {
	return string(f)
}

// IsValid reports whether the value is known.
func (f FlowType) IsValid() bool {
	for _, candidate := range validFlowTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFlowType converts raw input into a FlowType.
func ParseFlowType(value string) (FlowType, error) {
	for _, candidate := range validFlowTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid flow type %q", value)
}

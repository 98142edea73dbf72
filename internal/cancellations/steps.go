package cancellations

import (
	"github.com/migratemate/retention-backend/pkg/db/models"
	"github.com/migratemate/retention-backend/pkg/enums"
)

// ComputeCurrentStep maps stored state to the wizard step a resuming user
// should land on. Pure; rules are evaluated top to bottom, first match wins.
func ComputeCurrentStep(c *models.Cancellation, survey *models.FoundJobSurvey) enums.FlowStep {
	if c == nil || c.Resolved() {
		return enums.FlowStepStart
	}
	if c.FlowType == enums.FlowTypeFoundJob {
		return foundJobStep(survey)
	}
	if c.CurrentStep.IsValid() {
		return c.CurrentStep
	}
	return enums.FlowStepStart
}

func foundJobStep(survey *models.FoundJobSurvey) enums.FlowStep {
	if survey == nil || survey.ViaMigrateMate == nil {
		return enums.FlowStepFoundJob1
	}
	if !hasText(survey.Feedback) {
		return enums.FlowStepFoundJob2
	}
	if survey.VisaLawyer == nil {
		return foundJobStep3(*survey.ViaMigrateMate)
	}
	// Visa type is still owed when no lawyer is lined up.
	if *survey.VisaLawyer == enums.YesNoNo && !hasText(survey.VisaType) {
		return foundJobStep3(*survey.ViaMigrateMate)
	}
	return FinalFoundJobStep(*survey.VisaLawyer)
}

// Step 3 copy differs by how the job was found; the branching is identical.
func foundJobStep3(viaMigrateMate enums.YesNo) enums.FlowStep {
	if viaMigrateMate == enums.YesNoYes {
		return enums.FlowStepFoundJob3VariantA
	}
	return enums.FlowStepFoundJob3VariantB
}

// FinalFoundJobStep maps the visa-lawyer answer to the terminal step. Users
// without immigration help lined up land on the "with help" exit screen.
func FinalFoundJobStep(visaLawyer enums.YesNo) enums.FlowStep {
	if visaLawyer == enums.YesNoNo {
		return enums.FlowStepFoundJobCancelledWithHelp
	}
	return enums.FlowStepFoundJobCancelledNoHelp
}

func hasText(s *string) bool {
	return s != nil && *s != ""
}

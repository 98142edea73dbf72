package cancellations

import (
	"fmt"
	"strings"

	"github.com/migratemate/retention-backend/pkg/db/models"
	"github.com/migratemate/retention-backend/pkg/enums"
	pkgerrors "github.com/migratemate/retention-backend/pkg/errors"
	"github.com/migratemate/retention-backend/pkg/types"
)

const (
	feedbackMinLen = 25
	feedbackMaxLen = 1000
	visaTypeMaxLen = 100
)

var (
	appliedBuckets     = []string{"0", "1-5", "6-20", "20+"}
	interviewedBuckets = []string{"0", "1-2", "3-5", "5+"}
)

// SurveyInput is the full answer set required to complete a found-job
// cancellation.
type SurveyInput struct {
	ViaMigrateMate       string `json:"viaMigrateMate"`
	RolesApplied         string `json:"rolesApplied"`
	CompaniesEmailed     string `json:"companiesEmailed"`
	CompaniesInterviewed string `json:"companiesInterviewed"`
	Feedback             string `json:"feedback"`
	VisaLawyer           string `json:"visaLawyer"`
	VisaType             string `json:"visaType"`
}

// SurveyPatch carries partial answers persisted while the wizard is in
// flight. Only non-nil fields are validated and written.
type SurveyPatch struct {
	ViaMigrateMate       *string `json:"viaMigrateMate"`
	RolesApplied         *string `json:"rolesApplied"`
	CompaniesEmailed     *string `json:"companiesEmailed"`
	CompaniesInterviewed *string `json:"companiesInterviewed"`
	Feedback             *string `json:"feedback"`
	VisaLawyer           *string `json:"visaLawyer"`
	VisaType             *string `json:"visaType"`
}

// SurveySnapshot is the read shape returned by the flow-state endpoint.
type SurveySnapshot struct {
	ViaMigrateMate       *string `json:"viaMigrateMate"`
	RolesApplied         *string `json:"rolesApplied"`
	CompaniesEmailed     *string `json:"companiesEmailed"`
	CompaniesInterviewed *string `json:"companiesInterviewed"`
	Feedback             *string `json:"feedback"`
	VisaLawyer           *string `json:"visaLawyer"`
	VisaType             *string `json:"visaType"`
}

// Validate checks the full answer set and reports every failing field.
func (in SurveyInput) Validate() error {
	var fields []types.FieldError
	add := func(field, message string) {
		fields = append(fields, types.FieldError{Field: field, Message: message})
	}

	if _, err := enums.ParseYesNo(in.ViaMigrateMate); err != nil {
		add("viaMigrateMate", `must be "Yes" or "No"`)
	}

	if !bucketValid(in.RolesApplied, appliedBuckets) {
		add("rolesApplied", bucketMessage(appliedBuckets))
	}
	if !bucketValid(in.CompaniesEmailed, appliedBuckets) {
		add("companiesEmailed", bucketMessage(appliedBuckets))
	}
	if !bucketValid(in.CompaniesInterviewed, interviewedBuckets) {
		add("companiesInterviewed", bucketMessage(interviewedBuckets))
	}

	feedback := strings.TrimSpace(in.Feedback)
	if len(feedback) < feedbackMinLen || len(feedback) > feedbackMaxLen {
		add("feedback", fmt.Sprintf("must be between %d and %d characters", feedbackMinLen, feedbackMaxLen))
	}

	lawyer, err := enums.ParseYesNo(in.VisaLawyer)
	if err != nil {
		add("visaLawyer", `must be "Yes" or "No"`)
	} else if lawyer == enums.YesNoNo && strings.TrimSpace(in.VisaType) == "" {
		add("visaType", "required when no immigration lawyer is lined up")
	}
	if len(in.VisaType) > visaTypeMaxLen {
		add("visaType", fmt.Sprintf("must be at most %d characters", visaTypeMaxLen))
	}

	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "survey validation failed").WithDetails(fields)
	}
	return nil
}

// Validate checks only the fields present in the patch.
func (p SurveyPatch) Validate() error {
	var fields []types.FieldError
	add := func(field, message string) {
		fields = append(fields, types.FieldError{Field: field, Message: message})
	}

	if p.ViaMigrateMate != nil {
		if _, err := enums.ParseYesNo(*p.ViaMigrateMate); err != nil {
			add("viaMigrateMate", `must be "Yes" or "No"`)
		}
	}
	if p.RolesApplied != nil && !bucketValid(*p.RolesApplied, appliedBuckets) {
		add("rolesApplied", bucketMessage(appliedBuckets))
	}
	if p.CompaniesEmailed != nil && !bucketValid(*p.CompaniesEmailed, appliedBuckets) {
		add("companiesEmailed", bucketMessage(appliedBuckets))
	}
	if p.CompaniesInterviewed != nil && !bucketValid(*p.CompaniesInterviewed, interviewedBuckets) {
		add("companiesInterviewed", bucketMessage(interviewedBuckets))
	}
	if p.Feedback != nil {
		feedback := strings.TrimSpace(*p.Feedback)
		if len(feedback) < feedbackMinLen || len(feedback) > feedbackMaxLen {
			add("feedback", fmt.Sprintf("must be between %d and %d characters", feedbackMinLen, feedbackMaxLen))
		}
	}
	if p.VisaLawyer != nil {
		if _, err := enums.ParseYesNo(*p.VisaLawyer); err != nil {
			add("visaLawyer", `must be "Yes" or "No"`)
		}
	}
	if p.VisaType != nil && len(*p.VisaType) > visaTypeMaxLen {
		add("visaType", fmt.Sprintf("must be at most %d characters", visaTypeMaxLen))
	}

	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "survey validation failed").WithDetails(fields)
	}
	return nil
}

// IsEmpty reports whether the patch carries no answers at all.
func (p SurveyPatch) IsEmpty() bool {
	return p.ViaMigrateMate == nil &&
		p.RolesApplied == nil &&
		p.CompaniesEmailed == nil &&
		p.CompaniesInterviewed == nil &&
		p.Feedback == nil &&
		p.VisaLawyer == nil &&
		p.VisaType == nil
}

func (in SurveyInput) apply(survey *models.FoundJobSurvey) {
	via, _ := enums.ParseYesNo(in.ViaMigrateMate)
	lawyer, _ := enums.ParseYesNo(in.VisaLawyer)
	feedback := strings.TrimSpace(in.Feedback)

	survey.ViaMigrateMate = &via
	survey.RolesApplied = ptr(in.RolesApplied)
	survey.CompaniesEmailed = ptr(in.CompaniesEmailed)
	survey.CompaniesInterviewed = ptr(in.CompaniesInterviewed)
	survey.Feedback = &feedback
	survey.VisaLawyer = &lawyer
	if trimmed := strings.TrimSpace(in.VisaType); trimmed != "" {
		survey.VisaType = &trimmed
	}
}

func (p SurveyPatch) apply(survey *models.FoundJobSurvey) {
	if p.ViaMigrateMate != nil {
		via, _ := enums.ParseYesNo(*p.ViaMigrateMate)
		survey.ViaMigrateMate = &via
	}
	if p.RolesApplied != nil {
		survey.RolesApplied = ptr(*p.RolesApplied)
	}
	if p.CompaniesEmailed != nil {
		survey.CompaniesEmailed = ptr(*p.CompaniesEmailed)
	}
	if p.CompaniesInterviewed != nil {
		survey.CompaniesInterviewed = ptr(*p.CompaniesInterviewed)
	}
	if p.Feedback != nil {
		feedback := strings.TrimSpace(*p.Feedback)
		survey.Feedback = &feedback
	}
	if p.VisaLawyer != nil {
		lawyer, _ := enums.ParseYesNo(*p.VisaLawyer)
		survey.VisaLawyer = &lawyer
	}
	if p.VisaType != nil {
		trimmed := strings.TrimSpace(*p.VisaType)
		survey.VisaType = &trimmed
	}
}

func snapshotFromModel(survey *models.FoundJobSurvey) *SurveySnapshot {
	if survey == nil {
		return nil
	}
	snapshot := &SurveySnapshot{
		RolesApplied:         survey.RolesApplied,
		CompaniesEmailed:     survey.CompaniesEmailed,
		CompaniesInterviewed: survey.CompaniesInterviewed,
		Feedback:             survey.Feedback,
		VisaType:             survey.VisaType,
	}
	if survey.ViaMigrateMate != nil {
		snapshot.ViaMigrateMate = ptr(survey.ViaMigrateMate.String())
	}
	if survey.VisaLawyer != nil {
		snapshot.VisaLawyer = ptr(survey.VisaLawyer.String())
	}
	return snapshot
}

func bucketValid(value string, buckets []string) bool {
	for _, bucket := range buckets {
		if value == bucket {
			return true
		}
	}
	return false
}

func bucketMessage(buckets []string) string {
	return "must be one of " + strings.Join(buckets, ", ")
}

func ptr(s string) *string {
	return &s
}

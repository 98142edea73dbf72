package cancellations

import (
	"testing"
	"time"

	"github.com/migratemate/retention-backend/pkg/db/models"
	"github.com/migratemate/retention-backend/pkg/enums"
)

func yes() *enums.YesNo {
	v := enums.YesNoYes
	return &v
}

func no() *enums.YesNo {
	v := enums.YesNoNo
	return &v
}

func str(s string) *string {
	return &s
}

func TestComputeCurrentStepRuleTable(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name   string
		c      *models.Cancellation
		survey *models.FoundJobSurvey
		want   enums.FlowStep
	}{
		{
			name: "no cancellation",
			want: enums.FlowStepStart,
		},
		{
			name: "resolved cancellation",
			c:    &models.Cancellation{FlowType: enums.FlowTypeStandard, ResolvedAt: &now},
			want: enums.FlowStepStart,
		},
		{
			name: "found job without survey",
			c:    &models.Cancellation{FlowType: enums.FlowTypeFoundJob},
			want: enums.FlowStepFoundJob1,
		},
		{
			name:   "found job survey without via answer",
			c:      &models.Cancellation{FlowType: enums.FlowTypeFoundJob},
			survey: &models.FoundJobSurvey{},
			want:   enums.FlowStepFoundJob1,
		},
		{
			name:   "via answered feedback missing",
			c:      &models.Cancellation{FlowType: enums.FlowTypeFoundJob},
			survey: &models.FoundJobSurvey{ViaMigrateMate: yes()},
			want:   enums.FlowStepFoundJob2,
		},
		{
			name: "feedback set lawyer unanswered via yes",
			c:    &models.Cancellation{FlowType: enums.FlowTypeFoundJob},
			survey: &models.FoundJobSurvey{
				ViaMigrateMate: yes(),
				Feedback:       str("found a role quickly, thank you"),
			},
			want: enums.FlowStepFoundJob3VariantA,
		},
		{
			name: "feedback set lawyer unanswered via no",
			c:    &models.Cancellation{FlowType: enums.FlowTypeFoundJob},
			survey: &models.FoundJobSurvey{
				ViaMigrateMate: no(),
				Feedback:       str("found a role through a referral"),
			},
			want: enums.FlowStepFoundJob3VariantB,
		},
		{
			name: "lawyer no but visa type still owed",
			c:    &models.Cancellation{FlowType: enums.FlowTypeFoundJob},
			survey: &models.FoundJobSurvey{
				ViaMigrateMate: yes(),
				Feedback:       str("found a role quickly, thank you"),
				VisaLawyer:     no(),
			},
			want: enums.FlowStepFoundJob3VariantA,
		},
		{
			name: "complete survey lawyer no",
			c:    &models.Cancellation{FlowType: enums.FlowTypeFoundJob},
			survey: &models.FoundJobSurvey{
				ViaMigrateMate: yes(),
				Feedback:       str("found a role quickly, thank you"),
				VisaLawyer:     no(),
				VisaType:       str("H-1B"),
			},
			want: enums.FlowStepFoundJobCancelledWithHelp,
		},
		{
			name: "complete survey lawyer yes",
			c:    &models.Cancellation{FlowType: enums.FlowTypeFoundJob},
			survey: &models.FoundJobSurvey{
				ViaMigrateMate: no(),
				Feedback:       str("found a role through a referral"),
				VisaLawyer:     yes(),
			},
			want: enums.FlowStepFoundJobCancelledNoHelp,
		},
		{
			name: "standard flow stored step",
			c:    &models.Cancellation{FlowType: enums.FlowTypeStandard, CurrentStep: enums.FlowStepDownsell},
			want: enums.FlowStepDownsell,
		},
		{
			name: "standard flow unknown step defaults to start",
			c:    &models.Cancellation{FlowType: enums.FlowTypeStandard, CurrentStep: "garbage"},
			want: enums.FlowStepStart,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeCurrentStep(tc.c, tc.survey); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestFinalFoundJobStep(t *testing.T) {
	if got := FinalFoundJobStep(enums.YesNoYes); got != enums.FlowStepFoundJobCancelledNoHelp {
		t.Fatalf("lawyer lined up should land on no-help exit, got %s", got)
	}
	if got := FinalFoundJobStep(enums.YesNoNo); got != enums.FlowStepFoundJobCancelledWithHelp {
		t.Fatalf("no lawyer should land on with-help exit, got %s", got)
	}
}

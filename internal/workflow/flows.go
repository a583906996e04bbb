package workflow

import (
	"context"

	"github.com/firebase/genkit/go/genkit"

	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/session"
)

// AskInput is the input of the ask flow.
type AskInput struct {
	Question string `json:"question"`
}

// PlanInput is the input of the maintenance-plan flow.
type PlanInput struct {
	Season string `json:"season"`
}

// IntakeInput is the input of the troubleshoot-intake flow.
type IntakeInput struct {
	DeviceType        string `json:"device_type"`
	Symptom           string `json:"symptom"`
	Urgency           string `json:"urgency,omitempty"`
	AdditionalContext string `json:"additional_context,omitempty"`
}

// AnswersInput is the input of the troubleshoot-answers flow.
type AnswersInput struct {
	SessionID string                   `json:"session_id"`
	Answers   []session.FollowupAnswer `json:"answers"`
}

// PartsInput is the input of the parts-lookup flow.
type PartsInput struct {
	Query      string `json:"query"`
	DeviceType string `json:"device_type,omitempty"`
}

// ProfileLoader fetches the active house profile. Flows load it per
// invocation so profile edits take effect without a restart.
type ProfileLoader func(ctx context.Context) (*profile.HouseProfile, error)

// DefineFlows registers every advisory workflow as a Genkit flow. This
// is the single registration entry point; flows are stateless, all
// state is passed in via input or held by the session store.
func DefineFlows(
	g *genkit.Genkit,
	asker *Asker,
	planner *Planner,
	troubleshooter *Troubleshooter,
	parts *PartsHelper,
	loadProfile ProfileLoader,
) {
	genkit.DefineFlow(g, "ask",
		func(ctx context.Context, input AskInput) (AskResult, error) {
			prof, err := loadProfile(ctx)
			if err != nil {
				prof = nil // Q&A works without a profile, just unpersonalized.
			}
			return asker.Ask(ctx, input.Question, prof)
		})

	genkit.DefineFlow(g, "maintenancePlan",
		func(ctx context.Context, input PlanInput) (PlanResult, error) {
			season, err := profile.ParseSeason(input.Season)
			if err != nil {
				return PlanResult{}, err
			}
			prof, err := loadProfile(ctx)
			if err != nil {
				return PlanResult{}, err
			}
			return planner.Plan(ctx, season, prof)
		})

	genkit.DefineFlow(g, "troubleshootIntake",
		func(ctx context.Context, input IntakeInput) (IntakeResult, error) {
			prof, err := loadProfile(ctx)
			if err != nil {
				prof = nil
			}
			return troubleshooter.Intake(ctx, IntakeRequest{
				DeviceType:        input.DeviceType,
				Symptom:           input.Symptom,
				Urgency:           input.Urgency,
				AdditionalContext: input.AdditionalContext,
				Profile:           prof,
			})
		})

	genkit.DefineFlow(g, "troubleshootAnswers",
		func(ctx context.Context, input AnswersInput) (DiagnosisResult, error) {
			prof, err := loadProfile(ctx)
			if err != nil {
				prof = nil
			}
			return troubleshooter.SubmitAnswers(ctx, input.SessionID, input.Answers, prof)
		})

	genkit.DefineFlow(g, "partsLookup",
		func(ctx context.Context, input PartsInput) (PartsResult, error) {
			prof, err := loadProfile(ctx)
			if err != nil {
				prof = nil
			}
			return parts.Lookup(ctx, input.Query, input.DeviceType, prof)
		})
}

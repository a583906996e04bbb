package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/homewarden/homewarden/internal/log"
	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/retrieval"
	"github.com/homewarden/homewarden/internal/risk"
	"github.com/homewarden/homewarden/internal/session"
)

// ErrMissingInput is returned when intake lacks a device type or
// symptom.
var ErrMissingInput = errors.New("missing device type or symptom")

// maxFollowups caps how many questions one intake may return.
const maxFollowups = 6

// IntakeRequest is the input of the first troubleshooting invocation.
type IntakeRequest struct {
	DeviceType        string
	Symptom           string
	Urgency           string
	AdditionalContext string
	Profile           *profile.HouseProfile
}

// Troubleshooter runs the two-invocation troubleshooting workflow:
// intake produces followup questions (or a safety stop), submitting the
// answers produces a diagnosis.
type Troubleshooter struct {
	retriever Retriever
	assessor  Assessor
	gen       Generator
	sessions  *session.Store
	logger    log.Logger
}

// NewTroubleshooter creates a Troubleshooter.
func NewTroubleshooter(retriever Retriever, assessor Assessor, gen Generator, sessions *session.Store, logger log.Logger) *Troubleshooter {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Troubleshooter{
		retriever: retriever,
		assessor:  assessor,
		gen:       gen,
		sessions:  sessions,
		logger:    logger.With("component", "troubleshoot"),
	}
}

// Intake runs the first invocation: risk-gate the symptom, then either
// stop with a professional referral or issue followup questions and
// persist the session. No diagnostic steps are ever generated for a
// safety-stopped session.
func (t *Troubleshooter) Intake(ctx context.Context, req IntakeRequest) (IntakeResult, error) {
	device := normalizeDevice(req.DeviceType)
	if device == "" || strings.TrimSpace(req.Symptom) == "" {
		return IntakeResult{}, ErrMissingInput
	}

	if req.Profile != nil && !req.Profile.HasSystem(device) {
		// Proceed anyway: the user may know their systems better than
		// the profile does.
		t.logger.Info("device not in house profile", "device_type", device)
	}

	combined := req.Symptom
	if req.AdditionalContext != "" {
		combined += " " + req.AdditionalContext
	}
	assessment := t.assessor.Assess(ctx, combined, device)

	sess := session.New(device, req.Symptom)
	sess.Urgency = req.Urgency
	sess.AdditionalContext = req.AdditionalContext
	sess.RiskLevel = assessment.Level

	if assessment.IsSafetyStop {
		sess.Phase = session.PhaseSafetyStopped
		t.sessions.Put(sess)
		t.logger.Warn("intake safety stop",
			"session_id", sess.ID,
			"device_type", device,
			"patterns", assessment.TriggeredPatterns)
		return IntakeResult{
			SessionID:               sess.ID,
			Phase:                   session.PhaseSafetyStopped,
			RiskLevel:               assessment.Level,
			IsSafetyStop:            true,
			SafetyMessage:           assessment.Message,
			RecommendedProfessional: assessment.Professional,
			FollowupQuestions:       []session.FollowupQuestion{},
		}, nil
	}

	result := t.retrieveOrEmpty(ctx, deviceWords(device)+" "+req.Symptom, device)

	prompt := fmt.Sprintf(`Device type: %s
Reported symptom: %s
Urgency: %s
Additional context: %s
Risk level: %s

Device details from house profile:
%s

Relevant documentation:
%s

Generate 2-3 targeted follow-up questions to help diagnose this issue.`,
		device,
		req.Symptom,
		orDefault(req.Urgency, "medium"),
		orDefault(req.AdditionalContext, "None provided"),
		assessment.Level,
		orDefault(formatDeviceDetails(req.Profile, device), "No details available"),
		formatContext(result.Passages))

	out, err := t.gen.Followups(ctx, prompt)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("generating followup questions: %w", err)
	}
	questions := normalizeQuestions(out.FollowupQuestions)
	if len(questions) == 0 {
		return IntakeResult{}, errors.New("model returned no followup questions")
	}

	// The followup pass may spot risk the classifier's layers missed;
	// it can raise the level, never lower it.
	level := assessment.Level
	if out.RiskLevel.Valid() {
		level = risk.Max(level, out.RiskLevel)
	}

	sess.Phase = session.PhaseAwaitingFollowup
	sess.RiskLevel = level
	sess.FollowupQuestions = questions
	t.sessions.Put(sess)

	t.logger.Info("intake complete",
		"session_id", sess.ID,
		"device_type", device,
		"questions", len(questions),
		"risk_level", level)

	return IntakeResult{
		SessionID:             sess.ID,
		Phase:                 session.PhaseAwaitingFollowup,
		RiskLevel:             level,
		PreliminaryAssessment: out.PreliminaryAssessment,
		FollowupQuestions:     questions,
	}, nil
}

// SubmitAnswers runs the second invocation against an
// AWAITING_FOLLOWUP session. The risk classifier is re-applied to the
// symptom plus the answers: new information may newly trigger a stop.
// The phase transition is atomic; a generation failure leaves the
// session in AWAITING_FOLLOWUP.
func (t *Troubleshooter) SubmitAnswers(ctx context.Context, sessionID string, answers []session.FollowupAnswer, prof *profile.HouseProfile) (DiagnosisResult, error) {
	var res DiagnosisResult

	updated, err := t.sessions.Transition(sessionID, session.PhaseAwaitingFollowup, func(s *session.Session) error {
		s.Answers = answers

		answersText := answersAsText(answers)
		assessment := t.assessor.Assess(ctx, s.Symptom+" "+answersText, s.DeviceType)

		if assessment.IsSafetyStop {
			s.Phase = session.PhaseSafetyStopped
			s.RiskLevel = assessment.Level
			t.logger.Warn("answers triggered safety stop",
				"session_id", s.ID,
				"patterns", assessment.TriggeredPatterns)
			res = DiagnosisResult{
				IsSafetyStop:            true,
				SafetyMessage:           assessment.Message,
				RecommendedProfessional: assessment.Professional,
				OverallRiskLevel:        assessment.Level,
				Steps:                   []DiagnosticStep{},
			}
			return nil
		}

		result := t.retrieveOrEmpty(ctx, deviceWords(s.DeviceType)+" "+s.Symptom+" "+answersText, s.DeviceType)

		prompt := fmt.Sprintf(`Device type: %s
Reported symptom: %s
Urgency: %s
Additional context: %s

Device details:
%s

Follow-up Q&A:
%s

Relevant documentation:
%s

Provide a diagnosis with 3-6 actionable steps to resolve this issue. Remember: the final step must always recommend calling a professional if unresolved.`,
			s.DeviceType,
			s.Symptom,
			orDefault(s.Urgency, "medium"),
			orDefault(s.AdditionalContext, "None provided"),
			orDefault(formatDeviceDetails(prof, s.DeviceType), "No details available"),
			formatAnswers(s.FollowupQuestions, answers),
			formatContext(result.Passages))

		out, err := t.gen.Diagnosis(ctx, prompt)
		if err != nil {
			return fmt.Errorf("generating diagnosis: %w", err)
		}

		steps, overall := normalizeSteps(out.DiagnosticSteps, out.OverallRiskLevel)
		overall = risk.Max(overall, assessment.Level)

		s.Phase = session.PhaseComplete
		s.RiskLevel = overall

		res = DiagnosisResult{
			DiagnosisSummary:       out.DiagnosisSummary,
			Steps:                  steps,
			OverallRiskLevel:       overall,
			WhenToCallProfessional: out.WhenToCallProfessional,
		}
		res.Markdown = renderDiagnosis(string(s.DeviceType), s.Symptom, res)
		return nil
	})
	if err != nil {
		return DiagnosisResult{}, err
	}

	res.SessionID = sessionID
	res.Phase = updated.Phase

	t.logger.Info("diagnosis complete",
		"session_id", sessionID,
		"phase", updated.Phase,
		"steps", len(res.Steps),
		"risk_level", res.OverallRiskLevel)

	return res, nil
}

// retrieveOrEmpty retrieves documentation, degrading to an empty result
// on failure: troubleshooting can still proceed without docs, the
// prompt just carries "No documentation available."
func (t *Troubleshooter) retrieveOrEmpty(ctx context.Context, query string, device profile.DeviceType) retrieval.Result {
	result, err := t.retriever.Retrieve(ctx, query, []profile.DeviceType{device})
	if err != nil {
		t.logger.Warn("retrieval failed, proceeding without documentation", "error", err)
		return retrieval.Result{}
	}
	return result
}

// normalizeQuestions trims the list to the cap and fills in missing
// question IDs so answers can reference them.
func normalizeQuestions(questions []session.FollowupQuestion) []session.FollowupQuestion {
	if len(questions) > maxFollowups {
		questions = questions[:maxFollowups]
	}
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
	return questions
}

// normalizeSteps renumbers steps, defaults invalid per-step levels to
// MED, and raises the overall level to HIGH when any single step is
// HIGH.
func normalizeSteps(steps []DiagnosticStep, overall risk.Level) ([]DiagnosticStep, risk.Level) {
	if !overall.Valid() {
		overall = risk.LevelMed
	}
	for i := range steps {
		steps[i].StepNumber = i + 1
		if !steps[i].RiskLevel.Valid() {
			steps[i].RiskLevel = risk.LevelMed
		}
		if steps[i].RiskLevel == risk.LevelHigh {
			overall = risk.LevelHigh
		}
	}
	return steps, overall
}

func answersAsText(answers []session.FollowupAnswer) string {
	parts := make([]string, 0, len(answers))
	for _, a := range answers {
		parts = append(parts, a.Answer)
	}
	return strings.Join(parts, " ")
}

// Package session provides in-memory storage for multi-turn
// troubleshooting sessions.
//
// A session carries the state between the intake call (which produces
// followup questions) and the answers call (which produces a
// diagnosis). Sessions move through a small phase machine; every
// mutation goes through [Store.Transition], which serializes access
// per session and validates the phase before and after the change.
//
// Sessions expire after a TTL and are evicted lazily on access.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/risk"
)

// Phase is a troubleshooting session's position in its lifecycle.
type Phase string

const (
	// PhaseIntake is the transient starting phase while the first
	// invocation is being processed.
	PhaseIntake Phase = "INTAKE"

	// PhaseAwaitingFollowup means followup questions were issued and
	// the session is waiting for answers.
	PhaseAwaitingFollowup Phase = "AWAITING_FOLLOWUP"

	// PhaseSafetyStopped is terminal: a hazard fired during intake or
	// answer processing and no diagnosis will be produced.
	PhaseSafetyStopped Phase = "SAFETY_STOPPED"

	// PhaseDiagnosing is the transient phase while answers are being
	// turned into diagnostic steps.
	PhaseDiagnosing Phase = "DIAGNOSING"

	// PhaseComplete is terminal: a diagnosis was delivered.
	PhaseComplete Phase = "COMPLETE"
)

// phaseTransitions lists the legal next phases for each phase.
// Staying in the same phase is always allowed and is not listed.
// AWAITING_FOLLOWUP may move straight to COMPLETE: the diagnosing
// phase happens inside a single atomic transition and is only stored
// when the caller splits the work across store operations.
var phaseTransitions = map[Phase][]Phase{
	PhaseIntake:           {PhaseAwaitingFollowup, PhaseSafetyStopped},
	PhaseAwaitingFollowup: {PhaseDiagnosing, PhaseComplete, PhaseSafetyStopped},
	PhaseDiagnosing:       {PhaseComplete, PhaseSafetyStopped},
	PhaseSafetyStopped:    nil,
	PhaseComplete:         nil,
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	_, ok := phaseTransitions[p]
	return ok
}

// Terminal reports whether no further transitions leave p.
func (p Phase) Terminal() bool {
	return p == PhaseSafetyStopped || p == PhaseComplete
}

func canTransition(from, to Phase) bool {
	if from == to {
		return true
	}
	for _, next := range phaseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// FollowupQuestion is a question issued during intake to gather the
// details a diagnosis needs.
type FollowupQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Type     string   `json:"type,omitempty"` // yes_no, choice, free_text
	Options  []string `json:"options,omitempty"`
	Why      string   `json:"why,omitempty"`
}

// FollowupAnswer pairs a followup question with the user's answer.
type FollowupAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// Session is the persisted state of one troubleshooting conversation.
type Session struct {
	ID                string             `json:"id"`
	Phase             Phase              `json:"phase"`
	DeviceType        profile.DeviceType `json:"device_type"`
	Symptom           string             `json:"symptom"`
	Urgency           string             `json:"urgency,omitempty"`
	AdditionalContext string             `json:"additional_context,omitempty"`
	RiskLevel         risk.Level         `json:"risk_level"`
	FollowupQuestions []FollowupQuestion `json:"followup_questions,omitempty"`
	Answers           []FollowupAnswer   `json:"answers,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// New creates a session in the intake phase with a fresh ID.
func New(deviceType profile.DeviceType, symptom string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Phase:     PhaseIntake,
		DeviceType: deviceType,
		Symptom:   symptom,
		RiskLevel: risk.LevelLow,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// clone returns a deep copy so callers never share slices with the
// stored session.
func (s *Session) clone() *Session {
	cp := *s
	if s.FollowupQuestions != nil {
		cp.FollowupQuestions = make([]FollowupQuestion, len(s.FollowupQuestions))
		copy(cp.FollowupQuestions, s.FollowupQuestions)
		for i, q := range s.FollowupQuestions {
			if q.Options != nil {
				cp.FollowupQuestions[i].Options = append([]string(nil), q.Options...)
			}
		}
	}
	if s.Answers != nil {
		cp.Answers = append([]FollowupAnswer(nil), s.Answers...)
	}
	return &cp
}

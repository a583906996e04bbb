// Package workflow sequences retrieval, risk classification, generation
// and rendering into the advisory workflows: grounded Q&A, seasonal
// maintenance planning, two-invocation troubleshooting, and parts
// lookup. Safety stops and insufficient evidence are normal outcomes on
// the result types, not errors.
package workflow

import (
	"context"

	"github.com/homewarden/homewarden/internal/citation"
	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/retrieval"
	"github.com/homewarden/homewarden/internal/risk"
	"github.com/homewarden/homewarden/internal/session"
)

// Retriever is the retrieval pipeline the workflows consume.
// *retrieval.Orchestrator satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, profileDeviceTypes []profile.DeviceType) (retrieval.Result, error)
}

// Assessor is the risk classification the troubleshooter consumes.
// *risk.Classifier satisfies it.
type Assessor interface {
	Assess(ctx context.Context, text string, deviceType profile.DeviceType) risk.Assessment
}

// ConfidenceLevel grades how well a part recommendation is grounded in
// the indexed documents.
type ConfidenceLevel string

const (
	// ConfidenceConfirmed means a part number or spec was found
	// directly in the source documentation.
	ConfidenceConfirmed ConfidenceLevel = "confirmed"

	// ConfidenceLikely means the part was inferred from documentation.
	ConfidenceLikely ConfidenceLevel = "likely"

	// ConfidenceUncertain means general knowledge only, not supported
	// by indexed documents.
	ConfidenceUncertain ConfidenceLevel = "uncertain"
)

// DiagnosticStep is one ordered step of a troubleshooting diagnosis.
type DiagnosticStep struct {
	StepNumber           int        `json:"step_number" jsonschema_description:"1-based position in the diagnostic sequence"`
	Instruction          string     `json:"instruction" jsonschema_description:"What the user should do"`
	ExpectedOutcome      string     `json:"expected_outcome" jsonschema_description:"What the user should observe if this step works"`
	IfNotResolved        string     `json:"if_not_resolved" jsonschema_description:"What to do when the step does not resolve the issue"`
	RiskLevel            risk.Level `json:"risk_level" jsonschema_description:"Risk of performing this step: LOW, MED, or HIGH"`
	RequiresProfessional bool       `json:"requires_professional" jsonschema_description:"Whether a licensed professional must perform this step"`
	SourceDoc            string     `json:"source_doc,omitempty" jsonschema_description:"Source document this step is based on, when applicable"`
}

// ChecklistItem is one maintenance task in a seasonal plan.
type ChecklistItem struct {
	Task          string `json:"task" jsonschema_description:"Short, actionable description of the maintenance task"`
	DeviceType    string `json:"device_type,omitempty" jsonschema_description:"Which device or system this task relates to"`
	Priority      string `json:"priority" jsonschema_description:"Priority level: high, medium, or low"`
	Frequency     string `json:"frequency,omitempty" jsonschema_description:"How often this task should be done"`
	EstimatedTime string `json:"estimated_time,omitempty" jsonschema_description:"Rough time estimate"`
	Notes         string `json:"notes,omitempty" jsonschema_description:"Additional details, tips, or part numbers"`
	SourceDoc     string `json:"source_doc,omitempty" jsonschema_description:"Document this task was derived from"`
}

// PartRecommendation is a single identified part or consumable.
type PartRecommendation struct {
	PartName            string          `json:"part_name" jsonschema_description:"Name of the part or consumable"`
	PartNumber          string          `json:"part_number,omitempty" jsonschema_description:"Part number, filter size, or identifier. Omit when confidence is uncertain"`
	DeviceType          string          `json:"device_type" jsonschema_description:"Which device or system this part is for"`
	DeviceModel         string          `json:"device_model,omitempty" jsonschema_description:"Specific device model this part fits"`
	Description         string          `json:"description" jsonschema_description:"Brief description of the part and its purpose"`
	ReplacementInterval string          `json:"replacement_interval,omitempty" jsonschema_description:"How often this part should be replaced"`
	WhereToBuy          string          `json:"where_to_buy,omitempty" jsonschema_description:"Suggested retailers or sources"`
	Confidence          ConfidenceLevel `json:"confidence" jsonschema_description:"confirmed, likely, or uncertain"`
	SourceDoc           string          `json:"source_doc,omitempty" jsonschema_description:"Source document supporting this recommendation. Required when confidence is confirmed"`
	Notes               string          `json:"notes,omitempty" jsonschema_description:"Warnings or installation tips, including safety notes for gas or electrical parts"`
}

// ClarificationQuestion asks the user for detail that would make a
// parts lookup more precise.
type ClarificationQuestion struct {
	ID            string `json:"id" jsonschema_description:"Unique identifier, e.g. cq1"`
	Question      string `json:"question" jsonschema_description:"The clarification question to ask the user"`
	Reason        string `json:"reason" jsonschema_description:"Why this information would help identify the correct part"`
	RelatedDevice string `json:"related_device,omitempty" jsonschema_description:"Which device this question relates to"`
}

// AskResult is the outcome of a grounded Q&A call.
type AskResult struct {
	Answer     string              `json:"answer"`
	RiskLevel  risk.Level          `json:"risk_level"`
	Reasoning  string              `json:"reasoning,omitempty"`
	Citations  []citation.Citation `json:"citations"`
	Unresolved []string            `json:"unresolved,omitempty"`
	Sufficient bool                `json:"sufficient"`
}

// IntakeResult is the outcome of the first troubleshooting invocation.
type IntakeResult struct {
	SessionID               string                     `json:"session_id"`
	Phase                   session.Phase              `json:"phase"`
	RiskLevel               risk.Level                 `json:"risk_level"`
	IsSafetyStop            bool                       `json:"is_safety_stop"`
	SafetyMessage           string                     `json:"safety_message,omitempty"`
	RecommendedProfessional string                     `json:"recommended_professional,omitempty"`
	PreliminaryAssessment   string                     `json:"preliminary_assessment,omitempty"`
	FollowupQuestions       []session.FollowupQuestion `json:"followup_questions"`
}

// DiagnosisResult is the outcome of the second troubleshooting
// invocation.
type DiagnosisResult struct {
	SessionID               string           `json:"session_id"`
	Phase                   session.Phase    `json:"phase"`
	IsSafetyStop            bool             `json:"is_safety_stop"`
	SafetyMessage           string           `json:"safety_message,omitempty"`
	RecommendedProfessional string           `json:"recommended_professional,omitempty"`
	DiagnosisSummary        string           `json:"diagnosis_summary,omitempty"`
	Steps                   []DiagnosticStep `json:"steps"`
	OverallRiskLevel        risk.Level       `json:"overall_risk_level"`
	WhenToCallProfessional  string           `json:"when_to_call_professional,omitempty"`
	Markdown                string           `json:"markdown,omitempty"`
}

// PlanResult is the outcome of a maintenance-plan call.
type PlanResult struct {
	Season      profile.Season  `json:"season"`
	HouseName   string          `json:"house_name"`
	Items       []ChecklistItem `json:"checklist_items"`
	Markdown    string          `json:"markdown"`
	SourcesUsed []string        `json:"sources_used"`
	Sufficient  bool            `json:"sufficient"`
}

// PartsResult is the outcome of a parts-lookup call.
type PartsResult struct {
	Parts                  []PartRecommendation    `json:"parts"`
	ClarificationQuestions []ClarificationQuestion `json:"clarification_questions,omitempty"`
	Summary                string                  `json:"summary"`
	Markdown               string                  `json:"markdown"`
	SourcesUsed            []string                `json:"sources_used"`
	HasGaps                bool                    `json:"has_gaps"`
	Sufficient             bool                    `json:"sufficient"`
}

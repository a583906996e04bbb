package risk

import (
	"context"
	"strings"

	"github.com/homewarden/homewarden/internal/log"
	"github.com/homewarden/homewarden/internal/profile"
)

// Assessment is the combined verdict of both classifier layers.
type Assessment struct {
	// Level is the final risk level: max(layer 1, layer 2).
	Level Level `json:"level"`

	// TriggeredPatterns names the hazard categories layer 1 fired.
	TriggeredPatterns []string `json:"triggered_patterns,omitempty"`

	// IsSafetyStop blocks all DIY guidance when true.
	IsSafetyStop bool `json:"is_safety_stop"`

	// Professional is the referral type when a stop fired. Layer 1
	// categories are authoritative for this; layer 2 fills it only
	// when layer 1 stayed silent.
	Professional string `json:"professional,omitempty"`

	// Message is the safety alert text when a stop fired.
	Message string `json:"message,omitempty"`

	// Reasoning is layer 2's explanation, empty when layer 2 did not
	// run or failed.
	Reasoning string `json:"reasoning,omitempty"`
}

// Verdict is the model layer's structured reply.
type Verdict struct {
	Level                   Level  `json:"risk_level" jsonschema_description:"Risk level: LOW, MED, or HIGH"`
	Reasoning               string `json:"reasoning" jsonschema_description:"Why this risk level was assigned"`
	SafetyConcern           bool   `json:"safety_concern" jsonschema_description:"Whether professional help is required for safety"`
	RecommendedProfessional string `json:"recommended_professional,omitempty" jsonschema_description:"Type of professional if safety_concern is true"`
}

// Judge is the model-based risk layer. Implementations classify nuanced
// phrasing the keyword registry cannot catch.
type Judge interface {
	Judge(ctx context.Context, text string, deviceType profile.DeviceType) (Verdict, error)
}

// Classifier runs the two-layer assessment.
type Classifier struct {
	judge  Judge // nil disables layer 2
	logger log.Logger
}

// NewClassifier creates a Classifier. A nil judge limits assessment to
// the deterministic layer.
func NewClassifier(judge Judge, logger log.Logger) *Classifier {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Classifier{
		judge:  judge,
		logger: logger.With("component", "risk"),
	}
}

// Assess classifies the text. It never returns an error: a judge
// failure degrades to the deterministic verdict with a MED floor,
// never to an unexamined LOW.
func (c *Classifier) Assess(ctx context.Context, text string, deviceType profile.DeviceType) Assessment {
	combined := text
	if deviceType != "" {
		combined = text + " " + string(deviceType)
	}

	// Layer 1: deterministic registry. Any fired category is a hard
	// stop the model layer cannot override.
	fired := matchCategories(combined)
	if len(fired) > 0 {
		names := make([]string, len(fired))
		for i, cat := range fired {
			names[i] = cat.Name
			c.logger.Warn("hazard category fired",
				"category", cat.Name,
				"device_type", deviceType)
		}

		return Assessment{
			Level:             LevelHigh,
			TriggeredPatterns: names,
			IsSafetyStop:      true,
			Professional:      fired[0].Professional,
			Message:           fired[0].Message,
		}
	}

	// Layer 2: model-based, only when layer 1 stayed silent.
	if c.judge == nil {
		return Assessment{Level: LevelLow}
	}

	verdict, err := c.judge.Judge(ctx, text, deviceType)
	if err != nil {
		c.logger.Warn("model risk assessment failed, defaulting to MED",
			"error", err,
			"device_type", deviceType)
		return Assessment{Level: LevelMed}
	}

	level := verdict.Level
	if !level.Valid() {
		c.logger.Warn("model returned unknown risk level, defaulting to MED",
			"level", verdict.Level)
		level = LevelMed
	}

	assessment := Assessment{
		Level:     level,
		Reasoning: verdict.Reasoning,
	}

	if verdict.SafetyConcern && level == LevelHigh {
		assessment.IsSafetyStop = true
		assessment.Professional = verdict.RecommendedProfessional
		assessment.Message = safetyConcernMessage(verdict.Reasoning)
		c.logger.Warn("model layer safety stop",
			"professional", verdict.RecommendedProfessional,
			"device_type", deviceType)
	}

	return assessment
}

func safetyConcernMessage(reasoning string) string {
	reasoning = strings.TrimSpace(reasoning)
	if reasoning == "" {
		return "SAFETY CONCERN: This issue requires professional attention."
	}
	return "SAFETY CONCERN: " + reasoning + ". This issue requires professional attention."
}

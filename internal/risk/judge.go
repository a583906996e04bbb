package risk

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/homewarden/homewarden/internal/profile"
)

const judgeSystemPrompt = `You are a home safety assessor. Evaluate the risk level of a reported home system issue. Consider: Is this something a homeowner can safely investigate? Does it involve gas, electrical, structural, or other hazards?

Risk levels:
- LOW: safe for any homeowner to investigate themselves
- MED: requires some caution or basic skills
- HIGH: involves gas, electrical, structural, or safety-critical work

If the scenario is unsafe for DIY work, set safety_concern to true and name the type of professional to call (licensed electrician, licensed plumber, HVAC technician, structural engineer).`

// GenkitJudge implements Judge with a structured-output model call.
type GenkitJudge struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenkitJudge creates a Judge using the given provider-qualified
// model name.
func NewGenkitJudge(g *genkit.Genkit, modelName string) *GenkitJudge {
	return &GenkitJudge{g: g, modelName: modelName}
}

// Judge implements the Judge interface.
func (j *GenkitJudge) Judge(ctx context.Context, text string, deviceType profile.DeviceType) (Verdict, error) {
	device := string(deviceType)
	if device == "" {
		device = "unspecified"
	}

	prompt := fmt.Sprintf(
		"Device: %s\nReported issue: %s\n\nAssess the risk level for DIY troubleshooting.",
		device, text)

	resp, err := genkit.Generate(ctx, j.g,
		ai.WithModelName(j.modelName),
		ai.WithSystem(judgeSystemPrompt),
		ai.WithPrompt(prompt),
		ai.WithOutputType(Verdict{}),
	)
	if err != nil {
		return Verdict{}, fmt.Errorf("risk assessment generation: %w", err)
	}

	var verdict Verdict
	if err := resp.Output(&verdict); err != nil {
		return Verdict{}, fmt.Errorf("parsing risk verdict: %w", err)
	}

	return verdict, nil
}

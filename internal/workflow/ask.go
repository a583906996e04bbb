package workflow

import (
	"context"
	"fmt"

	"github.com/homewarden/homewarden/internal/citation"
	"github.com/homewarden/homewarden/internal/log"
	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/risk"
)

// insufficientAnswer is returned when retrieval cannot ground an
// answer. It is a normal outcome, not an error.
const insufficientAnswer = "I can't answer that from the indexed documents. " +
	"The retrieved material wasn't relevant enough to give a grounded answer. " +
	"Try rephrasing the question or naming the specific device."

// Asker answers questions grounded in the chunk index.
type Asker struct {
	retriever Retriever
	gen       Generator
	logger    log.Logger
}

// NewAsker creates an Asker.
func NewAsker(retriever Retriever, gen Generator, logger log.Logger) *Asker {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Asker{
		retriever: retriever,
		gen:       gen,
		logger:    logger.With("component", "ask"),
	}
}

// Ask retrieves evidence for the question and generates a grounded
// answer with resolved citations. An insufficient retrieval yields the
// explicit cannot-answer result with zero citations.
func (a *Asker) Ask(ctx context.Context, question string, prof *profile.HouseProfile) (AskResult, error) {
	var profileTypes []profile.DeviceType
	if prof != nil {
		profileTypes = prof.InstalledDeviceTypes()
	}

	result, err := a.retriever.Retrieve(ctx, question, profileTypes)
	if err != nil {
		return AskResult{}, fmt.Errorf("retrieving evidence: %w", err)
	}

	if !result.Sufficient {
		a.logger.Info("insufficient evidence for question", "question_length", len(question))
		return AskResult{
			Answer:     insufficientAnswer,
			RiskLevel:  risk.LevelLow,
			Sufficient: false,
			Citations:  []citation.Citation{},
		}, nil
	}

	prompt := fmt.Sprintf(`<user_query>
%s
</user_query>

Relevant documentation:
%s

Answer the question using only the documentation above. Cite the numbered sources you used.`,
		question, formatContext(result.Passages))

	out, err := a.gen.Answer(ctx, prompt)
	if err != nil {
		return AskResult{}, fmt.Errorf("generating answer: %w", err)
	}

	level := out.RiskLevel
	if !level.Valid() {
		level = risk.LevelMed
	}

	resolution := citation.Resolve(out.Citations, result)
	if len(resolution.Unresolved) > 0 {
		a.logger.Warn("dropped ungrounded citation markers",
			"unresolved", resolution.Unresolved)
	}

	return AskResult{
		Answer:     out.Answer,
		RiskLevel:  level,
		Reasoning:  out.Reasoning,
		Citations:  resolution.Citations,
		Unresolved: resolution.Unresolved,
		Sufficient: true,
	}, nil
}

package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/homewarden/homewarden/internal/knowledge"
)

const rerankSystemPrompt = `You grade how relevant documentation passages are to a home maintenance question. For each numbered passage, assign a relevance score between 0.0 (unrelated) and 1.0 (directly answers the question). Score every passage; return scores in passage order.`

// rerankOutput is the structured output schema for the scoring call.
type rerankOutput struct {
	Scores []float64 `json:"scores"`
}

// GenkitReranker scores passages with a secondary model call through
// Genkit structured output.
type GenkitReranker struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenkitReranker creates a reranker using the given provider-qualified
// model name.
func NewGenkitReranker(g *genkit.Genkit, modelName string) *GenkitReranker {
	return &GenkitReranker{g: g, modelName: modelName}
}

// Score implements Reranker.
func (r *GenkitReranker) Score(ctx context.Context, query string, passages []knowledge.Passage) ([]float64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nPassages:\n", query)
	for i, p := range passages {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, p.Content)
	}

	resp, err := genkit.Generate(ctx, r.g,
		ai.WithModelName(r.modelName),
		ai.WithSystem(rerankSystemPrompt),
		ai.WithPrompt(b.String()),
		ai.WithOutputType(rerankOutput{}),
	)
	if err != nil {
		return nil, fmt.Errorf("re-rank generation: %w", err)
	}

	var out rerankOutput
	if err := resp.Output(&out); err != nil {
		return nil, fmt.Errorf("parsing re-rank output: %w", err)
	}
	if len(out.Scores) != len(passages) {
		return nil, fmt.Errorf("re-rank returned %d scores for %d passages", len(out.Scores), len(passages))
	}

	return out.Scores, nil
}

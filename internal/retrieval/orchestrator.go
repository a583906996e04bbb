// Package retrieval orchestrates index queries: device-type detection,
// metadata filtering with hybrid fallback, optional re-ranking, and the
// evidence-sufficiency gate. Callers receive either a ranked passage
// list or an explicit insufficient-evidence result, never a silently
// degraded one.
package retrieval

import (
	"context"
	"fmt"

	"github.com/homewarden/homewarden/internal/config"
	"github.com/homewarden/homewarden/internal/knowledge"
	"github.com/homewarden/homewarden/internal/log"
	"github.com/homewarden/homewarden/internal/profile"
)

// rerankOverfetch is how many times the target count is fetched from the
// index when re-ranking, giving the secondary model a wider pool.
const rerankOverfetch = 3

// Searcher is the chunk-index operation the orchestrator needs.
// *knowledge.Store satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Passage, error)
}

// Reranker scores passages against a query with a secondary model. It
// returns one score per passage, index-aligned with the input.
type Reranker interface {
	Score(ctx context.Context, query string, passages []knowledge.Passage) ([]float64, error)
}

// Result is the outcome of one retrieval call.
type Result struct {
	// Passages are the ranked passages, best first. Empty when
	// Sufficient is false.
	Passages []knowledge.Passage

	// Sufficient is false when the best pre-rerank score fell below
	// the sufficiency floor. Callers must not generate from an
	// insufficient result.
	Sufficient bool

	// FilterApplied names the device types the returned passages were
	// filtered by, nil when the result came from an unfiltered query.
	FilterApplied []profile.DeviceType
}

// Orchestrator runs the retrieval pipeline.
type Orchestrator struct {
	searcher Searcher
	reranker Reranker // nil when re-ranking is disabled
	cfg      config.RetrievalConfig
	fallback float64
	logger   log.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReranker enables secondary-model re-ranking.
func WithReranker(r Reranker) Option {
	return func(o *Orchestrator) { o.reranker = r }
}

// NewOrchestrator creates an Orchestrator. fallbackThreshold is the
// score below which a filtered query is re-issued unfiltered (see
// config.FallbackThreshold).
func NewOrchestrator(searcher Searcher, cfg config.RetrievalConfig, fallbackThreshold float64, logger log.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = log.NewNop()
	}
	o := &Orchestrator{
		searcher: searcher,
		cfg:      cfg,
		fallback: fallbackThreshold,
		logger:   logger.With("component", "retrieval"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Retrieve runs the full pipeline for one query. profileDeviceTypes,
// when non-empty, narrows detected device types to systems the house
// actually has; it never widens the filter.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, profileDeviceTypes []profile.DeviceType) (Result, error) {
	filter := o.resolveFilter(query, profileDeviceTypes)

	fetchCount := o.cfg.TopK
	targetCount := o.cfg.TopK
	if o.rerankEnabled() {
		targetCount = o.cfg.RerankTopN
		fetchCount = targetCount * rerankOverfetch
	}

	passages, filterApplied, err := o.search(ctx, query, filter, fetchCount)
	if err != nil {
		return Result{}, err
	}

	// The sufficiency verdict comes from the vector ranking before any
	// re-ranking: re-ranking is a quality optimization and must not
	// change whether we answer at all.
	topScore := 0.0
	if len(passages) > 0 {
		topScore = passages[0].Score
	}
	if topScore < o.cfg.MinRelevanceScore {
		o.logger.Info("insufficient evidence",
			"top_score", topScore,
			"floor", o.cfg.MinRelevanceScore,
			"query_length", len(query))
		return Result{Sufficient: false, FilterApplied: filterApplied}, nil
	}

	passages = o.rerank(ctx, query, passages, targetCount)

	return Result{
		Passages:      passages,
		Sufficient:    true,
		FilterApplied: filterApplied,
	}, nil
}

// resolveFilter detects device types in the query and intersects them
// with the profile's installed systems. If the intersection is empty the
// detected set is kept as-is: the user may know their systems better
// than the profile does.
func (o *Orchestrator) resolveFilter(query string, profileDeviceTypes []profile.DeviceType) []profile.DeviceType {
	detected := DetectDeviceTypes(query)
	if len(detected) == 0 || len(profileDeviceTypes) == 0 {
		return detected
	}

	installed := make(map[profile.DeviceType]bool, len(profileDeviceTypes))
	for _, dt := range profileDeviceTypes {
		installed[dt] = true
	}

	var narrowed []profile.DeviceType
	for _, dt := range detected {
		if installed[dt] {
			narrowed = append(narrowed, dt)
		}
	}
	if len(narrowed) == 0 {
		return detected
	}
	return narrowed
}

// search issues the filtered query and falls back to an unfiltered one
// when the filtered top score is below the fallback threshold. Filtering
// must never starve retrieval of otherwise-relevant passages.
func (o *Orchestrator) search(ctx context.Context, query string, filter []profile.DeviceType, count int) ([]knowledge.Passage, []profile.DeviceType, error) {
	if len(filter) == 0 {
		passages, err := o.searcher.Search(ctx, query, knowledge.WithTopK(count))
		if err != nil {
			return nil, nil, fmt.Errorf("unfiltered search: %w", err)
		}
		return passages, nil, nil
	}

	filtered, err := o.searcher.Search(ctx, query,
		knowledge.WithTopK(count),
		knowledge.WithDeviceTypes(filter),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("filtered search: %w", err)
	}

	if len(filtered) > 0 && filtered[0].Score >= o.fallback {
		return filtered, filter, nil
	}

	o.logger.Info("filtered retrieval weak, retrying unfiltered",
		"filter", filter,
		"filtered_results", len(filtered),
		"fallback_threshold", o.fallback)

	unfiltered, err := o.searcher.Search(ctx, query, knowledge.WithTopK(count))
	if err != nil {
		return nil, nil, fmt.Errorf("fallback search: %w", err)
	}
	return unfiltered, nil, nil
}

// rerank scores passages with the secondary model and truncates to the
// target count. A reranker failure keeps the vector order: re-ranking
// never degrades a result below what the index already produced.
func (o *Orchestrator) rerank(ctx context.Context, query string, passages []knowledge.Passage, target int) []knowledge.Passage {
	if !o.rerankEnabled() || len(passages) == 0 {
		return truncate(passages, target)
	}

	scores, err := o.reranker.Score(ctx, query, passages)
	if err != nil || len(scores) != len(passages) {
		o.logger.Warn("re-ranking failed, keeping vector order",
			"error", err,
			"scores", len(scores),
			"passages", len(passages))
		return truncate(passages, target)
	}

	type scored struct {
		passage knowledge.Passage
		score   float64
		rank    int
	}
	ranked := make([]scored, len(passages))
	for i, p := range passages {
		ranked[i] = scored{passage: p, score: scores[i], rank: i}
	}
	// Insertion sort keeps ties in original index rank. Pools are small
	// (tens of passages), so O(n²) is irrelevant.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].score > ranked[j-1].score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	result := make([]knowledge.Passage, len(ranked))
	for i, r := range ranked {
		result[i] = r.passage
	}
	return truncate(result, target)
}

func (o *Orchestrator) rerankEnabled() bool {
	return o.cfg.RerankEnabled && o.reranker != nil && o.cfg.RerankTopN > 0
}

func truncate(passages []knowledge.Passage, n int) []knowledge.Passage {
	if n > 0 && len(passages) > n {
		return passages[:n]
	}
	return passages
}

package retrieval

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/homewarden/homewarden/internal/config"
	"github.com/homewarden/homewarden/internal/knowledge"
	"github.com/homewarden/homewarden/internal/profile"
)

// fakeSearcher returns canned passages per call, recording the options
// of each search it served.
type fakeSearcher struct {
	results [][]knowledge.Passage
	errs    []error
	calls   []searchCall
}

type searchCall struct {
	query       string
	topK        int
	deviceTypes []profile.DeviceType
}

func (f *fakeSearcher) Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Passage, error) {
	call := searchCall{query: query}
	// Decode the options by replaying them against a probe search and
	// reading the knowledge package defaults.
	probe := &optionProbe{}
	probe.apply(opts)
	call.topK = probe.topK
	call.deviceTypes = probe.deviceTypes

	idx := len(f.calls)
	f.calls = append(f.calls, call)

	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.results) {
		return f.results[idx], nil
	}
	return nil, nil
}

// optionProbe extracts topK and device filter from SearchOptions by
// running them through a throwaway knowledge search and intercepting the
// querier call.
type optionProbe struct {
	topK        int
	deviceTypes []profile.DeviceType
}

func (p *optionProbe) apply(opts []knowledge.SearchOption) {
	q := &probeQuerier{}
	store := knowledge.NewStore(q, probeEmbedder{}, nil)
	_, _ = store.Search(context.Background(), "probe", opts...)
	p.topK = int(q.params.ResultLimit)
	for _, dt := range q.params.DeviceTypes {
		if parsed, ok := profile.ParseDeviceType(dt); ok {
			p.deviceTypes = append(p.deviceTypes, parsed)
		}
	}
}

type probeQuerier struct {
	params knowledge.SearchChunksParams
}

func (q *probeQuerier) UpsertChunk(ctx context.Context, arg knowledge.UpsertChunkParams) error {
	return nil
}

func (q *probeQuerier) SearchChunks(ctx context.Context, arg knowledge.SearchChunksParams) ([]knowledge.ChunkRow, error) {
	q.params = arg
	return nil, nil
}

func (q *probeQuerier) CountChunks(ctx context.Context, deviceType string) (int64, error) {
	return 0, nil
}

func (q *probeQuerier) DeleteChunksBySourceFile(ctx context.Context, sourceFile string) (int64, error) {
	return 0, nil
}

type probeEmbedder struct{}

func (probeEmbedder) Name() string          { return "probe" }
func (probeEmbedder) Register(api.Registry) {}

func (probeEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: []float32{1}}}}, nil
}

// fakeScorer implements Reranker.
type fakeScorer struct {
	scores []float64
	err    error
	calls  int
}

func (f *fakeScorer) Score(ctx context.Context, query string, passages []knowledge.Passage) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func passages(scores ...float64) []knowledge.Passage {
	result := make([]knowledge.Passage, len(scores))
	for i, s := range scores {
		result[i] = knowledge.Passage{
			Chunk: knowledge.Chunk{ID: string(rune('a' + i)), Content: "passage"},
			Score: s,
		}
	}
	return result
}

func retrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		TopK:              5,
		MinRelevanceScore: 0.3,
	}
}

func TestRetrieveUnfilteredWhenNoDevicesDetected(t *testing.T) {
	searcher := &fakeSearcher{results: [][]knowledge.Passage{passages(0.8, 0.5)}}
	o := NewOrchestrator(searcher, retrievalConfig(), 0.3, nil)

	result, err := o.Retrieve(context.Background(), "when should I clean the gutters?", nil)
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}

	if len(searcher.calls) != 1 {
		t.Fatalf("search calls = %d, want 1", len(searcher.calls))
	}
	if len(searcher.calls[0].deviceTypes) != 0 {
		t.Errorf("filter = %v, want none", searcher.calls[0].deviceTypes)
	}
	if !result.Sufficient || result.FilterApplied != nil {
		t.Errorf("result = %+v", result)
	}
}

func TestRetrieveFilteredByDetectedDevices(t *testing.T) {
	searcher := &fakeSearcher{results: [][]knowledge.Passage{passages(0.9)}}
	o := NewOrchestrator(searcher, retrievalConfig(), 0.3, nil)

	result, err := o.Retrieve(context.Background(), "furnace is making a rattling noise", nil)
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}

	if len(searcher.calls) != 1 {
		t.Fatalf("search calls = %d, want 1 (no fallback)", len(searcher.calls))
	}
	want := []profile.DeviceType{profile.DeviceFurnace}
	if !reflect.DeepEqual(searcher.calls[0].deviceTypes, want) {
		t.Errorf("filter = %v, want %v", searcher.calls[0].deviceTypes, want)
	}
	if !reflect.DeepEqual(result.FilterApplied, want) {
		t.Errorf("FilterApplied = %v, want %v", result.FilterApplied, want)
	}
}

func TestRetrieveHybridFallback(t *testing.T) {
	// Filtered query returns a weak top score; unfiltered returns strong.
	searcher := &fakeSearcher{results: [][]knowledge.Passage{
		passages(0.2),
		passages(0.7, 0.5),
	}}
	o := NewOrchestrator(searcher, retrievalConfig(), 0.3, nil)

	result, err := o.Retrieve(context.Background(), "furnace short cycling", nil)
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}

	if len(searcher.calls) != 2 {
		t.Fatalf("search calls = %d, want 2 (filtered then unfiltered)", len(searcher.calls))
	}
	if len(searcher.calls[1].deviceTypes) != 0 {
		t.Errorf("fallback call had filter %v", searcher.calls[1].deviceTypes)
	}
	if result.FilterApplied != nil {
		t.Errorf("FilterApplied = %v, want nil after fallback", result.FilterApplied)
	}
	if !result.Sufficient || result.Passages[0].Score != 0.7 {
		t.Errorf("result = %+v, want unfiltered passages", result)
	}
}

func TestRetrieveFallbackOnEmptyFilteredResult(t *testing.T) {
	searcher := &fakeSearcher{results: [][]knowledge.Passage{
		nil,
		passages(0.6),
	}}
	o := NewOrchestrator(searcher, retrievalConfig(), 0.3, nil)

	result, err := o.Retrieve(context.Background(), "furnace won't start", nil)
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}
	if len(searcher.calls) != 2 {
		t.Fatalf("search calls = %d, want 2", len(searcher.calls))
	}
	if !result.Sufficient {
		t.Errorf("Sufficient = false, want true from fallback")
	}
}

func TestRetrieveInsufficientEvidence(t *testing.T) {
	searcher := &fakeSearcher{results: [][]knowledge.Passage{passages(0.1)}}
	o := NewOrchestrator(searcher, retrievalConfig(), 0.3, nil)

	result, err := o.Retrieve(context.Background(), "zorbblefraz maintenance", nil)
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}
	if result.Sufficient {
		t.Error("Sufficient = true, want false")
	}
	if len(result.Passages) != 0 {
		t.Errorf("Passages = %v, want empty for insufficient result", result.Passages)
	}
}

func TestRetrieveProfileNarrowsFilter(t *testing.T) {
	searcher := &fakeSearcher{results: [][]knowledge.Passage{passages(0.9)}}
	o := NewOrchestrator(searcher, retrievalConfig(), 0.3, nil)

	// Query mentions furnace and thermostat; house only has a furnace.
	_, err := o.Retrieve(context.Background(),
		"should the thermostat turn the furnace on automatically?",
		[]profile.DeviceType{profile.DeviceFurnace, profile.DeviceWaterHeater},
	)
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}

	want := []profile.DeviceType{profile.DeviceFurnace}
	if !reflect.DeepEqual(searcher.calls[0].deviceTypes, want) {
		t.Errorf("filter = %v, want %v", searcher.calls[0].deviceTypes, want)
	}
}

func TestRetrieveProfileDisjointKeepsDetected(t *testing.T) {
	searcher := &fakeSearcher{results: [][]knowledge.Passage{passages(0.9)}}
	o := NewOrchestrator(searcher, retrievalConfig(), 0.3, nil)

	// The user asks about a device the profile doesn't list; trust the
	// query over the profile.
	_, err := o.Retrieve(context.Background(), "humidifier pad replacement",
		[]profile.DeviceType{profile.DeviceFurnace})
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}

	want := []profile.DeviceType{profile.DeviceHumidifier}
	if !reflect.DeepEqual(searcher.calls[0].deviceTypes, want) {
		t.Errorf("filter = %v, want %v", searcher.calls[0].deviceTypes, want)
	}
}

func TestRetrieveRerankOverfetchAndTruncate(t *testing.T) {
	cfg := retrievalConfig()
	cfg.RerankEnabled = true
	cfg.RerankTopN = 2

	searcher := &fakeSearcher{results: [][]knowledge.Passage{
		passages(0.9, 0.8, 0.7, 0.6),
	}}
	// Reranker prefers the last passage.
	scorer := &fakeScorer{scores: []float64{0.1, 0.2, 0.3, 0.9}}
	o := NewOrchestrator(searcher, cfg, 0.3, nil, WithReranker(scorer))

	result, err := o.Retrieve(context.Background(), "furnace filter size", nil)
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}

	if got := searcher.calls[0].topK; got != 6 {
		t.Errorf("fetch count = %d, want 3x target 6", got)
	}
	if len(result.Passages) != 2 {
		t.Fatalf("len = %d, want truncated to 2", len(result.Passages))
	}
	if result.Passages[0].ID != "d" {
		t.Errorf("top after rerank = %s, want d", result.Passages[0].ID)
	}
}

func TestRetrieveRerankFailureKeepsVectorOrder(t *testing.T) {
	cfg := retrievalConfig()
	cfg.RerankEnabled = true
	cfg.RerankTopN = 2

	searcher := &fakeSearcher{results: [][]knowledge.Passage{
		passages(0.9, 0.8, 0.7),
	}}
	scorer := &fakeScorer{err: errors.New("model unavailable")}
	o := NewOrchestrator(searcher, cfg, 0.3, nil, WithReranker(scorer))

	result, err := o.Retrieve(context.Background(), "furnace filter size", nil)
	if err != nil {
		t.Fatalf("Retrieve() = %v, rerank failure must not fail retrieval", err)
	}
	if scorer.calls != 1 {
		t.Errorf("scorer calls = %d, want 1", scorer.calls)
	}
	if len(result.Passages) != 2 || result.Passages[0].ID != "a" {
		t.Errorf("passages = %+v, want vector order truncated", result.Passages)
	}
	if !result.Sufficient {
		t.Error("Sufficient must be unaffected by rerank failure")
	}
}

func TestRetrieveRerankStableOnTies(t *testing.T) {
	cfg := retrievalConfig()
	cfg.RerankEnabled = true
	cfg.RerankTopN = 3

	searcher := &fakeSearcher{results: [][]knowledge.Passage{
		passages(0.9, 0.8, 0.7),
	}}
	scorer := &fakeScorer{scores: []float64{0.5, 0.5, 0.5}}
	o := NewOrchestrator(searcher, cfg, 0.3, nil, WithReranker(scorer))

	result, err := o.Retrieve(context.Background(), "furnace filter size", nil)
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}
	for i, wantID := range []string{"a", "b", "c"} {
		if result.Passages[i].ID != wantID {
			t.Errorf("passages[%d] = %s, want %s (stable tie order)", i, result.Passages[i].ID, wantID)
		}
	}
}

func TestRetrieveRerankInsufficientSkipsScoring(t *testing.T) {
	cfg := retrievalConfig()
	cfg.RerankEnabled = true
	cfg.RerankTopN = 2

	searcher := &fakeSearcher{results: [][]knowledge.Passage{passages(0.1)}}
	scorer := &fakeScorer{scores: []float64{0.99}}
	o := NewOrchestrator(searcher, cfg, 0.3, nil, WithReranker(scorer))

	result, err := o.Retrieve(context.Background(), "furnace filter size", nil)
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}
	if result.Sufficient {
		t.Error("Sufficient = true, want false: sufficiency is judged before re-ranking")
	}
	if scorer.calls != 0 {
		t.Errorf("scorer calls = %d, want 0 for insufficient result", scorer.calls)
	}
}

func TestRetrieveSearchError(t *testing.T) {
	wantErr := errors.New("index unavailable")
	searcher := &fakeSearcher{errs: []error{wantErr}}
	o := NewOrchestrator(searcher, retrievalConfig(), 0.3, nil)

	_, err := o.Retrieve(context.Background(), "anything", nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("Retrieve() = %v, want wrapped %v", err, wantErr)
	}
}

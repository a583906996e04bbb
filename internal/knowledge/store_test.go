package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/homewarden/homewarden/internal/profile"
)

// mockEmbedder implements ai.Embedder for testing.
type mockEmbedder struct {
	delay         time.Duration
	embedErr      error
	returnEmpty   bool
	embedding     []float32
	callCount     int
	lastInputText string
	lastOptions   any
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(r api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInputText = req.Input[0].Content[0].Text
	}
	m.lastOptions = req.Options

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.returnEmpty {
		return &ai.EmbedResponse{}, nil
	}

	embedding := m.embedding
	if embedding == nil {
		embedding = []float32{0.1, 0.2, 0.3}
	}
	return &ai.EmbedResponse{
		Embeddings: []*ai.Embedding{{Embedding: embedding}},
	}, nil
}

// fakeQuerier implements Querier in memory.
type fakeQuerier struct {
	upserts     []UpsertChunkParams
	searchRows  []ChunkRow
	searchErr   error
	lastSearch  SearchChunksParams
	countResult int64
	deleteCount int64
}

func (f *fakeQuerier) UpsertChunk(ctx context.Context, arg UpsertChunkParams) error {
	f.upserts = append(f.upserts, arg)
	return nil
}

func (f *fakeQuerier) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error) {
	f.lastSearch = arg
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchRows, nil
}

func (f *fakeQuerier) CountChunks(ctx context.Context, deviceType string) (int64, error) {
	return f.countResult, nil
}

func (f *fakeQuerier) DeleteChunksBySourceFile(ctx context.Context, sourceFile string) (int64, error) {
	return f.deleteCount, nil
}

func TestAddEmbedsAndUpserts(t *testing.T) {
	querier := &fakeQuerier{}
	embedder := &mockEmbedder{}
	store := NewStore(querier, embedder, nil)

	chunk := Chunk{
		ID:         "chunk-1",
		Content:    "Replace the furnace filter every 3 months.",
		SourceFile: "Furnace-OM9GFRC-02.pdf",
		DeviceType: profile.DeviceFurnace,
		Metadata:   map[string]string{"manufacturer": "Carrier"},
	}

	if err := store.Add(context.Background(), chunk); err != nil {
		t.Fatalf("Add() = %v", err)
	}

	if len(querier.upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(querier.upserts))
	}
	got := querier.upserts[0]
	if got.ID != "chunk-1" || got.DeviceType != "furnace" {
		t.Errorf("upsert params = %+v", got)
	}
	if embedder.lastInputText != chunk.Content {
		t.Errorf("embedded text = %q, want chunk content", embedder.lastInputText)
	}

	var metadata map[string]string
	if err := json.Unmarshal(got.Metadata, &metadata); err != nil {
		t.Fatalf("metadata not JSON: %v", err)
	}
	if metadata["manufacturer"] != "Carrier" {
		t.Errorf("metadata = %v", metadata)
	}
}

func TestAddEmbedderFailure(t *testing.T) {
	wantErr := errors.New("quota exceeded")
	store := NewStore(&fakeQuerier{}, &mockEmbedder{embedErr: wantErr}, nil)

	err := store.Add(context.Background(), Chunk{ID: "c", Content: "text"})
	if !errors.Is(err, wantErr) {
		t.Errorf("Add() = %v, want wrapped %v", err, wantErr)
	}
}

func TestAddEmptyEmbedding(t *testing.T) {
	store := NewStore(&fakeQuerier{}, &mockEmbedder{returnEmpty: true}, nil)

	err := store.Add(context.Background(), Chunk{ID: "c", Content: "text"})
	if !errors.Is(err, ErrEmptyEmbedding) {
		t.Errorf("Add() = %v, want ErrEmptyEmbedding", err)
	}
}

func TestSearchMapsRowsToPassages(t *testing.T) {
	querier := &fakeQuerier{
		searchRows: []ChunkRow{
			{
				ID:         "chunk-1",
				Content:    "Filter replacement instructions",
				SourceFile: "Furnace-OM9GFRC-02.pdf",
				DeviceType: "furnace",
				Metadata:   []byte(`{"manufacturer":"Carrier"}`),
				Similarity: 0.87,
			},
			{
				ID:         "chunk-2",
				Content:    "Thermostat schedule setup",
				SourceFile: "Thermostat-T6.pdf",
				DeviceType: "thermostat",
				Similarity: 0.61,
			},
		},
	}
	store := NewStore(querier, &mockEmbedder{}, nil)

	passages, err := store.Search(context.Background(), "how do I change the filter")
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}

	if len(passages) != 2 {
		t.Fatalf("len(passages) = %d, want 2", len(passages))
	}
	if passages[0].Score != 0.87 || passages[0].DeviceType != profile.DeviceFurnace {
		t.Errorf("passages[0] = %+v", passages[0])
	}
	if passages[0].Metadata["manufacturer"] != "Carrier" {
		t.Errorf("metadata = %v", passages[0].Metadata)
	}
}

func TestSearchAppliesOptions(t *testing.T) {
	querier := &fakeQuerier{}
	store := NewStore(querier, &mockEmbedder{}, nil)

	_, err := store.Search(context.Background(), "no heat",
		WithTopK(15),
		WithDeviceTypes([]profile.DeviceType{profile.DeviceFurnace, profile.DeviceThermostat}),
	)
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}

	if querier.lastSearch.ResultLimit != 15 {
		t.Errorf("ResultLimit = %d, want 15", querier.lastSearch.ResultLimit)
	}
	want := []string{"furnace", "thermostat"}
	got := querier.lastSearch.DeviceTypes
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("DeviceTypes = %v, want %v", got, want)
	}
}

func TestSearchDefaultsAreUnfiltered(t *testing.T) {
	querier := &fakeQuerier{}
	store := NewStore(querier, &mockEmbedder{}, nil)

	if _, err := store.Search(context.Background(), "anything"); err != nil {
		t.Fatalf("Search() = %v", err)
	}

	if len(querier.lastSearch.DeviceTypes) != 0 {
		t.Errorf("DeviceTypes = %v, want empty", querier.lastSearch.DeviceTypes)
	}
	if querier.lastSearch.ResultLimit != 5 {
		t.Errorf("ResultLimit = %d, want default 5", querier.lastSearch.ResultLimit)
	}
}

func TestSearchEmbedTimeout(t *testing.T) {
	store := NewStore(&fakeQuerier{}, &mockEmbedder{delay: 200 * time.Millisecond}, nil)

	_, err := store.Search(context.Background(), "query", WithTimeout(10*time.Millisecond))
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Search() = %v, want DeadlineExceeded", err)
	}
}

func TestSearchPassesEmbedOptions(t *testing.T) {
	embedder := &mockEmbedder{}
	type dimOpts struct{ Dim int }
	store := NewStore(&fakeQuerier{}, embedder, nil, WithEmbedOptions(dimOpts{Dim: 768}))

	if _, err := store.Search(context.Background(), "q"); err != nil {
		t.Fatalf("Search() = %v", err)
	}

	opts, ok := embedder.lastOptions.(dimOpts)
	if !ok || opts.Dim != 768 {
		t.Errorf("embed options = %+v", embedder.lastOptions)
	}
}

func TestSearchQuerierError(t *testing.T) {
	wantErr := errors.New("connection refused")
	store := NewStore(&fakeQuerier{searchErr: wantErr}, &mockEmbedder{}, nil)

	_, err := store.Search(context.Background(), "q")
	if !errors.Is(err, wantErr) {
		t.Errorf("Search() = %v, want wrapped %v", err, wantErr)
	}
}

func TestUnknownDeviceTypeMapsToOther(t *testing.T) {
	querier := &fakeQuerier{
		searchRows: []ChunkRow{{ID: "c", Content: "x", DeviceType: "gadget", Similarity: 0.5}},
	}
	store := NewStore(querier, &mockEmbedder{}, nil)

	passages, err := store.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if passages[0].DeviceType != profile.DeviceOther {
		t.Errorf("DeviceType = %q, want other", passages[0].DeviceType)
	}
}

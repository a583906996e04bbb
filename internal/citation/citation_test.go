package citation

import (
	"reflect"
	"strings"
	"testing"

	"github.com/homewarden/homewarden/internal/knowledge"
	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/retrieval"
)

func sufficientResult() retrieval.Result {
	return retrieval.Result{
		Sufficient: true,
		Passages: []knowledge.Passage{
			{
				Chunk: knowledge.Chunk{
					Content:    "Replace the filter with a 16x25x1 MERV 11.",
					SourceFile: "Furnace-OM9GFRC-02.pdf",
					DeviceType: profile.DeviceFurnace,
				},
				Score: 0.9,
			},
			{
				Chunk: knowledge.Chunk{
					Content:    "Set the heating schedule from the home screen.",
					SourceFile: "Thermostat-T6.pdf",
					DeviceType: profile.DeviceThermostat,
				},
				Score: 0.7,
			},
			{
				Chunk: knowledge.Chunk{
					Content:    "Flush the tank annually to remove sediment.",
					SourceFile: "WaterHeater-AO.pdf",
					DeviceType: profile.DeviceWaterHeater,
				},
				Score: 0.6,
			},
		},
	}
}

func TestResolveSourceNMarker(t *testing.T) {
	res := Resolve([]string{"Source 2"}, sufficientResult())

	if len(res.Citations) != 1 {
		t.Fatalf("citations = %d, want 1", len(res.Citations))
	}
	if res.Citations[0].Source != "Thermostat-T6.pdf" {
		t.Errorf("source = %q", res.Citations[0].Source)
	}
	if res.Citations[0].Device != "thermostat" {
		t.Errorf("device = %q", res.Citations[0].Device)
	}
	if len(res.Unresolved) != 0 {
		t.Errorf("unresolved = %v", res.Unresolved)
	}
}

func TestResolveSourceNVariants(t *testing.T) {
	for _, marker := range []string{"source 1", "[Source 1]", "Source 1: Furnace-OM9GFRC-02.pdf"} {
		res := Resolve([]string{marker}, sufficientResult())
		if len(res.Citations) != 1 || res.Citations[0].Source != "Furnace-OM9GFRC-02.pdf" {
			t.Errorf("Resolve(%q) = %+v, want furnace manual", marker, res)
		}
	}
}

func TestResolveOutOfRangeSourceDropped(t *testing.T) {
	// "Source 7" with only 3 passages is a hallucinated index.
	res := Resolve([]string{"Source 7"}, sufficientResult())

	if len(res.Citations) != 0 {
		t.Errorf("citations = %v, want none", res.Citations)
	}
	if !reflect.DeepEqual(res.Unresolved, []string{"Source 7"}) {
		t.Errorf("unresolved = %v, want [Source 7]", res.Unresolved)
	}
}

func TestResolveFileDevicePattern(t *testing.T) {
	res := Resolve([]string{"Thermostat-T6.pdf - thermostat"}, sufficientResult())

	if len(res.Citations) != 1 || res.Citations[0].Source != "Thermostat-T6.pdf" {
		t.Errorf("Resolve() = %+v", res)
	}
}

func TestResolveSubstringMatch(t *testing.T) {
	tests := []struct {
		marker string
		want   string
	}{
		{"Furnace-OM9GFRC-02.pdf", "Furnace-OM9GFRC-02.pdf"},
		{"waterheater-ao", "WaterHeater-AO.pdf"},
		{"According to WaterHeater-AO.pdf, flush the tank.", "WaterHeater-AO.pdf"},
	}

	for _, tt := range tests {
		res := Resolve([]string{tt.marker}, sufficientResult())
		if len(res.Citations) != 1 || res.Citations[0].Source != tt.want {
			t.Errorf("Resolve(%q) = %+v, want source %q", tt.marker, res, tt.want)
		}
	}
}

func TestResolveUnmatchedDropped(t *testing.T) {
	res := Resolve([]string{"HVAC-Bible-3rd-edition.pdf"}, sufficientResult())

	if len(res.Citations) != 0 {
		t.Errorf("citations = %v, want none", res.Citations)
	}
	if len(res.Unresolved) != 1 {
		t.Errorf("unresolved = %v, want the dropped marker", res.Unresolved)
	}
}

func TestResolveInsufficientResultYieldsNoCitations(t *testing.T) {
	res := Resolve([]string{"Source 1", "Furnace-OM9GFRC-02.pdf"}, retrieval.Result{Sufficient: false})

	if len(res.Citations) != 0 {
		t.Errorf("citations = %v, want none for insufficient retrieval", res.Citations)
	}
	if len(res.Unresolved) != 2 {
		t.Errorf("unresolved = %v, want both markers", res.Unresolved)
	}
}

func TestResolveDeduplicatesBySource(t *testing.T) {
	res := Resolve([]string{"Source 1", "Source 1", "Furnace-OM9GFRC-02.pdf"}, sufficientResult())

	if len(res.Citations) != 1 {
		t.Errorf("citations = %+v, want single deduplicated citation", res.Citations)
	}
}

func TestResolveMixedMarkers(t *testing.T) {
	res := Resolve([]string{"Source 1", "bogus.pdf", "Thermostat-T6.pdf - thermostat"}, sufficientResult())

	if len(res.Citations) != 2 {
		t.Fatalf("citations = %+v, want 2", res.Citations)
	}
	if res.Citations[0].Source != "Furnace-OM9GFRC-02.pdf" || res.Citations[1].Source != "Thermostat-T6.pdf" {
		t.Errorf("citations order = %+v", res.Citations)
	}
	if !reflect.DeepEqual(res.Unresolved, []string{"bogus.pdf"}) {
		t.Errorf("unresolved = %v", res.Unresolved)
	}
}

func TestResolveSkipsBlankMarkers(t *testing.T) {
	res := Resolve([]string{"", "   ", "Source 1"}, sufficientResult())

	if len(res.Citations) != 1 || len(res.Unresolved) != 0 {
		t.Errorf("Resolve() = %+v", res)
	}
}

func TestExcerptTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("sediment flush procedure ", 20)
	result := retrieval.Result{
		Sufficient: true,
		Passages: []knowledge.Passage{{
			Chunk: knowledge.Chunk{Content: long, SourceFile: "WaterHeater-AO.pdf"},
			Score: 0.9,
		}},
	}

	res := Resolve([]string{"Source 1"}, result)
	if len(res.Citations) != 1 {
		t.Fatal("expected one citation")
	}
	if len(res.Citations[0].Quote) > quoteLimit+len("…") {
		t.Errorf("quote length = %d, want <= %d", len(res.Citations[0].Quote), quoteLimit)
	}
	if !strings.HasSuffix(res.Citations[0].Quote, "…") {
		t.Errorf("quote should be marked truncated: %q", res.Citations[0].Quote)
	}
}

package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/homewarden/homewarden/internal/retrieval"
	"github.com/homewarden/homewarden/internal/risk"
)

func TestAskGroundedAnswer(t *testing.T) {
	ret := &stubRetriever{result: sufficientRetrieval()}
	gen := &stubGenerator{answer: AnswerOutput{
		Answer:    "Use a 16x25x1 MERV 11 filter.",
		RiskLevel: risk.LevelLow,
		Reasoning: "Filter replacement is safe for any homeowner.",
		Citations: []string{"Source 1"},
	}}
	asker := NewAsker(ret, gen, nil)

	got, err := asker.Ask(context.Background(), "What size filter for my furnace?", testProfile())
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if !got.Sufficient {
		t.Error("Sufficient = false, want true")
	}
	if got.Answer != "Use a 16x25x1 MERV 11 filter." {
		t.Errorf("Answer = %q", got.Answer)
	}
	if len(got.Citations) != 1 || got.Citations[0].Source != "Furnace-OM9GFRC-02.pdf" {
		t.Errorf("Citations = %+v", got.Citations)
	}
	if len(ret.calls) != 1 {
		t.Fatalf("retrieve calls = %d", len(ret.calls))
	}
	// Installed systems narrow detection.
	if len(ret.calls[0].profileTypes) == 0 {
		t.Error("profile device types not passed to retrieval")
	}
}

func TestAskDropsHallucinatedMarker(t *testing.T) {
	// "Source 7" when only 3 passages were retrieved must be dropped.
	ret := &stubRetriever{result: sufficientRetrieval()}
	gen := &stubGenerator{answer: AnswerOutput{
		Answer:    "answer",
		RiskLevel: risk.LevelLow,
		Citations: []string{"Source 1", "Source 7"},
	}}
	asker := NewAsker(ret, gen, nil)

	got, err := asker.Ask(context.Background(), "furnace filter", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Citations) != 1 {
		t.Errorf("Citations = %+v, want only Source 1 resolved", got.Citations)
	}
	if len(got.Unresolved) != 1 || got.Unresolved[0] != "Source 7" {
		t.Errorf("Unresolved = %v, want [Source 7]", got.Unresolved)
	}
}

func TestAskInsufficientEvidence(t *testing.T) {
	ret := &stubRetriever{result: retrieval.Result{Sufficient: false}}
	gen := &stubGenerator{}
	asker := NewAsker(ret, gen, nil)

	got, err := asker.Ask(context.Background(), "how do I service my geothermal loop?", nil)
	if err != nil {
		t.Fatal(err)
	}

	if got.Sufficient {
		t.Error("Sufficient = true, want false")
	}
	if len(got.Citations) != 0 {
		t.Errorf("Citations = %+v, want none", got.Citations)
	}
	if !strings.Contains(got.Answer, "can't answer") {
		t.Errorf("Answer = %q, want explicit cannot-answer text", got.Answer)
	}
	if gen.answerCalls != 0 {
		t.Errorf("generator called %d times despite insufficient evidence", gen.answerCalls)
	}
}

func TestAskInvalidRiskLevelDefaultsToMed(t *testing.T) {
	ret := &stubRetriever{result: sufficientRetrieval()}
	gen := &stubGenerator{answer: AnswerOutput{Answer: "a", RiskLevel: "SEVERE"}}
	asker := NewAsker(ret, gen, nil)

	got, err := asker.Ask(context.Background(), "q", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.RiskLevel != risk.LevelMed {
		t.Errorf("RiskLevel = %s, want MED", got.RiskLevel)
	}
}

func TestAskErrors(t *testing.T) {
	wantErr := errors.New("index down")

	t.Run("retrieval", func(t *testing.T) {
		asker := NewAsker(&stubRetriever{err: wantErr}, &stubGenerator{}, nil)
		if _, err := asker.Ask(context.Background(), "q", nil); !errors.Is(err, wantErr) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("generation", func(t *testing.T) {
		asker := NewAsker(&stubRetriever{result: sufficientRetrieval()},
			&stubGenerator{answerErr: wantErr}, nil)
		if _, err := asker.Ask(context.Background(), "q", nil); !errors.Is(err, wantErr) {
			t.Errorf("err = %v", err)
		}
	})
}

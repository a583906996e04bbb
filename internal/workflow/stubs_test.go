package workflow

import (
	"context"
	"time"

	"github.com/homewarden/homewarden/internal/knowledge"
	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/retrieval"
	"github.com/homewarden/homewarden/internal/risk"
	"github.com/homewarden/homewarden/internal/session"
)

// retrieveCall records one Retrieve invocation.
type retrieveCall struct {
	query        string
	profileTypes []profile.DeviceType
}

type stubRetriever struct {
	result retrieval.Result
	err    error
	calls  []retrieveCall
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, profileTypes []profile.DeviceType) (retrieval.Result, error) {
	s.calls = append(s.calls, retrieveCall{query: query, profileTypes: profileTypes})
	if s.err != nil {
		return retrieval.Result{}, s.err
	}
	return s.result, nil
}

// stubGenerator returns canned outputs and counts calls per method.
type stubGenerator struct {
	answer    AnswerOutput
	answerErr error

	followups    FollowupOutput
	followupsErr error

	diagnosis    DiagnosisOutput
	diagnosisErr error

	checklist    ChecklistOutput
	checklistErr error

	parts    PartsOutput
	partsErr error

	answerCalls    int
	followupCalls  int
	diagnosisCalls int
	checklistCalls int
	partsCalls     int
}

func (s *stubGenerator) Answer(ctx context.Context, prompt string) (AnswerOutput, error) {
	s.answerCalls++
	return s.answer, s.answerErr
}

func (s *stubGenerator) Followups(ctx context.Context, prompt string) (FollowupOutput, error) {
	s.followupCalls++
	return s.followups, s.followupsErr
}

func (s *stubGenerator) Diagnosis(ctx context.Context, prompt string) (DiagnosisOutput, error) {
	s.diagnosisCalls++
	return s.diagnosis, s.diagnosisErr
}

func (s *stubGenerator) Checklist(ctx context.Context, prompt string) (ChecklistOutput, error) {
	s.checklistCalls++
	return s.checklist, s.checklistErr
}

func (s *stubGenerator) Parts(ctx context.Context, prompt string) (PartsOutput, error) {
	s.partsCalls++
	return s.parts, s.partsErr
}

func passage(file string, device profile.DeviceType, content string, score float64) knowledge.Passage {
	return knowledge.Passage{
		Chunk: knowledge.Chunk{
			ID:         file + "-chunk",
			Content:    content,
			SourceFile: file,
			DeviceType: device,
		},
		Score: score,
	}
}

func sufficientRetrieval() retrieval.Result {
	return retrieval.Result{
		Sufficient: true,
		Passages: []knowledge.Passage{
			passage("Furnace-OM9GFRC-02.pdf", profile.DeviceFurnace,
				"Use a 16x25x1 MERV 11 filter. Replace every 1-3 months during heating season.", 0.91),
			passage("Thermostat-T6.pdf", profile.DeviceThermostat,
				"Hold the menu button for 5 seconds to enter setup.", 0.72),
			passage("HRV-Lifebreath.pdf", profile.DeviceHRV,
				"Vacuum the core twice a year.", 0.65),
		},
		FilterApplied: []profile.DeviceType{profile.DeviceFurnace},
	}
}

func testProfile() *profile.HouseProfile {
	return &profile.HouseProfile{
		Name:        "123 Main Street",
		YearBuilt:   1995,
		ClimateZone: profile.ClimateCold,
		HouseType:   profile.HouseSingleFamily,
		Systems: map[string]*profile.InstalledSystem{
			"furnace": {Manufacturer: "Carrier", Model: "OM9GFRC", FuelType: "gas", InstallYear: 2020},
			"hrv":     {Manufacturer: "Lifebreath"},
			"thermostat": nil,
		},
	}
}

// deterministicAssessor is the real classifier with no model layer:
// only the hazard registry fires.
func deterministicAssessor() Assessor {
	return risk.NewClassifier(nil, nil)
}

func newSessionStore() *session.Store {
	return session.NewStore(30*time.Minute, nil)
}

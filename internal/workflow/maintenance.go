package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/homewarden/homewarden/internal/log"
	"github.com/homewarden/homewarden/internal/profile"
)

// ErrNoProfile is returned when a maintenance plan is requested without
// a house profile; the planner has nothing to plan for otherwise.
var ErrNoProfile = errors.New("house profile required")

// seasonSpec drives the retrieval query and the checklist size for one
// season.
type seasonSpec struct {
	query       string
	targetItems int
}

// seasonSpecs reflects each season's maintenance priorities.
var seasonSpecs = map[profile.Season]seasonSpec{
	profile.SeasonSpring: {
		query:       "spring maintenance post-winter inspection air conditioning preparation outdoor drainage",
		targetItems: 10,
	},
	profile.SeasonSummer: {
		query:       "summer maintenance air conditioning cooling performance humidity control ventilation",
		targetItems: 8,
	},
	profile.SeasonFall: {
		query:       "fall maintenance winterization heating system inspection furnace filter gutters",
		targetItems: 12,
	},
	profile.SeasonWinter: {
		query:       "winter maintenance heating efficiency freeze prevention indoor air quality",
		targetItems: 10,
	},
}

// Planner generates seasonal maintenance checklists.
type Planner struct {
	retriever Retriever
	gen       Generator
	logger    log.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(retriever Retriever, gen Generator, logger log.Logger) *Planner {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Planner{
		retriever: retriever,
		gen:       gen,
		logger:    logger.With("component", "maintenance"),
	}
}

// Plan retrieves season-relevant documentation for the house's
// installed systems and generates a checklist. Insufficient retrieval
// yields the explicit cannot-plan result rather than an ungrounded
// checklist.
func (p *Planner) Plan(ctx context.Context, season profile.Season, prof *profile.HouseProfile) (PlanResult, error) {
	if prof == nil {
		return PlanResult{}, ErrNoProfile
	}
	spec, ok := seasonSpecs[season]
	if !ok {
		return PlanResult{}, fmt.Errorf("unknown season %q", season)
	}

	installed := prof.InstalledDeviceTypes()
	query := spec.query + " " + installedWords(installed)

	result, err := p.retriever.Retrieve(ctx, query, installed)
	if err != nil {
		return PlanResult{}, fmt.Errorf("retrieving maintenance docs: %w", err)
	}
	if !result.Sufficient {
		p.logger.Info("insufficient evidence for maintenance plan",
			"season", season,
			"systems", len(installed))
		return PlanResult{
			Season:      season,
			HouseName:   prof.Name,
			Items:       []ChecklistItem{},
			Markdown:    renderEmptyPlan(season, prof.Name),
			SourcesUsed: []string{},
			Sufficient:  false,
		}, nil
	}

	prompt := fmt.Sprintf(`Season: %s
House: %s (built %s, climate zone %s, %s)
Installed systems:
%s

Relevant documentation:
%s

Generate up to %d maintenance tasks for this season, grounded in the documentation above. Only include tasks for systems this house has.`,
		season,
		prof.Name,
		orDefault(yearString(prof.YearBuilt), "unknown"),
		prof.ClimateZone,
		prof.HouseType,
		orDefault(systemsSummary(prof, installed), "None listed"),
		formatContext(result.Passages),
		spec.targetItems)

	out, err := p.gen.Checklist(ctx, prompt)
	if err != nil {
		return PlanResult{}, fmt.Errorf("generating checklist: %w", err)
	}

	items := p.filterItems(out.Items, prof, spec.targetItems)

	plan := PlanResult{
		Season:      season,
		HouseName:   prof.Name,
		Items:       items,
		SourcesUsed: collectSources(items),
		Sufficient:  true,
	}
	plan.Markdown = renderPlan(plan)

	p.logger.Info("maintenance plan generated",
		"season", season,
		"items", len(items),
		"sources", len(plan.SourcesUsed))

	return plan, nil
}

// filterItems drops tasks for systems the house does not have and caps
// the list at the season's target size. Tasks with no or unrecognized
// device type are kept: general tasks (gutters, caulking) are valid.
func (p *Planner) filterItems(items []ChecklistItem, prof *profile.HouseProfile, target int) []ChecklistItem {
	kept := make([]ChecklistItem, 0, len(items))
	for _, item := range items {
		if item.DeviceType != "" {
			if dt, ok := profile.ParseDeviceType(item.DeviceType); ok && !prof.HasSystem(dt) {
				p.logger.Info("dropping task for uninstalled system",
					"device_type", item.DeviceType,
					"task", item.Task)
				continue
			}
		}
		kept = append(kept, item)
	}
	if target > 0 && len(kept) > target {
		kept = kept[:target]
	}
	return kept
}

// systemsSummary renders one line per installed system for the prompt.
func systemsSummary(prof *profile.HouseProfile, installed []profile.DeviceType) string {
	lines := make([]string, 0, len(installed))
	for _, dt := range installed {
		if line := prof.SystemSummary(dt); line != "" {
			lines = append(lines, "- "+line)
		}
	}
	return strings.Join(lines, "\n")
}

func installedWords(installed []profile.DeviceType) string {
	words := make([]string, len(installed))
	for i, dt := range installed {
		words[i] = deviceWords(dt)
	}
	return strings.Join(words, " ")
}

func collectSources[T any](items []T) []string {
	seen := make(map[string]bool)
	for _, item := range items {
		var doc string
		switch v := any(item).(type) {
		case ChecklistItem:
			doc = v.SourceDoc
		case PartRecommendation:
			doc = v.SourceDoc
		case DiagnosticStep:
			doc = v.SourceDoc
		}
		if doc != "" {
			seen[doc] = true
		}
	}
	sources := make([]string, 0, len(seen))
	for doc := range seen {
		sources = append(sources, doc)
	}
	sort.Strings(sources)
	return sources
}

func yearString(year int) string {
	if year == 0 {
		return ""
	}
	return fmt.Sprintf("%d", year)
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/homewarden/homewarden/internal/log"
	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/retrieval"
)

// ErrEmptyQuery is returned when a parts lookup has no query text.
var ErrEmptyQuery = errors.New("empty parts query")

// partsQuerySuffix augments the user's query with the vocabulary parts
// documentation uses, improving embedding recall.
const partsQuerySuffix = " filter size part number replacement interval consumable model specifications"

// insufficientPartsSummary is the explicit cannot-identify outcome.
const insufficientPartsSummary = "No parts could be identified: the indexed documentation " +
	"has nothing relevant enough for this query."

// PartsHelper identifies replacement parts and consumables. Single
// invocation, no session: users refine by re-querying with more detail.
type PartsHelper struct {
	retriever Retriever
	gen       Generator
	logger    log.Logger
}

// NewPartsHelper creates a PartsHelper.
func NewPartsHelper(retriever Retriever, gen Generator, logger log.Logger) *PartsHelper {
	if logger == nil {
		logger = log.NewNop()
	}
	return &PartsHelper{
		retriever: retriever,
		gen:       gen,
		logger:    logger.With("component", "parts"),
	}
}

// Lookup identifies parts for the query. Device resolution order:
// explicit device type, then types detected in the query, then every
// system in the house profile (broad queries like "what filters do I
// need?"). Missing information yields clarification questions alongside
// whatever partial recommendations can still be made.
func (h *PartsHelper) Lookup(ctx context.Context, query, deviceType string, prof *profile.HouseProfile) (PartsResult, error) {
	if strings.TrimSpace(query) == "" {
		return PartsResult{}, ErrEmptyQuery
	}

	devices := h.resolveDevices(query, deviceType, prof)

	// Device words are prepended so detection inside the orchestrator
	// applies them as the metadata filter.
	searchQuery := strings.TrimSpace(devicePrefix(devices) + query + partsQuerySuffix)

	result, err := h.retriever.Retrieve(ctx, searchQuery, devices)
	if err != nil {
		return PartsResult{}, fmt.Errorf("retrieving parts docs: %w", err)
	}
	if !result.Sufficient {
		h.logger.Info("insufficient evidence for parts lookup", "devices", devices)
		res := PartsResult{
			Parts:       []PartRecommendation{},
			Summary:     insufficientPartsSummary,
			SourcesUsed: []string{},
			Sufficient:  false,
		}
		res.Markdown = renderParts(res)
		return res, nil
	}

	out, err := h.gen.Parts(ctx, h.buildPrompt(query, devices, prof, result))
	if err != nil {
		return PartsResult{}, fmt.Errorf("generating parts list: %w", err)
	}

	parts := h.enforceConfidence(out.Parts)

	res := PartsResult{
		Parts:                  parts,
		ClarificationQuestions: out.ClarificationQuestions,
		Summary:                out.Summary,
		SourcesUsed:            collectSources(parts),
		HasGaps:                len(out.ClarificationQuestions) > 0,
		Sufficient:             true,
	}
	res.Markdown = renderParts(res)

	h.logger.Info("parts lookup complete",
		"parts", len(parts),
		"clarifications", len(out.ClarificationQuestions))

	return res, nil
}

// resolveDevices picks the device filter: explicit type, detected
// types, or all profile systems for broad queries.
func (h *PartsHelper) resolveDevices(query, deviceType string, prof *profile.HouseProfile) []profile.DeviceType {
	if deviceType != "" {
		if dt := normalizeDevice(deviceType); dt != "" {
			return []profile.DeviceType{dt}
		}
	}
	if detected := retrieval.DetectDeviceTypes(query); len(detected) > 0 {
		return detected
	}
	if prof != nil {
		return prof.InstalledDeviceTypes()
	}
	h.logger.Info("no devices resolved for parts query")
	return nil
}

func (h *PartsHelper) buildPrompt(query string, devices []profile.DeviceType, prof *profile.HouseProfile, result retrieval.Result) string {
	var detailBlocks []string
	for _, dt := range devices {
		if details := formatDeviceDetails(prof, dt); details != "" {
			detailBlocks = append(detailBlocks, fmt.Sprintf("**%s**:\n%s", dt, details))
		}
	}
	deviceDetails := strings.Join(detailBlocks, "\n\n")

	names := make([]string, len(devices))
	for i, dt := range devices {
		names[i] = string(dt)
	}

	return fmt.Sprintf(`<user_query>
%s
</user_query>

Target devices: %s

Device details from house profile:
%s

Relevant documentation:
%s

Identify the correct replacement parts, filters, and consumables based on the documentation above. Include part numbers and replacement intervals when available.`,
		query,
		orDefault(strings.Join(names, ", "), "Not specified"),
		orDefault(deviceDetails, "No device details available from house profile."),
		formatContext(result.Passages))
}

// enforceConfidence repairs recommendations that violate the
// confidence invariants: a confirmed part without a source document is
// downgraded to likely, and an uncertain part cannot carry a part
// number.
func (h *PartsHelper) enforceConfidence(parts []PartRecommendation) []PartRecommendation {
	for i := range parts {
		switch parts[i].Confidence {
		case ConfidenceConfirmed:
			if parts[i].SourceDoc == "" {
				h.logger.Warn("confirmed part without source, downgrading to likely",
					"part", parts[i].PartName)
				parts[i].Confidence = ConfidenceLikely
			}
		case ConfidenceUncertain:
			if parts[i].PartNumber != "" {
				h.logger.Warn("uncertain part carried a part number, stripping it",
					"part", parts[i].PartName)
				parts[i].PartNumber = ""
			}
		case ConfidenceLikely:
			// Nothing to repair.
		default:
			h.logger.Warn("unknown confidence level, marking uncertain",
				"part", parts[i].PartName,
				"confidence", parts[i].Confidence)
			parts[i].Confidence = ConfidenceUncertain
			parts[i].PartNumber = ""
		}
	}
	return parts
}

func devicePrefix(devices []profile.DeviceType) string {
	if len(devices) == 0 {
		return ""
	}
	words := make([]string, len(devices))
	for i, dt := range devices {
		words[i] = deviceWords(dt)
	}
	return strings.Join(words, " ") + " "
}

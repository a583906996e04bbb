package workflow

import (
	"fmt"
	"strings"

	"github.com/homewarden/homewarden/internal/knowledge"
	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/session"
)

// noDocsMessage is used when a prompt would otherwise carry an empty
// context block.
const noDocsMessage = "No documentation available."

// formatContext renders passages as the numbered source blocks the
// citation resolver recognizes:
//
//	[Source 1: Furnace-Manual.pdf (furnace)]
//	Replace filter every 3 months
func formatContext(passages []knowledge.Passage) string {
	if len(passages) == 0 {
		return noDocsMessage
	}
	parts := make([]string, len(passages))
	for i, p := range passages {
		device := string(p.DeviceType)
		if device == "" {
			device = "general"
		}
		parts[i] = fmt.Sprintf("[Source %d: %s (%s)]\n%s", i+1, p.SourceFile, device, p.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// formatDeviceDetails extracts one installed system's details from the
// profile for prompt context. Empty when the profile has no entry or no
// details for the device.
func formatDeviceDetails(prof *profile.HouseProfile, deviceType profile.DeviceType) string {
	if prof == nil || deviceType == "" {
		return ""
	}
	sys := prof.Systems[string(deviceType)]
	if sys == nil {
		return ""
	}
	var parts []string
	if sys.Manufacturer != "" {
		parts = append(parts, "Manufacturer: "+sys.Manufacturer)
	}
	if sys.Model != "" {
		parts = append(parts, "Model: "+sys.Model)
	}
	if sys.FuelType != "" {
		parts = append(parts, "Fuel: "+sys.FuelType)
	}
	if sys.InstallYear != 0 {
		parts = append(parts, fmt.Sprintf("Installed: %d", sys.InstallYear))
	}
	return strings.Join(parts, "\n")
}

// formatAnswers renders the followup Q&A exchange for the diagnosis
// prompt, pairing each answer with its question text.
func formatAnswers(questions []session.FollowupQuestion, answers []session.FollowupAnswer) string {
	if len(answers) == 0 {
		return "No follow-up answers provided."
	}
	byID := make(map[string]string, len(questions))
	for _, q := range questions {
		byID[q.ID] = q.Question
	}
	parts := make([]string, 0, len(answers))
	for _, a := range answers {
		question := byID[a.QuestionID]
		if question == "" {
			question = "Question " + a.QuestionID
		}
		parts = append(parts, fmt.Sprintf("Q: %s\nA: %s", question, a.Answer))
	}
	return strings.Join(parts, "\n\n")
}

// normalizeDevice maps free-form device input to a known device type.
// Unrecognized inputs become DeviceOther rather than failing: the user
// may name a system the registry does not track.
func normalizeDevice(raw string) profile.DeviceType {
	normalized := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(raw)), " ", "_")
	if dt, ok := profile.ParseDeviceType(normalized); ok {
		return dt
	}
	if normalized == "" {
		return ""
	}
	return profile.DeviceOther
}

// deviceWords turns a device type into query-friendly words
// ("water_heater" -> "water heater").
func deviceWords(dt profile.DeviceType) string {
	return strings.ReplaceAll(string(dt), "_", " ")
}

// orDefault returns s, or fallback when s is blank.
func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

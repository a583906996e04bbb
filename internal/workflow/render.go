package workflow

import (
	"fmt"
	"strings"

	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/risk"
)

// renderDiagnosis formats a completed diagnosis as markdown: summary,
// numbered steps with risk tags, professional guidance, sources footer.
func renderDiagnosis(deviceType, symptom string, res DiagnosisResult) string {
	var b strings.Builder

	b.WriteString("# Troubleshooting Diagnosis\n")
	fmt.Fprintf(&b, "**Device**: %s\n", orDefault(deviceType, "Unknown"))
	fmt.Fprintf(&b, "**Symptom**: %s\n\n", orDefault(symptom, "Not specified"))

	if res.OverallRiskLevel != "" {
		fmt.Fprintf(&b, "**Risk Level**: %s\n\n", res.OverallRiskLevel)
	}

	if res.DiagnosisSummary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(res.DiagnosisSummary)
		b.WriteString("\n\n")
	}

	if len(res.Steps) > 0 {
		b.WriteString("## Diagnostic Steps\n\n")
		for _, step := range res.Steps {
			fmt.Fprintf(&b, "### Step %d%s\n\n", step.StepNumber, riskTag(step.RiskLevel))
			fmt.Fprintf(&b, "**Do**: %s\n", step.Instruction)
			fmt.Fprintf(&b, "**Expected**: %s\n", step.ExpectedOutcome)
			fmt.Fprintf(&b, "**If not resolved**: %s\n", step.IfNotResolved)
			if step.SourceDoc != "" {
				fmt.Fprintf(&b, "*Source: %s*\n", step.SourceDoc)
			}
			if step.RequiresProfessional {
				b.WriteString("**This step requires a licensed professional.**\n")
			}
			b.WriteString("\n")
		}
	}

	if res.WhenToCallProfessional != "" {
		b.WriteString("---\n\n## When to Call a Professional\n\n")
		b.WriteString(res.WhenToCallProfessional)
		b.WriteString("\n\n")
	}

	if sources := collectSources(res.Steps); len(sources) > 0 {
		fmt.Fprintf(&b, "---\n*Sources: %s*\n", strings.Join(sources, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}

func riskTag(level risk.Level) string {
	switch level {
	case risk.LevelHigh:
		return " [HIGH RISK - Professional Required]"
	case risk.LevelMed:
		return " [Medium Risk]"
	default:
		return ""
	}
}

// renderPlan formats a maintenance plan as checkbox markdown grouped by
// system, copy-paste friendly for a notes app.
func renderPlan(plan PlanResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Maintenance Plan\n## %s\n\n", titleCase(string(plan.Season)), plan.HouseName)

	groups, order := groupBy(plan.Items, func(item ChecklistItem) string { return item.DeviceType })
	for _, device := range order {
		label := "General"
		if device != "" {
			label = titleCase(strings.ReplaceAll(device, "_", " "))
		}
		fmt.Fprintf(&b, "### %s\n\n", label)

		for _, item := range groups[device] {
			fmt.Fprintf(&b, "- [ ] %s", item.Task)
			if item.Priority == "high" {
				b.WriteString(" **(high priority)**")
			}
			b.WriteString("\n")
			if item.Frequency != "" {
				fmt.Fprintf(&b, "  - Frequency: %s\n", item.Frequency)
			}
			if item.EstimatedTime != "" {
				fmt.Fprintf(&b, "  - Time: %s\n", item.EstimatedTime)
			}
			if item.Notes != "" {
				fmt.Fprintf(&b, "  - %s\n", item.Notes)
			}
			if item.SourceDoc != "" {
				fmt.Fprintf(&b, "  - *Source: %s*\n", item.SourceDoc)
			}
		}
		b.WriteString("\n")
	}

	if len(plan.SourcesUsed) > 0 {
		fmt.Fprintf(&b, "---\n*Sources: %s*\n", strings.Join(plan.SourcesUsed, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderEmptyPlan(season profile.Season, houseName string) string {
	return fmt.Sprintf(
		"# %s Maintenance Plan\n## %s\n\nNo plan could be generated: the indexed documentation "+
			"has nothing relevant for this season and these systems.",
		titleCase(string(season)), houseName)
}

// renderParts formats parts recommendations grouped by device with
// confidence badges and a Missing Information section.
func renderParts(res PartsResult) string {
	var b strings.Builder

	b.WriteString("# Parts & Consumables\n")
	if res.Summary != "" {
		b.WriteString("\n" + res.Summary + "\n\n")
	}

	if len(res.Parts) > 0 {
		groups, order := groupBy(res.Parts, func(p PartRecommendation) string { return p.DeviceType })
		for _, device := range order {
			fmt.Fprintf(&b, "## %s\n\n", titleCase(strings.ReplaceAll(device, "_", " ")))

			for _, part := range groups[device] {
				fmt.Fprintf(&b, "### %s %s\n\n", part.PartName, confidenceBadge(part.Confidence))
				if part.PartNumber != "" {
					fmt.Fprintf(&b, "- **Part/Size**: %s\n", part.PartNumber)
				}
				if part.DeviceModel != "" {
					fmt.Fprintf(&b, "- **For model**: %s\n", part.DeviceModel)
				}
				fmt.Fprintf(&b, "- **Description**: %s\n", part.Description)
				if part.ReplacementInterval != "" {
					fmt.Fprintf(&b, "- **Replace**: %s\n", part.ReplacementInterval)
				}
				if part.WhereToBuy != "" {
					fmt.Fprintf(&b, "- **Where to buy**: %s\n", part.WhereToBuy)
				}
				if part.SourceDoc != "" {
					fmt.Fprintf(&b, "- *Source: %s*\n", part.SourceDoc)
				}
				if part.Notes != "" {
					fmt.Fprintf(&b, "- Note: %s\n", part.Notes)
				}
				b.WriteString("\n")
			}
		}
	} else {
		b.WriteString("\nNo parts identified from available documentation.\n\n")
	}

	if len(res.ClarificationQuestions) > 0 {
		b.WriteString("## Missing Information\n\n")
		b.WriteString("The following information would help identify parts more precisely:\n\n")
		for _, q := range res.ClarificationQuestions {
			fmt.Fprintf(&b, "- **%s**\n  _%s_\n", q.Question, q.Reason)
		}
		b.WriteString("\n")
	}

	if len(res.SourcesUsed) > 0 {
		fmt.Fprintf(&b, "---\n*Sources: %s*\n", strings.Join(res.SourcesUsed, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}

func confidenceBadge(c ConfidenceLevel) string {
	switch c {
	case ConfidenceConfirmed:
		return "[CONFIRMED]"
	case ConfidenceLikely:
		return "[LIKELY]"
	case ConfidenceUncertain:
		return "[UNCERTAIN]"
	default:
		return ""
	}
}

// groupBy buckets items by key, preserving first-seen key order.
func groupBy[T any](items []T, key func(T) string) (map[string][]T, []string) {
	groups := make(map[string][]T)
	var order []string
	for _, item := range items {
		k := key(item)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], item)
	}
	return groups, order
}

// titleCase uppercases the first letter of each word. Device labels and
// season names are ASCII.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

package risk

import "strings"

// Category is a named class of physically dangerous issue with its own
// detection rules. Adding a hazard is additive data, not a new code path.
type Category struct {
	// Name tags the category in assessments and audit logs.
	Name string

	// Keywords fire the category when any one appears in the text.
	Keywords []string

	// CoOccurrence groups fire when every term of one group appears
	// anywhere in the text. The terms are individually benign
	// ("burning", "electrical panel") but jointly indicate a hazard.
	CoOccurrence [][]string

	// Professional is who to refer the user to.
	Professional string

	// Message is the safety alert shown on a stop.
	Message string
}

// categories is the static hazard registry, checked in order.
var categories = []Category{
	{
		Name: "gas_leak",
		Keywords: []string{
			"gas smell",
			"smell gas",
			"smells like gas",
			"rotten egg",
			"sulfur smell",
			"gas leak",
			"leaking gas",
			"hissing gas",
			"gas odor",
			"natural gas smell",
		},
		CoOccurrence: [][]string{
			{"hissing", "gas line"},
			{"smell", "sulfur"},
		},
		Professional: "licensed gas technician or your gas utility company",
		Message: "SAFETY ALERT: A gas smell or suspected gas leak is a serious emergency. " +
			"Do NOT attempt any DIY troubleshooting. Leave the area immediately, " +
			"do not operate any electrical switches, and call your gas utility's " +
			"emergency line or 911 from outside your home.",
	},
	{
		Name: "carbon_monoxide",
		Keywords: []string{
			"co detector",
			"co alarm",
			"carbon monoxide alarm",
			"carbon monoxide detector",
			"co going off",
			"co beeping",
			"carbon monoxide beeping",
			"co poisoning",
		},
		CoOccurrence: [][]string{
			{"headache", "furnace running"},
			{"dizzy", "furnace"},
		},
		Professional: "licensed HVAC technician and your fire department",
		Message: "SAFETY ALERT: A carbon monoxide alarm indicates a potentially " +
			"life-threatening situation. Evacuate all people and pets immediately. " +
			"Call 911 or your fire department from outside. Do NOT re-enter the " +
			"home until emergency services have cleared it.",
	},
	{
		Name: "electrical_hazard",
		Keywords: []string{
			"sparking",
			"electrical spark",
			"burning smell electrical",
			"melting wire",
			"exposed wire",
			"wire sparking",
			"outlet sparking",
			"breaker keeps tripping",
			"electrical fire",
			"got shocked",
			"electrical shock",
			"buzzing outlet",
			"hot outlet",
			"scorched outlet",
			"burning outlet",
		},
		CoOccurrence: [][]string{
			{"burning", "electrical panel"},
			{"burning", "outlet"},
			{"smoke", "breaker"},
			{"melting", "wire"},
		},
		Professional: "licensed electrician",
		Message: "SAFETY ALERT: Electrical hazards can cause fires, injury, or death. " +
			"Do NOT touch any sparking or damaged electrical components. Turn off " +
			"the breaker for the affected circuit if you can safely do so. " +
			"Call a licensed electrician immediately.",
	},
	{
		Name: "structural",
		Keywords: []string{
			"foundation crack",
			"load bearing wall",
			"sagging floor",
			"ceiling collapse",
			"structural crack",
			"beam damage",
			"joist cracking",
		},
		CoOccurrence: [][]string{
			{"crack", "foundation"},
			{"sagging", "beam"},
		},
		Professional: "licensed structural engineer or general contractor",
		Message: "SAFETY ALERT: Structural issues require professional assessment. " +
			"Do NOT attempt any structural modifications or repairs yourself. " +
			"Avoid the affected area if there are signs of active damage.",
	},
	{
		Name: "utility_valve",
		Keywords: []string{
			"gas valve stuck",
			"main gas valve",
			"gas shutoff",
			"water main break",
			"burst pipe flooding",
			"main water valve stuck",
		},
		CoOccurrence: [][]string{
			{"flooding", "pipe"},
		},
		Professional: "licensed plumber or gas technician",
		Message: "SAFETY ALERT: Main utility valve issues should be handled by " +
			"a professional. If you're experiencing active flooding or can " +
			"smell gas, call emergency services.",
	},
}

// Categories returns the hazard registry.
func Categories() []Category {
	return categories
}

// matchCategories returns every category fired by the text. Matching is
// case-insensitive substring for direct keywords; a co-occurrence group
// fires only when all of its terms are present (non-adjacent is fine).
func matchCategories(text string) []Category {
	lower := strings.ToLower(text)

	var fired []Category
	for _, cat := range categories {
		if categoryMatches(cat, lower) {
			fired = append(fired, cat)
		}
	}
	return fired
}

func categoryMatches(cat Category, lower string) bool {
	for _, kw := range cat.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, group := range cat.CoOccurrence {
		if allPresent(lower, group) {
			return true
		}
	}
	return false
}

func allPresent(text string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return len(terms) > 0
}

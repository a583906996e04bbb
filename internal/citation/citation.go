// Package citation grounds generated source markers in actually
// retrieved passages. Markers that cannot be traced back to a passage
// from the same retrieval call never reach the user; they are reported
// in the Unresolved list so callers and tests can see why.
package citation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/homewarden/homewarden/internal/retrieval"
)

// Citation is a grounded reference to a retrieved passage.
type Citation struct {
	// Source is the source document file name.
	Source string `json:"source"`

	// Device is the device type of the source document, empty when the
	// chunk carried none.
	Device string `json:"device,omitempty"`

	// Quote is a short excerpt from the passage backing the citation.
	Quote string `json:"quote,omitempty"`
}

// Resolution is the outcome of resolving a set of markers.
type Resolution struct {
	// Citations are the markers that matched a retrieved passage, in
	// marker order, deduplicated by source document.
	Citations []Citation

	// Unresolved are the markers that matched nothing and were dropped.
	Unresolved []string
}

// sourceNPattern matches "Source 3", "source 3", "[Source 3]" and
// similar index references into the numbered context block.
var sourceNPattern = regexp.MustCompile(`(?i)\bsource\s+(\d+)\b`)

const quoteLimit = 160

// Resolve maps generated markers to the passages of one retrieval call.
// Matching per marker, first hit wins:
//
//  1. "Source N" index into the passage list (1-based, as numbered in
//     the generation context)
//  2. "<file> - <device>" pattern
//  3. case-insensitive substring of a passage's source file name
//
// An insufficient retrieval yields zero citations by definition: there
// are no passages a marker could be grounded in.
func Resolve(markers []string, result retrieval.Result) Resolution {
	if !result.Sufficient || len(result.Passages) == 0 {
		return Resolution{Unresolved: compactMarkers(markers)}
	}

	var res Resolution
	seen := make(map[string]bool)

	for _, marker := range markers {
		marker = strings.TrimSpace(marker)
		if marker == "" {
			continue
		}

		idx, ok := matchPassage(marker, result)
		if !ok {
			res.Unresolved = append(res.Unresolved, marker)
			continue
		}

		p := result.Passages[idx]
		if seen[p.SourceFile] {
			continue
		}
		seen[p.SourceFile] = true

		res.Citations = append(res.Citations, Citation{
			Source: p.SourceFile,
			Device: string(p.DeviceType),
			Quote:  excerpt(p.Content),
		})
	}

	return res
}

func matchPassage(marker string, result retrieval.Result) (int, bool) {
	// (a) literal "Source N" reference.
	if m := sourceNPattern.FindStringSubmatch(marker); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= len(result.Passages) {
			return n - 1, true
		}
		// An out-of-range index is a hallucinated reference; do not
		// fall through to looser matching on the digits.
		return 0, false
	}

	lower := strings.ToLower(marker)

	// (b) "<file> - <device>" pattern.
	if file, _, found := strings.Cut(lower, " - "); found {
		file = strings.TrimSpace(file)
		for i, p := range result.Passages {
			if strings.EqualFold(file, p.SourceFile) {
				return i, true
			}
		}
	}

	// (c) substring of a passage's source file name.
	for i, p := range result.Passages {
		source := strings.ToLower(p.SourceFile)
		if strings.Contains(source, lower) || strings.Contains(lower, source) {
			return i, true
		}
	}

	return 0, false
}

func excerpt(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= quoteLimit {
		return content
	}
	cut := content[:quoteLimit]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

func compactMarkers(markers []string) []string {
	var out []string
	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

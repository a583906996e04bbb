// Package risk classifies home-equipment issues for DIY safety. A
// deterministic hazard registry (layer 1) always runs first; a
// model-based assessor (layer 2) refines the level for nuanced phrasing
// but can never downgrade a deterministic verdict.
package risk

// Level is the risk classification for following advice.
type Level string

const (
	// LevelLow marks tasks safe for any homeowner.
	LevelLow Level = "LOW"

	// LevelMed marks tasks requiring some caution or basic skills.
	LevelMed Level = "MED"

	// LevelHigh marks gas, electrical, structural, or otherwise
	// safety-critical work.
	LevelHigh Level = "HIGH"
)

var levelRank = map[Level]int{
	LevelLow:  0,
	LevelMed:  1,
	LevelHigh: 2,
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// Max returns the higher of two levels. Unknown levels rank lowest.
func Max(a, b Level) Level {
	if levelRank[b] > levelRank[a] {
		return b
	}
	return a
}

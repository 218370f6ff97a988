// Package classify scores free text against domain vocabularies to decide
// which specialized rule subsets should be active for a scan.
package classify

import (
	"strings"

	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/catalog"
)

// A domain must reach this score before it beats the general mode.
const selectionThreshold = 3

// Bonus added per strong indicator phrase ("patient", "plaintiff", ...).
const indicatorBonus = 2

// Classifier selects a detection mode for a piece of text.
type Classifier struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// New creates a classifier backed by the shared pattern catalog.
func New(cat *catalog.Catalog, logger *zap.Logger) *Classifier {
	return &Classifier{catalog: cat, logger: logger}
}

// Classify counts domain-vocabulary occurrences per specialized mode, adds a
// fixed bonus for strong indicator phrases, and selects the highest-scoring
// domain if its score meets the threshold. Ties and low scores resolve to the
// general mode.
func (c *Classifier) Classify(text string) catalog.DetectionMode {
	lower := strings.ToLower(text)

	best := catalog.ModeGeneral
	bestScore := 0
	tied := false

	for _, mode := range []catalog.DetectionMode{
		catalog.ModeMedical,
		catalog.ModeLegal,
		catalog.ModeFinancial,
		catalog.ModeEducational,
	} {
		score := c.score(lower, mode)
		switch {
		case score > bestScore:
			best = mode
			bestScore = score
			tied = false
		case score == bestScore && score > 0:
			tied = true
		}
	}

	// No clear winner means no specialization: ties resolve to general.
	if bestScore < selectionThreshold || tied {
		return catalog.ModeGeneral
	}

	c.logger.Debug("Detection mode classified",
		zap.String("mode", string(best)),
		zap.Int("score", bestScore),
	)
	return best
}

func (c *Classifier) score(lower string, mode catalog.DetectionMode) int {
	score := 0
	for _, term := range c.catalog.Vocabulary(mode) {
		score += strings.Count(lower, term)
	}
	for _, phrase := range c.catalog.Indicators(mode) {
		if strings.Contains(lower, phrase) {
			score += indicatorBonus
		}
	}
	return score
}

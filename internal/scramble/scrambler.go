// Package scramble produces a masked rendition of scanned text plus an
// ephemeral reversible mapping, and restores originals from that mapping. The
// mapping is session-scoped and must never be persisted durably.
package scramble

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/detect"
)

var placeholderPattern = regexp.MustCompile(`\{\{([A-Z0-9_]+)\}\}`)

// Options controls masked-value generation.
type Options struct {
	// PreserveFormat selects fixed literal shapes per type instead of
	// deterministic hash tokens.
	PreserveFormat bool
	// Seed feeds deterministic token generation. Scoped to one session so
	// pseudonyms are stable within it and differ across sessions.
	Seed string
}

// Metadata describes one scramble call.
type Metadata struct {
	DetectionCount int       `json:"detection_count"`
	PreserveFormat bool      `json:"preserve_format"`
	ScrambledAt    time.Time `json:"scrambled_at"`
}

// Result is the output of one scramble call. Mapping is owned exclusively by
// the requesting session and is discarded once the protect / external-call /
// restore round trip completes.
type Result struct {
	MaskedText string             `json:"masked_text"`
	Detections []detect.Detection `json:"detections"`
	Mapping    map[string]string  `json:"-"`
	Metadata   Metadata           `json:"metadata"`
}

// Scrambler splices placeholders over detected spans.
type Scrambler struct {
	logger *zap.Logger
}

// New creates a scrambler.
func New(logger *zap.Logger) *Scrambler {
	return &Scrambler{logger: logger}
}

// Scramble walks deduplicated detections in ascending order, splicing a
// "{{TYPE_N}}" placeholder over each span. Substitution changes the string
// length, so a running offset shifts every subsequent position by the
// cumulative delta. Detections must be non-overlapping and sorted by start.
func (s *Scrambler) Scramble(text string, detections []detect.Detection, opts Options) *Result {
	result := &Result{
		MaskedText: text,
		Detections: make([]detect.Detection, len(detections)),
		Mapping:    make(map[string]string, len(detections)),
		Metadata: Metadata{
			DetectionCount: len(detections),
			PreserveFormat: opts.PreserveFormat,
			ScrambledAt:    time.Now().UTC(),
		},
	}
	copy(result.Detections, detections)

	offset := 0
	for i := range result.Detections {
		d := &result.Detections[i]
		key := fmt.Sprintf("%s_%d", strings.ToUpper(string(d.Type)), i+1)
		placeholder := "{{" + key + "}}"

		result.Mapping[key] = d.Value
		d.MaskedValue = MaskValue(d.Type, d.Value, opts.PreserveFormat, opts.Seed)

		start := d.Start + offset
		end := d.End + offset
		result.MaskedText = result.MaskedText[:start] + placeholder + result.MaskedText[end:]
		offset += len(placeholder) - (d.End - d.Start)
	}

	s.logger.Debug("Text scrambled",
		zap.Int("detections", len(detections)),
		zap.Bool("preserve_format", opts.PreserveFormat),
	)
	return result
}

// Unscramble substitutes every "{{key}}" occurrence with its mapped original.
// Keys are unique, so order does not matter. A key absent from the mapping is
// left verbatim and counted as a miss; surrounding valid content is never
// thrown away.
func Unscramble(masked string, mapping map[string]string) (string, int) {
	misses := 0
	restored := placeholderPattern.ReplaceAllStringFunc(masked, func(token string) string {
		key := token[2 : len(token)-2]
		if original, ok := mapping[key]; ok {
			return original
		}
		misses++
		return token
	})
	return restored, misses
}

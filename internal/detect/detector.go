// Package detect runs the active pattern rules over text and scores each
// match. Scanning is pure: the pattern catalog is immutable, so independent
// documents can be scanned in parallel.
package detect

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/catalog"
)

const (
	// Context snippet captured around each match, per side.
	contextWindow = 100
	// Wider window used by the keyword-gated term pass.
	gatedWindow = 200

	baseConfidence     = 0.70
	keywordBonus       = 0.10
	modeAgreementBonus = 0.05
)

// Contact identifiers found near these terms are escalated from low to medium
// risk. This is a best-effort keyword heuristic, not a compliance
// determination.
var escalationTerms = []string{"patient", "client", "defendant", "plaintiff"}

// Known mailbox providers; membership raises email confidence.
var knownEmailDomains = map[string]bool{
	"gmail.com": true, "yahoo.com": true, "outlook.com": true,
	"hotmail.com": true, "icloud.com": true, "aol.com": true,
	"proton.me": true, "protonmail.com": true, "example.com": true,
}

// Options configures a Scanner.
type Options struct {
	// Timeout bounds one scan. Zero means no bound. On expiry the scan
	// returns whatever was found so far with Truncated set.
	Timeout time.Duration
	// DisabledTypes removes specific information types from scanning.
	DisabledTypes []string
}

// Scanner runs detection rules over text.
type Scanner struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.RWMutex
	disabled map[catalog.InformationType]bool
}

// NewScanner creates a scanner over the shared catalog.
func NewScanner(cat *catalog.Catalog, opts Options, logger *zap.Logger) *Scanner {
	s := &Scanner{
		catalog: cat,
		logger:  logger,
		timeout: opts.Timeout,
	}
	s.SetDisabledTypes(opts.DisabledTypes)
	return s
}

// SetDisabledTypes replaces the set of types excluded from scanning. Safe to
// call while scans are in flight; in-flight scans may see either set.
func (s *Scanner) SetDisabledTypes(types []string) {
	disabled := make(map[catalog.InformationType]bool, len(types))
	for _, t := range types {
		disabled[catalog.InformationType(t)] = true
	}
	s.mu.Lock()
	s.disabled = disabled
	s.mu.Unlock()
}

func (s *Scanner) isDisabled(t catalog.InformationType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disabled[t]
}

// Scan runs every rule in the always-active general set plus the specialized
// sets implied by mode, then the keyword-gated term pass. The returned
// detections are raw and may overlap; callers resolve them with Deduplicate.
func (s *Scanner) Scan(ctx context.Context, text string, mode catalog.DetectionMode) (ScanResult, error) {
	if !utf8.ValidString(text) {
		return ScanResult{}, ErrInvalidInput
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result := ScanResult{Mode: mode}
	lower := strings.ToLower(text)

sets:
	for _, set := range s.catalog.ActiveSets(mode) {
		for _, rule := range s.catalog.RuleSet(set) {
			if ctx.Err() != nil {
				result.Truncated = true
				break sets
			}
			if s.isDisabled(rule.Type) {
				continue
			}
			result.Detections = append(result.Detections,
				s.matchRule(text, lower, rule, set, mode)...)
		}
	}

	if !result.Truncated {
		gated, truncated := s.gatedPass(ctx, text, lower)
		result.Detections = append(result.Detections, gated...)
		result.Truncated = truncated
	}

	s.logger.Debug("Scan completed",
		zap.String("mode", string(mode)),
		zap.Int("raw_detections", len(result.Detections)),
		zap.Bool("truncated", result.Truncated),
	)
	return result, nil
}

func (s *Scanner) matchRule(text, lower string, rule catalog.Rule, set, mode catalog.DetectionMode) []Detection {
	var out []Detection
	for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		value := text[start:end]
		snippet := window(text, start, end, contextWindow)
		snippetLower := strings.ToLower(snippet)

		nearKeyword := containsAny(snippetLower, rule.Keywords)
		if rule.RequireKeyword && !nearKeyword {
			continue
		}

		conf := s.confidence(rule, set, mode, value, nearKeyword)
		if conf <= 0 {
			continue
		}

		risk := s.catalog.Risk(rule.Type)
		if risk == catalog.RiskLow && containsAny(snippetLower, escalationTerms) {
			risk = catalog.RiskMedium
		}

		out = append(out, Detection{
			Type:       rule.Type,
			Value:      value,
			Start:      start,
			End:        end,
			Confidence: conf,
			Context:    snippet,
			RiskLevel:  risk,
			Frameworks: s.catalog.Frameworks(rule.Type),
			Method:     MethodPattern,
		})
	}
	return out
}

// gatedPass detects enumerable terms (drug names) only when bracketed by
// qualifying context terms within the wider window.
func (s *Scanner) gatedPass(ctx context.Context, text, lower string) ([]Detection, bool) {
	var out []Detection
	for _, term := range s.catalog.GatedTerms() {
		if ctx.Err() != nil {
			return out, true
		}
		if s.isDisabled(term.Type) {
			continue
		}
		for _, loc := range termOccurrences(lower, term.Term) {
			start, end := loc[0], loc[1]
			snippet := strings.ToLower(window(text, start, end, gatedWindow))
			if !containsAny(snippet, term.ContextTerms) {
				continue
			}
			risk := s.catalog.Risk(term.Type)
			out = append(out, Detection{
				Type:       term.Type,
				Value:      text[start:end],
				Start:      start,
				End:        end,
				Confidence: baseConfidence + keywordBonus,
				Context:    window(text, start, end, contextWindow),
				RiskLevel:  risk,
				Frameworks: s.catalog.Frameworks(term.Type),
				Method:     MethodGatedTerm,
			})
		}
	}
	return out, false
}

// confidence starts from the baseline and applies type-specific adjustments.
func (s *Scanner) confidence(rule catalog.Rule, set, mode catalog.DetectionMode, value string, nearKeyword bool) float64 {
	c := baseConfidence

	switch rule.Type {
	case catalog.TypeCreditCard:
		digits := digitsOnly(value)
		switch {
		case luhnValid(digits):
			c = 0.98
		case len(digits) >= 13 && len(digits) <= 19:
			// Plausible length but failing checksum: still reported,
			// just less certain.
			c = 0.85
		default:
			return 0
		}
	case catalog.TypeNationalID:
		if !ssnPlausible(digitsOnly(value)) {
			c = 0.60
			break
		}
		c = 0.85
		if strings.ContainsAny(value, "- ") {
			c += 0.10
		}
	case catalog.TypeEmail:
		if at := strings.LastIndexByte(value, '@'); at >= 0 &&
			knownEmailDomains[strings.ToLower(value[at+1:])] {
			c = 0.90
		} else {
			c = 0.75
		}
	case catalog.TypeRoutingNumber:
		if abaValid(digitsOnly(value)) {
			c = 0.95
		} else {
			c = 0.60
		}
	case catalog.TypeDEANumber:
		if deaValid(value) {
			c = 0.95
		} else {
			c = 0.75
		}
	case catalog.TypeIPAddress:
		if !ipValid(value) {
			return 0
		}
		c = 0.80
	case catalog.TypeAPIKey, catalog.TypeAccessToken:
		c = 0.90
	}

	if nearKeyword {
		c += keywordBonus
	}
	if mode != catalog.ModeGeneral && set == mode {
		c += modeAgreementBonus
	}

	if c > 1.0 {
		c = 1.0
	}
	return c
}

// window clamps a [start-size, end+size) byte range to the text bounds.
func window(text string, start, end, size int) string {
	from := start - size
	if from < 0 {
		from = 0
	}
	to := end + size
	if to > len(text) {
		to = len(text)
	}
	return text[from:to]
}

func containsAny(haystack string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

// termOccurrences finds whole-word occurrences of term in lower.
func termOccurrences(lower, term string) [][2]int {
	var locs [][2]int
	for i := 0; ; {
		j := strings.Index(lower[i:], term)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(term)
		if wordBoundary(lower, start, end) {
			locs = append(locs, [2]int{start, end})
		}
		i = end
	}
	return locs
}

func wordBoundary(s string, start, end int) bool {
	if start > 0 && isWordByte(s[start-1]) {
		return false
	}
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

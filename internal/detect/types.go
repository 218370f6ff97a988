package detect

import (
	"errors"

	"github.com/dataveil/dataveil/internal/catalog"
)

// ErrInvalidInput is returned when the scanned text is not valid UTF-8. The
// scan fails closed: no partial detections are produced.
var ErrInvalidInput = errors.New("detect: input text is not valid UTF-8")

// Detection is a single sensitive span found in scanned text. It is transient:
// it is consumed by the scrambler or the audit recorder and then discarded.
// Value never reaches durable storage or logs.
type Detection struct {
	Type        catalog.InformationType       `json:"information_type"`
	Value       string                        `json:"-"`
	Start       int                           `json:"start"`
	End         int                           `json:"end"`
	Confidence  float64                       `json:"confidence"`
	Context     string                        `json:"-"`
	RiskLevel   catalog.RiskLevel             `json:"risk_level"`
	Frameworks  []catalog.ComplianceFramework `json:"compliance_frameworks"`
	MaskedValue string                        `json:"masked_value,omitempty"`
	Method      string                        `json:"detection_method"`
}

// Detection methods.
const (
	MethodPattern   = "pattern"
	MethodGatedTerm = "gated_term"
)

// ScanResult is the output of one scan over one text buffer.
type ScanResult struct {
	Detections []Detection           `json:"detections"`
	Mode       catalog.DetectionMode `json:"mode"`
	Truncated  bool                  `json:"truncated"`
}

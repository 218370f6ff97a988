// Package engine is the protection engine facade: scan, scramble, unscramble,
// audit, retention, deletion requests, and reporting behind one surface.
// Detection and scrambling are pure and CPU-bound; the only blocking I/O here
// is the audit write and the mapping store round trip.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/audit"
	"github.com/dataveil/dataveil/internal/catalog"
	"github.com/dataveil/dataveil/internal/classify"
	"github.com/dataveil/dataveil/internal/detect"
	"github.com/dataveil/dataveil/internal/mappings"
	"github.com/dataveil/dataveil/internal/scramble"
)

// Audit write retry policy. Persistence is never a precondition for
// protection to work, so failures are retried briefly and then surfaced as
// recoverable.
const (
	auditRetries      = 3
	auditRetryBackoff = 100 * time.Millisecond
)

// Metrics are operator-visible counters.
type Metrics struct {
	ScansTotal         int64 `json:"scans_total"`
	ScansTruncated     int64 `json:"scans_truncated"`
	MappingMisses      int64 `json:"mapping_misses"`
	AuditWriteFailures int64 `json:"audit_write_failures"`
}

// ScrambleParams controls one protect call. The protection mode (off /
// everything / high-risk-only) is decided by the caller's endpoint metadata,
// never inferred here.
type ScrambleParams struct {
	SessionID      string
	Mode           string
	AutoDetect     bool
	PreserveFormat bool
	HighRiskOnly   bool
}

// ScrambleOutput is the protect half of a round trip. The mapping itself
// stays in the session-scoped store; callers hold only the opaque token.
type ScrambleOutput struct {
	MaskedText   string             `json:"masked_text"`
	MappingToken string             `json:"mapping_token"`
	Detections   []detect.Detection `json:"detections"`
	Truncated    bool               `json:"truncated"`
}

// Engine wires the detection pipeline to the scramble and audit paths.
type Engine struct {
	catalog    *catalog.Catalog
	classifier *classify.Classifier
	scanner    *detect.Scanner
	scrambler  *scramble.Scrambler
	mappings   mappings.Store
	store      audit.Store
	recorder   *audit.Recorder
	sweeper    *audit.Sweeper
	processor  *audit.Processor
	reports    *audit.ReportGenerator
	logger     *zap.Logger

	scansTotal         atomic.Int64
	scansTruncated     atomic.Int64
	mappingMisses      atomic.Int64
	auditWriteFailures atomic.Int64
}

// Deps are the engine's collaborators, constructed by the caller.
type Deps struct {
	Catalog    *catalog.Catalog
	Classifier *classify.Classifier
	Scanner    *detect.Scanner
	Scrambler  *scramble.Scrambler
	Mappings   mappings.Store
	Store      audit.Store
	Recorder   *audit.Recorder
	Sweeper    *audit.Sweeper
	Processor  *audit.Processor
	Reports    *audit.ReportGenerator
}

// New assembles the engine.
func New(deps Deps, logger *zap.Logger) *Engine {
	return &Engine{
		catalog:    deps.Catalog,
		classifier: deps.Classifier,
		scanner:    deps.Scanner,
		scrambler:  deps.Scrambler,
		mappings:   deps.Mappings,
		store:      deps.Store,
		recorder:   deps.Recorder,
		sweeper:    deps.Sweeper,
		processor:  deps.Processor,
		reports:    deps.Reports,
		logger:     logger,
	}
}

// Scan detects sensitive spans in text. With autoDetect the detection mode is
// classified from the text itself; otherwise mode is used as given. The result
// is deduplicated: intervals never overlap.
func (e *Engine) Scan(ctx context.Context, text, mode string, autoDetect bool) (*detect.ScanResult, error) {
	detectionMode := catalog.ParseMode(mode)
	if autoDetect && mode == "" {
		detectionMode = e.classifier.Classify(text)
	}

	result, err := e.scanner.Scan(ctx, text, detectionMode)
	if err != nil {
		return nil, err
	}

	e.scansTotal.Add(1)
	if result.Truncated {
		e.scansTruncated.Add(1)
	}

	result.Detections = detect.Deduplicate(result.Detections)
	return &result, nil
}

// Scramble runs detection plus deduplication, splices placeholders, and parks
// the reversible mapping in the session-scoped store. The caller gets back the
// masked text and an opaque token redeemable only by the same session.
func (e *Engine) Scramble(ctx context.Context, text string, params ScrambleParams) (*ScrambleOutput, error) {
	if params.SessionID == "" {
		return nil, fmt.Errorf("scramble requires a session ID")
	}

	scan, err := e.Scan(ctx, text, params.Mode, params.AutoDetect)
	if err != nil {
		return nil, err
	}

	detections := scan.Detections
	if params.HighRiskOnly {
		kept := detections[:0]
		for _, d := range detections {
			if d.RiskLevel == catalog.RiskHigh {
				kept = append(kept, d)
			}
		}
		detections = kept
	}

	result := e.scrambler.Scramble(text, detections, scramble.Options{
		PreserveFormat: params.PreserveFormat,
		Seed:           params.SessionID,
	})

	token := ""
	if len(result.Mapping) > 0 {
		token, err = e.mappings.Save(ctx, params.SessionID, result.Mapping)
		if err != nil {
			return nil, fmt.Errorf("failed to store mapping: %w", err)
		}
	}

	return &ScrambleOutput{
		MaskedText:   result.MaskedText,
		MappingToken: token,
		Detections:   result.Detections,
		Truncated:    scan.Truncated,
	}, nil
}

// Unscramble restores masked text from a session's mapping token and discards
// the mapping, completing the round trip. Unknown placeholder keys are left
// verbatim and counted; surrounding valid content is never dropped.
func (e *Engine) Unscramble(ctx context.Context, maskedText, sessionID, token string) (string, error) {
	mapping, err := e.mappings.Redeem(ctx, sessionID, token)
	if err != nil {
		return "", err
	}

	restored, misses := scramble.Unscramble(maskedText, mapping)
	if misses > 0 {
		e.mappingMisses.Add(int64(misses))
		e.logger.Warn("Placeholders missing from mapping",
			zap.Int("misses", misses),
			zap.String("token", token),
		)
	}

	if err := e.mappings.Delete(ctx, sessionID, token); err != nil {
		e.logger.Warn("Failed to discard mapping", zap.Error(err))
	}
	return restored, nil
}

// Record persists one detection's audit record, retrying transient failures
// with backoff. A final failure is recoverable: protection results remain
// valid without the audit row.
func (e *Engine) Record(ctx context.Context, d detect.Detection, meta audit.RecordMeta) (*audit.DetectionRecord, error) {
	var rec *audit.DetectionRecord
	err := e.withAuditRetry(ctx, func() error {
		var recordErr error
		rec, recordErr = e.recorder.Record(ctx, d, meta)
		return recordErr
	})
	return rec, err
}

// BatchRecord persists a document's detections atomically, with the same
// retry policy as Record.
func (e *Engine) BatchRecord(ctx context.Context, detections []detect.Detection, meta audit.RecordMeta) ([]*audit.DetectionRecord, error) {
	var recs []*audit.DetectionRecord
	err := e.withAuditRetry(ctx, func() error {
		var recordErr error
		recs, recordErr = e.recorder.BatchRecord(ctx, detections, meta)
		return recordErr
	})
	return recs, err
}

func (e *Engine) withAuditRetry(ctx context.Context, write func() error) error {
	var err error
	for attempt := 0; attempt < auditRetries; attempt++ {
		if err = write(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(auditRetryBackoff << attempt):
			continue
		}
		break
	}
	e.auditWriteFailures.Add(1)
	return err
}

// ActiveRecords lists non-deleted audit records, optionally scoped to a user.
func (e *Engine) ActiveRecords(ctx context.Context, userID string, limit int) ([]audit.DetectionRecord, error) {
	if e.store == nil {
		return nil, fmt.Errorf("audit store is not configured")
	}
	return e.store.ActiveRecords(ctx, userID, limit)
}

// Sweep runs one retention sweep immediately.
func (e *Engine) Sweep(ctx context.Context) (audit.SweepSummary, error) {
	if e.sweeper == nil {
		return audit.SweepSummary{}, fmt.Errorf("audit store is not configured")
	}
	return e.sweeper.Sweep(ctx)
}

// SubmitDeletionRequest files a regulator-driven deletion request.
func (e *Engine) SubmitDeletionRequest(ctx context.Context, params audit.SubmitParams) (*audit.DeletionRequest, error) {
	if e.processor == nil {
		return nil, fmt.Errorf("audit store is not configured")
	}
	return e.processor.Submit(ctx, params)
}

// DeletionRequests exposes the request processor for fulfillment workflows.
// Nil when the deployment runs without an audit store.
func (e *Engine) DeletionRequests() *audit.Processor {
	return e.processor
}

// GenerateReport builds a compliance report for one framework and window.
func (e *Engine) GenerateReport(ctx context.Context, framework catalog.ComplianceFramework, start, end time.Time, generatedBy string) (*audit.ComplianceReport, error) {
	if e.reports == nil {
		return nil, fmt.Errorf("audit store is not configured")
	}
	return e.reports.Generate(ctx, framework, start, end, generatedBy)
}

// Metrics returns a snapshot of the engine counters.
func (e *Engine) Metrics() Metrics {
	return Metrics{
		ScansTotal:         e.scansTotal.Load(),
		ScansTruncated:     e.scansTruncated.Load(),
		MappingMisses:      e.mappingMisses.Load(),
		AuditWriteFailures: e.auditWriteFailures.Load(),
	}
}

package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/catalog"
	"github.com/dataveil/dataveil/internal/detect"
)

// Notifier receives high-risk detection events. Implementations must not
// block; the recorder calls it inline on the write path.
type Notifier interface {
	NotifyHighRisk(rec *DetectionRecord)
}

// RecordMeta carries the caller-supplied context for an audit write.
type RecordMeta struct {
	UserID       string
	DocumentID   string
	CollectionID string
	Mode         catalog.DetectionMode
}

// Recorder turns transient detections into persisted, hashed audit records.
// The cleartext value never reaches the store: only sha256 hashes of the value
// and its context are written.
type Recorder struct {
	store    Store
	policies *PolicyTable
	notifier Notifier
	logger   *zap.Logger
	enabled  bool
}

// NewRecorder creates a recorder. A nil notifier disables high-risk
// notification delivery but still marks records as notified-eligible.
func NewRecorder(store Store, policies *PolicyTable, notifier Notifier, enabled bool, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:    store,
		policies: policies,
		notifier: notifier,
		logger:   logger,
		enabled:  enabled,
	}
}

// Record persists one detection's audit record.
func (r *Recorder) Record(ctx context.Context, d detect.Detection, meta RecordMeta) (*DetectionRecord, error) {
	if !r.enabled {
		return nil, nil
	}

	rec := r.build(d, meta)
	if err := r.store.InsertRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("audit write failed: %w", err)
	}

	r.notify(rec)
	r.logger.Debug("Detection recorded",
		zap.String("detection_id", rec.DetectionID),
		zap.String("information_type", rec.InformationType),
		zap.String("risk_level", rec.RiskLevel),
	)
	return rec, nil
}

// BatchRecord persists all of a document's detections in one transaction, so
// the audit trail is atomic.
func (r *Recorder) BatchRecord(ctx context.Context, detections []detect.Detection, meta RecordMeta) ([]*DetectionRecord, error) {
	if !r.enabled || len(detections) == 0 {
		return nil, nil
	}

	recs := make([]*DetectionRecord, 0, len(detections))
	for _, d := range detections {
		recs = append(recs, r.build(d, meta))
	}

	if err := r.store.InsertRecords(ctx, recs); err != nil {
		return nil, fmt.Errorf("audit batch write failed: %w", err)
	}

	for _, rec := range recs {
		r.notify(rec)
	}
	r.logger.Info("Audit trail recorded",
		zap.Int("records", len(recs)),
		zap.String("document_id", meta.DocumentID),
	)
	return recs, nil
}

func (r *Recorder) build(d detect.Detection, meta RecordMeta) *DetectionRecord {
	now := time.Now().UTC()

	frameworks := make([]string, len(d.Frameworks))
	for i, fw := range d.Frameworks {
		frameworks[i] = string(fw)
	}

	rec := &DetectionRecord{
		DetectionID:     uuid.NewString(),
		UserID:          meta.UserID,
		InformationType: string(d.Type),
		RiskLevel:       string(d.RiskLevel),
		ConfidenceScore: int(d.Confidence * 100),
		StartOffset:     d.Start,
		EndOffset:       d.End,
		ContextHash:     hashValue(d.Context),
		ValueHash:       hashValue(d.Value),
		Frameworks:      frameworks,
		DetectionMode:   string(meta.Mode),
		DetectedAt:      now,
		ExpiresAt:       r.policies.Expiry(now, d.Frameworks, d.Type),
		Notified:        d.RiskLevel == catalog.RiskHigh,
	}
	if meta.DocumentID != "" {
		rec.DocumentID = &meta.DocumentID
	}
	if meta.CollectionID != "" {
		rec.CollectionID = &meta.CollectionID
	}
	return rec
}

func (r *Recorder) notify(rec *DetectionRecord) {
	if rec.Notified && r.notifier != nil {
		r.notifier.NotifyHighRisk(rec)
	}
}

func hashValue(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/catalog"
	"github.com/dataveil/dataveil/internal/detect"
)

type captureNotifier struct {
	records []*DetectionRecord
}

func (n *captureNotifier) NotifyHighRisk(rec *DetectionRecord) {
	n.records = append(n.records, rec)
}

func ssnDetection() detect.Detection {
	return detect.Detection{
		Type:       catalog.TypeNationalID,
		Value:      "123-45-6789",
		Start:      10,
		End:        21,
		Confidence: 0.95,
		Context:    "My SSN is 123-45-6789, please keep it safe",
		RiskLevel:  catalog.RiskHigh,
		Frameworks: []catalog.ComplianceFramework{catalog.FrameworkGDPR, catalog.FrameworkGLBA},
		Method:     detect.MethodPattern,
	}
}

func TestRecordStoresHashesOnly(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder(store, NewPolicyTable(nil), nil, true, zap.NewNop())

	d := ssnDetection()
	rec, err := r.Record(context.Background(), d, RecordMeta{UserID: "user-1", Mode: catalog.ModeGeneral})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if rec.ValueHash == d.Value || strings.Contains(rec.ValueHash, "6789") {
		t.Errorf("ValueHash %q leaks the cleartext", rec.ValueHash)
	}
	if len(rec.ValueHash) != 64 || len(rec.ContextHash) != 64 {
		t.Errorf("hashes are not sha256 hex: value %d chars, context %d chars", len(rec.ValueHash), len(rec.ContextHash))
	}
	if rec.ConfidenceScore != 95 {
		t.Errorf("ConfidenceScore = %d, want 95", rec.ConfidenceScore)
	}
	if rec.StartOffset != 10 || rec.EndOffset != 21 {
		t.Errorf("offsets = [%d, %d), want [10, 21)", rec.StartOffset, rec.EndOffset)
	}
	if !rec.ExpiresAt.After(rec.DetectedAt) {
		t.Errorf("ExpiresAt %v not after DetectedAt %v", rec.ExpiresAt, rec.DetectedAt)
	}

	stored, ok := store.records[rec.DetectionID]
	if !ok {
		t.Fatal("record not persisted")
	}
	if stored.ValueHash != rec.ValueHash {
		t.Error("persisted hash differs")
	}
}

func TestRecordExpiryUsesLongestFramework(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder(store, NewPolicyTable(nil), nil, true, zap.NewNop())

	rec, err := r.Record(context.Background(), ssnDetection(), RecordMeta{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	// GDPR holds three years, GLBA seven; GLBA must win.
	want := rec.DetectedAt.AddDate(0, 0, 2555)
	if !rec.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", rec.ExpiresAt, want)
	}
}

func TestRecordNotifiesHighRisk(t *testing.T) {
	store := newFakeStore()
	notifier := &captureNotifier{}
	r := NewRecorder(store, NewPolicyTable(nil), notifier, true, zap.NewNop())
	ctx := context.Background()

	if _, err := r.Record(ctx, ssnDetection(), RecordMeta{UserID: "user-1"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(notifier.records) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.records))
	}

	low := ssnDetection()
	low.Type = catalog.TypeEmail
	low.RiskLevel = catalog.RiskLow
	if _, err := r.Record(ctx, low, RecordMeta{UserID: "user-1"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(notifier.records) != 1 {
		t.Errorf("low-risk detection triggered a notification")
	}
}

func TestBatchRecordIsAllOrNothing(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder(store, NewPolicyTable(nil), nil, true, zap.NewNop())
	ctx := context.Background()

	detections := []detect.Detection{ssnDetection(), ssnDetection()}
	recs, err := r.BatchRecord(ctx, detections, RecordMeta{UserID: "user-1", DocumentID: "doc-9"})
	if err != nil {
		t.Fatalf("BatchRecord: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.DocumentID == nil || *rec.DocumentID != "doc-9" {
			t.Errorf("DocumentID = %v, want doc-9", rec.DocumentID)
		}
	}

	store.insertErr = context.DeadlineExceeded
	if _, err := r.BatchRecord(ctx, detections, RecordMeta{UserID: "user-1"}); err == nil {
		t.Fatal("BatchRecord succeeded despite store failure")
	}
}

func TestDisabledRecorderIsInert(t *testing.T) {
	r := NewRecorder(nil, NewPolicyTable(nil), nil, false, zap.NewNop())

	rec, err := r.Record(context.Background(), ssnDetection(), RecordMeta{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec != nil {
		t.Errorf("disabled recorder returned a record: %+v", rec)
	}
}

func TestReportGeneration(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder(store, NewPolicyTable(nil), nil, true, zap.NewNop())
	g := NewReportGenerator(store, zap.NewNop())
	ctx := context.Background()

	if _, err := r.Record(ctx, ssnDetection(), RecordMeta{UserID: "user-1", Mode: catalog.ModeGeneral}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	start := time.Now().UTC().Add(-time.Hour)
	end := time.Now().UTC().Add(time.Hour)

	report, err := g.Generate(ctx, catalog.FrameworkGDPR, start, end, "compliance-officer")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report.TotalDetections != 1 {
		t.Errorf("TotalDetections = %d, want 1", report.TotalDetections)
	}
	if report.HighRiskDetections != 1 {
		t.Errorf("HighRiskDetections = %d, want 1", report.HighRiskDetections)
	}
	if report.ByType[string(catalog.TypeNationalID)] != 1 {
		t.Errorf("ByType = %v", report.ByType)
	}
	if report.ReportID == "" || report.GeneratedBy != "compliance-officer" {
		t.Errorf("report metadata incomplete: %+v", report)
	}

	if _, err := g.Generate(ctx, catalog.FrameworkGDPR, end, start, "x"); err == nil {
		t.Error("inverted window accepted")
	}
}

func TestReportCountsDeletionsByDeletionTime(t *testing.T) {
	store := newFakeStore()
	g := NewReportGenerator(store, zap.NewNop())
	ctx := context.Background()

	now := time.Now().UTC()
	deleted := now.Add(-time.Hour)

	// Detected years before the report window, swept inside it.
	store.records["old"] = &DetectionRecord{
		DetectionID:     "old",
		UserID:          "u1",
		InformationType: string(catalog.TypeEmail),
		RiskLevel:       string(catalog.RiskLow),
		Frameworks:      []string{string(catalog.FrameworkGDPR)},
		DetectedAt:      now.AddDate(-3, 0, 0),
		ExpiresAt:       now.AddDate(-1, 0, 0),
		DeletedAt:       &deleted,
	}

	report, err := g.Generate(ctx, catalog.FrameworkGDPR, now.Add(-24*time.Hour), now, "compliance-officer")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report.RecordsDeleted != 1 {
		t.Errorf("RecordsDeleted = %d, want 1 for a record swept inside the window", report.RecordsDeleted)
	}
	if report.TotalDetections != 0 {
		t.Errorf("TotalDetections = %d, want 0: detection predates the window", report.TotalDetections)
	}
}

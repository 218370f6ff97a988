package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/catalog"
)

func expiredRecord(id, userID string, fw catalog.ComplianceFramework, expiredFor time.Duration) *DetectionRecord {
	now := time.Now().UTC()
	return &DetectionRecord{
		DetectionID:     id,
		UserID:          userID,
		InformationType: string(catalog.TypeEmail),
		RiskLevel:       string(catalog.RiskLow),
		Frameworks:      []string{string(fw)},
		DetectedAt:      now.Add(-expiredFor - 365*24*time.Hour),
		ExpiresAt:       now.Add(-expiredFor),
	}
}

func TestSweepDeletesOnlyPastGrace(t *testing.T) {
	store := newFakeStore()
	policies := NewPolicyTable(nil)
	s := NewSweeper(store, policies, nil, "@hourly", nil, zap.NewNop())
	ctx := context.Background()

	// Expired 40 days ago: past the 30-day grace, must go.
	store.records["gone"] = expiredRecord("gone", "u1", catalog.FrameworkGDPR, 40*24*time.Hour)
	// Expired 10 days ago: still inside grace, must stay.
	store.records["graced"] = expiredRecord("graced", "u1", catalog.FrameworkGDPR, 10*24*time.Hour)
	// Not expired at all.
	active := expiredRecord("active", "u1", catalog.FrameworkGDPR, 0)
	active.ExpiresAt = time.Now().UTC().AddDate(1, 0, 0)
	store.records["active"] = active

	summary, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if summary.TotalDeleted != 1 {
		t.Errorf("TotalDeleted = %d, want 1", summary.TotalDeleted)
	}
	if summary.ByFramework[catalog.FrameworkGDPR] != 1 {
		t.Errorf("ByFramework = %v, want one GDPR deletion", summary.ByFramework)
	}
	if store.records["gone"].DeletedAt == nil {
		t.Error("record past grace was not soft-deleted")
	}
	if store.records["graced"].DeletedAt != nil {
		t.Error("record inside grace was deleted")
	}
	if store.records["active"].DeletedAt != nil {
		t.Error("unexpired record was deleted")
	}
}

func TestSweepIsRerunSafe(t *testing.T) {
	store := newFakeStore()
	s := NewSweeper(store, NewPolicyTable(nil), nil, "@hourly", nil, zap.NewNop())
	ctx := context.Background()

	store.records["gone"] = expiredRecord("gone", "u1", catalog.FrameworkGDPR, 40*24*time.Hour)

	first, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("first Sweep: %v", err)
	}
	if first.TotalDeleted != 1 {
		t.Fatalf("first TotalDeleted = %d, want 1", first.TotalDeleted)
	}

	second, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if second.TotalDeleted != 0 {
		t.Errorf("second TotalDeleted = %d, want 0", second.TotalDeleted)
	}
}

type recordingArchiver struct {
	archived []DetectionRecord
	err      error
}

func (a *recordingArchiver) Archive(_ context.Context, recs []DetectionRecord) error {
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, recs...)
	return nil
}

func TestSweepArchivesBeforeDelete(t *testing.T) {
	store := newFakeStore()
	archiver := &recordingArchiver{}
	s := NewSweeper(store, NewPolicyTable(nil), archiver, "@hourly", nil, zap.NewNop())
	ctx := context.Background()

	store.records["gone"] = expiredRecord("gone", "u1", catalog.FrameworkHIPAA, 40*24*time.Hour)

	if _, err := s.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(archiver.archived) != 1 || archiver.archived[0].DetectionID != "gone" {
		t.Errorf("archived = %+v, want the swept record", archiver.archived)
	}
}

func TestSweepArchivesEveryDueRecord(t *testing.T) {
	store := newFakeStore()
	archiver := &recordingArchiver{}
	s := NewSweeper(store, NewPolicyTable(nil), archiver, "@hourly", nil, zap.NewNop())
	ctx := context.Background()

	// More due records than one listing page holds, plus enough fresh
	// records to fill a newest-first page on their own. Every due record
	// must still reach the archive.
	for i := 0; i < 120; i++ {
		id := fmt.Sprintf("due-%d", i)
		store.records[id] = expiredRecord(id, "u1", catalog.FrameworkGDPR, 40*24*time.Hour)
	}
	now := time.Now().UTC()
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("fresh-%d", i)
		rec := expiredRecord(id, "u1", catalog.FrameworkGDPR, 0)
		rec.DetectedAt = now
		rec.ExpiresAt = now.AddDate(1, 0, 0)
		store.records[id] = rec
	}

	summary, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if summary.TotalDeleted != 120 {
		t.Errorf("TotalDeleted = %d, want 120", summary.TotalDeleted)
	}
	if len(archiver.archived) != summary.TotalDeleted {
		t.Errorf("archived %d records but deleted %d; every deleted record needs an archive copy",
			len(archiver.archived), summary.TotalDeleted)
	}
}

func TestSweepAbortsWhenArchiveFails(t *testing.T) {
	store := newFakeStore()
	archiver := &recordingArchiver{err: errors.New("disk full")}
	s := NewSweeper(store, NewPolicyTable(nil), archiver, "@hourly", nil, zap.NewNop())
	ctx := context.Background()

	store.records["gone"] = expiredRecord("gone", "u1", catalog.FrameworkHIPAA, 40*24*time.Hour)

	if _, err := s.Sweep(ctx); err == nil {
		t.Fatal("Sweep succeeded despite archive failure")
	}
	if store.records["gone"].DeletedAt != nil {
		t.Error("record deleted even though its archive copy failed")
	}
}

func TestScheduledTickChecksOverdueRequests(t *testing.T) {
	store := newFakeStore()
	escalations := make(chan Escalation, 4)
	p := NewProcessor(store, escalations, zap.NewNop())
	s := NewSweeper(store, NewPolicyTable(nil), nil, "@hourly", nil, zap.NewNop())
	s.TrackOverdue(p)

	overdue := &DeletionRequest{
		RequestID:   "req-overdue",
		RequestType: RequestTypeErasure,
		Requester:   "dpo@example.org",
		Scope:       "all_records",
		Status:      RequestPending,
		RequestedAt: time.Now().UTC().Add(-40 * 24 * time.Hour),
		DeadlineAt:  time.Now().UTC().Add(-10 * 24 * time.Hour),
	}
	if err := store.InsertDeletionRequest(context.Background(), overdue); err != nil {
		t.Fatalf("insert: %v", err)
	}

	s.runScheduled()

	select {
	case esc := <-escalations:
		if esc.Request.RequestID != "req-overdue" {
			t.Errorf("escalation for %s, want req-overdue", esc.Request.RequestID)
		}
	default:
		t.Error("scheduled tick did not escalate the overdue request")
	}
}

func TestSweepEmitsSummaryEvent(t *testing.T) {
	store := newFakeStore()
	events := make(chan SweepSummary, 1)
	s := NewSweeper(store, NewPolicyTable(nil), nil, "@hourly", events, zap.NewNop())
	ctx := context.Background()

	store.records["gone"] = expiredRecord("gone", "u1", catalog.FrameworkGDPR, 40*24*time.Hour)

	if _, err := s.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	select {
	case summary := <-events:
		if summary.TotalDeleted != 1 {
			t.Errorf("event TotalDeleted = %d, want 1", summary.TotalDeleted)
		}
	default:
		t.Error("no sweep summary emitted")
	}
}

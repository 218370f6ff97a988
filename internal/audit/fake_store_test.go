package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dataveil/dataveil/internal/catalog"
)

// fakeStore is an in-memory Store for tests. It mirrors the claim-by-predicate
// semantics of the postgres implementation: soft-deleted records are skipped by
// sweeps and reads, and status transitions are guarded by the expected current
// status.
type fakeStore struct {
	mu       sync.Mutex
	records  map[string]*DetectionRecord
	requests map[string]*DeletionRequest

	insertErr error
	sweepErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  make(map[string]*DetectionRecord),
		requests: make(map[string]*DeletionRequest),
	}
}

func (f *fakeStore) InsertRecord(_ context.Context, rec *DetectionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	clone := *rec
	f.records[rec.DetectionID] = &clone
	return nil
}

func (f *fakeStore) InsertRecords(ctx context.Context, recs []*DetectionRecord) error {
	f.mu.Lock()
	if f.insertErr != nil {
		f.mu.Unlock()
		return f.insertErr
	}
	f.mu.Unlock()
	for _, rec := range recs {
		if err := f.InsertRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// ActiveRecords mirrors the postgres listing semantics: newest first, and a
// non-positive limit falls back to the default page of 100.
func (f *fakeStore) ActiveRecords(_ context.Context, userID string, limit int) ([]DetectionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}

	var out []DetectionRecord
	for _, rec := range f.records {
		if rec.DeletedAt != nil {
			continue
		}
		if userID != "" && rec.UserID != userID {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) DueForDeletion(_ context.Context, now time.Time, grace func(rec *DetectionRecord) time.Duration) ([]DetectionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []DetectionRecord
	for _, rec := range f.records {
		if rec.DeletedAt != nil || rec.ExpiresAt.After(now) {
			continue
		}
		if now.Before(rec.ExpiresAt.Add(grace(rec))) {
			continue
		}
		due = append(due, *rec)
	}
	return due, nil
}

func (f *fakeStore) SweepExpired(_ context.Context, now time.Time, grace func(rec *DetectionRecord) time.Duration) (SweepSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sweepErr != nil {
		return SweepSummary{}, f.sweepErr
	}

	result := SweepSummary{ByFramework: make(map[catalog.ComplianceFramework]int)}
	for _, rec := range f.records {
		if rec.DeletedAt != nil || rec.ExpiresAt.After(now) {
			continue
		}
		if now.Before(rec.ExpiresAt.Add(grace(rec))) {
			continue
		}
		deleted := now
		rec.DeletedAt = &deleted
		result.TotalDeleted++
		fw := catalog.ComplianceFramework("")
		if len(rec.Frameworks) > 0 {
			fw = catalog.ComplianceFramework(rec.Frameworks[0])
		}
		result.ByFramework[fw]++
	}
	return result, nil
}

func (f *fakeStore) EraseUserRecords(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, rec := range f.records {
		if rec.UserID == userID {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) InsertDeletionRequest(_ context.Context, req *DeletionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *req
	f.requests[req.RequestID] = &clone
	return nil
}

func (f *fakeStore) GetDeletionRequest(_ context.Context, requestID string) (*DeletionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("deletion request %s not found", requestID)
	}
	clone := *req
	return &clone, nil
}

func (f *fakeStore) UpdateDeletionRequestStatus(_ context.Context, requestID string, from, to DeletionRequestStatus, completedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok || req.Status != from {
		return ErrStatusConflict
	}
	req.Status = to
	req.CompletedAt = completedAt
	return nil
}

func (f *fakeStore) OverdueDeletionRequests(_ context.Context, now time.Time) ([]DeletionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []DeletionRequest
	for _, req := range f.requests {
		if req.Status != RequestPending && req.Status != RequestInProgress {
			continue
		}
		if req.DeadlineAt.Before(now) {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *fakeStore) ReportCounts(_ context.Context, framework string, start, end time.Time) (*ReportCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := &ReportCounts{
		ByType: make(map[string]int),
		ByRisk: make(map[string]int),
		ByMode: make(map[string]int),
	}
	for _, rec := range f.records {
		covered := false
		for _, fw := range rec.Frameworks {
			if fw == framework {
				covered = true
				break
			}
		}
		if !covered {
			continue
		}
		// Deletions are windowed by when they happened, not by detection time.
		if rec.DeletedAt != nil && !rec.DeletedAt.Before(start) && rec.DeletedAt.Before(end) {
			counts.RecordsDeleted++
		}
		if rec.DetectedAt.Before(start) || !rec.DetectedAt.Before(end) {
			continue
		}
		counts.TotalDetections++
		counts.ByType[rec.InformationType]++
		counts.ByRisk[rec.RiskLevel]++
		counts.ByMode[rec.DetectionMode]++
		if rec.RiskLevel == "high" {
			counts.HighRiskDetections++
		}
	}
	for _, req := range f.requests {
		if req.Status == RequestCompleted && req.CompletedAt != nil &&
			!req.CompletedAt.Before(start) && req.CompletedAt.Before(end) {
			counts.DeletionRequestsCompleted++
		}
	}
	return counts, nil
}

func (f *fakeStore) Close() error { return nil }

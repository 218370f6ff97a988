package audit

import (
	"context"
	"time"
)

// Store is the persistence boundary for audit data. The postgres
// implementation is the production path; tests use an in-memory fake.
type Store interface {
	// InsertRecord persists one detection record.
	InsertRecord(ctx context.Context, rec *DetectionRecord) error
	// InsertRecords persists a document's records inside one transaction,
	// so an audit trail is written atomically or not at all.
	InsertRecords(ctx context.Context, recs []*DetectionRecord) error
	// ActiveRecords returns records that have not been soft-deleted,
	// optionally filtered by user.
	ActiveRecords(ctx context.Context, userID string, limit int) ([]DetectionRecord, error)
	// DueForDeletion returns every active record whose expiry plus grace
	// period has passed, with no pagination: the archive written from
	// this set must cover everything the next sweep will delete.
	DueForDeletion(ctx context.Context, now time.Time, grace func(rec *DetectionRecord) time.Duration) ([]DetectionRecord, error)
	// SweepExpired soft-deletes active records whose expiry plus grace
	// period has passed. grace resolves the applicable grace period per
	// record. The whole sweep is transactional: on failure nothing is
	// left partially deleted. Already-deleted records are skipped, so the
	// sweep is safe to re-run concurrently with new writes.
	SweepExpired(ctx context.Context, now time.Time, grace func(rec *DetectionRecord) time.Duration) (SweepSummary, error)
	// EraseUserRecords hard-deletes all records for a subject, in support
	// of fulfilled erasure requests.
	EraseUserRecords(ctx context.Context, userID string) (int, error)

	InsertDeletionRequest(ctx context.Context, req *DeletionRequest) error
	GetDeletionRequest(ctx context.Context, requestID string) (*DeletionRequest, error)
	// UpdateDeletionRequestStatus advances a request's status, guarded by
	// the expected current status so illegal transitions fail.
	UpdateDeletionRequestStatus(ctx context.Context, requestID string, from, to DeletionRequestStatus, completedAt *time.Time) error
	// OverdueDeletionRequests returns open requests whose deadline has
	// passed.
	OverdueDeletionRequests(ctx context.Context, now time.Time) ([]DeletionRequest, error)

	// ReportCounts aggregates audit activity for one framework and window.
	ReportCounts(ctx context.Context, framework string, start, end time.Time) (*ReportCounts, error)

	Close() error
}

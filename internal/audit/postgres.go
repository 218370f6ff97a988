package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/catalog"
)

// ErrStatusConflict means a deletion request was not in the expected status
// when a transition was attempted.
var ErrStatusConflict = errors.New("audit: deletion request status conflict")

// StoreConfig contains database configuration.
type StoreConfig struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// PostgresStore persists audit data in PostgreSQL.
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresStore connects, configures the pool, and ensures the schema.
func NewPostgresStore(config StoreConfig, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &PostgresStore{db: db, logger: logger}
	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit store: %w", err)
	}

	logger.Info("Audit store initialized",
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns),
	)
	return store, nil
}

func (s *PostgresStore) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS detection_records (
		detection_id           UUID PRIMARY KEY,
		document_id            TEXT,
		collection_id          TEXT,
		user_id                TEXT NOT NULL,
		information_type       TEXT NOT NULL,
		risk_level             TEXT NOT NULL,
		confidence_score       INT NOT NULL,
		start_offset           INT NOT NULL,
		end_offset             INT NOT NULL,
		context_hash           TEXT NOT NULL,
		value_hash             TEXT NOT NULL,
		compliance_frameworks  TEXT[] NOT NULL,
		detection_mode         TEXT NOT NULL,
		detected_at            TIMESTAMPTZ NOT NULL,
		expires_at             TIMESTAMPTZ NOT NULL,
		deleted_at             TIMESTAMPTZ,
		notified               BOOLEAN NOT NULL DEFAULT FALSE
	);
	CREATE INDEX IF NOT EXISTS idx_detection_records_sweep
		ON detection_records (expires_at) WHERE deleted_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_detection_records_user
		ON detection_records (user_id);

	CREATE TABLE IF NOT EXISTS deletion_requests (
		request_id       UUID PRIMARY KEY,
		request_type     TEXT NOT NULL,
		requester        TEXT NOT NULL,
		subject_user_id  TEXT,
		reason           TEXT,
		scope            TEXT NOT NULL,
		status           TEXT NOT NULL,
		requested_at     TIMESTAMPTZ NOT NULL,
		deadline_at      TIMESTAMPTZ NOT NULL,
		completed_at     TIMESTAMPTZ
	);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

const insertRecordQuery = `
	INSERT INTO detection_records (
		detection_id, document_id, collection_id, user_id,
		information_type, risk_level, confidence_score,
		start_offset, end_offset, context_hash, value_hash,
		compliance_frameworks, detection_mode,
		detected_at, expires_at, notified
	) VALUES (
		:detection_id, :document_id, :collection_id, :user_id,
		:information_type, :risk_level, :confidence_score,
		:start_offset, :end_offset, :context_hash, :value_hash,
		:compliance_frameworks, :detection_mode,
		:detected_at, :expires_at, :notified
	)`

// InsertRecord persists one detection record.
func (s *PostgresStore) InsertRecord(ctx context.Context, rec *DetectionRecord) error {
	if _, err := s.db.NamedExecContext(ctx, insertRecordQuery, rec); err != nil {
		return fmt.Errorf("failed to insert detection record: %w", err)
	}
	return nil
}

// InsertRecords persists a batch inside one transaction.
func (s *PostgresStore) InsertRecords(ctx context.Context, recs []*DetectionRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		if _, err := tx.NamedExecContext(ctx, insertRecordQuery, rec); err != nil {
			return fmt.Errorf("failed to insert detection record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch insert: %w", err)
	}
	return nil
}

// ActiveRecords returns non-deleted records, newest first.
func (s *PostgresStore) ActiveRecords(ctx context.Context, userID string, limit int) ([]DetectionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT * FROM detection_records WHERE deleted_at IS NULL`
	args := []interface{}{}
	if userID != "" {
		query += ` AND user_id = $1`
		args = append(args, userID)
	}
	query += fmt.Sprintf(` ORDER BY detected_at DESC LIMIT %d`, limit)

	var recs []DetectionRecord
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query active records: %w", err)
	}
	return recs, nil
}

// DueForDeletion returns every record the next sweep would soft-delete. No
// limit is applied: the archive built from this set must be complete.
func (s *PostgresStore) DueForDeletion(ctx context.Context, now time.Time, grace func(rec *DetectionRecord) time.Duration) ([]DetectionRecord, error) {
	var candidates []DetectionRecord
	err := s.db.SelectContext(ctx, &candidates, `
		SELECT * FROM detection_records
		WHERE deleted_at IS NULL AND expires_at <= $1`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select due records: %w", err)
	}

	due := candidates[:0]
	for _, rec := range candidates {
		if !now.Before(rec.ExpiresAt.Add(grace(&rec))) {
			due = append(due, rec)
		}
	}
	return due, nil
}

// SweepExpired soft-deletes expired records past their grace period. The
// selection and mutation run in one transaction; the deleted_at IS NULL guard
// makes each claim idempotent, so concurrent sweeps skip each other's work.
func (s *PostgresStore) SweepExpired(ctx context.Context, now time.Time, grace func(rec *DetectionRecord) time.Duration) (SweepSummary, error) {
	summary := SweepSummary{ByFramework: make(map[catalog.ComplianceFramework]int)}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("failed to begin sweep transaction: %w", err)
	}
	defer tx.Rollback()

	var candidates []DetectionRecord
	err = tx.SelectContext(ctx, &candidates, `
		SELECT * FROM detection_records
		WHERE deleted_at IS NULL AND expires_at <= $1
		FOR UPDATE SKIP LOCKED`, now)
	if err != nil {
		return summary, fmt.Errorf("failed to select expired records: %w", err)
	}

	for i := range candidates {
		rec := &candidates[i]
		if now.Before(rec.ExpiresAt.Add(grace(rec))) {
			// Expired but still inside the grace period.
			continue
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE detection_records SET deleted_at = $1
			WHERE detection_id = $2 AND deleted_at IS NULL`, now, rec.DetectionID)
		if err != nil {
			return SweepSummary{ByFramework: map[catalog.ComplianceFramework]int{}},
				fmt.Errorf("failed to soft-delete record: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}

		summary.TotalDeleted++
		fw := catalog.ComplianceFramework("")
		if len(rec.Frameworks) > 0 {
			fw = catalog.ComplianceFramework(rec.Frameworks[0])
		}
		summary.ByFramework[fw]++
	}

	if err := tx.Commit(); err != nil {
		return SweepSummary{ByFramework: map[catalog.ComplianceFramework]int{}},
			fmt.Errorf("failed to commit sweep: %w", err)
	}
	return summary, nil
}

// EraseUserRecords hard-deletes all records for a subject user.
func (s *PostgresStore) EraseUserRecords(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM detection_records WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to erase user records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// InsertDeletionRequest persists a new deletion request.
func (s *PostgresStore) InsertDeletionRequest(ctx context.Context, req *DeletionRequest) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO deletion_requests (
			request_id, request_type, requester, subject_user_id,
			reason, scope, status, requested_at, deadline_at
		) VALUES (
			:request_id, :request_type, :requester, :subject_user_id,
			:reason, :scope, :status, :requested_at, :deadline_at
		)`, req)
	if err != nil {
		return fmt.Errorf("failed to insert deletion request: %w", err)
	}
	return nil
}

// GetDeletionRequest loads one request by ID.
func (s *PostgresStore) GetDeletionRequest(ctx context.Context, requestID string) (*DeletionRequest, error) {
	var req DeletionRequest
	err := s.db.GetContext(ctx, &req,
		`SELECT * FROM deletion_requests WHERE request_id = $1`, requestID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("deletion request %s not found", requestID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load deletion request: %w", err)
	}
	return &req, nil
}

// UpdateDeletionRequestStatus advances status guarded by the expected current
// status.
func (s *PostgresStore) UpdateDeletionRequestStatus(ctx context.Context, requestID string, from, to DeletionRequestStatus, completedAt *time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deletion_requests
		SET status = $1, completed_at = COALESCE($2, completed_at)
		WHERE request_id = $3 AND status = $4`,
		to, completedAt, requestID, from)
	if err != nil {
		return fmt.Errorf("failed to update deletion request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// OverdueDeletionRequests returns still-open requests past their deadline.
func (s *PostgresStore) OverdueDeletionRequests(ctx context.Context, now time.Time) ([]DeletionRequest, error) {
	var reqs []DeletionRequest
	err := s.db.SelectContext(ctx, &reqs, `
		SELECT * FROM deletion_requests
		WHERE status IN ($1, $2) AND deadline_at <= $3`,
		RequestPending, RequestInProgress, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue requests: %w", err)
	}
	return reqs, nil
}

// ReportCounts aggregates audit activity for one framework over a window.
func (s *PostgresStore) ReportCounts(ctx context.Context, framework string, start, end time.Time) (*ReportCounts, error) {
	counts := &ReportCounts{
		ByType: make(map[string]int),
		ByRisk: make(map[string]int),
		ByMode: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT information_type, risk_level, detection_mode
		FROM detection_records
		WHERE $1 = ANY(compliance_frameworks)
		  AND detected_at >= $2 AND detected_at < $3`,
		framework, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query report counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var infoType, risk, mode string
		if err := rows.Scan(&infoType, &risk, &mode); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		counts.TotalDetections++
		counts.ByType[infoType]++
		counts.ByRisk[risk]++
		counts.ByMode[mode]++
		if risk == string(catalog.RiskHigh) {
			counts.HighRiskDetections++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read report rows: %w", err)
	}

	// Sweep activity is windowed by when records were deleted, not when they
	// were detected: old records swept during the period belong in it.
	err = s.db.GetContext(ctx, &counts.RecordsDeleted, `
		SELECT COUNT(*) FROM detection_records
		WHERE $1 = ANY(compliance_frameworks)
		  AND deleted_at >= $2 AND deleted_at < $3`,
		framework, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count deleted records: %w", err)
	}

	err = s.db.GetContext(ctx, &counts.DeletionRequestsCompleted, `
		SELECT COUNT(*) FROM deletion_requests
		WHERE status = $1 AND completed_at >= $2 AND completed_at < $3`,
		RequestCompleted, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed requests: %w", err)
	}
	return counts, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

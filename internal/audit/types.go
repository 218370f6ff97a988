package audit

import (
	"time"

	"github.com/lib/pq"

	"github.com/dataveil/dataveil/internal/catalog"
)

// DetectionRecord is the persisted audit form of a detection. Only one-way
// hashes of the value and context are stored; the cleartext never reaches this
// struct. A record moves active -> expired pending grace -> soft-deleted,
// strictly forward, and is never resurrected.
type DetectionRecord struct {
	DetectionID     string         `db:"detection_id" json:"detection_id"`
	DocumentID      *string        `db:"document_id" json:"document_id,omitempty"`
	CollectionID    *string        `db:"collection_id" json:"collection_id,omitempty"`
	UserID          string         `db:"user_id" json:"user_id"`
	InformationType string         `db:"information_type" json:"information_type"`
	RiskLevel       string         `db:"risk_level" json:"risk_level"`
	ConfidenceScore int            `db:"confidence_score" json:"confidence_score"`
	StartOffset     int            `db:"start_offset" json:"start"`
	EndOffset       int            `db:"end_offset" json:"end"`
	ContextHash     string         `db:"context_hash" json:"context_hash"`
	ValueHash       string         `db:"value_hash" json:"value_hash"`
	Frameworks      pq.StringArray `db:"compliance_frameworks" json:"compliance_frameworks"`
	DetectionMode   string         `db:"detection_mode" json:"detection_mode"`
	DetectedAt      time.Time      `db:"detected_at" json:"detected_at"`
	ExpiresAt       time.Time      `db:"expires_at" json:"expires_at"`
	DeletedAt       *time.Time     `db:"deleted_at" json:"deleted_at,omitempty"`
	Notified        bool           `db:"notified" json:"notified"`
}

// DeletionRequestStatus is the lifecycle state of a regulator-driven erasure
// request: pending -> in_progress -> {completed, rejected}.
type DeletionRequestStatus string

const (
	RequestPending    DeletionRequestStatus = "pending"
	RequestInProgress DeletionRequestStatus = "in_progress"
	RequestCompleted  DeletionRequestStatus = "completed"
	RequestRejected   DeletionRequestStatus = "rejected"
)

// DeletionRequestType determines the fulfillment deadline.
type DeletionRequestType string

const (
	// RequestTypeErasure is a right-to-be-forgotten style request:
	// 30-day deadline.
	RequestTypeErasure DeletionRequestType = "erasure"
	// RequestTypeAccess and RequestTypePortability follow longer-window
	// regimes: 45-day deadline.
	RequestTypeAccess      DeletionRequestType = "access"
	RequestTypePortability DeletionRequestType = "portability"
)

// DeletionRequest tracks a regulator-driven request end to end. Fulfillment is
// an external workflow; a deadline that passes while the request is still open
// raises an escalation signal without changing state.
type DeletionRequest struct {
	RequestID     string                `db:"request_id" json:"request_id"`
	RequestType   DeletionRequestType   `db:"request_type" json:"request_type"`
	Requester     string                `db:"requester" json:"requester"`
	SubjectUserID *string               `db:"subject_user_id" json:"subject_user_id,omitempty"`
	Reason        *string               `db:"reason" json:"reason,omitempty"`
	Scope         string                `db:"scope" json:"scope"`
	Status        DeletionRequestStatus `db:"status" json:"status"`
	RequestedAt   time.Time             `db:"requested_at" json:"requested_at"`
	DeadlineAt    time.Time             `db:"deadline_at" json:"deadline_at"`
	CompletedAt   *time.Time            `db:"completed_at" json:"completed_at,omitempty"`
}

// SweepSummary reports one retention sweep.
type SweepSummary struct {
	TotalDeleted int                                 `json:"total_deleted"`
	ByFramework  map[catalog.ComplianceFramework]int `json:"by_framework"`
}

// ReportCounts are the raw aggregates a compliance report is built from.
type ReportCounts struct {
	TotalDetections           int
	HighRiskDetections        int
	RecordsDeleted            int
	DeletionRequestsCompleted int
	ByType                    map[string]int
	ByRisk                    map[string]int
	ByMode                    map[string]int
}

// ComplianceReport aggregates audit activity for one framework over a window.
type ComplianceReport struct {
	ReportID                  string                      `json:"report_id"`
	Framework                 catalog.ComplianceFramework `json:"framework"`
	PeriodStart               time.Time                   `json:"period_start"`
	PeriodEnd                 time.Time                   `json:"period_end"`
	GeneratedBy               string                      `json:"generated_by"`
	GeneratedAt               time.Time                   `json:"generated_at"`
	TotalDetections           int                         `json:"total_detections"`
	HighRiskDetections        int                         `json:"high_risk_detections"`
	RecordsDeleted            int                         `json:"records_deleted"`
	DeletionRequestsCompleted int                         `json:"deletion_requests_completed"`
	ByType                    map[string]int              `json:"by_information_type"`
	ByRisk                    map[string]int              `json:"by_risk_level"`
	ByMode                    map[string]int              `json:"by_detection_mode"`
}

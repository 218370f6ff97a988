package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deadlines by request type: erasure-style requests get 30 days, the
// longer-window regimes 45.
const (
	erasureDeadline = 30 * 24 * time.Hour
	accessDeadline  = 45 * 24 * time.Hour
)

// Escalation signals an open deletion request whose deadline has passed. It is
// emitted, never swallowed: a missed deadline is neither a crash nor a silent
// success.
type Escalation struct {
	Request    DeletionRequest `json:"request"`
	OverdueBy  time.Duration   `json:"overdue_by"`
	DetectedAt time.Time       `json:"detected_at"`
}

// SubmitParams are the caller-supplied fields of a new deletion request.
type SubmitParams struct {
	Requester     string
	RequestType   DeletionRequestType
	SubjectUserID string
	Reason        string
	Scope         string
}

// Processor manages regulator-driven deletion requests end to end. Requests
// are created here and advanced only here; fulfillment itself is an external
// workflow that reports back through Complete or Reject.
type Processor struct {
	store       Store
	logger      *zap.Logger
	escalations chan<- Escalation
}

// NewProcessor creates a processor. escalations, when non-nil, receives
// deadline-breach events.
func NewProcessor(store Store, escalations chan<- Escalation, logger *zap.Logger) *Processor {
	return &Processor{store: store, logger: logger, escalations: escalations}
}

// Submit files a new request with its regime-appropriate deadline and logs a
// high-impact audit event.
func (p *Processor) Submit(ctx context.Context, params SubmitParams) (*DeletionRequest, error) {
	if params.Requester == "" {
		return nil, fmt.Errorf("deletion request requires a requester")
	}

	now := time.Now().UTC()
	deadline := now.Add(erasureDeadline)
	if params.RequestType == RequestTypeAccess || params.RequestType == RequestTypePortability {
		deadline = now.Add(accessDeadline)
	}

	scope := params.Scope
	if scope == "" {
		scope = "all_records"
	}

	req := &DeletionRequest{
		RequestID:   uuid.NewString(),
		RequestType: params.RequestType,
		Requester:   params.Requester,
		Scope:       scope,
		Status:      RequestPending,
		RequestedAt: now,
		DeadlineAt:  deadline,
	}
	if params.SubjectUserID != "" {
		req.SubjectUserID = &params.SubjectUserID
	}
	if params.Reason != "" {
		req.Reason = &params.Reason
	}

	if err := p.store.InsertDeletionRequest(ctx, req); err != nil {
		return nil, err
	}

	p.logger.Warn("Deletion request submitted",
		zap.String("request_id", req.RequestID),
		zap.String("request_type", string(req.RequestType)),
		zap.String("requester", req.Requester),
		zap.Time("deadline_at", req.DeadlineAt),
	)
	return req, nil
}

// Get loads one deletion request.
func (p *Processor) Get(ctx context.Context, requestID string) (*DeletionRequest, error) {
	return p.store.GetDeletionRequest(ctx, requestID)
}

// Begin marks a pending request as in progress.
func (p *Processor) Begin(ctx context.Context, requestID string) error {
	return p.store.UpdateDeletionRequestStatus(ctx, requestID, RequestPending, RequestInProgress, nil)
}

// Complete finishes an in-progress request, hard-erasing the subject's records
// when the request has one. The guarded status transition runs first: a request
// in the wrong state must never erase anything.
func (p *Processor) Complete(ctx context.Context, requestID string) error {
	req, err := p.store.GetDeletionRequest(ctx, requestID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := p.store.UpdateDeletionRequestStatus(ctx, requestID, RequestInProgress, RequestCompleted, &now); err != nil {
		return err
	}

	erased := 0
	if req.SubjectUserID != nil && req.RequestType == RequestTypeErasure {
		erased, err = p.store.EraseUserRecords(ctx, *req.SubjectUserID)
		if err != nil {
			p.logger.Error("Record erasure failed after completion",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
			return err
		}
	}

	p.logger.Info("Deletion request completed",
		zap.String("request_id", requestID),
		zap.Int("records_erased", erased),
	)
	return nil
}

// Reject closes an in-progress request without erasure.
func (p *Processor) Reject(ctx context.Context, requestID string) error {
	now := time.Now().UTC()
	return p.store.UpdateDeletionRequestStatus(ctx, requestID, RequestInProgress, RequestRejected, &now)
}

// CheckOverdue emits an escalation for every open request whose deadline has
// passed. State is not changed; escalation is a signal, not a transition.
func (p *Processor) CheckOverdue(ctx context.Context) ([]Escalation, error) {
	now := time.Now().UTC()
	overdue, err := p.store.OverdueDeletionRequests(ctx, now)
	if err != nil {
		return nil, err
	}

	escalations := make([]Escalation, 0, len(overdue))
	for _, req := range overdue {
		esc := Escalation{
			Request:    req,
			OverdueBy:  now.Sub(req.DeadlineAt),
			DetectedAt: now,
		}
		escalations = append(escalations, esc)

		p.logger.Error("Deletion request deadline breached",
			zap.String("request_id", req.RequestID),
			zap.String("status", string(req.Status)),
			zap.Duration("overdue_by", esc.OverdueBy),
		)
		if p.escalations != nil {
			select {
			case p.escalations <- esc:
			default:
			}
		}
	}
	return escalations, nil
}

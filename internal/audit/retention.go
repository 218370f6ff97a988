package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/catalog"
)

// Archiver receives records immediately before they are soft-deleted, for
// archive-before-delete deployments. Failures abort the sweep so no record is
// deleted without its archive copy.
type Archiver interface {
	Archive(ctx context.Context, recs []DetectionRecord) error
}

// Sweeper is the retention engine: it periodically soft-deletes expired audit
// records once their grace period has elapsed. Sweeps never block detection or
// scramble calls; a failed sweep is logged and retried on the next tick.
type Sweeper struct {
	store     Store
	policies  *PolicyTable
	archiver  Archiver
	processor *Processor
	logger    *zap.Logger
	schedule  string
	cron      *cron.Cron
	events    chan<- SweepSummary
}

// NewSweeper creates a sweeper. schedule is a cron expression; events, when
// non-nil, receives each sweep's summary (dropped if the receiver lags).
func NewSweeper(store Store, policies *PolicyTable, archiver Archiver, schedule string, events chan<- SweepSummary, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		policies: policies,
		archiver: archiver,
		logger:   logger,
		schedule: schedule,
		events:   events,
	}
}

// TrackOverdue makes every scheduled tick also check deletion-request
// deadlines, so a breach escalates without anyone polling.
func (s *Sweeper) TrackOverdue(p *Processor) {
	s.processor = p
}

// Start begins the scheduled sweep as an independent background task.
func (s *Sweeper) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, s.runScheduled)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("Retention sweeper started", zap.String("schedule", s.schedule))
	return nil
}

func (s *Sweeper) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		// The sweep transaction rolled back; next tick retries.
		s.logger.Error("Retention sweep failed", zap.Error(err))
	}

	if s.processor != nil {
		if _, err := s.processor.CheckOverdue(ctx); err != nil {
			s.logger.Error("Overdue deadline check failed", zap.Error(err))
		}
	}
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep soft-deletes every active record whose expiry plus grace period has
// passed. Safe to re-run: already-deleted records are skipped by the store's
// claim predicate.
func (s *Sweeper) Sweep(ctx context.Context) (SweepSummary, error) {
	now := time.Now().UTC()

	if s.archiver != nil {
		due, err := s.dueForDeletion(ctx, now)
		if err != nil {
			return SweepSummary{}, err
		}
		if len(due) > 0 {
			if err := s.archiver.Archive(ctx, due); err != nil {
				return SweepSummary{}, fmt.Errorf("archive before delete failed: %w", err)
			}
		}
	}

	summary, err := s.store.SweepExpired(ctx, now, s.graceFor)
	if err != nil {
		return summary, err
	}

	for fw, n := range summary.ByFramework {
		s.logger.Info("Expired audit records deleted",
			zap.String("framework", string(fw)),
			zap.Int("deleted", n),
		)
	}

	if s.events != nil && summary.TotalDeleted > 0 {
		select {
		case s.events <- summary:
		default:
		}
	}
	return summary, nil
}

// graceFor resolves a record's grace period by its first compliance framework
// and information type.
func (s *Sweeper) graceFor(rec *DetectionRecord) time.Duration {
	fw := catalog.ComplianceFramework("")
	if len(rec.Frameworks) > 0 {
		fw = catalog.ComplianceFramework(rec.Frameworks[0])
	}
	return s.policies.Grace(fw, catalog.InformationType(rec.InformationType))
}

// dueForDeletion previews the records the sweep would delete, for archival.
// It must see every due record, not a page of them: a record missing here
// would be deleted without an archive copy.
func (s *Sweeper) dueForDeletion(ctx context.Context, now time.Time) ([]DetectionRecord, error) {
	due, err := s.store.DueForDeletion(ctx, now, s.graceFor)
	if err != nil {
		return nil, fmt.Errorf("failed to preview sweep candidates: %w", err)
	}
	return due, nil
}

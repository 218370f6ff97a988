package websocket

import (
	"time"

	"github.com/dataveil/dataveil/internal/audit"
)

// Notifier satisfies the audit notification contract by pushing high-risk
// detection events onto the hub. Payloads carry the information type and risk
// level only.
type Notifier struct {
	hub *Hub
}

// NewNotifier creates a hub-backed notifier.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// NotifyHighRisk broadcasts a summary of one high-risk detection.
func (n *Notifier) NotifyHighRisk(rec *audit.DetectionRecord) {
	n.hub.BroadcastEvent(Event{
		Type:      EventTypeDetection,
		Timestamp: time.Now(),
		Data: DetectionSummaryEvent{
			Mode:          rec.DetectionMode,
			TotalFindings: 1,
			HighRisk:      1,
			TypeCounts:    map[string]int{rec.InformationType: 1},
		},
	})
}

// Relay drains sweep summaries and deletion escalations onto the hub. It stops
// when both channels are closed.
func Relay(hub *Hub, sweeps <-chan audit.SweepSummary, escalations <-chan audit.Escalation) {
	for sweeps != nil || escalations != nil {
		select {
		case summary, ok := <-sweeps:
			if !ok {
				sweeps = nil
				continue
			}
			byFramework := make(map[string]int, len(summary.ByFramework))
			for fw, n := range summary.ByFramework {
				byFramework[string(fw)] = n
			}
			hub.BroadcastEvent(Event{
				Type:      EventTypeSweep,
				Timestamp: time.Now(),
				Data: SweepSummaryEvent{
					TotalDeleted: summary.TotalDeleted,
					ByFramework:  byFramework,
				},
			})

		case esc, ok := <-escalations:
			if !ok {
				escalations = nil
				continue
			}
			hub.BroadcastEvent(Event{
				Type:      EventTypeEscalation,
				Timestamp: time.Now(),
				Data: EscalationEvent{
					RequestID:   esc.Request.RequestID,
					RequestType: string(esc.Request.RequestType),
					Status:      string(esc.Request.Status),
					DeadlineAt:  esc.Request.DeadlineAt,
					OverdueBy:   esc.OverdueBy,
				},
			})
		}
	}
}

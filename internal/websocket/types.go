package websocket

import (
	"time"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeDetection represents a detection summary event
	EventTypeDetection EventType = "detection_summary"
	// EventTypeSweep represents a retention sweep summary event
	EventTypeSweep EventType = "sweep_summary"
	// EventTypeEscalation represents a deletion request deadline breach
	EventTypeEscalation EventType = "deletion_escalation"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	SessionID string      `json:"session_id,omitempty"`
}

// DetectionSummaryEvent describes one scan's outcome. It carries types, risk
// levels and counts only; detected values never travel over the socket.
type DetectionSummaryEvent struct {
	SessionID     string         `json:"session_id"`
	Mode          string         `json:"mode"`
	TotalFindings int            `json:"total_findings"`
	HighRisk      int            `json:"high_risk"`
	TypeCounts    map[string]int `json:"type_counts"`
	MaskedContent bool           `json:"masked_content"`
	Truncated     bool           `json:"truncated"`
	ProcessingMS  float64        `json:"processing_ms"`
}

// SweepSummaryEvent describes one retention sweep.
type SweepSummaryEvent struct {
	TotalDeleted int            `json:"total_deleted"`
	ByFramework  map[string]int `json:"by_framework"`
}

// EscalationEvent describes a deletion request past its deadline.
type EscalationEvent struct {
	RequestID   string        `json:"request_id"`
	RequestType string        `json:"request_type"`
	Status      string        `json:"status"`
	DeadlineAt  time.Time     `json:"deadline_at"`
	OverdueBy   time.Duration `json:"overdue_by"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalScans       int64  `json:"total_scans"`
	TruncatedScans   int64  `json:"truncated_scans"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType  `json:"events"`
	Filter *EventFilter `json:"filter,omitempty"`
}

// EventFilter represents filtering options for events
type EventFilter struct {
	MinRisk       string   `json:"min_risk,omitempty"`
	Types         []string `json:"types,omitempty"`
	ExcludeHealth bool     `json:"exclude_health,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID           string
	Conn         interface{} // Will be *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string
}

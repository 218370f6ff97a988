package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/audit"
	"github.com/dataveil/dataveil/internal/catalog"
	"github.com/dataveil/dataveil/internal/detect"
	"github.com/dataveil/dataveil/internal/engine"
	"github.com/dataveil/dataveil/internal/mappings"
	"github.com/dataveil/dataveil/internal/websocket"
)

const maxRequestBody = 1 << 20 // 1 MiB

// AutoDetect is a pointer so an absent field defaults to true: callers opt
// out of mode classification, they don't opt in.
type scanRequest struct {
	Text         string `json:"text"`
	Mode         string `json:"mode,omitempty"`
	AutoDetect   *bool  `json:"auto_detect,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	DocumentID   string `json:"document_id,omitempty"`
	CollectionID string `json:"collection_id,omitempty"`
}

type scrambleRequest struct {
	Text           string `json:"text"`
	SessionID      string `json:"session_id"`
	Mode           string `json:"mode,omitempty"`
	AutoDetect     *bool  `json:"auto_detect,omitempty"`
	PreserveFormat bool   `json:"preserve_format,omitempty"`
	HighRiskOnly   bool   `json:"high_risk_only,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

func autoDetectOrDefault(v *bool) bool {
	return v == nil || *v
}

type unscrambleRequest struct {
	MaskedText   string `json:"masked_text"`
	SessionID    string `json:"session_id"`
	MappingToken string `json:"mapping_token"`
}

type deletionRequestBody struct {
	Requester     string `json:"requester"`
	RequestType   string `json:"request_type"`
	SubjectUserID string `json:"subject_user_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Scope         string `json:"scope,omitempty"`
}

type reportRequest struct {
	Framework   string    `json:"framework"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	GeneratedBy string    `json:"generated_by"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":              "dataveil",
		"version":           "0.1.0",
		"detection_enabled": s.config.Detection.Enabled,
		"audit_enabled":     s.config.Audit.Enabled,
		"uptime":            time.Since(s.startTime).String(),
	})
}

// handleWebSocket handles WebSocket connections for the operational stream
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// handleScan detects sensitive spans without modifying the text.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if !s.config.Detection.Enabled {
		writeError(w, http.StatusServiceUnavailable, "detection is disabled")
		return
	}

	var req scanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	start := time.Now()
	result, err := s.engine.Scan(r.Context(), req.Text, req.Mode, autoDetectOrDefault(req.AutoDetect))
	if err != nil {
		if errors.Is(err, detect.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "text is not valid UTF-8")
			return
		}
		s.logger.Error("Scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	s.recordAndBroadcast(r, result.Detections, audit.RecordMeta{
		UserID:       req.UserID,
		DocumentID:   req.DocumentID,
		CollectionID: req.CollectionID,
		Mode:         result.Mode,
	}, result.Truncated, false, time.Since(start))

	writeJSON(w, http.StatusOK, result)
}

// handleScramble masks detected spans and parks the reversible mapping.
func (s *Server) handleScramble(w http.ResponseWriter, r *http.Request) {
	if !s.config.Detection.Enabled {
		writeError(w, http.StatusServiceUnavailable, "detection is disabled")
		return
	}

	var req scrambleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	start := time.Now()
	preserveFormat := req.PreserveFormat || s.config.Masking.PreserveFormat
	out, err := s.engine.Scramble(r.Context(), req.Text, engine.ScrambleParams{
		SessionID:      req.SessionID,
		Mode:           req.Mode,
		AutoDetect:     autoDetectOrDefault(req.AutoDetect),
		PreserveFormat: preserveFormat,
		HighRiskOnly:   req.HighRiskOnly,
	})
	if err != nil {
		if errors.Is(err, detect.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "text is not valid UTF-8")
			return
		}
		s.logger.Error("Scramble failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scramble failed")
		return
	}

	mode := catalog.ParseMode(req.Mode)
	s.recordAndBroadcast(r, out.Detections, audit.RecordMeta{
		UserID: req.UserID,
		Mode:   mode,
	}, out.Truncated, true, time.Since(start))

	writeJSON(w, http.StatusOK, out)
}

// handleUnscramble restores masked text from a session's mapping token.
func (s *Server) handleUnscramble(w http.ResponseWriter, r *http.Request) {
	var req unscrambleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.MappingToken == "" {
		writeError(w, http.StatusBadRequest, "session_id and mapping_token are required")
		return
	}

	restored, err := s.engine.Unscramble(r.Context(), req.MaskedText, req.SessionID, req.MappingToken)
	if err != nil {
		switch {
		case errors.Is(err, mappings.ErrNotFound):
			writeError(w, http.StatusNotFound, "mapping not found or expired")
		case errors.Is(err, mappings.ErrNotOwner):
			writeError(w, http.StatusForbidden, "mapping belongs to another session")
		default:
			s.logger.Error("Unscramble failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "unscramble failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": restored})
}

// handleRecords lists active audit records, optionally scoped to a user.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	recs, err := s.engine.ActiveRecords(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("Failed to list records", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": recs,
		"count":   len(recs),
	})
}

// handleSweep runs one retention sweep immediately.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Sweep(r.Context())
	if err != nil {
		s.logger.Error("Manual sweep failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSubmitDeletionRequest(w http.ResponseWriter, r *http.Request) {
	var body deletionRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Requester == "" {
		writeError(w, http.StatusBadRequest, "requester is required")
		return
	}

	requestType := audit.DeletionRequestType(body.RequestType)
	switch requestType {
	case audit.RequestTypeErasure, audit.RequestTypeAccess, audit.RequestTypePortability:
	default:
		writeError(w, http.StatusBadRequest, "request_type must be erasure, access, or portability")
		return
	}

	req, err := s.engine.SubmitDeletionRequest(r.Context(), audit.SubmitParams{
		Requester:     body.Requester,
		RequestType:   requestType,
		SubjectUserID: body.SubjectUserID,
		Reason:        body.Reason,
		Scope:         body.Scope,
	})
	if err != nil {
		s.logger.Error("Failed to submit deletion request", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to submit deletion request")
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleGetDeletionRequest(w http.ResponseWriter, r *http.Request) {
	proc := s.engine.DeletionRequests()
	if proc == nil {
		writeError(w, http.StatusServiceUnavailable, "audit store is not configured")
		return
	}
	id := mux.Vars(r)["id"]
	req, err := proc.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "deletion request not found")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleBeginDeletionRequest(w http.ResponseWriter, r *http.Request) {
	s.transitionDeletionRequest(w, r, (*audit.Processor).Begin)
}

func (s *Server) handleCompleteDeletionRequest(w http.ResponseWriter, r *http.Request) {
	s.transitionDeletionRequest(w, r, (*audit.Processor).Complete)
}

func (s *Server) handleRejectDeletionRequest(w http.ResponseWriter, r *http.Request) {
	s.transitionDeletionRequest(w, r, (*audit.Processor).Reject)
}

func (s *Server) transitionDeletionRequest(w http.ResponseWriter, r *http.Request, transition func(p *audit.Processor, ctx context.Context, requestID string) error) {
	proc := s.engine.DeletionRequests()
	if proc == nil {
		writeError(w, http.StatusServiceUnavailable, "audit store is not configured")
		return
	}
	id := mux.Vars(r)["id"]
	if err := transition(proc, r.Context(), id); err != nil {
		if errors.Is(err, audit.ErrStatusConflict) {
			writeError(w, http.StatusConflict, "deletion request is not in the required state")
			return
		}
		s.logger.Error("Deletion request transition failed",
			zap.String("request_id", id),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "transition failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"request_id": id, "status": "updated"})
}

func (s *Server) handleOverdueDeletionRequests(w http.ResponseWriter, r *http.Request) {
	proc := s.engine.DeletionRequests()
	if proc == nil {
		writeError(w, http.StatusServiceUnavailable, "audit store is not configured")
		return
	}
	escalations, err := proc.CheckOverdue(r.Context())
	if err != nil {
		s.logger.Error("Overdue check failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "overdue check failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"escalations": escalations,
		"count":       len(escalations),
	})
}

// handleGenerateReport builds a per-framework compliance report.
func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Framework == "" {
		writeError(w, http.StatusBadRequest, "framework is required")
		return
	}

	report, err := s.engine.GenerateReport(r.Context(), catalog.ComplianceFramework(req.Framework), req.PeriodStart, req.PeriodEnd, req.GeneratedBy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleMetrics exposes engine counters and hub statistics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats := s.wsHub.GetStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"engine": s.engine.Metrics(),
		"websocket": map[string]int64{
			"active_connections": stats.ActiveConnections,
			"total_connections":  stats.TotalConnections,
			"total_broadcasts":   stats.TotalBroadcasts,
		},
	})
}

// recordAndBroadcast persists audit records and pushes a summary event. Both
// are best-effort from the caller's point of view: the HTTP response is
// already decided.
func (s *Server) recordAndBroadcast(r *http.Request, detections []detect.Detection, meta audit.RecordMeta, truncated, masked bool, elapsed time.Duration) {
	if len(detections) == 0 {
		return
	}

	if s.config.Audit.Enabled && meta.UserID != "" {
		if _, err := s.engine.BatchRecord(r.Context(), detections, meta); err != nil {
			s.logger.Error("Audit write failed", zap.Error(err))
		}
	}

	typeCounts := make(map[string]int)
	highRisk := 0
	for _, d := range detections {
		typeCounts[string(d.Type)]++
		if d.RiskLevel == catalog.RiskHigh {
			highRisk++
		}
	}

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeDetection,
		Timestamp: time.Now(),
		Data: websocket.DetectionSummaryEvent{
			Mode:          string(meta.Mode),
			TotalFindings: len(detections),
			HighRisk:      highRisk,
			TypeCounts:    typeCounts,
			MaskedContent: masked,
			Truncated:     truncated,
			ProcessingMS:  float64(elapsed.Nanoseconds()) / 1e6,
		},
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

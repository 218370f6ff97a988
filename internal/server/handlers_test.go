package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/catalog"
	"github.com/dataveil/dataveil/internal/classify"
	"github.com/dataveil/dataveil/internal/config"
	"github.com/dataveil/dataveil/internal/detect"
	"github.com/dataveil/dataveil/internal/engine"
	"github.com/dataveil/dataveil/internal/logger"
	"github.com/dataveil/dataveil/internal/mappings"
	"github.com/dataveil/dataveil/internal/scramble"
	"github.com/dataveil/dataveil/internal/websocket"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	log := zap.NewNop()
	cat := catalog.New()
	eng := engine.New(engine.Deps{
		Catalog:    cat,
		Classifier: classify.New(cat, log),
		Scanner:    detect.NewScanner(cat, detect.Options{Timeout: 5 * time.Second}, log),
		Scrambler:  scramble.New(log),
		Mappings:   mappings.NewMemoryStore(15 * time.Minute),
	}, log)
	hub := websocket.NewHub(&websocket.HubConfig{}, log)

	srv, err := New(config.GetDefaults(), eng, hub, &logger.Logger{Logger: log})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func postJSON(t *testing.T, srv *Server, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.RemoteAddr = "192.0.2.10:4321"
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func hasDetection(detections []detect.Detection, it catalog.InformationType) bool {
	for _, d := range detections {
		if d.Type == it {
			return true
		}
	}
	return false
}

// The routing number only exists in the financial rule set, so its presence
// in a response shows whether mode classification ran.
const financialText = "Wire the payment to routing number 021000021 from account number 123456789."

func TestScanAutoDetectDefaultsOn(t *testing.T) {
	srv := newTestServer(t)

	scan := func(t *testing.T, body map[string]interface{}) detect.ScanResult {
		t.Helper()
		w := postJSON(t, srv, "/v1/scan", body)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var result detect.ScanResult
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return result
	}

	t.Run("absent field classifies the mode", func(t *testing.T) {
		result := scan(t, map[string]interface{}{"text": financialText})
		if result.Mode != catalog.ModeFinancial {
			t.Errorf("mode = %s, want %s when auto_detect is omitted", result.Mode, catalog.ModeFinancial)
		}
		if !hasDetection(result.Detections, catalog.TypeRoutingNumber) {
			t.Error("routing number not detected under the classified mode")
		}
	})

	t.Run("explicit false stays general", func(t *testing.T) {
		result := scan(t, map[string]interface{}{"text": financialText, "auto_detect": false})
		if result.Mode != catalog.ModeGeneral {
			t.Errorf("mode = %s, want %s when auto_detect is false", result.Mode, catalog.ModeGeneral)
		}
		if hasDetection(result.Detections, catalog.TypeRoutingNumber) {
			t.Error("financial rule set applied despite auto_detect being false")
		}
	})

	t.Run("explicit true classifies the mode", func(t *testing.T) {
		result := scan(t, map[string]interface{}{"text": financialText, "auto_detect": true})
		if result.Mode != catalog.ModeFinancial {
			t.Errorf("mode = %s, want %s when auto_detect is true", result.Mode, catalog.ModeFinancial)
		}
	})
}

func TestScrambleAutoDetectDefaultsOn(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/v1/scramble", map[string]interface{}{
		"text":       financialText,
		"session_id": "sess-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var out engine.ScrambleOutput
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !hasDetection(out.Detections, catalog.TypeRoutingNumber) {
		t.Error("routing number not scrambled: auto_detect did not default on")
	}
}

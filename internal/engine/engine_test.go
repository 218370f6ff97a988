package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/catalog"
	"github.com/dataveil/dataveil/internal/classify"
	"github.com/dataveil/dataveil/internal/detect"
	"github.com/dataveil/dataveil/internal/mappings"
	"github.com/dataveil/dataveil/internal/scramble"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	log := zap.NewNop()
	cat := catalog.New()
	return New(Deps{
		Catalog:    cat,
		Classifier: classify.New(cat, log),
		Scanner:    detect.NewScanner(cat, detect.Options{Timeout: 5 * time.Second}, log),
		Scrambler:  scramble.New(log),
		Mappings:   mappings.NewMemoryStore(15 * time.Minute),
	}, log)
}

func TestScrambleUnscrambleRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	text := "Patient SSN is 123-45-6789 and the contact is nurse@clinic.org for follow-up."
	out, err := e.Scramble(ctx, text, ScrambleParams{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("Scramble: %v", err)
	}

	if out.MappingToken == "" {
		t.Fatal("no mapping token returned")
	}
	if strings.Contains(out.MaskedText, "123-45-6789") || strings.Contains(out.MaskedText, "nurse@clinic.org") {
		t.Fatalf("masked text leaks the original values: %q", out.MaskedText)
	}
	if !strings.Contains(out.MaskedText, "{{NATIONAL_ID_1}}") {
		t.Errorf("masked text missing placeholder: %q", out.MaskedText)
	}

	restored, err := e.Unscramble(ctx, out.MaskedText, "sess-1", out.MappingToken)
	if err != nil {
		t.Fatalf("Unscramble: %v", err)
	}
	if restored != text {
		t.Errorf("round trip mismatch:\n got %q\nwant %q", restored, text)
	}
}

func TestScrambleHighRiskOnly(t *testing.T) {
	e := newTestEngine(t)

	text := "SSN 123-45-6789, email nurse@clinic.org."
	out, err := e.Scramble(context.Background(), text, ScrambleParams{
		SessionID:    "sess-1",
		HighRiskOnly: true,
	})
	if err != nil {
		t.Fatalf("Scramble: %v", err)
	}

	if strings.Contains(out.MaskedText, "123-45-6789") {
		t.Errorf("high-risk value left in clear: %q", out.MaskedText)
	}
	if !strings.Contains(out.MaskedText, "nurse@clinic.org") {
		t.Errorf("low-risk value was scrambled: %q", out.MaskedText)
	}
}

func TestScrambleRequiresSession(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Scramble(context.Background(), "anything", ScrambleParams{}); err == nil {
		t.Fatal("Scramble without session ID succeeded")
	}
}

func TestUnscrambleTokenIsSingleUse(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	out, err := e.Scramble(ctx, "Reach me at nurse@clinic.org please.", ScrambleParams{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("Scramble: %v", err)
	}

	if _, err := e.Unscramble(ctx, out.MaskedText, "sess-1", out.MappingToken); err != nil {
		t.Fatalf("first Unscramble: %v", err)
	}
	if _, err := e.Unscramble(ctx, out.MaskedText, "sess-1", out.MappingToken); !errors.Is(err, mappings.ErrNotFound) {
		t.Errorf("second Unscramble: err = %v, want ErrNotFound", err)
	}
}

func TestUnscrambleEnforcesSessionOwnership(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	out, err := e.Scramble(ctx, "Reach me at nurse@clinic.org please.", ScrambleParams{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("Scramble: %v", err)
	}

	if _, err := e.Unscramble(ctx, out.MaskedText, "sess-2", out.MappingToken); !errors.Is(err, mappings.ErrNotOwner) {
		t.Errorf("cross-session Unscramble: err = %v, want ErrNotOwner", err)
	}
}

func TestScanAutoDetectClassifiesMode(t *testing.T) {
	e := newTestEngine(t)

	text := "The patient was seen at the hospital; diagnosis recorded, prescription issued, treatment plan updated by the physician."
	result, err := e.Scan(context.Background(), text, "", true)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Mode != catalog.ModeMedical {
		t.Errorf("Mode = %s, want %s", result.Mode, catalog.ModeMedical)
	}
}

func TestMetricsCountScans(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.Scan(ctx, "no sensitive content here", "general", false); err != nil {
			t.Fatalf("Scan: %v", err)
		}
	}

	m := e.Metrics()
	if m.ScansTotal != 3 {
		t.Errorf("ScansTotal = %d, want 3", m.ScansTotal)
	}
	if m.ScansTruncated != 0 {
		t.Errorf("ScansTruncated = %d, want 0", m.ScansTruncated)
	}
}

func TestAuditOperationsWithoutStore(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Sweep(ctx); err == nil {
		t.Error("Sweep without audit store succeeded")
	}
	if _, err := e.ActiveRecords(ctx, "", 10); err == nil {
		t.Error("ActiveRecords without audit store succeeded")
	}
	if _, err := e.GenerateReport(ctx, catalog.FrameworkGDPR, time.Now().Add(-time.Hour), time.Now(), "x"); err == nil {
		t.Error("GenerateReport without audit store succeeded")
	}
}

package classify

import (
	"testing"

	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/catalog"
)

func TestClassify(t *testing.T) {
	c := New(catalog.New(), zap.NewNop())

	tests := []struct {
		name string
		text string
		want catalog.DetectionMode
	}{
		{
			name: "medical narrative",
			text: "The patient was admitted to the hospital after the diagnosis was confirmed by the physician.",
			want: catalog.ModeMedical,
		},
		{
			name: "legal narrative",
			text: "The plaintiff filed a motion with the court; defendant's counsel requested a hearing on the lawsuit.",
			want: catalog.ModeLegal,
		},
		{
			name: "financial narrative",
			text: "Please wire the payment to the account listed on the invoice; the routing number is attached to the statement.",
			want: catalog.ModeFinancial,
		},
		{
			name: "educational narrative",
			text: "The student requested a transcript from the registrar before enrollment for the fall semester.",
			want: catalog.ModeEducational,
		},
		{
			name: "plain text stays general",
			text: "The weather was pleasant and we went for a long walk in the park.",
			want: catalog.ModeGeneral,
		},
		{
			name: "single weak term stays general",
			text: "I visited a doctor once.",
			want: catalog.ModeGeneral,
		},
		{
			name: "empty text stays general",
			text: "",
			want: catalog.ModeGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyTieResolvesToGeneral(t *testing.T) {
	c := New(catalog.New(), zap.NewNop())

	// Three medical terms and three legal terms, none of them indicator
	// phrases: neither domain wins, so no specialization applies.
	text := "The nurse at the hospital sent the treatment file to the attorney before the court issued a subpoena."
	if got := c.Classify(text); got != catalog.ModeGeneral {
		t.Errorf("Classify = %s, want %s on a tied score", got, catalog.ModeGeneral)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New(catalog.New(), zap.NewNop())
	text := "The patient saw the doctor about a prescription after the diagnosis."

	first := c.Classify(text)
	for i := 0; i < 10; i++ {
		if got := c.Classify(text); got != first {
			t.Fatalf("run %d: Classify = %s, previous runs returned %s", i, got, first)
		}
	}
}

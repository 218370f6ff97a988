package catalog

import "testing"

func TestActiveSets(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		mode DetectionMode
		want []DetectionMode
	}{
		{"general runs medical and legal too", ModeGeneral, []DetectionMode{ModeGeneral, ModeMedical, ModeLegal}},
		{"medical adds itself", ModeMedical, []DetectionMode{ModeGeneral, ModeMedical}},
		{"legal adds itself", ModeLegal, []DetectionMode{ModeGeneral, ModeLegal}},
		{"financial adds itself", ModeFinancial, []DetectionMode{ModeGeneral, ModeFinancial}},
		{"educational adds itself", ModeEducational, []DetectionMode{ModeGeneral, ModeEducational}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ActiveSets(tt.mode)
			if len(got) != len(tt.want) {
				t.Fatalf("ActiveSets(%s) = %v, want %v", tt.mode, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ActiveSets(%s)[%d] = %s, want %s", tt.mode, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestHealthcareTypesCarryHIPAA(t *testing.T) {
	c := New()

	for infoType, category := range categoryTable() {
		if category != CategoryHealthcare {
			continue
		}
		found := false
		for _, fw := range c.Frameworks(infoType) {
			if fw == FrameworkHIPAA {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("healthcare type %s does not carry HIPAA", infoType)
		}
	}
}

func TestEveryTypeHasRiskAndCategory(t *testing.T) {
	c := New()
	risks := riskTable()

	for infoType := range categoryTable() {
		if _, ok := risks[infoType]; !ok {
			t.Errorf("type %s has a category but no risk level", infoType)
		}
		if len(c.Frameworks(infoType)) == 0 {
			t.Errorf("type %s has no compliance frameworks", infoType)
		}
	}
}

func TestRiskDefaultsToLow(t *testing.T) {
	c := New()
	if got := c.Risk(InformationType("unknown_thing")); got != RiskLow {
		t.Errorf("Risk(unknown) = %s, want %s", got, RiskLow)
	}
	if got := c.Risk(TypeCreditCard); got != RiskHigh {
		t.Errorf("Risk(credit_card) = %s, want %s", got, RiskHigh)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want DetectionMode
	}{
		{"medical", ModeMedical},
		{"legal", ModeLegal},
		{"financial", ModeFinancial},
		{"educational", ModeEducational},
		{"", ModeGeneral},
		{"bogus", ModeGeneral},
		{"general", ModeGeneral},
	}
	for _, tt := range tests {
		if got := ParseMode(tt.in); got != tt.want {
			t.Errorf("ParseMode(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestGatedTermsAreDrugNames(t *testing.T) {
	c := New()
	terms := c.GatedTerms()
	if len(terms) == 0 {
		t.Fatal("no gated terms")
	}
	for _, term := range terms {
		if term.Type != TypeDrugName {
			t.Errorf("gated term %q has type %s, want %s", term.Term, term.Type, TypeDrugName)
		}
		if len(term.ContextTerms) == 0 {
			t.Errorf("gated term %q has no context terms", term.Term)
		}
	}
}

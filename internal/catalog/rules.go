package catalog

import "regexp"

// Rule is a single detection rule. Keywords, when present, are proximity
// terms: finding one near a match raises confidence, and when RequireKeyword
// is set the match is suppressed entirely unless a keyword is nearby. That
// keeps broad numeric patterns (account numbers, license numbers) from firing
// on every long digit run.
type Rule struct {
	Type           InformationType
	Pattern        *regexp.Regexp
	Keywords       []string
	RequireKeyword bool
}

// GatedTerm is an enumerable sensitive term (e.g. a drug name) reported only
// when qualifying context terms appear within the gated window.
type GatedTerm struct {
	Term         string
	Type         InformationType
	ContextTerms []string
}

func buildRules() map[DetectionMode][]Rule {
	return map[DetectionMode][]Rule{
		ModeGeneral: {
			{
				Type:    TypeNationalID,
				Pattern: regexp.MustCompile(`\b\d{3}[- ]\d{2}[- ]\d{4}\b`),
			},
			{
				Type:    TypeCreditCard,
				Pattern: regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b|\b(?:\d{4}[- ]){3}\d{4}\b`),
			},
			{
				Type:    TypeEmail,
				Pattern: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			},
			{
				Type:    TypePhoneNumber,
				Pattern: regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?[2-9][0-9]{2}\)?[-.\s][0-9]{3}[-.\s]?[0-9]{4}\b`),
			},
			{
				Type:    TypeIPAddress,
				Pattern: regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`),
			},
			{
				Type:    TypeMACAddress,
				Pattern: regexp.MustCompile(`\b(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}\b`),
			},
			{
				Type:     TypeDateOfBirth,
				Pattern:  regexp.MustCompile(`\b(?:0?[1-9]|1[0-2])[/-](?:0?[1-9]|[12][0-9]|3[01])[/-](?:19|20)[0-9]{2}\b`),
				Keywords: []string{"dob", "birth", "born", "birthday"},
			},
			{
				Type:    TypeStreetAddress,
				Pattern: regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Z][a-z]+\s+){1,3}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way)\b\.?`),
			},
			{
				Type:           TypePassportNumber,
				Pattern:        regexp.MustCompile(`\b[A-Z][0-9]{8}\b`),
				Keywords:       []string{"passport"},
				RequireKeyword: true,
			},
			{
				Type:           TypeDriversLicense,
				Pattern:        regexp.MustCompile(`\b[A-Z]{1,2}[0-9]{5,8}\b`),
				Keywords:       []string{"license", "licence", "dl#", "dl "},
				RequireKeyword: true,
			},
			{
				Type:           TypeBankAccount,
				Pattern:        regexp.MustCompile(`\b[0-9]{8,12}\b`),
				Keywords:       []string{"account", "acct", "checking", "savings"},
				RequireKeyword: true,
			},
			{
				Type:    TypeTaxID,
				Pattern: regexp.MustCompile(`\b[0-9]{2}-[0-9]{7}\b`),
			},
			{
				Type:    TypePersonName,
				Pattern: regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof)\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\b`),
			},
			{
				Type:    TypeAPIKey,
				Pattern: regexp.MustCompile(`\b(?:sk|pk|rk)[-_](?:live|test|prod)[-_][A-Za-z0-9]{16,64}\b|\bAKIA[0-9A-Z]{16}\b`),
			},
			{
				Type:    TypeAccessToken,
				Pattern: regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{5,}\b`),
			},
			{
				Type:    TypePassword,
				Pattern: regexp.MustCompile(`(?i)password\s*[:=]\s*\S{6,}`),
			},
			{
				Type:           TypeIMEI,
				Pattern:        regexp.MustCompile(`\b[0-9]{15}\b`),
				Keywords:       []string{"imei", "device"},
				RequireKeyword: true,
			},
			{
				Type:           TypeUsername,
				Pattern:        regexp.MustCompile(`@[A-Za-z][A-Za-z0-9_]{2,19}\b`),
				Keywords:       []string{"username", "handle", "user"},
				RequireKeyword: true,
			},
			{
				Type:           TypeEmployeeID,
				Pattern:        regexp.MustCompile(`(?i)\b(?:emp|employee)\s*(?:id|no\.?|#)?\s*[:#]?\s*[0-9]{4,8}\b`),
				Keywords:       []string{"employee", "emp"},
			},
			{
				Type:    TypeCryptoWallet,
				Pattern: regexp.MustCompile(`\b(?:bc1[a-z0-9]{25,62}|0x[a-fA-F0-9]{40})\b`),
			},
		},
		ModeMedical: {
			{
				Type:     TypeMedicalRecordNumber,
				Pattern:  regexp.MustCompile(`(?i)\bMRN?\s*[:#-]?\s*[0-9]{6,10}\b`),
				Keywords: []string{"patient", "chart", "record", "hospital"},
			},
			{
				Type:           TypeHealthInsuranceID,
				Pattern:        regexp.MustCompile(`\b[A-Z]{3}[0-9]{9}\b`),
				Keywords:       []string{"insurance", "member", "policy", "medicare", "medicaid"},
				RequireKeyword: true,
			},
			{
				Type:     TypeDiagnosisCode,
				Pattern:  regexp.MustCompile(`\b[A-TV-Z][0-9]{2}\.[0-9]{1,4}\b`),
				Keywords: []string{"diagnosis", "diagnosed", "icd", "condition"},
			},
			{
				Type:     TypeDEANumber,
				Pattern:  regexp.MustCompile(`\b[ABCDEFGHJKLMPRSTUX][A-Z][0-9]{7}\b`),
				Keywords: []string{"dea", "prescriber", "prescription"},
			},
			{
				Type:           TypeNPINumber,
				Pattern:        regexp.MustCompile(`\b[0-9]{10}\b`),
				Keywords:       []string{"npi", "provider"},
				RequireKeyword: true,
			},
		},
		ModeLegal: {
			{
				Type:     TypeCaseNumber,
				Pattern:  regexp.MustCompile(`\b[0-9]{1,2}:[0-9]{2}-(?:cv|cr|md|mc|bk)-[0-9]{3,6}\b|(?i)\bcase\s+(?:no\.?|number|#)\s*[:#]?\s*[0-9]{2,4}-[0-9]{2,8}\b`),
				Keywords: []string{"case", "court", "filed", "versus", "v."},
			},
			{
				Type:     TypeCourtDocket,
				Pattern:  regexp.MustCompile(`(?i)\bdocket\s+(?:no\.?|number|#)?\s*[:#]?\s*[A-Z0-9][A-Z0-9-]{3,19}\b`),
				Keywords: []string{"docket", "court"},
			},
			{
				Type:     TypeBarNumber,
				Pattern:  regexp.MustCompile(`(?i)\bbar\s+(?:no\.?|number|#)\s*[:#]?\s*[0-9]{5,8}\b`),
				Keywords: []string{"attorney", "counsel", "esq"},
			},
		},
		ModeFinancial: {
			{
				Type:    TypeIBAN,
				Pattern: regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}\b`),
			},
			{
				Type:           TypeRoutingNumber,
				Pattern:        regexp.MustCompile(`\b[0-9]{9}\b`),
				Keywords:       []string{"routing", "aba", "wire", "ach"},
				RequireKeyword: true,
			},
		},
		ModeEducational: {
			{
				Type:           TypeStudentID,
				Pattern:        regexp.MustCompile(`(?i)\bstudent\s*(?:id|no\.?|#)?\s*[:#]?\s*[0-9]{6,10}\b`),
				Keywords:       []string{"student", "enrollment", "school", "university"},
			},
		},
	}
}

// qualifying context for the drug-name pass
var drugContextTerms = []string{
	"prescribed", "prescription", "dosage", "dose", "medication",
	"taking", "mg", "pharmacy", "refill", "tablet", "daily",
}

func buildGatedTerms() []GatedTerm {
	drugs := []string{
		"lipitor", "metformin", "lisinopril", "atorvastatin", "amlodipine",
		"metoprolol", "omeprazole", "simvastatin", "losartan", "albuterol",
		"gabapentin", "hydrochlorothiazide", "sertraline", "fluoxetine",
		"amoxicillin", "azithromycin", "prednisone", "tramadol", "oxycodone",
		"hydrocodone", "alprazolam", "lorazepam", "zolpidem", "insulin",
		"warfarin", "clopidogrel", "levothyroxine", "pantoprazole",
		"citalopram", "escitalopram", "duloxetine", "venlafaxine",
		"bupropion", "trazodone", "adderall", "ritalin", "xanax", "valium",
		"ozempic", "humira",
	}

	terms := make([]GatedTerm, 0, len(drugs))
	for _, d := range drugs {
		terms = append(terms, GatedTerm{
			Term:         d,
			Type:         TypeDrugName,
			ContextTerms: drugContextTerms,
		})
	}
	return terms
}

func vocabularyTable() map[DetectionMode][]string {
	return map[DetectionMode][]string{
		ModeMedical: {
			"patient", "diagnosis", "treatment", "prescription", "symptom",
			"hospital", "clinic", "physician", "doctor", "nurse", "medical",
			"medication", "dosage", "therapy", "surgical", "lab", "chart",
			"icd", "hipaa", "phi", "health",
		},
		ModeLegal: {
			"plaintiff", "defendant", "attorney", "counsel", "court",
			"lawsuit", "litigation", "deposition", "subpoena", "verdict",
			"settlement", "contract", "statute", "jurisdiction", "filing",
			"motion", "hearing", "privileged", "case",
		},
		ModeFinancial: {
			"account", "payment", "invoice", "transaction", "balance",
			"routing", "wire", "credit", "debit", "loan", "mortgage",
			"interest", "statement", "audit", "ledger",
		},
		ModeEducational: {
			"student", "enrollment", "transcript", "grade", "semester",
			"tuition", "course", "campus", "registrar", "ferpa",
		},
	}
}

func indicatorTable() map[DetectionMode][]string {
	return map[DetectionMode][]string{
		ModeMedical:     {"patient", "diagnosis"},
		ModeLegal:       {"plaintiff", "case number"},
		ModeFinancial:   {"routing number", "account number"},
		ModeEducational: {"student id", "transcript"},
	}
}

package catalog

// InformationType identifies a kind of sensitive information the engine can
// detect. The set is closed: rules, risk levels, and compliance frameworks are
// all keyed by it.
type InformationType string

const (
	// Personal
	TypePersonName     InformationType = "person_name"
	TypeDateOfBirth    InformationType = "date_of_birth"
	TypeStreetAddress  InformationType = "street_address"
	TypeNationalID     InformationType = "national_id"
	TypePassportNumber InformationType = "passport_number"
	TypeDriversLicense InformationType = "drivers_license"

	// Financial
	TypeCreditCard    InformationType = "credit_card"
	TypeBankAccount   InformationType = "bank_account"
	TypeRoutingNumber InformationType = "routing_number"
	TypeIBAN          InformationType = "iban"
	TypeTaxID         InformationType = "tax_id"
	TypeCryptoWallet  InformationType = "crypto_wallet"

	// Contact
	TypeEmail       InformationType = "email"
	TypePhoneNumber InformationType = "phone_number"

	// Healthcare
	TypeMedicalRecordNumber InformationType = "medical_record_number"
	TypeHealthInsuranceID   InformationType = "health_insurance_id"
	TypeDiagnosisCode       InformationType = "diagnosis_code"
	TypeDrugName            InformationType = "drug_name"
	TypeDEANumber           InformationType = "dea_number"
	TypeNPINumber           InformationType = "npi_number"

	// Legal
	TypeCaseNumber  InformationType = "case_number"
	TypeCourtDocket InformationType = "court_docket"
	TypeBarNumber   InformationType = "bar_number"

	// Digital identifiers
	TypeIPAddress  InformationType = "ip_address"
	TypeMACAddress InformationType = "mac_address"
	TypeIMEI       InformationType = "imei"
	TypeUsername   InformationType = "username"

	// Credentials
	TypeAPIKey      InformationType = "api_key"
	TypeAccessToken InformationType = "access_token"
	TypePassword    InformationType = "password"

	// Institutional
	TypeStudentID  InformationType = "student_id"
	TypeEmployeeID InformationType = "employee_id"
)

// Category groups information types for reporting and policy lookup.
type Category string

const (
	CategoryPersonal   Category = "personal"
	CategoryFinancial  Category = "financial"
	CategoryContact    Category = "contact"
	CategoryHealthcare Category = "healthcare"
	CategoryLegal      Category = "legal"
	CategoryDigital    Category = "digital"
	CategoryCredential Category = "credential"
)

// RiskLevel represents the severity assigned to a detection.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ComplianceFramework is a regulatory regime with its own retention and
// handling rules.
type ComplianceFramework string

const (
	FrameworkHIPAA          ComplianceFramework = "HIPAA"
	FrameworkGDPR           ComplianceFramework = "GDPR"
	FrameworkCCPA           ComplianceFramework = "CCPA"
	FrameworkPCIDSS         ComplianceFramework = "PCI_DSS"
	FrameworkAttorneyClient ComplianceFramework = "ATTORNEY_CLIENT"
	FrameworkGLBA           ComplianceFramework = "GLBA"
	FrameworkFERPA          ComplianceFramework = "FERPA"
	FrameworkSOX            ComplianceFramework = "SOX"
)

// DetectionMode selects which specialized rule subsets are active for a scan.
type DetectionMode string

const (
	ModeGeneral     DetectionMode = "general"
	ModeMedical     DetectionMode = "medical"
	ModeLegal       DetectionMode = "legal"
	ModeFinancial   DetectionMode = "financial"
	ModeEducational DetectionMode = "educational"
)

// ParseMode maps a caller-supplied string to a DetectionMode, defaulting to
// general for unknown values.
func ParseMode(s string) DetectionMode {
	switch DetectionMode(s) {
	case ModeMedical, ModeLegal, ModeFinancial, ModeEducational:
		return DetectionMode(s)
	default:
		return ModeGeneral
	}
}

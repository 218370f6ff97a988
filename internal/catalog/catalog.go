package catalog

// Catalog is the immutable registry of detection rules and classification
// tables. It is built once at startup and shared by reference; nothing mutates
// it afterwards, so no locking is required.
type Catalog struct {
	rules      map[DetectionMode][]Rule
	gatedTerms []GatedTerm

	categories map[InformationType]Category
	risk       map[InformationType]RiskLevel
	frameworks map[InformationType][]ComplianceFramework

	vocabulary map[DetectionMode][]string
	indicators map[DetectionMode][]string
}

// New builds the catalog. Patterns are compiled eagerly so a bad rule fails at
// startup rather than mid-scan.
func New() *Catalog {
	return &Catalog{
		rules:      buildRules(),
		gatedTerms: buildGatedTerms(),
		categories: categoryTable(),
		risk:       riskTable(),
		frameworks: frameworkTable(),
		vocabulary: vocabularyTable(),
		indicators: indicatorTable(),
	}
}

// ActiveSets returns the rule sets to run for a detection mode. The general
// set is always active; the medical and legal sets also run under general mode
// so cross-domain signals are not missed.
func (c *Catalog) ActiveSets(mode DetectionMode) []DetectionMode {
	sets := []DetectionMode{ModeGeneral}
	switch mode {
	case ModeGeneral:
		sets = append(sets, ModeMedical, ModeLegal)
	case ModeMedical, ModeLegal, ModeFinancial, ModeEducational:
		sets = append(sets, mode)
	}
	return sets
}

// RuleSet returns the rules belonging to one specialized set.
func (c *Catalog) RuleSet(set DetectionMode) []Rule {
	return c.rules[set]
}

// GatedTerms returns the enumerable terms (drug names and the like) that are
// only reported when bracketed by qualifying context.
func (c *Catalog) GatedTerms() []GatedTerm {
	return c.gatedTerms
}

// Category returns the grouping for an information type.
func (c *Catalog) Category(t InformationType) Category {
	return c.categories[t]
}

// Risk returns the static risk level for an information type.
func (c *Catalog) Risk(t InformationType) RiskLevel {
	if r, ok := c.risk[t]; ok {
		return r
	}
	return RiskLow
}

// Frameworks returns the compliance frameworks that regulate an information
// type. The returned slice must not be modified.
func (c *Catalog) Frameworks(t InformationType) []ComplianceFramework {
	return c.frameworks[t]
}

// Vocabulary returns the domain vocabulary terms used by the context
// classifier for a mode.
func (c *Catalog) Vocabulary(mode DetectionMode) []string {
	return c.vocabulary[mode]
}

// Indicators returns the strong indicator phrases for a mode. Each occurrence
// is worth a fixed classification bonus.
func (c *Catalog) Indicators(mode DetectionMode) []string {
	return c.indicators[mode]
}

func categoryTable() map[InformationType]Category {
	return map[InformationType]Category{
		TypePersonName:     CategoryPersonal,
		TypeDateOfBirth:    CategoryPersonal,
		TypeStreetAddress:  CategoryPersonal,
		TypeNationalID:     CategoryPersonal,
		TypePassportNumber: CategoryPersonal,
		TypeDriversLicense: CategoryPersonal,

		TypeCreditCard:    CategoryFinancial,
		TypeBankAccount:   CategoryFinancial,
		TypeRoutingNumber: CategoryFinancial,
		TypeIBAN:          CategoryFinancial,
		TypeTaxID:         CategoryFinancial,
		TypeCryptoWallet:  CategoryFinancial,

		TypeEmail:       CategoryContact,
		TypePhoneNumber: CategoryContact,

		TypeMedicalRecordNumber: CategoryHealthcare,
		TypeHealthInsuranceID:   CategoryHealthcare,
		TypeDiagnosisCode:       CategoryHealthcare,
		TypeDrugName:            CategoryHealthcare,
		TypeDEANumber:           CategoryHealthcare,
		TypeNPINumber:           CategoryHealthcare,

		TypeCaseNumber:  CategoryLegal,
		TypeCourtDocket: CategoryLegal,
		TypeBarNumber:   CategoryLegal,

		TypeIPAddress:  CategoryDigital,
		TypeMACAddress: CategoryDigital,
		TypeIMEI:       CategoryDigital,
		TypeUsername:   CategoryDigital,

		TypeAPIKey:      CategoryCredential,
		TypeAccessToken: CategoryCredential,
		TypePassword:    CategoryCredential,

		TypeStudentID:  CategoryPersonal,
		TypeEmployeeID: CategoryPersonal,
	}
}

func riskTable() map[InformationType]RiskLevel {
	return map[InformationType]RiskLevel{
		TypePersonName:     RiskLow,
		TypeDateOfBirth:    RiskMedium,
		TypeStreetAddress:  RiskMedium,
		TypeNationalID:     RiskHigh,
		TypePassportNumber: RiskHigh,
		TypeDriversLicense: RiskMedium,

		TypeCreditCard:    RiskHigh,
		TypeBankAccount:   RiskHigh,
		TypeRoutingNumber: RiskHigh,
		TypeIBAN:          RiskHigh,
		TypeTaxID:         RiskHigh,
		TypeCryptoWallet:  RiskMedium,

		TypeEmail:       RiskLow,
		TypePhoneNumber: RiskLow,

		TypeMedicalRecordNumber: RiskHigh,
		TypeHealthInsuranceID:   RiskHigh,
		TypeDiagnosisCode:       RiskHigh,
		TypeDrugName:            RiskMedium,
		TypeDEANumber:           RiskHigh,
		TypeNPINumber:           RiskMedium,

		TypeCaseNumber:  RiskMedium,
		TypeCourtDocket: RiskMedium,
		TypeBarNumber:   RiskMedium,

		TypeIPAddress:  RiskLow,
		TypeMACAddress: RiskLow,
		TypeIMEI:       RiskMedium,
		TypeUsername:   RiskLow,

		TypeAPIKey:      RiskHigh,
		TypeAccessToken: RiskHigh,
		TypePassword:    RiskHigh,

		TypeStudentID:  RiskMedium,
		TypeEmployeeID: RiskMedium,
	}
}

func frameworkTable() map[InformationType][]ComplianceFramework {
	return map[InformationType][]ComplianceFramework{
		TypePersonName:     {FrameworkGDPR, FrameworkCCPA},
		TypeDateOfBirth:    {FrameworkGDPR, FrameworkCCPA, FrameworkHIPAA},
		TypeStreetAddress:  {FrameworkGDPR, FrameworkCCPA},
		TypeNationalID:     {FrameworkGDPR, FrameworkCCPA, FrameworkGLBA},
		TypePassportNumber: {FrameworkGDPR, FrameworkCCPA},
		TypeDriversLicense: {FrameworkGDPR, FrameworkCCPA},

		TypeCreditCard:    {FrameworkPCIDSS, FrameworkGLBA, FrameworkGDPR},
		TypeBankAccount:   {FrameworkGLBA, FrameworkGDPR, FrameworkSOX},
		TypeRoutingNumber: {FrameworkGLBA, FrameworkSOX},
		TypeIBAN:          {FrameworkGLBA, FrameworkGDPR},
		TypeTaxID:         {FrameworkGLBA, FrameworkSOX},
		TypeCryptoWallet:  {FrameworkGDPR},

		TypeEmail:       {FrameworkGDPR, FrameworkCCPA},
		TypePhoneNumber: {FrameworkGDPR, FrameworkCCPA},

		TypeMedicalRecordNumber: {FrameworkHIPAA, FrameworkGDPR},
		TypeHealthInsuranceID:   {FrameworkHIPAA, FrameworkGDPR},
		TypeDiagnosisCode:       {FrameworkHIPAA, FrameworkGDPR},
		TypeDrugName:            {FrameworkHIPAA},
		TypeDEANumber:           {FrameworkHIPAA},
		TypeNPINumber:           {FrameworkHIPAA},

		TypeCaseNumber:  {FrameworkAttorneyClient},
		TypeCourtDocket: {FrameworkAttorneyClient},
		TypeBarNumber:   {FrameworkAttorneyClient},

		TypeIPAddress:  {FrameworkGDPR, FrameworkCCPA},
		TypeMACAddress: {FrameworkGDPR},
		TypeIMEI:       {FrameworkGDPR, FrameworkCCPA},
		TypeUsername:   {FrameworkGDPR, FrameworkCCPA},

		TypeAPIKey:      {FrameworkSOX},
		TypeAccessToken: {FrameworkSOX},
		TypePassword:    {FrameworkSOX, FrameworkGDPR},

		TypeStudentID:  {FrameworkFERPA},
		TypeEmployeeID: {FrameworkGDPR, FrameworkCCPA},
	}
}

package audit

import (
	"time"

	"github.com/dataveil/dataveil/internal/catalog"
)

// RetentionPolicy is one (framework, information type) retention entry.
type RetentionPolicy struct {
	RetentionDays   int `yaml:"retention_days" mapstructure:"retention_days"`
	GracePeriodDays int `yaml:"grace_period_days" mapstructure:"grace_period_days"`
}

// Records with no mapped grace period wait this long after expiry before the
// sweep removes them.
const defaultGraceDays = 30

type policyKey struct {
	framework catalog.ComplianceFramework
	infoType  catalog.InformationType
}

// PolicyTable resolves retention windows and grace periods. Built once from
// configuration and never mutated.
type PolicyTable struct {
	overrides map[policyKey]RetentionPolicy
	defaults  map[catalog.ComplianceFramework]int
}

// frameworkRetentionDays are the default retention windows, in days. The
// values follow each regime's record-keeping floor (HIPAA six years, SOX and
// GLBA seven, and so on).
func frameworkRetentionDays() map[catalog.ComplianceFramework]int {
	return map[catalog.ComplianceFramework]int{
		catalog.FrameworkHIPAA:          2190,
		catalog.FrameworkGDPR:           1095,
		catalog.FrameworkCCPA:           730,
		catalog.FrameworkPCIDSS:         365,
		catalog.FrameworkAttorneyClient: 2555,
		catalog.FrameworkGLBA:           2555,
		catalog.FrameworkFERPA:          1825,
		catalog.FrameworkSOX:            2555,
	}
}

// NewPolicyTable builds the table. Overrides are keyed "FRAMEWORK/type", e.g.
// "PCI_DSS/credit_card", and win over the per-framework defaults.
func NewPolicyTable(overrides map[string]RetentionPolicy) *PolicyTable {
	table := &PolicyTable{
		overrides: make(map[policyKey]RetentionPolicy, len(overrides)),
		defaults:  frameworkRetentionDays(),
	}
	for key, policy := range overrides {
		fw, it, ok := splitPolicyKey(key)
		if !ok {
			continue
		}
		table.overrides[policyKey{framework: fw, infoType: it}] = policy
	}
	return table
}

// RetentionDays returns the retention window for one (framework, type) pair.
func (t *PolicyTable) RetentionDays(fw catalog.ComplianceFramework, it catalog.InformationType) int {
	if p, ok := t.overrides[policyKey{framework: fw, infoType: it}]; ok {
		return p.RetentionDays
	}
	if days, ok := t.defaults[fw]; ok {
		return days
	}
	return 365
}

// Expiry computes when a record detected at the given time expires. When a
// value is regulated under several frameworks at once the longest window wins,
// the conservative default until the combining rule is confirmed upstream.
func (t *PolicyTable) Expiry(detectedAt time.Time, frameworks []catalog.ComplianceFramework, it catalog.InformationType) time.Time {
	longest := 0
	for _, fw := range frameworks {
		if days := t.RetentionDays(fw, it); days > longest {
			longest = days
		}
	}
	if longest == 0 {
		longest = 365
	}
	return detectedAt.AddDate(0, 0, longest)
}

// Grace returns how long past expiry a record survives before the sweep soft
// deletes it, looked up by (framework, type) with a 30-day default.
func (t *PolicyTable) Grace(fw catalog.ComplianceFramework, it catalog.InformationType) time.Duration {
	if p, ok := t.overrides[policyKey{framework: fw, infoType: it}]; ok && p.GracePeriodDays > 0 {
		return time.Duration(p.GracePeriodDays) * 24 * time.Hour
	}
	return defaultGraceDays * 24 * time.Hour
}

func splitPolicyKey(key string) (catalog.ComplianceFramework, catalog.InformationType, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return catalog.ComplianceFramework(key[:i]), catalog.InformationType(key[i+1:]), true
		}
	}
	return "", "", false
}

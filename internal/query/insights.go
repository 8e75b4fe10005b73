package query

import (
	"math"
	"sort"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// Assessment tiers by aggregate issue rate.
const (
	TierExcellent = "Excellent"
	TierGood      = "Good"
	TierModerate  = "Moderate"
	TierPoor      = "Poor"
	TierNoData    = "No Data"
)

// Compliance states.
const (
	StatusCompliant    = "Compliant"
	StatusAtRisk       = "At Risk"
	StatusNonCompliant = "Non-Compliant"
	StatusExcellent    = "Excellent"
	StatusGood         = "Good"
	StatusNeedsWork    = "Needs Improvement"
)

// Severity levels for critical issues.
const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
)

// insightCategories are the stats that feed the aggregate issue rate.
var insightCategories = []string{
	domain.StatExpiredLicenses,
	domain.StatMissingNPI,
	domain.StatPhoneIssues,
	domain.StatDuplicates,
}

type criticalThreshold struct {
	percentage float64
	severity   string
}

var criticalThresholds = map[string]criticalThreshold{
	domain.StatExpiredLicenses: {10, SeverityHigh},
	domain.StatMissingNPI:      {5, SeverityHigh},
	domain.StatPhoneIssues:     {15, SeverityMedium},
	domain.StatDuplicates:      {3, SeverityHigh},
}

// CriticalIssue is a stat category above its alert threshold.
type CriticalIssue struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Threshold  float64 `json:"threshold"`
	Severity   string  `json:"severity"`
}

// Recommendation is a follow-up action triggered by a stat threshold.
type Recommendation struct {
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

type recommendationRule struct {
	stat      string
	threshold float64
	rec       Recommendation
}

// recommendationRules fire when the stat percentage is strictly above the
// threshold.
var recommendationRules = []recommendationRule{
	{domain.StatExpiredLicenses, 5, Recommendation{
		Category:    "License Management",
		Priority:    SeverityHigh,
		Action:      "Implement automated license expiration alerts 90 days before expiry",
		Description: "Monitor upcoming expirations so licenses are renewed before they lapse",
	}},
	{domain.StatMissingNPI, 2, Recommendation{
		Category:    "NPI Verification",
		Priority:    SeverityHigh,
		Action:      "Require NPI validation during provider onboarding",
		Description: "Collect a valid NPI for every new provider and backfill existing records",
	}},
	{domain.StatPhoneIssues, 10, Recommendation{
		Category:    "Data Standardization",
		Priority:    SeverityMedium,
		Action:      "Validate and format phone numbers at entry",
		Description: "Normalize phone numbers to (XXX) XXX-XXXX before they reach the roster",
	}},
	{domain.StatDuplicates, 1, Recommendation{
		Category:    "Data Deduplication",
		Priority:    SeverityHigh,
		Action:      "Add a duplicate review and merge workflow",
		Description: "Review candidate duplicate pairs and merge confirmed matches",
	}},
}

// governanceRecommendation is always present.
var governanceRecommendation = Recommendation{
	Category:    "Data Governance",
	Priority:    SeverityMedium,
	Action:      "Establish regular data quality monitoring and reporting",
	Description: "Run a monthly quality assessment and track the score over time",
}

// Risk area dimensions.
const (
	RiskDimensionState     = "state"
	RiskDimensionSpecialty = "specialty"
)

// riskPercentile is the cut above which a group counts as high risk.
const riskPercentile = 0.8

// RiskArea lists the high-risk groups of one dimension.
type RiskArea struct {
	Dimension string   `json:"dimension"`
	Groups    []string `json:"groups"`
}

// Insights is a rule-based assessment of the snapshot.
type Insights struct {
	Assessment       string            `json:"assessment"`
	IssueRate        float64           `json:"issue_rate"`
	CriticalIssues   []CriticalIssue   `json:"critical_issues"`
	Recommendations  []Recommendation  `json:"recommendations"`
	RiskAreas        []RiskArea        `json:"risk_areas"`
	ComplianceStatus map[string]string `json:"compliance_status"`
}

// BuildInsights grades the snapshot. The aggregate issue rate is the sum of
// the four headline counts over four times the roster size, in percent.
func BuildInsights(snap *domain.Snapshot) Insights {
	out := Insights{
		CriticalIssues:   []CriticalIssue{},
		Recommendations:  Recommendations(snap.Stats),
		RiskAreas:        RiskAreas(snap),
		ComplianceStatus: map[string]string{},
	}
	total := snap.Total()
	if total == 0 {
		out.Assessment = TierNoData
		return out
	}

	issues := 0
	for _, c := range insightCategories {
		issues += snap.Stats[c].Count
	}
	out.IssueRate = float64(issues) / float64(total*len(insightCategories)) * 100

	switch {
	case out.IssueRate < 5:
		out.Assessment = TierExcellent
	case out.IssueRate < 15:
		out.Assessment = TierGood
	case out.IssueRate < 30:
		out.Assessment = TierModerate
	default:
		out.Assessment = TierPoor
	}

	for _, c := range insightCategories {
		th := criticalThresholds[c]
		stat := snap.Stats[c]
		if stat.Percentage > th.percentage {
			out.CriticalIssues = append(out.CriticalIssues, CriticalIssue{
				Category:   c,
				Count:      stat.Count,
				Percentage: stat.Percentage,
				Threshold:  th.percentage,
				Severity:   th.severity,
			})
		}
	}
	sort.SliceStable(out.CriticalIssues, func(i, j int) bool {
		a, b := out.CriticalIssues[i], out.CriticalIssues[j]
		if a.Severity != b.Severity {
			return a.Severity == SeverityHigh
		}
		return a.Percentage > b.Percentage
	})

	out.ComplianceStatus["license"] = tiered(snap.Stats[domain.StatExpiredLicenses].Percentage, 1, 5)
	out.ComplianceStatus["npi"] = tiered(snap.Stats[domain.StatMissingNPI].Percentage, 1, 3)

	quality := 100 - out.IssueRate
	switch {
	case quality > 90:
		out.ComplianceStatus["data_quality"] = StatusExcellent
	case quality > 75:
		out.ComplianceStatus["data_quality"] = StatusGood
	default:
		out.ComplianceStatus["data_quality"] = StatusNeedsWork
	}

	return out
}

func tiered(pct, compliant, atRisk float64) string {
	switch {
	case pct < compliant:
		return StatusCompliant
	case pct < atRisk:
		return StatusAtRisk
	default:
		return StatusNonCompliant
	}
}

// Recommendations returns the triggered actions in rule order, followed by the
// governance item.
func Recommendations(stats domain.DashboardStats) []Recommendation {
	out := []Recommendation{}
	for _, rule := range recommendationRules {
		if stat, ok := stats[rule.stat]; ok && stat.Percentage > rule.threshold {
			out = append(out, rule.rec)
		}
	}
	return append(out, governanceRecommendation)
}

// RiskAreas returns the states (at most 5) and specialties (at most 3) whose
// headline issue count is above the 80th percentile of their dimension.
// Blank groups are left out and groups are listed in name order.
func RiskAreas(snap *domain.Snapshot) []RiskArea {
	out := []RiskArea{}
	if groups := highRiskGroups(StateSummary(snap), 5); len(groups) > 0 {
		out = append(out, RiskArea{Dimension: RiskDimensionState, Groups: groups})
	}
	if groups := highRiskGroups(SpecialtySummary(snap), 3); len(groups) > 0 {
		out = append(out, RiskArea{Dimension: RiskDimensionSpecialty, Groups: groups})
	}
	return out
}

// headlineIssues counts the four issues behind the aggregate issue rate.
func headlineIssues(g GroupSummary) float64 {
	return float64(g.LicenseExpired + g.NPIMissing + g.PhoneIssue + g.DuplicateSuspect)
}

func highRiskGroups(summaries []GroupSummary, limit int) []string {
	named := make([]GroupSummary, 0, len(summaries))
	values := make([]float64, 0, len(summaries))
	for _, g := range summaries {
		if g.Group == UnknownGroup {
			continue
		}
		named = append(named, g)
		values = append(values, headlineIssues(g))
	}
	if len(named) == 0 {
		return nil
	}

	cut := percentile(values, riskPercentile)
	sort.Slice(named, func(i, j int) bool { return named[i].Group < named[j].Group })

	var out []string
	for _, g := range named {
		if headlineIssues(g) > cut {
			out = append(out, g.Group)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// percentile interpolates linearly between the closest ranks.
func percentile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

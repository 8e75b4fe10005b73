// Package query answers named read operations over a published snapshot and
// routes resolved intents to them.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// UnknownGroup labels records whose grouping field is blank.
const UnknownGroup = "UNKNOWN"

// GroupSummary counts issue flags for one state or specialty.
type GroupSummary struct {
	Group                   string `json:"group"`
	TotalRecords            int    `json:"total_records"`
	LicenseExpired          int    `json:"license_expired"`
	LicenseStateMismatch    int    `json:"license_state_mismatch"`
	NPIMissing              int    `json:"npi_missing"`
	PhoneIssue              int    `json:"phone_issue"`
	SpecialtyMissing        int    `json:"specialty_missing"`
	DuplicateSuspect        int    `json:"duplicate_suspect"`
	MultiStateSingleLicense int    `json:"multi_state_single_license"`
	TotalIssues             int    `json:"total_issues"`
}

func (g *GroupSummary) add(r *domain.AugmentedRecord) {
	g.TotalRecords++
	g.LicenseExpired += b2i(r.LicenseExpired)
	g.LicenseStateMismatch += b2i(r.LicenseStateMismatch)
	g.NPIMissing += b2i(r.NPIMissing)
	g.PhoneIssue += b2i(r.PhoneIssue)
	g.SpecialtyMissing += b2i(r.SpecialtyMissing)
	g.DuplicateSuspect += b2i(r.DuplicateSuspect)
	g.MultiStateSingleLicense += b2i(r.MultiStateSingleLicense)
	g.TotalIssues += r.IssueCount()
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func groupBy(snap *domain.Snapshot, key func(*domain.AugmentedRecord) string) []GroupSummary {
	groups := make(map[string]*GroupSummary)
	for i := range snap.Records {
		r := &snap.Records[i]
		k := strings.TrimSpace(key(r))
		if k == "" {
			k = UnknownGroup
		}
		g, ok := groups[k]
		if !ok {
			g = &GroupSummary{Group: k}
			groups[k] = g
		}
		g.add(r)
	}

	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	return out
}

// StateSummary rolls issues up by practicing state, ordered by state code.
func StateSummary(snap *domain.Snapshot) []GroupSummary {
	out := groupBy(snap, func(r *domain.AugmentedRecord) string {
		return strings.ToUpper(r.AddressState)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// SpecialtySummary rolls issues up by specialty, most issues first.
func SpecialtySummary(snap *domain.Snapshot) []GroupSummary {
	out := groupBy(snap, func(r *domain.AugmentedRecord) string { return r.Specialty })
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalIssues != out[j].TotalIssues {
			return out[i].TotalIssues > out[j].TotalIssues
		}
		return out[i].Group < out[j].Group
	})
	return out
}

func filter(snap *domain.Snapshot, keep func(*domain.AugmentedRecord) bool) []domain.AugmentedRecord {
	out := []domain.AugmentedRecord{}
	for i := range snap.Records {
		if keep(&snap.Records[i]) {
			out = append(out, snap.Records[i])
		}
	}
	return out
}

// ComplianceReport lists records with an expired license or a state mismatch.
func ComplianceReport(snap *domain.Snapshot) []domain.AugmentedRecord {
	return filter(snap, func(r *domain.AugmentedRecord) bool {
		return r.LicenseExpired || r.LicenseStateMismatch
	})
}

// ExpirationWindow lists records whose best known expiration falls within
// [today, today+days]. Records without a date never match.
func ExpirationWindow(snap *domain.Snapshot, days int) []domain.AugmentedRecord {
	if days < 0 {
		return []domain.AugmentedRecord{}
	}
	start := snap.Today
	end := start.AddDate(0, 0, days)
	return filter(snap, func(r *domain.AugmentedRecord) bool {
		d := r.BestExpiration()
		return d != nil && !d.Before(start) && !d.After(end)
	})
}

// ExpiredLicenseCount counts records flagged as expired.
func ExpiredLicenseCount(snap *domain.Snapshot) int {
	return len(filter(snap, func(r *domain.AugmentedRecord) bool { return r.LicenseExpired }))
}

// PhoneIssues lists records with a blank or malformed phone.
func PhoneIssues(snap *domain.Snapshot) []domain.AugmentedRecord {
	return filter(snap, func(r *domain.AugmentedRecord) bool { return r.PhoneIssue })
}

// MissingNPI lists records with a blank identifier.
func MissingNPI(snap *domain.Snapshot) []domain.AugmentedRecord {
	return filter(snap, func(r *domain.AugmentedRecord) bool { return r.NPIMissing })
}

// DuplicateRecords lists records that appear in at least one duplicate pair.
func DuplicateRecords(snap *domain.Snapshot) []domain.AugmentedRecord {
	return filter(snap, func(r *domain.AugmentedRecord) bool { return r.DuplicateSuspect })
}

// MultiStateSingleLicense lists records flagged by the multi-state check.
func MultiStateSingleLicense(snap *domain.Snapshot) []domain.AugmentedRecord {
	return filter(snap, func(r *domain.AugmentedRecord) bool { return r.MultiStateSingleLicense })
}

// ExportList lists every record carrying at least one issue, for a
// credentialing update run.
func ExportList(snap *domain.Snapshot) []domain.AugmentedRecord {
	return filter(snap, func(r *domain.AugmentedRecord) bool { return r.AnyIssue() })
}

// PairView is a duplicate pair with both sides resolved to provider names.
type PairView struct {
	domain.DuplicatePair
	ProviderIDA string `json:"provider_id_a"`
	ProviderIDB string `json:"provider_id_b"`
	NameA       string `json:"full_name_a"`
	NameB       string `json:"full_name_b"`
}

// DuplicatePairs lists candidate pairs ordered by index.
func DuplicatePairs(snap *domain.Snapshot) []PairView {
	out := make([]PairView, 0, len(snap.Pairs))
	for _, p := range snap.Pairs {
		a, b := &snap.Records[p.IndexA], &snap.Records[p.IndexB]
		out = append(out, PairView{
			DuplicatePair: p,
			ProviderIDA:   a.ProviderID,
			ProviderIDB:   b.ProviderID,
			NameA:         a.FullName,
			NameB:         b.FullName,
		})
	}
	return out
}

// ScoreReport is the overall score with its dashboard counts.
type ScoreReport struct {
	SnapshotID string                `json:"snapshot_id"`
	LoadedAt   time.Time             `json:"loaded_at"`
	Score      domain.QualityScore   `json:"quality_score"`
	Stats      domain.DashboardStats `json:"stats"`
}

// OverallScore returns the score and stats of the snapshot.
func OverallScore(snap *domain.Snapshot) ScoreReport {
	return ScoreReport{
		SnapshotID: snap.ID,
		LoadedAt:   snap.LoadedAt,
		Score:      snap.Score,
		Stats:      snap.Stats,
	}
}

// MonthCount is the number of licenses expiring in one calendar month.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// TimelineMonths is how far ahead ExpirationTimeline looks.
const TimelineMonths = 24

// ExpirationTimeline counts upcoming expirations per month, starting with the
// current month. Past dates are excluded.
func ExpirationTimeline(snap *domain.Snapshot) []MonthCount {
	today := snap.Today
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := make([]MonthCount, TimelineMonths)
	for i := range out {
		out[i].Month = first.AddDate(0, i, 0).Format("2006-01")
	}

	for i := range snap.Records {
		d := snap.Records[i].BestExpiration()
		if d == nil || d.Before(today) {
			continue
		}
		offset := (d.Year()-first.Year())*12 + int(d.Month()) - int(first.Month())
		if offset < TimelineMonths {
			out[offset].Count++
		}
	}
	return out
}

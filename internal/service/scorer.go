package service

import (
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// categoryFlags selects the flag each scoring category counts.
var categoryFlags = map[string]func(*domain.AugmentedRecord) bool{
	domain.CategoryLicense:       func(r *domain.AugmentedRecord) bool { return r.LicenseExpired },
	domain.CategoryNPI:           func(r *domain.AugmentedRecord) bool { return r.NPIMissing },
	domain.CategoryDuplicates:    func(r *domain.AugmentedRecord) bool { return r.DuplicateSuspect },
	domain.CategoryContactFormat: func(r *domain.AugmentedRecord) bool { return r.PhoneIssue },
	domain.CategoryMismatches:    func(r *domain.AugmentedRecord) bool { return r.LicenseStateMismatch },
}

// Scorer turns flag prevalence into the weighted quality score.
// Weights are validated when configuration loads.
type Scorer struct {
	weights map[string]float64
}

// NewScorer creates a scorer over a private copy of the weights
func NewScorer(weights map[string]float64) *Scorer {
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &Scorer{weights: w}
}

// Score computes 100 minus the weighted sum of per-category issue rates,
// clamped to [0, 100]. An empty roster scores 100.
func (s *Scorer) Score(records []domain.AugmentedRecord) domain.QualityScore {
	total := len(records)
	result := domain.QualityScore{
		Score:        100,
		TotalRecords: total,
		Categories:   make(map[string]domain.CategoryRate, len(domain.ScoringCategories)),
	}

	penalty := 0.0
	for _, category := range domain.ScoringCategories {
		weight := s.weights[category]
		flagged := countWhere(records, categoryFlags[category])

		rate := 0.0
		if total > 0 {
			rate = float64(flagged) / float64(total)
		}
		result.Categories[category] = domain.CategoryRate{
			Weight:    weight,
			Flagged:   flagged,
			IssueRate: rate,
			Penalty:   weight * rate,
		}
		penalty += weight * rate
	}

	result.Score = clamp(100-penalty, 0, 100)
	return result
}

// Stats builds the dashboard counts and percentages.
func (s *Scorer) Stats(records []domain.AugmentedRecord) domain.DashboardStats {
	total := len(records)
	entry := func(pred func(*domain.AugmentedRecord) bool) domain.StatEntry {
		n := countWhere(records, pred)
		pct := 0.0
		if total > 0 {
			pct = float64(n) / float64(total) * 100
		}
		return domain.StatEntry{Count: n, Percentage: pct}
	}

	return domain.DashboardStats{
		domain.StatExpiredLicenses:      entry(categoryFlags[domain.CategoryLicense]),
		domain.StatMissingNPI:           entry(categoryFlags[domain.CategoryNPI]),
		domain.StatPhoneIssues:          entry(categoryFlags[domain.CategoryContactFormat]),
		domain.StatDuplicates:           entry(categoryFlags[domain.CategoryDuplicates]),
		domain.StatLicenseStateMismatch: entry(categoryFlags[domain.CategoryMismatches]),
	}
}

func countWhere(records []domain.AugmentedRecord, pred func(*domain.AugmentedRecord) bool) int {
	n := 0
	for i := range records {
		if pred(&records[i]) {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

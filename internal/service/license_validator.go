package service

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// LicenseResult holds the license flags for one roster record.
type LicenseResult struct {
	Found         bool
	Expired       bool
	StateMismatch bool
	// State and Expiration come from the matched registry row.
	State      string
	Expiration *time.Time
}

// LicenseValidator joins the roster to the union of state license registries.
type LicenseValidator struct {
	logger *logrus.Logger
}

// NewLicenseValidator creates a new license validator
func NewLicenseValidator(logger *logrus.Logger) *LicenseValidator {
	return &LicenseValidator{logger: logger}
}

// Validate returns exactly one result per roster record, in roster order.
// Registry rows are first reduced to one row per license number so the join
// can never fan out.
func (v *LicenseValidator) Validate(roster []domain.RosterRecord, registry []domain.RegistryRecord, today time.Time) []LicenseResult {
	reference := DedupLicenses(registry)

	results := make([]LicenseResult, len(roster))
	found := 0
	for i := range roster {
		rec := &roster[i]
		res := LicenseResult{}

		number := strings.TrimSpace(rec.LicenseNumber)
		if row, ok := reference[number]; ok && number != "" {
			res.Found = true
			res.State = row.Authority
			res.Expiration = row.Expiration
			found++
		}

		rosterState := strings.ToUpper(strings.TrimSpace(rec.LicenseState))
		res.StateMismatch = res.Found && res.State != "" && rosterState != "" && res.State != rosterState

		best := res.Expiration
		if best == nil {
			best = rec.LicenseExpiration
		}
		res.Expired = best != nil && best.Before(today)

		results[i] = res
	}

	v.logger.WithFields(logrus.Fields{
		"roster_records": len(roster),
		"registry_rows":  len(registry),
		"unique_numbers": len(reference),
		"matched":        found,
	}).Info("Completed license validation")

	return results
}

// DedupLicenses keeps one registry row per license number. The row with the
// latest expiration wins; a dated row beats an undated one; on equal dates
// the lexicographically smallest issuing state wins. Blank numbers are dropped.
func DedupLicenses(rows []domain.RegistryRecord) map[string]domain.RegistryRecord {
	out := make(map[string]domain.RegistryRecord, len(rows))
	for _, row := range rows {
		number := strings.TrimSpace(row.LicenseNumber)
		if number == "" {
			continue
		}
		row.LicenseNumber = number
		row.Authority = strings.ToUpper(strings.TrimSpace(row.Authority))

		current, ok := out[number]
		if !ok || preferLicense(row, current) {
			out[number] = row
		}
	}
	return out
}

// preferLicense reports whether a should replace b.
func preferLicense(a, b domain.RegistryRecord) bool {
	switch {
	case a.Expiration != nil && b.Expiration == nil:
		return true
	case a.Expiration == nil && b.Expiration != nil:
		return false
	case a.Expiration != nil && !a.Expiration.Equal(*b.Expiration):
		return a.Expiration.After(*b.Expiration)
	}
	return a.Authority < b.Authority
}

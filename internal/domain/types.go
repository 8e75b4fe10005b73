package domain

import (
	"time"
)

// Canonical roster field names produced by the schema normalizer.
const (
	FieldProviderID            = "provider_id"
	FieldFirstName             = "first_name"
	FieldLastName              = "last_name"
	FieldFullName              = "full_name"
	FieldNPI                   = "npi"
	FieldLicenseNumber         = "license_number"
	FieldLicenseState          = "license_state"
	FieldLicenseExpirationDate = "license_expiration_date"
	FieldSpecialty             = "specialty"
	FieldPhone                 = "phone"
	FieldEmail                 = "email"
	FieldAddressLine1          = "address_line1"
	FieldAddressCity           = "address_city"
	FieldAddressState          = "address_state"
	FieldAddressZip            = "address_zip"
)

// RosterRecord is one provider row from the input roster.
// It is never modified after the loader builds it.
type RosterRecord struct {
	ProviderID        string            `json:"provider_id"`
	FirstName         string            `json:"first_name,omitempty"`
	LastName          string            `json:"last_name,omitempty"`
	FullName          string            `json:"full_name"`
	NPI               string            `json:"npi"`
	LicenseNumber     string            `json:"license_number"`
	LicenseState      string            `json:"license_state"`
	LicenseExpiration *time.Time        `json:"license_expiration_date,omitempty"`
	Specialty         string            `json:"specialty"`
	Phone             string            `json:"phone"`
	Email             string            `json:"email,omitempty"`
	AddressLine1      string            `json:"address_line1,omitempty"`
	AddressCity       string            `json:"address_city,omitempty"`
	AddressState      string            `json:"address_state"`
	AddressZip        string            `json:"address_zip,omitempty"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// RegistryRecord is a reference row from a license registry or the NPI registry.
// Authority is the issuing state code for license registries and empty for NPI.
type RegistryRecord struct {
	Authority     string     `json:"authority,omitempty"`
	LicenseNumber string     `json:"license_number,omitempty"`
	Expiration    *time.Time `json:"expiration,omitempty"`
	NPI           string     `json:"npi,omitempty"`
}

// Flags holds every derived data-quality signal for one record.
type Flags struct {
	LicenseFound            bool `json:"license_found"`
	LicenseExpired          bool `json:"license_expired"`
	LicenseStateMismatch    bool `json:"license_state_mismatch"`
	NPIFound                bool `json:"npi_found"`
	NPIMissing              bool `json:"npi_missing"`
	PhoneIssue              bool `json:"phone_issue"`
	SpecialtyMissing        bool `json:"specialty_missing"`
	DuplicateSuspect        bool `json:"duplicate_suspect"`
	MultiStateSingleLicense bool `json:"multi_state_single_license"`
}

// AnyIssue reports whether the record carries at least one issue flag.
// LicenseFound and NPIFound are positive signals and are ignored here.
func (f Flags) AnyIssue() bool {
	return f.LicenseExpired || f.LicenseStateMismatch || f.NPIMissing ||
		f.PhoneIssue || f.SpecialtyMissing || f.DuplicateSuspect || f.MultiStateSingleLicense
}

// IssueCount returns how many issue flags are set.
func (f Flags) IssueCount() int {
	n := 0
	for _, b := range []bool{
		f.LicenseExpired, f.LicenseStateMismatch, f.NPIMissing,
		f.PhoneIssue, f.SpecialtyMissing, f.DuplicateSuspect, f.MultiStateSingleLicense,
	} {
		if b {
			n++
		}
	}
	return n
}

// AugmentedRecord is the one-to-one derivative of a RosterRecord.
type AugmentedRecord struct {
	RosterRecord
	Flags

	// Index is the zero-based position of the source row in the roster.
	Index int `json:"index"`

	// RegistryState and RegistryExpiration come from the matched license
	// registry row, if any.
	RegistryState      string     `json:"validation_state,omitempty"`
	RegistryExpiration *time.Time `json:"registry_expiration_date,omitempty"`
}

// BestExpiration returns the registry expiration when known and falls back to
// the roster-declared value. Nil means no date is resolvable.
func (r *AugmentedRecord) BestExpiration() *time.Time {
	if r.RegistryExpiration != nil {
		return r.RegistryExpiration
	}
	return r.LicenseExpiration
}

// DuplicatePair is a symmetric candidate relation between two roster rows.
// IndexA is always smaller than IndexB.
type DuplicatePair struct {
	IndexA     int     `json:"index_a"`
	IndexB     int     `json:"index_b"`
	Similarity float64 `json:"similarity_score"`
}

// CategoryRate is the per-category breakdown behind a QualityScore.
type CategoryRate struct {
	Weight    float64 `json:"weight"`
	Flagged   int     `json:"flagged"`
	IssueRate float64 `json:"issue_rate"`
	Penalty   float64 `json:"penalty"`
}

// QualityScore is the weighted 0-100 roster quality metric.
type QualityScore struct {
	Score        float64                 `json:"score"`
	TotalRecords int                     `json:"total_records"`
	Categories   map[string]CategoryRate `json:"categories"`
}

// StatEntry is a count and its share of the roster, in percent.
type StatEntry struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DashboardStats maps an issue category to its count and percentage.
type DashboardStats map[string]StatEntry

// Dashboard stat categories.
const (
	StatExpiredLicenses      = "expired_licenses"
	StatMissingNPI           = "missing_npi"
	StatPhoneIssues          = "phone_issues"
	StatDuplicates           = "duplicates"
	StatLicenseStateMismatch = "license_state_mismatch"
)

// Snapshot is the immutable result of one full load.
// A new load replaces the whole snapshot; nothing inside is mutated afterwards.
type Snapshot struct {
	ID       string            `json:"id"`
	LoadedAt time.Time         `json:"loaded_at"`
	Today    time.Time         `json:"today"`
	Records  []AugmentedRecord `json:"records"`
	Pairs    []DuplicatePair   `json:"duplicate_pairs"`
	Score    QualityScore      `json:"quality_score"`
	Stats    DashboardStats    `json:"stats"`
}

// Total returns the number of records in the snapshot.
func (s *Snapshot) Total() int {
	return len(s.Records)
}

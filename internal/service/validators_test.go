package service

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

func nullLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDedupLicenses(t *testing.T) {
	rows := []domain.RegistryRecord{
		{Authority: "NY", LicenseNumber: "A100", Expiration: day(2024, 6, 14)},
		{Authority: "NY", LicenseNumber: "C300", Expiration: day(2023, 1, 1)},
		{Authority: "CA", LicenseNumber: " C300 ", Expiration: day(2026, 1, 1)},
		{Authority: "NY", LicenseNumber: "D400", Expiration: day(2025, 5, 5)},
		{Authority: "CA", LicenseNumber: "D400", Expiration: day(2025, 5, 5)},
		{Authority: "NY", LicenseNumber: "E500"},
		{Authority: "CA", LicenseNumber: "E500", Expiration: day(2020, 1, 1)},
		{Authority: "TX", LicenseNumber: "F600"},
		{Authority: "NV", LicenseNumber: "F600"},
		{Authority: "NY", LicenseNumber: "  "},
	}

	got := DedupLicenses(rows)

	require.Len(t, got, 5)
	assert.Equal(t, "NY", got["A100"].Authority)
	assert.Equal(t, "CA", got["C300"].Authority, "latest expiration wins")
	assert.Equal(t, "CA", got["D400"].Authority, "equal dates fall back to smallest state")
	assert.Equal(t, "CA", got["E500"].Authority, "a dated row beats an undated one")
	assert.Equal(t, "NV", got["F600"].Authority)

	// input order must not matter
	reversed := make([]domain.RegistryRecord, len(rows))
	for i := range rows {
		reversed[len(rows)-1-i] = rows[i]
	}
	assert.Equal(t, got, DedupLicenses(reversed))
}

func TestLicenseValidator_Validate(t *testing.T) {
	today := *day(2024, 6, 15)
	registry := []domain.RegistryRecord{
		{Authority: "NY", LicenseNumber: "A100", Expiration: day(2024, 6, 14)},
		{Authority: "CA", LicenseNumber: "B200", Expiration: day(2025, 1, 1)},
		{Authority: "NY", LicenseNumber: "T100", Expiration: day(2024, 6, 15)},
		{Authority: "NY", LicenseNumber: ""},
	}
	roster := []domain.RosterRecord{
		{LicenseNumber: "A100", LicenseState: "NY"},
		{LicenseNumber: "B200", LicenseState: "NY"},
		{LicenseNumber: "Z999", LicenseState: "NY", LicenseExpiration: day(2020, 1, 1)},
		{LicenseNumber: "Z998", LicenseState: "NY"},
		{LicenseNumber: "", LicenseState: "NY"},
		{LicenseNumber: " A100 ", LicenseState: ""},
		{LicenseNumber: "T100", LicenseState: "ny", LicenseExpiration: day(2000, 1, 1)},
	}

	results := NewLicenseValidator(nullLogger()).Validate(roster, registry, today)

	require.Len(t, results, len(roster))

	tests := []struct {
		name          string
		idx           int
		found         bool
		expired       bool
		stateMismatch bool
	}{
		{"registry expired yesterday", 0, true, true, false},
		{"registry state differs", 1, true, false, true},
		{"roster date fallback", 2, false, true, false},
		{"no date resolvable", 3, false, false, false},
		{"blank license never matches", 4, false, false, false},
		{"blank roster state is no mismatch", 5, true, true, false},
		{"registry date preferred and today is not expired", 6, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := results[tt.idx]
			assert.Equal(t, tt.found, got.Found, "found")
			assert.Equal(t, tt.expired, got.Expired, "expired")
			assert.Equal(t, tt.stateMismatch, got.StateMismatch, "state mismatch")
		})
	}
	assert.Equal(t, "CA", results[1].State)
}

func TestLicenseValidator_NoFanOut(t *testing.T) {
	registry := []domain.RegistryRecord{
		{Authority: "NY", LicenseNumber: "C300", Expiration: day(2023, 1, 1)},
		{Authority: "CA", LicenseNumber: "C300", Expiration: day(2026, 1, 1)},
		{Authority: "TX", LicenseNumber: "C300", Expiration: day(2026, 1, 1)},
	}
	roster := []domain.RosterRecord{
		{LicenseNumber: "C300", LicenseState: "CA"},
		{LicenseNumber: "C300", LicenseState: "CA"},
		{LicenseNumber: "C300", LicenseState: "TX"},
	}

	results := NewLicenseValidator(nullLogger()).Validate(roster, registry, *day(2024, 1, 1))

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, "CA", r.State)
	}
	assert.True(t, results[2].StateMismatch)
}

func TestNPIValidator_Validate(t *testing.T) {
	registry := []domain.RegistryRecord{{NPI: "111"}, {NPI: "111"}, {NPI: " 222 "}, {NPI: ""}}
	roster := []domain.RosterRecord{{NPI: "111"}, {NPI: "333"}, {NPI: ""}, {NPI: " 222"}, {NPI: "   "}}

	results := NewNPIValidator(nullLogger()).Validate(roster, registry)

	assert.Equal(t, []NPIResult{
		{Found: true},
		{Found: false, Missing: false},
		{Found: false, Missing: true},
		{Found: true},
		{Found: false, Missing: true},
	}, results)
}

func TestNPIValidator_NoRegistry(t *testing.T) {
	results := NewNPIValidator(nullLogger()).Validate([]domain.RosterRecord{{NPI: "111"}, {}}, nil)

	assert.Equal(t, []NPIResult{{}, {Missing: true}}, results)
}

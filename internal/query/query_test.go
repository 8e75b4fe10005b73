package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/metrics"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testSnapshot() *domain.Snapshot {
	records := []domain.AugmentedRecord{
		{
			RosterRecord:       domain.RosterRecord{ProviderID: "p1", FullName: "John Smith", AddressState: "NY", Specialty: "Cardiology"},
			Flags:              domain.Flags{LicenseFound: true, LicenseExpired: true, DuplicateSuspect: true},
			RegistryExpiration: day(2024, 6, 14),
		},
		{
			RosterRecord:       domain.RosterRecord{ProviderID: "p2", FullName: "Jane Roe", AddressState: "ny", Specialty: "Dermatology"},
			Flags:              domain.Flags{LicenseFound: true, LicenseStateMismatch: true, PhoneIssue: true},
			RegistryExpiration: day(2024, 7, 1),
		},
		{
			RosterRecord: domain.RosterRecord{ProviderID: "p3", FullName: "Sam Poe", AddressState: "CA", LicenseExpiration: day(2024, 9, 13)},
			Flags:        domain.Flags{NPIMissing: true, SpecialtyMissing: true},
		},
		{
			RosterRecord: domain.RosterRecord{ProviderID: "p4", FullName: "Jon Smith", Specialty: "Cardiology", LicenseExpiration: day(2026, 8, 1)},
			Flags:        domain.Flags{DuplicateSuspect: true},
		},
		{
			RosterRecord: domain.RosterRecord{ProviderID: "p5", FullName: "Ann Lee", AddressState: "TX", Specialty: "Cardiology", LicenseExpiration: day(2024, 6, 15)},
			Flags:        domain.Flags{MultiStateSingleLicense: true},
		},
	}
	for i := range records {
		records[i].Index = i
	}

	return &domain.Snapshot{
		ID:      "snap-1",
		Today:   *day(2024, 6, 15),
		Records: records,
		Pairs:   []domain.DuplicatePair{{IndexA: 0, IndexB: 3, Similarity: 92.5}},
		Score:   domain.QualityScore{Score: 80, TotalRecords: 5},
		Stats: domain.DashboardStats{
			domain.StatExpiredLicenses:      {Count: 1, Percentage: 20},
			domain.StatMissingNPI:           {Count: 1, Percentage: 20},
			domain.StatPhoneIssues:          {Count: 1, Percentage: 20},
			domain.StatDuplicates:           {Count: 2, Percentage: 40},
			domain.StatLicenseStateMismatch: {Count: 1, Percentage: 20},
		},
	}
}

func ids(records []domain.AugmentedRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ProviderID
	}
	return out
}

func TestStateSummary(t *testing.T) {
	out := StateSummary(testSnapshot())

	require.Len(t, out, 4)
	assert.Equal(t, []string{"CA", "NY", "TX", UnknownGroup}, []string{out[0].Group, out[1].Group, out[2].Group, out[3].Group})
	assert.Equal(t, 2, out[1].TotalRecords)
	assert.Equal(t, 4, out[1].TotalIssues)
	assert.Equal(t, 1, out[1].PhoneIssue)
}

func TestSpecialtySummary(t *testing.T) {
	out := SpecialtySummary(testSnapshot())

	require.Len(t, out, 3)
	assert.Equal(t, "Cardiology", out[0].Group)
	assert.Equal(t, 3, out[0].TotalRecords)
	assert.Equal(t, 4, out[0].TotalIssues)
	assert.Equal(t, "Dermatology", out[1].Group, "ties break by name")
	assert.Equal(t, UnknownGroup, out[2].Group)
}

func TestRecordFilters(t *testing.T) {
	snap := testSnapshot()

	assert.Equal(t, []string{"p1", "p2"}, ids(ComplianceReport(snap)))
	assert.Equal(t, []string{"p2"}, ids(PhoneIssues(snap)))
	assert.Equal(t, []string{"p3"}, ids(MissingNPI(snap)))
	assert.Equal(t, []string{"p1", "p4"}, ids(DuplicateRecords(snap)))
	assert.Equal(t, []string{"p5"}, ids(MultiStateSingleLicense(snap)))
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, ids(ExportList(snap)))
	assert.Equal(t, 1, ExpiredLicenseCount(snap))
}

func TestExpirationWindow(t *testing.T) {
	snap := testSnapshot()

	assert.Equal(t, []string{"p2", "p3", "p5"}, ids(ExpirationWindow(snap, 90)), "window is inclusive at both ends")
	assert.Equal(t, []string{"p5"}, ids(ExpirationWindow(snap, 0)))
	assert.Empty(t, ExpirationWindow(snap, -1))
}

func TestDuplicatePairs(t *testing.T) {
	out := DuplicatePairs(testSnapshot())

	require.Len(t, out, 1)
	assert.Equal(t, "p1", out[0].ProviderIDA)
	assert.Equal(t, "Jon Smith", out[0].NameB)
	assert.Equal(t, 92.5, out[0].Similarity)
}

func TestExpirationTimeline(t *testing.T) {
	out := ExpirationTimeline(testSnapshot())

	require.Len(t, out, TimelineMonths)
	assert.Equal(t, "2024-06", out[0].Month)
	assert.Equal(t, "2026-05", out[23].Month)
	assert.Equal(t, 1, out[0].Count)
	assert.Equal(t, 1, out[1].Count)
	assert.Equal(t, 0, out[2].Count)
	assert.Equal(t, 1, out[3].Count)

	total := 0
	for _, m := range out {
		total += m.Count
	}
	assert.Equal(t, 3, total, "past and far-future dates are excluded")
}

func TestBuildInsights(t *testing.T) {
	out := BuildInsights(testSnapshot())

	assert.Equal(t, TierModerate, out.Assessment)
	assert.InDelta(t, 25.0, out.IssueRate, 1e-9)
	require.Len(t, out.CriticalIssues, 4)
	assert.Equal(t, domain.StatDuplicates, out.CriticalIssues[0].Category)
	assert.Equal(t, domain.StatExpiredLicenses, out.CriticalIssues[1].Category)
	assert.Equal(t, domain.StatMissingNPI, out.CriticalIssues[2].Category)
	assert.Equal(t, SeverityMedium, out.CriticalIssues[3].Severity)
	assert.Equal(t, StatusNonCompliant, out.ComplianceStatus["license"])
	assert.Equal(t, StatusNeedsWork, out.ComplianceStatus["data_quality"])

	require.Len(t, out.Recommendations, 5)
	assert.Equal(t, "Data Governance", out.Recommendations[4].Category)
	assert.Equal(t, []RiskArea{
		{Dimension: RiskDimensionState, Groups: []string{"NY"}},
		{Dimension: RiskDimensionSpecialty, Groups: []string{"Cardiology"}},
	}, out.RiskAreas)

	empty := BuildInsights(&domain.Snapshot{})
	assert.Equal(t, TierNoData, empty.Assessment)
	assert.Empty(t, empty.CriticalIssues)
	assert.Empty(t, empty.RiskAreas)
	require.Len(t, empty.Recommendations, 1)
}

func TestRecommendations_Thresholds(t *testing.T) {
	tests := []struct {
		name       string
		stat       string
		percentage float64
		category   string
	}{
		{"expired at threshold", domain.StatExpiredLicenses, 5, ""},
		{"expired above threshold", domain.StatExpiredLicenses, 5.1, "License Management"},
		{"npi at threshold", domain.StatMissingNPI, 2, ""},
		{"npi above threshold", domain.StatMissingNPI, 2.5, "NPI Verification"},
		{"phone at threshold", domain.StatPhoneIssues, 10, ""},
		{"phone above threshold", domain.StatPhoneIssues, 10.01, "Data Standardization"},
		{"duplicates at threshold", domain.StatDuplicates, 1, ""},
		{"duplicates above threshold", domain.StatDuplicates, 1.5, "Data Deduplication"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := Recommendations(domain.DashboardStats{tt.stat: {Count: 1, Percentage: tt.percentage}})

			require.NotEmpty(t, recs)
			assert.Equal(t, "Data Governance", recs[len(recs)-1].Category)
			if tt.category == "" {
				assert.Len(t, recs, 1)
				return
			}
			require.Len(t, recs, 2)
			assert.Equal(t, tt.category, recs[0].Category)
		})
	}
}

func TestRiskAreas_PercentileCut(t *testing.T) {
	// per-state headline issues: AA 0, BB 1, CC 2, DD 3, EE 4, FF 10
	counts := map[string]int{"AA": 0, "BB": 1, "CC": 2, "DD": 3, "EE": 4, "FF": 10}
	var records []domain.AugmentedRecord
	for state, n := range counts {
		records = append(records, domain.AugmentedRecord{RosterRecord: domain.RosterRecord{AddressState: state}})
		for i := 0; i < n; i++ {
			records = append(records, domain.AugmentedRecord{
				RosterRecord: domain.RosterRecord{AddressState: state},
				Flags:        domain.Flags{PhoneIssue: true},
			})
		}
	}
	// blank state with many issues never appears
	for i := 0; i < 20; i++ {
		records = append(records, domain.AugmentedRecord{Flags: domain.Flags{NPIMissing: true}})
	}

	areas := RiskAreas(&domain.Snapshot{Records: records})

	// 80th percentile of [0 1 2 3 4 10] is 4, so only FF is strictly above
	require.Len(t, areas, 1)
	assert.Equal(t, RiskArea{Dimension: RiskDimensionState, Groups: []string{"FF"}}, areas[0])
}

func TestPercentile(t *testing.T) {
	assert.InDelta(t, 2.2, percentile([]float64{3, 0, 1}, 0.8), 1e-9)
	assert.InDelta(t, 4.0, percentile([]float64{0, 1, 2, 3, 4, 10}, 0.8), 1e-9)
	assert.InDelta(t, 7.0, percentile([]float64{7}, 0.8), 1e-9)
}

type fakeSource struct {
	snap *domain.Snapshot
}

func (f *fakeSource) Current() (*domain.Snapshot, error) {
	if f.snap == nil {
		return nil, domain.ErrNoSnapshot
	}
	return f.snap, nil
}

func newTestRouter(t *testing.T, source domain.SnapshotSource) *Router {
	t.Helper()
	logger, _ := test.NewNullLogger()
	r, err := NewRouter(logger, source, RouterConfig{DefaultWindowDays: 90, CacheSize: 16})
	require.NoError(t, err)
	return r
}

func TestRouter_Intents(t *testing.T) {
	r := newTestRouter(t, &fakeSource{})

	assert.Len(t, r.Intents(), 14)
	assert.True(t, r.Known(" Missing_NPI "))
	assert.False(t, r.Known("tell me a joke"))
}

func TestRouter_Route(t *testing.T) {
	r := newTestRouter(t, &fakeSource{snap: testSnapshot()})
	ctx := context.Background()

	tests := []struct {
		intent string
		params Params
		count  int
	}{
		{IntentExpiredLicenseCount, nil, 1},
		{IntentPhoneFormatIssues, nil, 1},
		{IntentMissingNPI, nil, 1},
		{IntentDuplicateRecords, nil, 2},
		{IntentComplianceReportExpired, nil, 2},
		{IntentMultiStateSingleLicense, nil, 1},
		{IntentExportUpdateList, nil, 5},
		{IntentStateIssueSummary, nil, 4},
		{IntentSpecialtiesMostIssues, Params{"limit": 1}, 1},
		{IntentExpirationWindow, nil, 3},
		{IntentExpirationWindow, Params{"days": "30"}, 2},
		{IntentExpirationWindow, Params{"days": float64(0)}, 1},
		{IntentDuplicatePairs, nil, 1},
		{IntentExpirationTimeline, nil, TimelineMonths},
	}

	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			res, err := r.Route(ctx, tt.intent, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, res.Intent)
			assert.False(t, res.Fallback)
			assert.Equal(t, "snap-1", res.SnapshotID)
			assert.Equal(t, tt.count, res.Count)
		})
	}
}

func TestRouter_UnknownIntentFallsBack(t *testing.T) {
	r := newTestRouter(t, &fakeSource{snap: testSnapshot()})

	res, err := r.Route(context.Background(), "how is the weather", nil)

	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackIntent, res.Intent)
	assert.Equal(t, "how is the weather", res.Requested)
	report, ok := res.Data.(ScoreReport)
	require.True(t, ok)
	assert.Equal(t, 80.0, report.Score.Score)

	// the cached overall score answer must not leak the fallback marker
	direct, err := r.Route(context.Background(), FallbackIntent, nil)
	require.NoError(t, err)
	assert.False(t, direct.Fallback)
	assert.Empty(t, direct.Requested)
}

func TestRouter_InvalidParams(t *testing.T) {
	r := newTestRouter(t, &fakeSource{snap: testSnapshot()})

	for _, days := range []any{-5, "soon", 1.5, []int{1}, 1e18, 1e19, MaxWindowDays + 1, "3651"} {
		_, err := r.Route(context.Background(), IntentExpirationWindow, Params{"days": days})
		require.Error(t, err, "days=%v", days)
		var verr *domain.ValidationError
		assert.True(t, errors.As(err, &verr))
	}
}

func TestRouter_CachePerSnapshot(t *testing.T) {
	source := &fakeSource{snap: testSnapshot()}
	r := newTestRouter(t, source)
	ctx := context.Background()

	first, err := r.Route(ctx, IntentMissingNPI, nil)
	require.NoError(t, err)
	_, err = r.Route(ctx, IntentMissingNPI, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, r.cache.Len())

	next := testSnapshot()
	next.ID = "snap-2"
	next.Records[0].NPIMissing = true
	source.snap = next

	second, err := r.Route(ctx, IntentMissingNPI, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 2, second.Count)
	assert.Equal(t, "snap-2", second.SnapshotID)
}

func TestRouter_Errors(t *testing.T) {
	r := newTestRouter(t, &fakeSource{})

	_, err := r.Route(context.Background(), IntentMissingNPI, nil)
	assert.ErrorIs(t, err, domain.ErrNoSnapshot)

	r = newTestRouter(t, &fakeSource{snap: testSnapshot()})
	_, err = r.Report(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownIntent)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Route(ctx, IntentMissingNPI, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIntParam(t *testing.T) {
	n, err := IntParam(Params{}, "days", 90)
	require.NoError(t, err)
	assert.Equal(t, 90, n)

	n, err = IntParam(Params{"days": " 45 "}, "days", 90)
	require.NoError(t, err)
	assert.Equal(t, 45, n)

	n, err = IntParam(Params{"days": int64(7)}, "days", 90)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = IntParam(Params{"days": 1e18}, "days", 90)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "days", verr.Field)
}

func TestRouter_ExpirationWindowUpperBound(t *testing.T) {
	r := newTestRouter(t, &fakeSource{snap: testSnapshot()})

	res, err := r.Route(context.Background(), IntentExpirationWindow, Params{"days": float64(MaxWindowDays)})
	require.NoError(t, err)
	assert.Equal(t, ids(ExpirationWindow(testSnapshot(), MaxWindowDays)), ids(res.Data.([]domain.AugmentedRecord)))
	assert.NotEmpty(t, res.Data)
}

func TestRouter_CountsIntents(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m := metrics.New()
	r, err := NewRouter(logger, &fakeSource{snap: testSnapshot()}, RouterConfig{CacheSize: 4, Metrics: m})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = r.Route(context.Background(), IntentMissingNPI, nil)
		require.NoError(t, err)
	}
	_, err = r.Route(context.Background(), "gibberish", nil)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.IntentsTotal.WithLabelValues(IntentMissingNPI, "false")), "cache hits still count")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntentsTotal.WithLabelValues(FallbackIntent, "true")))
}

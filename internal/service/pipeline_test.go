package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/config"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/ingest"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/metrics"
)

var fixedToday = time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)

func testEngineConfig() domain.EngineConfig {
	return domain.EngineConfig{
		ColumnSynonyms:       config.DefaultColumnSynonyms(),
		DateColumns:          []string{domain.FieldLicenseExpirationDate},
		DateLayouts:          config.DefaultDateLayouts(),
		ScoringWeights:       config.DefaultScoringWeights(),
		Thresholds:           testThresholds,
		ExpirationWindowDays: 90,
		DuplicateWorkers:     2,
	}
}

func testPipeline() *Pipeline {
	return NewPipeline(nullLogger(), testEngineConfig(), WithClock(func() time.Time { return fixedToday }))
}

const rosterCSV = `provider_id,name,npi_number,lic_no,license_state,exp_date,specialty,phone,state
p1,John Smith,1000000001,A100,NY,2025-01-01,Cardiology,(555) 123-4567,NY
p2,Jane Roe,1000000002,B200,NY,2025-01-01,Dermatology,5551234567,NY
p3,Sam Poe,,L1,NY,,Oncology,(555) 000-0000,NY
p4,Sam Poe,,L1,NY,,Oncology,(555) 000-0000,CA
p5,John Smyth,1000000005,Z999,NY,2020-01-01,,(555) 999-9999,NY
`

const nyCSV = `license_number,expiration_date
A100,2024-06-14
`

const caCSV = `license_number,expiration_date
B200,2026-01-01
A100,2024-06-14
`

const npiCSV = `npi
1000000001
1000000002
`

func mustParse(t *testing.T, body string) *ingest.Table {
	t.Helper()
	table, err := ingest.ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	return table
}

func testSources(t *testing.T) Sources {
	return Sources{
		Roster: mustParse(t, rosterCSV),
		LicenseRegistries: []StateTable{
			{State: "NY", Table: mustParse(t, nyCSV)},
			{State: "CA", Table: mustParse(t, caCSV)},
		},
		NPIRegistry: mustParse(t, npiCSV),
	}
}

func TestPipeline_Load(t *testing.T) {
	snap, err := testPipeline().Load(context.Background(), testSources(t))
	require.NoError(t, err)

	require.Equal(t, 5, snap.Total())
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), snap.Today)

	byID := map[string]domain.AugmentedRecord{}
	for i, r := range snap.Records {
		assert.Equal(t, i, r.Index)
		byID[r.ProviderID] = r
	}

	p1 := byID["p1"]
	assert.True(t, p1.LicenseFound)
	assert.True(t, p1.LicenseExpired, "registry date wins over the roster date")
	assert.True(t, p1.LicenseStateMismatch, "equal dates resolve to the CA row")
	assert.Equal(t, "CA", p1.RegistryState)
	assert.True(t, p1.NPIFound)
	assert.False(t, p1.PhoneIssue)
	assert.True(t, p1.DuplicateSuspect)

	p2 := byID["p2"]
	assert.True(t, p2.LicenseStateMismatch)
	assert.False(t, p2.LicenseExpired)
	assert.True(t, p2.PhoneIssue)

	p3, p4 := byID["p3"], byID["p4"]
	assert.True(t, p3.NPIMissing)
	assert.False(t, p3.NPIFound)
	assert.False(t, p3.LicenseExpired, "no resolvable date")
	assert.True(t, p3.MultiStateSingleLicense)
	assert.True(t, p4.MultiStateSingleLicense)

	p5 := byID["p5"]
	assert.True(t, p5.SpecialtyMissing)
	assert.True(t, p5.LicenseExpired, "roster date fallback")
	assert.False(t, p5.NPIMissing)
	assert.False(t, p5.NPIFound)
	assert.True(t, p5.DuplicateSuspect)

	require.Len(t, snap.Pairs, 1)
	assert.Equal(t, 0, snap.Pairs[0].IndexA)
	assert.Equal(t, 4, snap.Pairs[0].IndexB)

	assert.Equal(t, 2, snap.Stats[domain.StatExpiredLicenses].Count)
	assert.Equal(t, 2, snap.Stats[domain.StatMissingNPI].Count)
	assert.InDelta(t, 40.0, snap.Stats[domain.StatDuplicates].Percentage, 1e-9)

	// license 2/5, npi 2/5, duplicates 2/5, phone 1/5, mismatch 2/5
	want := 100 - (35*0.4 + 25*0.4 + 15*0.4 + 15*0.2 + 10*0.4)
	assert.InDelta(t, want, snap.Score.Score, 1e-9)
}

func TestPipeline_LicenseScenarios(t *testing.T) {
	roster := mustParse(t, "license_number,license_state\nA100,NY\nA100,CA\n")
	ny := mustParse(t, "license_number,license_expiration_date\nA100,2024-06-14\n")

	snap, err := testPipeline().Load(context.Background(), Sources{
		Roster:            roster,
		LicenseRegistries: []StateTable{{State: "NY", Table: ny}},
	})
	require.NoError(t, err)

	first := snap.Records[0]
	assert.True(t, first.LicenseFound)
	assert.True(t, first.LicenseExpired)
	assert.False(t, first.LicenseStateMismatch)

	assert.True(t, snap.Records[1].LicenseStateMismatch)
}

func TestPipeline_MissingOptionalSources(t *testing.T) {
	snap, err := testPipeline().Load(context.Background(), Sources{Roster: mustParse(t, rosterCSV)})
	require.NoError(t, err)

	require.Equal(t, 5, snap.Total())
	for _, r := range snap.Records {
		assert.False(t, r.LicenseFound)
		assert.False(t, r.NPIFound)
		assert.False(t, r.LicenseStateMismatch)
	}
	// roster dates still resolve
	assert.True(t, snap.Records[4].LicenseExpired)
}

func TestPipeline_NoRoster(t *testing.T) {
	_, err := testPipeline().Load(context.Background(), Sources{})
	assert.ErrorIs(t, err, domain.ErrMissingRoster)
}

func TestPipeline_NoCanonicalColumns(t *testing.T) {
	snap, err := testPipeline().Load(context.Background(), Sources{Roster: mustParse(t, "foo,bar\n1,2\n3,4\n")})
	require.NoError(t, err)

	require.Equal(t, 2, snap.Total())
	assert.Equal(t, "1", snap.Records[0].Extra["foo"])
	assert.False(t, snap.Records[0].LicenseExpired)
	assert.True(t, snap.Records[0].NPIMissing)
	assert.True(t, snap.Records[0].PhoneIssue)
}

func TestPipeline_LoadIgnoresExpiredContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	snap, err := testPipeline().Load(ctx, testSources(t))
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Total())
	assert.NotEmpty(t, snap.Pairs)
}

func TestEngine_ReloadWithCanceledContext(t *testing.T) {
	dir := t.TempDir()
	inputs := domain.InputsConfig{RosterPath: writeFile(t, dir, "roster.csv", rosterCSV)}
	engine := NewEngine(nullLogger(), inputs, testPipeline())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := engine.Reload(ctx)
	require.NoError(t, err)
	current, err := engine.Current()
	require.NoError(t, err)
	assert.Same(t, snap, current)
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEngine_Reload(t *testing.T) {
	dir := t.TempDir()
	inputs := domain.InputsConfig{
		RosterPath: writeFile(t, dir, "roster.csv", rosterCSV),
		LicenseRegistries: []domain.RegistrySource{
			{State: "NY", Path: writeFile(t, dir, "ny.csv", nyCSV)},
			{State: "CA", Path: filepath.Join(dir, "missing.csv")},
		},
		NPIRegistryPath: writeFile(t, dir, "npi.csv", npiCSV),
	}
	engine := NewEngine(nullLogger(), inputs, testPipeline())

	_, err := engine.Current()
	assert.ErrorIs(t, err, domain.ErrNoSnapshot)

	first, err := engine.Reload(context.Background())
	require.NoError(t, err)
	current, err := engine.Current()
	require.NoError(t, err)
	assert.Same(t, first, current)
	assert.Equal(t, "NY", current.Records[0].RegistryState, "absent CA registry is skipped")

	// a broken roster fails the load but keeps the previous snapshot
	writeFile(t, dir, "roster.csv", "a,b\n\"unterminated,1\n")
	_, err = engine.Reload(context.Background())
	require.Error(t, err)

	current, err = engine.Current()
	require.NoError(t, err)
	assert.Same(t, first, current)
}

func TestEngine_ReloadMissingRoster(t *testing.T) {
	engine := NewEngine(nullLogger(), domain.InputsConfig{RosterPath: filepath.Join(t.TempDir(), "none.csv")}, testPipeline())

	_, err := engine.Reload(context.Background())
	require.Error(t, err)

	_, err = engine.Current()
	assert.ErrorIs(t, err, domain.ErrNoSnapshot)
}

func TestSnapshotStore_ReadersKeepTheirSnapshot(t *testing.T) {
	store := &SnapshotStore{}
	old := &domain.Snapshot{ID: "old"}
	store.Publish(old)

	held, err := store.Current()
	require.NoError(t, err)

	store.Publish(&domain.Snapshot{ID: "new"})

	assert.Equal(t, "old", held.ID)
	now, _ := store.Current()
	assert.Equal(t, "new", now.ID)
}

func TestEngine_RecordsLoadMetrics(t *testing.T) {
	dir := t.TempDir()
	m := metrics.New()
	inputs := domain.InputsConfig{RosterPath: writeFile(t, dir, "roster.csv", rosterCSV)}
	engine := NewEngine(nullLogger(), inputs, testPipeline(), WithMetrics(m))

	snap, err := engine.Reload(context.Background())
	require.NoError(t, err)

	engine.inputs.RosterPath = filepath.Join(dir, "gone.csv")
	_, err = engine.Reload(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal.WithLabelValues(metrics.OutcomeFailure)))
	assert.Equal(t, float64(snap.Total()), testutil.ToFloat64(m.SnapshotRecords))
	assert.InDelta(t, snap.Score.Score, testutil.ToFloat64(m.QualityScore), 1e-9)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/ingest"
)

// StateTable is a license registry table and the state that issued it.
type StateTable struct {
	State string
	Table *ingest.Table
}

// Sources are the raw tables of one load. Only Roster is required; a nil
// registry leaves the matching checks at their not-found values.
type Sources struct {
	Roster            *ingest.Table
	LicenseRegistries []StateTable
	NPIRegistry       *ingest.Table
}

// Pipeline recomputes a full snapshot from raw tables.
type Pipeline struct {
	logger     *logrus.Logger
	normalizer *ingest.Normalizer
	licenses   *LicenseValidator
	npis       *NPIValidator
	rules      *RuleEngine
	duplicates *DuplicateDetector
	multiState *MultiStateDetector
	scorer     *Scorer
	now        func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithClock overrides the clock that decides "today" for expiry checks.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline wires every engine component from one configuration value
func NewPipeline(logger *logrus.Logger, cfg domain.EngineConfig, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		logger:     logger,
		normalizer: ingest.NewNormalizer(logger, cfg),
		licenses:   NewLicenseValidator(logger),
		npis:       NewNPIValidator(logger),
		rules:      NewRuleEngine(logger),
		duplicates: NewDuplicateDetector(logger, cfg.Thresholds, cfg.DuplicateWorkers),
		multiState: NewMultiStateDetector(logger),
		scorer:     NewScorer(cfg.ScoringWeights),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rules exposes the rule engine for single-rule evaluation.
func (p *Pipeline) Rules() *RuleEngine {
	return p.rules
}

// Load runs normalize, validate, evaluate rules, detect duplicates and score,
// and returns a new immutable snapshot. A load is never canceled: it runs to
// completion or fails on its inputs, whatever the state of ctx.
func (p *Pipeline) Load(ctx context.Context, src Sources) (*domain.Snapshot, error) {
	if src.Roster == nil {
		return nil, domain.ErrMissingRoster
	}
	startTime := time.Now()
	today := ingest.DateOf(p.now())

	// Step 1: Normalize every source onto the canonical schema
	roster := p.normalizer.RosterRecords(p.normalizer.Normalize(src.Roster))

	var licenseRows []domain.RegistryRecord
	for _, reg := range src.LicenseRegistries {
		if reg.Table == nil {
			continue
		}
		licenseRows = append(licenseRows, p.normalizer.LicenseRegistry(p.normalizer.Normalize(reg.Table), reg.State)...)
	}

	var npiRows []domain.RegistryRecord
	if src.NPIRegistry != nil {
		npiRows = p.normalizer.NPIRegistry(p.normalizer.Normalize(src.NPIRegistry))
	}

	// Step 2: Validators and rules share no state and run side by side
	var (
		licenseResults []LicenseResult
		npiResults     []NPIResult
		ruleResults    []RuleResults
	)
	var g errgroup.Group
	g.Go(func() error {
		licenseResults = p.licenses.Validate(roster, licenseRows, today)
		return nil
	})
	g.Go(func() error {
		npiResults = p.npis.Validate(roster, npiRows)
		return nil
	})
	g.Go(func() error {
		ruleResults = p.rules.EvaluateAll(roster)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Step 3: Merge flags into one augmented record per roster record
	records := make([]domain.AugmentedRecord, len(roster))
	for i := range roster {
		lic, npi, rules := licenseResults[i], npiResults[i], ruleResults[i]
		records[i] = domain.AugmentedRecord{
			RosterRecord: roster[i],
			Index:        i,
			Flags: domain.Flags{
				LicenseFound:         lic.Found,
				LicenseExpired:       lic.Expired,
				LicenseStateMismatch: lic.StateMismatch,
				NPIFound:             npi.Found,
				NPIMissing:           npi.Missing,
				PhoneIssue:           rules[RulePhoneFormat],
				SpecialtyMissing:     rules[RuleSpecialtyMissing],
			},
			RegistryState:      lic.State,
			RegistryExpiration: lic.Expiration,
		}
	}

	// Step 4: Entity resolution over the merged set
	pairs, dupFlags := p.duplicates.Detect(roster)
	multiFlags := p.multiState.Detect(roster)
	for i := range records {
		records[i].DuplicateSuspect = dupFlags[i]
		records[i].MultiStateSingleLicense = multiFlags[i]
	}

	// Step 5: Score and summarize
	score := p.scorer.Score(records)
	stats := p.scorer.Stats(records)

	snapshot := &domain.Snapshot{
		ID:       uuid.NewString(),
		LoadedAt: time.Now().UTC(),
		Today:    today,
		Records:  records,
		Pairs:    pairs,
		Score:    score,
		Stats:    stats,
	}

	p.logger.WithFields(logrus.Fields{
		"snapshot_id":   snapshot.ID,
		"records":       len(records),
		"license_rows":  len(licenseRows),
		"npi_rows":      len(npiRows),
		"pairs":         len(pairs),
		"quality_score": score.Score,
		"duration":      time.Since(startTime),
	}).Info("Completed snapshot load")

	return snapshot, nil
}

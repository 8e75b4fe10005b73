package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/ingest"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/metrics"
)

// SnapshotStore publishes immutable snapshots. Readers keep the pointer they
// received, so a later publish never changes a read in progress.
type SnapshotStore struct {
	current atomic.Pointer[domain.Snapshot]
}

// Current returns the latest published snapshot.
func (s *SnapshotStore) Current() (*domain.Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, domain.ErrNoSnapshot
	}
	return snap, nil
}

// Publish atomically replaces the current snapshot.
func (s *SnapshotStore) Publish(snap *domain.Snapshot) {
	s.current.Store(snap)
}

// Engine reads the configured input files, runs the pipeline and publishes
// the result. A failed load leaves the previous snapshot in place.
type Engine struct {
	logger   *logrus.Logger
	inputs   domain.InputsConfig
	pipeline *Pipeline
	store    *SnapshotStore
	metrics  *metrics.Metrics

	// loads run one at a time
	mu sync.Mutex
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithMetrics records every load attempt.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates a new engine over the given inputs
func NewEngine(logger *logrus.Logger, inputs domain.InputsConfig, pipeline *Pipeline, opts ...EngineOption) *Engine {
	e := &Engine{
		logger:   logger,
		inputs:   inputs,
		pipeline: pipeline,
		store:    &SnapshotStore{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Current returns the latest published snapshot.
func (e *Engine) Current() (*domain.Snapshot, error) {
	return e.store.Current()
}

// Pipeline returns the pipeline the engine loads with.
func (e *Engine) Pipeline() *Pipeline {
	return e.pipeline
}

// Reload reads every configured input and publishes a fresh snapshot.
func (e *Engine) Reload(ctx context.Context) (*domain.Snapshot, error) {
	start := time.Now()
	src, err := e.readSources()
	if err != nil {
		e.metrics.ObserveLoad(nil, time.Since(start))
		e.logger.WithError(err).Error("Failed to read inputs, keeping previous snapshot")
		return nil, fmt.Errorf("reading inputs: %w", err)
	}
	return e.load(ctx, src, start)
}

// Load runs the pipeline over already-read tables and publishes the result.
func (e *Engine) Load(ctx context.Context, src Sources) (*domain.Snapshot, error) {
	return e.load(ctx, src, time.Now())
}

func (e *Engine) load(ctx context.Context, src Sources, start time.Time) (*domain.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.pipeline.Load(ctx, src)
	e.metrics.ObserveLoad(snap, time.Since(start))
	if err != nil {
		e.logger.WithError(err).Error("Snapshot load failed, keeping previous snapshot")
		return nil, err
	}
	e.store.Publish(snap)
	return snap, nil
}

func (e *Engine) readSources() (Sources, error) {
	if strings.TrimSpace(e.inputs.RosterPath) == "" {
		return Sources{}, domain.ErrMissingRoster
	}
	roster, err := ingest.ReadCSV(e.inputs.RosterPath)
	if err != nil {
		return Sources{}, err
	}

	src := Sources{Roster: roster}
	for _, reg := range e.inputs.LicenseRegistries {
		table, err := e.readOptional(reg.Path, "license_registry_"+strings.ToLower(reg.State))
		if err != nil {
			return Sources{}, err
		}
		if table != nil {
			src.LicenseRegistries = append(src.LicenseRegistries, StateTable{State: reg.State, Table: table})
		}
	}

	src.NPIRegistry, err = e.readOptional(e.inputs.NPIRegistryPath, "npi_registry")
	if err != nil {
		return Sources{}, err
	}
	return src, nil
}

// readOptional returns nil for an unset or absent file. A file that exists
// but cannot be parsed is still an error.
func (e *Engine) readOptional(path, source string) (*ingest.Table, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	table, err := ingest.ReadCSV(path)
	if errors.Is(err, fs.ErrNotExist) {
		e.logger.WithFields(logrus.Fields{
			"source": source,
			"path":   path,
		}).Warn("Optional input not found, checks degrade to unknown")
		return nil, nil
	}
	return table, err
}

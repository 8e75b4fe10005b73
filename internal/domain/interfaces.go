package domain

import (
	"context"
)

// SnapshotSource hands out the currently published snapshot.
// Callers keep the pointer they received for the whole of their read.
type SnapshotSource interface {
	Current() (*Snapshot, error)
}

// Reloader recomputes and publishes a fresh snapshot from the configured inputs.
type Reloader interface {
	Reload(ctx context.Context) (*Snapshot, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetEngineConfig() EngineConfig
	GetInputsConfig() *InputsConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}

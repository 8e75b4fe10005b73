package domain

import (
	"time"
)

// Scoring categories. Weights for exactly these five must sum to 100.
const (
	CategoryLicense       = "license"
	CategoryNPI           = "npi"
	CategoryDuplicates    = "duplicates"
	CategoryContactFormat = "contact_format"
	CategoryMismatches    = "mismatches"
)

// ScoringCategories lists the weighted categories in a fixed order.
var ScoringCategories = []string{
	CategoryLicense,
	CategoryNPI,
	CategoryDuplicates,
	CategoryContactFormat,
	CategoryMismatches,
}

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Inputs      InputsConfig    `mapstructure:"inputs"`
	Engine      EngineConfig    `mapstructure:"engine"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Export      ExportConfig    `mapstructure:"export"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	MCP         MCPConfig       `mapstructure:"mcp"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// InputsConfig lists the source files of one load.
// Only the roster is mandatory.
type InputsConfig struct {
	RosterPath        string           `mapstructure:"roster_path"`
	LicenseRegistries []RegistrySource `mapstructure:"license_registries"`
	NPIRegistryPath   string           `mapstructure:"npi_registry_path"`
}

// RegistrySource is a state license registry file and the state that issued it.
type RegistrySource struct {
	State string `mapstructure:"state"`
	Path  string `mapstructure:"path"`
}

// EngineConfig is the immutable configuration handed to every engine component.
type EngineConfig struct {
	ColumnSynonyms       map[string][]string `mapstructure:"column_synonyms"`
	DateColumns          []string            `mapstructure:"date_columns"`
	DateLayouts          []string            `mapstructure:"date_layouts"`
	ScoringWeights       map[string]float64  `mapstructure:"scoring_weights"`
	Thresholds           Thresholds          `mapstructure:"thresholds"`
	ExpirationWindowDays int                 `mapstructure:"expiration_window_days"`
	DuplicateWorkers     int                 `mapstructure:"duplicate_workers"`
}

// Thresholds tunes entity resolution.
type Thresholds struct {
	// NameSimilarityMin is the 0-100 ratio at or above which two names are duplicates.
	NameSimilarityMin float64 `mapstructure:"name_similarity_min"`
	// BlockKeyLen is how many leading letters of the folded name form the block key.
	BlockKeyLen int `mapstructure:"block_key_len"`
	// BlockKeyLenMin is the shortest folded name that is still blocked.
	BlockKeyLenMin int  `mapstructure:"block_key_len_min"`
	BlockByState   bool `mapstructure:"block_by_state"`
}

// CacheConfig represents query result cache configuration
type CacheConfig struct {
	MaxItems int `mapstructure:"max_items"`
}

// ExportConfig configures the export run store.
type ExportConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// RateLimitConfig configures the HTTP API limiter.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
	TransportType string `mapstructure:"transport_type"` // only "stdio" is supported
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

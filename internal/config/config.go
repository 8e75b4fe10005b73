package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// Option customises a Manager before the first load.
type Option func(*Manager)

// WithConfigFile reads the given file instead of searching the default paths.
func WithConfigFile(path string) Option {
	return func(m *Manager) {
		m.configFile = path
	}
}

// NewManager creates a new configuration manager
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/provider-quality/")
	}

	// PDQ_SERVER_PORT overrides server.port and so on
	v.SetEnvPrefix("PDQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	normalizeEngineConfig(&config.Engine)

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")

	// Input defaults
	v.SetDefault("inputs.roster_path", "datasets/provider_roster_with_errors.csv")
	v.SetDefault("inputs.npi_registry_path", "")

	// Engine defaults
	v.SetDefault("engine.column_synonyms", DefaultColumnSynonyms())
	v.SetDefault("engine.date_columns", []string{domain.FieldLicenseExpirationDate})
	v.SetDefault("engine.date_layouts", DefaultDateLayouts())
	v.SetDefault("engine.scoring_weights", DefaultScoringWeights())
	v.SetDefault("engine.thresholds.name_similarity_min", 85.0)
	v.SetDefault("engine.thresholds.block_key_len", 4)
	v.SetDefault("engine.thresholds.block_key_len_min", 2)
	v.SetDefault("engine.thresholds.block_by_state", true)
	v.SetDefault("engine.expiration_window_days", 90)
	v.SetDefault("engine.duplicate_workers", 4)

	// Cache defaults
	v.SetDefault("cache.max_items", 256)

	// Export defaults
	v.SetDefault("export.db_path", "data/exports.db")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	// MCP defaults
	v.SetDefault("mcp.server_name", "provider-quality-engine")
	v.SetDefault("mcp.server_version", "v0.1.0")
	v.SetDefault("mcp.transport_type", "stdio")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// normalizeEngineConfig lower-cases keys that viper may have passed through
// from environment overrides and fills zero values a partial file can leave.
func normalizeEngineConfig(cfg *domain.EngineConfig) {
	if len(cfg.ColumnSynonyms) == 0 {
		cfg.ColumnSynonyms = DefaultColumnSynonyms()
	}
	synonyms := make(map[string][]string, len(cfg.ColumnSynonyms))
	for canonical, aliases := range cfg.ColumnSynonyms {
		synonyms[strings.ToLower(canonical)] = aliases
	}
	cfg.ColumnSynonyms = synonyms

	if len(cfg.DateLayouts) == 0 {
		cfg.DateLayouts = DefaultDateLayouts()
	}
	weights := make(map[string]float64, len(cfg.ScoringWeights))
	for k, w := range cfg.ScoringWeights {
		weights[strings.ToLower(k)] = w
	}
	cfg.ScoringWeights = weights
}

// DefaultColumnSynonyms maps each canonical roster field to the source column
// names accepted for it, in priority order.
func DefaultColumnSynonyms() map[string][]string {
	return map[string][]string{
		domain.FieldProviderID: {"provider_id", "id", "prv_id", "provider_identifier"},
		domain.FieldFirstName:  {"first_name", "fname", "given_name", "provider_first_name"},
		domain.FieldLastName:   {"last_name", "lname", "surname", "provider_last_name"},
		domain.FieldFullName:   {"full_name", "name", "provider_name"},
		domain.FieldNPI:        {"npi", "npi_number", "provider_npi"},
		domain.FieldLicenseNumber: {
			"license_number", "lic_no", "license", "provider_license_number",
		},
		domain.FieldLicenseState: {
			"license_state", "state_license", "lic_state", "issuing_state",
		},
		domain.FieldLicenseExpirationDate: {
			"license_expiration_date", "expiration_date", "expiry", "exp_date", "license_expiration", "license_exp",
		},
		domain.FieldSpecialty: {"specialty", "primary_specialty", "taxonomy", "taxonomy_code"},
		domain.FieldPhone:     {"phone", "phone_number", "telephone", "contact_phone", "practice_phone"},
		domain.FieldEmail:     {"email", "email_address", "contact_email"},
		domain.FieldAddressLine1: {
			"address_line1", "address1", "street", "practice_address_line1", "mailing_address_line1",
		},
		domain.FieldAddressCity:  {"address_city", "city", "practice_city", "mailing_city"},
		domain.FieldAddressState: {"address_state", "state", "practice_state", "mailing_state"},
		domain.FieldAddressZip: {
			"address_zip", "zip", "zipcode", "postal_code", "practice_zip", "mailing_zip",
		},
	}
}

// DefaultDateLayouts are tried in order when parsing date columns.
func DefaultDateLayouts() []string {
	return []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"1/2/2006",
		"01-02-2006",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"Jan 2, 2006",
		"2 Jan 2006",
		"20060102",
	}
}

// DefaultScoringWeights returns the category weights; they sum to 100.
func DefaultScoringWeights() map[string]float64 {
	return map[string]float64{
		domain.CategoryLicense:       35,
		domain.CategoryNPI:           25,
		domain.CategoryDuplicates:    15,
		domain.CategoryContactFormat: 15,
		domain.CategoryMismatches:    10,
	}
}

// ValidateWeights checks that weights cover exactly the scoring categories,
// are positive and sum to exactly 100. Weights are never renormalized. A zero
// weight would let a category carry issues while the score stays at 100.
func ValidateWeights(weights map[string]float64) error {
	known := make(map[string]bool, len(domain.ScoringCategories))
	for _, c := range domain.ScoringCategories {
		known[c] = true
		if _, ok := weights[c]; !ok {
			return fmt.Errorf("%w: %v", domain.ErrInvalidWeights,
				domain.NewValidationError("engine.scoring_weights."+c, "missing weight", nil))
		}
	}

	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sum float64
	for _, k := range keys {
		w := weights[k]
		if !known[k] {
			return fmt.Errorf("%w: %v", domain.ErrInvalidWeights,
				domain.NewValidationError("engine.scoring_weights."+k, "unknown category", w))
		}
		if w <= 0 {
			return fmt.Errorf("%w: %v", domain.ErrInvalidWeights,
				domain.NewValidationError("engine.scoring_weights."+k, "weight must be positive", w))
		}
		sum += w
	}
	if math.Abs(sum-100) > 1e-9 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidWeights,
			domain.NewValidationError("engine.scoring_weights", "weights must sum to 100", sum))
	}
	return nil
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetInputsConfig returns the configured input files
func (m *Manager) GetInputsConfig() *domain.InputsConfig {
	return &m.config.Inputs
}

// GetEngineConfig returns a copy of the engine configuration. Maps and slices
// are cloned so components cannot alter each other's view.
func (m *Manager) GetEngineConfig() domain.EngineConfig {
	src := m.config.Engine
	out := src

	out.ColumnSynonyms = make(map[string][]string, len(src.ColumnSynonyms))
	for k, aliases := range src.ColumnSynonyms {
		out.ColumnSynonyms[k] = append([]string(nil), aliases...)
	}
	out.DateColumns = append([]string(nil), src.DateColumns...)
	out.DateLayouts = append([]string(nil), src.DateLayouts...)
	out.ScoringWeights = make(map[string]float64, len(src.ScoringWeights))
	for k, w := range src.ScoringWeights {
		out.ScoringWeights[k] = w
	}
	return out
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if strings.TrimSpace(config.Inputs.RosterPath) == "" {
		return domain.ErrMissingRoster
	}
	for i, reg := range config.Inputs.LicenseRegistries {
		if strings.TrimSpace(reg.State) == "" {
			return domain.NewValidationError(fmt.Sprintf("inputs.license_registries[%d].state", i), "issuing state is required", reg.Path)
		}
	}

	// Scoring weights are fatal before any record is processed
	if err := ValidateWeights(config.Engine.ScoringWeights); err != nil {
		return err
	}

	th := config.Engine.Thresholds
	if th.NameSimilarityMin < 0 || th.NameSimilarityMin > 100 {
		return domain.NewValidationError("engine.thresholds.name_similarity_min", "must be within [0,100]", th.NameSimilarityMin)
	}
	if th.BlockKeyLen <= 0 {
		return domain.NewValidationError("engine.thresholds.block_key_len", "must be positive", th.BlockKeyLen)
	}
	if config.Engine.ExpirationWindowDays < 0 {
		return domain.NewValidationError("engine.expiration_window_days", "must not be negative", config.Engine.ExpirationWindowDays)
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}

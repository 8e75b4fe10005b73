// Package setup provides preflight checks for the provider quality engine's
// configured inputs and output locations.
package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// InputStatus describes one configured source file.
type InputStatus struct {
	Name     string
	Path     string
	Required bool
	Exists   bool
}

// Status represents the current setup status.
type Status struct {
	Inputs         []InputStatus
	ExportDBPath   string
	ExportDBExists bool
	Issues         []string
	Warnings       []string
}

// Ready reports whether a load can be attempted.
func (s *Status) Ready() bool {
	return len(s.Issues) == 0
}

// Inspect checks the configured inputs on disk. A missing roster is an issue;
// a missing optional registry only warns, matching how a load treats it.
func Inspect(cfg *domain.Config) *Status {
	status := &Status{
		Issues:   []string{},
		Warnings: []string{},
	}

	add := func(name, path string, required bool) {
		in := InputStatus{Name: name, Path: path, Required: required}
		if strings.TrimSpace(path) == "" {
			if required {
				status.Issues = append(status.Issues, fmt.Sprintf("%s path is not configured", name))
			}
			return
		}
		if _, err := os.Stat(path); err == nil {
			in.Exists = true
		} else if required {
			status.Issues = append(status.Issues, fmt.Sprintf("%s not found: %s", name, path))
		} else {
			status.Warnings = append(status.Warnings, fmt.Sprintf("%s not found, it will be skipped: %s", name, path))
		}
		status.Inputs = append(status.Inputs, in)
	}

	add("roster", cfg.Inputs.RosterPath, true)
	for _, reg := range cfg.Inputs.LicenseRegistries {
		add(fmt.Sprintf("license registry (%s)", strings.ToUpper(reg.State)), reg.Path, false)
	}
	add("npi registry", cfg.Inputs.NPIRegistryPath, false)

	status.ExportDBPath = cfg.Export.DBPath
	if cfg.Export.DBPath != "" {
		if _, err := os.Stat(cfg.Export.DBPath); err == nil {
			status.ExportDBExists = true
		} else if _, err := os.Stat(filepath.Dir(cfg.Export.DBPath)); os.IsNotExist(err) {
			status.Warnings = append(status.Warnings, fmt.Sprintf("export directory will be created on first run: %s", filepath.Dir(cfg.Export.DBPath)))
		}
	}

	return status
}

// EnsureDataDir creates the directory holding the export database.
func EnsureDataDir(cfg *domain.Config) error {
	if cfg.Export.DBPath == "" {
		return nil
	}
	dir := filepath.Dir(cfg.Export.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

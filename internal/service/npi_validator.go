package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// NPIResult holds the identifier flags for one roster record.
// Missing and Found are independent: a blank identifier is missing and not
// found, an unknown identifier is neither.
type NPIResult struct {
	Found   bool
	Missing bool
}

// NPIValidator joins the roster to the identifier registry.
type NPIValidator struct {
	logger *logrus.Logger
}

// NewNPIValidator creates a new identifier validator
func NewNPIValidator(logger *logrus.Logger) *NPIValidator {
	return &NPIValidator{logger: logger}
}

// Validate returns exactly one result per roster record, in roster order.
func (v *NPIValidator) Validate(roster []domain.RosterRecord, registry []domain.RegistryRecord) []NPIResult {
	known := make(map[string]struct{}, len(registry))
	for _, row := range registry {
		if id := strings.TrimSpace(row.NPI); id != "" {
			known[id] = struct{}{}
		}
	}

	results := make([]NPIResult, len(roster))
	missing := 0
	for i := range roster {
		id := strings.TrimSpace(roster[i].NPI)
		if id == "" {
			results[i] = NPIResult{Missing: true}
			missing++
			continue
		}
		_, ok := known[id]
		results[i] = NPIResult{Found: ok}
	}

	v.logger.WithFields(logrus.Fields{
		"roster_records": len(roster),
		"registry_ids":   len(known),
		"missing":        missing,
	}).Info("Completed NPI validation")

	return results
}

package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// MultiStateDetector flags providers that practice in several states under a
// single license number.
type MultiStateDetector struct {
	logger *logrus.Logger
}

// NewMultiStateDetector creates a new multi-state detector
func NewMultiStateDetector(logger *logrus.Logger) *MultiStateDetector {
	return &MultiStateDetector{logger: logger}
}

// IdentityKey groups records by NPI when present, else by folded full name.
// Records with neither have no identity and are never flagged.
func IdentityKey(rec *domain.RosterRecord) (string, bool) {
	if npi := strings.TrimSpace(rec.NPI); npi != "" {
		return "npi:" + npi, true
	}
	if name := FoldName(rec.FullName); name != "" {
		return "name:" + name, true
	}
	return "", false
}

type identityGroup struct {
	states   map[string]struct{}
	licenses map[string]struct{}
}

// Detect returns one flag per record. Blank states and license numbers do not
// count as distinct values.
func (m *MultiStateDetector) Detect(records []domain.RosterRecord) []bool {
	groups := make(map[string]*identityGroup)
	keys := make([]string, len(records))

	for i := range records {
		key, ok := IdentityKey(&records[i])
		if !ok {
			continue
		}
		keys[i] = key
		g, exists := groups[key]
		if !exists {
			g = &identityGroup{states: map[string]struct{}{}, licenses: map[string]struct{}{}}
			groups[key] = g
		}
		if s := strings.ToUpper(strings.TrimSpace(records[i].AddressState)); s != "" {
			g.states[s] = struct{}{}
		}
		if l := strings.TrimSpace(records[i].LicenseNumber); l != "" {
			g.licenses[l] = struct{}{}
		}
	}

	flagged := make(map[string]bool, len(groups))
	for key, g := range groups {
		if len(g.states) > 1 && len(g.licenses) <= 1 {
			flagged[key] = true
		}
	}

	flags := make([]bool, len(records))
	count := 0
	for i, key := range keys {
		// keyless records and unflagged groups resolve to false
		if flagged[key] {
			flags[i] = true
			count++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"groups":  len(groups),
		"flagged": len(flagged),
		"records": count,
	}).Info("Completed multi-state license check")

	return flags
}

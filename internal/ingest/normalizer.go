package ingest

import (
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// Normalizer maps arbitrary source column names onto canonical field names
// and parses date-typed fields.
type Normalizer struct {
	logger      *logrus.Logger
	synonyms    map[string][]string
	canonical   []string
	dateColumns map[string]bool
	layouts     []string
}

// NewNormalizer creates a normalizer from the engine configuration.
func NewNormalizer(logger *logrus.Logger, cfg domain.EngineConfig) *Normalizer {
	canonical := make([]string, 0, len(cfg.ColumnSynonyms))
	for field := range cfg.ColumnSynonyms {
		canonical = append(canonical, field)
	}
	// map iteration order is random; resolve canonical fields in a fixed order
	sort.Strings(canonical)

	dateColumns := make(map[string]bool, len(cfg.DateColumns))
	for _, c := range cfg.DateColumns {
		dateColumns[strings.ToLower(c)] = true
	}

	return &Normalizer{
		logger:      logger,
		synonyms:    cfg.ColumnSynonyms,
		canonical:   canonical,
		dateColumns: dateColumns,
		layouts:     cfg.DateLayouts,
	}
}

// Normalize returns a copy of the table with source columns renamed to their
// canonical names. For each canonical field the first alias present in the
// source wins, and a source column is consumed by at most one field.
// Columns that match nothing keep their lower-cased source name.
func (n *Normalizer) Normalize(t *Table) *Table {
	lower := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		key := strings.ToLower(strings.TrimSpace(c))
		if _, seen := lower[key]; !seen {
			lower[key] = i
		}
	}

	renamed := make([]string, len(t.Columns))
	consumed := make(map[int]bool, len(t.Columns))
	mapped := make(map[string]bool, len(n.canonical))

	for _, field := range n.canonical {
		for _, alias := range n.synonyms[field] {
			idx, ok := lower[strings.ToLower(alias)]
			if !ok || consumed[idx] {
				continue
			}
			renamed[idx] = field
			consumed[idx] = true
			mapped[field] = true
			break
		}
	}

	for i, c := range t.Columns {
		if consumed[i] {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(c))
		if mapped[name] {
			// the canonical name was claimed by a higher-priority alias
			name = "source_" + name
		}
		renamed[i] = name
	}

	if n.logger != nil {
		n.logger.WithFields(logrus.Fields{
			"source_columns": len(t.Columns),
			"mapped_fields":  len(mapped),
		}).Debug("Normalized table schema")
	}

	return &Table{Columns: renamed, Rows: t.Rows}
}

// IsDateColumn reports whether the canonical field is parsed as a date.
func (n *Normalizer) IsDateColumn(field string) bool {
	return n.dateColumns[field]
}

// ParseDate parses a value with the configured layouts.
func (n *Normalizer) ParseDate(value string) *time.Time {
	return ParseDate(value, n.layouts)
}

// ParseDate tries each layout in order and returns the calendar date at UTC
// midnight. Blank or unparsable values yield nil.
func ParseDate(value string, layouts []string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		d := DateOf(parsed)
		return &d
	}
	return nil
}

// DateOf truncates a time to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

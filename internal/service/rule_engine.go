package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// Rule codes
const (
	RulePhoneFormat      = "phone_format"
	RuleSpecialtyMissing = "specialty_missing"
)

// RuleCategory groups rules by the part of the record they inspect.
type RuleCategory string

const (
	CategoryContact        RuleCategory = "contact"
	CategoryClassification RuleCategory = "classification"
)

var phonePattern = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)

// QualityRule is a single per-record predicate. Applied means the record has
// the issue.
type QualityRule struct {
	Code        string
	Name        string
	Category    RuleCategory
	Description string
	Evaluator   func(rec *domain.RosterRecord) bool
}

// RuleResults maps rule code to whether the rule flagged the record.
type RuleResults map[string]bool

// RuleEngine evaluates independent record-level quality rules.
// No rule reads another rule's output.
type RuleEngine struct {
	logger *logrus.Logger
	rules  map[string]*QualityRule
	codes  []string
}

// NewRuleEngine creates a new rule engine with every built-in rule registered
func NewRuleEngine(logger *logrus.Logger) *RuleEngine {
	engine := &RuleEngine{
		logger: logger,
		rules:  make(map[string]*QualityRule),
	}

	engine.initializeRules()

	return engine
}

func (e *RuleEngine) initializeRules() {
	e.addRule(RulePhoneFormat, "Phone format", CategoryContact,
		"Phone is blank or not formatted as (NNN) NNN-NNNN",
		func(rec *domain.RosterRecord) bool {
			// the raw value must match exactly; surrounding spaces are an issue
			return strings.TrimSpace(rec.Phone) == "" || !phonePattern.MatchString(rec.Phone)
		})

	e.addRule(RuleSpecialtyMissing, "Missing specialty", CategoryClassification,
		"Specialty is blank",
		func(rec *domain.RosterRecord) bool {
			return strings.TrimSpace(rec.Specialty) == ""
		})
}

func (e *RuleEngine) addRule(code, name string, category RuleCategory, description string, evaluator func(*domain.RosterRecord) bool) {
	e.rules[code] = &QualityRule{
		Code:        code,
		Name:        name,
		Category:    category,
		Description: description,
		Evaluator:   evaluator,
	}
	e.codes = append(e.codes, code)
	sort.Strings(e.codes)
}

// Rules returns the registered rules ordered by code.
func (e *RuleEngine) Rules() []QualityRule {
	out := make([]QualityRule, 0, len(e.codes))
	for _, code := range e.codes {
		out = append(out, *e.rules[code])
	}
	return out
}

// Evaluate runs every rule against one record.
func (e *RuleEngine) Evaluate(rec *domain.RosterRecord) RuleResults {
	results := make(RuleResults, len(e.rules))
	for code, rule := range e.rules {
		results[code] = rule.Evaluator(rec)
	}
	return results
}

// EvaluateAll runs every rule against every record, one result per record.
func (e *RuleEngine) EvaluateAll(records []domain.RosterRecord) []RuleResults {
	results := make([]RuleResults, len(records))
	applied := make(map[string]int, len(e.rules))
	for i := range records {
		results[i] = e.Evaluate(&records[i])
		for code, hit := range results[i] {
			if hit {
				applied[code]++
			}
		}
	}

	fields := logrus.Fields{"records": len(records)}
	for code, n := range applied {
		fields[code] = n
	}
	e.logger.WithFields(fields).Info("Completed quality rule evaluation")

	return results
}

// EvaluateRule runs a single rule by code.
func (e *RuleEngine) EvaluateRule(code string, rec *domain.RosterRecord) (bool, error) {
	rule, exists := e.rules[code]
	if !exists {
		return false, fmt.Errorf("unknown quality rule: %s", code)
	}
	return rule.Evaluator(rec), nil
}

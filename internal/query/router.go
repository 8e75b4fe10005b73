package query

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/metrics"
)

// Intent names accepted by the router.
const (
	IntentExpiredLicenseCount     = "expired_license_count"
	IntentPhoneFormatIssues       = "phone_format_issues"
	IntentMissingNPI              = "missing_npi"
	IntentDuplicateRecords        = "duplicate_records"
	IntentOverallQualityScore     = "overall_quality_score"
	IntentSpecialtiesMostIssues   = "specialties_with_most_issues"
	IntentStateIssueSummary       = "state_issue_summary"
	IntentComplianceReportExpired = "compliance_report_expired"
	IntentExpirationWindow        = "filter_by_expiration_window"
	IntentMultiStateSingleLicense = "multi_state_single_license"
	IntentExportUpdateList        = "export_update_list"
	IntentDuplicatePairs          = "duplicate_pairs"
	IntentQualityInsights         = "quality_insights"
	IntentExpirationTimeline      = "expiration_timeline"

	// FallbackIntent answers any unrecognized intent.
	FallbackIntent = IntentOverallQualityScore

	// MaxWindowDays bounds the expiration window to ten years.
	MaxWindowDays = 3650
)

// Params are the resolved parameters of an intent.
type Params map[string]any

// Result is the answer to one routed intent.
type Result struct {
	Intent     string `json:"intent"`
	Requested  string `json:"requested_intent,omitempty"`
	Fallback   bool   `json:"fallback"`
	SnapshotID string `json:"snapshot_id"`
	Count      int    `json:"count"`
	Data       any    `json:"data"`
}

// handler answers one intent from a snapshot.
type handler func(snap *domain.Snapshot, params Params) (any, error)

// RouterConfig tunes the router.
type RouterConfig struct {
	DefaultWindowDays int
	CacheSize         int
	Metrics           *metrics.Metrics
}

// Router dispatches resolved intents to aggregator operations. Answers are
// cached per snapshot, so a reload never serves stale results.
type Router struct {
	logger     *logrus.Logger
	source     domain.SnapshotSource
	handlers   map[string]handler
	cache      *lru.Cache[string, *Result]
	windowDays int
	metrics    *metrics.Metrics
}

// NewRouter creates a new router over a snapshot source
func NewRouter(logger *logrus.Logger, source domain.SnapshotSource, cfg RouterConfig) (*Router, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, *Result](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	r := &Router{
		logger:     logger,
		source:     source,
		cache:      cache,
		windowDays: cfg.DefaultWindowDays,
		metrics:    cfg.Metrics,
	}
	r.handlers = map[string]handler{
		IntentExpiredLicenseCount: func(s *domain.Snapshot, _ Params) (any, error) {
			return ExpiredLicenseCount(s), nil
		},
		IntentPhoneFormatIssues:       records(PhoneIssues),
		IntentMissingNPI:              records(MissingNPI),
		IntentDuplicateRecords:        records(DuplicateRecords),
		IntentComplianceReportExpired: records(ComplianceReport),
		IntentMultiStateSingleLicense: records(MultiStateSingleLicense),
		IntentExportUpdateList:        records(ExportList),
		IntentOverallQualityScore: func(s *domain.Snapshot, _ Params) (any, error) {
			return OverallScore(s), nil
		},
		IntentSpecialtiesMostIssues: func(s *domain.Snapshot, p Params) (any, error) {
			limit, err := IntParam(p, "limit", 10)
			if err != nil {
				return nil, err
			}
			out := SpecialtySummary(s)
			if limit > 0 && len(out) > limit {
				out = out[:limit]
			}
			return out, nil
		},
		IntentStateIssueSummary: func(s *domain.Snapshot, _ Params) (any, error) {
			return StateSummary(s), nil
		},
		IntentExpirationWindow: func(s *domain.Snapshot, p Params) (any, error) {
			days, err := IntParam(p, "days", r.windowDays)
			if err != nil {
				return nil, err
			}
			if days < 0 {
				return nil, domain.NewValidationError("days", "must not be negative", days)
			}
			if days > MaxWindowDays {
				return nil, domain.NewValidationError("days", fmt.Sprintf("must not exceed %d", MaxWindowDays), days)
			}
			return ExpirationWindow(s, days), nil
		},
		IntentDuplicatePairs: func(s *domain.Snapshot, _ Params) (any, error) {
			return DuplicatePairs(s), nil
		},
		IntentQualityInsights: func(s *domain.Snapshot, _ Params) (any, error) {
			return BuildInsights(s), nil
		},
		IntentExpirationTimeline: func(s *domain.Snapshot, _ Params) (any, error) {
			return ExpirationTimeline(s), nil
		},
	}
	return r, nil
}

func records(op func(*domain.Snapshot) []domain.AugmentedRecord) handler {
	return func(s *domain.Snapshot, _ Params) (any, error) {
		return op(s), nil
	}
}

// Intents returns every recognized intent name, sorted.
func (r *Router) Intents() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Known reports whether the intent is recognized.
func (r *Router) Known(intent string) bool {
	_, ok := r.handlers[normalizeIntent(intent)]
	return ok
}

// Route answers an intent against the current snapshot. An unrecognized
// intent is answered by the overall score operation and is not an error.
func (r *Router) Route(ctx context.Context, intent string, params Params) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := r.source.Current()
	if err != nil {
		return nil, err
	}

	name := normalizeIntent(intent)
	h, ok := r.handlers[name]
	fallback := !ok
	if fallback {
		r.logger.WithField("intent", intent).Info("Unrecognized intent, answering with overall score")
		name = FallbackIntent
		h = r.handlers[name]
	}

	r.metrics.IncrementIntent(name, fallback)

	key, cacheable := cacheKey(snap.ID, name, params)
	if cacheable {
		if cached, hit := r.cache.Get(key); hit {
			return withRequest(cached, intent, fallback), nil
		}
	}

	data, err := h(snap, params)
	if err != nil {
		return nil, fmt.Errorf("intent %s: %w", name, err)
	}

	result := &Result{
		Intent:     name,
		SnapshotID: snap.ID,
		Count:      countOf(data),
		Data:       data,
	}
	if cacheable {
		r.cache.Add(key, result)
	}

	r.logger.WithFields(logrus.Fields{
		"intent":      name,
		"snapshot_id": snap.ID,
		"count":       result.Count,
	}).Debug("Routed intent")

	return withRequest(result, intent, fallback), nil
}

// Report answers a named report. Unlike Route it does not fall back: an
// unknown name is an error.
func (r *Router) Report(ctx context.Context, name string, params Params) (*Result, error) {
	if !r.Known(name) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownIntent, name)
	}
	return r.Route(ctx, name, params)
}

// withRequest copies the shared result and stamps the caller's request on it.
func withRequest(res *Result, requested string, fallback bool) *Result {
	out := *res
	out.Fallback = fallback
	if fallback {
		out.Requested = requested
	}
	return &out
}

func normalizeIntent(intent string) string {
	return strings.ToLower(strings.TrimSpace(intent))
}

// cacheKey is stable for equal params because encoding/json sorts map keys.
func cacheKey(snapshotID, intent string, params Params) (string, bool) {
	if len(params) == 0 {
		return snapshotID + "|" + intent, true
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", false
	}
	return snapshotID + "|" + intent + "|" + string(raw), true
}

func countOf(data any) int {
	switch v := data.(type) {
	case []domain.AugmentedRecord:
		return len(v)
	case []GroupSummary:
		return len(v)
	case []PairView:
		return len(v)
	case []MonthCount:
		return len(v)
	case int:
		return v
	default:
		return 1
	}
}

// IntParam reads an integer parameter that may arrive as a JSON number, an
// int or a numeric string. A missing or null value yields def.
func IntParam(params Params, name string, def int) (int, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, domain.NewValidationError(name, "must be a whole number", v)
		}
		if math.Abs(v) > math.MaxInt32 {
			return 0, domain.NewValidationError(name, "out of range", v)
		}
		return int(v), nil
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, domain.NewValidationError(name, "must be a whole number", v)
		}
		return n, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, domain.NewValidationError(name, "must be a whole number", v)
		}
		return n, nil
	default:
		return 0, domain.NewValidationError(name, "unsupported type", v)
	}
}

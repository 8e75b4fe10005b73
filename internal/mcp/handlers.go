package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/export"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/query"
)

// Tool names beyond the per-intent tools.
const (
	ToolQuery      = "query"
	ToolReload     = "reload_snapshot"
	ToolSaveExport = "save_export"
)

var intentDescriptions = map[string]string{
	query.IntentExpiredLicenseCount:     "Count providers whose best known license expiration is before today.",
	query.IntentPhoneFormatIssues:       "List providers whose phone is not formatted as (XXX) XXX-XXXX.",
	query.IntentMissingNPI:              "List providers with no NPI on their roster record.",
	query.IntentDuplicateRecords:        "List providers flagged as probable duplicates.",
	query.IntentOverallQualityScore:     "Weighted 0-100 data quality score with dashboard counts.",
	query.IntentSpecialtiesMostIssues:   "Specialties ranked by total issues. Param: limit (default 10).",
	query.IntentStateIssueSummary:       "Per-state issue counts grouped by practice address state.",
	query.IntentComplianceReportExpired: "Providers with an expired license or a license issued by a state other than the declared one, for compliance follow-up.",
	query.IntentExpirationWindow:        "Providers whose license expires within the next N days. Param: days.",
	query.IntentMultiStateSingleLicense: "Providers seen practicing in several states who hold only one license.",
	query.IntentExportUpdateList:        "Every provider record carrying at least one issue.",
	query.IntentDuplicatePairs:          "Candidate duplicate pairs with their name similarity.",
	query.IntentQualityInsights:         "Overall assessment tier, critical issues and compliance status.",
	query.IntentExpirationTimeline:      "Monthly counts of upcoming license expirations over the next 24 months.",
}

// IntentInput is the argument object shared by the intent tools.
type IntentInput struct {
	Params map[string]any `json:"params,omitempty" jsonschema:"intent parameters such as days or limit"`
}

// QueryInput is the argument object of the query tool.
type QueryInput struct {
	Intent string         `json:"intent" jsonschema:"intent name, for example missing_npi"`
	Params map[string]any `json:"params,omitempty" jsonschema:"intent parameters such as days or limit"`
}

// ReloadInput is the (empty) argument object of the reload tool.
type ReloadInput struct{}

// ExportInput is the argument object of the save_export tool.
type ExportInput struct {
	Report string         `json:"report,omitempty" jsonschema:"record report to persist, default export_update_list"`
	Params map[string]any `json:"params,omitempty" jsonschema:"report parameters"`
}

// intentHandler answers one fixed intent.
func (s *Server) intentHandler(intent string) func(context.Context, *mcp.CallToolRequest, IntentInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, in IntentInput) (*mcp.CallToolResult, any, error) {
		s.logger.WithField("tool", intent).Info("Tool invoked")

		result, err := s.queries.Report(ctx, intent, in.Params)
		if err != nil {
			return s.createErrorResult("Query failed", err), nil, nil
		}
		return s.createJSONResult(result)
	}
}

func (s *Server) handleQuery(ctx context.Context, req *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": ToolQuery, "intent": in.Intent}).Info("Tool invoked")

	if strings.TrimSpace(in.Intent) == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("intent is required")), nil, nil
	}
	result, err := s.queries.Route(ctx, in.Intent, in.Params)
	if err != nil {
		return s.createErrorResult("Query failed", err), nil, nil
	}
	return s.createJSONResult(result)
}

func (s *Server) handleReload(ctx context.Context, req *mcp.CallToolRequest, _ ReloadInput) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolReload).Info("Tool invoked")

	snap, err := s.engine.Reload(ctx)
	if err != nil {
		return s.createErrorResult("Reload failed, previous snapshot kept", err), nil, nil
	}
	return s.createJSONResult(map[string]any{
		"snapshot_id": snap.ID,
		"loaded_at":   snap.LoadedAt,
		"records":     snap.Total(),
		"score":       snap.Score.Score,
	})
}

func (s *Server) handleSaveExport(ctx context.Context, req *mcp.CallToolRequest, in ExportInput) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolSaveExport).Info("Tool invoked")

	report := strings.TrimSpace(in.Report)
	if report == "" {
		report = query.IntentExportUpdateList
	}
	result, err := s.queries.Report(ctx, report, in.Params)
	if err != nil {
		return s.createErrorResult("Query failed", err), nil, nil
	}
	run, err := export.NewRun(result)
	if err != nil {
		return s.createErrorResult("Invalid report", err), nil, nil
	}
	if err := s.exports.Save(ctx, run); err != nil {
		return s.createErrorResult("Failed to save export", err), nil, nil
	}
	return s.createJSONResult(run.Summary())
}

// createJSONResult renders v as indented JSON text content.
func (s *Server) createJSONResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}

// createErrorResult creates an error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	s.logger.WithError(err).Error(message)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v", message, err)},
		},
	}
}

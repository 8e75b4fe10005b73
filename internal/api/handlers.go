package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/export"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/middleware"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/query"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Intent string       `json:"intent" binding:"required"`
	Params query.Params `json:"params"`
}

// ExportRequest is the body of POST /api/v1/exports. Report defaults to the
// update list and must produce provider records.
type ExportRequest struct {
	Report string       `json:"report"`
	Params query.Params `json:"params"`
}

// RecordsPage is one page of augmented records.
type RecordsPage struct {
	SnapshotID string                   `json:"snapshot_id"`
	Total      int                      `json:"total"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
	Records    []domain.AugmentedRecord `json:"records"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   s.configManager.GetConfig().MCP.ServerVersion,
	}
	if snap, err := s.engine.Current(); err == nil {
		body["snapshot_id"] = snap.ID
		body["loaded_at"] = snap.LoadedAt
		body["records"] = snap.Total()
	} else {
		body["status"] = "degraded"
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleScore(c *gin.Context) {
	snap, err := s.engine.Current()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, query.OverallScore(snap))
}

func (s *Server) handleStats(c *gin.Context) {
	snap, err := s.engine.Current()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshot_id": snap.ID,
		"stats":       snap.Stats,
	})
}

// handleRecords pages through the snapshot. Optional filters: state (address
// state, case-insensitive) and issues_only.
func (s *Server) handleRecords(c *gin.Context) {
	snap, err := s.engine.Current()
	if err != nil {
		s.writeError(c, err)
		return
	}

	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	issuesOnly := c.Query("issues_only") == "true"
	state := strings.ToUpper(strings.TrimSpace(c.Query("state")))

	matched := make([]domain.AugmentedRecord, 0)
	for i := range snap.Records {
		r := &snap.Records[i]
		if issuesOnly && !r.AnyIssue() {
			continue
		}
		if state != "" && strings.ToUpper(strings.TrimSpace(r.AddressState)) != state {
			continue
		}
		matched = append(matched, *r)
	}

	page := RecordsPage{
		SnapshotID: snap.ID,
		Total:      len(matched),
		Limit:      limit,
		Offset:     offset,
		Records:    []domain.AugmentedRecord{},
	}
	if offset < len(matched) {
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Records = matched[offset:end]
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleIntents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"intents":  s.queries.Intents(),
		"fallback": query.FallbackIntent,
	})
}

// handleReport answers a named report; query string values other than
// format become params. format=csv streams tabular results as a CSV file.
func (s *Server) handleReport(c *gin.Context) {
	format, ok := downloadFormat(c)
	if !ok {
		return
	}
	params := query.Params{}
	for key, values := range c.Request.URL.Query() {
		if key != "format" && len(values) > 0 {
			params[key] = values[0]
		}
	}

	result, err := s.queries.Report(c.Request.Context(), c.Param("name"), params)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if format == export.FormatCSV {
		s.writeCSV(c, result.Intent+"-"+result.SnapshotID+".csv", result.Data)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid query request", err.Error())
		return
	}

	result, err := s.queries.Route(c.Request.Context(), req.Intent, req.Params)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleReload(c *gin.Context) {
	snap, err := s.engine.Reload(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Warn("Reload failed, previous snapshot kept")
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, domain.NewEngineError(
			domain.ErrCodeLoadFailed,
			"Reload failed",
			err.Error(),
			c.GetString(middleware.CorrelationIDKey),
		))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshot_id": snap.ID,
		"loaded_at":   snap.LoadedAt,
		"records":     snap.Total(),
		"score":       snap.Score.Score,
	})
}

func (s *Server) handleCreateExport(c *gin.Context) {
	var req ExportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid export request", err.Error())
			return
		}
	}
	if strings.TrimSpace(req.Report) == "" {
		req.Report = query.IntentExportUpdateList
	}

	result, err := s.queries.Report(c.Request.Context(), req.Report, req.Params)
	if err != nil {
		s.writeError(c, err)
		return
	}
	run, err := export.NewRun(result)
	if err != nil {
		badRequest(c, "Report does not produce exportable rows", req.Report)
		return
	}
	if err := s.exports.Save(c.Request.Context(), run); err != nil {
		s.logger.WithError(err).Error("Failed to save export run")
		c.AbortWithStatusJSON(http.StatusInternalServerError, domain.NewEngineError(
			domain.ErrCodeExportFailed,
			"Failed to save export",
			"",
			c.GetString(middleware.CorrelationIDKey),
		))
		return
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":      run.ID,
		"snapshot_id": run.SnapshotID,
		"report":      run.Report,
		"rows":        run.RowCount,
	}).Info("Export run saved")

	c.JSON(http.StatusCreated, run.Summary())
}

func (s *Server) handleListExports(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	runs, err := s.exports.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	total, err := s.exports.Count(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total": total,
		"runs":  runs,
	})
}

func (s *Server) handleGetExport(c *gin.Context) {
	run, err := s.exports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleDownloadExport streams a stored run as JSON (default) or CSV.
func (s *Server) handleDownloadExport(c *gin.Context) {
	format, ok := downloadFormat(c)
	if !ok {
		return
	}
	id := c.Param("id")
	// Get first so a missing run is still a JSON 404
	if _, err := s.exports.Get(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}

	write := s.exports.ExportJSON
	contentType := "application/json"
	if format == export.FormatCSV {
		write = s.exports.ExportCSV
		contentType = "text/csv; charset=utf-8"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "export-"+id+"."+format))
	c.Status(http.StatusOK)
	if err := write(c.Request.Context(), id, c.Writer); err != nil {
		s.logger.WithError(err).WithField("run_id", id).Error("Failed to stream export")
	}
}

// writeCSV renders tabular report data into a buffer first so a non-tabular
// result still gets a JSON error body.
func (s *Server) writeCSV(c *gin.Context, filename string, data any) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, data); err != nil {
		if errors.Is(err, export.ErrNotTabular) {
			badRequest(c, "Report cannot be rendered as CSV", err.Error())
			return
		}
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// downloadFormat reads the format query value; on bad input it writes a 400
// and returns ok=false.
func downloadFormat(c *gin.Context) (string, bool) {
	switch format := strings.ToLower(c.DefaultQuery("format", export.FormatJSON)); format {
	case export.FormatJSON, export.FormatCSV:
		return format, true
	default:
		badRequest(c, "Invalid format", format)
		return "", false
	}
}

// pagination reads limit and offset; on bad input it writes a 400 and
// returns ok=false.
func pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit, offset = defaultPageSize, 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "Invalid limit", raw)
			return 0, 0, false
		}
		limit = n
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "Invalid offset", raw)
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/service"
)

// ReportHandler serves project and group aggregates and raw exports.
type ReportHandler struct {
	reports *service.ReportService
	exports *service.ExportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reports *service.ReportService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// ProjectReport handles GET /api/v1/reports/projects/:id.
func (h *ReportHandler) ProjectReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	report, err := h.reports.ProjectReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GroupReport handles GET /api/v1/reports/groups/:id.
func (h *ReportHandler) GroupReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	report, err := h.reports.GroupReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportCSV handles GET /api/v1/reports/projects/:id/export and streams the
// project's dispatch records as CSV.
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	// Resolve the project first so a missing one still gets a JSON 404.
	project, err := h.exports.Project(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, project.Code))
	c.Status(http.StatusOK)
	if _, err := h.exports.WriteCSV(c.Request.Context(), id, c.Writer); err != nil {
		// Headers are already sent; all that is left is to record the failure.
		_ = c.Error(err)
	}
}

// UploadExport handles POST /api/v1/reports/projects/:id/export.
func (h *ReportHandler) UploadExport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	url, err := h.exports.Upload(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"url":    url,
	})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, fmt.Errorf("%w: invalid id %q", domain.ErrInvalidInput, c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

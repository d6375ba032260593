package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/acadarchive/archive-api/internal/services"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService   *services.ReportService
	abstractService *services.AbstractService
}

func NewReportHandler(reportService *services.ReportService, abstractService *services.AbstractService) *ReportHandler {
	return &ReportHandler{reportService: reportService, abstractService: abstractService}
}

// @Summary Export Abstracts XLSX
// @Description Download the abstracts matching the current filters as a spreadsheet
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param search_term query string false "Search term"
// @Param kind query string false "Filter by kind"
// @Param program_id query int false "Filter by program"
// @Param department_id query int false "Filter by department"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /reports/abstracts_xlsx [get]
func (h *ReportHandler) AbstractsXLSX(c *gin.Context) {
	query := parseAbstractQuery(c)
	// Exports are not paginated
	query.PerPage = 0

	buf, err := h.reportService.AbstractsXLSX(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("abstracts_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// @Summary Abstract Record Sheet
// @Description Download a one-page PDF summary of an abstract
// @Tags Reports
// @Produce application/pdf
// @Param id path int true "Abstract ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /abstracts/{id}/record_pdf [get]
func (h *ReportHandler) RecordSheetPDF(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	view, err := h.abstractService.Get(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	buf, err := h.reportService.RecordSheetPDF(c.Request.Context(), view)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("abstract_%d.pdf", view.ID)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/acadarchive/archive-api/internal/middleware"
	"github.com/acadarchive/archive-api/internal/repository"
	"github.com/acadarchive/archive-api/internal/services"
	"github.com/acadarchive/archive-api/internal/storage"
	"github.com/gin-gonic/gin"
)

type AbstractHandler struct {
	abstractService *services.AbstractService
	maxUploadBytes  int64
}

func NewAbstractHandler(abstractService *services.AbstractService, maxUploadBytes int64) *AbstractHandler {
	return &AbstractHandler{abstractService: abstractService, maxUploadBytes: maxUploadBytes}
}

// @Summary List Abstracts
// @Description Get a paginated list of abstracts with optional search and filters
// @Tags Abstracts
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search in title, researchers, citation and description"
// @Param kind query string false "Filter by kind (Thesis or Dissertation)"
// @Param program_id query int false "Filter by program"
// @Param department_id query int false "Filter by department"
// @Param sort_by query string false "Sort column (title, kind, citation, created_at)"
// @Param sort_dir query string false "Sort direction (asc or desc)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /abstracts [get]
func (h *AbstractHandler) Index(c *gin.Context) {
	query := parseAbstractQuery(c)

	views, total, err := h.abstractService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"abstracts": views,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Get Abstract
// @Description Get a single abstract by ID
// @Tags Abstracts
// @Accept json
// @Produce json
// @Param id path int true "Abstract ID"
// @Success 200 {object} models.AbstractView
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /abstracts/{id} [get]
func (h *AbstractHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	view, err := h.abstractService.Get(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"abstract": view})
}

// @Summary Create Abstract
// @Description Create a new thesis or dissertation abstract with an optional PDF attachment
// @Tags Abstracts
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string true "Abstract text"
// @Param researchers formData string true "Researchers"
// @Param citation formData string true "Citation"
// @Param kind formData string true "Thesis or Dissertation"
// @Param program_id formData int false "Program ID (required for thesis)"
// @Param department_id formData int false "Department ID (required for dissertation)"
// @Param file formData file false "PDF attachment"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /abstracts [post]
func (h *AbstractHandler) Create(c *gin.Context) {
	actorID := middleware.GetAccountID(c)

	input, upload, cleanup, err := h.parseAbstractForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer cleanup()

	id, err := h.abstractService.Create(c.Request.Context(), actorID, input, upload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Abstract created successfully",
		"id":      id,
	})
}

// @Summary Update Abstract
// @Description Update an abstract's fields, kind and optionally replace its attachment
// @Tags Abstracts
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Abstract ID"
// @Param title formData string true "Title"
// @Param description formData string true "Abstract text"
// @Param researchers formData string true "Researchers"
// @Param citation formData string true "Citation"
// @Param kind formData string true "Thesis or Dissertation"
// @Param program_id formData int false "Program ID (required for thesis)"
// @Param department_id formData int false "Department ID (required for dissertation)"
// @Param file formData file false "Replacement PDF attachment"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /abstracts/{id} [put]
func (h *AbstractHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	actorID := middleware.GetAccountID(c)

	input, upload, cleanup, err := h.parseAbstractForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer cleanup()

	if err := h.abstractService.Update(c.Request.Context(), actorID, uint(id), input, upload); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Abstract updated successfully"})
}

// @Summary Delete Abstract
// @Description Delete an abstract, its extension rows and its attachment
// @Tags Abstracts
// @Accept json
// @Produce json
// @Param id path int true "Abstract ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /abstracts/{id} [delete]
func (h *AbstractHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	actorID := middleware.GetAccountID(c)

	title, err := h.abstractService.Delete(c.Request.Context(), actorID, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Abstract %q deleted successfully", title),
	})
}

// @Summary Download Attachment
// @Description Download the PDF attachment of an abstract
// @Tags Abstracts
// @Produce application/pdf
// @Param id path int true "Abstract ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /abstracts/{id}/download [get]
func (h *AbstractHandler) Download(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	actorID := middleware.GetAccountID(c)

	f, view, err := h.abstractService.OpenFile(c.Request.Context(), actorID, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", *view.FileName))
	c.Header("Content-Type", "application/pdf")
	if view.FileSize != nil {
		c.Header("Content-Length", strconv.FormatInt(*view.FileSize, 10))
	}
	c.File(f.Name())
}

// @Summary Record View
// @Description Record that the current account viewed an abstract
// @Tags Abstracts
// @Accept json
// @Produce json
// @Param id path int true "Abstract ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /abstracts/{id}/view [post]
func (h *AbstractHandler) View(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	actorID := middleware.GetAccountID(c)

	if err := h.abstractService.RecordView(c.Request.Context(), actorID, uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "View recorded"})
}

// parseAbstractForm extracts the abstract fields and optional attachment from
// a multipart form. The returned cleanup closes the upload stream and must
// run after the service call.
func (h *AbstractHandler) parseAbstractForm(c *gin.Context) (*services.AbstractInput, *services.FileUpload, func(), error) {
	if err := c.Request.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, nil, func() {}, fmt.Errorf("error parsing form data: %w", err)
	}

	programID, _ := strconv.ParseUint(c.Request.FormValue("program_id"), 10, 32)
	departmentID, _ := strconv.ParseUint(c.Request.FormValue("department_id"), 10, 32)

	input := &services.AbstractInput{
		Title:        c.Request.FormValue("title"),
		Description:  c.Request.FormValue("description"),
		Researchers:  c.Request.FormValue("researchers"),
		Citation:     c.Request.FormValue("citation"),
		Kind:         c.Request.FormValue("kind"),
		ProgramID:    uint(programID),
		DepartmentID: uint(departmentID),
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		// No file attached
		return input, nil, func() {}, nil
	}

	if fileHeader.Size > h.maxUploadBytes {
		return nil, nil, func() {}, fmt.Errorf("file exceeds the %d MB upload limit", h.maxUploadBytes>>20)
	}
	if !storage.IsValidContentType(fileHeader.Header.Get("Content-Type")) {
		return nil, nil, func() {}, fmt.Errorf("only PDF attachments are accepted")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, nil, func() {}, fmt.Errorf("error reading uploaded file: %w", err)
	}

	upload := &services.FileUpload{Reader: f, Name: fileHeader.Filename}
	return input, upload, func() { f.Close() }, nil
}

// parseAbstractQuery builds the list query from request parameters
func parseAbstractQuery(c *gin.Context) *repository.AbstractQuery {
	query := &repository.AbstractQuery{ListQuery: repository.NewListQuery()}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PerPage < 1 || query.PerPage > 100 {
		query.PerPage = 20
	}
	query.Search = c.Query("search_term")
	query.SortBy = c.Query("sort_by")
	query.SortDir = c.Query("sort_dir")
	query.Kind = c.Query("kind")

	programID, _ := strconv.ParseUint(c.Query("program_id"), 10, 32)
	departmentID, _ := strconv.ParseUint(c.Query("department_id"), 10, 32)
	query.ProgramID = uint(programID)
	query.DepartmentID = uint(departmentID)

	return query
}

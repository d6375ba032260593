package handlers

import (
	"net/http"
	"strconv"

	"github.com/acadarchive/archive-api/internal/middleware"
	"github.com/acadarchive/archive-api/internal/services"
	"github.com/gin-gonic/gin"
)

type ReferenceHandler struct {
	referenceService *services.ReferenceService
}

func NewReferenceHandler(referenceService *services.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{referenceService: referenceService}
}

type referenceRequest struct {
	Name     string `json:"name" binding:"required"`
	Initials string `json:"initials" binding:"required"`
}

// @Summary List Programs
// @Description Get all academic programs
// @Tags References
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /programs [get]
func (h *ReferenceHandler) IndexPrograms(c *gin.Context) {
	programs, err := h.referenceService.ListPrograms(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"programs": programs})
}

// @Summary Create Program
// @Description Create an academic program (admin only)
// @Tags References
// @Accept json
// @Produce json
// @Param program body referenceRequest true "Program"
// @Success 201 {object} map[string]interface{}
// @Security BearerAuth
// @Router /programs [post]
func (h *ReferenceHandler) CreateProgram(c *gin.Context) {
	var req referenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	program, err := h.referenceService.CreateProgram(c.Request.Context(), middleware.GetAccountID(c), &services.ReferenceInput{
		Name:     req.Name,
		Initials: req.Initials,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"program": program})
}

// @Summary Update Program
// @Description Update an academic program (admin only)
// @Tags References
// @Accept json
// @Produce json
// @Param id path int true "Program ID"
// @Param program body referenceRequest true "Program"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /programs/{id} [put]
func (h *ReferenceHandler) UpdateProgram(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	var req referenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	program, err := h.referenceService.UpdateProgram(c.Request.Context(), middleware.GetAccountID(c), uint(id), &services.ReferenceInput{
		Name:     req.Name,
		Initials: req.Initials,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": program})
}

// @Summary Delete Program
// @Description Delete an academic program with no thesis abstracts (admin only)
// @Tags References
// @Produce json
// @Param id path int true "Program ID"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /programs/{id} [delete]
func (h *ReferenceHandler) DeleteProgram(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	if err := h.referenceService.DeleteProgram(c.Request.Context(), middleware.GetAccountID(c), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Program deleted successfully"})
}

// @Summary List Departments
// @Description Get all departments
// @Tags References
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /departments [get]
func (h *ReferenceHandler) IndexDepartments(c *gin.Context) {
	departments, err := h.referenceService.ListDepartments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departments": departments})
}

// @Summary Create Department
// @Description Create a department (admin only)
// @Tags References
// @Accept json
// @Produce json
// @Param department body referenceRequest true "Department"
// @Success 201 {object} map[string]interface{}
// @Security BearerAuth
// @Router /departments [post]
func (h *ReferenceHandler) CreateDepartment(c *gin.Context) {
	var req referenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	department, err := h.referenceService.CreateDepartment(c.Request.Context(), middleware.GetAccountID(c), &services.ReferenceInput{
		Name:     req.Name,
		Initials: req.Initials,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"department": department})
}

// @Summary Update Department
// @Description Update a department (admin only)
// @Tags References
// @Accept json
// @Produce json
// @Param id path int true "Department ID"
// @Param department body referenceRequest true "Department"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /departments/{id} [put]
func (h *ReferenceHandler) UpdateDepartment(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	var req referenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	department, err := h.referenceService.UpdateDepartment(c.Request.Context(), middleware.GetAccountID(c), uint(id), &services.ReferenceInput{
		Name:     req.Name,
		Initials: req.Initials,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"department": department})
}

// @Summary Delete Department
// @Description Delete a department with no dissertation abstracts (admin only)
// @Tags References
// @Produce json
// @Param id path int true "Department ID"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /departments/{id} [delete]
func (h *ReferenceHandler) DeleteDepartment(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	if err := h.referenceService.DeleteDepartment(c.Request.Context(), middleware.GetAccountID(c), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Department deleted successfully"})
}

package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/services"
)

type SummaryHandler struct {
	solverService  services.SolverService
	summaryService services.SummaryService
}

func NewSummaryHandler(solverService services.SolverService, summaryService services.SummaryService) *SummaryHandler {
	return &SummaryHandler{
		solverService:  solverService,
		summaryService: summaryService,
	}
}

// POST /api/summaries
func (sh *SummaryHandler) Create(c *gin.Context) {
	var req struct {
		CourseID   string `json:"course_id"`
		MaterialID string `json:"material_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.CourseID == "" || req.MaterialID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course_id and material_id are required"})
		return
	}
	summary, err := sh.solverService.EnqueueSummary(c.Request.Context(), currentUserID(c), req.CourseID, req.MaterialID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"summary": summary})
}

// GET /api/summaries
func (sh *SummaryHandler) List(c *gin.Context) {
	summaries, err := sh.summaryService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

// GET /api/summaries/:id
func (sh *SummaryHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid summary id"})
		return
	}
	summary, err := sh.summaryService.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GET /api/summaries/:id/pdf
func (sh *SummaryHandler) GetPDF(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid summary id"})
		return
	}
	title, pdfBytes, err := sh.summaryService.GetPDF(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, safeFilename(title)))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// DELETE /api/summaries/:id
func (sh *SummaryHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid summary id"})
		return
	}
	if err := sh.summaryService.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

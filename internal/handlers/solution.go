package handlers

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/services"
)

// Uploaded questions files are capped well below the classroom attachment
// limits; anything bigger is almost certainly not an assignment sheet.
const maxUploadBytes = 20 << 20

type SolutionHandler struct {
	solverService   services.SolverService
	solutionService services.SolutionService
}

func NewSolutionHandler(solverService services.SolverService, solutionService services.SolutionService) *SolutionHandler {
	return &SolutionHandler{
		solverService:   solverService,
		solutionService: solutionService,
	}
}

// POST /api/solutions
func (sh *SolutionHandler) Create(c *gin.Context) {
	var req struct {
		CourseID     string `json:"course_id"`
		CourseWorkID string `json:"course_work_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.CourseID == "" || req.CourseWorkID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course_id and course_work_id are required"})
		return
	}
	solution, err := sh.solverService.EnqueueFromCourseWork(c.Request.Context(), currentUserID(c), req.CourseID, req.CourseWorkID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"solution": solution})
}

// POST /api/solutions/upload (multipart: file, optional title)
func (sh *SolutionHandler) CreateFromUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	title := c.PostForm("title")
	mimeType := fileHeader.Header.Get("Content-Type")
	solution, err := sh.solverService.EnqueueFromUpload(c.Request.Context(), currentUserID(c), title, fileHeader.Filename, mimeType, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"solution": solution})
}

// GET /api/solutions
func (sh *SolutionHandler) List(c *gin.Context) {
	solutions, err := sh.solutionService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"solutions": solutions})
}

// GET /api/solutions/latest?course_id=&course_work_id=
func (sh *SolutionHandler) GetLatestForCourseWork(c *gin.Context) {
	courseID := c.Query("course_id")
	courseWorkID := c.Query("course_work_id")
	if courseID == "" || courseWorkID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course_id and course_work_id are required"})
		return
	}
	solution, err := sh.solutionService.GetLatestForCourseWork(c.Request.Context(), courseID, courseWorkID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// solution can be nil when nothing was solved yet
	c.JSON(http.StatusOK, gin.H{"solution": solution})
}

// GET /api/solutions/:id
func (sh *SolutionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid solution id"})
		return
	}
	solution, err := sh.solutionService.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"solution": solution})
}

// GET /api/solutions/:id/status
func (sh *SolutionHandler) GetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid solution id"})
		return
	}
	status, err := sh.solutionService.GetStatus(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// GET /api/solutions/:id/pdf
func (sh *SolutionHandler) GetPDF(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid solution id"})
		return
	}
	title, pdfBytes, err := sh.solutionService.GetPDF(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, safeFilename(title)))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// DELETE /api/solutions/:id
func (sh *SolutionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid solution id"})
		return
	}
	if err := sh.solutionService.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

var unsafeFilenameRe = regexp.MustCompile(`[^\w\-. ]`)
var filenameSpaceRe = regexp.MustCompile(`\s+`)

func safeFilename(name string) string {
	name = unsafeFilenameRe.ReplaceAllString(name, "_")
	name = filenameSpaceRe.ReplaceAllString(strings.TrimSpace(name), "_")
	if len(name) > 140 {
		name = name[:140]
	}
	if name == "" {
		name = "untitled"
	}
	return name
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/services"
)

type ClassroomHandler struct {
	classroomService services.ClassroomService
}

func NewClassroomHandler(classroomService services.ClassroomService) *ClassroomHandler {
	return &ClassroomHandler{classroomService: classroomService}
}

// GET /api/classroom/courses
func (ch *ClassroomHandler) ListCourses(c *gin.Context) {
	userID := currentUserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	courses, err := ch.classroomService.ListCourses(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusBadGateway, "list_courses_failed", err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

// GET /api/classroom/courses/:courseId/coursework
func (ch *ClassroomHandler) ListCourseWork(c *gin.Context) {
	userID := currentUserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	courseWork, err := ch.classroomService.ListCourseWork(c.Request.Context(), userID, c.Param("courseId"))
	if err != nil {
		RespondError(c, http.StatusBadGateway, "list_course_work_failed", err)
		return
	}
	RespondOK(c, gin.H{"course_work": courseWork})
}

// GET /api/classroom/courses/:courseId/coursework/:courseWorkId
func (ch *ClassroomHandler) GetCourseWork(c *gin.Context) {
	userID := currentUserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	cw, err := ch.classroomService.GetCourseWork(c.Request.Context(), userID, c.Param("courseId"), c.Param("courseWorkId"))
	if err != nil {
		RespondError(c, http.StatusBadGateway, "get_course_work_failed", err)
		return
	}
	RespondOK(c, gin.H{"course_work": cw})
}

// GET /api/classroom/courses/:courseId/materials
func (ch *ClassroomHandler) ListCourseWorkMaterials(c *gin.Context) {
	userID := currentUserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	materials, err := ch.classroomService.ListCourseWorkMaterials(c.Request.Context(), userID, c.Param("courseId"))
	if err != nil {
		RespondError(c, http.StatusBadGateway, "list_materials_failed", err)
		return
	}
	RespondOK(c, gin.H{"materials": materials})
}

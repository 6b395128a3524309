package progress

import (
	"EduHub/internal/delivery/http/controllers/middleware"
	"EduHub/internal/models"
	"EduHub/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProgressService interface {
	MarkComplete(ctx context.Context, actor models.Actor, studentID, courseID, lessonID uuid.UUID) (*models.CourseProgress, error)
	ComputeProgress(ctx context.Context, actor models.Actor, studentID, courseID uuid.UUID) (*models.CourseProgress, error)
	StudentDashboard(ctx context.Context, actor models.Actor, studentID uuid.UUID) ([]models.EnrolledCourse, error)
	OpenLesson(ctx context.Context, actor models.Actor, courseID, lessonID uuid.UUID) (*models.LessonNavigation, error)
	CoursePath(ctx context.Context, actor models.Actor, courseID uuid.UUID) ([]models.Lesson, error)
}

type ProgressHandler struct {
	log     logger.Log
	service ProgressService
}

func NewProgressHandler(log logger.Log, service ProgressService) *ProgressHandler {
	return &ProgressHandler{log, service}
}

// student resolves the ?student_id= query parameter, defaulting to the caller.
func student(c *gin.Context, actor models.Actor) (uuid.UUID, bool) {
	s := c.Query("student_id")
	if s == "" {
		return actor.ID, true
	}
	id, err := uuid.Parse(s)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student_id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *ProgressHandler) MarkComplete(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	courseID, ok := middleware.ParamUUID(c, "course_id")
	if !ok {
		return
	}
	lessonID, ok := middleware.ParamUUID(c, "lesson_id")
	if !ok {
		return
	}

	progress, err := h.service.MarkComplete(c.Request.Context(), actor, actor.ID, courseID, lessonID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *ProgressHandler) CourseProgress(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	courseID, ok := middleware.ParamUUID(c, "course_id")
	if !ok {
		return
	}
	studentID, ok := student(c, actor)
	if !ok {
		return
	}

	progress, err := h.service.ComputeProgress(c.Request.Context(), actor, studentID, courseID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *ProgressHandler) Dashboard(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	studentID, ok := student(c, actor)
	if !ok {
		return
	}

	courses, err := h.service.StudentDashboard(c.Request.Context(), actor, studentID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *ProgressHandler) OpenLesson(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	courseID, ok := middleware.ParamUUID(c, "course_id")
	if !ok {
		return
	}
	lessonID, ok := middleware.ParamUUID(c, "lesson_id")
	if !ok {
		return
	}

	nav, err := h.service.OpenLesson(c.Request.Context(), actor, courseID, lessonID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, nav)
}

func (h *ProgressHandler) CoursePath(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	courseID, ok := middleware.ParamUUID(c, "course_id")
	if !ok {
		return
	}

	lessons, err := h.service.CoursePath(c.Request.Context(), actor, courseID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lessons": lessons})
}

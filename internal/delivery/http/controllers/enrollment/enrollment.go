package enrollment

import (
	"EduHub/internal/delivery/http/controllers/middleware"
	"EduHub/internal/models"
	enrollmentsvc "EduHub/internal/service/enrollment"
	"EduHub/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EnrollmentService interface {
	Assign(ctx context.Context, actor models.Actor, studentID, courseID uuid.UUID) (*models.Enrollment, error)
	Unassign(ctx context.Context, actor models.Actor, studentID, courseID uuid.UUID) error
	Invite(ctx context.Context, actor models.Actor, in enrollmentsvc.InviteInput) (*models.Profile, error)
	ListStudents(ctx context.Context, actor models.Actor) ([]models.Profile, error)
	UpdateStudent(ctx context.Context, actor models.Actor, studentID uuid.UUID, in enrollmentsvc.StudentUpdate) (*models.Profile, error)
	ResetStudentPassword(ctx context.Context, actor models.Actor, email string) error
	ListEnrollments(ctx context.Context, actor models.Actor, courseID uuid.UUID) ([]models.Enrollment, error)
	StudentEnrollments(ctx context.Context, actor models.Actor, studentID uuid.UUID) ([]models.Enrollment, error)
}

type EnrollmentHandler struct {
	log     logger.Log
	service EnrollmentService
}

func NewEnrollmentHandler(log logger.Log, service EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{
		log:     log,
		service: service,
	}
}

func (h *EnrollmentHandler) Assign(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	courseID, ok := middleware.ParamUUID(c, "course_id")
	if !ok {
		return
	}
	studentID, ok := middleware.ParamUUID(c, "student_id")
	if !ok {
		return
	}

	enrollment, err := h.service.Assign(c.Request.Context(), actor, studentID, courseID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

func (h *EnrollmentHandler) Unassign(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	courseID, ok := middleware.ParamUUID(c, "course_id")
	if !ok {
		return
	}
	studentID, ok := middleware.ParamUUID(c, "student_id")
	if !ok {
		return
	}

	if err := h.service.Unassign(c.Request.Context(), actor, studentID, courseID); err != nil {
		middleware.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EnrollmentHandler) CourseEnrollments(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	courseID, ok := middleware.ParamUUID(c, "course_id")
	if !ok {
		return
	}

	enrollments, err := h.service.ListEnrollments(c.Request.Context(), actor, courseID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": enrollments})
}

func (h *EnrollmentHandler) StudentEnrollments(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	studentID, ok := middleware.ParamUUID(c, "student_id")
	if !ok {
		return
	}

	enrollments, err := h.service.StudentEnrollments(c.Request.Context(), actor, studentID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": enrollments})
}

func (h *EnrollmentHandler) Invite(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	var input enrollmentsvc.InviteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}

	profile, err := h.service.Invite(c.Request.Context(), actor, input)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (h *EnrollmentHandler) ListStudents(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}

	students, err := h.service.ListStudents(c.Request.Context(), actor)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *EnrollmentHandler) UpdateStudent(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	studentID, ok := middleware.ParamUUID(c, "student_id")
	if !ok {
		return
	}
	var input enrollmentsvc.StudentUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}

	profile, err := h.service.UpdateStudent(c.Request.Context(), actor, studentID, input)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type resetRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *EnrollmentHandler) ResetStudentPassword(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	var input resetRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}

	if err := h.service.ResetStudentPassword(c.Request.Context(), actor, input.Email); err != nil {
		middleware.Error(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

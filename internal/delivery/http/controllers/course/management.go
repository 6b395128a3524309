package course

import (
	"EduHub/internal/delivery/http/controllers/middleware"
	"EduHub/internal/models"
	coursesvc "EduHub/internal/service/course"
	"EduHub/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ManagementService interface {
	CreateCourse(ctx context.Context, actor models.Actor, in coursesvc.CourseInput) (*models.Course, error)
	UpdateCourse(ctx context.Context, actor models.Actor, id uuid.UUID, in coursesvc.CourseInput) (*models.Course, error)
	DeleteCourse(ctx context.Context, actor models.Actor, id uuid.UUID) error
}

type ManagementHandler struct {
	log     logger.Log
	service ManagementService
}

func NewManagementHandler(log logger.Log, s ManagementService) *ManagementHandler {
	return &ManagementHandler{
		log:     log,
		service: s,
	}
}

type courseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (h *ManagementHandler) CreateCourse(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	var input courseRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}

	course, err := h.service.CreateCourse(c.Request.Context(), actor, coursesvc.CourseInput{
		Title:       input.Title,
		Description: input.Description,
	})
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *ManagementHandler) UpdateCourse(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	courseID, ok := middleware.ParamUUID(c, "course_id")
	if !ok {
		return
	}
	var input courseRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}

	course, err := h.service.UpdateCourse(c.Request.Context(), actor, courseID, coursesvc.CourseInput{
		Title:       input.Title,
		Description: input.Description,
	})
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *ManagementHandler) DeleteCourse(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	courseID, ok := middleware.ParamUUID(c, "course_id")
	if !ok {
		return
	}

	if err := h.service.DeleteCourse(c.Request.Context(), actor, courseID); err != nil {
		middleware.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package course

import (
	"EduHub/internal/delivery/http/controllers/middleware"
	"EduHub/internal/models"
	"EduHub/pkg/logger"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type QueryService interface {
	CoursesPreview(ctx context.Context, actor models.Actor) ([]models.CoursePreview, error)
	CourseByID(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.CoursePreview, error)
	Outline(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.CourseOutline, error)
	SearchCoursesPreview(ctx context.Context, actor models.Actor, query string, count, offset int) ([]models.CoursePreview, int, error)
}

type QueryHandler struct {
	log     logger.Log
	service QueryService
}

func NewQueryHandler(log logger.Log, s QueryService) *QueryHandler {
	return &QueryHandler{
		log:     log,
		service: s,
	}
}

func (h *QueryHandler) CourseByID(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	courseID, ok := middleware.ParamUUID(c, "course_id")
	if !ok {
		return
	}

	preview, err := h.service.CourseByID(c.Request.Context(), actor, courseID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *QueryHandler) Outline(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	courseID, ok := middleware.ParamUUID(c, "course_id")
	if !ok {
		return
	}

	outline, err := h.service.Outline(c.Request.Context(), actor, courseID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, outline)
}

// ListCoursePreview lists the courses visible to the caller. With a query
// parameter it runs a full-text search and pages the hits.
func (h *QueryHandler) ListCoursePreview(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	q := c.Query("query")
	if q == "" {
		previews, err := h.service.CoursesPreview(ctx, actor)
		if err != nil {
			middleware.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"total":   len(previews),
			"courses": previews,
		})
		return
	}

	limit := 10
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = v
	}
	offset := 0
	if s := c.Query("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return
		}
		offset = v
	}

	previews, total, err := h.service.SearchCoursesPreview(ctx, actor, q, limit, offset)
	if err != nil {
		h.log.ErrorErr("course search failed", err)
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":   total,
		"courses": previews,
	})
}

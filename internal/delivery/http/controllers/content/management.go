package content

import (
	"EduHub/internal/delivery/http/controllers/middleware"
	"EduHub/internal/models"
	contentsvc "EduHub/internal/service/content"
	"EduHub/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type HierarchyService interface {
	CreateSection(ctx context.Context, actor models.Actor, courseID uuid.UUID, in contentsvc.NodeInput) (*models.Section, error)
	CreateChapter(ctx context.Context, actor models.Actor, sectionID uuid.UUID, in contentsvc.NodeInput) (*models.Chapter, error)
	CreateModule(ctx context.Context, actor models.Actor, chapterID uuid.UUID, in contentsvc.NodeInput) (*models.Module, error)
	CreateLesson(ctx context.Context, actor models.Actor, moduleID uuid.UUID, in contentsvc.LessonInput) (*models.Lesson, error)
	UpdateNode(ctx context.Context, actor models.Actor, ref models.NodeRef, in contentsvc.NodeInput) (any, error)
	UpdateLesson(ctx context.Context, actor models.Actor, lessonID uuid.UUID, in contentsvc.LessonInput) (*models.Lesson, error)
	DeleteNode(ctx context.Context, actor models.Actor, ref models.NodeRef) error
	Reorder(ctx context.Context, actor models.Actor, parent models.NodeRef, ids []uuid.UUID) error
	SetPublicationState(ctx context.Context, actor models.Actor, lessonID uuid.UUID, state models.PublicationState) (*models.Lesson, error)
}

type ManagementHandler struct {
	log     logger.Log
	service HierarchyService
}

func NewManagementHandler(log logger.Log, service HierarchyService) *ManagementHandler {
	return &ManagementHandler{log, service}
}

// paramOf names the route parameter carrying the id of a node of kind.
func paramOf(kind models.NodeKind) string {
	return string(kind) + "_id"
}

// CreateChild adds a child node under the parent named by the route. The
// child kind follows the parent: course -> section -> chapter -> module.
func (h *ManagementHandler) CreateChild(parent models.NodeKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.MustActor(c)
		if !ok {
			return
		}
		parentID, ok := middleware.ParamUUID(c, paramOf(parent))
		if !ok {
			return
		}
		var input contentsvc.NodeInput
		if err := c.ShouldBindJSON(&input); err != nil {
			middleware.BadRequest(c, err)
			return
		}

		ctx := c.Request.Context()
		var (
			created any
			err     error
		)
		switch parent {
		case models.KindCourse:
			created, err = h.service.CreateSection(ctx, actor, parentID, input)
		case models.KindSection:
			created, err = h.service.CreateChapter(ctx, actor, parentID, input)
		case models.KindChapter:
			created, err = h.service.CreateModule(ctx, actor, parentID, input)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "lessons are created with their own payload"})
			return
		}
		if err != nil {
			middleware.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func (h *ManagementHandler) CreateLesson(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	moduleID, ok := middleware.ParamUUID(c, "module_id")
	if !ok {
		return
	}
	var input contentsvc.LessonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}

	lesson, err := h.service.CreateLesson(c.Request.Context(), actor, moduleID, input)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, lesson)
}

func (h *ManagementHandler) UpdateNode(kind models.NodeKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.MustActor(c)
		if !ok {
			return
		}
		id, ok := middleware.ParamUUID(c, paramOf(kind))
		if !ok {
			return
		}
		var input contentsvc.NodeInput
		if err := c.ShouldBindJSON(&input); err != nil {
			middleware.BadRequest(c, err)
			return
		}

		node, err := h.service.UpdateNode(c.Request.Context(), actor, models.NodeRef{Kind: kind, ID: id}, input)
		if err != nil {
			middleware.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, node)
	}
}

func (h *ManagementHandler) UpdateLesson(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	lessonID, ok := middleware.ParamUUID(c, "lesson_id")
	if !ok {
		return
	}
	var input contentsvc.LessonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}

	lesson, err := h.service.UpdateLesson(c.Request.Context(), actor, lessonID, input)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, lesson)
}

// DeleteNode removes the node and its whole subtree.
func (h *ManagementHandler) DeleteNode(kind models.NodeKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.MustActor(c)
		if !ok {
			return
		}
		id, ok := middleware.ParamUUID(c, paramOf(kind))
		if !ok {
			return
		}

		if err := h.service.DeleteNode(c.Request.Context(), actor, models.NodeRef{Kind: kind, ID: id}); err != nil {
			middleware.Error(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type reorderRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

// Reorder rewrites the order of the children of the node named by the route.
func (h *ManagementHandler) Reorder(parent models.NodeKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.MustActor(c)
		if !ok {
			return
		}
		id, ok := middleware.ParamUUID(c, paramOf(parent))
		if !ok {
			return
		}
		var input reorderRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			middleware.BadRequest(c, err)
			return
		}

		if err := h.service.Reorder(c.Request.Context(), actor, models.NodeRef{Kind: parent, ID: id}, input.IDs); err != nil {
			middleware.Error(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type stateRequest struct {
	State models.PublicationState `json:"state" binding:"required"`
}

func (h *ManagementHandler) SetPublicationState(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	lessonID, ok := middleware.ParamUUID(c, "lesson_id")
	if !ok {
		return
	}
	var input stateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}

	lesson, err := h.service.SetPublicationState(c.Request.Context(), actor, lessonID, input.State)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, lesson)
}

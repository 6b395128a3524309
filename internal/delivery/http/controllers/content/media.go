package content

import (
	"EduHub/internal/delivery/http/controllers/middleware"
	"EduHub/internal/models"
	contentsvc "EduHub/internal/service/content"
	"EduHub/pkg/logger"
	"context"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MediaService interface {
	UploadLessonVideo(ctx context.Context, actor models.Actor, lessonID uuid.UUID, up contentsvc.Upload) (*models.LessonNavigation, error)
	AddLinkResource(ctx context.Context, actor models.Actor, sectionID uuid.UUID, in contentsvc.ResourceInput) (*models.SectionResource, error)
	AddFileResource(ctx context.Context, actor models.Actor, sectionID uuid.UUID, title string, up contentsvc.Upload) (*models.SectionResource, error)
	DeleteResource(ctx context.Context, actor models.Actor, resourceID uuid.UUID) error
}

type MediaHandler struct {
	log     logger.Log
	service MediaService
}

func NewMediaHandler(log logger.Log, service MediaService) *MediaHandler {
	return &MediaHandler{
		log:     log,
		service: service,
	}
}

// upload opens the multipart "file" field. The caller closes the returned file.
func upload(c *gin.Context) (contentsvc.Upload, multipart.File, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return contentsvc.Upload{}, nil, false
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot open file"})
		return contentsvc.Upload{}, nil, false
	}

	ct := fileHeader.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(fileHeader.Filename))
		if ct == "" {
			ct = "application/octet-stream"
		}
	}
	return contentsvc.Upload{
		FileName:    filepath.Base(fileHeader.Filename),
		ContentType: ct,
		Size:        fileHeader.Size,
		Reader:      file,
	}, file, true
}

func (h *MediaHandler) UploadLessonVideo(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	lessonID, ok := middleware.ParamUUID(c, "lesson_id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, contentsvc.MaxVideoSize+1<<20)
	up, file, ok := upload(c)
	if !ok {
		return
	}
	defer file.Close()

	nav, err := h.service.UploadLessonVideo(c.Request.Context(), actor, lessonID, up)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	h.log.Info("lesson video uploaded", "lesson_id", lessonID, "size", up.Size)
	c.JSON(http.StatusCreated, nav)
}

func (h *MediaHandler) AddLinkResource(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	sectionID, ok := middleware.ParamUUID(c, "section_id")
	if !ok {
		return
	}
	var input contentsvc.ResourceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}

	res, err := h.service.AddLinkResource(c.Request.Context(), actor, sectionID, input)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *MediaHandler) AddFileResource(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	sectionID, ok := middleware.ParamUUID(c, "section_id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, contentsvc.MaxResourceSize+1<<20)
	up, file, ok := upload(c)
	if !ok {
		return
	}
	defer file.Close()

	res, err := h.service.AddFileResource(c.Request.Context(), actor, sectionID, c.PostForm("title"), up)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *MediaHandler) DeleteResource(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	resourceID, ok := middleware.ParamUUID(c, "resource_id")
	if !ok {
		return
	}

	if err := h.service.DeleteResource(c.Request.Context(), actor, resourceID); err != nil {
		middleware.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package content

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/coursetree"
	"EduHub/internal/models"
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxVideoSize    = 2 << 30
	MaxResourceSize = 100 << 20
)

type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadLessonVideo stores a video and points the lesson at it. A text
// lesson becomes a video_text lesson keeping its body. The replaced
// upload, if any, is removed afterwards.
func (s *HierarchyService) UploadLessonVideo(ctx context.Context, actor models.Actor, lessonID uuid.UUID, up Upload) (*models.LessonNavigation, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(up.ContentType, "video/") {
		return nil, app_errors.ErrNotVideo
	}
	if up.Size <= 0 || up.Size > MaxVideoSize {
		return nil, app_errors.ErrFileSize
	}
	courseID, err := s.courseOf(ctx, models.NodeRef{Kind: models.KindLesson, ID: lessonID})
	if err != nil {
		return nil, err
	}

	var key string
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		key, err = s.media.UploadVideo(ctx, lessonID, up.FileName, up.Reader, up.Size, up.ContentType)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("upload video", err)
	}

	var (
		updated models.Lesson
		oldKey  string
	)
	err = s.mutate(ctx, courseID, mutation{
		op: "attach video",
		apply: func(t *coursetree.Tree) (func(*coursetree.Tree), error) {
			cur, ok := t.Lesson(lessonID)
			if !ok {
				return nil, app_errors.ErrLessonNotFound
			}
			ref := models.VideoRef{ObjectKey: key}
			l := cur
			switch c := cur.Content.(type) {
			case models.TextContent:
				l.Content = models.VideoTextContent{Video: ref, Body: c.Body}
			case models.VideoContent:
				oldKey = c.Video.ObjectKey
				l.Content = models.VideoContent{Video: ref}
			case models.VideoTextContent:
				oldKey = c.Video.ObjectKey
				l.Content = models.VideoTextContent{Video: ref, Body: c.Body}
			}
			l.UpdatedAt = s.now()
			prev, err := t.UpdateLesson(l)
			if err != nil {
				return nil, err
			}
			updated, _ = t.Lesson(lessonID)
			return func(t *coursetree.Tree) { _, _ = t.UpdateLesson(prev) }, nil
		},
		remote: func(ctx context.Context) error { return s.hierarchy.UpdateLesson(ctx, updated) },
	})
	if err != nil {
		if derr := s.call(ctx, func(ctx context.Context) error { return s.media.DeleteVideo(ctx, key) }); derr != nil {
			s.log.ErrorErr("failed to delete orphaned video", derr, "object_key", key)
		}
		return nil, err
	}
	if oldKey != "" {
		if derr := s.call(ctx, func(ctx context.Context) error { return s.media.DeleteVideo(ctx, oldKey) }); derr != nil {
			s.log.ErrorErr("failed to delete replaced video", derr, "object_key", oldKey)
		}
	}

	nav := &models.LessonNavigation{Lesson: updated}
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		nav.VideoURL, err = s.media.VideoURL(ctx, key)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("presign video", err)
	}
	return nav, nil
}

type ResourceInput struct {
	Title string `json:"title" validate:"max=255"`
	URL   string `json:"url" validate:"omitempty,url"`
}

// AddLinkResource attaches an external link to a section.
func (s *HierarchyService) AddLinkResource(ctx context.Context, actor models.Actor, sectionID uuid.UUID, in ResourceInput) (*models.SectionResource, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, app_errors.ErrEmptyTitle
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if u, err := url.Parse(in.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, app_errors.Validation("link resources need an http or https url")
	}
	res := models.SectionResource{ID: uuid.New(), SectionID: sectionID, Title: in.Title, ResourceType: models.ResourceTypeLink, URL: in.URL}
	return s.addResource(ctx, res)
}

// AddFileResource uploads a file and attaches it to a section.
func (s *HierarchyService) AddFileResource(ctx context.Context, actor models.Actor, sectionID uuid.UUID, title string, up Upload) (*models.SectionResource, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(up.FileName)
	}
	if title == "" {
		return nil, app_errors.ErrEmptyTitle
	}
	if up.Size <= 0 || up.Size > MaxResourceSize {
		return nil, app_errors.ErrFileSize
	}

	res := models.SectionResource{
		ID:           uuid.New(),
		SectionID:    sectionID,
		Title:        title,
		ResourceType: models.ResourceTypeFile,
		FileName:     up.FileName,
		FileSize:     up.Size,
	}
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		res.ObjectKey, err = s.files.UploadFile(ctx, sectionID, res.ID, up.FileName, up.Reader, up.Size, up.ContentType)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("upload resource", err)
	}

	out, err := s.addResource(ctx, res)
	if err != nil {
		if derr := s.call(ctx, func(ctx context.Context) error { return s.files.DeleteFile(ctx, res.ObjectKey) }); derr != nil {
			s.log.ErrorErr("failed to delete orphaned resource file", derr, "object_key", res.ObjectKey)
		}
		return nil, err
	}
	return out, nil
}

// addResource appends res after the last resource of its section. It runs
// in the course queue so two concurrent adds cannot pick the same order.
func (s *HierarchyService) addResource(ctx context.Context, res models.SectionResource) (*models.SectionResource, error) {
	courseID, err := s.courseOf(ctx, models.NodeRef{Kind: models.KindSection, ID: res.SectionID})
	if err != nil {
		return nil, err
	}
	release, err := s.queue.Acquire(ctx, courseID)
	if err != nil {
		return nil, app_errors.Remote("add resource", err)
	}
	defer release()

	err = s.call(ctx, func(ctx context.Context) error {
		all, err := s.resources.ResourcesByCourse(ctx, courseID)
		if err != nil {
			return err
		}
		res.Order = 1
		for _, r := range all {
			if r.SectionID == res.SectionID && r.Order >= res.Order {
				res.Order = r.Order + 1
			}
		}
		res.CreatedAt = s.now()
		return s.resources.CreateResource(ctx, res)
	})
	if err != nil {
		return nil, app_errors.Remote("add resource", err)
	}
	return &res, nil
}

func (s *HierarchyService) DeleteResource(ctx context.Context, actor models.Actor, resourceID uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	var res *models.SectionResource
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		if res, err = s.resources.ResourceByID(ctx, resourceID); err != nil {
			return err
		}
		return s.resources.DeleteResource(ctx, resourceID)
	})
	if err != nil {
		return app_errors.Remote("delete resource", err)
	}
	if res.ObjectKey != "" {
		if err = s.call(ctx, func(ctx context.Context) error { return s.files.DeleteFile(ctx, res.ObjectKey) }); err != nil {
			s.log.ErrorErr("failed to delete resource file", err, "resource_id", resourceID, "object_key", res.ObjectKey)
		}
	}
	return nil
}

// Resources lists the resources of a course grouped by section id. File
// resources get a presigned download URL.
func (s *HierarchyService) Resources(ctx context.Context, courseID uuid.UUID) (map[uuid.UUID][]models.SectionResource, error) {
	var all []models.SectionResource
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		all, err = s.resources.ResourcesByCourse(ctx, courseID)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("list resources", err)
	}

	out := make(map[uuid.UUID][]models.SectionResource)
	for _, r := range all {
		if r.ResourceType == models.ResourceTypeFile && r.ObjectKey != "" {
			err = s.call(ctx, func(ctx context.Context) error {
				var err error
				r.URL, err = s.files.FileURL(ctx, r.ObjectKey, r.FileName)
				return err
			})
			if err != nil {
				s.log.ErrorErr("failed to presign resource", err, "resource_id", r.ID)
			}
		}
		out[r.SectionID] = append(out[r.SectionID], r)
	}
	return out, nil
}

package content

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/coursetree"
	"EduHub/internal/models"
	"context"
	"slices"

	"github.com/google/uuid"
)

func (s *HierarchyService) CreateSection(ctx context.Context, actor models.Actor, courseID uuid.UUID, in NodeInput) (*models.Section, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	now := s.now()
	sec := models.Section{ID: uuid.New(), CourseID: courseID, Title: in.Title, Description: in.Description, CreatedAt: now, UpdatedAt: now}

	err = s.mutate(ctx, courseID, mutation{
		op: "create section",
		apply: func(t *coursetree.Tree) (func(*coursetree.Tree), error) {
			sec.Order = t.NextOrder(courseID)
			if err := t.AddSection(sec); err != nil {
				return nil, err
			}
			return removeNode(models.KindSection, sec.ID), nil
		},
		remote: func(ctx context.Context) error { return s.hierarchy.CreateSection(ctx, sec) },
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("section created", "course_id", courseID, "section_id", sec.ID)
	return &sec, nil
}

func (s *HierarchyService) CreateChapter(ctx context.Context, actor models.Actor, sectionID uuid.UUID, in NodeInput) (*models.Chapter, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	courseID, err := s.courseOf(ctx, models.NodeRef{Kind: models.KindSection, ID: sectionID})
	if err != nil {
		return nil, err
	}
	now := s.now()
	ch := models.Chapter{ID: uuid.New(), SectionID: sectionID, Title: in.Title, Description: in.Description, CreatedAt: now, UpdatedAt: now}

	err = s.mutate(ctx, courseID, mutation{
		op: "create chapter",
		apply: func(t *coursetree.Tree) (func(*coursetree.Tree), error) {
			ch.Order = t.NextOrder(sectionID)
			if err := t.AddChapter(ch); err != nil {
				return nil, err
			}
			return removeNode(models.KindChapter, ch.ID), nil
		},
		remote: func(ctx context.Context) error { return s.hierarchy.CreateChapter(ctx, ch) },
	})
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *HierarchyService) CreateModule(ctx context.Context, actor models.Actor, chapterID uuid.UUID, in NodeInput) (*models.Module, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	courseID, err := s.courseOf(ctx, models.NodeRef{Kind: models.KindChapter, ID: chapterID})
	if err != nil {
		return nil, err
	}
	now := s.now()
	m := models.Module{ID: uuid.New(), ChapterID: chapterID, Title: in.Title, Description: in.Description, CreatedAt: now, UpdatedAt: now}

	err = s.mutate(ctx, courseID, mutation{
		op: "create module",
		apply: func(t *coursetree.Tree) (func(*coursetree.Tree), error) {
			m.Order = t.NextOrder(chapterID)
			if err := t.AddModule(m); err != nil {
				return nil, err
			}
			return removeNode(models.KindModule, m.ID), nil
		},
		remote: func(ctx context.Context) error { return s.hierarchy.CreateModule(ctx, m) },
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateLesson appends a draft lesson to a module.
func (s *HierarchyService) CreateLesson(ctx context.Context, actor models.Actor, moduleID uuid.UUID, in LessonInput) (*models.Lesson, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	l, err := in.lesson(models.VideoRef{})
	if err != nil {
		return nil, err
	}
	courseID, err := s.courseOf(ctx, models.NodeRef{Kind: models.KindModule, ID: moduleID})
	if err != nil {
		return nil, err
	}
	now := s.now()
	l.ID, l.ModuleID, l.State, l.CreatedAt, l.UpdatedAt = uuid.New(), moduleID, models.StateDraft, now, now

	err = s.mutate(ctx, courseID, mutation{
		op: "create lesson",
		apply: func(t *coursetree.Tree) (func(*coursetree.Tree), error) {
			if err := checkPrerequisites(t, l.ID, l.Prerequisites); err != nil {
				return nil, err
			}
			l.Order = t.NextOrder(moduleID)
			if err := t.AddLesson(l); err != nil {
				return nil, err
			}
			return removeNode(models.KindLesson, l.ID), nil
		},
		remote: func(ctx context.Context) error { return s.hierarchy.CreateLesson(ctx, l) },
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("lesson created", "course_id", courseID, "lesson_id", l.ID)
	return &l, nil
}

func removeNode(kind models.NodeKind, id uuid.UUID) func(*coursetree.Tree) {
	return func(t *coursetree.Tree) {
		_, _ = t.Remove(models.NodeRef{Kind: kind, ID: id})
	}
}

// UpdateNode changes title and description of a section, chapter or
// module and returns the updated node.
func (s *HierarchyService) UpdateNode(ctx context.Context, actor models.Actor, ref models.NodeRef, in NodeInput) (any, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	switch ref.Kind {
	case models.KindSection, models.KindChapter, models.KindModule:
	default:
		return nil, app_errors.Validation("cannot update a %q node here", ref.Kind)
	}
	courseID, err := s.courseOf(ctx, ref)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var updated any
	err = s.mutate(ctx, courseID, mutation{
		op: "update " + string(ref.Kind),
		apply: func(t *coursetree.Tree) (func(*coursetree.Tree), error) {
			switch ref.Kind {
			case models.KindSection:
				prev, err := t.UpdateSection(models.Section{ID: ref.ID, Title: in.Title, Description: in.Description, UpdatedAt: now})
				if err != nil {
					return nil, err
				}
				updated, _ = t.Section(ref.ID)
				return func(t *coursetree.Tree) { _, _ = t.UpdateSection(prev) }, nil
			case models.KindChapter:
				prev, err := t.UpdateChapter(models.Chapter{ID: ref.ID, Title: in.Title, Description: in.Description, UpdatedAt: now})
				if err != nil {
					return nil, err
				}
				updated, _ = t.Chapter(ref.ID)
				return func(t *coursetree.Tree) { _, _ = t.UpdateChapter(prev) }, nil
			default:
				prev, err := t.UpdateModule(models.Module{ID: ref.ID, Title: in.Title, Description: in.Description, UpdatedAt: now})
				if err != nil {
					return nil, err
				}
				updated, _ = t.Module(ref.ID)
				return func(t *coursetree.Tree) { _, _ = t.UpdateModule(prev) }, nil
			}
		},
		remote: func(ctx context.Context) error {
			switch v := updated.(type) {
			case models.Section:
				return s.hierarchy.UpdateSection(ctx, v)
			case models.Chapter:
				return s.hierarchy.UpdateChapter(ctx, v)
			case models.Module:
				return s.hierarchy.UpdateModule(ctx, v)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateLesson replaces the editable fields of a lesson. Position and
// publication state are changed through Reorder and SetPublicationState.
// An uploaded video the new content no longer points at is removed from
// object storage once the lesson is written.
func (s *HierarchyService) UpdateLesson(ctx context.Context, actor models.Actor, lessonID uuid.UUID, in LessonInput) (*models.Lesson, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	courseID, err := s.courseOf(ctx, models.NodeRef{Kind: models.KindLesson, ID: lessonID})
	if err != nil {
		return nil, err
	}

	var (
		updated models.Lesson
		oldKey  string
	)
	err = s.mutate(ctx, courseID, mutation{
		op: "update lesson",
		apply: func(t *coursetree.Tree) (func(*coursetree.Tree), error) {
			cur, ok := t.Lesson(lessonID)
			if !ok {
				return nil, app_errors.ErrLessonNotFound
			}
			_, _, video := models.ContentFields(cur.Content)
			l, err := in.lesson(video)
			if err != nil {
				return nil, err
			}
			if err = checkPrerequisites(t, lessonID, l.Prerequisites); err != nil {
				return nil, err
			}
			l.ID, l.State, l.UpdatedAt = lessonID, cur.State, s.now()
			if _, _, next := models.ContentFields(l.Content); next.ObjectKey != video.ObjectKey {
				oldKey = video.ObjectKey
			}
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
		return nil, err
	}
	if oldKey != "" {
		if derr := s.call(ctx, func(ctx context.Context) error { return s.media.DeleteVideo(ctx, oldKey) }); derr != nil {
			s.log.ErrorErr("failed to delete replaced video", derr, "object_key", oldKey)
		}
	}
	return &updated, nil
}

// DeleteNode removes a node and everything below it and drops the removed
// lessons from the prerequisites of the lessons that remain. Enrollment
// progress snapshots are not touched here; they are rewritten on the next
// completion and computed afresh on read.
func (s *HierarchyService) DeleteNode(ctx context.Context, actor models.Actor, ref models.NodeRef) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if ref.Kind == models.KindCourse {
		return app_errors.Validation("courses are deleted through the course catalogue")
	}
	courseID, err := s.courseOf(ctx, ref)
	if err != nil {
		return err
	}

	var (
		detached *coursetree.Detached
		files    []models.SectionResource
	)
	err = s.mutate(ctx, courseID, mutation{
		op: "delete " + string(ref.Kind),
		apply: func(t *coursetree.Tree) (func(*coursetree.Tree), error) {
			d, err := t.Remove(ref)
			if err != nil {
				return nil, err
			}
			detached = d
			return func(t *coursetree.Tree) {
				if err := t.Restore(d); err != nil {
					s.log.ErrorErr("restore of removed subtree failed, dropping view", err, "course_id", courseID)
					s.Forget(courseID)
				}
			}, nil
		},
		remote: func(ctx context.Context) error {
			if len(detached.Sections) > 0 {
				all, err := s.resources.ResourcesByCourse(ctx, courseID)
				if err != nil {
					return err
				}
				gone := detached.SectionIDs()
				for _, r := range all {
					if r.ObjectKey != "" && slices.Contains(gone, r.SectionID) {
						files = append(files, r)
					}
				}
			}
			return s.hierarchy.DeleteNode(ctx, ref, detached.LessonIDs())
		},
	})
	if err != nil {
		return err
	}

	s.log.Info("node deleted", "course_id", courseID, "kind", ref.Kind, "id", ref.ID, "lessons", len(detached.Lessons))
	s.purgeObjects(ctx, detached.Lessons, files)
	return nil
}

// UpdateCourse mirrors new course details in the local view and writes
// them through remote.
func (s *HierarchyService) UpdateCourse(ctx context.Context, c models.Course, remote func(ctx context.Context) error) error {
	return s.mutate(ctx, c.ID, mutation{
		op: "update course",
		apply: func(t *coursetree.Tree) (func(*coursetree.Tree), error) {
			prev := t.Course()
			t.SetCourse(c)
			return func(t *coursetree.Tree) { t.SetCourse(prev) }, nil
		},
		remote: remote,
	})
}

// DropCourse runs remove, which deletes the course from the store, in the
// course queue. The local view is dropped and the media of the course is
// purged afterwards.
func (s *HierarchyService) DropCourse(ctx context.Context, courseID uuid.UUID, remove func(ctx context.Context) error) error {
	release, err := s.queue.Acquire(ctx, courseID)
	if err != nil {
		return app_errors.Remote("delete course", err)
	}
	defer release()

	var lessons []models.Lesson
	err = s.Read(ctx, courseID, func(t *coursetree.Tree) error {
		lessons = t.Leaves()
		return nil
	})
	if err != nil {
		return err
	}
	var files []models.SectionResource
	err = s.call(ctx, func(ctx context.Context) error {
		all, err := s.resources.ResourcesByCourse(ctx, courseID)
		for _, r := range all {
			if r.ObjectKey != "" {
				files = append(files, r)
			}
		}
		return err
	})
	if err != nil {
		return app_errors.Remote("list resources", err)
	}

	if err = s.call(ctx, remove); err != nil {
		return app_errors.Remote("delete course", err)
	}
	s.Forget(courseID)
	s.purgeObjects(ctx, lessons, files)
	return nil
}

// purgeObjects removes media of deleted lessons and resources. Failures are
// logged; the rows are already gone.
func (s *HierarchyService) purgeObjects(ctx context.Context, lessons []models.Lesson, files []models.SectionResource) {
	for _, l := range lessons {
		if _, _, video := models.ContentFields(l.Content); video.ObjectKey != "" {
			if err := s.call(ctx, func(ctx context.Context) error { return s.media.DeleteVideo(ctx, video.ObjectKey) }); err != nil {
				s.log.ErrorErr("failed to delete lesson video", err, "lesson_id", l.ID, "object_key", video.ObjectKey)
			}
		}
	}
	for _, r := range files {
		if err := s.call(ctx, func(ctx context.Context) error { return s.files.DeleteFile(ctx, r.ObjectKey) }); err != nil {
			s.log.ErrorErr("failed to delete resource file", err, "resource_id", r.ID, "object_key", r.ObjectKey)
		}
	}
}

// Reorder rewrites the order of the immediate children of parent to follow
// ids, which must be exactly the current children.
func (s *HierarchyService) Reorder(ctx context.Context, actor models.Actor, parent models.NodeRef, ids []uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if parent.Kind == models.KindLesson {
		return app_errors.Validation("a lesson has no children")
	}
	courseID, err := s.courseOf(ctx, parent)
	if err != nil {
		return err
	}
	ids = slices.Clone(ids)

	return s.mutate(ctx, courseID, mutation{
		op: "reorder " + string(parent.Kind),
		apply: func(t *coursetree.Tree) (func(*coursetree.Tree), error) {
			if !t.Contains(parent) {
				return nil, coursetree.NotFound(parent.Kind)
			}
			prev, err := t.Reorder(parent.ID, ids)
			if err != nil {
				return nil, err
			}
			return func(t *coursetree.Tree) { _, _ = t.Reorder(parent.ID, prev) }, nil
		},
		remote: func(ctx context.Context) error { return s.hierarchy.ReorderChildren(ctx, parent, ids) },
	})
}

// SetPublicationState moves a lesson to state. Every transition is allowed.
func (s *HierarchyService) SetPublicationState(ctx context.Context, actor models.Actor, lessonID uuid.UUID, state models.PublicationState) (*models.Lesson, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !state.Valid() {
		return nil, app_errors.Validation("unknown publication state %q", state)
	}
	courseID, err := s.courseOf(ctx, models.NodeRef{Kind: models.KindLesson, ID: lessonID})
	if err != nil {
		return nil, err
	}

	var updated models.Lesson
	err = s.mutate(ctx, courseID, mutation{
		op: "set publication state",
		apply: func(t *coursetree.Tree) (func(*coursetree.Tree), error) {
			prev, err := t.SetState(lessonID, state)
			if err != nil {
				return nil, err
			}
			updated, _ = t.Lesson(lessonID)
			return func(t *coursetree.Tree) { _, _ = t.SetState(lessonID, prev) }, nil
		},
		remote: func(ctx context.Context) error { return s.hierarchy.SetLessonState(ctx, lessonID, state) },
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("lesson state changed", "lesson_id", lessonID, "state", state)
	return &updated, nil
}

// ListPublishedLeaves returns the published lessons of a course in tree
// order.
func (s *HierarchyService) ListPublishedLeaves(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error) {
	var out []models.Lesson
	err := s.Read(ctx, courseID, func(t *coursetree.Tree) error {
		out = t.PublishedLeaves()
		return nil
	})
	return out, err
}

// Navigate places a published lesson on the linear course path and
// resolves a playback URL for uploaded videos.
func (s *HierarchyService) Navigate(ctx context.Context, courseID, lessonID uuid.UUID) (*models.LessonNavigation, error) {
	var nav models.LessonNavigation
	err := s.Read(ctx, courseID, func(t *coursetree.Tree) error {
		var err error
		nav, err = t.Navigate(lessonID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if _, _, video := models.ContentFields(nav.Lesson.Content); video.ObjectKey != "" {
		err = s.call(ctx, func(ctx context.Context) error {
			var err error
			nav.VideoURL, err = s.media.VideoURL(ctx, video.ObjectKey)
			return err
		})
		if err != nil {
			return nil, app_errors.Remote("presign video", err)
		}
	} else {
		nav.VideoURL = video.URL
	}
	return &nav, nil
}

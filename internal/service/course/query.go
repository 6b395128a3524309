package course

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/coursetree"
	"EduHub/internal/models"
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	previewWorkers   = 8
	maxDescription   = 200
	defaultPageSize  = 20
	maxSearchResults = 100
)

// visibleCourses is every course for an admin and the actively enrolled
// courses for a student.
func (s *CourseService) visibleCourses(ctx context.Context, actor models.Actor) ([]models.Course, error) {
	var out []models.Course
	err := s.call(ctx, func(ctx context.Context) error {
		if actor.IsAdmin() {
			var err error
			out, err = s.courseRepo.ListCourses(ctx)
			return err
		}
		enrollments, err := s.enrollments.EnrollmentsByStudent(ctx, actor.ID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(enrollments))
		for _, e := range enrollments {
			if e.IsActive {
				ids = append(ids, e.CourseID)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		out, err = s.courseRepo.CoursesByIDs(ctx, ids)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("list courses", err)
	}
	return out, nil
}

// requireAccess lets admins see every course and students only the ones
// they are actively enrolled in.
func (s *CourseService) requireAccess(ctx context.Context, actor models.Actor, courseID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	var e *models.Enrollment
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.enrollments.Enrollment(ctx, actor.ID, courseID)
		return err
	})
	if err != nil {
		return app_errors.Remote("load enrollment", err)
	}
	if !e.IsActive {
		return app_errors.ErrEnrollmentInactive
	}
	return nil
}

func (s *CourseService) completed(ctx context.Context, studentID, courseID uuid.UUID) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		ids, err = s.completions.CompletedLessons(ctx, studentID, courseID)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("load completions", err)
	}
	done := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}

func shorten(desc string) string {
	r := []rune(desc)
	if len(r) > maxDescription {
		return string(r[:maxDescription]) + "…"
	}
	return desc
}

// preview counts the published lessons of c and, for a student, the share
// they completed.
func (s *CourseService) preview(ctx context.Context, actor models.Actor, c models.Course) (models.CoursePreview, error) {
	p := models.CoursePreview{ID: c.ID, Title: c.Title, Description: shorten(c.Description)}
	var done map[uuid.UUID]bool
	if !actor.IsAdmin() {
		var err error
		if done, err = s.completed(ctx, actor.ID, c.ID); err != nil {
			return p, err
		}
	}
	err := s.content.Read(ctx, c.ID, func(t *coursetree.Tree) error {
		completed, total := t.CountCompleted(done)
		p.TotalLessons = total
		if done != nil {
			rate := 0.0
			if total > 0 {
				rate = 100 * float64(completed) / float64(total)
			}
			p.CompletionRate = &rate
		}
		return nil
	})
	return p, err
}

func (s *CourseService) previews(ctx context.Context, actor models.Actor, courses []models.Course) ([]models.CoursePreview, error) {
	out := make([]models.CoursePreview, len(courses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(previewWorkers)
	for i, c := range courses {
		i, c := i, c
		g.Go(func() error {
			p, err := s.preview(gctx, actor, c)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CoursesPreview lists the courses visible to actor with lesson counts.
func (s *CourseService) CoursesPreview(ctx context.Context, actor models.Actor) ([]models.CoursePreview, error) {
	courses, err := s.visibleCourses(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.previews(ctx, actor, courses)
}

func (s *CourseService) CourseByID(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.CoursePreview, error) {
	if err := s.requireAccess(ctx, actor, id); err != nil {
		return nil, err
	}
	var c *models.Course
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.courseRepo.CourseByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("load course", err)
	}
	p, err := s.preview(ctx, actor, *c)
	if err != nil {
		return nil, err
	}
	p.Description = c.Description
	return &p, nil
}

// Outline renders the nested course. Admins see every lesson; students see
// published lessons with their completion and lock flags.
func (s *CourseService) Outline(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.CourseOutline, error) {
	if err := s.requireAccess(ctx, actor, id); err != nil {
		return nil, err
	}

	var (
		done    map[uuid.UUID]bool
		include func(models.Lesson) bool
	)
	if !actor.IsAdmin() {
		var err error
		if done, err = s.completed(ctx, actor.ID, id); err != nil {
			return nil, err
		}
		include = func(l models.Lesson) bool { return l.State == models.StatePublished }
	}

	resources, err := s.content.Resources(ctx, id)
	if err != nil {
		return nil, err
	}

	var out models.CourseOutline
	err = s.content.Read(ctx, id, func(t *coursetree.Tree) error {
		out = t.Outline(include, done, s.now())
		if done != nil {
			completed, total := t.CountCompleted(done)
			rate := 0.0
			if total > 0 {
				rate = 100 * float64(completed) / float64(total)
			}
			out.CompletionRate = &rate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range out.Sections {
		out.Sections[i].Resources = resources[out.Sections[i].ID]
		if out.Sections[i].Resources == nil {
			out.Sections[i].Resources = []models.SectionResource{}
		}
	}
	return &out, nil
}

// SearchCoursesPreview runs a full-text query over titles and descriptions.
// Results keep the search score order. Students only get courses they are
// enrolled in.
func (s *CourseService) SearchCoursesPreview(ctx context.Context, actor models.Actor, query string, count, offset int) ([]models.CoursePreview, int, error) {
	if count <= 0 {
		count = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	from, size := offset, count
	if !actor.IsAdmin() {
		// Filtering happens after the query, so fetch a wide page.
		from, size = 0, maxSearchResults
	}
	var (
		ids   []uuid.UUID
		total int
	)
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		ids, total, err = s.searchRepo.Search(ctx, query, from, size)
		return err
	})
	if err != nil {
		return nil, 0, app_errors.Remote("search courses", err)
	}

	if !actor.IsAdmin() {
		visible, err := s.visibleCourses(ctx, actor)
		if err != nil {
			return nil, 0, err
		}
		allowed := make(map[uuid.UUID]bool, len(visible))
		for _, c := range visible {
			allowed[c.ID] = true
		}
		kept := ids[:0]
		for _, id := range ids {
			if allowed[id] {
				kept = append(kept, id)
			}
		}
		total = len(kept)
		ids = kept[min(offset, len(kept)):min(offset+count, len(kept))]
	}
	if len(ids) == 0 {
		return []models.CoursePreview{}, total, nil
	}

	var courses []models.Course
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		courses, err = s.courseRepo.CoursesByIDs(ctx, ids)
		return err
	})
	if err != nil {
		return nil, 0, app_errors.Remote("load courses", err)
	}
	out, err := s.previews(ctx, actor, courses)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

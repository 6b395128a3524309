package progress

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/coursetree"
	"EduHub/internal/models"
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MarkComplete records that studentID finished a published lesson and
// rewrites the enrollment snapshot. Marking a finished lesson again only
// refreshes the snapshot.
func (s *ProgressService) MarkComplete(ctx context.Context, actor models.Actor, studentID, courseID, lessonID uuid.UUID) (*models.CourseProgress, error) {
	if err := canSee(actor, studentID); err != nil {
		return nil, err
	}
	release, err := s.queue.Acquire(ctx, studentKey{studentID, courseID})
	if err != nil {
		return nil, app_errors.Remote("mark complete", err)
	}
	defer release()

	var lesson models.Lesson
	err = s.tree.Read(ctx, courseID, func(t *coursetree.Tree) error {
		l, ok := t.Lesson(lessonID)
		if !ok || l.State != models.StatePublished {
			return app_errors.ErrLessonNotFound
		}
		lesson = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	e, err := s.activeEnrollment(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	done, err := s.completed(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !done[lessonID] {
		if !lesson.Released(now) {
			return nil, app_errors.ErrLessonNotReleased
		}
		if err = s.requirePrerequisites(ctx, courseID, lesson, done); err != nil {
			return nil, err
		}
		done[lessonID] = true
	}

	p := models.CourseProgress{CourseID: courseID, StudentID: studentID, Active: true}
	err = s.tree.Read(ctx, courseID, func(t *coursetree.Tree) error {
		p.CompletedLessons, p.TotalLessons = t.CountCompleted(done)
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.Percentage = percentage(p.CompletedLessons, p.TotalLessons)

	c := models.LessonCompletion{StudentID: studentID, LessonID: lessonID, CompletedAt: now}
	err = s.call(ctx, func(ctx context.Context) error {
		return s.completions.RecordCompletion(ctx, c, courseID, e.ID, p.Percentage)
	})
	if err != nil {
		return nil, app_errors.Remote("record completion", err)
	}
	s.log.Info("lesson completed", "student_id", studentID, "course_id", courseID, "lesson_id", lessonID, "progress", p.Percentage)
	return &p, nil
}

// ComputeProgress returns the share of published lessons studentID has
// finished. An inactive enrollment reports its stored snapshot.
func (s *ProgressService) ComputeProgress(ctx context.Context, actor models.Actor, studentID, courseID uuid.UUID) (*models.CourseProgress, error) {
	if err := canSee(actor, studentID); err != nil {
		return nil, err
	}
	e, err := s.enrollment(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		return &models.CourseProgress{CourseID: courseID, StudentID: studentID, Percentage: e.Progress}, nil
	}
	return s.live(ctx, studentID, courseID)
}

// Settle computes the live percentage of studentID in courseID and passes
// it to fn. No completion for the pair is recorded until fn returns.
func (s *ProgressService) Settle(ctx context.Context, studentID, courseID uuid.UUID, fn func(ctx context.Context, progress float64) error) error {
	release, err := s.queue.Acquire(ctx, studentKey{studentID, courseID})
	if err != nil {
		return app_errors.Remote("settle progress", err)
	}
	defer release()

	p, err := s.live(ctx, studentID, courseID)
	if err != nil {
		return err
	}
	return fn(ctx, p.Percentage)
}

func (s *ProgressService) live(ctx context.Context, studentID, courseID uuid.UUID) (*models.CourseProgress, error) {
	done, err := s.completed(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	p := models.CourseProgress{CourseID: courseID, StudentID: studentID, Active: true}
	err = s.tree.Read(ctx, courseID, func(t *coursetree.Tree) error {
		p.CompletedLessons, p.TotalLessons = t.CountCompleted(done)
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.Percentage = percentage(p.CompletedLessons, p.TotalLessons)
	return &p, nil
}

const dashboardWorkers = 8

// StudentDashboard lists the active enrollments of studentID with live
// progress, most recent enrollment first.
func (s *ProgressService) StudentDashboard(ctx context.Context, actor models.Actor, studentID uuid.UUID) ([]models.EnrolledCourse, error) {
	if err := canSee(actor, studentID); err != nil {
		return nil, err
	}
	var all []models.Enrollment
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		all, err = s.enrollments.EnrollmentsByStudent(ctx, studentID)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("list enrollments", err)
	}

	ids := make([]uuid.UUID, 0, len(all))
	for _, e := range all {
		if e.IsActive {
			ids = append(ids, e.CourseID)
		}
	}
	if len(ids) == 0 {
		return []models.EnrolledCourse{}, nil
	}

	var courses []models.Course
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		courses, err = s.courses.CoursesByIDs(ctx, ids)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("load courses", err)
	}

	out := make([]models.EnrolledCourse, len(courses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardWorkers)
	for i, c := range courses {
		i, c := i, c
		g.Go(func() error {
			p, err := s.live(gctx, studentID, c.ID)
			if err != nil {
				return err
			}
			out[i] = models.EnrolledCourse{Course: c, Progress: *p}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// OpenLesson returns a lesson for a student to study, with its place on
// the course path. Admins may open any published lesson.
func (s *ProgressService) OpenLesson(ctx context.Context, actor models.Actor, courseID, lessonID uuid.UUID) (*models.LessonNavigation, error) {
	nav, err := s.tree.Navigate(ctx, courseID, lessonID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return nav, nil
	}
	if _, err = s.activeEnrollment(ctx, actor.ID, courseID); err != nil {
		return nil, err
	}
	if !nav.Lesson.Released(s.now()) {
		return nil, app_errors.ErrLessonNotReleased
	}
	done, err := s.completed(ctx, actor.ID, courseID)
	if err != nil {
		return nil, err
	}
	if err = s.requirePrerequisites(ctx, courseID, nav.Lesson, done); err != nil {
		return nil, err
	}
	return nav, nil
}

func (s *ProgressService) requirePrerequisites(ctx context.Context, courseID uuid.UUID, l models.Lesson, done map[uuid.UUID]bool) error {
	return s.tree.Read(ctx, courseID, func(t *coursetree.Tree) error {
		if !t.PrerequisitesMet(l, done) {
			return app_errors.ErrPrerequisitesIncomplete
		}
		return nil
	})
}

// CoursePath lists the published lessons of a course in study order.
func (s *ProgressService) CoursePath(ctx context.Context, actor models.Actor, courseID uuid.UUID) ([]models.Lesson, error) {
	if !actor.IsAdmin() {
		if _, err := s.activeEnrollment(ctx, actor.ID, courseID); err != nil {
			return nil, err
		}
	}
	return s.tree.ListPublishedLeaves(ctx, courseID)
}

// Package progress tracks which lessons a student finished and turns that
// into a course completion percentage.
package progress

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/coursetree"
	"EduHub/internal/models"
	"EduHub/pkg/keyqueue"
	"EduHub/pkg/logger"
	"context"
	"time"

	"github.com/google/uuid"
)

type treeReader interface {
	Read(ctx context.Context, courseID uuid.UUID, fn func(t *coursetree.Tree) error) error
	Navigate(ctx context.Context, courseID, lessonID uuid.UUID) (*models.LessonNavigation, error)
	ListPublishedLeaves(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error)
}

type enrollmentRepo interface {
	Enrollment(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error)
	EnrollmentsByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Enrollment, error)
}

type completionRepo interface {
	RecordCompletion(ctx context.Context, c models.LessonCompletion, courseID, enrollmentID uuid.UUID, progress float64) error
	CompletedLessons(ctx context.Context, studentID, courseID uuid.UUID) ([]uuid.UUID, error)
}

type courseRepo interface {
	CoursesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Course, error)
}

type studentKey struct {
	student, course uuid.UUID
}

type ProgressService struct {
	log         logger.Log
	tree        treeReader
	enrollments enrollmentRepo
	completions completionRepo
	courses     courseRepo
	timeout     time.Duration
	now         func() time.Time
	queue       *keyqueue.Queue[studentKey]
}

func NewProgressService(
	log logger.Log,
	tree treeReader,
	enrollments enrollmentRepo,
	completions completionRepo,
	courses courseRepo,
	remoteTimeout time.Duration,
) *ProgressService {
	if remoteTimeout <= 0 {
		remoteTimeout = 5 * time.Second
	}
	return &ProgressService{
		log:         log,
		tree:        tree,
		enrollments: enrollments,
		completions: completions,
		courses:     courses,
		timeout:     remoteTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		queue:       keyqueue.New[studentKey](),
	}
}

func (s *ProgressService) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

// canSee lets a student act on their own progress and an admin on anyone's.
func canSee(actor models.Actor, studentID uuid.UUID) error {
	if actor.IsAdmin() || actor.ID == studentID {
		return nil
	}
	return app_errors.ErrForbidden
}

func (s *ProgressService) enrollment(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	var e *models.Enrollment
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.enrollments.Enrollment(ctx, studentID, courseID)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("load enrollment", err)
	}
	return e, nil
}

func (s *ProgressService) activeEnrollment(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	e, err := s.enrollment(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		return nil, app_errors.ErrEnrollmentInactive
	}
	return e, nil
}

func (s *ProgressService) completed(ctx context.Context, studentID, courseID uuid.UUID) (map[uuid.UUID]bool, error) {
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

func percentage(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(done) / float64(total)
}

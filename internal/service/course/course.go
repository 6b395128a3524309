// Package course is the course catalogue: course CRUD, listing, search and
// the nested outline shown to admins and students.
package course

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/coursetree"
	"EduHub/internal/models"
	"EduHub/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type courseRepo interface {
	CreateCourse(ctx context.Context, c models.Course) error
	UpdateCourse(ctx context.Context, c models.Course) error
	DeleteCourse(ctx context.Context, id uuid.UUID) error
	CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	CoursesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Course, error)
}

type searchRepo interface {
	Index(ctx context.Context, course models.Course) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) ([]uuid.UUID, int, error)
}

type contentView interface {
	Read(ctx context.Context, courseID uuid.UUID, fn func(t *coursetree.Tree) error) error
	Resources(ctx context.Context, courseID uuid.UUID) (map[uuid.UUID][]models.SectionResource, error)
	UpdateCourse(ctx context.Context, c models.Course, remote func(ctx context.Context) error) error
	DropCourse(ctx context.Context, courseID uuid.UUID, remove func(ctx context.Context) error) error
}

type enrollmentRepo interface {
	Enrollment(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error)
	EnrollmentsByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Enrollment, error)
}

type completionRepo interface {
	CompletedLessons(ctx context.Context, studentID, courseID uuid.UUID) ([]uuid.UUID, error)
}

type CourseService struct {
	log         logger.Log
	courseRepo  courseRepo
	searchRepo  searchRepo
	content     contentView
	enrollments enrollmentRepo
	completions completionRepo
	timeout     time.Duration
	now         func() time.Time
}

func NewCourseService(
	log logger.Log,
	courseRepo courseRepo,
	searchRepo searchRepo,
	content contentView,
	enrollments enrollmentRepo,
	completions completionRepo,
	remoteTimeout time.Duration,
) *CourseService {
	if remoteTimeout <= 0 {
		remoteTimeout = 5 * time.Second
	}
	return &CourseService{
		log:         log,
		courseRepo:  courseRepo,
		searchRepo:  searchRepo,
		content:     content,
		enrollments: enrollments,
		completions: completions,
		timeout:     remoteTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type CourseInput struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
}

func (in CourseInput) normalize() (CourseInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return in, app_errors.ErrEmptyTitle
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return in, app_errors.Validation("%s failed on %s", verrs[0].Field(), verrs[0].Tag())
		}
		return in, app_errors.Validation("invalid course: %v", err)
	}
	return in, nil
}

func (s *CourseService) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return app_errors.ErrAdminOnly
	}
	return nil
}

func (s *CourseService) CreateCourse(ctx context.Context, actor models.Actor, in CourseInput) (*models.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	now := s.now()
	c := models.Course{ID: uuid.New(), Title: in.Title, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	if err = s.call(ctx, func(ctx context.Context) error { return s.courseRepo.CreateCourse(ctx, c) }); err != nil {
		return nil, app_errors.Remote("create course", err)
	}
	s.index(ctx, c)
	s.log.Info("course created", "course_id", c.ID)
	return &c, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, actor models.Actor, id uuid.UUID, in CourseInput) (*models.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	var cur *models.Course
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		cur, err = s.courseRepo.CourseByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("load course", err)
	}
	c := *cur
	c.Title, c.Description, c.UpdatedAt = in.Title, in.Description, s.now()
	err = s.content.UpdateCourse(ctx, c, func(ctx context.Context) error { return s.courseRepo.UpdateCourse(ctx, c) })
	if err != nil {
		return nil, err
	}
	s.index(ctx, c)
	return &c, nil
}

// DeleteCourse removes a course with its whole hierarchy, enrollments and
// completions, then drops it from search and purges its media.
func (s *CourseService) DeleteCourse(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.content.DropCourse(ctx, id, func(ctx context.Context) error { return s.courseRepo.DeleteCourse(ctx, id) })
	if err != nil {
		return err
	}
	if err = s.call(ctx, func(ctx context.Context) error { return s.searchRepo.Delete(ctx, id) }); err != nil {
		s.log.ErrorErr("failed to remove course from search index", err, "course_id", id)
	}
	s.log.Info("course deleted", "course_id", id)
	return nil
}

// index keeps search in step with the store. A failure is logged; the
// course itself is already saved.
func (s *CourseService) index(ctx context.Context, c models.Course) {
	if err := s.call(ctx, func(ctx context.Context) error { return s.searchRepo.Index(ctx, c) }); err != nil {
		s.log.ErrorErr("error indexing course", err, "course_id", c.ID)
	}
}

// ReindexAll pushes every course to the search index. Run at start-up so a
// fresh index is usable.
func (s *CourseService) ReindexAll(ctx context.Context) error {
	courses, err := s.courseRepo.ListCourses(ctx)
	if err != nil {
		return app_errors.Remote("list courses", err)
	}
	for _, c := range courses {
		if err = s.searchRepo.Index(ctx, c); err != nil {
			return fmt.Errorf("index course %s: %w", c.ID, err)
		}
	}
	return nil
}

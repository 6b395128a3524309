package progress

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"EduHub/internal/service/auth"
	"EduHub/internal/service/content"
	"EduHub/internal/service/enrollment"
	"EduHub/internal/storage/memory"
	"EduHub/pkg/logger"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = models.Actor{ID: uuid.New(), Role: models.AdminRole}

type env struct {
	svc     *ProgressService
	content *content.HierarchyService
	store   *memory.Store
	course  uuid.UUID
	module  uuid.UUID
	student models.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	objects := memory.NewObjectStore()
	hier := content.NewHierarchyService(logger.NewNop(), store, store, store, objects, objects, time.Second)

	course := models.Course{ID: uuid.New(), Title: "Go", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, store.CreateCourse(ctx, course))
	student := models.Profile{ID: uuid.New(), Name: "Ann", Email: "ann@example.com", Role: models.StudentRole, IsActive: true}
	require.NoError(t, store.CreateProfile(ctx, student))

	sec, err := hier.CreateSection(ctx, admin, course.ID, content.NodeInput{Title: "Basics"})
	require.NoError(t, err)
	ch, err := hier.CreateChapter(ctx, admin, sec.ID, content.NodeInput{Title: "Types"})
	require.NoError(t, err)
	m, err := hier.CreateModule(ctx, admin, ch.ID, content.NodeInput{Title: "Ints"})
	require.NoError(t, err)

	svc := NewProgressService(logger.NewNop(), hier, store, store, store, time.Second)
	return &env{
		svc:     svc,
		content: hier,
		store:   store,
		course:  course.ID,
		module:  m.ID,
		student: models.Actor{ID: student.ID, Role: models.StudentRole},
	}
}

func (e *env) lesson(t *testing.T, in content.LessonInput, state models.PublicationState) models.Lesson {
	t.Helper()
	ctx := context.Background()
	if in.ContentType == "" {
		body := "x"
		in.ContentType, in.Body = models.ContentTypeText, &body
	}
	l, err := e.content.CreateLesson(ctx, admin, e.module, in)
	require.NoError(t, err)
	if state != models.StateDraft {
		l, err = e.content.SetPublicationState(ctx, admin, l.ID, state)
		require.NoError(t, err)
	}
	return *l
}

func (e *env) enroll(t *testing.T) {
	t.Helper()
	_, err := e.store.ActivateEnrollment(context.Background(), e.student.ID, e.course)
	require.NoError(t, err)
}

func TestMarkCompleteComputesPercentage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l1 := e.lesson(t, content.LessonInput{Title: "one"}, models.StatePublished)
	e.lesson(t, content.LessonInput{Title: "two"}, models.StatePublished)
	e.lesson(t, content.LessonInput{Title: "three"}, models.StatePublished)
	e.lesson(t, content.LessonInput{Title: "draft"}, models.StateDraft)
	e.lesson(t, content.LessonInput{Title: "hidden"}, models.StateHidden)
	e.enroll(t)

	p, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CompletedLessons)
	assert.Equal(t, 3, p.TotalLessons)
	assert.InDelta(t, 100.0/3, p.Percentage, 1e-9)

	en, err := e.store.Enrollment(ctx, e.student.ID, e.course)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, en.Progress, 1e-9)
}

func TestMarkCompleteIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l1 := e.lesson(t, content.LessonInput{Title: "one"}, models.StatePublished)
	e.lesson(t, content.LessonInput{Title: "two"}, models.StatePublished)
	e.enroll(t)

	first, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l1.ID)
	require.NoError(t, err)
	second, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Percentage, second.Percentage)
	assert.Equal(t, 50.0, second.Percentage)
}

func TestMarkCompleteErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pub := e.lesson(t, content.LessonInput{Title: "one"}, models.StatePublished)
	draft := e.lesson(t, content.LessonInput{Title: "draft"}, models.StateDraft)

	t.Run("not enrolled", func(t *testing.T) {
		_, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, pub.ID)
		assert.ErrorIs(t, err, app_errors.ErrNotEnrolled)
	})

	e.enroll(t)

	t.Run("draft lesson", func(t *testing.T) {
		_, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, draft.ID)
		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})
	t.Run("unknown lesson", func(t *testing.T) {
		_, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, uuid.New())
		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})
	t.Run("other student", func(t *testing.T) {
		other := models.Actor{ID: uuid.New(), Role: models.StudentRole}
		_, err := e.svc.MarkComplete(ctx, other, e.student.ID, e.course, pub.ID)
		assert.ErrorIs(t, err, app_errors.ErrForbidden)
	})
	t.Run("inactive enrollment", func(t *testing.T) {
		require.NoError(t, e.store.DeactivateEnrollment(ctx, e.student.ID, e.course, 0))
		defer e.enroll(t)
		_, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, pub.ID)
		assert.ErrorIs(t, err, app_errors.ErrNotEnrolled)
	})
}

func TestMarkCompleteChecksPrerequisitesAndRelease(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.lesson(t, content.LessonInput{Title: "first"}, models.StatePublished)
	second := e.lesson(t, content.LessonInput{Title: "second", Prerequisites: []uuid.UUID{first.ID}}, models.StatePublished)
	later := time.Now().Add(24 * time.Hour)
	scheduled := e.lesson(t, content.LessonInput{Title: "later", ReleaseAt: &later}, models.StatePublished)
	e.enroll(t)

	_, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, second.ID)
	assert.ErrorIs(t, err, app_errors.ErrValidation)

	_, err = e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, scheduled.ID)
	assert.ErrorIs(t, err, app_errors.ErrLessonNotReleased)

	_, err = e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, first.ID)
	require.NoError(t, err)
	p, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, second.ID)
	require.NoError(t, err)
	// The scheduled lesson is published and stays in the denominator.
	assert.Equal(t, 3, p.TotalLessons)
	assert.Equal(t, 2, p.CompletedLessons)
}

func TestComputeProgress(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.ComputeProgress(ctx, e.student, e.student.ID, e.course)
	assert.ErrorIs(t, err, app_errors.ErrNotEnrolled)

	e.enroll(t)
	p, err := e.svc.ComputeProgress(ctx, e.student, e.student.ID, e.course)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Percentage, "no published lessons")

	l1 := e.lesson(t, content.LessonInput{Title: "one"}, models.StatePublished)
	l2 := e.lesson(t, content.LessonInput{Title: "two"}, models.StatePublished)
	_, err = e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l1.ID)
	require.NoError(t, err)
	_, err = e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l2.ID)
	require.NoError(t, err)

	p, err = e.svc.ComputeProgress(ctx, admin, e.student.ID, e.course)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Percentage)

	// Hiding a completed lesson takes it out of both counts.
	_, err = e.content.SetPublicationState(ctx, admin, l2.ID, models.StateHidden)
	require.NoError(t, err)
	e.lesson(t, content.LessonInput{Title: "three"}, models.StatePublished)
	p, err = e.svc.ComputeProgress(ctx, e.student, e.student.ID, e.course)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CompletedLessons)
	assert.Equal(t, 2, p.TotalLessons)
	assert.Equal(t, 50.0, p.Percentage)
}

func TestComputeProgressAfterDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l1 := e.lesson(t, content.LessonInput{Title: "one"}, models.StatePublished)
	l2 := e.lesson(t, content.LessonInput{Title: "two"}, models.StatePublished)
	e.enroll(t)
	_, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l1.ID)
	require.NoError(t, err)

	require.NoError(t, e.content.DeleteNode(ctx, admin, models.NodeRef{Kind: models.KindLesson, ID: l1.ID}))
	p, err := e.svc.ComputeProgress(ctx, e.student, e.student.ID, e.course)
	require.NoError(t, err)
	assert.Equal(t, 0, p.CompletedLessons)
	assert.Equal(t, 1, p.TotalLessons)

	_, err = e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l2.ID)
	require.NoError(t, err)
	p, err = e.svc.ComputeProgress(ctx, e.student, e.student.ID, e.course)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Percentage)
}

func TestDeletedPrerequisiteNoLongerBlocks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l1 := e.lesson(t, content.LessonInput{Title: "one"}, models.StatePublished)
	l2 := e.lesson(t, content.LessonInput{Title: "two", Prerequisites: []uuid.UUID{l1.ID}}, models.StatePublished)
	e.enroll(t)

	_, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l2.ID)
	require.ErrorIs(t, err, app_errors.ErrPrerequisitesIncomplete)

	require.NoError(t, e.content.DeleteNode(ctx, admin, models.NodeRef{Kind: models.KindLesson, ID: l1.ID}))
	p, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l2.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Percentage)

	cc, err := e.store.CourseContent(ctx, e.course)
	require.NoError(t, err)
	require.Len(t, cc.Lessons, 1)
	assert.Empty(t, cc.Lessons[0].Prerequisites)
}

func TestHiddenPrerequisiteNoLongerBlocks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l1 := e.lesson(t, content.LessonInput{Title: "one"}, models.StatePublished)
	l2 := e.lesson(t, content.LessonInput{Title: "two", Prerequisites: []uuid.UUID{l1.ID}}, models.StatePublished)
	e.enroll(t)

	_, err := e.svc.OpenLesson(ctx, e.student, e.course, l2.ID)
	require.ErrorIs(t, err, app_errors.ErrPrerequisitesIncomplete)

	_, err = e.content.SetPublicationState(ctx, admin, l1.ID, models.StateHidden)
	require.NoError(t, err)
	_, err = e.svc.OpenLesson(ctx, e.student, e.course, l2.ID)
	require.NoError(t, err)
	p, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l2.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Percentage)
}

func TestInactiveEnrollmentReturnsSnapshot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l1 := e.lesson(t, content.LessonInput{Title: "one"}, models.StatePublished)
	e.lesson(t, content.LessonInput{Title: "two"}, models.StatePublished)
	e.enroll(t)
	_, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l1.ID)
	require.NoError(t, err)

	// The stored 50% is stale once a third lesson is published; unassigning
	// freezes the live value instead.
	e.lesson(t, content.LessonInput{Title: "three"}, models.StatePublished)
	enrollments := enrollment.NewEnrollmentService(logger.NewNop(), e.store, e.store, e.svc,
		auth.NewActionTokens(e.store, time.Hour), nil, "http://app.test", time.Second)
	require.NoError(t, enrollments.Unassign(ctx, admin, e.student.ID, e.course))

	// Published lessons added later do not change the snapshot.
	e.lesson(t, content.LessonInput{Title: "four"}, models.StatePublished)

	p, err := e.svc.ComputeProgress(ctx, e.student, e.student.ID, e.course)
	require.NoError(t, err)
	assert.False(t, p.Active)
	assert.InDelta(t, 100.0/3, p.Percentage, 1e-9)

	en, err := e.store.Enrollment(ctx, e.student.ID, e.course)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, en.Progress, 1e-9)

	// A second unassign keeps the first snapshot.
	require.NoError(t, enrollments.Unassign(ctx, admin, e.student.ID, e.course))
	en, err = e.store.Enrollment(ctx, e.student.ID, e.course)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, en.Progress, 1e-9)
}

func TestStudentDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l1 := e.lesson(t, content.LessonInput{Title: "one"}, models.StatePublished)
	e.lesson(t, content.LessonInput{Title: "two"}, models.StatePublished)
	e.enroll(t)
	_, err := e.svc.MarkComplete(ctx, e.student, e.student.ID, e.course, l1.ID)
	require.NoError(t, err)

	other := models.Course{ID: uuid.New(), Title: "Rust"}
	require.NoError(t, e.store.CreateCourse(ctx, other))
	_, err = e.store.ActivateEnrollment(ctx, e.student.ID, other.ID)
	require.NoError(t, err)
	require.NoError(t, e.store.DeactivateEnrollment(ctx, e.student.ID, other.ID, 0))

	dash, err := e.svc.StudentDashboard(ctx, e.student, e.student.ID)
	require.NoError(t, err)
	require.Len(t, dash, 1)
	assert.Equal(t, e.course, dash[0].Course.ID)
	assert.Equal(t, 50.0, dash[0].Progress.Percentage)
	assert.Equal(t, 2, dash[0].Progress.TotalLessons)
}

func TestOpenLesson(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.lesson(t, content.LessonInput{Title: "first"}, models.StatePublished)
	second := e.lesson(t, content.LessonInput{Title: "second", Prerequisites: []uuid.UUID{first.ID}}, models.StatePublished)

	_, err := e.svc.OpenLesson(ctx, e.student, e.course, first.ID)
	assert.ErrorIs(t, err, app_errors.ErrNotEnrolled)

	e.enroll(t)
	nav, err := e.svc.OpenLesson(ctx, e.student, e.course, first.ID)
	require.NoError(t, err)
	require.NotNil(t, nav.Next)
	assert.Equal(t, second.ID, *nav.Next)

	_, err = e.svc.OpenLesson(ctx, e.student, e.course, second.ID)
	assert.ErrorIs(t, err, app_errors.ErrPrerequisitesIncomplete)

	nav, err = e.svc.OpenLesson(ctx, admin, e.course, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, nav.Position)
}

func TestCoursePath(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.lesson(t, content.LessonInput{Title: "first"}, models.StatePublished)
	e.lesson(t, content.LessonInput{Title: "draft"}, models.StateDraft)
	third := e.lesson(t, content.LessonInput{Title: "third"}, models.StatePublished)

	_, err := e.svc.CoursePath(ctx, e.student, e.course)
	assert.ErrorIs(t, err, app_errors.ErrNotEnrolled)

	e.enroll(t)
	path, err := e.svc.CoursePath(ctx, e.student, e.course)
	require.NoError(t, err)
	require.Len(t, path, 2)
	assert.Equal(t, first.ID, path[0].ID)
	assert.Equal(t, third.ID, path[1].ID)
}

package course

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"EduHub/internal/service/content"
	"EduHub/internal/storage/memory"
	"EduHub/pkg/logger"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = models.Actor{ID: uuid.New(), Role: models.AdminRole}

type env struct {
	svc     *CourseService
	content *content.HierarchyService
	store   *memory.Store
	search  *memory.SearchIndex
	objects *memory.ObjectStore
	student models.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	search := memory.NewSearchIndex()
	objects := memory.NewObjectStore()
	hier := content.NewHierarchyService(logger.NewNop(), store, store, store, objects, objects, time.Second)
	svc := NewCourseService(logger.NewNop(), store, search, hier, store, store, time.Second)

	st := models.Profile{ID: uuid.New(), Name: "Ann", Email: "ann@example.com", Role: models.StudentRole, IsActive: true}
	require.NoError(t, store.CreateProfile(context.Background(), st))
	return &env{svc: svc, content: hier, store: store, search: search, objects: objects, student: models.Actor{ID: st.ID, Role: models.StudentRole}}
}

func body(s string) *string { return &s }

// course builds one section with one module holding a published, a draft
// and a second published lesson.
func (e *env) course(t *testing.T, title string) (models.Course, []models.Lesson) {
	t.Helper()
	ctx := context.Background()
	c, err := e.svc.CreateCourse(ctx, admin, CourseInput{Title: title, Description: "learn " + title})
	require.NoError(t, err)
	sec, err := e.content.CreateSection(ctx, admin, c.ID, content.NodeInput{Title: "S"})
	require.NoError(t, err)
	ch, err := e.content.CreateChapter(ctx, admin, sec.ID, content.NodeInput{Title: "C"})
	require.NoError(t, err)
	m, err := e.content.CreateModule(ctx, admin, ch.ID, content.NodeInput{Title: "M"})
	require.NoError(t, err)

	var lessons []models.Lesson
	for _, tc := range []struct {
		title string
		state models.PublicationState
	}{{"one", models.StatePublished}, {"draft", models.StateDraft}, {"two", models.StatePublished}} {
		l, err := e.content.CreateLesson(ctx, admin, m.ID, content.LessonInput{Title: tc.title, ContentType: models.ContentTypeText, Body: body("x")})
		require.NoError(t, err)
		if tc.state != models.StateDraft {
			l, err = e.content.SetPublicationState(ctx, admin, l.ID, tc.state)
			require.NoError(t, err)
		}
		lessons = append(lessons, *l)
	}
	return *c, lessons
}

func TestCreateCourseValidates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreateCourse(ctx, admin, CourseInput{Title: "   "})
	assert.ErrorIs(t, err, app_errors.ErrValidation)
	_, err = e.svc.CreateCourse(ctx, e.student, CourseInput{Title: "Go"})
	assert.ErrorIs(t, err, app_errors.ErrForbidden)
}

func TestPreviewCountsPublishedLessons(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c, lessons := e.course(t, "Go")

	list, err := e.svc.CoursesPreview(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].TotalLessons)
	assert.Nil(t, list[0].CompletionRate)

	list, err = e.svc.CoursesPreview(ctx, e.student)
	require.NoError(t, err)
	assert.Empty(t, list, "not enrolled yet")

	_, err = e.store.ActivateEnrollment(ctx, e.student.ID, c.ID)
	require.NoError(t, err)
	require.NoError(t, e.store.RecordCompletion(ctx, models.LessonCompletion{StudentID: e.student.ID, LessonID: lessons[0].ID, CompletedAt: time.Now()}, c.ID, uuid.Nil, 0))

	p, err := e.svc.CourseByID(ctx, e.student, c.ID)
	require.NoError(t, err)
	require.NotNil(t, p.CompletionRate)
	assert.Equal(t, 50.0, *p.CompletionRate)
}

func TestOutlineByAudience(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c, lessons := e.course(t, "Go")

	out, err := e.svc.Outline(ctx, admin, c.ID)
	require.NoError(t, err)
	require.Len(t, out.Sections, 1)
	assert.Len(t, out.Sections[0].Chapters[0].Modules[0].Lessons, 3)
	assert.Equal(t, 2, out.TotalLessons)

	_, err = e.svc.Outline(ctx, e.student, c.ID)
	assert.ErrorIs(t, err, app_errors.ErrNotEnrolled)

	_, err = e.store.ActivateEnrollment(ctx, e.student.ID, c.ID)
	require.NoError(t, err)
	require.NoError(t, e.store.RecordCompletion(ctx, models.LessonCompletion{StudentID: e.student.ID, LessonID: lessons[0].ID, CompletedAt: time.Now()}, c.ID, uuid.Nil, 0))

	out, err = e.svc.Outline(ctx, e.student, c.ID)
	require.NoError(t, err)
	got := out.Sections[0].Chapters[0].Modules[0].Lessons
	require.Len(t, got, 2)
	assert.Equal(t, lessons[0].ID, got[0].Lesson.ID)
	assert.True(t, got[0].Completed)
	assert.Equal(t, lessons[2].ID, got[1].Lesson.ID)
	assert.False(t, got[1].Completed)
	require.NotNil(t, out.CompletionRate)
	assert.Equal(t, 50.0, *out.CompletionRate)
	assert.NotNil(t, out.Sections[0].Resources)
}

func TestOutlineIncludesResources(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c, _ := e.course(t, "Go")
	out, err := e.svc.Outline(ctx, admin, c.ID)
	require.NoError(t, err)
	sectionID := out.Sections[0].ID

	_, err = e.content.AddLinkResource(ctx, admin, sectionID, content.ResourceInput{Title: "Docs", URL: "https://go.dev/doc"})
	require.NoError(t, err)
	data := []byte("pdf")
	_, err = e.content.AddFileResource(ctx, admin, sectionID, "Slides", content.Upload{FileName: "s.pdf", ContentType: "application/pdf", Size: int64(len(data)), Reader: bytes.NewReader(data)})
	require.NoError(t, err)

	out, err = e.svc.Outline(ctx, admin, c.ID)
	require.NoError(t, err)
	res := out.Sections[0].Resources
	require.Len(t, res, 2)
	assert.Equal(t, "https://go.dev/doc", res[0].URL)
	assert.Contains(t, res[1].URL, "mem://")
}

func TestUpdateCourseRefreshesViewAndIndex(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c, _ := e.course(t, "Go")

	_, err := e.svc.UpdateCourse(ctx, admin, c.ID, CourseInput{Title: "Rust", Description: "ownership"})
	require.NoError(t, err)

	out, err := e.svc.Outline(ctx, admin, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rust", out.Title)

	found, total, err := e.svc.SearchCoursesPreview(ctx, admin, "ownership", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, found, 1)
	assert.Equal(t, c.ID, found[0].ID)

	_, err = e.svc.UpdateCourse(ctx, admin, uuid.New(), CourseInput{Title: "x"})
	assert.ErrorIs(t, err, app_errors.ErrNotFound)
}

func TestDeleteCourseCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c, lessons := e.course(t, "Go")

	data := []byte("video")
	nav, err := e.content.UploadLessonVideo(ctx, admin, lessons[0].ID, content.Upload{FileName: "v.mp4", ContentType: "video/mp4", Size: int64(len(data)), Reader: bytes.NewReader(data)})
	require.NoError(t, err)
	_, _, video := models.ContentFields(nav.Lesson.Content)
	require.True(t, e.objects.Has(video.ObjectKey))

	require.NoError(t, e.svc.DeleteCourse(ctx, admin, c.ID))

	_, err = e.svc.Outline(ctx, admin, c.ID)
	assert.ErrorIs(t, err, app_errors.ErrNotFound)
	assert.False(t, e.objects.Has(video.ObjectKey))

	found, _, err := e.svc.SearchCoursesPreview(ctx, admin, "Go", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, found)

	assert.ErrorIs(t, e.svc.DeleteCourse(ctx, admin, c.ID), app_errors.ErrNotFound)
}

func TestSearchForStudents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	goCourse, _ := e.course(t, "Go basics")
	e.course(t, "Go advanced")

	_, err := e.store.ActivateEnrollment(ctx, e.student.ID, goCourse.ID)
	require.NoError(t, err)

	found, total, err := e.svc.SearchCoursesPreview(ctx, e.student, "go", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, found, 1)
	assert.Equal(t, goCourse.ID, found[0].ID)

	found, total, err = e.svc.SearchCoursesPreview(ctx, admin, "go", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, found, 1)
}

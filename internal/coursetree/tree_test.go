package coursetree

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	tree    *Tree
	course  uuid.UUID
	section uuid.UUID
	chapter uuid.UUID
	module  uuid.UUID
	l1, l2  uuid.UUID
}

func text(body string) models.LessonContent { return models.TextContent{Body: body} }

// newFixture builds course → section → chapter → module → [l1, l2].
func newFixture(t *testing.T, l2State models.PublicationState) fixture {
	t.Helper()
	f := fixture{
		course:  uuid.New(),
		section: uuid.New(),
		chapter: uuid.New(),
		module:  uuid.New(),
		l1:      uuid.New(),
		l2:      uuid.New(),
	}
	tree, err := Build(
		models.Course{ID: f.course, Title: "Go"},
		[]models.Section{{ID: f.section, CourseID: f.course, Title: "Basics", Order: 1}},
		[]models.Chapter{{ID: f.chapter, SectionID: f.section, Title: "Types", Order: 1}},
		[]models.Module{{ID: f.module, ChapterID: f.chapter, Title: "Ints", Order: 1}},
		[]models.Lesson{
			{ID: f.l2, ModuleID: f.module, Title: "L2", Order: 2, Content: text("b"), State: l2State},
			{ID: f.l1, ModuleID: f.module, Title: "L1", Order: 1, Content: text("a"), State: models.StatePublished},
		},
	)
	require.NoError(t, err)
	f.tree = tree
	return f
}

func ids(lessons []models.Lesson) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, l.ID)
	}
	return out
}

func TestBuildOrdersSiblings(t *testing.T) {
	f := newFixture(t, models.StatePublished)
	assert.Equal(t, []uuid.UUID{f.l1, f.l2}, f.tree.Children(f.module))
	assert.Equal(t, 3, f.tree.NextOrder(f.module))
	assert.Equal(t, 1, f.tree.NextOrder(uuid.New()))
}

func TestBuildRejectsBrokenRows(t *testing.T) {
	course := models.Course{ID: uuid.New()}
	section := models.Section{ID: uuid.New(), CourseID: course.ID, Order: 1}

	_, err := Build(course, []models.Section{section, {ID: uuid.New(), CourseID: course.ID, Order: 1}}, nil, nil, nil)
	assert.ErrorIs(t, err, app_errors.ErrDuplicateOrder)

	_, err = Build(course, nil, []models.Chapter{{ID: uuid.New(), SectionID: uuid.New(), Order: 1}}, nil, nil)
	assert.ErrorIs(t, err, app_errors.ErrSectionNotFound)

	_, err = Build(course, []models.Section{section}, nil, []models.Module{{ID: uuid.New(), ChapterID: section.ID, Order: 1}}, nil)
	assert.ErrorIs(t, err, app_errors.ErrValidation)
}

func TestPublishedLeavesSkipsDraftAndHidden(t *testing.T) {
	for _, state := range []models.PublicationState{models.StateDraft, models.StateHidden} {
		t.Run(string(state), func(t *testing.T) {
			f := newFixture(t, state)
			assert.Equal(t, []uuid.UUID{f.l1}, ids(f.tree.PublishedLeaves()))
			assert.Equal(t, 1, f.tree.PublishedCount())
			assert.Len(t, f.tree.Leaves(), 2)
		})
	}
}

func TestPublishedLeavesFollowTreeOrder(t *testing.T) {
	f := newFixture(t, models.StatePublished)
	s2 := models.Section{ID: uuid.New(), CourseID: f.course, Title: "Advanced", Order: f.tree.NextOrder(f.course)}
	c2 := models.Chapter{ID: uuid.New(), SectionID: s2.ID, Title: "Generics", Order: 1}
	m2 := models.Module{ID: uuid.New(), ChapterID: c2.ID, Title: "Constraints", Order: 1}
	l3 := models.Lesson{ID: uuid.New(), ModuleID: m2.ID, Title: "L3", Order: 1, Content: text("c"), State: models.StatePublished}
	require.NoError(t, f.tree.AddSection(s2))
	require.NoError(t, f.tree.AddChapter(c2))
	require.NoError(t, f.tree.AddModule(m2))
	require.NoError(t, f.tree.AddLesson(l3))

	assert.Equal(t, []uuid.UUID{f.l1, f.l2, l3.ID}, ids(f.tree.PublishedLeaves()))

	_, err := f.tree.Reorder(f.course, []uuid.UUID{s2.ID, f.section})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{l3.ID, f.l1, f.l2}, ids(f.tree.PublishedLeaves()))
}

func TestReorder(t *testing.T) {
	f := newFixture(t, models.StatePublished)

	prev, err := f.tree.Reorder(f.module, []uuid.UUID{f.l2, f.l1})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.l1, f.l2}, prev)
	assert.Equal(t, []uuid.UUID{f.l2, f.l1}, f.tree.Children(f.module))
	l2, _ := f.tree.Lesson(f.l2)
	assert.Equal(t, 1, l2.Order)

	tests := []struct {
		name string
		ids  []uuid.UUID
	}{
		{name: "missing id", ids: []uuid.UUID{f.l1}},
		{name: "injected id", ids: []uuid.UUID{f.l1, f.l2, uuid.New()}},
		{name: "foreign id", ids: []uuid.UUID{f.l1, uuid.New()}},
		{name: "duplicate id", ids: []uuid.UUID{f.l1, f.l1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tree.Reorder(f.module, tt.ids)
			assert.ErrorIs(t, err, app_errors.ErrConflict)
			assert.Equal(t, []uuid.UUID{f.l2, f.l1}, f.tree.Children(f.module))
		})
	}
}

func TestRemoveCascadesAndRestores(t *testing.T) {
	f := newFixture(t, models.StatePublished)

	d, err := f.tree.Remove(models.NodeRef{Kind: models.KindSection, ID: f.section})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.l1, f.l2}, d.LessonIDs())
	assert.Empty(t, f.tree.PublishedLeaves())
	for _, id := range []uuid.UUID{f.section, f.chapter, f.module, f.l1, f.l2} {
		_, ok := f.tree.Kind(id)
		assert.False(t, ok)
	}

	require.NoError(t, f.tree.Restore(d))
	assert.Equal(t, []uuid.UUID{f.l1, f.l2}, ids(f.tree.PublishedLeaves()))
}

func TestRemoveStripsPrerequisites(t *testing.T) {
	f := newFixture(t, models.StatePublished)
	l3 := models.Lesson{ID: uuid.New(), ModuleID: f.module, Title: "L3", Order: 3, Content: text("c"),
		State: models.StatePublished, Prerequisites: []uuid.UUID{f.l1, f.l2}}
	require.NoError(t, f.tree.AddLesson(l3))

	d, err := f.tree.Remove(models.NodeRef{Kind: models.KindLesson, ID: f.l1})
	require.NoError(t, err)
	got, _ := f.tree.Lesson(l3.ID)
	assert.Equal(t, []uuid.UUID{f.l2}, got.Prerequisites)

	require.NoError(t, f.tree.Restore(d))
	got, _ = f.tree.Lesson(l3.ID)
	assert.Equal(t, []uuid.UUID{f.l1, f.l2}, got.Prerequisites)
}

func TestRemoveErrors(t *testing.T) {
	f := newFixture(t, models.StatePublished)

	_, err := f.tree.Remove(models.NodeRef{Kind: models.KindModule, ID: uuid.New()})
	assert.ErrorIs(t, err, app_errors.ErrModuleNotFound)

	_, err = f.tree.Remove(models.NodeRef{Kind: models.KindChapter, ID: f.module})
	assert.ErrorIs(t, err, app_errors.ErrNotFound)

	_, err = f.tree.Remove(models.NodeRef{Kind: models.KindCourse, ID: f.course})
	assert.ErrorIs(t, err, app_errors.ErrValidation)
}

func TestSetState(t *testing.T) {
	f := newFixture(t, models.StatePublished)

	prev, err := f.tree.SetState(f.l2, models.StateHidden)
	require.NoError(t, err)
	assert.Equal(t, models.StatePublished, prev)
	assert.Equal(t, []uuid.UUID{f.l1}, ids(f.tree.PublishedLeaves()))

	_, err = f.tree.SetState(f.l2, "archived")
	assert.ErrorIs(t, err, app_errors.ErrValidation)
	_, err = f.tree.SetState(uuid.New(), models.StateDraft)
	assert.ErrorIs(t, err, app_errors.ErrLessonNotFound)
}

func TestNavigate(t *testing.T) {
	f := newFixture(t, models.StatePublished)

	nav, err := f.tree.Navigate(f.l1)
	require.NoError(t, err)
	assert.Nil(t, nav.Previous)
	require.NotNil(t, nav.Next)
	assert.Equal(t, f.l2, *nav.Next)
	assert.Equal(t, 1, nav.Position)
	assert.Equal(t, 2, nav.Total)

	_, err = f.tree.SetState(f.l2, models.StateDraft)
	require.NoError(t, err)
	_, err = f.tree.Navigate(f.l2)
	assert.ErrorIs(t, err, app_errors.ErrLessonNotFound)
}

func TestOutlineMarksCompletionAndLocks(t *testing.T) {
	f := newFixture(t, models.StatePublished)
	l2, _ := f.tree.Lesson(f.l2)
	l2.Prerequisites = []uuid.UUID{f.l1}
	_, err := f.tree.UpdateLesson(l2)
	require.NoError(t, err)

	published := func(l models.Lesson) bool { return l.State == models.StatePublished }
	out := f.tree.Outline(published, nil, time.Now())
	lessons := out.Sections[0].Chapters[0].Modules[0].Lessons
	require.Len(t, lessons, 2)
	assert.False(t, lessons[0].Locked)
	assert.True(t, lessons[1].Locked)
	assert.Equal(t, 2, out.TotalLessons)

	out = f.tree.Outline(published, map[uuid.UUID]bool{f.l1: true}, time.Now())
	lessons = out.Sections[0].Chapters[0].Modules[0].Lessons
	assert.True(t, lessons[0].Completed)
	assert.False(t, lessons[1].Locked)
}

func TestPrerequisitesMetIgnoresUnpublished(t *testing.T) {
	f := newFixture(t, models.StatePublished)
	l2, _ := f.tree.Lesson(f.l2)
	l2.Prerequisites = []uuid.UUID{f.l1, uuid.New()}
	_, err := f.tree.UpdateLesson(l2)
	require.NoError(t, err)
	l2, _ = f.tree.Lesson(f.l2)

	assert.False(t, f.tree.PrerequisitesMet(l2, nil))
	assert.True(t, f.tree.PrerequisitesMet(l2, map[uuid.UUID]bool{f.l1: true}))

	_, err = f.tree.SetState(f.l1, models.StateHidden)
	require.NoError(t, err)
	assert.True(t, f.tree.PrerequisitesMet(l2, nil))

	out := f.tree.Outline(nil, nil, time.Now())
	lessons := out.Sections[0].Chapters[0].Modules[0].Lessons
	require.Len(t, lessons, 2)
	assert.False(t, lessons[1].Locked)
}

func TestCountCompletedIgnoresUnpublished(t *testing.T) {
	f := newFixture(t, models.StateDraft)
	done, total := f.tree.CountCompleted(map[uuid.UUID]bool{f.l1: true, f.l2: true})
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, total)
}

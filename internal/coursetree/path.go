package coursetree

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"time"

	"github.com/google/uuid"
)

// Walk calls fn for every lesson in tree order: section order, then chapter
// order, then module order, then lesson order. Walk stops when fn returns
// false.
func (t *Tree) Walk(fn func(l models.Lesson) bool) {
	for _, sid := range t.children[t.course.ID] {
		for _, cid := range t.children[sid] {
			for _, mid := range t.children[cid] {
				for _, lid := range t.children[mid] {
					l, _ := t.Lesson(lid)
					if !fn(l) {
						return
					}
				}
			}
		}
	}
}

// PublishedLeaves is the linear course path: every published lesson in tree
// order. Draft and hidden lessons never appear in it.
func (t *Tree) PublishedLeaves() []models.Lesson {
	var out []models.Lesson
	t.Walk(func(l models.Lesson) bool {
		if l.State == models.StatePublished {
			out = append(out, l)
		}
		return true
	})
	return out
}

// Leaves returns every lesson in tree order regardless of state.
func (t *Tree) Leaves() []models.Lesson {
	var out []models.Lesson
	t.Walk(func(l models.Lesson) bool {
		out = append(out, l)
		return true
	})
	return out
}

// PublishedCount is len(PublishedLeaves()) without building the slice.
func (t *Tree) PublishedCount() int {
	n := 0
	t.Walk(func(l models.Lesson) bool {
		if l.State == models.StatePublished {
			n++
		}
		return true
	})
	return n
}

// Navigate locates a published lesson on the linear course path.
func (t *Tree) Navigate(lessonID uuid.UUID) (models.LessonNavigation, error) {
	path := t.PublishedLeaves()
	for i, l := range path {
		if l.ID != lessonID {
			continue
		}
		nav := models.LessonNavigation{Lesson: l, Position: i + 1, Total: len(path)}
		if i > 0 {
			prev := path[i-1].ID
			nav.Previous = &prev
		}
		if i < len(path)-1 {
			next := path[i+1].ID
			nav.Next = &next
		}
		return nav, nil
	}
	return models.LessonNavigation{}, app_errors.ErrLessonNotFound
}

// Outline renders the nested course structure. include decides which
// lessons appear; completed marks lessons finished by the viewer; a lesson
// is locked when it is not released at now or has an incomplete
// prerequisite.
func (t *Tree) Outline(include func(models.Lesson) bool, completed map[uuid.UUID]bool, now time.Time) models.CourseOutline {
	out := models.CourseOutline{
		Course:       t.course,
		TotalLessons: t.PublishedCount(),
		Sections:     make([]models.SectionOutline, 0, len(t.children[t.course.ID])),
	}
	for _, s := range t.Sections() {
		so := models.SectionOutline{Section: s, Chapters: []models.ChapterOutline{}}
		for _, c := range t.Chapters(s.ID) {
			co := models.ChapterOutline{Chapter: c, Modules: []models.ModuleOutline{}}
			for _, m := range t.Modules(c.ID) {
				mo := models.ModuleOutline{Module: m, Lessons: []models.LessonOutline{}}
				for _, l := range t.Lessons(m.ID) {
					if include != nil && !include(l) {
						continue
					}
					mo.Lessons = append(mo.Lessons, models.LessonOutline{
						Lesson:    l,
						Completed: completed[l.ID],
						Locked:    !l.Released(now) || !t.PrerequisitesMet(l, completed),
					})
				}
				co.Modules = append(co.Modules, mo)
			}
			so.Chapters = append(so.Chapters, co)
		}
		out.Sections = append(out.Sections, so)
	}
	return out
}

// PrerequisitesMet reports whether every prerequisite of l is in completed.
// Prerequisites that are no longer published lessons of the course are
// ignored.
func (t *Tree) PrerequisitesMet(l models.Lesson, completed map[uuid.UUID]bool) bool {
	for _, p := range l.Prerequisites {
		pl, ok := t.lessons[p]
		if !ok || pl.State != models.StatePublished {
			continue
		}
		if !completed[p] {
			return false
		}
	}
	return true
}

// CountCompleted returns how many published lessons are in completed.
func (t *Tree) CountCompleted(completed map[uuid.UUID]bool) (done, total int) {
	t.Walk(func(l models.Lesson) bool {
		if l.State != models.StatePublished {
			return true
		}
		total++
		if completed[l.ID] {
			done++
		}
		return true
	})
	return done, total
}

package coursetree

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"slices"

	"github.com/google/uuid"
)

// Detached is a subtree cut out of a Tree by Remove. Entities are listed
// parents first so Restore can reattach them in slice order. Prerequisites
// holds the previous prerequisite lists of remaining lessons that pointed
// into the subtree.
type Detached struct {
	Root          models.NodeRef
	Sections      []models.Section
	Chapters      []models.Chapter
	Modules       []models.Module
	Lessons       []models.Lesson
	Prerequisites map[uuid.UUID][]uuid.UUID
}

// LessonIDs returns the ids of every lesson in the detached subtree.
func (d *Detached) LessonIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d.Lessons))
	for _, l := range d.Lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

// SectionIDs returns the ids of every section in the detached subtree.
func (d *Detached) SectionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d.Sections))
	for _, s := range d.Sections {
		ids = append(ids, s.ID)
	}
	return ids
}

// Remove cuts the node named by ref and all of its descendants out of the
// tree and drops the removed lessons from the prerequisites of the lessons
// that stay. The course root itself cannot be removed.
func (t *Tree) Remove(ref models.NodeRef) (*Detached, error) {
	if ref.Kind == models.KindCourse {
		return nil, app_errors.Validation("the course root cannot be removed from its tree")
	}
	if !t.Contains(ref) {
		return nil, notFound(ref.Kind)
	}

	d := &Detached{Root: ref}
	t.collect(ref.ID, d)

	parentID := t.parent[ref.ID]
	t.children[parentID] = slices.DeleteFunc(t.children[parentID], func(id uuid.UUID) bool {
		return id == ref.ID
	})
	t.drop(ref.ID)
	d.Prerequisites = t.stripPrerequisites(d.LessonIDs())
	return d, nil
}

func (t *Tree) stripPrerequisites(removed []uuid.UUID) map[uuid.UUID][]uuid.UUID {
	prev := make(map[uuid.UUID][]uuid.UUID)
	if len(removed) == 0 {
		return prev
	}
	for id, l := range t.lessons {
		kept := slices.DeleteFunc(slices.Clone(l.Prerequisites), func(p uuid.UUID) bool {
			return slices.Contains(removed, p)
		})
		if len(kept) != len(l.Prerequisites) {
			prev[id] = l.Prerequisites
			l.Prerequisites = kept
		}
	}
	return prev
}

func (t *Tree) collect(id uuid.UUID, d *Detached) {
	switch t.kinds[id] {
	case models.KindSection:
		d.Sections = append(d.Sections, *t.sections[id])
	case models.KindChapter:
		d.Chapters = append(d.Chapters, *t.chapters[id])
	case models.KindModule:
		d.Modules = append(d.Modules, *t.modules[id])
	case models.KindLesson:
		l, _ := t.Lesson(id)
		d.Lessons = append(d.Lessons, l)
	}
	for _, child := range t.children[id] {
		t.collect(child, d)
	}
}

func (t *Tree) drop(id uuid.UUID) {
	for _, child := range t.children[id] {
		t.drop(child)
	}
	switch t.kinds[id] {
	case models.KindSection:
		delete(t.sections, id)
	case models.KindChapter:
		delete(t.chapters, id)
	case models.KindModule:
		delete(t.modules, id)
	case models.KindLesson:
		delete(t.lessons, id)
	}
	delete(t.children, id)
	delete(t.parent, id)
	delete(t.kinds, id)
}

// Restore reattaches a subtree previously returned by Remove.
func (t *Tree) Restore(d *Detached) error {
	for _, s := range d.Sections {
		if err := t.AddSection(s); err != nil {
			return err
		}
	}
	for _, c := range d.Chapters {
		if err := t.AddChapter(c); err != nil {
			return err
		}
	}
	for _, m := range d.Modules {
		if err := t.AddModule(m); err != nil {
			return err
		}
	}
	for _, l := range d.Lessons {
		if err := t.AddLesson(l); err != nil {
			return err
		}
	}
	for id, prereqs := range d.Prerequisites {
		if l, ok := t.lessons[id]; ok {
			l.Prerequisites = prereqs
		}
	}
	return nil
}

// Package coursetree holds the in-memory course hierarchy
// (course → section → chapter → module → lesson) as flat tables keyed by id
// with parent back references and ordered child lists. Child lookup, reorder
// and cascade removal cost O(children) of the touched node.
//
// A Tree is not safe for concurrent use.
package coursetree

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

type Tree struct {
	course   models.Course
	sections map[uuid.UUID]*models.Section
	chapters map[uuid.UUID]*models.Chapter
	modules  map[uuid.UUID]*models.Module
	lessons  map[uuid.UUID]*models.Lesson

	kinds    map[uuid.UUID]models.NodeKind
	parent   map[uuid.UUID]uuid.UUID
	children map[uuid.UUID][]uuid.UUID
}

func New(course models.Course) *Tree {
	return &Tree{
		course:   course,
		sections: make(map[uuid.UUID]*models.Section),
		chapters: make(map[uuid.UUID]*models.Chapter),
		modules:  make(map[uuid.UUID]*models.Module),
		lessons:  make(map[uuid.UUID]*models.Lesson),
		kinds:    map[uuid.UUID]models.NodeKind{course.ID: models.KindCourse},
		parent:   make(map[uuid.UUID]uuid.UUID),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Build assembles a tree from flat store rows. Rows may come in any order;
// a row whose parent is unknown or whose order index collides with a
// sibling is rejected.
func Build(course models.Course, sections []models.Section, chapters []models.Chapter, modules []models.Module, lessons []models.Lesson) (*Tree, error) {
	t := New(course)
	for _, s := range sections {
		if err := t.AddSection(s); err != nil {
			return nil, fmt.Errorf("section %s: %w", s.ID, err)
		}
	}
	for _, c := range chapters {
		if err := t.AddChapter(c); err != nil {
			return nil, fmt.Errorf("chapter %s: %w", c.ID, err)
		}
	}
	for _, m := range modules {
		if err := t.AddModule(m); err != nil {
			return nil, fmt.Errorf("module %s: %w", m.ID, err)
		}
	}
	for _, l := range lessons {
		if err := t.AddLesson(l); err != nil {
			return nil, fmt.Errorf("lesson %s: %w", l.ID, err)
		}
	}
	return t, nil
}

func (t *Tree) Course() models.Course { return t.course }

func (t *Tree) SetCourse(c models.Course) {
	c.ID = t.course.ID
	t.course = c
}

func (t *Tree) Kind(id uuid.UUID) (models.NodeKind, bool) {
	k, ok := t.kinds[id]
	return k, ok
}

// Contains reports whether ref names a node of this tree with the same kind.
func (t *Tree) Contains(ref models.NodeRef) bool {
	k, ok := t.kinds[ref.ID]
	return ok && k == ref.Kind
}

// Parent returns the parent id of a non-course node.
func (t *Tree) Parent(id uuid.UUID) (uuid.UUID, bool) {
	p, ok := t.parent[id]
	return p, ok
}

// Children returns the ids of the immediate children of id in order.
func (t *Tree) Children(id uuid.UUID) []uuid.UUID {
	return slices.Clone(t.children[id])
}

// NextOrder is the order index a new last child of parentID gets.
func (t *Tree) NextOrder(parentID uuid.UUID) int {
	max := 0
	for _, id := range t.children[parentID] {
		if o := t.order(id); o > max {
			max = o
		}
	}
	return max + 1
}

func (t *Tree) AddSection(s models.Section) error {
	if err := t.attach(models.KindSection, s.ID, s.CourseID, s.Order); err != nil {
		return err
	}
	t.sections[s.ID] = &s
	return nil
}

func (t *Tree) AddChapter(c models.Chapter) error {
	if err := t.attach(models.KindChapter, c.ID, c.SectionID, c.Order); err != nil {
		return err
	}
	t.chapters[c.ID] = &c
	return nil
}

func (t *Tree) AddModule(m models.Module) error {
	if err := t.attach(models.KindModule, m.ID, m.ChapterID, m.Order); err != nil {
		return err
	}
	t.modules[m.ID] = &m
	return nil
}

func (t *Tree) AddLesson(l models.Lesson) error {
	if err := t.attach(models.KindLesson, l.ID, l.ModuleID, l.Order); err != nil {
		return err
	}
	l.Prerequisites = slices.Clone(l.Prerequisites)
	t.lessons[l.ID] = &l
	return nil
}

func (t *Tree) attach(kind models.NodeKind, id, parentID uuid.UUID, order int) error {
	if id == uuid.Nil {
		return app_errors.Validation("%s id is required", kind)
	}
	parentKind, ok := t.kinds[parentID]
	if !ok {
		return notFound(parentKindOf(kind))
	}
	if ck, _ := parentKind.ChildKind(); ck != kind {
		return app_errors.Validation("a %s cannot hold a %s", parentKind, kind)
	}
	if _, exists := t.kinds[id]; exists {
		return fmt.Errorf("%w: %s %s already exists", app_errors.ErrConflict, kind, id)
	}

	siblings := t.children[parentID]
	pos := len(siblings)
	for i, sid := range siblings {
		o := t.order(sid)
		if o == order {
			return app_errors.ErrDuplicateOrder
		}
		if o > order && pos == len(siblings) {
			pos = i
		}
	}
	t.children[parentID] = slices.Insert(siblings, pos, id)
	t.parent[id] = parentID
	t.kinds[id] = kind
	return nil
}

func (t *Tree) order(id uuid.UUID) int {
	switch t.kinds[id] {
	case models.KindSection:
		return t.sections[id].Order
	case models.KindChapter:
		return t.chapters[id].Order
	case models.KindModule:
		return t.modules[id].Order
	case models.KindLesson:
		return t.lessons[id].Order
	}
	return 0
}

func (t *Tree) setOrder(id uuid.UUID, order int) {
	switch t.kinds[id] {
	case models.KindSection:
		t.sections[id].Order = order
	case models.KindChapter:
		t.chapters[id].Order = order
	case models.KindModule:
		t.modules[id].Order = order
	case models.KindLesson:
		t.lessons[id].Order = order
	}
}

func (t *Tree) Section(id uuid.UUID) (models.Section, bool) {
	s, ok := t.sections[id]
	if !ok {
		return models.Section{}, false
	}
	return *s, true
}

func (t *Tree) Chapter(id uuid.UUID) (models.Chapter, bool) {
	c, ok := t.chapters[id]
	if !ok {
		return models.Chapter{}, false
	}
	return *c, true
}

func (t *Tree) Module(id uuid.UUID) (models.Module, bool) {
	m, ok := t.modules[id]
	if !ok {
		return models.Module{}, false
	}
	return *m, true
}

func (t *Tree) Lesson(id uuid.UUID) (models.Lesson, bool) {
	l, ok := t.lessons[id]
	if !ok {
		return models.Lesson{}, false
	}
	out := *l
	out.Prerequisites = slices.Clone(l.Prerequisites)
	return out, true
}

// Sections returns the sections of the course in order.
func (t *Tree) Sections() []models.Section {
	ids := t.children[t.course.ID]
	out := make([]models.Section, 0, len(ids))
	for _, id := range ids {
		out = append(out, *t.sections[id])
	}
	return out
}

func (t *Tree) Chapters(sectionID uuid.UUID) []models.Chapter {
	ids := t.children[sectionID]
	out := make([]models.Chapter, 0, len(ids))
	for _, id := range ids {
		out = append(out, *t.chapters[id])
	}
	return out
}

func (t *Tree) Modules(chapterID uuid.UUID) []models.Module {
	ids := t.children[chapterID]
	out := make([]models.Module, 0, len(ids))
	for _, id := range ids {
		out = append(out, *t.modules[id])
	}
	return out
}

func (t *Tree) Lessons(moduleID uuid.UUID) []models.Lesson {
	ids := t.children[moduleID]
	out := make([]models.Lesson, 0, len(ids))
	for _, id := range ids {
		l, _ := t.Lesson(id)
		out = append(out, l)
	}
	return out
}

// UpdateSection replaces title and description of a section and returns
// the previous value.
func (t *Tree) UpdateSection(s models.Section) (models.Section, error) {
	cur, ok := t.sections[s.ID]
	if !ok {
		return models.Section{}, app_errors.ErrSectionNotFound
	}
	prev := *cur
	cur.Title, cur.Description, cur.UpdatedAt = s.Title, s.Description, s.UpdatedAt
	return prev, nil
}

func (t *Tree) UpdateChapter(c models.Chapter) (models.Chapter, error) {
	cur, ok := t.chapters[c.ID]
	if !ok {
		return models.Chapter{}, app_errors.ErrChapterNotFound
	}
	prev := *cur
	cur.Title, cur.Description, cur.UpdatedAt = c.Title, c.Description, c.UpdatedAt
	return prev, nil
}

func (t *Tree) UpdateModule(m models.Module) (models.Module, error) {
	cur, ok := t.modules[m.ID]
	if !ok {
		return models.Module{}, app_errors.ErrModuleNotFound
	}
	prev := *cur
	cur.Title, cur.Description, cur.UpdatedAt = m.Title, m.Description, m.UpdatedAt
	return prev, nil
}

// UpdateLesson replaces everything but the position of a lesson and returns
// the previous value.
func (t *Tree) UpdateLesson(l models.Lesson) (models.Lesson, error) {
	cur, ok := t.lessons[l.ID]
	if !ok {
		return models.Lesson{}, app_errors.ErrLessonNotFound
	}
	prev := *cur
	l.ModuleID, l.Order, l.CreatedAt = cur.ModuleID, cur.Order, cur.CreatedAt
	l.Prerequisites = slices.Clone(l.Prerequisites)
	*cur = l
	return prev, nil
}

// SetState changes the publication state of a lesson and returns the
// previous one. Every transition is allowed.
func (t *Tree) SetState(lessonID uuid.UUID, state models.PublicationState) (models.PublicationState, error) {
	if !state.Valid() {
		return "", app_errors.Validation("unknown publication state %q", state)
	}
	l, ok := t.lessons[lessonID]
	if !ok {
		return "", app_errors.ErrLessonNotFound
	}
	prev := l.State
	l.State = state
	return prev, nil
}

// Reorder rewrites the order indices of the children of parentID so that
// iteration follows ids. ids must be exactly the current child set. The
// previous order is returned so the caller can undo.
func (t *Tree) Reorder(parentID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	if _, ok := t.kinds[parentID]; !ok {
		return nil, app_errors.ErrNotFound
	}
	current := t.children[parentID]
	if !samePermutation(current, ids) {
		return nil, app_errors.ErrReorderMismatch
	}
	prev := slices.Clone(current)
	for i, id := range ids {
		t.setOrder(id, i+1)
	}
	t.children[parentID] = slices.Clone(ids)
	return prev, nil
}

func samePermutation(current, ids []uuid.UUID) bool {
	if len(current) != len(ids) {
		return false
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
	}
	for _, id := range current {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}

func notFound(kind models.NodeKind) error {
	switch kind {
	case models.KindCourse:
		return app_errors.ErrCourseNotFound
	case models.KindSection:
		return app_errors.ErrSectionNotFound
	case models.KindChapter:
		return app_errors.ErrChapterNotFound
	case models.KindModule:
		return app_errors.ErrModuleNotFound
	case models.KindLesson:
		return app_errors.ErrLessonNotFound
	}
	return app_errors.ErrNotFound
}

func parentKindOf(kind models.NodeKind) models.NodeKind {
	switch kind {
	case models.KindSection:
		return models.KindCourse
	case models.KindChapter:
		return models.KindSection
	case models.KindModule:
		return models.KindChapter
	case models.KindLesson:
		return models.KindModule
	}
	return ""
}

// NotFound returns the not-found error for nodes of kind.
func NotFound(kind models.NodeKind) error { return notFound(kind) }

// Package memory implements the repositories on process memory. It backs
// local runs without PostgreSQL and the service tests.
package memory

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/coursetree"
	"EduHub/internal/models"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type enrollmentKey struct {
	student, course uuid.UUID
}

type completionKey struct {
	student, lesson uuid.UUID
}

type completion struct {
	courseID    uuid.UUID
	completedAt time.Time
}

type refreshKey struct {
	user uuid.UUID
	hash string
}

type Store struct {
	mu sync.RWMutex

	courses   map[uuid.UUID]models.Course
	sections  map[uuid.UUID]models.Section
	chapters  map[uuid.UUID]models.Chapter
	modules   map[uuid.UUID]models.Module
	lessons   map[uuid.UUID]models.Lesson
	resources map[uuid.UUID]models.SectionResource

	enrollments map[enrollmentKey]models.Enrollment
	completions map[completionKey]completion

	profiles      map[uuid.UUID]models.Profile
	refreshTokens map[refreshKey]models.RefreshToken
	actionTokens  map[string]models.ActionToken
}

func NewStore() *Store {
	return &Store{
		courses:       make(map[uuid.UUID]models.Course),
		sections:      make(map[uuid.UUID]models.Section),
		chapters:      make(map[uuid.UUID]models.Chapter),
		modules:       make(map[uuid.UUID]models.Module),
		lessons:       make(map[uuid.UUID]models.Lesson),
		resources:     make(map[uuid.UUID]models.SectionResource),
		enrollments:   make(map[enrollmentKey]models.Enrollment),
		completions:   make(map[completionKey]completion),
		profiles:      make(map[uuid.UUID]models.Profile),
		refreshTokens: make(map[refreshKey]models.RefreshToken),
		actionTokens:  make(map[string]models.ActionToken),
	}
}

// courses

func (s *Store) CreateCourse(_ context.Context, c models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[c.ID]; ok {
		return app_errors.ErrConflict
	}
	s.courses[c.ID] = c
	return nil
}

func (s *Store) UpdateCourse(_ context.Context, c models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.courses[c.ID]
	if !ok {
		return app_errors.ErrCourseNotFound
	}
	cur.Title, cur.Description, cur.UpdatedAt = c.Title, c.Description, c.UpdatedAt
	s.courses[c.ID] = cur
	return nil
}

func (s *Store) DeleteCourse(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return app_errors.ErrCourseNotFound
	}
	for sid, sec := range s.sections {
		if sec.CourseID == id {
			s.deleteSection(sid)
		}
	}
	for k := range s.enrollments {
		if k.course == id {
			delete(s.enrollments, k)
		}
	}
	delete(s.courses, id)
	return nil
}

func (s *Store) CourseByID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, app_errors.ErrCourseNotFound
	}
	return &c, nil
}

func (s *Store) ListCourses(_ context.Context) ([]models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CoursesByIDs(_ context.Context, ids []uuid.UUID) ([]models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Course
	for _, id := range ids {
		if c, ok := s.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CourseContent(_ context.Context, courseID uuid.UUID) (*models.CourseContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[courseID]
	if !ok {
		return nil, app_errors.ErrCourseNotFound
	}
	content := &models.CourseContent{Course: c}
	for _, sec := range s.sections {
		if sec.CourseID == courseID {
			content.Sections = append(content.Sections, sec)
		}
	}
	for _, ch := range s.chapters {
		if s.courseOfSection(ch.SectionID) == courseID {
			content.Chapters = append(content.Chapters, ch)
		}
	}
	for _, m := range s.modules {
		if s.courseOfChapter(m.ChapterID) == courseID {
			content.Modules = append(content.Modules, m)
		}
	}
	for _, l := range s.lessons {
		if s.courseOfModule(l.ModuleID) == courseID {
			l.Prerequisites = slices.Clone(l.Prerequisites)
			content.Lessons = append(content.Lessons, l)
		}
	}
	return content, nil
}

func (s *Store) CourseIDOf(_ context.Context, ref models.NodeRef) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var id uuid.UUID
	switch ref.Kind {
	case models.KindCourse:
		if _, ok := s.courses[ref.ID]; ok {
			id = ref.ID
		}
	case models.KindSection:
		id = s.courseOfSection(ref.ID)
	case models.KindChapter:
		id = s.courseOfChapter(ref.ID)
	case models.KindModule:
		id = s.courseOfModule(ref.ID)
	case models.KindLesson:
		if l, ok := s.lessons[ref.ID]; ok {
			id = s.courseOfModule(l.ModuleID)
		}
	default:
		return uuid.Nil, app_errors.Validation("unknown node kind %q", ref.Kind)
	}
	if id == uuid.Nil {
		return uuid.Nil, coursetree.NotFound(ref.Kind)
	}
	return id, nil
}

func (s *Store) courseOfSection(id uuid.UUID) uuid.UUID {
	return s.sections[id].CourseID
}

func (s *Store) courseOfChapter(id uuid.UUID) uuid.UUID {
	ch, ok := s.chapters[id]
	if !ok {
		return uuid.Nil
	}
	return s.courseOfSection(ch.SectionID)
}

func (s *Store) courseOfModule(id uuid.UUID) uuid.UUID {
	m, ok := s.modules[id]
	if !ok {
		return uuid.Nil
	}
	return s.courseOfChapter(m.ChapterID)
}

// hierarchy

func (s *Store) CreateSection(_ context.Context, sec models.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[sec.CourseID]; !ok {
		return app_errors.ErrCourseNotFound
	}
	for _, o := range s.sections {
		if o.CourseID == sec.CourseID && o.Order == sec.Order {
			return app_errors.ErrDuplicateOrder
		}
	}
	s.sections[sec.ID] = sec
	return nil
}

func (s *Store) CreateChapter(_ context.Context, ch models.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sections[ch.SectionID]; !ok {
		return app_errors.ErrSectionNotFound
	}
	for _, o := range s.chapters {
		if o.SectionID == ch.SectionID && o.Order == ch.Order {
			return app_errors.ErrDuplicateOrder
		}
	}
	s.chapters[ch.ID] = ch
	return nil
}

func (s *Store) CreateModule(_ context.Context, m models.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chapters[m.ChapterID]; !ok {
		return app_errors.ErrChapterNotFound
	}
	for _, o := range s.modules {
		if o.ChapterID == m.ChapterID && o.Order == m.Order {
			return app_errors.ErrDuplicateOrder
		}
	}
	s.modules[m.ID] = m
	return nil
}

func (s *Store) CreateLesson(_ context.Context, l models.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[l.ModuleID]; !ok {
		return app_errors.ErrModuleNotFound
	}
	for _, o := range s.lessons {
		if o.ModuleID == l.ModuleID && o.Order == l.Order {
			return app_errors.ErrDuplicateOrder
		}
	}
	l.Prerequisites = slices.Clone(l.Prerequisites)
	s.lessons[l.ID] = l
	return nil
}

func (s *Store) UpdateSection(_ context.Context, sec models.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sections[sec.ID]
	if !ok {
		return app_errors.ErrSectionNotFound
	}
	cur.Title, cur.Description, cur.UpdatedAt = sec.Title, sec.Description, sec.UpdatedAt
	s.sections[sec.ID] = cur
	return nil
}

func (s *Store) UpdateChapter(_ context.Context, ch models.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.chapters[ch.ID]
	if !ok {
		return app_errors.ErrChapterNotFound
	}
	cur.Title, cur.Description, cur.UpdatedAt = ch.Title, ch.Description, ch.UpdatedAt
	s.chapters[ch.ID] = cur
	return nil
}

func (s *Store) UpdateModule(_ context.Context, m models.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.modules[m.ID]
	if !ok {
		return app_errors.ErrModuleNotFound
	}
	cur.Title, cur.Description, cur.UpdatedAt = m.Title, m.Description, m.UpdatedAt
	s.modules[m.ID] = cur
	return nil
}

func (s *Store) UpdateLesson(_ context.Context, l models.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.lessons[l.ID]
	if !ok {
		return app_errors.ErrLessonNotFound
	}
	l.ModuleID, l.Order, l.CreatedAt = cur.ModuleID, cur.Order, cur.CreatedAt
	l.Prerequisites = slices.Clone(l.Prerequisites)
	s.lessons[l.ID] = l
	return nil
}

func (s *Store) SetLessonState(_ context.Context, lessonID uuid.UUID, state models.PublicationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[lessonID]
	if !ok {
		return app_errors.ErrLessonNotFound
	}
	l.State = state
	l.UpdatedAt = time.Now().UTC()
	s.lessons[lessonID] = l
	return nil
}

func (s *Store) DeleteNode(_ context.Context, ref models.NodeRef, lessonIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found bool
	switch ref.Kind {
	case models.KindSection:
		_, found = s.sections[ref.ID]
		s.deleteSection(ref.ID)
	case models.KindChapter:
		_, found = s.chapters[ref.ID]
		s.deleteChapter(ref.ID)
	case models.KindModule:
		_, found = s.modules[ref.ID]
		s.deleteModule(ref.ID)
	case models.KindLesson:
		_, found = s.lessons[ref.ID]
		s.deleteLesson(ref.ID)
	default:
		return app_errors.Validation("cannot delete a %q node here", ref.Kind)
	}
	if !found {
		return coursetree.NotFound(ref.Kind)
	}
	for id, l := range s.lessons {
		kept := slices.DeleteFunc(slices.Clone(l.Prerequisites), func(p uuid.UUID) bool {
			return slices.Contains(lessonIDs, p)
		})
		if len(kept) != len(l.Prerequisites) {
			l.Prerequisites = kept
			s.lessons[id] = l
		}
	}
	return nil
}

func (s *Store) deleteSection(id uuid.UUID) {
	for cid, ch := range s.chapters {
		if ch.SectionID == id {
			s.deleteChapter(cid)
		}
	}
	for rid, r := range s.resources {
		if r.SectionID == id {
			delete(s.resources, rid)
		}
	}
	delete(s.sections, id)
}

func (s *Store) deleteChapter(id uuid.UUID) {
	for mid, m := range s.modules {
		if m.ChapterID == id {
			s.deleteModule(mid)
		}
	}
	delete(s.chapters, id)
}

func (s *Store) deleteModule(id uuid.UUID) {
	for lid, l := range s.lessons {
		if l.ModuleID == id {
			s.deleteLesson(lid)
		}
	}
	delete(s.modules, id)
}

func (s *Store) deleteLesson(id uuid.UUID) {
	for k := range s.completions {
		if k.lesson == id {
			delete(s.completions, k)
		}
	}
	delete(s.lessons, id)
}

func (s *Store) ReorderChildren(_ context.Context, parent models.NodeRef, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	childKind, ok := parent.Kind.ChildKind()
	if !ok {
		return app_errors.Validation("a %s has no children", parent.Kind)
	}
	for _, id := range ids {
		if !s.isChild(childKind, id, parent.ID) {
			return app_errors.ErrReorderMismatch
		}
	}
	for i, id := range ids {
		switch childKind {
		case models.KindSection:
			v := s.sections[id]
			v.Order = i + 1
			s.sections[id] = v
		case models.KindChapter:
			v := s.chapters[id]
			v.Order = i + 1
			s.chapters[id] = v
		case models.KindModule:
			v := s.modules[id]
			v.Order = i + 1
			s.modules[id] = v
		case models.KindLesson:
			v := s.lessons[id]
			v.Order = i + 1
			s.lessons[id] = v
		}
	}
	return nil
}

func (s *Store) isChild(kind models.NodeKind, id, parentID uuid.UUID) bool {
	switch kind {
	case models.KindSection:
		v, ok := s.sections[id]
		return ok && v.CourseID == parentID
	case models.KindChapter:
		v, ok := s.chapters[id]
		return ok && v.SectionID == parentID
	case models.KindModule:
		v, ok := s.modules[id]
		return ok && v.ChapterID == parentID
	case models.KindLesson:
		v, ok := s.lessons[id]
		return ok && v.ModuleID == parentID
	}
	return false
}

// section resources

func (s *Store) CreateResource(_ context.Context, r models.SectionResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sections[r.SectionID]; !ok {
		return app_errors.ErrSectionNotFound
	}
	s.resources[r.ID] = r
	return nil
}

func (s *Store) ResourceByID(_ context.Context, id uuid.UUID) (*models.SectionResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[id]
	if !ok {
		return nil, app_errors.ErrResourceNotFound
	}
	return &r, nil
}

func (s *Store) DeleteResource(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[id]; !ok {
		return app_errors.ErrResourceNotFound
	}
	delete(s.resources, id)
	return nil
}

func (s *Store) ResourcesByCourse(_ context.Context, courseID uuid.UUID) ([]models.SectionResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SectionResource
	for _, r := range s.resources {
		if s.courseOfSection(r.SectionID) == courseID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := s.sections[out[i].SectionID].Order, s.sections[out[j].SectionID].Order
		if si != sj {
			return si < sj
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

// enrollments and completions

func (s *Store) ActivateEnrollment(_ context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[courseID]; !ok {
		return nil, app_errors.ErrCourseNotFound
	}
	if _, ok := s.profiles[studentID]; !ok {
		return nil, app_errors.ErrUserNotFound
	}
	now := time.Now().UTC()
	k := enrollmentKey{studentID, courseID}
	e, ok := s.enrollments[k]
	if !ok {
		e = models.Enrollment{ID: uuid.New(), StudentID: studentID, CourseID: courseID, EnrolledAt: now}
	}
	e.IsActive = true
	e.UpdatedAt = now
	s.enrollments[k] = e
	return &e, nil
}

func (s *Store) DeactivateEnrollment(_ context.Context, studentID, courseID uuid.UUID, progress float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := enrollmentKey{studentID, courseID}
	if e, ok := s.enrollments[k]; ok && e.IsActive {
		e.IsActive = false
		e.Progress = progress
		e.UpdatedAt = time.Now().UTC()
		s.enrollments[k] = e
	}
	return nil
}

func (s *Store) Enrollment(_ context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[enrollmentKey{studentID, courseID}]
	if !ok {
		return nil, app_errors.ErrEnrollmentNotFound
	}
	return &e, nil
}

func (s *Store) EnrollmentsByStudent(_ context.Context, studentID uuid.UUID) ([]models.Enrollment, error) {
	return s.enrollmentsWhere(func(k enrollmentKey) bool { return k.student == studentID }), nil
}

func (s *Store) EnrollmentsByCourse(_ context.Context, courseID uuid.UUID) ([]models.Enrollment, error) {
	return s.enrollmentsWhere(func(k enrollmentKey) bool { return k.course == courseID }), nil
}

func (s *Store) enrollmentsWhere(match func(enrollmentKey) bool) []models.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Enrollment
	for k, e := range s.enrollments {
		if match(k) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.After(out[j].EnrolledAt) })
	return out
}

func (s *Store) RecordCompletion(_ context.Context, c models.LessonCompletion, courseID, enrollmentID uuid.UUID, progress float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lessons[c.LessonID]; !ok {
		return app_errors.ErrLessonNotFound
	}
	k := completionKey{c.StudentID, c.LessonID}
	if _, done := s.completions[k]; !done {
		s.completions[k] = completion{courseID: courseID, completedAt: c.CompletedAt}
	}
	for ek, e := range s.enrollments {
		if e.ID == enrollmentID {
			e.Progress = progress
			e.UpdatedAt = time.Now().UTC()
			s.enrollments[ek] = e
		}
	}
	return nil
}

func (s *Store) CompletedLessons(_ context.Context, studentID, courseID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []uuid.UUID
	for k, c := range s.completions {
		if k.student == studentID && c.courseID == courseID {
			ids = append(ids, k.lesson)
		}
	}
	return ids, nil
}

// profiles

func (s *Store) CreateProfile(_ context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.profiles {
		if strings.EqualFold(o.Email, p.Email) {
			return app_errors.ErrUserExists
		}
	}
	s.profiles[p.ID] = p
	return nil
}

func (s *Store) ProfileByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, app_errors.ErrUserNotFound
	}
	return &p, nil
}

func (s *Store) ProfileByEmail(_ context.Context, email string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, app_errors.ErrUserNotFound
}

func (s *Store) ListProfiles(_ context.Context, role string) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Profile
	for _, p := range s.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateProfile(_ context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, app_errors.ErrUserNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.PhoneNumber != nil {
		p.PhoneNumber = *upd.PhoneNumber
	}
	if upd.ProfilePictureURL != nil {
		p.ProfilePictureURL = *upd.ProfilePictureURL
	}
	if upd.IsActive != nil {
		p.IsActive = *upd.IsActive
	}
	p.UpdatedAt = time.Now().UTC()
	s.profiles[id] = p
	return &p, nil
}

func (s *Store) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return app_errors.ErrUserNotFound
	}
	p.Password = hash
	p.Pending = false
	p.UpdatedAt = time.Now().UTC()
	s.profiles[id] = p
	return nil
}

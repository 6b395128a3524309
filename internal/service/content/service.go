// Package content manages the course hierarchy on behalf of admins.
//
// Every course that has been touched is kept as a local view (a
// coursetree.Tree). A mutation is applied to the view first, then written
// to the store; when the write fails the inverse is applied to the view and
// the caller gets an ErrRemoteFailure. Mutations of one course run one at a
// time in the order they were issued.
package content

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/coursetree"
	"EduHub/internal/models"
	"EduHub/pkg/keyqueue"
	"EduHub/pkg/logger"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type courseRepo interface {
	CourseContent(ctx context.Context, courseID uuid.UUID) (*models.CourseContent, error)
	CourseIDOf(ctx context.Context, ref models.NodeRef) (uuid.UUID, error)
}

type hierarchyRepo interface {
	CreateSection(ctx context.Context, s models.Section) error
	CreateChapter(ctx context.Context, c models.Chapter) error
	CreateModule(ctx context.Context, m models.Module) error
	CreateLesson(ctx context.Context, l models.Lesson) error
	UpdateSection(ctx context.Context, s models.Section) error
	UpdateChapter(ctx context.Context, c models.Chapter) error
	UpdateModule(ctx context.Context, m models.Module) error
	UpdateLesson(ctx context.Context, l models.Lesson) error
	SetLessonState(ctx context.Context, lessonID uuid.UUID, state models.PublicationState) error
	DeleteNode(ctx context.Context, ref models.NodeRef, lessonIDs []uuid.UUID) error
	ReorderChildren(ctx context.Context, parent models.NodeRef, ids []uuid.UUID) error
}

type resourceRepo interface {
	CreateResource(ctx context.Context, r models.SectionResource) error
	ResourceByID(ctx context.Context, id uuid.UUID) (*models.SectionResource, error)
	DeleteResource(ctx context.Context, id uuid.UUID) error
	ResourcesByCourse(ctx context.Context, courseID uuid.UUID) ([]models.SectionResource, error)
}

type mediaStorage interface {
	UploadVideo(ctx context.Context, lessonID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (objectKey string, err error)
	VideoURL(ctx context.Context, objectKey string) (string, error)
	DeleteVideo(ctx context.Context, objectKey string) error
}

type fileStorage interface {
	UploadFile(ctx context.Context, sectionID, resourceID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (objectKey string, err error)
	FileURL(ctx context.Context, objectKey, fileName string) (string, error)
	DeleteFile(ctx context.Context, objectKey string) error
}

type view struct {
	mu   sync.RWMutex
	tree *coursetree.Tree
}

type HierarchyService struct {
	log       logger.Log
	courses   courseRepo
	hierarchy hierarchyRepo
	resources resourceRepo
	media     mediaStorage
	files     fileStorage
	timeout   time.Duration
	now       func() time.Time

	queue *keyqueue.Queue[uuid.UUID]
	loads singleflight.Group

	mu    sync.Mutex
	views map[uuid.UUID]*view
}

func NewHierarchyService(
	log logger.Log,
	courses courseRepo,
	hierarchy hierarchyRepo,
	resources resourceRepo,
	media mediaStorage,
	files fileStorage,
	remoteTimeout time.Duration,
) *HierarchyService {
	if remoteTimeout <= 0 {
		remoteTimeout = 5 * time.Second
	}
	return &HierarchyService{
		log:       log,
		courses:   courses,
		hierarchy: hierarchy,
		resources: resources,
		media:     media,
		files:     files,
		timeout:   remoteTimeout,
		now:       func() time.Time { return time.Now().UTC() },
		queue:     keyqueue.New[uuid.UUID](),
		views:     make(map[uuid.UUID]*view),
	}
}

// call runs one store operation under the remote timeout.
func (s *HierarchyService) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

func (s *HierarchyService) view(ctx context.Context, courseID uuid.UUID) (*view, error) {
	s.mu.Lock()
	v, ok := s.views[courseID]
	s.mu.Unlock()
	if ok {
		return v, nil
	}

	res, err, _ := s.loads.Do(courseID.String(), func() (any, error) {
		var content *models.CourseContent
		err := s.call(ctx, func(ctx context.Context) error {
			var err error
			content, err = s.courses.CourseContent(ctx, courseID)
			return err
		})
		if err != nil {
			return nil, err
		}
		tree, err := coursetree.Build(content.Course, content.Sections, content.Chapters, content.Modules, content.Lessons)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if v, ok := s.views[courseID]; ok {
			return v, nil
		}
		v := &view{tree: tree}
		s.views[courseID] = v
		return v, nil
	})
	if err != nil {
		return nil, app_errors.Remote("load course", err)
	}
	return res.(*view), nil
}

// Forget drops the local view of a course. The next access reloads it.
func (s *HierarchyService) Forget(courseID uuid.UUID) {
	s.mu.Lock()
	delete(s.views, courseID)
	s.mu.Unlock()
}

// Read runs fn against the current view of a course under a read lock. fn
// must not keep the tree.
func (s *HierarchyService) Read(ctx context.Context, courseID uuid.UUID, fn func(t *coursetree.Tree) error) error {
	v, err := s.view(ctx, courseID)
	if err != nil {
		return err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return fn(v.tree)
}

// courseOf finds the course a node belongs to, looking at loaded views
// before asking the store.
func (s *HierarchyService) courseOf(ctx context.Context, ref models.NodeRef) (uuid.UUID, error) {
	if !ref.Kind.Valid() {
		return uuid.Nil, app_errors.Validation("unknown node kind %q", ref.Kind)
	}
	if ref.Kind == models.KindCourse {
		return ref.ID, nil
	}

	s.mu.Lock()
	views := make(map[uuid.UUID]*view, len(s.views))
	for id, v := range s.views {
		views[id] = v
	}
	s.mu.Unlock()
	for courseID, v := range views {
		v.mu.RLock()
		found := v.tree.Contains(ref)
		v.mu.RUnlock()
		if found {
			return courseID, nil
		}
	}

	var courseID uuid.UUID
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		courseID, err = s.courses.CourseIDOf(ctx, ref)
		return err
	})
	if err != nil {
		return uuid.Nil, app_errors.Remote("resolve course", err)
	}
	return courseID, nil
}

// mutation is one optimistic change. apply edits the view and returns the
// inverse; remote persists the change.
type mutation struct {
	op     string
	apply  func(t *coursetree.Tree) (undo func(t *coursetree.Tree), err error)
	remote func(ctx context.Context) error
}

func (s *HierarchyService) mutate(ctx context.Context, courseID uuid.UUID, m mutation) error {
	release, err := s.queue.Acquire(ctx, courseID)
	if err != nil {
		return app_errors.Remote(m.op, err)
	}
	defer release()

	v, err := s.view(ctx, courseID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	undo, err := m.apply(v.tree)
	v.mu.Unlock()
	if err != nil {
		return err
	}

	if err = s.call(ctx, m.remote); err != nil {
		v.mu.Lock()
		undo(v.tree)
		v.mu.Unlock()
		s.log.ErrorErr("remote write failed, local view rolled back", err, "op", m.op, "course_id", courseID)
		return app_errors.Remote(m.op, err)
	}
	return nil
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return app_errors.ErrAdminOnly
	}
	return nil
}

package enrollment

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"EduHub/internal/service/auth"
	"EduHub/internal/storage/memory"
	"EduHub/pkg/logger"
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = models.Actor{ID: uuid.New(), Role: models.AdminRole}

type sent struct {
	kind, email, link string
}

type fakeMailer struct {
	sent []sent
	err  error
}

func (m *fakeMailer) SendInvite(_ context.Context, _, email, link string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sent{"invite", email, link})
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, _, email, link string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sent{"reset", email, link})
	return nil
}

type settled struct {
	student, course uuid.UUID
	progress        float64
}

// fixedProgress settles every pair at the same percentage.
type fixedProgress struct {
	progress float64
	calls    []settled
}

func (f *fixedProgress) Settle(ctx context.Context, studentID, courseID uuid.UUID, fn func(ctx context.Context, progress float64) error) error {
	f.calls = append(f.calls, settled{studentID, courseID, f.progress})
	return fn(ctx, f.progress)
}

type env struct {
	svc      *EnrollmentService
	store    *memory.Store
	mail     *fakeMailer
	progress *fixedProgress
	course   uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	mail := &fakeMailer{}
	course := models.Course{ID: uuid.New(), Title: "Go"}
	require.NoError(t, store.CreateCourse(context.Background(), course))
	progress := &fixedProgress{progress: 40}
	svc := NewEnrollmentService(logger.NewNop(), store, store, progress, auth.NewActionTokens(store, time.Hour), mail, "http://app.test", time.Second)
	return &env{svc: svc, store: store, mail: mail, progress: progress, course: course.ID}
}

func (e *env) studentProfile(t *testing.T, email string) models.Profile {
	t.Helper()
	p := models.Profile{ID: uuid.New(), Name: "Ann", Email: email, Role: models.StudentRole, IsActive: true, CreatedAt: time.Now()}
	require.NoError(t, e.store.CreateProfile(context.Background(), p))
	return p
}

func TestAssignLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	st := e.studentProfile(t, "ann@example.com")

	// none -> no-op unassign
	require.NoError(t, e.svc.Unassign(ctx, admin, st.ID, e.course))
	_, err := e.store.Enrollment(ctx, st.ID, e.course)
	assert.ErrorIs(t, err, app_errors.ErrNotEnrolled)

	first, err := e.svc.Assign(ctx, admin, st.ID, e.course)
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	again, err := e.svc.Assign(ctx, admin, st.ID, e.course)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	require.NoError(t, e.svc.Unassign(ctx, admin, st.ID, e.course))
	cur, err := e.store.Enrollment(ctx, st.ID, e.course)
	require.NoError(t, err)
	assert.False(t, cur.IsActive)
	assert.Equal(t, 40.0, cur.Progress)
	assert.Contains(t, e.progress.calls, settled{st.ID, e.course, 40})

	back, err := e.svc.Assign(ctx, admin, st.ID, e.course)
	require.NoError(t, err)
	assert.Equal(t, first.ID, back.ID)
	assert.True(t, back.IsActive)

	list, err := e.svc.ListEnrollments(ctx, admin, e.course)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAssignErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	st := e.studentProfile(t, "ann@example.com")

	_, err := e.svc.Assign(ctx, models.Actor{ID: st.ID, Role: models.StudentRole}, st.ID, e.course)
	assert.ErrorIs(t, err, app_errors.ErrForbidden)

	_, err = e.svc.Assign(ctx, admin, uuid.New(), e.course)
	assert.ErrorIs(t, err, app_errors.ErrNotFound)

	_, err = e.svc.Assign(ctx, admin, st.ID, uuid.New())
	assert.ErrorIs(t, err, app_errors.ErrNotFound)

	other := models.Profile{ID: uuid.New(), Email: "boss@example.com", Role: models.AdminRole, IsActive: true}
	require.NoError(t, e.store.CreateProfile(ctx, other))
	_, err = e.svc.Assign(ctx, admin, other.ID, e.course)
	assert.ErrorIs(t, err, app_errors.ErrValidation)
}

func TestInvite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.svc.Invite(ctx, admin, InviteInput{Email: " New@Example.com", Name: "New"})
	require.NoError(t, err)
	assert.True(t, p.Pending)
	assert.Equal(t, models.StudentRole, p.Role)
	assert.Equal(t, "new@example.com", p.Email)

	require.Len(t, e.mail.sent, 1)
	assert.Equal(t, "invite", e.mail.sent[0].kind)
	u, err := url.Parse(e.mail.sent[0].link)
	require.NoError(t, err)
	assert.Equal(t, auth.InvitePath, u.Path)
	assert.NotEmpty(t, u.Query().Get("token"))

	_, err = e.svc.Invite(ctx, admin, InviteInput{Email: "new@example.com", Name: "Again"})
	assert.ErrorIs(t, err, app_errors.ErrConflict)

	_, err = e.svc.Invite(ctx, admin, InviteInput{Email: "broken", Name: "X"})
	assert.ErrorIs(t, err, app_errors.ErrValidation)
}

func TestInviteMailFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mail.err = errors.New("sendgrid down")

	_, err := e.svc.Invite(ctx, admin, InviteInput{Email: "x@example.com", Name: "X"})
	assert.ErrorIs(t, err, app_errors.ErrRemoteFailure)

	p, err := e.store.ProfileByEmail(ctx, "x@example.com")
	require.NoError(t, err)
	assert.True(t, p.Pending)
}

func TestUpdateStudent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	st := e.studentProfile(t, "ann@example.com")

	name, inactive := " Annie ", false
	p, err := e.svc.UpdateStudent(ctx, admin, st.ID, StudentUpdate{Name: &name, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Annie", p.Name)
	assert.False(t, p.IsActive)

	empty := "  "
	_, err = e.svc.UpdateStudent(ctx, admin, st.ID, StudentUpdate{Name: &empty})
	assert.ErrorIs(t, err, app_errors.ErrValidation)

	students, err := e.svc.ListStudents(ctx, admin)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Annie", students[0].Name)
}

func TestResetStudentPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.studentProfile(t, "ann@example.com")

	require.NoError(t, e.svc.ResetStudentPassword(ctx, admin, "ann@example.com"))
	require.Len(t, e.mail.sent, 1)
	assert.Equal(t, "reset", e.mail.sent[0].kind)
	assert.Contains(t, e.mail.sent[0].link, auth.PasswordResetPath)

	err := e.svc.ResetStudentPassword(ctx, admin, "nobody@example.com")
	assert.ErrorIs(t, err, app_errors.ErrNotFound)
}

func TestStudentEnrollments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	st := e.studentProfile(t, "ann@example.com")
	_, err := e.svc.Assign(ctx, admin, st.ID, e.course)
	require.NoError(t, err)

	self := models.Actor{ID: st.ID, Role: models.StudentRole}
	list, err := e.svc.StudentEnrollments(ctx, self, st.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = e.svc.StudentEnrollments(ctx, models.Actor{ID: uuid.New(), Role: models.StudentRole}, st.ID)
	assert.ErrorIs(t, err, app_errors.ErrForbidden)
}

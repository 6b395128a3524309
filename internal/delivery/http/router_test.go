package http

import (
	"EduHub/internal/notify"
	"EduHub/internal/service"
	"EduHub/internal/service/auth"
	"EduHub/internal/service/content"
	"EduHub/internal/service/course"
	"EduHub/internal/service/enrollment"
	"EduHub/internal/service/progress"
	"EduHub/internal/storage/memory"
	"EduHub/pkg/logger"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@eduhub.test"
	adminPassword = "admin-secret"
)

type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (o *outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

// token pulls the token query parameter out of the last link mailed to email.
func (o *outbox) token(t *testing.T, email string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.msgs) - 1; i >= 0; i-- {
		if o.msgs[i].To.Address != email {
			continue
		}
		for _, field := range strings.Fields(o.msgs[i].TextContent) {
			if u, err := url.Parse(field); err == nil && u.Query().Get("token") != "" {
				return u.Query().Get("token")
			}
		}
	}
	t.Fatalf("no link mailed to %s", email)
	return ""
}

type api struct {
	t      *testing.T
	router *gin.Engine
	mail   *outbox
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	store := memory.NewStore()
	objects := memory.NewObjectStore()
	mail := &outbox{}
	notifier := notify.New(mail, "EduHub")
	jwt := auth.NewJWTManager("test-secret", "eduhub", 15*time.Minute, time.Hour)
	actions := auth.NewActionTokens(store, time.Hour)

	hier := content.NewHierarchyService(log, store, store, store, objects, objects, time.Second)
	prog := progress.NewProgressService(log, hier, store, store, store, time.Second)
	u := service.Collection{
		Auth:       auth.NewAuthService(log, jwt, store, store, actions, notifier, "http://app.test"),
		Content:    hier,
		Course:     course.NewCourseService(log, store, memory.NewSearchIndex(), hier, store, store, time.Second),
		Progress:   prog,
		Enrollment: enrollment.NewEnrollmentService(log, store, store, prog, actions, notifier, "http://app.test", time.Second),
	}
	require.NoError(t, u.Auth.EnsureAdmin(context.Background(), auth.SignUpInput{
		Email: adminEmail, Password: adminPassword, Name: "Admin",
	}))
	return &api{t: t, router: InitRoutes(log, nil, u), mail: mail}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// create posts body and returns the id of the created object.
func (a *api) create(path, token string, body any) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, path, token, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(a.t, out.ID)
	return out.ID
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type progressBody struct {
	CompletedLessons int     `json:"completed_lessons"`
	TotalLessons     int     `json:"total_lessons"`
	Percentage       float64 `json:"percentage"`
	Active           bool    `json:"active"`
}

func TestStatus(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/v1/status", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Available")
}

func TestCourseLifecycleThroughAPI(t *testing.T) {
	a := newAPI(t)
	admin := a.login(adminEmail, adminPassword)

	courseID := a.create("/v1/admin/courses", admin, gin.H{"title": "Go", "description": "From zero"})
	sectionID := a.create("/v1/admin/courses/"+courseID+"/sections", admin, gin.H{"title": "Basics"})
	chapterID := a.create("/v1/admin/sections/"+sectionID+"/chapters", admin, gin.H{"title": "Syntax"})
	moduleID := a.create("/v1/admin/chapters/"+chapterID+"/modules", admin, gin.H{"title": "Types"})
	first := a.create("/v1/admin/modules/"+moduleID+"/lessons", admin, gin.H{"title": "Ints", "content_type": "text", "body": "int, int64"})
	second := a.create("/v1/admin/modules/"+moduleID+"/lessons", admin, gin.H{"title": "Strings", "content_type": "text", "body": "runes"})
	for _, id := range []string{first, second} {
		rec := a.do(http.MethodPut, "/v1/admin/lessons/"+id+"/state", admin, gin.H{"state": "published"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	studentID := a.create("/v1/auth/register", "", gin.H{"email": "ann@eduhub.test", "password": "secret1", "name": "Ann"})
	student := a.login("ann@eduhub.test", "secret1")

	t.Run("student needs an enrollment", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/v1/courses/"+courseID+"/outline", student, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = a.do(http.MethodPost, "/v1/courses/"+courseID+"/lessons/"+first+"/complete", student, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("student cannot manage content", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/v1/admin/courses", student, gin.H{"title": "Mine"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	rec := a.do(http.MethodPut, "/v1/admin/courses/"+courseID+"/students/"+studentID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("completion updates progress", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/v1/courses/"+courseID+"/lessons/"+first+"/complete", student, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		p := decode[progressBody](t, rec)
		assert.Equal(t, 1, p.CompletedLessons)
		assert.Equal(t, 2, p.TotalLessons)
		assert.InDelta(t, 50.0, p.Percentage, 0.001)

		rec = a.do(http.MethodGet, "/v1/courses/"+courseID+"/progress", student, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, p, decode[progressBody](t, rec))
	})

	t.Run("course path", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/v1/courses/"+courseID+"/path", student, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		path := decode[struct {
			Lessons []struct {
				ID string `json:"id"`
			} `json:"lessons"`
		}](t, rec)
		require.Len(t, path.Lessons, 2)
		assert.Equal(t, first, path.Lessons[0].ID)
		assert.Equal(t, second, path.Lessons[1].ID)
	})

	t.Run("outline and dashboard", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/v1/courses/"+courseID+"/outline", student, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "Strings")

		rec = a.do(http.MethodGet, "/v1/dashboard", student, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		dash := decode[struct {
			Courses []struct {
				Progress progressBody `json:"progress"`
			} `json:"courses"`
		}](t, rec)
		require.Len(t, dash.Courses, 1)
		assert.Equal(t, 1, dash.Courses[0].Progress.CompletedLessons)
	})

	t.Run("other students progress is hidden", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/v1/courses/"+courseID+"/progress?student_id="+studentID, admin, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		a.create("/v1/auth/register", "", gin.H{"email": "bob@eduhub.test", "password": "secret2", "name": "Bob"})
		bob := a.login("bob@eduhub.test", "secret2")
		rec = a.do(http.MethodGet, "/v1/courses/"+courseID+"/progress?student_id="+studentID, bob, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("deleting a lesson shrinks the total", func(t *testing.T) {
		rec := a.do(http.MethodDelete, "/v1/admin/lessons/"+second, admin, nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = a.do(http.MethodGet, "/v1/courses/"+courseID+"/progress", student, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		p := decode[progressBody](t, rec)
		assert.Equal(t, 1, p.TotalLessons)
		assert.InDelta(t, 100.0, p.Percentage, 0.001)
	})

	t.Run("unassigned student loses access", func(t *testing.T) {
		rec := a.do(http.MethodDelete, "/v1/admin/courses/"+courseID+"/students/"+studentID, admin, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = a.do(http.MethodGet, "/v1/courses/"+courseID+"/outline", student, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestInviteThroughAPI(t *testing.T) {
	a := newAPI(t)
	admin := a.login(adminEmail, adminPassword)

	a.create("/v1/admin/students/invite", admin, gin.H{"email": "eve@eduhub.test", "name": "Eve"})

	rec := a.do(http.MethodPost, "/v1/auth/login", "", gin.H{"email": "eve@eduhub.test", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := a.mail.token(t, "eve@eduhub.test")
	rec = a.do(http.MethodPost, "/v1/auth/accept-invite", "", gin.H{"token": token, "password": "secret3"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	eve := a.login("eve@eduhub.test", "secret3")
	rec = a.do(http.MethodGet, "/v1/me", eve, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"student"`)
	assert.NotContains(t, rec.Body.String(), "secret3")

	rec = a.do(http.MethodPost, "/v1/auth/accept-invite", "", gin.H{"token": token, "password": "secret4"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordResetThroughAPI(t *testing.T) {
	a := newAPI(t)
	a.create("/v1/auth/register", "", gin.H{"email": "sam@eduhub.test", "password": "secret1", "name": "Sam"})

	rec := a.do(http.MethodPost, "/v1/auth/password-reset", "", gin.H{"email": "nobody@eduhub.test"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/password-reset", "", gin.H{"email": "sam@eduhub.test"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	token := a.mail.token(t, "sam@eduhub.test")
	rec = a.do(http.MethodPost, "/v1/auth/password-reset/confirm", "", gin.H{"token": token, "password": "newpass"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	a.login("sam@eduhub.test", "newpass")
	rec = a.do(http.MethodPost, "/v1/auth/login", "", gin.H{"email": "sam@eduhub.test", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRejectsAnonymousAndMalformed(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/courses", "", nil).Code)

	admin := a.login(adminEmail, adminPassword)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/courses/not-a-uuid", admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/admin/courses", admin, gin.H{}).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/courses/00000000-0000-0000-0000-000000000001", admin, nil).Code)
}

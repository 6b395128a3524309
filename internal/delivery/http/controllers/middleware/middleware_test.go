package middleware

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"EduHub/pkg/logger"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	actors   map[string]models.Actor
	profiles map[uuid.UUID]models.Profile
}

func (f *fakeAuth) Actor(_ context.Context, token string) (models.Actor, error) {
	a, ok := f.actors[token]
	if !ok {
		return models.Actor{}, app_errors.ErrInvalidToken
	}
	return a, nil
}

func (f *fakeAuth) Profile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, app_errors.ErrUserNotFound
	}
	return &p, nil
}

func newEngine(auth *fakeAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	provider := NewAuthMiddlewareProvider(logger.NewNop(), auth)
	r.GET("/whoami", provider.AuthMiddleware, func(c *gin.Context) {
		a, ok := MustActor(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": a.ID, "role": a.Role})
	})
	r.GET("/admin", provider.AuthMiddleware, RequireRoles(models.AdminRole), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	student := models.Profile{ID: uuid.New(), Role: models.StudentRole, IsActive: true}
	admin := models.Profile{ID: uuid.New(), Role: models.AdminRole, IsActive: true}
	inactive := models.Profile{ID: uuid.New(), Role: models.StudentRole}
	pending := models.Profile{ID: uuid.New(), Role: models.StudentRole, IsActive: true, Pending: true}

	auth := &fakeAuth{
		actors:   map[string]models.Actor{},
		profiles: map[uuid.UUID]models.Profile{},
	}
	for name, p := range map[string]models.Profile{"student": student, "admin": admin, "inactive": inactive, "pending": pending} {
		auth.actors[name] = models.Actor{ID: p.ID, Role: p.Role}
		auth.profiles[p.ID] = p
	}
	r := newEngine(auth)

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/whoami", "").Code)
	})
	t.Run("unknown token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/whoami", "garbage").Code)
	})
	t.Run("active student", func(t *testing.T) {
		rec := get(r, "/whoami", "student")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), student.ID.String())
	})
	t.Run("deactivated profile", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/whoami", "inactive").Code)
	})
	t.Run("pending profile", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/whoami", "pending").Code)
	})
	t.Run("role check", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, get(r, "/admin", "student").Code)
		assert.Equal(t, http.StatusNoContent, get(r, "/admin", "admin").Code)
	})
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{app_errors.Validation("bad %s", "input"), http.StatusBadRequest},
		{app_errors.ErrCourseNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", app_errors.ErrLessonNotFound), http.StatusNotFound},
		{app_errors.ErrNotEnrolled, http.StatusForbidden},
		{app_errors.ErrAdminOnly, http.StatusForbidden},
		{app_errors.ErrUserExists, http.StatusConflict},
		{app_errors.ErrTokenExpired, http.StatusUnauthorized},
		{app_errors.Remote("write", errors.New("connection reset")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusOf(tc.err), tc.err.Error())
	}
}

func TestErrorHidesServerDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/remote", func(c *gin.Context) {
		Error(c, app_errors.Remote("write lesson", errors.New("dial tcp 10.0.0.3:5432")))
	})
	r.GET("/missing", func(c *gin.Context) {
		Error(c, app_errors.ErrCourseNotFound)
	})

	rec := get(r, "/remote", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")

	rec = get(r, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), app_errors.ErrCourseNotFound.Error())
}

func TestParamUUID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/courses/:course_id", func(c *gin.Context) {
		id, ok := ParamUUID(c, "course_id")
		if !ok {
			return
		}
		c.String(http.StatusOK, id.String())
	})

	assert.Equal(t, http.StatusBadRequest, get(r, "/courses/not-a-uuid", "").Code)
	id := uuid.New()
	rec := get(r, "/courses/"+id.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id.String(), rec.Body.String())
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeVerifier struct{}

func (fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	if idToken == "good" {
		return &firebaseauth.Token{UID: "user-1"}, nil
	}
	return nil, errors.New("bad token")
}

type fakeRoles map[string]string

func (f fakeRoles) UserRole(_ context.Context, uid string) (string, error) {
	role, ok := f[uid]
	if !ok {
		return "", errors.New("no user")
	}
	return role, nil
}

func newRouter(roles fakeRoles) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", AuthMiddleware(fakeVerifier{}))
	group.GET("/me", func(c *gin.Context) {
		uid, _ := UID(c)
		c.String(http.StatusOK, uid)
	})
	group.GET("/admin", RequireRole(roles, "admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	group.GET("/points", RequireSelfOrRole(roles, "admin", "uid"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func doRequest(router *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router := newRouter(fakeRoles{})

	w := doRequest(router, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unauthenticated"`)

	w = doRequest(router, "/me", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, "/me", "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	w := doRequest(newRouter(fakeRoles{"user-1": "jugador"}), "/admin", "Bearer good")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(newRouter(fakeRoles{"user-1": "admin"}), "/admin", "Bearer good")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireSelfOrRole(t *testing.T) {
	players := newRouter(fakeRoles{"user-1": "jugador"})

	w := doRequest(players, "/points?uid=user-1", "Bearer good")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(players, "/points?uid=user-2", "Bearer good")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(players, "/points?uid=user-1", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(newRouter(fakeRoles{"user-1": "admin"}), "/points?uid=user-2", "Bearer good")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

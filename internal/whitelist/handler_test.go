package whitelist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall-backend/internal/platform/auth"
)

// asUser stands in for auth.RequireAuth: X-Test-Email becomes the caller.
func asUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.CtxEmailKey, c.GetHeader("X-Test-Email"))
		c.Next()
	}
}

func newTestRouter(g *Gate) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/", asUser())
	RegisterSelfRoutes(api, g)
	authorized := api.Group("/", RequireAuthorized(g))
	RegisterRoutes(authorized, g)
	return r
}

func call(r http.Handler, method, path, email, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Email", email)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) Code {
	t.Helper()
	var body errorDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestHandler_CheckSelf(t *testing.T) {
	g, _, _ := newTestGate(t, "admin@example.com")
	r := newTestRouter(g)

	w := call(r, http.MethodGet, "/me/authorization", "admin@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp AuthorizationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Authorized)

	w = call(r, http.MethodGet, "/me/authorization", "stranger@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Authorized)
	assert.Equal(t, "stranger@example.com", resp.Email)
}

func TestRequireAuthorized(t *testing.T) {
	g, _, _ := newTestGate(t, "admin@example.com")
	r := newTestRouter(g)

	w := call(r, http.MethodGet, "/authorized-emails", "stranger@example.com", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, CodeUnauthorized, errorCode(t, w))

	w = call(r, http.MethodGet, "/authorized-emails", "ADMIN@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, []string{"admin@example.com"}, list.Emails)
	assert.Empty(t, list.Entries)

	w = call(r, http.MethodGet, "/authorized-emails?detail=true", "admin@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "system", list.Entries[0].AddedBy)
}

func TestRequireAuthorized_StoreDown(t *testing.T) {
	store := NewMemoryStore()
	store.FailList(errors.New("db down"))
	g := NewGate(store, DefaultTTL, WithClock(newFakeClock()))
	r := newTestRouter(g)

	w := call(r, http.MethodGet, "/authorized-emails", "admin@example.com", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, CodeAuthCheckFailed, errorCode(t, w))
}

func TestHandler_AddAndRemove(t *testing.T) {
	g, _, _ := newTestGate(t, "admin@example.com")
	r := newTestRouter(g)
	admin := "admin@example.com"

	w := call(r, http.MethodPost, "/authorized-emails", admin, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodPost, "/authorized-emails", admin, `{"email":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, errorCode(t, w))

	w = call(r, http.MethodPost, "/authorized-emails", admin, `{"email":"Staff@Example.com"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = call(r, http.MethodPost, "/authorized-emails", admin, `{"email":"staff@example.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 追加された本人はすぐに使える
	w = call(r, http.MethodGet, "/authorized-emails", "staff@example.com", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodDelete, "/authorized-emails/admin@example.com", admin, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(r, http.MethodDelete, "/authorized-emails/nobody@example.com", admin, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(r, http.MethodDelete, "/authorized-emails/STAFF@example.com", admin, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/authorized-emails", "staff@example.com", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	ok, err := g.IsAuthorized(context.Background(), admin)
	require.NoError(t, err)
	assert.True(t, ok)
}

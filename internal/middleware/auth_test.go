package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/cashdesk/internal/model"
)

func sessionCookie(t *testing.T, m *AuthMiddleware, p model.Principal) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	require.NoError(t, m.SetSessionCookie(w, p))

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "no cookies set by SetSessionCookie")
	assert.True(t, cookies[0].HttpOnly)
	return cookies[0]
}

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok, "principal not in context")
		assert.Equal(t, model.Principal{UserID: 42, Role: model.RoleOperator}, p)
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(sessionCookie(t, m, model.Principal{UserID: 42, Role: model.RoleOperator}))

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, nextCalled, "next handler was not called")
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	other := NewAuthMiddleware("other-secret")

	expired := NewAuthMiddleware("test-secret")
	expired.now = func() time.Time { return time.Now().Add(-13 * time.Hour) }

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "no cookie"},
		{name: "garbage", cookie: &http.Cookie{Name: sessionCookieName, Value: "not-a-jwt"}},
		{name: "foreign signature", cookie: sessionCookie(t, other, model.Principal{UserID: 1, Role: model.RoleAdmin})},
		{name: "expired", cookie: sessionCookie(t, expired, model.Principal{UserID: 1, Role: model.RoleAdmin})},
		{name: "unknown role", cookie: sessionCookie(t, m, model.Principal{UserID: 1, Role: "Guest"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}

			m.Middleware(next).ServeHTTP(w, r)

			require.Equal(t, http.StatusUnauthorized, w.Code)
			var body map[string]any
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, UnauthorizedMessage, body["error"])
		})
	}
}

func TestClearSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	NewAuthMiddleware("").ClearSessionCookie(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

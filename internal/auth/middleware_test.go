package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// echoSession writes the session id it sees so tests can inspect it.
func echoSession(w http.ResponseWriter, r *http.Request) {
	id, ok := SessionIDFromContext(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, id)
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestSessions_IssuesCookieOnFirstVisit(t *testing.T) {
	ts := newTestTokenService(t)
	h := Sessions(ts, true, discardLogger)(http.HandlerFunc(echoSession))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookie(t, rr)
	require.NotNil(t, cookie, "expected a session cookie")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Zero(t, cookie.MaxAge, "session cookie should not be persistent")
	assert.False(t, cookie.Secure)

	id, err := ts.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, id, rr.Body.String())
}

func TestSessions_ReusesValidCookie(t *testing.T) {
	ts := newTestTokenService(t)
	h := Sessions(ts, true, discardLogger)(http.HandlerFunc(echoSession))
	token, _ := ts.Generate("existing-session")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "existing-session", rr.Body.String())
	assert.Nil(t, sessionCookie(t, rr), "no new cookie expected")
}

func TestSessions_ReplacesBadCookie(t *testing.T) {
	ts := newTestTokenService(t)
	h := Sessions(ts, true, discardLogger)(http.HandlerFunc(echoSession))
	expired, _ := ts.GenerateWithDuration("old-session", -time.Minute)

	for name, value := range map[string]string{"garbage": "not-a-jwt", "expired": expired} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: CookieName, Value: value})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.NotEqual(t, "old-session", rr.Body.String())
			assert.NotEmpty(t, rr.Body.String())
			assert.NotNil(t, sessionCookie(t, rr))
		})
	}
}

func TestSessions_SecureBehindProxy(t *testing.T) {
	ts := newTestTokenService(t)
	h := Sessions(ts, true, discardLogger)(http.HandlerFunc(echoSession))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	cookie := sessionCookie(t, rr)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
}

func TestSessions_IgnoresForwardedProtoWhenUntrusted(t *testing.T) {
	ts := newTestTokenService(t)
	h := Sessions(ts, false, discardLogger)(http.HandlerFunc(echoSession))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	cookie := sessionCookie(t, rr)
	require.NotNil(t, cookie)
	assert.False(t, cookie.Secure)
}

func TestSessionIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := SessionIDFromContext(req.Context())
	assert.False(t, ok)

	_, ok = SessionIDFromContext(WithSessionID(req.Context(), ""))
	assert.False(t, ok)
}

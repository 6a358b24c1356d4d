package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-service/apperrors"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedIssuer(t *testing.T, production bool, now time.Time) *SessionIssuer {
	t.Helper()
	s, err := NewSessionIssuer("test-secret", production)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("cookie %q not set", CookieName)
	return nil
}

func TestNewSessionIssuer_EmptySecret(t *testing.T) {
	_, err := NewSessionIssuer("", false)
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
}

func TestIssueSession_Development(t *testing.T) {
	issuedAt := time.Now().Truncate(time.Second)
	s := fixedIssuer(t, false, issuedAt)
	rec := httptest.NewRecorder()

	token, err := s.IssueSession(rec, "user123")
	require.NoError(t, err)

	c := sessionCookie(t, rec)
	assert.Equal(t, token, c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, 604800, c.MaxAge)
	assert.Equal(t, int64(604800000), (time.Duration(c.MaxAge) * time.Second).Milliseconds())
	assert.Equal(t, "/", c.Path)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, issuedAt.Add(72*time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, issuedAt.Unix(), claims.IssuedAt.Unix())
}

func TestIssueSession_Production(t *testing.T) {
	s := fixedIssuer(t, true, time.Now())
	rec := httptest.NewRecorder()

	_, err := s.IssueSession(rec, "user123")
	require.NoError(t, err)

	c := sessionCookie(t, rec)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
	assert.Equal(t, 604800, c.MaxAge)
}

func TestVerify_ExpiredIsDistinct(t *testing.T) {
	s := fixedIssuer(t, false, time.Now().Add(-4*24*time.Hour))
	token, _, err := s.IssueToken("user123")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Invalid(t *testing.T) {
	s := fixedIssuer(t, false, time.Now())
	other := fixedIssuer(t, false, time.Now())
	other.secret = []byte("another-secret")
	foreign, _, err := other.IssueToken("user123")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{UserID: "user123"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": foreign,
		"alg none":     none,
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerify_RequiresUserID(t *testing.T) {
	s := fixedIssuer(t, false, time.Now())
	token, _, err := s.IssueToken("")
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClearSession(t *testing.T) {
	s := fixedIssuer(t, true, time.Now())
	rec := httptest.NewRecorder()
	s.ClearSession(rec)

	c := sessionCookie(t, rec)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
	assert.True(t, c.Secure)
}

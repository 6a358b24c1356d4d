package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront-service/apperrors"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// CookieName is the session cookie set on login.
	CookieName = "jwt"
	// TokenTTL is how long a session token verifies.
	TokenTTL = 72 * time.Hour
	// CookieMaxAge is how long the browser keeps the cookie. It outlives the
	// token, so an old cookie can still arrive carrying an expired token.
	CookieMaxAge = 7 * 24 * time.Hour
)

var (
	ErrTokenExpired = errors.New("session expired")
	ErrInvalidToken = errors.New("invalid session")
)

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// SessionIssuer signs session tokens and writes them as cookies.
type SessionIssuer struct {
	secret     []byte
	production bool
	now        func() time.Time
}

// NewSessionIssuer fails with a configuration error when the secret is empty.
func NewSessionIssuer(secret string, production bool) (*SessionIssuer, error) {
	if secret == "" {
		return nil, apperrors.New(apperrors.KindConfiguration, "JWT_SECRET is required", nil)
	}
	return &SessionIssuer{
		secret:     []byte(secret),
		production: production,
		now:        time.Now,
	}, nil
}

// IssueToken signs an HS256 token for userID valid for TokenTTL.
func (s *SessionIssuer) IssueToken(userID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(TokenTTL)
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apperrors.New(apperrors.KindConfiguration, "failed to sign session token", err)
	}
	return signed, expiresAt, nil
}

// IssueSession signs a token for userID and sets it as the jwt cookie.
func (s *SessionIssuer) IssueSession(w http.ResponseWriter, userID string) (string, error) {
	token, _, err := s.IssueToken(userID)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, s.cookie(token, CookieMaxAge))
	return token, nil
}

// ClearSession expires the jwt cookie.
func (s *SessionIssuer) ClearSession(w http.ResponseWriter) {
	c := s.cookie("", 0)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// Verify parses token and returns its claims. Expired tokens yield
// ErrTokenExpired, everything else that fails yields ErrInvalidToken.
func (s *SessionIssuer) Verify(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *SessionIssuer) cookie(value string, maxAge time.Duration) *http.Cookie {
	sameSite := http.SameSiteStrictMode
	if s.production {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Expires:  s.now().Add(maxAge),
		HttpOnly: true,
		Secure:   s.production,
		SameSite: sameSite,
	}
}

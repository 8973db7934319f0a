package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	CookieName = "hoko_session"
	// UserCookieName carries the persisted signed-in user across sessions.
	UserCookieName = "hoko_user"
	// SessionKey is the echo context key holding the session id.
	SessionKey = "sid"
	issuer     = "hoko"

	audSession = "session"
	audUser    = "user"
)

var ErrInvalidSession = errors.New("invalid session token")

// Sessions signs the browser's session id into an HS256 token carried as a
// cookie or a Bearer header.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Sign returns a token for session id sid.
func (s *Sessions) Sign(sid string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   sid,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		Audience:  jwt.ClaimStrings{audSession},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse returns the session id of a valid token.
func (s *Sessions) Parse(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audSession),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

// Load puts the session id of a valid token into the context. Requests
// without one pass through with an empty id.
func (s *Sessions) Load(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(SessionKey, "")
		token := ""
		if authz := c.Request().Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
			token = strings.TrimPrefix(authz, "Bearer ")
		} else if ck, err := c.Cookie(CookieName); err == nil {
			token = ck.Value
		}
		if token != "" {
			if sid, err := s.Parse(token); err == nil {
				c.Set(SessionKey, sid)
			}
		}
		return next(c)
	}
}

// Issue writes the cookie for sid and returns the token.
func (s *Sessions) Issue(c echo.Context, sid string) (string, error) {
	token, err := s.Sign(sid)
	if err != nil {
		return "", err
	}
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(s.ttl),
	})
	return token, nil
}

// Clear expires the cookie.
func (s *Sessions) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		MaxAge:   -1,
	})
}

// SessionID is the id Load stored, or "".
func SessionID(c echo.Context) string {
	sid, _ := c.Get(SessionKey).(string)
	return sid
}

type userClaims struct {
	User string `json:"usr"`
	jwt.RegisteredClaims
}

// SignUser wraps a persisted user entry into a token.
func (s *Sessions) SignUser(raw string) (string, error) {
	now := s.now()
	claims := userClaims{
		User: raw,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Audience:  jwt.ClaimStrings{audUser},
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseUser returns the entry of a valid user token.
func (s *Sessions) ParseUser(token string) (string, error) {
	var claims userClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audUser),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.User == "" {
		return "", ErrInvalidSession
	}
	return claims.User, nil
}

// StoredUser is the entry carried by the request's user cookie, or "".
func (s *Sessions) StoredUser(c echo.Context) string {
	ck, err := c.Cookie(UserCookieName)
	if err != nil {
		return ""
	}
	raw, err := s.ParseUser(ck.Value)
	if err != nil {
		return ""
	}
	return raw
}

// KeepUser writes raw into the user cookie, or expires the cookie when raw
// is empty. Nothing is written when the request already carries raw.
func (s *Sessions) KeepUser(c echo.Context, raw string) error {
	if raw == s.StoredUser(c) {
		if raw != "" {
			return nil
		}
		if _, err := c.Cookie(UserCookieName); err != nil {
			return nil
		}
	}
	if raw == "" {
		c.SetCookie(&http.Cookie{
			Name:     UserCookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secure,
			MaxAge:   -1,
		})
		return nil
	}
	token, err := s.SignUser(raw)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     UserCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(s.ttl),
	})
	return nil
}

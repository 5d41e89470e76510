// Package middleware provides session, logging, tracing and rate limiting middleware.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "warbler_session"

	sessionIssuer   = "warbler"
	revokedKeyFmt   = "blacklist:%s"
	userIDLocalsKey = "userID"
)

// ErrSessionRevoked is returned when a token was invalidated by logout.
var ErrSessionRevoked = errors.New("session revoked")

// Session is the verified content of a session token.
type Session struct {
	UserID    uint
	TokenID   string
	ExpiresAt time.Time
}

// SessionManager issues, verifies and revokes session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	rdb    *redis.Client
}

// NewSessionManager builds a SessionManager. rdb may be nil, in which case logout
// only clears the cookie.
func NewSessionManager(secret string, ttl time.Duration, secure bool, rdb *redis.Client) *SessionManager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		rdb:    rdb,
	}
}

// Issue signs a new token for userID.
func (m *SessionManager) Issue(userID uint) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    sessionIssuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a token and reports the session it carries.
func (m *SessionManager) Parse(ctx context.Context, tokenString string) (*Session, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return nil, fmt.Errorf("invalid session subject %q", claims.Subject)
	}

	revoked, err := m.isRevoked(ctx, claims.ID)
	if err != nil {
		// Fail open: an unreachable Redis must not log everyone out.
		Logger.WarnContext(ctx, "session revocation check failed", slog.String("error", err.Error()))
	}
	if revoked {
		return nil, ErrSessionRevoked
	}

	return &Session{
		UserID:    uint(userID),
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (m *SessionManager) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if m.rdb == nil || tokenID == "" {
		return false, nil
	}
	n, err := m.rdb.Exists(ctx, fmt.Sprintf(revokedKeyFmt, tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Revoke blacklists a token until it would have expired anyway.
func (m *SessionManager) Revoke(ctx context.Context, s *Session) error {
	if m.rdb == nil || s == nil || s.TokenID == "" {
		return nil
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return m.rdb.Set(ctx, fmt.Sprintf(revokedKeyFmt, s.TokenID), "1", ttl).Err()
}

// Login issues a session cookie for userID and marks the request as authenticated.
func (m *SessionManager) Login(c *fiber.Ctx, userID uint) error {
	token, expiresAt, err := m.Issue(userID)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	setCurrentUserID(c, userID)
	SessionEvents.WithLabelValues("login").Inc()
	return nil
}

// Logout revokes the current token (if any) and clears the cookie.
func (m *SessionManager) Logout(c *fiber.Ctx) error {
	if raw := c.Cookies(SessionCookieName); raw != "" {
		if s, err := m.Parse(c.UserContext(), raw); err == nil {
			if err := m.Revoke(c.UserContext(), s); err != nil {
				Logger.WarnContext(c.UserContext(), "failed to revoke session", slog.String("error", err.Error()))
			}
		}
	}
	m.Clear(c)
	SessionEvents.WithLabelValues("logout").Inc()
	return nil
}

// Clear drops the session cookie and returns the request to the anonymous state.
func (m *SessionManager) Clear(c *fiber.Ctx) {
	expireCookie(c, SessionCookieName)
	c.Locals(userIDLocalsKey, nil)
	c.SetUserContext(WithUserID(c.UserContext(), 0))
}

// Load reads the session cookie on every request. A valid session stores the user
// id in Fiber locals and in the request context; anything else is anonymous.
func (m *SessionManager) Load() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(SessionCookieName)
		if raw == "" {
			return c.Next()
		}

		s, err := m.Parse(c.UserContext(), raw)
		if err != nil {
			m.Clear(c)
			return c.Next()
		}

		setCurrentUserID(c, s.UserID)
		return c.Next()
	}
}

// CurrentUserID reports the authenticated user id of the request.
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	uid, ok := c.Locals(userIDLocalsKey).(uint)
	return uid, ok && uid != 0
}

func setCurrentUserID(c *fiber.Ctx, userID uint) {
	c.Locals(userIDLocalsKey, userID)
	c.SetUserContext(WithUserID(c.UserContext(), userID))
}

// LoginRequired redirects anonymous requests to the landing page.
func LoginRequired(c *fiber.Ctx) error {
	if _, ok := CurrentUserID(c); !ok {
		Flash(c, FlashDanger, "Access unauthorized.")
		return c.Redirect("/", fiber.StatusFound)
	}
	return c.Next()
}

func expireCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicdesk/dashboard/internal/auth"
	"github.com/clinicdesk/dashboard/pkg/logging"
)

// SessionCookie is the cookie carrying the signed dashboard session token.
const SessionCookie = "clinicdesk_session"

type sessionContextKey struct{}

// Sessions mints and verifies the signed session cookie that ties a browser
// to the provider session held by the auth manager.
type Sessions struct {
	secret  []byte
	ttl     time.Duration
	manager *auth.Manager
	logger  *logging.Logger
}

// NewSessions creates the session cookie layer. The secret signs tokens with
// HMAC-SHA256.
func NewSessions(secret string, ttl time.Duration, manager *auth.Manager, logger *logging.Logger) *Sessions {
	if secret == "" {
		panic("middleware: session secret required")
	}
	if manager == nil {
		panic("middleware: auth manager required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, manager: manager, logger: logger}
}

// Issue sets a signed session cookie for the given provider session.
func (s *Sessions) Issue(w http.ResponseWriter, session *auth.Session) error {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   session.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("middleware: failed to sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Require rejects requests without a valid session cookie bound to the
// currently signed-in user.
func (s *Sessions) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			unauthorized(w, "Authentication required")
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		}, jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			s.logger.Warn("rejected session token", "error", err)
			unauthorized(w, "Session is invalid or expired")
			return
		}

		session := s.manager.Current()
		if session == nil || session.UserID != claims.Subject {
			unauthorized(w, "Session is no longer signed in")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFromContext returns the provider session attached by Require, or
// nil.
func SessionFromContext(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionContextKey{}).(*auth.Session)
	return session
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

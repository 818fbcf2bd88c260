package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Keburichi/excelbot/internal/redact"
)

// SessionCookie carries the signed session token issued after Discord login.
const SessionCookie = "excelsior_session"

type sessionClaims struct {
	jwt.RegisteredClaims
}

// IssueToken signs a session token for a discord id. Roles are resolved per
// request from the directory, not baked into the token, so a promotion or
// kick takes effect without reissuing.
func IssueToken(secret, discordID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   discordID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, raw string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

type callerKey struct{}

// callerID returns the authenticated discord id, empty for anonymous.
func callerID(ctx context.Context) string {
	id, _ := ctx.Value(callerKey{}).(string)
	return id
}

// withCaller resolves the session token (cookie or bearer header) into a
// caller id and a redaction view on the request context. Invalid or missing
// tokens degrade to anonymous rather than failing; handlers that need an
// identity check callerID themselves.
func (s *Server) withCaller(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			raw = c.Value
		}
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimPrefix(h, "Bearer ")
		}

		ctx := r.Context()
		if raw != "" {
			if id, err := parseToken(s.secret, raw); err == nil && id != "" {
				view := redact.View{}
				if m, err := s.members.GetByDiscordID(ctx, id); err == nil {
					view = redact.View{Admin: m.IsAdmin, Member: m.IsMember}
				}
				ctx = context.WithValue(ctx, callerKey{}, id)
				ctx = redact.WithView(ctx, view)
			}
		}
		next(w, r.WithContext(ctx))
	}
}

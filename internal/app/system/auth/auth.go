// Package auth implements the bearer-token gate in front of every
// authenticated route. Each request walks the same checks in order:
// extract the token, refuse blacklisted tokens, verify the signature and
// lifetime, confirm the issuing user still exists and is active, confirm
// the token still has a live session row (server-side logout and eviction
// kill tokens that are otherwise cryptographically fine), then attach the
// user and raw token to the request context.
package auth

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/taskforge/taskforge/internal/app/system/apperrors"
	"github.com/taskforge/taskforge/internal/app/system/render"
	"github.com/taskforge/taskforge/internal/app/system/token"
	"github.com/taskforge/taskforge/internal/domain/models"
)

// SessionReader is the slice of the session store the gate needs.
type SessionReader interface {
	GetByToken(ctx context.Context, tok string) (*models.Session, error)
	DeleteByToken(ctx context.Context, tok string) error
}

// BlacklistReader answers whether a token has been revoked.
type BlacklistReader interface {
	Contains(ctx context.Context, tok string) (bool, error)
}

// UserReader loads the account behind a token's subject claim.
type UserReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Gate verifies bearer tokens against the session and blacklist state.
type Gate struct {
	Tokens    *token.Service
	Sessions  SessionReader
	Blacklist BlacklistReader
	Users     UserReader
	Log       *zap.Logger
}

type ctxKey int

const (
	currentUserKey ctxKey = iota
	currentTokenKey
)

// CurrentUser returns the authenticated user placed in context by the gate.
func CurrentUser(r *http.Request) (*models.User, bool) {
	u, ok := r.Context().Value(currentUserKey).(*models.User)
	return u, ok
}

// CurrentToken returns the raw bearer token for the request.
func CurrentToken(r *http.Request) (string, bool) {
	t, ok := r.Context().Value(currentTokenKey).(string)
	return t, ok
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", false
	}
	return tok, true
}

// RequireAuth is the gate middleware for authenticated routes.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := BearerToken(r)
		if !ok {
			render.Fail(w, http.StatusUnauthorized, "authentication required")
			return
		}

		ctx := r.Context()

		// A storage failure here is not an auth verdict; refusing with 401
		// would tell the client to log in again for an outage on our side.
		blocked, err := g.Blacklist.Contains(ctx, raw)
		if err != nil {
			render.Error(w, g.Log, apperrors.Storage("could not verify token", err))
			return
		}
		if blocked {
			render.Fail(w, http.StatusUnauthorized, "token has been revoked")
			return
		}

		claims, err := g.Tokens.Verify(raw)
		if err != nil {
			if err == token.ErrTokenExpired {
				// The session row backing an expired token is dead weight;
				// reap it now instead of waiting for the janitor.
				if sess, serr := g.Sessions.GetByToken(ctx, raw); serr == nil {
					g.Log.Debug("removing session for expired token",
						zap.String("session_id", sess.ID.Hex()))
				}
				_ = g.Sessions.DeleteByToken(ctx, raw)
				render.Fail(w, http.StatusUnauthorized, "token expired")
				return
			}
			render.Fail(w, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID())
		if err != nil {
			render.Fail(w, http.StatusUnauthorized, "invalid token")
			return
		}
		user, err := g.Users.GetByID(ctx, userID)
		if err != nil {
			// Account deleted after the token was issued.
			render.Fail(w, http.StatusUnauthorized, "user no longer exists")
			return
		}
		if user.Disabled() {
			render.Fail(w, http.StatusUnauthorized, "account disabled")
			return
		}

		sess, err := g.Sessions.GetByToken(ctx, raw)
		if err != nil {
			// No session row: logged out server-side or evicted by a newer
			// login. The token itself may still verify.
			render.Fail(w, http.StatusUnauthorized, "session is no longer valid")
			return
		}
		if sess.Expired(time.Now()) {
			_ = g.Sessions.DeleteByToken(ctx, raw)
			render.Fail(w, http.StatusUnauthorized, "session expired")
			return
		}

		rctx := context.WithValue(ctx, currentUserKey, user)
		rctx = context.WithValue(rctx, currentTokenKey, raw)
		next.ServeHTTP(w, r.WithContext(rctx))
	})
}

// RequireAdmin refuses non-admin users. Compose after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			render.Fail(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !u.IsAdmin() {
			render.Fail(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithTestUser injects a user and raw token into the request context,
// bypassing the gate. For handler tests only.
func WithTestUser(r *http.Request, u *models.User, rawToken string) *http.Request {
	ctx := context.WithValue(r.Context(), currentUserKey, u)
	ctx = context.WithValue(ctx, currentTokenKey, rawToken)
	return r.WithContext(ctx)
}

// ClientIP extracts the originating client address, preferring proxy
// headers over the socket peer.
func ClientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if i := strings.Index(xf, ","); i >= 0 {
			return strings.TrimSpace(xf[:i])
		}
		return strings.TrimSpace(xf)
	}
	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		return strings.TrimSpace(xr)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

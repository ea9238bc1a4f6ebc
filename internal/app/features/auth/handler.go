// Package auth implements registration, login, and session management
// endpoints. Logout semantics: the session row dies immediately and the
// token goes on the blacklist until its own natural expiry, so a copied
// token cannot outlive the logout.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskforge/taskforge/internal/app/store/blacklist"
	sessionstore "github.com/taskforge/taskforge/internal/app/store/sessions"
	userstore "github.com/taskforge/taskforge/internal/app/store/users"
	"github.com/taskforge/taskforge/internal/app/system/apperrors"
	gate "github.com/taskforge/taskforge/internal/app/system/auth"
	"github.com/taskforge/taskforge/internal/app/system/normalize"
	"github.com/taskforge/taskforge/internal/app/system/render"
	"github.com/taskforge/taskforge/internal/app/system/timeouts"
	"github.com/taskforge/taskforge/internal/app/system/token"
	"github.com/taskforge/taskforge/internal/domain/models"
)

// Handler holds the auth feature's dependencies.
type Handler struct {
	Users     *userstore.Store
	Sessions  *sessionstore.Store
	Blacklist *blacklist.Store
	Tokens    *token.Service
	Log       *zap.Logger
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := render.DecodeBody(r, &req); err != nil {
		render.Error(w, h.Log, err)
		return
	}

	req.FullName = normalize.Name(req.FullName)
	req.Username = normalize.Username(req.Username)
	req.Email = normalize.Email(req.Email)

	if err := validateRegistration(req); err != nil {
		render.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	// Pre-checks give precise messages; the unique indexes stay
	// authoritative under races.
	if taken, err := h.Users.EmailExists(ctx, req.Email); err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not check email", err))
		return
	} else if taken {
		render.Error(w, h.Log, apperrors.Conflict("email is already registered"))
		return
	}
	if taken, err := h.Users.UsernameExists(ctx, req.Username); err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not check username", err))
		return
	} else if taken {
		render.Error(w, h.Log, apperrors.Conflict("username is already taken"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not hash password", err))
		return
	}

	user, err := h.Users.Create(ctx, models.User{
		FullName:     req.FullName,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         "user",
	})
	if err != nil {
		if err == userstore.ErrDuplicate {
			render.Error(w, h.Log, apperrors.Conflict(err.Error()))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not create user", err))
		return
	}

	raw, exp, err := h.Tokens.Issue(user.ID.Hex(), user.Role, time.Now())
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not issue token", err))
		return
	}
	if err := h.openSession(ctx, r, &user, raw, exp); err != nil {
		render.Error(w, h.Log, err)
		return
	}

	h.Log.Info("user registered",
		zap.String("user_id", user.ID.Hex()),
		zap.String("username", user.Username))
	render.Success(w, http.StatusCreated, "registration successful", authResponse{Token: raw, User: &user})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := render.DecodeBody(r, &req); err != nil {
		render.Error(w, h.Log, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		render.Error(w, h.Log, apperrors.Validation("email and password are required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		// Same message for unknown email and bad password.
		render.Error(w, h.Log, apperrors.Authentication("invalid email or password"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		render.Error(w, h.Log, apperrors.Authentication("invalid email or password"))
		return
	}
	if user.Disabled() {
		render.Error(w, h.Log, apperrors.Authentication("account disabled"))
		return
	}

	raw, exp, err := h.Tokens.Issue(user.ID.Hex(), user.Role, time.Now())
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not issue token", err))
		return
	}
	if err := h.openSession(ctx, r, user, raw, exp); err != nil {
		render.Error(w, h.Log, err)
		return
	}

	h.Log.Info("user logged in", zap.String("user_id", user.ID.Hex()))
	render.Success(w, http.StatusOK, "login successful", authResponse{Token: raw, User: user})
}

// openSession records the login and blacklists any tokens evicted by the
// per-user session cap.
func (h *Handler) openSession(ctx context.Context, r *http.Request, user *models.User, raw string, exp time.Time) error {
	_, evicted, err := h.Sessions.Create(ctx, models.Session{
		UserID:    user.ID,
		Token:     raw,
		ExpiresAt: exp,
		Device:    r.UserAgent(),
		IPAddress: gate.ClientIP(r),
	})
	if err != nil {
		return apperrors.Storage("could not create session", err)
	}
	for _, tok := range evicted {
		expAt, ok := token.ExpiryOf(tok)
		if !ok {
			expAt = time.Now().Add(h.Tokens.TTL())
		}
		if err := h.Blacklist.Add(ctx, tok, user.ID, expAt); err != nil {
			h.Log.Warn("failed to blacklist evicted token", zap.Error(err))
		}
	}
	if len(evicted) > 0 {
		h.Log.Info("evicted oldest sessions at cap",
			zap.String("user_id", user.ID.Hex()),
			zap.Int("evicted", len(evicted)))
	}
	return nil
}

// Logout handles POST /auth/logout: ends the caller's current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)
	raw, ok := gate.CurrentToken(r)
	if !ok {
		render.Error(w, h.Log, apperrors.Authentication("authentication required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.revokeToken(ctx, user.ID, raw); err != nil {
		render.Error(w, h.Log, err)
		return
	}

	render.Success(w, http.StatusOK, "logged out", nil)
}

// sessionView is the wire shape for GET /auth/sessions.
type sessionView struct {
	ID               string    `json:"id"`
	Device           string    `json:"device,omitempty"`
	IPAddress        string    `json:"ip_address,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	DaysActive       int       `json:"daysActive"`
	IsCurrentSession bool      `json:"isCurrentSession"`
}

// ListSessions handles GET /auth/sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)
	raw, _ := gate.CurrentToken(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sessions, err := h.Sessions.ListByUser(ctx, user.ID)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not list sessions", err))
		return
	}

	now := time.Now()
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:               s.ID.Hex(),
			Device:           s.Device,
			IPAddress:        s.IPAddress,
			CreatedAt:        s.CreatedAt,
			ExpiresAt:        s.ExpiresAt,
			DaysActive:       s.DaysActive(now),
			IsCurrentSession: s.Token == raw,
		})
	}

	render.JSON(w, http.StatusOK, map[string]any{"sessions": views, "count": len(views)})
}

// LogoutAll handles DELETE /auth/sessions: ends every session the caller
// has, blacklisting each token. Tokens that fail to decode are skipped and
// the skip count reported.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	sessions, err := h.Sessions.ListByUser(ctx, user.ID)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not list sessions", err))
		return
	}

	skipped := 0
	for _, s := range sessions {
		expAt, ok := token.ExpiryOf(s.Token)
		if !ok {
			skipped++
			continue
		}
		if err := h.Blacklist.Add(ctx, s.Token, user.ID, expAt); err != nil {
			h.Log.Warn("failed to blacklist session token", zap.Error(err))
			skipped++
		}
	}

	deleted, err := h.Sessions.DeleteAllForUser(ctx, user.ID)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not delete sessions", err))
		return
	}

	if skipped > 0 {
		h.Log.Warn("some session tokens were not blacklisted",
			zap.String("user_id", user.ID.Hex()),
			zap.Int("skipped", skipped))
	}
	render.Success(w, http.StatusOK, "logged out of all sessions", map[string]any{
		"sessionsEnded":    deleted,
		"tokensNotRevoked": skipped,
	})
}

// LogoutByID handles DELETE /auth/sessions/{id}: ends one session, which
// may be the caller's current one or another device's.
func (h *Handler) LogoutByID(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)
	raw, _ := gate.CurrentToken(r)

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid session id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sess, err := h.Sessions.GetByID(ctx, user.ID, id)
	if err != nil {
		if err == sessionstore.ErrNotFound {
			render.Error(w, h.Log, apperrors.NotFound("session not found"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not load session", err))
		return
	}

	if err := h.revokeToken(ctx, user.ID, sess.Token); err != nil {
		render.Error(w, h.Log, err)
		return
	}

	msg := "session ended"
	if sess.Token == raw {
		msg = "current session ended; this token is no longer valid"
	}
	render.Success(w, http.StatusOK, msg, nil)
}

// revokeToken deletes the session for raw and blacklists it until its own
// expiry.
func (h *Handler) revokeToken(ctx context.Context, userID primitive.ObjectID, raw string) error {
	if err := h.Sessions.DeleteByToken(ctx, raw); err != nil {
		return apperrors.Storage("could not end session", err)
	}
	expAt, ok := token.ExpiryOf(raw)
	if !ok {
		expAt = time.Now().Add(h.Tokens.TTL())
	}
	if err := h.Blacklist.Add(ctx, raw, userID, expAt); err != nil {
		return apperrors.Storage("could not revoke token", err)
	}
	return nil
}

// ForgotPassword handles POST /auth/forgot-password. Password reset
// delivery is not wired up; the endpoint exists so clients get a stable
// answer instead of a 404.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	render.Fail(w, http.StatusNotImplemented, "password reset is not available")
}

func validateRegistration(req registerRequest) error {
	if req.FullName == "" {
		return apperrors.Validation("full name is required")
	}
	if len(req.Username) < 3 {
		return apperrors.Validation("username must be at least 3 characters")
	}
	if !strings.Contains(req.Email, "@") || len(req.Email) < 3 {
		return apperrors.Validation("a valid email is required")
	}
	if len(req.Password) < 8 {
		return apperrors.Validation("password must be at least 8 characters")
	}
	return nil
}

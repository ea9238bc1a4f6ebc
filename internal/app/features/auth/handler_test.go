// internal/app/features/auth/handler_test.go
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/taskforge/taskforge/internal/app/store/blacklist"
	sessionstore "github.com/taskforge/taskforge/internal/app/store/sessions"
	userstore "github.com/taskforge/taskforge/internal/app/store/users"
	gate "github.com/taskforge/taskforge/internal/app/system/auth"
	"github.com/taskforge/taskforge/internal/app/system/token"
	"github.com/taskforge/taskforge/internal/testutil"
)

// world wires the auth feature against a throwaway database, with routes
// and the gate mounted the same way the app does it.
type world struct {
	handler *Handler
	router  chi.Router
}

func newWorld(t *testing.T, maxSessions int) *world {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)

	users := userstore.New(db)
	sessions := sessionstore.New(db, maxSessions)
	bl := blacklist.New(db)
	for name, fn := range map[string]func() error{
		"users":     func() error { return users.EnsureIndexes(ctx) },
		"sessions":  func() error { return sessions.EnsureIndexes(ctx) },
		"blacklist": func() error { return bl.EnsureIndexes(ctx) },
	} {
		if err := fn(); err != nil {
			t.Fatalf("EnsureIndexes(%s) failed: %v", name, err)
		}
	}

	tokens, err := token.New("test-secret-0123456789", "15m")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	h := &Handler{
		Users:     users,
		Sessions:  sessions,
		Blacklist: bl,
		Tokens:    tokens,
		Log:       zap.NewNop(),
	}
	g := &gate.Gate{
		Tokens:    tokens,
		Sessions:  sessions,
		Blacklist: bl,
		Users:     users,
		Log:       zap.NewNop(),
	}

	r := chi.NewRouter()
	r.Mount("/auth", Routes(h, g))
	return &world{handler: h, router: r}
}

func (w *world) do(t *testing.T, method, target, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, target, body)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	w.router.ServeHTTP(rec, req)
	return rec
}

func registerPayload(email, username string) map[string]string {
	return map[string]string{
		"full_name": "Test Worker",
		"username":  username,
		"email":     email,
		"password":  "password123",
	}
}

// tokenFrom pulls the bearer token out of a register/login response.
func tokenFrom(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := testutil.DecodeEnvelope(t, rec)
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode auth response: %v", err)
	}
	if data.Token == "" {
		t.Fatalf("no token in response: %s", rec.Body.String())
	}
	return data.Token
}

func TestRegisterLoginFlow(t *testing.T) {
	w := newWorld(t, 5)

	rec := w.do(t, "POST", "/auth/register", "", registerPayload("worker@example.com", "worker"))
	testutil.AssertStatus(t, rec, http.StatusCreated)
	tok := tokenFrom(t, rec)

	// The register token is immediately usable.
	rec = w.do(t, "GET", "/auth/sessions", tok, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	// Duplicate email and username are both conflicts.
	rec = w.do(t, "POST", "/auth/register", "", registerPayload("worker@example.com", "other"))
	testutil.AssertStatus(t, rec, http.StatusConflict)
	rec = w.do(t, "POST", "/auth/register", "", registerPayload("other@example.com", "worker"))
	testutil.AssertStatus(t, rec, http.StatusConflict)

	// Login with the right and wrong password.
	rec = w.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "worker@example.com", "password": "password123",
	})
	testutil.AssertStatus(t, rec, http.StatusOK)

	rec = w.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "worker@example.com", "password": "wrong-password",
	})
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)

	// Unknown email gets the same message as a bad password.
	rec = w.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "password123",
	})
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
	if env := testutil.DecodeEnvelope(t, rec); env.Message != "invalid email or password" {
		t.Errorf("unknown-email message %q leaks account existence", env.Message)
	}
}

func TestRegisterValidation(t *testing.T) {
	w := newWorld(t, 5)

	cases := []struct {
		name    string
		payload map[string]string
	}{
		{"missing name", map[string]string{"username": "worker", "email": "a@b.c", "password": "password123"}},
		{"short username", map[string]string{"full_name": "W", "username": "ab", "email": "a@b.c", "password": "password123"}},
		{"bad email", map[string]string{"full_name": "W", "username": "worker", "email": "not-an-email", "password": "password123"}},
		{"short password", map[string]string{"full_name": "W", "username": "worker", "email": "a@b.c", "password": "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := w.do(t, "POST", "/auth/register", "", tc.payload)
			testutil.AssertStatus(t, rec, http.StatusBadRequest)
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	w := newWorld(t, 5)

	rec := w.do(t, "POST", "/auth/register", "", registerPayload("worker@example.com", "worker"))
	testutil.AssertStatus(t, rec, http.StatusCreated)
	tok := tokenFrom(t, rec)

	rec = w.do(t, "POST", "/auth/logout", tok, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	// The token still verifies cryptographically but is blacklisted.
	rec = w.do(t, "GET", "/auth/sessions", tok, nil)
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
	if env := testutil.DecodeEnvelope(t, rec); env.Message != "token has been revoked" {
		t.Errorf("post-logout message = %q", env.Message)
	}

	// Logging out twice: the token is already blacklisted at the gate.
	rec = w.do(t, "POST", "/auth/logout", tok, nil)
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
}

func TestSessionCapEvictsOldestLogin(t *testing.T) {
	w := newWorld(t, 2)

	rec := w.do(t, "POST", "/auth/register", "", registerPayload("worker@example.com", "worker"))
	testutil.AssertStatus(t, rec, http.StatusCreated)
	firstTok := tokenFrom(t, rec)

	login := map[string]string{"email": "worker@example.com", "password": "password123"}

	// Two more logins push the register session out of the cap of 2.
	var lastTok string
	for i := 0; i < 2; i++ {
		rec = w.do(t, "POST", "/auth/login", "", login)
		testutil.AssertStatus(t, rec, http.StatusOK)
		lastTok = tokenFrom(t, rec)
	}

	// The evicted token is dead even though it has not expired.
	rec = w.do(t, "GET", "/auth/sessions", firstTok, nil)
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)

	// The newest token sees exactly two sessions.
	rec = w.do(t, "GET", "/auth/sessions", lastTok, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)
	env := testutil.DecodeEnvelope(t, rec)
	var data struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode sessions response: %v", err)
	}
	if data.Count != 2 {
		t.Errorf("session count = %d, want 2", data.Count)
	}
}

func TestLogoutAllEndsEverySession(t *testing.T) {
	w := newWorld(t, 5)

	rec := w.do(t, "POST", "/auth/register", "", registerPayload("worker@example.com", "worker"))
	testutil.AssertStatus(t, rec, http.StatusCreated)
	tok1 := tokenFrom(t, rec)

	rec = w.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "worker@example.com", "password": "password123",
	})
	testutil.AssertStatus(t, rec, http.StatusOK)
	tok2 := tokenFrom(t, rec)

	rec = w.do(t, "DELETE", "/auth/sessions", tok2, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)
	env := testutil.DecodeEnvelope(t, rec)
	var data struct {
		SessionsEnded    int `json:"sessionsEnded"`
		TokensNotRevoked int `json:"tokensNotRevoked"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode logout-all response: %v", err)
	}
	if data.SessionsEnded != 2 || data.TokensNotRevoked != 0 {
		t.Errorf("logout-all = %+v, want 2 ended, 0 skipped", data)
	}

	for i, tok := range []string{tok1, tok2} {
		rec = w.do(t, "GET", "/auth/sessions", tok, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("token %d still alive after logout-all (code %d)", i+1, rec.Code)
		}
	}
}

func TestLogoutSessionByID(t *testing.T) {
	w := newWorld(t, 5)

	rec := w.do(t, "POST", "/auth/register", "", registerPayload("worker@example.com", "worker"))
	testutil.AssertStatus(t, rec, http.StatusCreated)
	tok1 := tokenFrom(t, rec)

	rec = w.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "worker@example.com", "password": "password123",
	})
	testutil.AssertStatus(t, rec, http.StatusOK)
	tok2 := tokenFrom(t, rec)

	// From the second device, find the first session's id.
	rec = w.do(t, "GET", "/auth/sessions", tok2, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)
	env := testutil.DecodeEnvelope(t, rec)
	var data struct {
		Sessions []struct {
			ID               string `json:"id"`
			IsCurrentSession bool   `json:"isCurrentSession"`
		} `json:"sessions"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode sessions: %v", err)
	}
	if len(data.Sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(data.Sessions))
	}
	var otherID string
	for _, s := range data.Sessions {
		if !s.IsCurrentSession {
			otherID = s.ID
		}
	}
	if otherID == "" {
		t.Fatal("no non-current session found")
	}

	rec = w.do(t, "DELETE", fmt.Sprintf("/auth/sessions/%s", otherID), tok2, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	// The first device's token is dead; the second still works.
	rec = w.do(t, "GET", "/auth/sessions", tok1, nil)
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
	rec = w.do(t, "GET", "/auth/sessions", tok2, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)
}

func TestForgotPasswordNotImplemented(t *testing.T) {
	w := newWorld(t, 5)
	rec := w.do(t, "POST", "/auth/forgot-password", "", map[string]string{"email": "a@b.c"})
	testutil.AssertStatus(t, rec, http.StatusNotImplemented)
}

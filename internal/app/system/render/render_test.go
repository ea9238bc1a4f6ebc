// internal/app/system/render/render_test.go
package render

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/taskforge/taskforge/internal/app/system/apperrors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	return env
}

func TestJSONSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]int{"n": 3})

	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("content type: got %q", got)
	}
	env := decode(t, rec)
	if env.Status != "success" {
		t.Errorf("status: got %q, want success", env.Status)
	}
}

func TestErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err        error
		wantCode   int
		wantStatus string
	}{
		{apperrors.Validation("bad input"), http.StatusBadRequest, "fail"},
		{apperrors.Authentication("no token"), http.StatusUnauthorized, "fail"},
		{apperrors.Authorization("not yours"), http.StatusForbidden, "fail"},
		{apperrors.NotFound("missing"), http.StatusNotFound, "fail"},
		{apperrors.Conflict("already applied"), http.StatusConflict, "fail"},
		{apperrors.Storage("db down", errors.New("boom")), http.StatusInternalServerError, "error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		Error(rec, zap.NewNop(), tc.err)
		if rec.Code != tc.wantCode {
			t.Errorf("%v: status code got %d, want %d", tc.err, rec.Code, tc.wantCode)
		}
		env := decode(t, rec)
		if env.Status != tc.wantStatus {
			t.Errorf("%v: envelope status got %q, want %q", tc.err, env.Status, tc.wantStatus)
		}
	}
}

func TestErrorHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, zap.NewNop(), errors.New("connection string mongodb://secret@host"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status code: got %d, want 500", rec.Code)
	}
	env := decode(t, rec)
	if env.Message != "internal server error" {
		t.Errorf("internal details leaked: %q", env.Message)
	}
}

func TestDecodeBody(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"ok"}`, false},
		{"unknown field", `{"name":"ok","extra":1}`, true},
		{"trailing garbage", `{"name":"ok"}{"again":true}`, true},
		{"not json", `hello`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tc.body))
			var dst payload
			err := DecodeBody(r, &dst)
			if (err != nil) != tc.wantErr {
				t.Errorf("DecodeBody(%q) error = %v, wantErr %v", tc.body, err, tc.wantErr)
			}
			if err != nil {
				if _, ok := apperrors.As(err); !ok {
					t.Errorf("DecodeBody error is not an app error: %v", err)
				}
			}
		})
	}
}

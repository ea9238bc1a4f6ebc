// internal/app/bootstrap/routes_test.go
package bootstrap

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	appstore "github.com/taskforge/taskforge/internal/app/store/applications"
	"github.com/taskforge/taskforge/internal/app/store/blacklist"
	completedstore "github.com/taskforge/taskforge/internal/app/store/completed"
	sessionstore "github.com/taskforge/taskforge/internal/app/store/sessions"
	taskstore "github.com/taskforge/taskforge/internal/app/store/tasks"
	userstore "github.com/taskforge/taskforge/internal/app/store/users"
	"github.com/taskforge/taskforge/internal/app/system/token"
	"github.com/taskforge/taskforge/internal/app/system/uploads"
	"github.com/taskforge/taskforge/internal/testutil"
)

// fileHeader builds a real multipart.FileHeader the way an upload
// handler would receive one.
func fileHeader(t *testing.T, name, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("ParseMultipartForm failed: %v", err)
	}
	return req.MultipartForm.File["file"][0]
}

func buildTestHandler(t *testing.T, uploadDir string) (http.Handler, *uploads.Saver) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	tokens, err := token.New("test-secret-0123456789", "1h")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	saver := &uploads.Saver{BaseDir: uploadDir}
	deps := DBDeps{
		MongoClient:   db.Client(),
		MongoDatabase: db,
		Users:         userstore.New(db),
		Tasks:         taskstore.New(db),
		Apps:          appstore.New(db),
		Sessions:      sessionstore.New(db, 5),
		Blacklist:     blacklist.New(db),
		Completed:     completedstore.New(db),
		Tokens:        tokens,
		Uploads:       saver,
	}
	appCfg := AppConfig{
		UploadDir: uploadDir,
		UploadURL: "/files",
		BaseURL:   "http://localhost:8080",
	}

	h, err := BuildHandler(&config.CoreConfig{}, appCfg, deps, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}
	return h, saver
}

// A stored profile image must be fetchable at UploadURL + "/" + the path
// the saver returned, which is exactly the path handed back to clients.
func TestProfileImageServedFromUploadURL(t *testing.T) {
	h, saver := buildTestHandler(t, t.TempDir())

	sv, err := saver.Save(fileHeader(t, "avatar.png", "png-bytes"), "profiles")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/files/"+sv.Path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /files/%s = %d, want 200", sv.Path, rec.Code)
	}
	if got := rec.Body.String(); got != "png-bytes" {
		t.Errorf("served body = %q, want stored content", got)
	}
}

// Submission deliverables live under the same base directory but must
// never be reachable through the public static mount.
func TestSubmissionsNotPubliclyServed(t *testing.T) {
	h, saver := buildTestHandler(t, t.TempDir())

	sv, err := saver.Save(fileHeader(t, "report.pdf", "%PDF-1.4"), "submissions")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/files/"+sv.Path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /files/%s = %d, want 404", sv.Path, rec.Code)
	}
}

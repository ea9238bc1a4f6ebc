// internal/app/features/applications/handler_test.go
package applications

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	appstore "github.com/taskforge/taskforge/internal/app/store/applications"
	taskstore "github.com/taskforge/taskforge/internal/app/store/tasks"
	"github.com/taskforge/taskforge/internal/app/system/uploads"
	"github.com/taskforge/taskforge/internal/domain/models"
	"github.com/taskforge/taskforge/internal/testutil"
)

func newHandler(t *testing.T) (*Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)

	apps := appstore.New(db)
	if err := apps.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	h := &Handler{
		Apps:    apps,
		Tasks:   taskstore.New(db),
		Uploads: &uploads.Saver{BaseDir: t.TempDir()},
		Log:     zap.NewNop(),
	}
	return h, testutil.NewFixtures(t, db)
}

func TestApply(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	client := fx.CreateUser(ctx, "Client", "client", "client@example.com", "admin")
	worker := fx.CreateUser(ctx, "Worker", "worker", "worker@example.com", "user")
	task := fx.CreateTask(ctx, "Logo design", client.ID, 120)

	apply := func(u models.User, taskID string) *httptest.ResponseRecorder {
		req := testutil.NewJSONRequest(t, "POST", "/applications/apply/"+taskID, map[string]string{"message": "pick me"})
		req = testutil.WithUser(req, &u, "tok")
		req = testutil.WithChiURLParam(req, "taskId", taskID)
		rec := httptest.NewRecorder()
		h.Apply(rec, req)
		return rec
	}

	rec := apply(worker, task.ID.Hex())
	testutil.AssertStatus(t, rec, http.StatusCreated)

	// Applying twice to the same task is a conflict.
	rec = apply(worker, task.ID.Hex())
	testutil.AssertStatus(t, rec, http.StatusConflict)

	// The task owner cannot apply to their own task.
	rec = apply(client, task.ID.Hex())
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	// Unknown task.
	rec = apply(worker, "64b000000000000000000000")
	testutil.AssertStatus(t, rec, http.StatusNotFound)

	// The applicant is recorded on the task.
	got, err := h.Tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.Applicants) != 1 || got.Applicants[0] != worker.ID {
		t.Errorf("task applicants = %v, want [%s]", got.Applicants, worker.ID.Hex())
	}
}

func TestApplyClosedTask(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	client := fx.CreateUser(ctx, "Client", "client", "client@example.com", "admin")
	worker := fx.CreateUser(ctx, "Worker", "worker", "worker@example.com", "user")
	task := fx.CreateTask(ctx, "Old task", client.ID, 50)
	if err := h.Tasks.SetStatus(ctx, task.ID, models.TaskCompleted); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	req := testutil.NewJSONRequest(t, "POST", "/applications/apply/"+task.ID.Hex(), nil)
	req = testutil.WithUser(req, &worker, "tok")
	req = testutil.WithChiURLParam(req, "taskId", task.ID.Hex())
	rec := httptest.NewRecorder()
	h.Apply(rec, req)
	testutil.AssertStatus(t, rec, http.StatusConflict)
}

func TestUpdateProgressBounds(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	worker := fx.CreateUser(ctx, "Worker", "worker", "worker@example.com", "user")
	task := fx.CreateTask(ctx, "Task", worker.ID, 50)
	app := fx.CreateApplication(ctx, worker.ID, task.ID, models.ApplicationAccepted)

	setProgress := func(body map[string]int) *httptest.ResponseRecorder {
		req := testutil.NewJSONRequest(t, "PUT", "/applications/"+app.ID.Hex()+"/progress", body)
		req = testutil.WithUser(req, &worker, "tok")
		req = testutil.WithChiURLParam(req, "id", app.ID.Hex())
		rec := httptest.NewRecorder()
		h.UpdateProgress(rec, req)
		return rec
	}

	for _, bad := range []int{-1, 101} {
		rec := setProgress(map[string]int{"progress": bad})
		testutil.AssertStatus(t, rec, http.StatusBadRequest)
	}
	for _, ok := range []int{0, 50, 100} {
		rec := setProgress(map[string]int{"progress": ok})
		testutil.AssertStatus(t, rec, http.StatusOK)
	}
	// Missing field is rejected, not treated as zero.
	rec := setProgress(map[string]int{})
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	got, err := h.Apps.GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	owner := fx.CreateUser(ctx, "Owner", "owner", "owner@example.com", "user")
	stranger := fx.CreateUser(ctx, "Stranger", "stranger", "stranger@example.com", "user")
	admin := fx.CreateUser(ctx, "Admin", "admin", "admin@example.com", "admin")
	task := fx.CreateTask(ctx, "Task", admin.ID, 50)
	app := fx.CreateApplication(ctx, owner.ID, task.ID, models.ApplicationPending)

	get := func(u models.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/applications/"+app.ID.Hex(), nil)
		req = testutil.WithUser(req, &u, "tok")
		req = testutil.WithChiURLParam(req, "id", app.ID.Hex())
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		return rec
	}

	testutil.AssertStatus(t, get(owner), http.StatusOK)
	testutil.AssertStatus(t, get(stranger), http.StatusForbidden)
	testutil.AssertStatus(t, get(admin), http.StatusOK)
}

func TestWithdraw(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	worker := fx.CreateUser(ctx, "Worker", "worker", "worker@example.com", "user")
	admin := fx.CreateUser(ctx, "Admin", "admin", "admin@example.com", "admin")
	task := fx.CreateTask(ctx, "Task", admin.ID, 50)
	app := fx.CreateApplication(ctx, worker.ID, task.ID, models.ApplicationPending)

	withdraw := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("DELETE", "/applications/"+app.ID.Hex()+"/withdraw", nil)
		req = testutil.WithUser(req, &worker, "tok")
		req = testutil.WithChiURLParam(req, "id", app.ID.Hex())
		rec := httptest.NewRecorder()
		h.Withdraw(rec, req)
		return rec
	}

	testutil.AssertStatus(t, withdraw(), http.StatusOK)

	got, err := h.Apps.GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.ApplicationCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}

	// Cancelled is terminal: a second withdraw is a conflict.
	testutil.AssertStatus(t, withdraw(), http.StatusConflict)
}

func TestWithdrawRejectedApplication(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	worker := fx.CreateUser(ctx, "Worker", "worker", "worker@example.com", "user")
	task := fx.CreateTask(ctx, "Task", worker.ID, 50)
	app := fx.CreateApplication(ctx, worker.ID, task.ID, models.ApplicationRejected)

	req := httptest.NewRequest("DELETE", "/applications/"+app.ID.Hex()+"/withdraw", nil)
	req = testutil.WithUser(req, &worker, "tok")
	req = testutil.WithChiURLParam(req, "id", app.ID.Hex())
	rec := httptest.NewRecorder()
	h.Withdraw(rec, req)
	testutil.AssertStatus(t, rec, http.StatusConflict)
}

// multipartRequest builds a multipart POST with the given file names under
// the "files" field.
func multipartRequest(t *testing.T, target string, filenames []string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range filenames {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		if _, err := part.Write([]byte("%PDF-1.4 test content")); err != nil {
			t.Fatalf("write part failed: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart failed: %v", err)
	}
	req := httptest.NewRequest("POST", target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmitFiles(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	worker := fx.CreateUser(ctx, "Worker", "worker", "worker@example.com", "user")
	task := fx.CreateTask(ctx, "Task", worker.ID, 50)
	app := fx.CreateApplication(ctx, worker.ID, task.ID, models.ApplicationAccepted)

	submit := func(filenames []string) *httptest.ResponseRecorder {
		req := multipartRequest(t, "/applications/"+app.ID.Hex()+"/submit", filenames)
		req = testutil.WithUser(req, &worker, "tok")
		req = testutil.WithChiURLParam(req, "id", app.ID.Hex())
		rec := httptest.NewRecorder()
		h.Submit(rec, req)
		return rec
	}

	rec := submit([]string{"report.pdf", "notes.docx"})
	testutil.AssertStatus(t, rec, http.StatusCreated)

	got, err := h.Apps.GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.ApplicationSubmitted {
		t.Errorf("status after first submit = %q, want submitted", got.Status)
	}
	if got.SubmissionCount() != 2 {
		t.Errorf("submissions = %d, want 2", got.SubmissionCount())
	}
	if got.Progress != 25 {
		t.Errorf("progress = %d, want 25", got.Progress)
	}
	if got.DeliveredAt == nil {
		t.Error("delivered_at not set")
	}

	// Submitted applications cannot receive more files.
	rec = submit([]string{"more.pdf"})
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestSubmitAfterRevisionKeepsStatus(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	worker := fx.CreateUser(ctx, "Worker", "worker", "worker@example.com", "user")
	task := fx.CreateTask(ctx, "Task", worker.ID, 50)
	app := fx.CreateApplication(ctx, worker.ID, task.ID, models.ApplicationNeedsRevision)

	req := multipartRequest(t, "/applications/"+app.ID.Hex()+"/submit", []string{"revised.pdf"})
	req = testutil.WithUser(req, &worker, "tok")
	req = testutil.WithChiURLParam(req, "id", app.ID.Hex())
	rec := httptest.NewRecorder()
	h.Submit(rec, req)
	testutil.AssertStatus(t, rec, http.StatusCreated)

	got, err := h.Apps.GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	// A resubmission after a revision request stays in needs_revision
	// until the next review.
	if got.Status != models.ApplicationNeedsRevision {
		t.Errorf("status after resubmit = %q, want needs_revision", got.Status)
	}
	if got.SubmissionCount() != 1 {
		t.Errorf("submissions = %d, want 1", got.SubmissionCount())
	}
}

func TestSubmitValidation(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	worker := fx.CreateUser(ctx, "Worker", "worker", "worker@example.com", "user")
	task := fx.CreateTask(ctx, "Task", worker.ID, 50)
	app := fx.CreateApplication(ctx, worker.ID, task.ID, models.ApplicationAccepted)

	submit := func(filenames []string) *httptest.ResponseRecorder {
		req := multipartRequest(t, "/applications/"+app.ID.Hex()+"/submit", filenames)
		req = testutil.WithUser(req, &worker, "tok")
		req = testutil.WithChiURLParam(req, "id", app.ID.Hex())
		rec := httptest.NewRecorder()
		h.Submit(rec, req)
		return rec
	}

	// No files.
	testutil.AssertStatus(t, submit(nil), http.StatusBadRequest)

	// Too many files.
	testutil.AssertStatus(t, submit([]string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf"}), http.StatusBadRequest)

	// Wrong type.
	testutil.AssertStatus(t, submit([]string{"malware.exe"}), http.StatusBadRequest)

	// Nothing was recorded.
	got, err := h.Apps.GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.SubmissionCount() != 0 {
		t.Errorf("submissions = %d, want 0", got.SubmissionCount())
	}
	if got.Status != models.ApplicationAccepted {
		t.Errorf("status = %q, want accepted", got.Status)
	}
}

func TestSubmitPendingApplication(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	worker := fx.CreateUser(ctx, "Worker", "worker", "worker@example.com", "user")
	task := fx.CreateTask(ctx, "Task", worker.ID, 50)
	app := fx.CreateApplication(ctx, worker.ID, task.ID, models.ApplicationPending)

	req := multipartRequest(t, "/applications/"+app.ID.Hex()+"/submit", []string{"early.pdf"})
	req = testutil.WithUser(req, &worker, "tok")
	req = testutil.WithChiURLParam(req, "id", app.ID.Hex())
	rec := httptest.NewRecorder()
	h.Submit(rec, req)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	got, err := h.Apps.GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.SubmissionCount() != 0 {
		t.Errorf("submissions = %d, want 0", got.SubmissionCount())
	}
}

func TestMyStats(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	worker := fx.CreateUser(ctx, "Worker", "worker", "worker@example.com", "user")
	for _, status := range []models.ApplicationStatus{
		models.ApplicationPending,
		models.ApplicationAccepted,
		models.ApplicationCompleted,
	} {
		task := fx.CreateTask(ctx, "Task "+string(status), worker.ID, 50)
		fx.CreateApplication(ctx, worker.ID, task.ID, status)
	}

	req := httptest.NewRequest("GET", "/applications/my/stats", nil)
	req = testutil.WithUser(req, &worker, "tok")
	rec := httptest.NewRecorder()
	h.MyStats(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	env := testutil.DecodeEnvelope(t, rec)
	var data struct {
		Total    int64            `json:"total"`
		ByStatus map[string]int64 `json:"by_status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if data.Total != 3 {
		t.Errorf("total = %d, want 3", data.Total)
	}
	if data.ByStatus["pending"] != 1 || data.ByStatus["accepted"] != 1 || data.ByStatus["completed"] != 1 {
		t.Errorf("by_status = %v", data.ByStatus)
	}
}

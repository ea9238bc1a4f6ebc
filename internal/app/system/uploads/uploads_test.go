// internal/app/system/uploads/uploads_test.go
package uploads

import (
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
)

func header(name, contentType string, size int64) *multipart.FileHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	return &multipart.FileHeader{
		Filename: name,
		Header:   h,
		Size:     size,
	}
}

func TestValidateSubmission(t *testing.T) {
	cases := []struct {
		name    string
		fh      *multipart.FileHeader
		wantErr bool
	}{
		{"pdf ok", header("report.pdf", "application/pdf", 1 << 20), false},
		{"doc ok", header("report.doc", "application/msword", 1 << 20), false},
		{"docx ok", header("report.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", 1 << 20), false},
		{"extension rescue", header("report.pdf", "application/octet-stream", 1 << 20), false},
		{"too big", header("report.pdf", "application/pdf", MaxSubmissionFileSize + 1), true},
		{"exe rejected", header("virus.exe", "application/octet-stream", 1 << 10), true},
		{"png rejected", header("image.png", "image/png", 1 << 10), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSubmission(tc.fh)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateSubmission(%s): err = %v, wantErr %v", tc.fh.Filename, err, tc.wantErr)
			}
		})
	}
}

func TestValidateImage(t *testing.T) {
	if err := ValidateImage(header("avatar.png", "image/png", 1<<20)); err != nil {
		t.Errorf("valid image rejected: %v", err)
	}
	if err := ValidateImage(header("avatar.png", "image/png", MaxImageSize+1)); err == nil {
		t.Error("oversized image accepted")
	}
	if err := ValidateImage(header("doc.pdf", "application/pdf", 1<<10)); err == nil {
		t.Error("non-image accepted")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"my file (1).pdf", "my_file__1_.pdf"},
		{"", "file"},
		{"///", "file"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	long := strings.Repeat("a", 200) + ".pdf"
	got := SanitizeFilename(long)
	if len(got) > 100 {
		t.Errorf("sanitized name too long: %d", len(got))
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Errorf("extension not preserved: %q", got)
	}
}

func TestSaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	s := &Saver{BaseDir: dir}

	// Build a real multipart file via the writer so Open() works.
	var buf strings.Builder
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", "hello.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 test")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	w.Close()

	reader := multipart.NewReader(strings.NewReader(buf.String()), w.Boundary())
	form, err := reader.ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}
	defer form.RemoveAll()

	fh := form.File["files"][0]
	saved, err := s.Save(fh, "submissions")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.OriginalName != "hello.pdf" {
		t.Errorf("OriginalName = %q", saved.OriginalName)
	}
	if !strings.HasPrefix(saved.Path, "submissions/") {
		t.Errorf("Path = %q, want submissions/ prefix", saved.Path)
	}
	if saved.Size == 0 {
		t.Error("Size = 0")
	}

	if err := s.Remove(saved.Path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// removing again is fine
	if err := s.Remove(saved.Path); err != nil {
		t.Fatalf("Remove (second): %v", err)
	}
}

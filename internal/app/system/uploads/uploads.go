// Package uploads validates and stores multipart file uploads on local
// disk. Stored names are uuid-prefixed, sanitized versions of the original
// filename under a date directory, so two users uploading "report.pdf" on
// the same day never collide.
package uploads

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/app/system/apperrors"
)

// Limits for deliverable submissions.
const (
	MaxSubmissionFiles    = 5
	MaxSubmissionFileSize = 10 << 20 // 10MB
	MaxImageSize          = 5 << 20  // 5MB
)

// submissionTypes maps accepted deliverable MIME types to a canonical
// extension check. DOC/DOCX arrive with vendor types from most browsers.
var submissionTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

var submissionExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// Saver writes uploads under a base directory.
type Saver struct {
	BaseDir string
}

// Saved describes one stored file.
type Saved struct {
	StoredName   string
	OriginalName string
	Path         string // relative to BaseDir, slash-separated
	Size         int64
	Mimetype     string
}

// ValidateSubmission checks one multipart deliverable against count-less
// constraints (size, type). Callers check the count themselves.
func ValidateSubmission(fh *multipart.FileHeader) error {
	if fh.Size > MaxSubmissionFileSize {
		return apperrors.Validation(fmt.Sprintf("%s exceeds the 10MB limit", fh.Filename))
	}
	ct := fh.Header.Get("Content-Type")
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !submissionTypes[ct] && !submissionExts[ext] {
		return apperrors.Validation(fmt.Sprintf("%s is not a PDF, DOC, or DOCX file", fh.Filename))
	}
	return nil
}

// ValidateImage checks a profile image upload.
func ValidateImage(fh *multipart.FileHeader) error {
	if fh.Size > MaxImageSize {
		return apperrors.Validation("image exceeds the 5MB limit")
	}
	if ct := fh.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return apperrors.Validation("file must be an image")
	}
	return nil
}

// Save writes one multipart file under subdir (e.g. "submissions",
// "profiles"). The stored path is subdir/YYYY/MM/uuid-originalname.
func (s *Saver) Save(fh *multipart.FileHeader, subdir string) (Saved, error) {
	src, err := fh.Open()
	if err != nil {
		return Saved{}, apperrors.Storage("could not read upload", err)
	}
	defer src.Close()

	now := time.Now().UTC()
	dateDir := fmt.Sprintf("%s/%04d/%02d", subdir, now.Year(), now.Month())
	stored := fmt.Sprintf("%s-%s", uuid.New().String()[:8], SanitizeFilename(fh.Filename))
	rel := dateDir + "/" + stored

	absDir := filepath.Join(s.BaseDir, filepath.FromSlash(dateDir))
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return Saved{}, apperrors.Storage("could not create upload directory", err)
	}

	abs := filepath.Join(absDir, stored)
	dst, err := os.Create(abs)
	if err != nil {
		return Saved{}, apperrors.Storage("could not store upload", err)
	}
	n, err := io.Copy(dst, src)
	cerr := dst.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(abs)
		return Saved{}, apperrors.Storage("could not store upload", err)
	}

	return Saved{
		StoredName:   stored,
		OriginalName: fh.Filename,
		Path:         rel,
		Size:         n,
		Mimetype:     fh.Header.Get("Content-Type"),
	}, nil
}

// Remove deletes a previously saved file. Best-effort rollback helper;
// a missing file is not an error.
func (s *Saver) Remove(relPath string) error {
	abs := filepath.Join(s.BaseDir, filepath.FromSlash(relPath))
	err := os.Remove(abs)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Abs resolves a stored relative path to the on-disk location.
func (s *Saver) Abs(relPath string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(relPath))
}

// SanitizeFilename removes path components and replaces characters that
// could be problematic in filenames.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		// Truncate but preserve extension if present
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}

	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}

package blobstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors for blob uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrNotFound            = errors.New("blob not found")
)

// Store is the narrow interface the engine consumes: accept a blob, return
// a durable reference, and read it back for submission assembly.
type Store interface {
	Save(ext string, r io.Reader) (ref string, size int64, err error)
	Open(ref string) (io.ReadCloser, error)
}

// Local is a filesystem-backed Store. Blobs are written under a single
// root with UUID filenames; the reference is the generated filename.
type Local struct {
	root     string
	maxBytes int64
}

// NewLocal creates a local store rooted at dir.
func NewLocal(dir string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Local{root: dir, maxBytes: maxBytes}, nil
}

// Save writes the blob and returns its reference. Oversized blobs are
// rejected with ErrFileTooLarge and the partial file is removed.
func (s *Local) Save(ext string, r io.Reader) (string, int64, error) {
	ext = normalizeExt(ext)

	ref := uuid.New().String() + ext
	destPath := filepath.Join(s.root, ref)

	dst, err := os.Create(destPath)
	if err != nil {
		return "", 0, fmt.Errorf("create blob file: %w", err)
	}
	defer dst.Close()

	// Copy one byte past the cap so overflows are detected.
	n, err := io.Copy(dst, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		os.Remove(destPath)
		return "", 0, fmt.Errorf("write blob: %w", err)
	}
	if n > s.maxBytes {
		os.Remove(destPath)
		return "", 0, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, s.maxBytes)
	}

	return ref, n, nil
}

// Open returns a reader over a stored blob.
func (s *Local) Open(ref string) (io.ReadCloser, error) {
	// References are generated filenames; reject anything path-like.
	if ref != filepath.Base(ref) || strings.Contains(ref, "..") {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.root, ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// ValidateExtension checks a filename against a question's allowed
// extension list. An empty list permits any extension.
func ValidateExtension(filename string, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == normalizeExt(strings.ToLower(a)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedFileType, ext, strings.Join(allowed, ", "))
}

func normalizeExt(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Package upload stores accepted request files under generated names and
// removes them once processing completes.
package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"agrivoice/internal/fileguard"
)

// Store writes accepted uploads to a scratch directory. Files are
// request-scoped; the orchestrator removes them on every exit path.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. An empty dir selects the system
// temp directory.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Store{dir: dir}
}

// Save writes the upload to disk under its generated safe name and sniffs
// the stored bytes. If the content does not match the declared kind the
// file is removed and an error returned: extension checks alone do not
// prove the payload is what it claims to be.
func (s *Store) Save(src io.Reader, safeName string, kind fileguard.Kind) (path, mime string, err error) {
	path = filepath.Join(s.dir, filepath.Base(safeName))

	dst, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = s.Remove(path)
		return "", "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err = dst.Close(); err != nil {
		_ = s.Remove(path)
		return "", "", fmt.Errorf("failed to close upload file: %w", err)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		_ = s.Remove(path)
		return "", "", fmt.Errorf("failed to sniff upload content: %w", err)
	}
	if !matchesKind(mt.String(), kind) {
		_ = s.Remove(path)
		return "", "", fmt.Errorf("content type %s does not match declared kind %s", mt.String(), kind)
	}

	return path, mt.String(), nil
}

// Remove deletes a stored upload. It is idempotent: removing an
// already-removed path is not an error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove upload: %w", err)
	}
	return nil
}

// matchesKind checks the sniffed MIME type against the declared kind.
// Audio containers are messy: m4a sniffs as an mp4 family type and ogg as
// application/ogg, so the audio match is deliberately lenient.
func matchesKind(mime string, kind fileguard.Kind) bool {
	switch kind {
	case fileguard.KindImage:
		return strings.HasPrefix(mime, "image/")
	case fileguard.KindAudio:
		return strings.HasPrefix(mime, "audio/") ||
			strings.HasPrefix(mime, "video/mp4") ||
			mime == "application/ogg" ||
			mime == "application/octet-stream"
	}
	return false
}

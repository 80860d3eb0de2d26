// Package fileguard validates uploaded file metadata before any file is
// touched by a downstream service. Validation is pure: the guard never
// reads the filesystem.
package fileguard

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Kind is the declared kind of an upload.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Reason is a machine-distinguishable rejection reason.
type Reason string

const (
	ReasonBadExtension Reason = "bad_extension"
	ReasonTooLarge     Reason = "too_large"
)

// DefaultMaxFileSize is the default upload size ceiling (10 MiB).
const DefaultMaxFileSize = 10 * 1024 * 1024

var allowlists = map[Kind][]string{
	KindImage: {"jpg", "jpeg", "png", "gif", "bmp", "webp"},
	KindAudio: {"mp3", "wav", "m4a", "ogg", "flac", "aac"},
}

// Acceptance is the result of validating one upload. When OK, SafeName is a
// collision-resistant generated filename carrying only the original
// extension; the original filename never addresses storage.
type Acceptance struct {
	OK       bool
	Reason   Reason
	SafeName string
}

// Guard validates uploads against extension allowlists and a size ceiling.
type Guard struct {
	maxSize int64
}

// New creates a Guard. maxSize <= 0 selects the default ceiling.
func New(maxSize int64) *Guard {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Guard{maxSize: maxSize}
}

// MaxSize returns the configured size ceiling in bytes.
func (g *Guard) MaxSize() int64 {
	return g.maxSize
}

// Accept validates a single upload's declared name, kind and size.
// Malformed input is the expected case; Accept never panics.
func (g *Guard) Accept(filename string, kind Kind, size int64) Acceptance {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filepath.Base(filename)), "."))
	if filename == "" || ext == "" || !lo.Contains(allowlists[kind], ext) {
		return Acceptance{Reason: ReasonBadExtension}
	}
	if size > g.maxSize {
		return Acceptance{Reason: ReasonTooLarge}
	}
	return Acceptance{OK: true, SafeName: uuid.NewString() + "." + ext}
}

// AllowedExtensions lists the accepted extensions for a kind, upper-cased
// for user-facing rejection messages.
func AllowedExtensions(kind Kind) []string {
	return lo.Map(allowlists[kind], func(ext string, _ int) string {
		return strings.ToUpper(ext)
	})
}

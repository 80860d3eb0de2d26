// Package artifacts stores generated speech responses and sweeps expired
// ones. Artifacts outlive the request that produced them: they are served
// as static files until the retention TTL removes them.
package artifacts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// SweepInterval is how often the sweeper goroutine runs.
const SweepInterval = 1 * time.Hour

// artifactName matches only names this store generates, so the serving
// layer can reject traversal and probing attempts outright.
var artifactName = regexp.MustCompile(`^speech_response_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.mp3$`)

// Store writes artifacts under a fixed output directory.
type Store struct {
	dir string
	ttl time.Duration
	log *slog.Logger
}

// NewStore creates the output directory if needed. ttl = 0 disables
// sweeping (artifacts are kept until removed externally).
func NewStore(dir string, ttl time.Duration, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{dir: dir, ttl: ttl, log: log}, nil
}

// Put writes audio bytes under a freshly generated name and returns it.
// Write is atomic (temp file + rename) so a concurrent reader never sees a
// partial artifact.
func (s *Store) Put(audio []byte) (string, error) {
	name := fmt.Sprintf("speech_response_%s.mp3", uuid.NewString())
	path := filepath.Join(s.dir, name)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, audio, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}
	return name, nil
}

// Path returns the on-disk path for a generated artifact name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// ValidName reports whether name has the exact shape of a generated
// artifact name.
func (s *Store) ValidName(name string) bool {
	return artifactName.MatchString(name)
}

// Sweep removes artifacts older than the TTL and returns how many were
// removed. A zero TTL makes Sweep a no-op.
func (s *Store) Sweep(now time.Time) (int, error) {
	if s.ttl == 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !s.ValidName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > s.ttl {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
				s.log.Warn("failed to remove expired artifact", "name", entry.Name(), "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// RunSweeper sweeps immediately, then at SweepInterval intervals until the
// stop channel is closed.
func (s *Store) RunSweeper(stop <-chan struct{}) {
	if s.ttl == 0 {
		return
	}

	sweep := func() {
		removed, err := s.Sweep(time.Now())
		if err != nil {
			s.log.Error("artifact sweep failed", "error", err)
			return
		}
		if removed > 0 {
			s.log.Info("swept expired artifacts", "removed", removed)
		}
	}

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	sweep()
	for {
		select {
		case <-ticker.C:
			sweep()
		case <-stop:
			return
		}
	}
}

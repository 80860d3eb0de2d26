package upload

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"agrivoice/internal/fileguard"
)

// Minimal valid PNG: magic bytes are enough for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

// MP3 with an ID3v2 tag header.
var mp3Header = []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 0, 0xff, 0xfb, 0x90, 0}

func TestSaveImage(t *testing.T) {
	s := NewStore(t.TempDir())

	path, mime, err := s.Save(bytes.NewReader(pngHeader), "abc123.png", fileguard.KindImage)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime = %q, want image/png", mime)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
}

func TestSaveAudio(t *testing.T) {
	s := NewStore(t.TempDir())

	path, _, err := s.Save(bytes.NewReader(mp3Header), "abc123.mp3", fileguard.KindAudio)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
}

func TestSaveRejectsKindMismatch(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	// PNG bytes declared as audio must be rejected and the file removed.
	_, _, err := s.Save(bytes.NewReader(pngHeader), "abc123.mp3", fileguard.KindAudio)
	if err == nil {
		t.Fatal("expected rejection for content/kind mismatch")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "abc123.mp3")); !os.IsNotExist(statErr) {
		t.Error("mismatched upload should have been removed")
	}
}

func TestSaveStripsPathFromSafeName(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	path, _, err := s.Save(bytes.NewReader(pngHeader), "../escape.png", fileguard.KindImage)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("stored path %q escaped the store directory %q", path, dir)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	s := NewStore(t.TempDir())

	path, _, err := s.Save(bytes.NewReader(pngHeader), "abc123.png", fileguard.KindImage)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := s.Remove(path); err != nil {
		t.Fatalf("first Remove() error = %v", err)
	}
	// Removing an already-removed path must not fail.
	if err := s.Remove(path); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
	if err := s.Remove(""); err != nil {
		t.Errorf("Remove(\"\") error = %v", err)
	}
}

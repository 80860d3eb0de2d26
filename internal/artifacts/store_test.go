package artifacts

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPutAndPath(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Hour, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	name, err := s.Put([]byte{0xff, 0xfb, 0x90})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !s.ValidName(name) {
		t.Errorf("generated name %q fails ValidName", name)
	}

	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		t.Fatalf("artifact unreadable: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("artifact has %d bytes, want 3", len(data))
	}
}

func TestPutGeneratesUniqueNames(t *testing.T) {
	s, _ := NewStore(t.TempDir(), 0, nil)

	a, _ := s.Put([]byte{1})
	b, _ := s.Put([]byte{2})
	if a == b {
		t.Errorf("artifact names must be unique, got %q twice", a)
	}
}

func TestValidName(t *testing.T) {
	s, _ := NewStore(t.TempDir(), 0, nil)

	name, _ := s.Put([]byte{1})
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"generated name", name, true},
		{"traversal", "../../etc/passwd", false},
		{"arbitrary mp3", "song.mp3", false},
		{"wrong extension", "speech_response_00000000-0000-0000-0000-000000000000.wav", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ValidName(tt.input); got != tt.want {
				t.Errorf("ValidName(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(dir, time.Hour, nil)

	oldName, _ := s.Put([]byte{1})
	newName, _ := s.Put([]byte{2})

	// Age the first artifact past the TTL.
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(s.Path(oldName), old, old); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Sweep(time.Now())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(s.Path(oldName)); !os.IsNotExist(err) {
		t.Error("expired artifact should be gone")
	}
	if _, err := os.Stat(s.Path(newName)); err != nil {
		t.Error("fresh artifact should survive the sweep")
	}
}

func TestSweepIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(dir, time.Hour, nil)

	foreign := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(foreign, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(foreign, old, old); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Sweep(time.Now()); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Error("sweep must only touch generated artifact names")
	}
}

func TestSweepDisabledWithZeroTTL(t *testing.T) {
	s, _ := NewStore(t.TempDir(), 0, nil)

	name, _ := s.Put([]byte{1})
	old := time.Now().Add(-240 * time.Hour)
	_ = os.Chtimes(s.Path(name), old, old)

	removed, err := s.Sweep(time.Now())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0 when TTL is disabled", removed)
	}
}

package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHighScoreMissingFileIsZero(t *testing.T) {
	s := NewHighScore(filepath.Join(t.TempDir(), "missing.yaml"))
	score, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if score != 0 {
		t.Fatalf("expected 0, got %d", score)
	}
}

func TestHighScoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "score.yaml")
	s := NewHighScore(path)
	if err := s.Save(42); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file removed by rename, got %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "highScore: 42") {
		t.Fatalf("unexpected file contents %q", data)
	}
	score, err := NewHighScore(path).Load()
	if err != nil || score != 42 {
		t.Fatalf("expected 42, got %d (%v)", score, err)
	}
}

func TestHighScoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "score.yaml")
	if err := os.WriteFile(path, []byte("highScore: [oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewHighScore(path).Load(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestHighScoreClampsNegative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "score.yaml")
	s := NewHighScore(path)
	if err := s.Save(-5); err != nil {
		t.Fatalf("save: %v", err)
	}
	if score, _ := s.Load(); score != 0 {
		t.Fatalf("expected 0, got %d", score)
	}
}

func TestMemoryStore(t *testing.T) {
	var m Memory
	_ = m.Save(7)
	_ = m.Save(9)
	if score, _ := m.Load(); score != 9 || m.Saves() != 2 {
		t.Fatalf("unexpected memory store state %d/%d", score, m.Saves())
	}
}

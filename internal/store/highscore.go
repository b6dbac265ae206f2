// Package store persists the single local high-score value.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// HighScoreStore loads and saves the best score across runs.
type HighScoreStore interface {
	Load() (int, error)
	Save(score int) error
}

type highScoreDocument struct {
	HighScore int `yaml:"highScore"`
}

// HighScore keeps the record in a small YAML file.
type HighScore struct {
	path string
	mu   sync.Mutex
}

// NewHighScore returns a store backed by path.
func NewHighScore(path string) *HighScore {
	return &HighScore{path: path}
}

// Path returns the backing file.
func (s *HighScore) Path() string {
	return s.path
}

// Load returns the stored record. A missing file is a record of zero.
func (s *HighScore) Load() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read high score: %w", err)
	}
	var doc highScoreDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("decode high score %s: %w", s.path, err)
	}
	if doc.HighScore < 0 {
		return 0, nil
	}
	return doc.HighScore, nil
}

// Save replaces the stored record atomically.
func (s *HighScore) Save(score int) error {
	if score < 0 {
		score = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(highScoreDocument{HighScore: score})
	if err != nil {
		return fmt.Errorf("marshal high score: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create high score directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp high score: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace high score: %w", err)
	}
	return nil
}

// Memory is an in-process store.
type Memory struct {
	mu    sync.Mutex
	score int
	saves int
}

func (m *Memory) Load() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score, nil
}

func (m *Memory) Save(score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.score = score
	m.saves++
	return nil
}

// Saves counts Save calls.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

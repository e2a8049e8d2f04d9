// Package tokenstore persists the auth token between runs.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/talentfinder/internal/domain"
)

type credentialsFile struct {
	Token   string    `yaml:"token"`
	SavedAt time.Time `yaml:"saved_at"`
}

// FileStore keeps the token in a YAML file readable only by the owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ domain.TokenStore = (*FileStore)(nil)

// NewFileStore stores the token at path, or under the user config dir when
// path is empty.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("op=tokenstore.NewFileStore: %w", err)
		}
		path = filepath.Join(dir, "talentfinder", "credentials.yaml")
	}
	return &FileStore{path: path}, nil
}

// Path returns the credentials file location.
func (s *FileStore) Path() string { return s.path }

// Load returns "" when no token was saved.
func (s *FileStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("op=tokenstore.File.Load: %w", err)
	}
	var cf credentialsFile
	if err := yaml.Unmarshal(b, &cf); err != nil {
		return "", fmt.Errorf("op=tokenstore.File.Load: %w: %v", domain.ErrSchemaInvalid, err)
	}
	return cf.Token, nil
}

func (s *FileStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := yaml.Marshal(credentialsFile{Token: token, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("op=tokenstore.File.Save: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("op=tokenstore.File.Save: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("op=tokenstore.File.Save: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("op=tokenstore.File.Save: %w", err)
	}
	return nil
}

// Clear removes the credentials file. A missing file is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("op=tokenstore.File.Clear: %w", err)
	}
	return nil
}

// Ping checks that the directory holding the file is usable.
func (s *FileStore) Ping(_ context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("op=tokenstore.File.Ping: %w", err)
	}
	return nil
}

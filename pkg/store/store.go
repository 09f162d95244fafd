package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// ConversationKey is the key the conversation handle is stored under.
const ConversationKey = "conversation_id"

// HandleStore persists the current conversation handle between runs.
type HandleStore interface {
	// Get returns the stored handle, or "" when none is stored.
	Get() (string, error)
	Set(id string) error
}

// FileHandleStore keeps the handle in a small YAML file.
type FileHandleStore struct {
	mu   sync.Mutex
	path string
}

func NewFileHandleStore(path string) *FileHandleStore {
	return &FileHandleStore{path: path}
}

// Path returns the backing file.
func (s *FileHandleStore) Path() string {
	return s.path
}

func (s *FileHandleStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.load()
	if err != nil {
		return "", err
	}
	return v.GetString(ConversationKey), nil
}

func (s *FileHandleStore) Set(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.load()
	if err != nil {
		return err
	}
	v.Set(ConversationKey, id)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create handle directory: %w", err)
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write handle file: %w", err)
	}
	return nil
}

func (s *FileHandleStore) load() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read handle file: %w", err)
	}
	return v, nil
}

// MemoryHandleStore keeps the handle in memory.
type MemoryHandleStore struct {
	mu sync.Mutex
	id string
}

func NewMemoryHandleStore(id string) *MemoryHandleStore {
	return &MemoryHandleStore{id: id}
}

func (s *MemoryHandleStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, nil
}

func (s *MemoryHandleStore) Set(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return nil
}

var (
	_ HandleStore = (*FileHandleStore)(nil)
	_ HandleStore = (*MemoryHandleStore)(nil)
)

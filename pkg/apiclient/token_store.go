package apiclient

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"llm-builder-console/internal/entity"
)

// ITokenStore owns the live TokenPair. Set replaces it atomically and
// persists it; Clear persists the absence. No network I/O happens here.
type ITokenStore interface {
	Get() (entity.TokenPair, bool)
	Set(pair entity.TokenPair) error
	Clear() error
}

// FileTokenStore persists the pair as a JSON file (mode 0600). Writes go
// through a temp file plus rename so a crash never leaves a torn pair.
type FileTokenStore struct {
	path string

	mu   sync.Mutex
	pair entity.TokenPair
}

var _ ITokenStore = &FileTokenStore{}

func NewFileTokenStore(path string) (*FileTokenStore, error) {
	s := &FileTokenStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	// A corrupt file is treated as logged out rather than a hard failure.
	var pair entity.TokenPair
	if err := json.Unmarshal(data, &pair); err == nil {
		s.pair = pair
	}
	return s, nil
}

func (s *FileTokenStore) Get() (entity.TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, !s.pair.IsZero()
}

func (s *FileTokenStore) Set(pair entity.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	s.pair = pair
	return nil
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = entity.TokenPair{}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// MemoryTokenStore is the non-durable variant used by tests.
type MemoryTokenStore struct {
	mu   sync.Mutex
	pair entity.TokenPair
}

var _ ITokenStore = &MemoryTokenStore{}

func (s *MemoryTokenStore) Get() (entity.TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, !s.pair.IsZero()
}

func (s *MemoryTokenStore) Set(pair entity.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = entity.TokenPair{}
	return nil
}

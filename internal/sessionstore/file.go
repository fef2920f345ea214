package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps the session as a JSON object in a single file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("session file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, storageErr("create session directory", err)
	}

	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(_ context.Context, keys []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := values[key]; ok {
			out[key] = value
		}
	}
	return out, nil
}

func (s *FileStore) SetAll(_ context.Context, pairs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readLocked()
	if err != nil {
		return err
	}
	for key, value := range pairs {
		values[key] = value
	}
	return s.writeLocked(values)
}

func (s *FileStore) RemoveAll(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readLocked()
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(values, key)
	}
	return s.writeLocked(values)
}

func (s *FileStore) readLocked() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, storageErr("read session file", err)
	}

	values := map[string]string{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, storageErr("decode session file", err)
	}
	return values, nil
}

// writeLocked replaces the file atomically so a crash never leaves half a session.
func (s *FileStore) writeLocked(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return storageErr("encode session file", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.json")
	if err != nil {
		return storageErr("create temp file", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return storageErr("write temp file", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return storageErr("chmod temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return storageErr("close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return storageErr("replace session file", err)
	}
	return nil
}

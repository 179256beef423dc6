package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the record as a single JSON document on disk. Writes go
// to a temporary file in the same directory which is then renamed over the
// target, so a crash leaves either the old or the new document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type fileDocument struct {
	Token string   `json:"token"`
	User  *Profile `json:"user"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, rec Record) error {
	if rec.Credential == "" {
		return ErrEmptyCredential
	}
	user := rec.User
	data, err := json.Marshal(fileDocument{Token: rec.Credential, User: &user})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if doc.Token == "" && doc.User == nil {
		return Record{}, false, nil
	}
	if doc.Token == "" || doc.User == nil {
		return Record{}, false, ErrCorruptRecord
	}
	return Record{Credential: doc.Token, User: *doc.User}, true, nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

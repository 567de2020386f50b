package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	configDirName   = "fleettrack"
	sessionFileName = "session.json"
)

// FileStore keeps values in a JSON document on disk, for machines without a
// usable keyring. Values are grouped per scope (backend host).
type FileStore struct {
	mu    sync.Mutex
	path  string
	scope string
}

// DefaultFilePath returns ~/.config/fleettrack/session.json
func DefaultFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDirName, sessionFileName), nil
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path, scope string) *FileStore {
	return &FileStore{path: path, scope: scope}
}

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return "", false, err
	}

	v, ok := doc[f.scope][key]
	return v, ok, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	if doc[f.scope] == nil {
		doc[f.scope] = make(map[string]string)
	}
	doc[f.scope][key] = value

	return f.save(doc)
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	if _, ok := doc[f.scope][key]; !ok {
		return nil
	}
	delete(doc[f.scope], key)
	if len(doc[f.scope]) == 0 {
		delete(doc, f.scope)
	}

	return f.save(doc)
}

// load reads the whole document; a missing file is an empty document
func (f *FileStore) load() (map[string]map[string]string, error) {
	doc := make(map[string]map[string]string)

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if doc == nil {
		doc = make(map[string]map[string]string)
	}

	return doc, nil
}

func (f *FileStore) save(doc map[string]map[string]string) error {
	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}

	// The token is a credential, keep it owner-readable only
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// FileTokenStore keeps the Google OAuth token in a JSON file readable only
// by the owner.
type FileTokenStore struct {
	Path string
}

// NewFileTokenStore creates a FileTokenStore for the token file at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path}
}

// SaveToken replaces the token file. The token is written to a temporary
// file in the same directory and renamed over the old one, so a refresh
// interrupted mid-write leaves the previous token readable.
func (store *FileTokenStore) SaveToken(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(store.Path), filepath.Base(store.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file for %s: %w", store.Path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", tmpPath, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush token file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, store.Path); err != nil {
		return fmt.Errorf("failed to replace token file %s: %w", store.Path, err)
	}
	return nil
}

// LoadToken reads the token file. A missing file is a first run and returns
// nil, nil; an unreadable or malformed file is an error naming the path.
func (store *FileTokenStore) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(store.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file %s: %w", store.Path, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token from %s: %w", store.Path, err)
	}

	return &token, nil
}

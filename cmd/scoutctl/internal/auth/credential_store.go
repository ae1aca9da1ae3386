package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

const credentialsFile = "credentials.json"

// ErrNotLoggedIn is returned by LoadCredentials when no token is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// FileStore keeps one bearer token in a 0600 JSON file, by default
// ~/.scout/credentials.json.
type FileStore struct {
	dir string
}

var _ sdk.CredentialStore = (*FileStore)(nil)

// NewFileStore opens the store in the user's home directory.
func NewFileStore() (*FileStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return NewFileStoreAt(filepath.Join(home, ".scout"))
}

// NewFileStoreAt opens the store in dir, creating it owner-only when missing.
func NewFileStoreAt(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, credentialsFile)
}

// SaveCredentials replaces the stored token. The file is swapped in with a
// rename so a crash never leaves half a token on disk.
func (s *FileStore) SaveCredentials(credentials *sdk.Credentials) error {
	if credentials == nil || credentials.AccessToken == "" {
		return errors.New("refusing to store an empty token")
	}
	stored := *credentials
	if stored.TokenType == "" {
		stored.TokenType = "Bearer"
	}

	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, credentialsFile+".*")
	if err != nil {
		return fmt.Errorf("failed to stage credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict credentials file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return os.Rename(tmp.Name(), s.path())
}

// LoadCredentials returns the stored token or ErrNotLoggedIn.
func (s *FileStore) LoadCredentials() (*sdk.Credentials, error) {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds sdk.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("credentials file %s is corrupt: %w", s.path(), err)
	}
	if creds.AccessToken == "" {
		return nil, ErrNotLoggedIn
	}
	return &creds, nil
}

// DeleteCredentials removes the stored token. A missing file is not an error.
func (s *FileStore) DeleteCredentials() error {
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	apperrors "github.com/tessro/startify/internal/errors"
)

// DefaultCredentialFileName is the credential file inside the startify config directory.
const DefaultCredentialFileName = "session.json"

// ErrInsecureCredential is returned by Load when the credential file can be
// read by users other than its owner.
var ErrInsecureCredential = errors.New("credential file is accessible by other users")

// Storage keeps the session credential in a single owner-only JSON file.
// Writes replace the file atomically so a reader never sees a partial token.
type Storage struct {
	path string
}

// NewStorage returns storage backed by path, or by
// <user config dir>/startify/session.json when path is empty.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		path = filepath.Join(dir, "startify", DefaultCredentialFileName)
	}
	return &Storage{path: path}, nil
}

// Save replaces the stored credential.
func (s *Storage) Save(c *Credential) error {
	if c == nil || c.Token == "" {
		return errEmptyToken
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("failed to create credential file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0o600); err != nil && runtime.GOOS != "windows" {
		tmp.Close()
		return fmt.Errorf("failed to restrict credential file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Load returns the stored credential, or nil when none is stored. A file
// holding an empty token counts as none; a malformed token or a file open
// to other users is an error.
func (s *Storage) Load() (*Credential, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		return nil, apperrors.WithSuggestion(
			fmt.Errorf("%s (mode %o): %w", s.path, info.Mode().Perm(), ErrInsecureCredential),
			fmt.Sprintf("Run 'chmod 600 %s' or store the token again with 'startify auth set-token'", s.path))
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}

	c.Token, err = normalizeToken(c.Token)
	if errors.Is(err, errEmptyToken) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stored credential is invalid: %w", err)
	}
	return &c, nil
}

// Delete removes the stored credential. A missing file is not an error.
func (s *Storage) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete credential file: %w", err)
	}
	return nil
}

// Exists reports whether a credential file is present, valid or not.
func (s *Storage) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the credential file location.
func (s *Storage) Path() string {
	return s.path
}

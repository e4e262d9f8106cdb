package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoCredentials is returned by Load when nothing has been saved yet
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials is what survives between invocations: enough to call Restore.
type Credentials struct {
	Username string    `json:"username"`
	Token    string    `json:"token"`
	SavedAt  time.Time `json:"saved_at"`
}

// CredentialStore keeps Credentials in a JSON file readable only by the owner
type CredentialStore struct {
	path string
}

func NewCredentialStore(path string) *CredentialStore {
	if path == "" {
		path = DefaultCredentialsPath()
	}
	return &CredentialStore{path: path}
}

func (cs *CredentialStore) Path() string {
	return cs.path
}

func (cs *CredentialStore) Load() (Credentials, error) {
	file, err := os.Open(cs.path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to open credentials file: %w", err)
	}
	defer file.Close()

	var creds Credentials
	if err := json.NewDecoder(file).Decode(&creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode credentials file: %w", err)
	}

	if creds.Username == "" || creds.Token == "" {
		return Credentials{}, ErrNoCredentials
	}

	return creds, nil
}

func (cs *CredentialStore) Save(creds Credentials) error {
	if creds.SavedAt.IsZero() {
		creds.SavedAt = time.Now()
	}

	if err := os.MkdirAll(filepath.Dir(cs.path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	// CreateTemp opens with 0600; the rename replaces any older, wider file
	file, err := os.CreateTemp(filepath.Dir(cs.path), ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("failed to create credentials file: %w", err)
	}
	tmp := file.Name()
	defer os.Remove(tmp)

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(creds); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Chmod(tmp, 0600); err != nil {
		return fmt.Errorf("failed to restrict credentials file: %w", err)
	}
	if err := os.Rename(tmp, cs.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"username": creds.Username,
		"file":     cs.path,
	}).Debug("saved credentials")

	return nil
}

// Clear removes the credentials file. A missing file is not an error.
func (cs *CredentialStore) Clear() error {
	if err := os.Remove(cs.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	logrus.WithField("file", cs.path).Debug("cleared credentials")
	return nil
}

// DefaultCredentialsPath picks the user's config directory, then the home
// directory, then the working directory.
func DefaultCredentialsPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "snooze", "credentials.json")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".snooze", "credentials.json")
	}

	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, ".snooze-credentials.json")
	}

	return ".snooze-credentials.json"
}

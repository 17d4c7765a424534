// Package credentials manages loading and storing per-server-key credential
// lists. A key's credentials come from the <KEY>_CREDENTIALS environment
// variable (a JSON array) when set, otherwise from
// <lower(key)>_credentials.toml in the config directory. A missing source is
// not an error: the key simply has zero credentials.
package credentials

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	fileSuffix = "_credentials.toml"

	currentVersion = 0
)

// Manager reads and writes credential files in the config directory.
type Manager struct {
	dir string
}

// NewManager creates a credentials Manager. If override is non-empty it is
// used as the config directory; otherwise ~/.tokend is used and created when
// absent.
func NewManager(override string) (*Manager, error) {
	dir := override
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home dir: %w", err)
		}
		dir = filepath.Join(home, ".tokend")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}

	return &Manager{dir: dir}, nil
}

// Load returns the credential list for a server key. The environment variable
// <KEY>_CREDENTIALS takes precedence over the key's credential file. A key
// with no source anywhere yields an empty slice, not an error.
func (m *Manager) Load(key string) ([]Credential, error) {
	if blob := os.Getenv(EnvVarForKey(key)); blob != "" {
		var creds []Credential
		if err := json.Unmarshal([]byte(blob), &creds); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", EnvVarForKey(key), err)
		}
		return creds, nil
	}

	data, err := os.ReadFile(m.filePath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	file := &File{}
	if err := toml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	return file.Credentials, nil
}

// Save writes the credential list for a key with 0600 permissions, replacing
// any existing file.
func (m *Manager) Save(key string, creds []Credential) error {
	file := &File{
		Version:     currentVersion,
		Credentials: creds,
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(file); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.filePath(key), buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// Add stores one credential under a key, replacing any existing record with
// the same uid.
func (m *Manager) Add(key string, cred Credential) error {
	if cred.UID == "" {
		return errors.New("credential uid cannot be empty")
	}

	creds, err := m.Load(key)
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range creds {
		if existing.UID == cred.UID {
			creds[i] = cred
			replaced = true
			break
		}
	}
	if !replaced {
		creds = append(creds, cred)
	}

	return m.Save(key, creds)
}

// Remove deletes the credential with the given uid from a key. Removing an
// unknown uid is a no-op.
func (m *Manager) Remove(key, uid string) error {
	creds, err := m.Load(key)
	if err != nil {
		return err
	}

	kept := creds[:0]
	for _, cred := range creds {
		if cred.UID != uid {
			kept = append(kept, cred)
		}
	}

	return m.Save(key, kept)
}

// Keys returns the server keys that have a credential file, in sorted order.
func (m *Manager) Keys() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("reading config dir: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if key, ok := keyForFileName(entry.Name()); ok {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys, nil
}

// Dir returns the resolved config directory.
func (m *Manager) Dir() string {
	return m.dir
}

// FilePath returns the credential file path for a key.
func (m *Manager) FilePath(key string) string {
	return m.filePath(key)
}

func (m *Manager) filePath(key string) string {
	return filepath.Join(m.dir, strings.ToLower(key)+fileSuffix)
}

// EnvVarForKey returns the environment variable consulted for a key's
// credentials.
func EnvVarForKey(key string) string {
	return strings.ToUpper(key) + "_CREDENTIALS"
}

func keyForFileName(name string) (string, bool) {
	if !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}

	key := strings.TrimSuffix(name, fileSuffix)
	if key == "" {
		return "", false
	}

	return strings.ToUpper(key), true
}

// Package stores provides the on-disk session registry that carries PNBA
// handshake state between steps and across process restarts.
package stores

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/relaykit/pnba"
)

// RegistryFilename is the bookkeeping record inside each session directory.
const RegistryFilename = "registry.json"

// SessionDirName derives the deterministic, filesystem-safe directory name
// for a phone number. Two numbers are assumed never to collide at this hash
// width; collisions are not detected.
func SessionDirName(phoneNumber string) string {
	sum := md5.Sum([]byte(phoneNumber))
	return hex.EncodeToString(sum[:])
}

// SessionRegistry manages the session directory and registry record for a
// single phone number. There is no locking: concurrent registries for the
// same number race, last writer wins.
type SessionRegistry struct {
	BasePath    string
	PhoneNumber string
}

// NewSessionRegistry binds a registry to a phone number under basePath,
// creating the session directory if it does not exist.
func NewSessionRegistry(phoneNumber, basePath string) (*SessionRegistry, error) {
	if basePath == "" {
		basePath = pnba.DefaultSessionsDir()
	}
	r := &SessionRegistry{BasePath: basePath, PhoneNumber: phoneNumber}
	if _, err := r.EnsureDir(false); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the session directory path for this phone number.
func (r *SessionRegistry) Dir() string {
	return filepath.Join(r.BasePath, SessionDirName(r.PhoneNumber))
}

// EnsureDir creates the session directory, first removing any existing one
// when overwrite is set. Returns the directory path.
func (r *SessionRegistry) EnsureDir(overwrite bool) (string, error) {
	if err := os.MkdirAll(r.BasePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create sessions root: %w", err)
	}

	dir := r.Dir()
	if overwrite {
		if _, err := os.Stat(dir); err == nil {
			slog.Info("overwriting existing session", "dir", dir)
			if err := os.RemoveAll(dir); err != nil {
				return "", fmt.Errorf("failed to remove session dir: %w", err)
			}
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session dir: %w", err)
	}
	return dir, nil
}

// SessionFilePath returns the path of the opaque client-session artifact,
// named identically to the directory that holds it.
func (r *SessionRegistry) SessionFilePath() string {
	return filepath.Join(r.Dir(), SessionDirName(r.PhoneNumber))
}

// RegistryPath returns the path of the registry record file.
func (r *SessionRegistry) RegistryPath() string {
	return filepath.Join(r.Dir(), RegistryFilename)
}

// Read returns the registry record, or an empty record if none exists. A
// record file that is not valid JSON propagates a parse error.
func (r *SessionRegistry) Read() (pnba.RegistryRecord, error) {
	data, err := os.ReadFile(r.RegistryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return pnba.RegistryRecord{}, nil
		}
		return nil, err
	}

	var record pnba.RegistryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if record == nil {
		record = pnba.RegistryRecord{}
	}
	return record, nil
}

// Write replaces the registry record wholesale.
func (r *SessionRegistry) Write(record pnba.RegistryRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize registry: %w", err)
	}
	return writeAtomicFile(r.RegistryPath(), data)
}

// Update shallow-merges fields into the current record; new values override
// existing ones for the same keys. Read-then-write, no atomicity against
// concurrent writers.
func (r *SessionRegistry) Update(fields pnba.RegistryRecord) error {
	record, err := r.Read()
	if err != nil {
		return err
	}
	for k, v := range fields {
		record[k] = v
	}
	return r.Write(record)
}

// Clear deletes the registry record file, reporting whether a file was
// actually deleted. Idempotent.
func (r *SessionRegistry) Clear() (bool, error) {
	err := os.Remove(r.RegistryPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	slog.Debug("registry file deleted", "path", r.RegistryPath())
	return true, nil
}

// Destroy removes the entire session directory, registry and session
// artifact included. With bestEffort set, failures are swallowed.
func (r *SessionRegistry) Destroy(bestEffort bool) error {
	err := os.RemoveAll(r.Dir())
	if err != nil && bestEffort {
		slog.Warn("failed to remove session dir", "dir", r.Dir(), "err", err)
		return nil
	}
	return err
}

// writeAtomicFile writes data via a temp file and rename so readers never
// observe a partial record.
func writeAtomicFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

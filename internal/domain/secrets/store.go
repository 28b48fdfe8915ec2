package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hostwright/hostwright/internal/ports"
)

// FileName is the secrets file inside the state directory.
const FileName = "secrets.yaml"

// ErrAlreadyExists is returned when SaveOnce would overwrite an
// existing secrets file. Generated credentials are written exactly
// once; a re-run must never rotate them behind the operator's back.
var ErrAlreadyExists = errors.New("secrets file already exists")

// fileRecord is the on-disk form of a Record.
type fileRecord struct {
	DatabasePassword string `yaml:"database_password"`
	AdminPassword    string `yaml:"admin_password"`
	CreatedAt        string `yaml:"created_at"`
}

// Store persists credentials at <stateDir>/secrets.yaml with owner-only
// permissions.
type Store struct {
	fs       ports.FileSystem
	stateDir string
}

// NewStore creates a Store rooted at stateDir.
func NewStore(fs ports.FileSystem, stateDir string) *Store {
	return &Store{fs: fs, stateDir: stateDir}
}

// Path returns the secrets file's location.
func (s *Store) Path() string {
	return filepath.Join(s.stateDir, FileName)
}

// Exists reports whether a secrets file is present.
func (s *Store) Exists() bool {
	return s.fs.Exists(s.Path())
}

// SaveOnce writes the record, failing with ErrAlreadyExists if a
// secrets file is already present.
func (s *Store) SaveOnce(record Record) error {
	if s.Exists() {
		return ErrAlreadyExists
	}

	data, err := yaml.Marshal(fileRecord{
		DatabasePassword: record.DatabasePassword.Value(),
		AdminPassword:    record.AdminPassword.Value(),
		CreatedAt:        record.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	if err := s.fs.MkdirAll(s.stateDir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := s.fs.WriteFile(s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write secrets: %w", err)
	}
	return nil
}

// Load reads the stored credentials. A secrets file readable by group
// or others is refused rather than silently used.
func (s *Store) Load() (Record, error) {
	if info, err := s.fs.GetFileInfo(s.Path()); err == nil && info.Mode.Perm()&0o077 != 0 {
		return Record{}, fmt.Errorf("secrets file %s is accessible by other users (mode %04o), expected 0600",
			s.Path(), info.Mode.Perm())
	}

	data, err := s.fs.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, fmt.Errorf("no secrets file at %s: %w", s.Path(), err)
		}
		return Record{}, fmt.Errorf("failed to read secrets: %w", err)
	}

	var stored fileRecord
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return Record{}, fmt.Errorf("failed to parse secrets: %w", err)
	}

	record := Record{
		DatabasePassword: NewCredential(stored.DatabasePassword),
		AdminPassword:    NewCredential(stored.AdminPassword),
	}
	if stored.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, stored.CreatedAt); err == nil {
			record.CreatedAt = t
		}
	}
	return record, nil
}

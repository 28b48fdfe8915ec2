// Package journal persists the run journal as a YAML file.
package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	domain "github.com/hostwright/hostwright/internal/domain/journal"
	"github.com/hostwright/hostwright/internal/ports"
)

// FileName is the journal file inside the state directory.
const FileName = "journal.yaml"

// YAMLRepository stores the journal at <stateDir>/journal.yaml.
// Writes go through a temp file and rename so a crash mid-write never
// corrupts the existing journal.
type YAMLRepository struct {
	fs       ports.FileSystem
	stateDir string
}

// NewYAMLRepository creates a repository rooted at stateDir.
func NewYAMLRepository(fs ports.FileSystem, stateDir string) *YAMLRepository {
	return &YAMLRepository{fs: fs, stateDir: stateDir}
}

// Path returns the journal file's location.
func (r *YAMLRepository) Path() string {
	return filepath.Join(r.stateDir, FileName)
}

// Load reads the journal. A missing file is an empty journal.
func (r *YAMLRepository) Load() (domain.Log, error) {
	data, err := r.fs.ReadFile(r.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Log{}, nil
		}
		return domain.Log{}, fmt.Errorf("failed to read journal: %w", err)
	}

	var log domain.Log
	if err := yaml.Unmarshal(data, &log); err != nil {
		return domain.Log{}, fmt.Errorf("failed to parse journal: %w", err)
	}
	return log, nil
}

// Append adds a run to the journal and writes it back atomically.
func (r *YAMLRepository) Append(run domain.Run) error {
	log, err := r.Load()
	if err != nil {
		return err
	}
	log.Runs = append(log.Runs, run)

	data, err := yaml.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	if err := r.fs.MkdirAll(r.stateDir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Journals may reference failure output; keep them operator-only.
	tmp := r.Path() + ".tmp"
	if err := r.fs.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := r.fs.Rename(tmp, r.Path()); err != nil {
		return fmt.Errorf("failed to replace journal: %w", err)
	}
	return nil
}

// Ensure YAMLRepository implements the domain repository.
var _ domain.Repository = (*YAMLRepository)(nil)

// Package testutil provides fakes for the command and filesystem ports.
package testutil

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/hostwright/hostwright/internal/ports"
)

// FakeRunner is a scripted ports.CommandRunner that records every call.
type FakeRunner struct {
	mu sync.Mutex

	// Responses maps a command-line prefix to a canned result. The
	// longest matching prefix wins. Unmatched commands succeed with
	// empty output.
	Responses map[string]ports.CommandResult

	// Errors maps a command-line prefix to an error returned instead
	// of a result (the command could not start).
	Errors map[string]error

	// MissingTools lists names LookPath reports as absent.
	MissingTools []string

	Calls []ports.CommandCall
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Responses: make(map[string]ports.CommandResult),
		Errors:    make(map[string]error),
	}
}

// Respond scripts a result for command lines starting with prefix.
func (r *FakeRunner) Respond(prefix string, result ports.CommandResult) {
	r.Responses[prefix] = result
}

// Fail scripts an error for command lines starting with prefix.
func (r *FakeRunner) Fail(prefix string, err error) {
	r.Errors[prefix] = err
}

// Run records the call and returns the scripted response.
func (r *FakeRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls = append(r.Calls, ports.CommandCall{Command: command, Args: args})

	line := command
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}

	if err := r.matchError(line); err != nil {
		return ports.CommandResult{}, err
	}
	if result, ok := r.match(line); ok {
		return result, nil
	}
	return ports.CommandResult{ExitCode: 0}, nil
}

func (r *FakeRunner) match(line string) (ports.CommandResult, bool) {
	best := ""
	for prefix := range r.Responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return ports.CommandResult{}, false
	}
	return r.Responses[best], true
}

func (r *FakeRunner) matchError(line string) error {
	best := ""
	for prefix := range r.Errors {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil
	}
	return r.Errors[best]
}

// LookPath reports true unless the tool is listed as missing.
func (r *FakeRunner) LookPath(name string) bool {
	for _, missing := range r.MissingTools {
		if missing == name {
			return false
		}
	}
	return true
}

// CallLines returns the recorded calls as joined command lines.
func (r *FakeRunner) CallLines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := make([]string, len(r.Calls))
	for i, call := range r.Calls {
		line := call.Command
		if len(call.Args) > 0 {
			line += " " + strings.Join(call.Args, " ")
		}
		lines[i] = line
	}
	return lines
}

// CallCount returns the number of recorded calls.
func (r *FakeRunner) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}

// Ensure FakeRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*FakeRunner)(nil)

// FakeFileSystem is an in-memory ports.FileSystem.
type FakeFileSystem struct {
	mu    sync.Mutex
	files map[string][]byte
	perms map[string]os.FileMode
	dirs  map[string]bool
}

// NewFakeFileSystem creates an empty FakeFileSystem.
func NewFakeFileSystem() *FakeFileSystem {
	return &FakeFileSystem{
		files: make(map[string][]byte),
		perms: make(map[string]os.FileMode),
		dirs:  make(map[string]bool),
	}
}

// Seed adds a file without going through WriteFile.
func (f *FakeFileSystem) Seed(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = data
	f.perms[path] = 0o644
}

// ReadFile reads the named file.
func (f *FakeFileSystem) ReadFile(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// WriteFile writes data to the named file.
func (f *FakeFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	f.files[path] = stored
	f.perms[path] = perm
	return nil
}

// Perm returns the mode a file was written with.
func (f *FakeFileSystem) Perm(path string) os.FileMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perms[path]
}

// Exists returns true if the path exists.
func (f *FakeFileSystem) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path]; ok {
		return true
	}
	return f.dirs[path]
}

// IsDir returns true if the path is a seeded directory.
func (f *FakeFileSystem) IsDir(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirs[path]
}

// MkdirAll records the directory.
func (f *FakeFileSystem) MkdirAll(path string, _ os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path] = true
	return nil
}

// Rename renames oldPath to newPath.
func (f *FakeFileSystem) Rename(oldPath, newPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[oldPath]
	if !ok {
		return os.ErrNotExist
	}
	f.files[newPath] = data
	f.perms[newPath] = f.perms[oldPath]
	delete(f.files, oldPath)
	delete(f.perms, oldPath)
	return nil
}

// Remove removes the named file.
func (f *FakeFileSystem) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path]; !ok {
		return os.ErrNotExist
	}
	delete(f.files, path)
	delete(f.perms, path)
	return nil
}

// GetFileInfo returns metadata for the named file.
func (f *FakeFileSystem) GetFileInfo(path string) (ports.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.files[path]; ok {
		return ports.FileInfo{Size: int64(len(data)), Mode: f.perms[path]}, nil
	}
	if f.dirs[path] {
		return ports.FileInfo{IsDir: true}, nil
	}
	return ports.FileInfo{}, os.ErrNotExist
}

// Ensure FakeFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*FakeFileSystem)(nil)

// Package filesystem provides file system adapters.
package filesystem

import (
	"os"

	"github.com/hostwright/hostwright/internal/ports"
)

// RealFileSystem implements ports.FileSystem using the OS file system.
type RealFileSystem struct{}

// NewRealFileSystem creates a new RealFileSystem.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{}
}

// ReadFile reads the named file.
func (f *RealFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(ports.ExpandPath(path))
}

// WriteFile writes data to the named file with the given permissions.
func (f *RealFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(ports.ExpandPath(path), data, perm)
}

// Exists returns true if the path exists.
func (f *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(ports.ExpandPath(path))
	return err == nil
}

// IsDir returns true if the path exists and is a directory.
func (f *RealFileSystem) IsDir(path string) bool {
	info, err := os.Stat(ports.ExpandPath(path))
	return err == nil && info.IsDir()
}

// MkdirAll creates the directory and any missing parents.
func (f *RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(ports.ExpandPath(path), perm)
}

// Rename renames oldPath to newPath.
func (f *RealFileSystem) Rename(oldPath, newPath string) error {
	return os.Rename(ports.ExpandPath(oldPath), ports.ExpandPath(newPath))
}

// Remove removes the named file or empty directory.
func (f *RealFileSystem) Remove(path string) error {
	return os.Remove(ports.ExpandPath(path))
}

// GetFileInfo returns metadata for the named file.
func (f *RealFileSystem) GetFileInfo(path string) (ports.FileInfo, error) {
	info, err := os.Stat(ports.ExpandPath(path))
	if err != nil {
		return ports.FileInfo{}, err
	}
	return ports.FileInfo{
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

// Ensure RealFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*RealFileSystem)(nil)

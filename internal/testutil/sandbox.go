// Package testutil supports the persistence tests: the engine writes
// .exdb snapshots and .symdb bind files continuously, so tests need a
// throwaway directory they can inspect and destroy.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Sandbox is an isolated temporary directory for one test.
type Sandbox struct {
	Root string
}

// NewSandbox creates a Sandbox rooted at a fresh temporary directory.
func NewSandbox() (*Sandbox, error) {
	dir, err := os.MkdirTemp("", "symbograft_sandbox")
	if err != nil {
		return nil, err
	}
	return &Sandbox{Root: dir}, nil
}

// Path returns the absolute path for a file inside the sandbox.
func (s *Sandbox) Path(name string) string {
	return filepath.Join(s.Root, name)
}

// WriteFile seeds the named file inside the sandbox, typically a
// corrupt or pre-existing database for a load test.
func (s *Sandbox) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(s.Path(name), data, perm)
}

// Cleanup deletes the sandbox and everything in it.
func (s *Sandbox) Cleanup() error {
	return os.RemoveAll(s.Root)
}

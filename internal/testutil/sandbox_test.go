package testutil

import (
	"os"
	"testing"
)

// TestSandboxWriteAndPath: a seeded file lands under Root at the path
// the sandbox reports.
func TestSandboxWriteAndPath(t *testing.T) {
	sb, err := NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := sb.WriteFile("binds.symdb", []byte("{}"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(sb.Path("binds.symdb"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("content=%q want {}", data)
	}
}

// TestSandboxCleanup removes the root directory entirely.
func TestSandboxCleanup(t *testing.T) {
	sb, err := NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	if err := sb.WriteFile("snap.exdb", []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := sb.Cleanup(); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if _, err := os.Stat(sb.Root); !os.IsNotExist(err) {
		t.Fatalf("root still exists: %v", err)
	}
}

// TestSandboxIsolation: two sandboxes never share a root.
func TestSandboxIsolation(t *testing.T) {
	a, err := NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer a.Cleanup()
	b, err := NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer b.Cleanup()
	if a.Root == b.Root {
		t.Fatalf("sandboxes share root %q", a.Root)
	}
}

package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got == "" {
		t.Fatal("Dir() returned empty path")
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := fmt.Sprintf("/tmp/spacetile-runtime-%d", os.Getuid())
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestSocketPath(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	socket, err := SocketPath()
	if err != nil {
		t.Fatalf("SocketPath() error: %v", err)
	}
	if socket != filepath.Join(td, "spacetile.sock") {
		t.Fatalf("SocketPath() = %q", socket)
	}
}

func TestStatePath(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_DATA_HOME", td)

	got, err := StatePath()
	if err != nil {
		t.Fatalf("StatePath() error: %v", err)
	}
	if got != filepath.Join(td, "spacetile", "layout.yaml") {
		t.Fatalf("StatePath() = %q", got)
	}

	t.Setenv("XDG_DATA_HOME", "")
	got, err = StatePath()
	if err != nil {
		t.Fatalf("StatePath() error: %v", err)
	}
	if !strings.HasSuffix(got, "/.local/share/spacetile/layout.yaml") {
		t.Fatalf("StatePath() = %q, missing suffix", got)
	}
}

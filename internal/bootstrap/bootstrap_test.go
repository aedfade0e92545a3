package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBootstrapFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;\n"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestListNumericOrder(t *testing.T) {
	dir := t.TempDir()
	writeBootstrapFile(t, dir, "10-tenth-0.1.0.sql")
	writeBootstrapFile(t, dir, "2-second-0.1.0.sql")
	writeBootstrapFile(t, dir, "1-init-0.1.0.sql")
	writeBootstrapFile(t, dir, "README.md")

	m := &Manager{dir: dir}
	files, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"1-init-0.1.0.sql", "2-second-0.1.0.sql", "10-tenth-0.1.0.sql"}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d: %+v", len(files), len(want), files)
	}
	for i, name := range want {
		if files[i].Name != name {
			t.Errorf("files[%d].Name = %q, want %q (numeric order)", i, files[i].Name, name)
		}
	}
}

func TestListEmptyWhenNoDir(t *testing.T) {
	m := &Manager{dir: filepath.Join(t.TempDir(), "missing")}
	files, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %v, want empty", files)
	}
}

func TestParseFilename(t *testing.T) {
	f, ok := parseFilename("1-init-users-0.1.0.sql")
	if !ok {
		t.Fatal("expected valid filename to parse")
	}
	if f.Number != 1 || f.PatchID != "init-users" || f.Version != "0.1.0" || f.Ext != "sql" {
		t.Errorf("got %+v", f)
	}
}

func TestParseFilenameRejectsMalformed(t *testing.T) {
	for _, name := range []string{"init-0.1.0.sql", "1-init-0.1.sql", "1-init-0.1.0.txt", "bootstrap.sql"} {
		if _, ok := parseFilename(name); ok {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

func TestNextNumberEmptyDir(t *testing.T) {
	m := &Manager{dir: t.TempDir()}
	n, err := m.NextNumber()
	if err != nil {
		t.Fatalf("NextNumber: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d, want 1", n)
	}
}

func TestNextNumberAfterExisting(t *testing.T) {
	dir := t.TempDir()
	writeBootstrapFile(t, dir, "1-init-0.1.0.sql")
	writeBootstrapFile(t, dir, "3-other-0.1.0.sql")

	m := &Manager{dir: dir}
	n, err := m.NextNumber()
	if err != nil {
		t.Fatalf("NextNumber: %v", err)
	}
	if n != 4 {
		t.Errorf("got %d, want 4", n)
	}
}

func TestNextFilename(t *testing.T) {
	got := NextFilename(2, "seed-config", "0.1.0", "py")
	want := "2-seed-config-0.1.0.py"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEnsureDirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bootstrap")
	m := &Manager{dir: dir}
	if err := m.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if err := m.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir (second call): %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be a directory", dir)
	}
}

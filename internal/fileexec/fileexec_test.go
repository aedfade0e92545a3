package fileexec

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestIsDataFileSQL(t *testing.T) {
	path := writeTemp(t, "01_roles.sql", "-- @HOP:data\nINSERT INTO roles VALUES (1);\n")
	if !IsDataFile(path) {
		t.Error("expected SQL file with -- @HOP:data marker to be a data file")
	}
}

func TestIsDataFileBootstrapAlias(t *testing.T) {
	path := writeTemp(t, "01_seed.py", "# @HOP:bootstrap\nprint('hi')\n")
	if !IsDataFile(path) {
		t.Error("expected @HOP:bootstrap alias to be recognized")
	}
}

func TestIsDataFileCaseInsensitive(t *testing.T) {
	path := writeTemp(t, "01_seed.sql", "-- @hop:DATA\nSELECT 1;\n")
	if !IsDataFile(path) {
		t.Error("expected case-insensitive marker match")
	}
}

func TestIsDataFileFalse(t *testing.T) {
	path := writeTemp(t, "01_plain.sql", "CREATE TABLE foo (id int);\n")
	if IsDataFile(path) {
		t.Error("expected plain SQL file to not be a data file")
	}
}

func TestIsDataFileMissing(t *testing.T) {
	if IsDataFile("/nonexistent/path/does/not/exist.sql") {
		t.Error("expected missing file to not be a data file")
	}
}

func TestExecutePythonSuccess(t *testing.T) {
	if _, err := os.Stat("/usr/bin/python3"); err != nil {
		t.Skip("python3 not available in test environment")
	}
	path := writeTemp(t, "run.py", "print('ok')\n")
	out, err := ExecutePython(context.Background(), path, "", "")
	if err != nil {
		t.Fatalf("ExecutePython: %v", err)
	}
	if out != "ok" {
		t.Errorf("got stdout %q, want %q", out, "ok")
	}
}

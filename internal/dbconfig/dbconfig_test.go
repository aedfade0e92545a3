package dbconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func withConfDir(t *testing.T, dir string) {
	t.Helper()
	t.Setenv(envConfDir, dir)
}

func TestLoadMissingReportsDatabaseNotConfigured(t *testing.T) {
	withConfDir(t, t.TempDir())
	if _, err := Load("nope"); err == nil {
		t.Error("expected error for missing connection file")
	}
}

func TestWriteThenLoadRoundTrips(t *testing.T) {
	withConfDir(t, t.TempDir())

	want := Config{
		Name:       "myapp",
		User:       "alice",
		Password:   "s3cret",
		Host:       "localhost",
		Port:       "5432",
		Production: false,
	}
	if err := Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !Exists("myapp") {
		t.Fatal("expected connection file to exist after Write")
	}

	got, err := Load("myapp")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLoadIdentLoginEmptyHostPort(t *testing.T) {
	dir := t.TempDir()
	withConfDir(t, dir)

	content := "[database]\nname = identdb\nuser = bob\nproduction = True\n"
	if err := os.WriteFile(filepath.Join(dir, "identdb"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing connection file: %v", err)
	}

	cfg, err := Load("identdb")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host != "" || cfg.Port != "" {
		t.Errorf("expected empty host/port for ident login, got host=%q port=%q", cfg.Host, cfg.Port)
	}
	if !cfg.Production {
		t.Error("expected production=true")
	}
}

func TestConnStringOmitsEmptyHost(t *testing.T) {
	cfg := Config{Name: "db1", User: "u"}
	got := cfg.ConnString()
	want := "dbname='db1' user='u' sslmode=disable"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConnStringEscapesQuotes(t *testing.T) {
	cfg := Config{Name: "db1", Password: "a'b"}
	got := cfg.ConnString()
	want := "dbname='db1' password='a\\'b' sslmode=disable"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConfDirDefaultsToEtcHalfOrm(t *testing.T) {
	t.Setenv(envConfDir, "")
	if got := ConfDir(); got != defaultConfDir {
		t.Errorf("got %q, want %q", got, defaultConfDir)
	}
}

package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoadConfigFileRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	want := Config{HopVersion: "1.0.0", GitOrigin: "git@example.com:org/repo.git", Devel: true, PackageName: ""}
	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDiscoverWalksUpToProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := SaveConfig(filepath.Join(root, hopDir, configFile), Config{Devel: true}); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	sub := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	p, err := Discover(sub)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if p.Root != root {
		t.Errorf("got root %q, want %q", p.Root, root)
	}
}

func TestDiscoverFailsOutsideProject(t *testing.T) {
	if _, err := Discover(t.TempDir()); err == nil {
		t.Error("expected Discover to fail with no .hop/config anywhere above")
	}
}

func TestDatabaseNamePriority(t *testing.T) {
	root := t.TempDir()
	p := &Project{Root: root, Config: Config{}}

	if got := p.DatabaseName(); got != filepath.Base(root) {
		t.Errorf("with no alt_config/package_name, got %q, want directory basename %q", got, filepath.Base(root))
	}

	p.Config.PackageName = "legacy_name"
	if got := p.DatabaseName(); got != "legacy_name" {
		t.Errorf("expected package_name fallback, got %q", got)
	}

	if err := os.MkdirAll(filepath.Join(root, hopDir), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p.AltConfigPath(), []byte("  alt_db_name  \n"), 0o644); err != nil {
		t.Fatalf("writing alt_config: %v", err)
	}
	if got := p.DatabaseName(); got != "alt_db_name" {
		t.Errorf("expected alt_config to take priority, got %q", got)
	}
}

func TestRetargetSchemaSymlink(t *testing.T) {
	root := t.TempDir()
	p := &Project{Root: root}
	if err := os.MkdirAll(p.ModelDir(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p.SchemaPath("0.0.1"), []byte("-- schema\n"), 0o644); err != nil {
		t.Fatalf("writing schema: %v", err)
	}

	if err := p.RetargetSchemaSymlink("0.0.1"); err != nil {
		t.Fatalf("RetargetSchemaSymlink: %v", err)
	}
	target, err := os.Readlink(p.CurrentSchemaSymlink())
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != "schema-0.0.1.sql" {
		t.Errorf("got symlink target %q, want relative schema-0.0.1.sql", target)
	}

	if err := os.WriteFile(p.SchemaPath("0.0.2"), []byte("-- schema v2\n"), 0o644); err != nil {
		t.Fatalf("writing schema: %v", err)
	}
	if err := p.RetargetSchemaSymlink("0.0.2"); err != nil {
		t.Fatalf("RetargetSchemaSymlink (retarget): %v", err)
	}
	target, err = os.Readlink(p.CurrentSchemaSymlink())
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != "schema-0.0.2.sql" {
		t.Errorf("got symlink target %q after retarget, want schema-0.0.2.sql", target)
	}
}

func TestValidatePackageName(t *testing.T) {
	valid := []string{"myapp", "my_app", "app2", "_private"}
	for _, name := range valid {
		if err := ValidatePackageName(name); err != nil {
			t.Errorf("expected %q to be valid, got %v", name, err)
		}
	}

	invalid := []string{"", "class", "2app", "my-app", "my app", "import"}
	for _, name := range invalid {
		if err := ValidatePackageName(name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

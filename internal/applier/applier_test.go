package applier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/half-orm/half-orm-dev/internal/dbconfig"
)

func TestCheckDataFileIdempotencyAcceptsOnConflict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "01_seed.sql")
	content := "-- @HOP:data\nINSERT INTO roles (name) VALUES ('admin') ON CONFLICT DO NOTHING;\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	ok, warning := CheckDataFileIdempotency(path)
	if !ok {
		t.Errorf("expected ON CONFLICT guard to be recognized, got warning %q", warning)
	}
}

func TestCheckDataFileIdempotencyAcceptsWhereNotExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "01_seed.sql")
	content := "-- @HOP:data\nINSERT INTO roles (name) SELECT 'admin' WHERE NOT EXISTS (SELECT 1 FROM roles);\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	ok, _ := CheckDataFileIdempotency(path)
	if !ok {
		t.Error("expected WHERE NOT EXISTS guard to be recognized")
	}
}

func TestCheckDataFileIdempotencyAcceptsDeleteThenInsert(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "01_seed.sql")
	content := "-- @HOP:data\nDELETE FROM roles WHERE name = 'admin';\nINSERT INTO roles (name) VALUES ('admin');\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	ok, _ := CheckDataFileIdempotency(path)
	if !ok {
		t.Error("expected DELETE-then-INSERT guard to be recognized")
	}
}

func TestCheckDataFileIdempotencyWarnsWithoutGuard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "01_seed.sql")
	content := "-- @HOP:data\nINSERT INTO roles (name) VALUES ('admin');\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	ok, warning := CheckDataFileIdempotency(path)
	if ok {
		t.Error("expected an unguarded plain INSERT to be flagged")
	}
	if warning == "" {
		t.Error("expected a non-empty warning message")
	}
}

func TestNoopGeneratorNeverFails(t *testing.T) {
	var gen CodeGenerator = NoopGenerator{}
	if err := gen.Regenerate(nil, nil, nil); err != nil {
		t.Errorf("expected NoopGenerator to never fail, got %v", err)
	}
}

func TestFreshInstallRejectsEmptyReleaseHistory(t *testing.T) {
	a := New(nil, nil, nil, nil, nil)
	if err := a.FreshInstall(context.Background(), dbconfig.Config{}, nil); err == nil {
		t.Error("expected FreshInstall to refuse an empty release history, got nil error")
	}
}

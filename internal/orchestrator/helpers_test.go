package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("[patches]\n"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestFindOpenStageSingleMatch(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "0.1.0-stage.toml")
	touch(t, dir, "0.1.0-rc1.toml")

	path, ok := findOpenStage(dir)
	if !ok {
		t.Fatal("expected exactly one open stage to be found")
	}
	if filepath.Base(path) != "0.1.0-stage.toml" {
		t.Errorf("got %q, want 0.1.0-stage.toml", filepath.Base(path))
	}
}

func TestFindOpenStageAmbiguous(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "0.1.0-stage.toml")
	touch(t, dir, "0.2.0-stage.toml")

	if _, ok := findOpenStage(dir); ok {
		t.Error("expected ambiguity with two open stages to report not-found")
	}
}

func TestFindOpenStageNone(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "0.1.0-rc1.toml")

	if _, ok := findOpenStage(dir); ok {
		t.Error("expected no stage manifest to report not-found")
	}
}

func TestStageVersionParsesStageAndRC(t *testing.T) {
	if got := stageVersion("/x/0.3.1-stage.toml"); got != "0.3.1" {
		t.Errorf("got %q, want 0.3.1", got)
	}
	if got := stageVersion("/x/0.3.1-rc2.toml"); got != "0.3.1" {
		t.Errorf("got %q, want 0.3.1", got)
	}
}

func TestNextRCNumberStartsAtOne(t *testing.T) {
	dir := t.TempDir()
	if got := nextRCNumber(dir, "0.1.0"); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

func TestNextRCNumberIncrementsPastExisting(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "0.1.0-rc1.toml")
	touch(t, dir, "0.1.0-rc2.toml")
	touch(t, dir, "0.2.0-rc1.toml") // different version, must not interfere

	if got := nextRCNumber(dir, "0.1.0"); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestFindPromotedRCReturnsHighest(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "0.1.0-rc1.toml")
	touch(t, dir, "0.1.0-rc2.toml")

	path, ok := findPromotedRC(dir, "0.1.0")
	if !ok {
		t.Fatal("expected a promoted rc to be found")
	}
	if filepath.Base(path) != "0.1.0-rc2.toml" {
		t.Errorf("got %q, want highest rc2", filepath.Base(path))
	}
}

func TestFindPromotedRCNoneForVersion(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "0.2.0-rc1.toml")

	if _, ok := findPromotedRC(dir, "0.1.0"); ok {
		t.Error("expected no match for a version with no rc manifest")
	}
}

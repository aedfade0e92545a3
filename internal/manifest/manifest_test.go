package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateEmptyIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0.0.1-stage.toml")

	m1, err := CreateEmpty(path)
	if err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}
	if err := m1.AddPatch("1-first"); err != nil {
		t.Fatalf("AddPatch: %v", err)
	}

	m2, err := CreateEmpty(path)
	if err != nil {
		t.Fatalf("CreateEmpty (second call): %v", err)
	}
	if !m2.Contains("1-first") {
		t.Error("expected CreateEmpty on an existing manifest to be a no-op, preserving prior contents")
	}
}

func TestAddPatchRejectsDuplicate(t *testing.T) {
	m, err := CreateEmpty(filepath.Join(t.TempDir(), "0.0.1-stage.toml"))
	if err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}
	if err := m.AddPatch("1-first"); err != nil {
		t.Fatalf("AddPatch: %v", err)
	}
	if err := m.AddPatch("1-first"); err == nil {
		t.Error("expected duplicate AddPatch to fail")
	}
}

func TestMoveToStagedRequiresCandidate(t *testing.T) {
	m, err := CreateEmpty(filepath.Join(t.TempDir(), "0.0.1-stage.toml"))
	if err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}
	if err := m.MoveToStaged("1-first", "deadbeef"); err == nil {
		t.Error("expected MoveToStaged on absent patch to fail")
	}
	if err := m.AddPatch("1-first"); err != nil {
		t.Fatalf("AddPatch: %v", err)
	}
	if err := m.MoveToStaged("1-first", "deadbeef"); err != nil {
		t.Fatalf("MoveToStaged: %v", err)
	}
	if err := m.MoveToStaged("1-first", "deadbeef"); err == nil {
		t.Error("expected MoveToStaged on already-staged patch to fail")
	}
}

func TestGetPatchesOrderAndFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.1.0-stage.toml")
	m, err := CreateEmpty(path)
	if err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}
	for _, id := range []string{"3-third", "1-first", "2-second"} {
		if err := m.AddPatch(id); err != nil {
			t.Fatalf("AddPatch(%s): %v", id, err)
		}
	}
	if err := m.MoveToStaged("1-first", "aaa111"); err != nil {
		t.Fatalf("MoveToStaged: %v", err)
	}

	all := m.GetPatches(nil)
	want := []string{"3-third", "1-first", "2-second"}
	if len(all) != len(want) {
		t.Fatalf("got %v, want %v", all, want)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("GetPatches()[%d] = %q, want %q (insertion order)", i, all[i], want[i])
		}
	}

	staged := StatusStaged
	stagedOnly := m.GetPatches(&staged)
	if len(stagedOnly) != 1 || stagedOnly[0] != "1-first" {
		t.Errorf("GetPatches(staged) = %v, want [1-first]", stagedOnly)
	}

	if got := m.GetMergeCommit("1-first"); got != "aaa111" {
		t.Errorf("GetMergeCommit(1-first) = %q, want aaa111", got)
	}
}

func TestSaveAndReloadPreservesOrderAndMergeCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.2.0-stage.toml")
	m, err := CreateEmpty(path)
	if err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}
	for _, id := range []string{"9-ninth", "4-fourth", "5-fifth"} {
		if err := m.AddPatch(id); err != nil {
			t.Fatalf("AddPatch(%s): %v", id, err)
		}
	}
	if err := m.MoveToStaged("4-fourth", "cafef00d"); err != nil {
		t.Fatalf("MoveToStaged: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := reloaded.GetPatches(nil)
	want := []string{"9-ninth", "4-fourth", "5-fifth"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reloaded order[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if reloaded.GetMergeCommit("4-fourth") != "cafef00d" {
		t.Errorf("reloaded merge commit = %q, want cafef00d", reloaded.GetMergeCommit("4-fourth"))
	}
	if reloaded.HasCandidates() != true {
		t.Error("expected 9-ninth and 5-fifth to remain candidates")
	}
}

func TestRemovePatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.3.0-stage.toml")
	m, err := CreateEmpty(path)
	if err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}
	if err := m.AddPatch("1-first"); err != nil {
		t.Fatalf("AddPatch: %v", err)
	}
	if err := m.RemovePatch("1-first"); err != nil {
		t.Fatalf("RemovePatch: %v", err)
	}
	if m.Contains("1-first") {
		t.Error("expected patch to be gone after RemovePatch")
	}
	if len(m.GetPatches(nil)) != 0 {
		t.Error("expected empty patch list after RemovePatch")
	}
}

func TestHasCandidatesFalseWhenAllStaged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.4.0-stage.toml")
	m, err := CreateEmpty(path)
	if err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}
	if err := m.AddPatch("1-first"); err != nil {
		t.Fatalf("AddPatch: %v", err)
	}
	if err := m.MoveToStaged("1-first", "sha1"); err != nil {
		t.Fatalf("MoveToStaged: %v", err)
	}
	if m.HasCandidates() {
		t.Error("expected HasCandidates to be false once every patch is staged")
	}
}

func TestLoadLegacyStageImpliesCandidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0.0.1-stage.txt")
	if err := os.WriteFile(path, []byte("1-first\n2-second\n"), 0o644); err != nil {
		t.Fatalf("writing legacy manifest: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.HasCandidates() {
		t.Error("expected legacy -stage.txt patches to load as candidates")
	}
	got := m.GetPatches(nil)
	if len(got) != 2 || got[0] != "1-first" || got[1] != "2-second" {
		t.Errorf("got %v, want [1-first 2-second] in file order", got)
	}
}

func TestLoadLegacyRCImpliesStaged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0.0.1-rc1.txt")
	if err := os.WriteFile(path, []byte("1-first\n"), 0o644); err != nil {
		t.Fatalf("writing legacy manifest: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	staged := StatusStaged
	if got := m.GetPatches(&staged); len(got) != 1 || got[0] != "1-first" {
		t.Errorf("expected legacy rc manifest patches to load as staged, got %v", got)
	}
}

func TestFindStageManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0.0.1-stage.toml")
	if _, err := CreateEmpty(path); err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}

	got, ok := FindStageManifest(dir, "0.0.1")
	if !ok || got != path {
		t.Errorf("FindStageManifest = (%q, %v), want (%q, true)", got, ok, path)
	}

	if _, ok := FindStageManifest(dir, "9.9.9"); ok {
		t.Error("expected no match for a version with no stage manifest")
	}
}

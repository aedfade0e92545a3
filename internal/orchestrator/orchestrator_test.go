package orchestrator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/half-orm/half-orm-dev/internal/dbconfig"
	"github.com/half-orm/half-orm-dev/internal/gitadapter"
	"github.com/half-orm/half-orm-dev/internal/manifest"
	"github.com/half-orm/half-orm-dev/internal/patchdir"
	"github.com/half-orm/half-orm-dev/internal/project"
	"github.com/half-orm/half-orm-dev/internal/version"
)

// setupProjectWithOrigin creates a bare "origin" repository and a working
// copy with main + ho-prod already pushed, mirroring what init-project
// leaves behind.
func setupProjectWithOrigin(t *testing.T) (*Orchestrator, string) {
	t.Helper()

	bareDir := t.TempDir()
	run(t, bareDir, "init", "--bare", "--initial-branch=main")

	workDir := t.TempDir()
	run(t, workDir, "init", "--initial-branch=main")
	run(t, workDir, "config", "user.email", "test@test.com")
	run(t, workDir, "config", "user.name", "Test User")

	for _, dir := range []string{"Patches", "releases", "bootstrap"} {
		if err := os.MkdirAll(filepath.Join(workDir, dir), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(workDir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("writing README: %v", err)
	}
	run(t, workDir, "add", ".")
	run(t, workDir, "commit", "-m", "initial")
	run(t, workDir, "checkout", "-b", project.ProdBranch)
	run(t, workDir, "remote", "add", "origin", bareDir)
	run(t, workDir, "push", "-u", "origin", "main")
	run(t, workDir, "push", "-u", "origin", project.ProdBranch)

	repo := gitadapter.Open(workDir)
	proj := &project.Project{Root: workDir}
	patches := patchdir.New(workDir)
	o := New(proj, repo, patches, nil, nil, nil, dbconfig.Config{})

	return o, workDir
}

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func runOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

func TestCreatePatchBareNumberReservesAndBranches(t *testing.T) {
	o, workDir := setupProjectWithOrigin(t)

	id, err := o.CreatePatch(context.Background(), "1")
	if err != nil {
		t.Fatalf("CreatePatch: %v", err)
	}
	if id != "1" {
		t.Errorf("got canonical id %q, want 1", id)
	}

	if _, err := os.Stat(filepath.Join(workDir, "Patches", "1", "README.md")); err != nil {
		t.Errorf("expected Patches/1/README.md to exist: %v", err)
	}

	branch, err := o.Repo.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "ho-patch/1" {
		t.Errorf("got branch %q, want ho-patch/1", branch)
	}
}

func TestCreatePatchWithSlugUsesExactNumber(t *testing.T) {
	o, _ := setupProjectWithOrigin(t)

	id, err := o.CreatePatch(context.Background(), "7-add-roles")
	if err != nil {
		t.Fatalf("CreatePatch: %v", err)
	}
	if id != "7-add-roles" {
		t.Errorf("got canonical id %q, want 7-add-roles", id)
	}
}

func TestCreatePatchRefusesAlreadyReservedNumber(t *testing.T) {
	o, workDir := setupProjectWithOrigin(t)

	if _, err := o.CreatePatch(context.Background(), "3-first"); err != nil {
		t.Fatalf("first CreatePatch: %v", err)
	}

	run(t, workDir, "checkout", project.ProdBranch)

	if _, err := o.CreatePatch(context.Background(), "3-second"); err == nil {
		t.Error("expected reserving an already-taken patch number to fail")
	}
}

func TestCreatePatchRefusesOffProdBranch(t *testing.T) {
	o, workDir := setupProjectWithOrigin(t)
	run(t, workDir, "checkout", "main")

	if _, err := o.CreatePatch(context.Background(), "1"); err == nil {
		t.Error("expected CreatePatch to refuse running off ho-prod")
	}
}

func TestPrepareReleaseComputesNextVersionFromNoTags(t *testing.T) {
	o, workDir := setupProjectWithOrigin(t)

	targetStr, err := o.PrepareRelease(context.Background(), version.Patch)
	if err != nil {
		t.Fatalf("PrepareRelease: %v", err)
	}
	if targetStr != "0.0.1" {
		t.Errorf("got target version %q, want 0.0.1", targetStr)
	}

	stagePath := manifest.StagePath(filepath.Join(workDir, "releases"), "0.0.1", "stage")
	if !manifest.Exists(stagePath) {
		t.Errorf("expected stage manifest at %s", stagePath)
	}
}

func TestPrepareReleaseComputesNextVersionFromHighestTag(t *testing.T) {
	o, workDir := setupProjectWithOrigin(t)
	run(t, workDir, "tag", "v1.2.3")
	run(t, workDir, "tag", "v1.3.0")

	targetStr, err := o.PrepareRelease(context.Background(), version.Minor)
	if err != nil {
		t.Fatalf("PrepareRelease: %v", err)
	}
	if targetStr != "1.4.0" {
		t.Errorf("got target version %q, want 1.4.0 (next minor above highest tag v1.3.0)", targetStr)
	}
}

func TestPrepareReleaseRefusesWhenStageAlreadyExists(t *testing.T) {
	o, _ := setupProjectWithOrigin(t)

	if _, err := o.PrepareRelease(context.Background(), version.Patch); err != nil {
		t.Fatalf("first PrepareRelease: %v", err)
	}

	if _, err := o.PrepareRelease(context.Background(), version.Patch); err == nil {
		t.Error("expected a second PrepareRelease at the same target version to refuse")
	}
}

func TestPrepareReleaseRefusesOffProdBranch(t *testing.T) {
	o, workDir := setupProjectWithOrigin(t)
	run(t, workDir, "checkout", "main")

	if _, err := o.PrepareRelease(context.Background(), version.Patch); err == nil {
		t.Error("expected PrepareRelease to refuse running off ho-prod")
	}
}

func TestPrepareReleaseRefusesDirtyWorkingTree(t *testing.T) {
	o, workDir := setupProjectWithOrigin(t)
	if err := os.WriteFile(filepath.Join(workDir, "untracked.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	run(t, workDir, "add", "untracked.txt")

	if _, err := o.PrepareRelease(context.Background(), version.Patch); err == nil {
		t.Error("expected PrepareRelease to refuse a dirty working tree")
	}
}

func TestPrepareReleaseRollsBackOnFailure(t *testing.T) {
	o, workDir := setupProjectWithOrigin(t)

	// Ignore the manifest path itself so CreateEmpty succeeds (writing the
	// file to disk) but the later `git add` refuses it, forcing PrepareRelease
	// to fail after it has already written local state.
	if err := os.WriteFile(filepath.Join(workDir, ".gitignore"), []byte("releases/*.toml\n"), 0o644); err != nil {
		t.Fatalf("writing .gitignore: %v", err)
	}
	run(t, workDir, "add", ".gitignore")
	run(t, workDir, "commit", "-m", "ignore release manifests")

	headBefore := runOutput(t, workDir, "rev-parse", "HEAD")

	if _, err := o.PrepareRelease(context.Background(), version.Patch); err == nil {
		t.Fatal("expected PrepareRelease to fail when git refuses to stage an ignored manifest path")
	}

	headAfter := runOutput(t, workDir, "rev-parse", "HEAD")
	if headAfter != headBefore {
		t.Errorf("expected HEAD to be unchanged after a failed PrepareRelease, got %s want %s", headAfter, headBefore)
	}
}

// Package gitadapter wraps Git as a typed API over a working copy, in the
// same os/exec-per-operation style the teacher's worktree manager uses for
// `git worktree`/`git sparse-checkout`: one exec.Command per operation,
// cmd.Dir pinned to the repo root, errors wrapped with combined output.
package gitadapter

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/half-orm/half-orm-dev/internal/hoperr"
)

// SyncReason explains why a branch is or isn't synced with its remote.
type SyncReason string

const (
	Synced    SyncReason = "synced"
	Ahead     SyncReason = "ahead"
	Behind    SyncReason = "behind"
	Diverged  SyncReason = "diverged"
	NoRemote  SyncReason = "no_remote"
)

// Repo is a Git Adapter bound to a single working copy.
type Repo struct {
	dir string
}

// Open returns a Repo rooted at dir. It does not itself verify dir is a Git
// working copy; the first operation will fail with context if it isn't.
func Open(dir string) *Repo {
	return &Repo{dir: dir}
}

// Init runs `git init` with initialBranch as the default branch name, for
// turning a freshly scaffolded project directory into a Git working copy.
func (r *Repo) Init(initialBranch string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "git init failed", "init", "--initial-branch="+initialBranch)
}

// AddRemote configures remote to point at url.
func (r *Repo) AddRemote(remote, url string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "failed to add remote "+remote, "remote", "add", remote, url)
}

// Dir returns the working copy root this Repo operates on.
func (r *Repo) Dir() string { return r.dir }

func (r *Repo) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...) // #nosec G204 - args are built internally, not from untrusted input
	cmd.Dir = r.dir
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func (r *Repo) mustRun(kind hoperr.Kind, errMessage string, args ...string) error {
	out, err := r.run(args...)
	if err != nil {
		return hoperr.Wrap(kind, err, fmt.Sprintf("%s: %s", errMessage, out))
	}
	return nil
}

// --- State queries ---

// HeadSHA returns the commit SHA of HEAD, used by the orchestrator as a
// rollback checkpoint before any command that mutates ho-prod.
func (r *Repo) HeadSHA() (string, error) {
	out, err := r.run("rev-parse", "HEAD")
	if err != nil {
		return "", hoperr.Wrap(hoperr.KindRemoteOperation, err, "failed to resolve HEAD: "+out)
	}
	return out, nil
}

// CurrentBranch returns the name of the currently checked-out branch.
func (r *Repo) CurrentBranch() (string, error) {
	out, err := r.run("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", hoperr.Wrap(hoperr.KindWrongBranch, err, "failed to determine current branch: "+out)
	}
	return out, nil
}

// IsClean reports whether the working tree has no uncommitted changes
// (staged or unstaged).
func (r *Repo) IsClean() (bool, error) {
	out, err := r.run("status", "--porcelain")
	if err != nil {
		return false, hoperr.Wrap(hoperr.KindDirtyRepository, err, "failed to check working tree status: "+out)
	}
	return strings.TrimSpace(out) == "", nil
}

// HasRemote reports whether remote is configured.
func (r *Repo) HasRemote(remote string) bool {
	out, err := r.run("remote")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == remote {
			return true
		}
	}
	return false
}

// IsBranchSynced compares branch against its remote-tracking counterpart,
// classifying the relationship as Synced/Ahead/Behind/Diverged/NoRemote.
func (r *Repo) IsBranchSynced(branch string) (bool, SyncReason, error) {
	if !r.HasRemote("origin") {
		return false, NoRemote, nil
	}

	upstream := "origin/" + branch
	localSHA, err := r.run("rev-parse", branch)
	if err != nil {
		return false, "", hoperr.Wrap(hoperr.KindBranchNotSynced, err, "failed to resolve local branch "+branch)
	}
	remoteSHA, err := r.run("rev-parse", upstream)
	if err != nil {
		return false, NoRemote, nil
	}
	if localSHA == remoteSHA {
		return true, Synced, nil
	}

	mergeBase, err := r.run("merge-base", branch, upstream)
	if err != nil {
		return false, "", hoperr.Wrap(hoperr.KindBranchNotSynced, err, "failed to compute merge base for "+branch)
	}

	switch mergeBase {
	case localSHA:
		return false, Behind, nil
	case remoteSHA:
		return false, Ahead, nil
	default:
		return false, Diverged, nil
	}
}

// --- Ref operations ---

// Fetch runs `git fetch <remote>`.
func (r *Repo) Fetch(remote string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "fetch failed", "fetch", remote)
}

// FetchTags runs `git fetch --tags <remote>`.
func (r *Repo) FetchTags(remote string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "fetch --tags failed", "fetch", "--tags", remote)
}

// TagExists reports whether name exists as a local tag, or (if remote is
// true) as a tag on origin: it checks origin's remote-tracking tag refs
// first and otherwise asks origin directly with `git ls-remote --tags`.
func (r *Repo) TagExists(name string, remote bool) bool {
	if remote {
		_, err := r.run("rev-parse", "--verify", "--quiet", "refs/remotes/origin/tags/"+name)
		if err == nil {
			return true
		}
		out, err := r.run("ls-remote", "--tags", "origin", name)
		return err == nil && strings.TrimSpace(out) != ""
	}
	_, err := r.run("rev-parse", "--verify", "--quiet", "refs/tags/"+name)
	return err == nil
}

// CreateTag creates a local annotated (if message is non-empty) or
// lightweight tag.
func (r *Repo) CreateTag(name string, message string) error {
	args := []string{"tag"}
	if message != "" {
		args = append(args, "-a", name, "-m", message)
	} else {
		args = append(args, name)
	}
	return r.mustRun(hoperr.KindRemoteOperation, "tag creation failed", args...)
}

// DeleteLocalTag removes a local tag.
func (r *Repo) DeleteLocalTag(name string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "local tag deletion failed", "tag", "-d", name)
}

// PushTag pushes a tag ref to remote. Push is atomic per-ref at the Git
// server, which is what makes the reservation protocol in the orchestrator's
// reserveExact/reserveNextFree a valid distributed compare-and-set.
func (r *Repo) PushTag(name string, remote string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "tag push failed", "push", remote, "refs/tags/"+name)
}

// Checkout checks out ref in the working tree.
func (r *Repo) Checkout(ref string) error {
	return r.mustRun(hoperr.KindWrongBranch, "checkout failed", "checkout", ref)
}

// CreateBranch creates name from fromRef and checks it out.
func (r *Repo) CreateBranch(name string, fromRef string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "branch creation failed", "checkout", "-b", name, fromRef)
}

// DeleteLocalBranch removes a local branch (force, since archival branches
// may not be fully merged into the current HEAD).
func (r *Repo) DeleteLocalBranch(name string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "local branch deletion failed", "branch", "-D", name)
}

// RenameBranch renames a local branch.
func (r *Repo) RenameBranch(oldName, newName string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "branch rename failed", "branch", "-m", oldName, newName)
}

// PushBranch pushes name to remote, setting the upstream.
func (r *Repo) PushBranch(name string, remote string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "branch push failed", "push", "-u", remote, name)
}

// DeleteRemoteBranch deletes name on remote.
func (r *Repo) DeleteRemoteBranch(name string, remote string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "remote branch deletion failed", "push", remote, "--delete", name)
}

// HardReset resets the working tree and index to ref, discarding local
// changes. Used by the orchestrator to roll back to a checkpoint commit on
// any local-phase failure.
func (r *Repo) HardReset(ref string) error {
	return r.mustRun(hoperr.KindRemoteOperation, "hard reset failed", "reset", "--hard", ref)
}

// --- Working tree ---

// Add stages paths.
func (r *Repo) Add(paths ...string) error {
	args := append([]string{"add"}, paths...)
	return r.mustRun(hoperr.KindRemoteOperation, "git add failed", args...)
}

// Commit creates a commit with message and returns its SHA.
func (r *Repo) Commit(message string) (string, error) {
	if _, err := r.run("commit", "-m", message); err != nil {
		out, _ := r.run("status", "--porcelain")
		return "", hoperr.New(hoperr.KindRemoteOperation, "commit failed: "+out)
	}
	sha, err := r.run("rev-parse", "HEAD")
	if err != nil {
		return "", hoperr.Wrap(hoperr.KindRemoteOperation, err, "failed to resolve new commit SHA")
	}
	return sha, nil
}

// LsTree lists files tracked at ref, recursively by default.
func (r *Repo) LsTree(ref string, recursive bool) ([]string, error) {
	args := []string{"ls-tree", "--name-only"}
	if recursive {
		args = append(args, "-r")
	}
	args = append(args, ref)
	out, err := r.run(args...)
	if err != nil {
		return nil, hoperr.Wrap(hoperr.KindRemoteOperation, err, "ls-tree failed: "+out)
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// MergeMode selects fast-forward-only vs explicit merge commit behavior.
type MergeMode int

const (
	NoFastForward MergeMode = iota
	FastForwardOnly
)

// Merge merges branch into the current branch and returns the resulting
// merge commit SHA. Conflicts are surfaced verbatim to the caller; the
// adapter makes no attempt at resolution.
func (r *Repo) Merge(branch string, message string, mode MergeMode) (string, error) {
	args := []string{"merge"}
	switch mode {
	case FastForwardOnly:
		args = append(args, "--ff-only")
	default:
		args = append(args, "--no-ff", "-m", message)
	}
	args = append(args, branch)

	out, err := r.run(args...)
	if err != nil {
		return "", hoperr.New(hoperr.KindRemoteOperation, "merge conflict or failure: "+out)
	}
	sha, shaErr := r.run("rev-parse", "HEAD")
	if shaErr != nil {
		return "", hoperr.Wrap(hoperr.KindRemoteOperation, shaErr, "failed to resolve merge commit SHA")
	}
	return sha, nil
}

// IsCommitReachableFrom reports whether commit is an ancestor of (or equal
// to) ref — used to verify manifest merge_commit invariants.
func (r *Repo) IsCommitReachableFrom(commit, ref string) (bool, error) {
	_, err := r.run("merge-base", "--is-ancestor", commit, ref)
	if err == nil {
		return true, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, hoperr.Wrap(hoperr.KindRemoteOperation, err, "failed to check ancestry")
}

// HighestVersionTag scans the local tags reachable from HEAD that match
// "v<semver>" (no pre-release suffix) and returns the greatest one by
// numeric (major, minor, patch) ordering, or ok=false if none exist.
func (r *Repo) HighestVersionTag(prefix string) (tag string, ok bool, err error) {
	out, runErr := r.run("tag", "--list", "--merged", "HEAD", prefix+"*")
	if runErr != nil {
		return "", false, hoperr.Wrap(hoperr.KindRemoteOperation, runErr, "failed to list tags")
	}
	if strings.TrimSpace(out) == "" {
		return "", false, nil
	}

	var best string
	var bestMaj, bestMin, bestPatch int
	found := false
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "-") {
			continue // skip RC / pre-release tags
		}
		rest := strings.TrimPrefix(line, prefix)
		parts := strings.SplitN(rest, ".", 3)
		if len(parts) != 3 {
			continue
		}
		maj, e1 := strconv.Atoi(parts[0])
		min, e2 := strconv.Atoi(parts[1])
		patch, e3 := strconv.Atoi(parts[2])
		if e1 != nil || e2 != nil || e3 != nil {
			continue
		}
		if !found || maj > bestMaj || (maj == bestMaj && min > bestMin) || (maj == bestMaj && min == bestMin && patch > bestPatch) {
			found = true
			best = line
			bestMaj, bestMin, bestPatch = maj, min, patch
		}
	}
	return best, found, nil
}

// Package orchestrator implements the release state machine: create-patch,
// prepare-release, add-to-release, promote-to-rc, promote-to-prod, and
// deploy-to-prod. It binds the Git Adapter, Release-Manifest Store, Patch
// Directory Manager, Bootstrap Manager, Patch Applier, and Repository
// Authority together behind one operation per verb.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/half-orm/half-orm-dev/internal/applier"
	"github.com/half-orm/half-orm-dev/internal/bootstrap"
	"github.com/half-orm/half-orm-dev/internal/database"
	"github.com/half-orm/half-orm-dev/internal/dbconfig"
	"github.com/half-orm/half-orm-dev/internal/gitadapter"
	"github.com/half-orm/half-orm-dev/internal/hoperr"
	"github.com/half-orm/half-orm-dev/internal/manifest"
	"github.com/half-orm/half-orm-dev/internal/patchdir"
	"github.com/half-orm/half-orm-dev/internal/patchid"
	"github.com/half-orm/half-orm-dev/internal/project"
	"github.com/half-orm/half-orm-dev/internal/version"
)

// maxReservationProbe bounds how many candidate patch numbers create-patch
// will probe before giving up on finding a free slot.
const maxReservationProbe = 100000

// Orchestrator wires together the components the release state machine
// drives. One Orchestrator operates on one project/developer-database pair.
type Orchestrator struct {
	Proj    *project.Project
	Repo    *gitadapter.Repo
	Patches *patchdir.Manager
	Boot    *bootstrap.Manager
	Apply   *applier.Applier
	DB      *database.Database
	DBCfg   dbconfig.Config
}

// New assembles an Orchestrator from its collaborators.
func New(proj *project.Project, repo *gitadapter.Repo, patches *patchdir.Manager, boot *bootstrap.Manager, app *applier.Applier, db *database.Database, dbCfg dbconfig.Config) *Orchestrator {
	return &Orchestrator{Proj: proj, Repo: repo, Patches: patches, Boot: boot, Apply: app, DB: db, DBCfg: dbCfg}
}

// requireOnProdClean enforces the state machine's blanket precondition:
// every command runs from ho-prod with no uncommitted changes.
func (o *Orchestrator) requireOnProdClean() error {
	branch, err := o.Repo.CurrentBranch()
	if err != nil {
		return err
	}
	if branch != project.ProdBranch {
		return hoperr.New(hoperr.KindWrongBranch,
			fmt.Sprintf("must be on %s, currently on %s", project.ProdBranch, branch),
			"branch", branch, "expected_branch", project.ProdBranch)
	}
	clean, err := o.Repo.IsClean()
	if err != nil {
		return err
	}
	if !clean {
		return hoperr.New(hoperr.KindDirtyRepository, "working tree is not clean")
	}
	return nil
}

// withRollback captures HEAD, runs fn, and hard-resets ho-prod back to the
// checkpoint if fn fails — the recoverable-on-error-state guarantee every
// command that mutates ho-prod must provide.
func (o *Orchestrator) withRollback(fn func() error) error {
	checkpoint, err := o.Repo.HeadSHA()
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		_ = o.Repo.HardReset(checkpoint)
		return err
	}
	return nil
}

func reservationTag(number int) string {
	return "ho-patch/" + strconv.Itoa(number)
}

// reserveExact claims patch number n via the tag-push compare-and-set
// protocol, failing if the number is already taken.
func (o *Orchestrator) reserveExact(n int) error {
	if err := o.Repo.FetchTags("origin"); err != nil {
		return err
	}
	tag := reservationTag(n)
	if o.Repo.TagExists(tag, false) || o.Repo.TagExists(tag, true) {
		return hoperr.New(hoperr.KindNameConflict, "patch number already reserved: "+tag, "tag", tag)
	}
	if err := o.Repo.CreateTag(tag, ""); err != nil {
		return err
	}
	if err := o.Repo.PushTag(tag, "origin"); err != nil {
		_ = o.Repo.DeleteLocalTag(tag)
		return hoperr.Wrap(hoperr.KindNameConflict, err, "lost the reservation race for "+tag)
	}
	return nil
}

// reserveNextFree probes ho-patch/<N> tags starting from 1 and claims the
// smallest free N via the same compare-and-set protocol, retrying past any
// number another developer wins concurrently.
func (o *Orchestrator) reserveNextFree() (int, error) {
	if err := o.Repo.FetchTags("origin"); err != nil {
		return 0, err
	}
	for n := 1; n <= maxReservationProbe; n++ {
		tag := reservationTag(n)
		if o.Repo.TagExists(tag, false) || o.Repo.TagExists(tag, true) {
			continue
		}
		if err := o.Repo.CreateTag(tag, ""); err != nil {
			return 0, err
		}
		if err := o.Repo.PushTag(tag, "origin"); err != nil {
			_ = o.Repo.DeleteLocalTag(tag)
			continue
		}
		return n, nil
	}
	return 0, hoperr.New(hoperr.KindNameConflict, "no free patch number found below the probe limit")
}

// CreatePatch reserves a patch number (exactly, for an "N-slug" argument; the
// smallest free slot, for a bare number), branches ho-patch/<id> from
// ho-prod, scaffolds its directory, and pushes the branch.
func (o *Orchestrator) CreatePatch(ctx context.Context, idOrNumber string) (string, error) {
	info, err := patchid.Validate(idOrNumber)
	if err != nil {
		return "", err
	}

	number := info.Number
	if info.Slug == "" {
		number, err = o.reserveNextFree()
	} else {
		err = o.reserveExact(info.Number)
	}
	if err != nil {
		return "", err
	}

	canonical := strconv.Itoa(number)
	if info.Slug != "" {
		canonical = fmt.Sprintf("%d-%s", number, info.Slug)
	}

	if err := o.requireOnProdClean(); err != nil {
		return "", err
	}
	if !o.Repo.HasRemote("origin") {
		return "", hoperr.New(hoperr.KindRemoteOperation, "no remote 'origin' configured")
	}
	synced, reason, err := o.Repo.IsBranchSynced(project.ProdBranch)
	if err != nil {
		return "", err
	}
	if !synced {
		return "", hoperr.New(hoperr.KindBranchNotSynced,
			fmt.Sprintf("%s is not synced with origin (%s)", project.ProdBranch, reason),
			"branch", project.ProdBranch, "reason", string(reason))
	}

	branch := "ho-patch/" + canonical
	if err := o.Repo.CreateBranch(branch, project.ProdBranch); err != nil {
		return "", err
	}

	if err := o.createAndPushPatch(canonical, branch); err != nil {
		_ = o.Repo.Checkout(project.ProdBranch)
		_ = o.Repo.DeleteLocalBranch(branch)
		return "", err
	}

	return canonical, nil
}

func (o *Orchestrator) createAndPushPatch(canonical, branch string) error {
	if err := o.Patches.Create(canonical, ""); err != nil {
		return err
	}
	if err := o.Repo.Add("Patches/" + canonical); err != nil {
		return err
	}
	if _, err := o.Repo.Commit("Create patch " + canonical); err != nil {
		return err
	}
	return o.Repo.PushBranch(branch, "origin")
}

// PrepareRelease computes the next version of kind from the highest v<X.Y.Z>
// tag on ho-prod (0.0.0 if none exists yet) and creates its empty stage
// manifest, committed on ho-prod.
func (o *Orchestrator) PrepareRelease(ctx context.Context, kind version.Kind) (string, error) {
	if err := o.requireOnProdClean(); err != nil {
		return "", err
	}

	current := version.Info{}
	if tag, ok, err := o.Repo.HighestVersionTag("v"); err != nil {
		return "", err
	} else if ok {
		parsed, err := version.Parse(strings.TrimPrefix(tag, "v"))
		if err != nil {
			return "", err
		}
		current = parsed
	}

	target := version.NextVersion(current, kind)
	targetStr := target.String()

	stagePath := manifest.StagePath(o.Proj.ReleasesDir(), targetStr, "stage")
	if manifest.Exists(stagePath) {
		return "", hoperr.New(hoperr.KindVersionProgression,
			fmt.Sprintf("release %s already has a stage manifest", targetStr), "version", targetStr)
	}

	err := o.withRollback(func() error {
		if _, err := manifest.CreateEmpty(stagePath); err != nil {
			return err
		}
		if err := o.Repo.Add(stagePath); err != nil {
			return err
		}
		_, err := o.Repo.Commit(fmt.Sprintf("Prepare release %s (stage)", targetStr))
		return err
	})
	if err != nil {
		return "", err
	}
	return targetStr, nil
}

// AddToRelease integrates patchID into the open stage manifest: merges its
// branch into ho-prod, runs it against the developer database, records it as
// staged with the merge commit, and archives the patch branch.
func (o *Orchestrator) AddToRelease(ctx context.Context, patchID string) error {
	if err := o.requireOnProdClean(); err != nil {
		return err
	}

	stagePath, ok := findOpenStage(o.Proj.ReleasesDir())
	if !ok {
		return hoperr.New(hoperr.KindStageHasCandidates, "no open stage manifest found; run prepare-release first")
	}
	targetVersion := stageVersion(stagePath)

	m, err := manifest.Load(stagePath)
	if err != nil {
		return err
	}
	if m.Contains(patchID) {
		return hoperr.New(hoperr.KindPatchAlreadyInRelease,
			"patch "+patchID+" is already present in a release manifest", "patch_id", patchID)
	}

	branch := "ho-patch/" + patchID
	archiveBranch := fmt.Sprintf("ho-release/%s/%s", targetVersion, patchID)

	return o.withRollback(func() error {
		mergeSHA, err := o.Repo.Merge(branch, "Integrate "+patchID+" into "+targetVersion, gitadapter.NoFastForward)
		if err != nil {
			return err
		}

		if err := o.Apply.ApplyPatch(ctx, patchID); err != nil {
			return hoperr.Wrap(hoperr.KindFileExecution, err,
				"patch "+patchID+" failed verification against the developer database")
		}

		if err := m.AddPatch(patchID); err != nil {
			return err
		}
		if err := m.MoveToStaged(patchID, mergeSHA); err != nil {
			return err
		}

		if err := o.Repo.RenameBranch(branch, archiveBranch); err != nil {
			return err
		}
		_ = o.Repo.DeleteRemoteBranch(branch, "origin")

		if err := o.Repo.Add(stagePath); err != nil {
			return err
		}
		_, err = o.Repo.Commit("Integrate " + patchID + " into " + targetVersion)
		if err != nil {
			return err
		}
		return o.Repo.PushBranch(project.ProdBranch, "origin")
	})
}

// PromoteToRC freezes the open stage manifest (refusing if any patch is
// still a candidate), renames it to the next rc<K>, opens a fresh empty
// stage at the same version, dumps the schema snapshot, and deletes the
// now-integrated ho-patch branches.
func (o *Orchestrator) PromoteToRC(ctx context.Context) (string, error) {
	if err := o.requireOnProdClean(); err != nil {
		return "", err
	}

	stagePath, ok := findOpenStage(o.Proj.ReleasesDir())
	if !ok {
		return "", hoperr.New(hoperr.KindStageHasCandidates, "no open stage manifest found")
	}
	targetVersion := stageVersion(stagePath)

	m, err := manifest.Load(stagePath)
	if err != nil {
		return "", err
	}
	if m.HasCandidates() {
		return "", hoperr.New(hoperr.KindStageHasCandidates,
			"stage manifest for "+targetVersion+" still has unintegrated candidates")
	}

	rc := nextRCNumber(o.Proj.ReleasesDir(), targetVersion)
	rcPath := manifest.StagePath(o.Proj.ReleasesDir(), targetVersion, fmt.Sprintf("rc%d", rc))
	rcTag := fmt.Sprintf("v%s-rc%d", targetVersion, rc)
	staged := manifest.StatusStaged

	err = o.withRollback(func() error {
		if err := osRename(stagePath, rcPath); err != nil {
			return err
		}
		newStagePath := manifest.StagePath(o.Proj.ReleasesDir(), targetVersion, "stage")
		if _, err := manifest.CreateEmpty(newStagePath); err != nil {
			return err
		}

		if err := project.DumpSchema(ctx, o.DBCfg, targetVersion, o.Proj.SchemaPath(targetVersion)); err != nil {
			return err
		}
		if err := o.Proj.RetargetSchemaSymlink(targetVersion); err != nil {
			return err
		}

		rcManifest, err := manifest.Load(rcPath)
		if err != nil {
			return err
		}
		for _, patchID := range rcManifest.GetPatches(&staged) {
			branch := "ho-patch/" + patchID
			_ = o.Repo.DeleteLocalBranch(branch)
			_ = o.Repo.DeleteRemoteBranch(branch, "origin")
		}

		if err := o.Repo.Add(rcPath, newStagePath, o.Proj.ModelDir()); err != nil {
			return err
		}
		if _, err := o.Repo.Commit(fmt.Sprintf("Promote %s stage -> rc%d", targetVersion, rc)); err != nil {
			return err
		}
		if err := o.Repo.CreateTag(rcTag, ""); err != nil {
			return err
		}
		if err := o.Repo.PushBranch(project.ProdBranch, "origin"); err != nil {
			return err
		}
		return o.Repo.PushTag(rcTag, "origin")
	})
	if err != nil {
		return "", err
	}
	return rcTag, nil
}

// PromoteToProd tags the current ho-prod commit as the production release
// for targetVersion (requiring at least one existing rc) and records the
// metadata insert that deploy-to-prod will later replay.
func (o *Orchestrator) PromoteToProd(ctx context.Context, targetVersion string) (string, error) {
	if err := o.requireOnProdClean(); err != nil {
		return "", err
	}

	rc := nextRCNumber(o.Proj.ReleasesDir(), targetVersion) - 1
	if rc < 1 {
		return "", hoperr.New(hoperr.KindVersionProgression,
			"release "+targetVersion+" has no promoted release candidate yet")
	}

	prodTag := "v" + targetVersion
	metadataPath := o.Proj.MetadataPath(targetVersion)

	err := o.withRollback(func() error {
		info, err := version.Parse(targetVersion)
		if err != nil {
			return err
		}
		insertSQL := fmt.Sprintf(
			"INSERT INTO half_orm_meta.hop_release (major, minor, patch, pre_release) VALUES (%d, %d, %d, '');\n",
			info.Major, info.Minor, info.Patch)
		if err := writeFile(metadataPath, insertSQL); err != nil {
			return err
		}

		if err := o.Repo.Add(metadataPath); err != nil {
			return err
		}
		if _, err := o.Repo.Commit("Promote " + targetVersion + " to production"); err != nil {
			return err
		}
		if err := o.Repo.CreateTag(prodTag, ""); err != nil {
			return err
		}
		if err := o.Repo.PushBranch(project.ProdBranch, "origin"); err != nil {
			return err
		}
		return o.Repo.PushTag(prodTag, "origin")
	})
	if err != nil {
		return "", err
	}
	return prodTag, nil
}

// CreateHotfix integrates patchID directly into a production release,
// bypassing the normal stage -> rc progression: it merges ho-patch/<id> into
// ho-prod, verifies it against the developer database, records it as staged
// in a fresh hotfix manifest, writes the metadata insert, and tags the
// result v<version> directly. The target version is the next patch release
// above the highest existing v<X.Y.Z> tag, since a hotfix is by definition a
// patch-level bump applied outside the regular release train.
func (o *Orchestrator) CreateHotfix(ctx context.Context, patchID string) (string, error) {
	if err := o.requireOnProdClean(); err != nil {
		return "", err
	}

	current := version.Info{}
	if tag, ok, err := o.Repo.HighestVersionTag("v"); err != nil {
		return "", err
	} else if ok {
		parsed, err := version.Parse(strings.TrimPrefix(tag, "v"))
		if err != nil {
			return "", err
		}
		current = parsed
	}
	target := version.NextVersion(current, version.Patch)
	targetVersion := target.String()

	hotfixPath := manifest.StagePath(o.Proj.ReleasesDir(), targetVersion, "hotfix")
	if manifest.Exists(hotfixPath) {
		return "", hoperr.New(hoperr.KindVersionProgression,
			"release "+targetVersion+" already has a hotfix manifest", "version", targetVersion)
	}

	branch := "ho-patch/" + patchID
	archiveBranch := fmt.Sprintf("ho-release/%s/%s", targetVersion, patchID)
	prodTag := "v" + targetVersion
	metadataPath := o.Proj.MetadataPath(targetVersion)

	err := o.withRollback(func() error {
		mergeSHA, err := o.Repo.Merge(branch, "Hotfix "+patchID+" into "+targetVersion, gitadapter.NoFastForward)
		if err != nil {
			return err
		}
		if err := o.Apply.ApplyPatch(ctx, patchID); err != nil {
			return hoperr.Wrap(hoperr.KindFileExecution, err,
				"hotfix "+patchID+" failed verification against the developer database")
		}

		m, err := manifest.CreateEmpty(hotfixPath)
		if err != nil {
			return err
		}
		if err := m.AddPatch(patchID); err != nil {
			return err
		}
		if err := m.MoveToStaged(patchID, mergeSHA); err != nil {
			return err
		}

		if err := project.DumpSchema(ctx, o.DBCfg, targetVersion, o.Proj.SchemaPath(targetVersion)); err != nil {
			return err
		}
		if err := o.Proj.RetargetSchemaSymlink(targetVersion); err != nil {
			return err
		}

		insertSQL := fmt.Sprintf(
			"INSERT INTO half_orm_meta.hop_release (major, minor, patch, pre_release) VALUES (%d, %d, %d, '');\n",
			target.Major, target.Minor, target.Patch)
		if err := writeFile(metadataPath, insertSQL); err != nil {
			return err
		}

		if err := o.Repo.RenameBranch(branch, archiveBranch); err != nil {
			return err
		}
		_ = o.Repo.DeleteRemoteBranch(branch, "origin")

		if err := o.Repo.Add(hotfixPath, metadataPath, o.Proj.ModelDir()); err != nil {
			return err
		}
		if _, err := o.Repo.Commit("Hotfix release " + targetVersion); err != nil {
			return err
		}
		if err := o.Repo.CreateTag(prodTag, ""); err != nil {
			return err
		}
		if err := o.Repo.PushBranch(project.ProdBranch, "origin"); err != nil {
			return err
		}
		return o.Repo.PushTag(prodTag, "origin")
	})
	if err != nil {
		return "", err
	}
	return prodTag, nil
}

// DeployToProd checks out release tag v<targetVersion>, applies every staged
// patch in manifest order against the target database, runs pending
// bootstrap, and registers the release row. Unlike the ho-prod-mutating
// commands above, failures here leave the target database in whatever state
// the last successful statement produced — there is no Git-state rollback
// to perform because this command runs against a read-only tag checkout and
// a single target database, not the developer's ho-prod branch.
func (o *Orchestrator) DeployToProd(ctx context.Context, targetVersion string) error {
	tag := "v" + targetVersion
	if err := o.Repo.Checkout(tag); err != nil {
		return err
	}

	rcPath, ok := findPromotedRC(o.Proj.ReleasesDir(), targetVersion)
	if !ok {
		return hoperr.New(hoperr.KindVersionProgression,
			"no promoted release-candidate manifest found for "+targetVersion)
	}
	m, err := manifest.Load(rcPath)
	if err != nil {
		return err
	}

	staged := manifest.StatusStaged
	for _, patchID := range m.GetPatches(&staged) {
		if err := o.Apply.ApplyPatch(ctx, patchID); err != nil {
			return err
		}
	}

	if _, err := o.Boot.Run(ctx, false, false, ""); err != nil {
		return err
	}

	return applier.ReadMetadataInsert(ctx, o.Proj.MetadataPath(targetVersion), o.DB)
}

// Package applier drives ordered execution of patch files against a
// database, both for a single developer integration step and for the
// from-scratch replay of an entire release lineage.
package applier

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/half-orm/half-orm-dev/internal/bootstrap"
	"github.com/half-orm/half-orm-dev/internal/database"
	"github.com/half-orm/half-orm-dev/internal/dbconfig"
	"github.com/half-orm/half-orm-dev/internal/fileexec"
	"github.com/half-orm/half-orm-dev/internal/hoperr"
	"github.com/half-orm/half-orm-dev/internal/manifest"
	"github.com/half-orm/half-orm-dev/internal/patchdir"
	"github.com/half-orm/half-orm-dev/internal/project"
)

// CodeGenerator regenerates the developer's Python ORM package and the
// authoritative schema snapshot from a live database. It is the "external
// code generator" collaborator referenced by the project layout — this
// package only defines the seam; the generator itself lives outside the
// lifecycle manager's scope.
type CodeGenerator interface {
	Regenerate(ctx context.Context, db *database.Database, proj *project.Project) error
}

// NoopGenerator satisfies CodeGenerator without doing anything, for
// callers (and tests) that don't have a real generator wired up.
type NoopGenerator struct{}

// Regenerate does nothing and never fails.
func (NoopGenerator) Regenerate(context.Context, *database.Database, *project.Project) error {
	return nil
}

// Applier executes patch and bootstrap files against one database.
type Applier struct {
	proj      *project.Project
	patches   *patchdir.Manager
	bootstrap *bootstrap.Manager
	db        *database.Database
	gen       CodeGenerator
}

// New returns an Applier wired to proj's patch/bootstrap directories,
// operating against db. gen may be nil, in which case NoopGenerator is used.
func New(proj *project.Project, patches *patchdir.Manager, boot *bootstrap.Manager, db *database.Database, gen CodeGenerator) *Applier {
	if gen == nil {
		gen = NoopGenerator{}
	}
	return &Applier{proj: proj, patches: patches, bootstrap: boot, db: db, gen: gen}
}

// Regenerate re-runs code generation against the current database state
// without applying any patch first — what sync-package drives when a
// developer wants the generated package refreshed without an accompanying
// schema change.
func (a *Applier) Regenerate(ctx context.Context) error {
	return a.gen.Regenerate(ctx, a.db, a.proj)
}

// runFile delegates one patch file to C3 by extension.
func (a *Applier) runFile(ctx context.Context, f patchdir.File) error {
	switch f.Kind {
	case patchdir.KindSQL:
		return fileexec.ExecuteSQL(ctx, f.Path, a.db.DB())
	case patchdir.KindPython:
		_, err := fileexec.ExecutePython(ctx, f.Path, filepath.Dir(f.Path), a.proj.Root)
		return err
	default:
		return hoperr.New(hoperr.KindFileExecution, "unsupported patch file type", "filename", f.Name)
	}
}

// ApplyPatch executes every file of patchID in lexicographic order against
// the database, then asks the code generator to reflect the live schema.
// Bootstrap/data files within the patch are not skipped — they run as an
// ordinary part of the patch.
func (a *Applier) ApplyPatch(ctx context.Context, patchID string) error {
	files, err := a.patches.Files(patchID, patchdir.KindAny)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := a.runFile(ctx, f); err != nil {
			return err
		}
	}
	return a.gen.Regenerate(ctx, a.db, a.proj)
}

// ApplyDataFiles replays only the @HOP:data / @HOP:bootstrap files of
// patchID, in order — used during fresh-install replay to rehydrate
// reference data whose DDL is already present in a schema snapshot.
func (a *Applier) ApplyDataFiles(ctx context.Context, patchID string) error {
	files, err := a.patches.DataFiles(patchID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := a.runFile(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

var idempotencyMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ON\s+CONFLICT`),
	regexp.MustCompile(`(?is)DELETE\s+.+\s+WHERE\s+.+;\s*INSERT`),
	regexp.MustCompile(`(?i)WHERE\s+NOT\s+EXISTS`),
}

// CheckDataFileIdempotency scans a @HOP:data file's content for one of the
// accepted idempotency markers. It never blocks execution — the applier
// warns, it does not refuse.
func CheckDataFileIdempotency(path string) (ok bool, warning string) {
	content, err := os.ReadFile(path) // #nosec G304 - path comes from patch directory enumeration
	if err != nil {
		return true, "" // unreadable is not this function's problem to report
	}
	for _, re := range idempotencyMarkers {
		if re.Match(content) {
			return true, ""
		}
	}
	return false, fmt.Sprintf(
		"data file %s carries no ON CONFLICT / WHERE NOT EXISTS / delete-then-insert guard; "+
			"re-running it on an already-seeded database may duplicate rows", path)
}

// ReleaseStep is one release's resolved manifest, used to drive a
// from-scratch replay across the full lineage.
type ReleaseStep struct {
	Version  string
	Manifest *manifest.Manifest
}

// LoadSchemaSnapshot restores a pg_dump --schema-only snapshot into the
// target database via psql, the inverse of project.DumpSchema.
func LoadSchemaSnapshot(ctx context.Context, cfg dbconfig.Config, schemaPath string) error {
	args := []string{"-d", cfg.Name}
	if cfg.Host != "" {
		args = append(args, "-h", cfg.Host)
	}
	if cfg.Port != "" {
		args = append(args, "-p", cfg.Port)
	}
	if cfg.User != "" {
		args = append(args, "-U", cfg.User)
	}
	args = append(args, "-f", schemaPath)

	cmd := exec.CommandContext(ctx, "psql", args...) // #nosec G204 - args built from resolved config
	cmd.Env = os.Environ()
	if cfg.Password != "" {
		cmd.Env = append(cmd.Env, "PGPASSWORD="+cfg.Password)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err,
			"failed to load schema snapshot "+schemaPath+": "+strings.TrimSpace(string(out)))
	}
	return nil
}

// FreshInstall drives a from-scratch rebuild: load the schema-<V>.sql
// snapshot of the highest recorded release (each promotion dumps the live,
// cumulative schema, so that snapshot already carries every release's DDL up
// to V), then replay every release's staged patches' data files in order —
// pg_dump --schema-only never carries data, including the baseline release's
// own, so every release's @HOP:data files must re-run, not just the ones
// after some cutoff. Finally runs pending bootstrap and registers each
// release's row. releases must be non-empty and in ascending version order,
// e.g. orchestrator.ReleaseHistory's result.
func (a *Applier) FreshInstall(ctx context.Context, cfg dbconfig.Config, releases []ReleaseStep) error {
	if len(releases) == 0 {
		return hoperr.New(hoperr.KindFileExecution, "no recorded release to restore from")
	}

	baseline := releases[len(releases)-1].Version
	schemaPath := a.proj.SchemaPath(baseline)
	if err := LoadSchemaSnapshot(ctx, cfg, schemaPath); err != nil {
		return err
	}

	staged := manifest.StatusStaged
	for _, step := range releases {
		for _, patchID := range step.Manifest.GetPatches(&staged) {
			if err := a.ApplyDataFiles(ctx, patchID); err != nil {
				return err
			}
		}
		if err := a.registerRelease(ctx, step.Version); err != nil {
			return err
		}
	}

	_, err := a.bootstrap.Run(ctx, false, false, "")
	return err
}

// registerRelease inserts targetVersion into half_orm_meta.hop_release,
// parsing the "major.minor.patch[-pre]" string into its components.
func (a *Applier) registerRelease(ctx context.Context, version string) error {
	base := version
	pre := ""
	if idx := strings.IndexByte(version, '-'); idx >= 0 {
		base = version[:idx]
		pre = version[idx+1:]
	}
	parts := strings.SplitN(base, ".", 3)
	if len(parts) != 3 {
		return hoperr.New(hoperr.KindInvalidVersion, "cannot register malformed release version "+version)
	}

	row := map[string]interface{}{
		"major":       parts[0],
		"minor":       parts[1],
		"patch":       parts[2],
		"pre_release": pre,
	}
	return a.db.Insert(ctx, "half_orm_meta.hop_release", row)
}

// ReadMetadataInsert reads a metadata-<version>.sql file (a single INSERT
// statement written at promote-to-prod time) and replays it verbatim
// against the database, used by deploy-to-prod to register the release row
// from its authoritative recorded form rather than re-deriving it.
func ReadMetadataInsert(ctx context.Context, path string, db *database.Database) error {
	f, err := os.Open(path) // #nosec G304 - path is project-controlled
	if err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to open "+path)
	}
	defer f.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to read "+path)
	}

	content := strings.TrimSpace(b.String())
	if content == "" {
		return nil
	}
	return db.Execute(ctx, content)
}

// Package project owns the on-disk project layout: .hop/config resolution,
// schema snapshot bookkeeping, and initialization of a fresh Git-centric
// project. It is the single source of truth for "which database / which
// version / which config" a command is operating against.
package project

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/half-orm/half-orm-dev/internal/database"
	"github.com/half-orm/half-orm-dev/internal/dbconfig"
	"github.com/half-orm/half-orm-dev/internal/gitadapter"
	"github.com/half-orm/half-orm-dev/internal/hoperr"
)

// ProdBranch is the sole production integration branch every Git-centric
// project converges on; see gitadapter for the operations performed against
// it.
const ProdBranch = "ho-prod"

// Config is the parsed .hop/config [halfORM] section.
type Config struct {
	HopVersion  string
	GitOrigin   string
	Devel       bool
	PackageName string // legacy; superseded by alt_config / directory basename
}

// Project is a resolved project root plus its parsed configuration.
type Project struct {
	Root   string
	Config Config
}

const (
	hopDir        = ".hop"
	configFile    = "config"
	altConfigFile = "alt_config"
	modelDir      = "model"
)

// Discover walks up from startDir looking for .hop/config, the same way
// the original tool's process-wide repo singleton was discovered — except
// here it's a pure function returning an explicit value instead of a
// process-wide cache.
func Discover(startDir string) (*Project, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, hopDir, configFile)
		if _, err := os.Stat(candidate); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, hoperr.New(hoperr.KindDatabaseNotConfigured,
		fmt.Sprintf("no .hop/config found above %s; is this a hop project?", startDir))
}

// Load parses root/.hop/config into a Project.
func Load(root string) (*Project, error) {
	cfg, err := LoadConfigFile(filepath.Join(root, hopDir, configFile))
	if err != nil {
		return nil, err
	}
	return &Project{Root: root, Config: cfg}, nil
}

// LoadConfigFile parses a .hop/config file's [halfORM] section.
func LoadConfigFile(path string) (Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Config{}, hoperr.Wrap(hoperr.KindFileExecution, err, "failed to parse "+path)
	}
	section := file.Section("halfORM")
	return Config{
		HopVersion:  section.Key("hop_version").String(),
		GitOrigin:   section.Key("git_origin").String(),
		Devel:       section.Key("devel").MustBool(true),
		PackageName: section.Key("package_name").String(),
	}, nil
}

// SaveConfig writes cfg to path as a .hop/config [halfORM] section.
func SaveConfig(path string, cfg Config) error {
	file := ini.Empty()
	section, err := file.NewSection("halfORM")
	if err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to build config section")
	}
	_, _ = section.NewKey("hop_version", cfg.HopVersion)
	_, _ = section.NewKey("git_origin", cfg.GitOrigin)
	_, _ = section.NewKey("devel", fmt.Sprintf("%t", cfg.Devel))
	if cfg.PackageName != "" {
		_, _ = section.NewKey("package_name", cfg.PackageName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to create "+filepath.Dir(path))
	}
	if err := file.SaveTo(path); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to write "+path)
	}
	return nil
}

// ConfigPath returns the path to .hop/config.
func (p *Project) ConfigPath() string { return filepath.Join(p.Root, hopDir, configFile) }

// AltConfigPath returns the path to .hop/alt_config.
func (p *Project) AltConfigPath() string { return filepath.Join(p.Root, hopDir, altConfigFile) }

// ModelDir returns .hop/model.
func (p *Project) ModelDir() string { return filepath.Join(p.Root, hopDir, modelDir) }

// PatchesDir returns Patches/.
func (p *Project) PatchesDir() string { return filepath.Join(p.Root, "Patches") }

// BootstrapDir returns bootstrap/.
func (p *Project) BootstrapDir() string { return filepath.Join(p.Root, "bootstrap") }

// ReleasesDir returns releases/.
func (p *Project) ReleasesDir() string { return filepath.Join(p.Root, "releases") }

// SchemaPath returns .hop/model/schema-<version>.sql.
func (p *Project) SchemaPath(version string) string {
	return filepath.Join(p.ModelDir(), "schema-"+version+".sql")
}

// MetadataPath returns .hop/model/metadata-<version>.sql.
func (p *Project) MetadataPath(version string) string {
	return filepath.Join(p.ModelDir(), "metadata-"+version+".sql")
}

// CurrentSchemaSymlink returns .hop/model/schema.sql, the symlink to the
// current schema snapshot.
func (p *Project) CurrentSchemaSymlink() string {
	return filepath.Join(p.ModelDir(), "schema.sql")
}

// DatabaseName resolves the connection-config name via the three-priority
// lookup: .hop/alt_config, then [halfORM] package_name, then the project
// directory's basename.
func (p *Project) DatabaseName() string {
	if alt, err := os.ReadFile(p.AltConfigPath()); err == nil { // #nosec G304 - project-controlled path
		for _, line := range strings.Split(string(alt), "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" {
				return trimmed
			}
		}
	}
	if p.Config.PackageName != "" {
		return p.Config.PackageName
	}
	return filepath.Base(p.Root)
}

// RetargetSchemaSymlink atomically repoints schema.sql at schema-<version>.sql,
// using a relative link so the model/ directory remains portable.
func (p *Project) RetargetSchemaSymlink(version string) error {
	link := p.CurrentSchemaSymlink()
	target := "schema-" + version + ".sql"

	tmp := link + ".tmp"
	_ = os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to create schema symlink")
	}
	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to retarget schema symlink")
	}
	return nil
}

// DumpSchema invokes pg_dump --schema-only against the database described
// by cfg and writes the result to outPath.
func DumpSchema(ctx context.Context, cfg dbconfig.Config, version string, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to create "+filepath.Dir(outPath))
	}

	args := []string{"--schema-only", "-d", cfg.Name}
	if cfg.Host != "" {
		args = append(args, "-h", cfg.Host)
	}
	if cfg.Port != "" {
		args = append(args, "-p", cfg.Port)
	}
	if cfg.User != "" {
		args = append(args, "-U", cfg.User)
	}
	args = append(args, "-f", outPath)

	cmd := exec.CommandContext(ctx, "pg_dump", args...) // #nosec G204 - args built from resolved config, not raw user input
	cmd.Env = os.Environ()
	if cfg.Password != "" {
		cmd.Env = append(cmd.Env, "PGPASSWORD="+cfg.Password)
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err,
			fmt.Sprintf("pg_dump failed for version %s: %s", version, strings.TrimSpace(string(out))))
	}
	return nil
}

// pythonKeywords rejects any package name that collides with a Python
// reserved word, since the generated ORM package must be importable.
var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// InitOptions carries everything init_git_centric_project needs beyond the
// target directory itself.
type InitOptions struct {
	Root        string // new project root; must not yet exist
	PackageName string
	GitOrigin   string // remote URL; "" skips remote setup (local-only project)
	DB          *database.Database
	DBConfig    dbconfig.Config
}

// requiredMetadataTables lists the half_orm_meta tables a target database
// must already carry before a project can be initialized against it.
var requiredMetadataTables = []string{"hop_release", "bootstrap"}

// InitGitCentricProject scaffolds a new project directory, verifies the
// target database already carries the half_orm_meta bootstrap tables, writes
// the initial schema-0.0.0.sql snapshot, and turns the directory into a Git
// repository with a single commit on main and a ho-prod branch created from
// it. If opts.GitOrigin is set, origin is configured and both branches are
// pushed.
func InitGitCentricProject(ctx context.Context, opts InitOptions) (*Project, error) {
	if err := ValidatePackageName(opts.PackageName); err != nil {
		return nil, err
	}
	if _, err := os.Stat(opts.Root); err == nil {
		return nil, hoperr.New(hoperr.KindNameConflict, "project directory already exists: "+opts.Root)
	}

	for _, table := range requiredMetadataTables {
		ok, err := opts.DB.TableExists(ctx, "half_orm_meta", table)
		if err != nil {
			return nil, hoperr.Wrap(hoperr.KindDatabaseNotConfigured, err,
				"failed to verify half_orm_meta."+table+" exists")
		}
		if !ok {
			return nil, hoperr.New(hoperr.KindDatabaseNotConfigured,
				fmt.Sprintf("database %q is missing required metadata table half_orm_meta.%s; "+
					"run the metadata bootstrap before init-project", opts.DB.Name(), table),
				"table", table)
		}
	}

	p := &Project{Root: opts.Root, Config: Config{HopVersion: "0.0.0", GitOrigin: opts.GitOrigin, Devel: true}}

	for _, dir := range []string{p.ModelDir(), p.PatchesDir(), p.BootstrapDir(), p.ReleasesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "failed to create "+dir)
		}
	}

	if err := DumpSchema(ctx, opts.DBConfig, "0.0.0", p.SchemaPath("0.0.0")); err != nil {
		return nil, err
	}
	if err := p.RetargetSchemaSymlink("0.0.0"); err != nil {
		return nil, err
	}
	if err := SaveConfig(p.ConfigPath(), p.Config); err != nil {
		return nil, err
	}

	repo := gitadapter.Open(p.Root)
	if err := repo.Init("main"); err != nil {
		return nil, err
	}
	if err := repo.Add("."); err != nil {
		return nil, err
	}
	if _, err := repo.Commit("Initial commit"); err != nil {
		return nil, err
	}
	if err := repo.CreateBranch(ProdBranch, "main"); err != nil {
		return nil, err
	}

	if opts.GitOrigin != "" {
		if err := repo.AddRemote("origin", opts.GitOrigin); err != nil {
			return nil, err
		}
		if err := repo.PushBranch("main", "origin"); err != nil {
			return nil, err
		}
		if err := repo.PushBranch(ProdBranch, "origin"); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// ValidatePackageName enforces Python-identifier rules (ASCII letters,
// digits, underscore; not starting with a digit) plus rejection of
// reserved words, since the name becomes both a directory and an import.
func ValidatePackageName(name string) error {
	if name == "" {
		return hoperr.New(hoperr.KindNameConflict, "package name cannot be empty")
	}
	if pythonKeywords[name] {
		return hoperr.New(hoperr.KindNameConflict, fmt.Sprintf("%q is a reserved word and cannot be used as a package name", name), "name", name)
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			continue
		case r >= '0' && r <= '9':
			if i == 0 {
				return hoperr.New(hoperr.KindNameConflict,
					fmt.Sprintf("package name %q cannot start with a digit", name), "name", name)
			}
			continue
		default:
			return hoperr.New(hoperr.KindNameConflict,
				fmt.Sprintf("package name %q contains an invalid character %q", name, string(r)), "name", name)
		}
	}
	return nil
}

package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/half-orm/half-orm-dev/internal/applier"
	"github.com/half-orm/half-orm-dev/internal/bootstrap"
	"github.com/half-orm/half-orm-dev/internal/database"
	"github.com/half-orm/half-orm-dev/internal/dbconfig"
	"github.com/half-orm/half-orm-dev/internal/gitadapter"
	"github.com/half-orm/half-orm-dev/internal/hoperr"
	"github.com/half-orm/half-orm-dev/internal/orchestrator"
	"github.com/half-orm/half-orm-dev/internal/patchdir"
	"github.com/half-orm/half-orm-dev/internal/project"
)

// env bundles every collaborator a lifecycle verb needs, resolved once from
// the current directory and that project's connection file.
type env struct {
	Proj  *project.Project
	DB    *database.Database
	DBCfg dbconfig.Config
	Orch  *orchestrator.Orchestrator
	lock  *flock.Flock
}

// wireEnv discovers the enclosing project, takes an exclusive file lock on
// it, opens its database, and wires an Orchestrator against it. Every
// lifecycle command starts here. The lock keeps two hop invocations in the
// same project from racing each other's ho-prod mutations locally — the
// reservation tags in C4 already guard the distributed case across
// developers, but nothing stops a second command in the same checkout.
func wireEnv(ctx context.Context) (*env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	proj, err := project.Discover(cwd)
	if err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(proj.Root, ".hop", ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "failed to acquire project lock")
	}
	if !locked {
		return nil, hoperr.New(hoperr.KindProjectLocked, "another hop command is already running against this project")
	}

	dbCfg, err := dbconfig.Load(proj.DatabaseName())
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	repo := gitadapter.Open(proj.Root)
	patches := patchdir.New(proj.Root)
	boot := bootstrap.New(proj.Root, db)
	app := applier.New(proj, patches, boot, db, nil)
	orch := orchestrator.New(proj, repo, patches, boot, app, db, dbCfg)

	return &env{Proj: proj, DB: db, DBCfg: dbCfg, Orch: orch, lock: lock}, nil
}

func (e *env) Close() {
	if e.DB != nil {
		_ = e.DB.Close()
	}
	if e.lock != nil {
		_ = e.lock.Unlock()
	}
}

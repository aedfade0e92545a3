package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/half-orm/half-orm-dev/internal/applier"
	"github.com/half-orm/half-orm-dev/internal/bootstrap"
	"github.com/half-orm/half-orm-dev/internal/database"
	"github.com/half-orm/half-orm-dev/internal/dbconfig"
	"github.com/half-orm/half-orm-dev/internal/gitadapter"
	"github.com/half-orm/half-orm-dev/internal/orchestrator"
	"github.com/half-orm/half-orm-dev/internal/patchdir"
	"github.com/half-orm/half-orm-dev/internal/project"
)

var rollbackCmd = &cobra.Command{
	Use:     "rollback <database-name> <version>",
	GroupID: "maintenance",
	Short:   "Re-deploy an older production release's tag to a database",
	Long: `rollback checks out an earlier release tag and replays its staged
patches against <database-name>, the same way deploy-to-prod would for a
forward release. It does not undo schema changes a newer release already
applied — there is no mid-patch rollback in this system, only replaying a
different point in the release history forward. Use it to recover a
database that was upgraded in error, not to reverse a single bad statement.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbName, targetVersion := args[0], args[1]

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		proj, err := project.Discover(cwd)
		if err != nil {
			return err
		}

		dbCfg, err := dbconfig.Load(dbName)
		if err != nil {
			return err
		}
		db, err := database.Open(cmd.Context(), dbCfg)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := gitadapter.Open(proj.Root)
		patches := patchdir.New(proj.Root)
		boot := bootstrap.New(proj.Root, db)
		app := applier.New(proj, patches, boot, db, nil)
		orch := orchestrator.New(proj, repo, patches, boot, app, db, dbCfg)

		if err := orch.DeployToProd(cmd.Context(), targetVersion); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled %s back to v%s\n", dbName, targetVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

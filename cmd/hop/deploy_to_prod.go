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

var deployToProdCmd = &cobra.Command{
	Use:     "deploy-to-prod <version>",
	GroupID: "lifecycle",
	Short:   "Replay a production release's staged patches against a target database",
	Long: `deploy-to-prod checks out release tag v<version>, applies every
staged patch from its promoted release-candidate manifest against the
target database in manifest order, runs pending bootstrap scripts, and
registers the release row in half_orm_meta.hop_release.

Unlike the commands above it, deploy-to-prod does not mutate ho-prod and
performs no Git-state rollback: a failure leaves the target database in
whatever state the last successful statement produced. Use --database to
target a database other than this project's own development database
(the common case — staging and production are rarely the developer's own).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetDB, _ := cmd.Flags().GetString("database")

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		proj, err := project.Discover(cwd)
		if err != nil {
			return err
		}
		if targetDB == "" {
			targetDB = proj.DatabaseName()
		}

		dbCfg, err := dbconfig.Load(targetDB)
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

		if err := orch.DeployToProd(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deployed v%s to %s\n", args[0], targetDB)
		return nil
	},
}

func init() {
	deployToProdCmd.Flags().String("database", "", "target database name (defaults to this project's own database)")
	rootCmd.AddCommand(deployToProdCmd)
}

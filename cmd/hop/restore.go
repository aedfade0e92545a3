package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/half-orm/half-orm-dev/internal/applier"
	"github.com/half-orm/half-orm-dev/internal/bootstrap"
	"github.com/half-orm/half-orm-dev/internal/database"
	"github.com/half-orm/half-orm-dev/internal/dbconfig"
	"github.com/half-orm/half-orm-dev/internal/orchestrator"
	"github.com/half-orm/half-orm-dev/internal/patchdir"
	"github.com/half-orm/half-orm-dev/internal/project"
)

var restoreCmd = &cobra.Command{
	Use:     "restore <database-name>",
	GroupID: "maintenance",
	Short:   "Rebuild a database from scratch by replaying the full release history",
	Long: `restore loads the schema-<V>.sql snapshot of the highest recorded
release into <database-name> — that snapshot already carries every release's
cumulative DDL — then replays every release's staged patches' data files in
order (registering each release row along the way), and finally runs pending
bootstrap. Useful for seeding a fresh environment or recovering one that's
been wiped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbName := args[0]

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		proj, err := project.Discover(cwd)
		if err != nil {
			return err
		}

		targetCfg, err := dbconfig.Load(dbName)
		if err != nil {
			return err
		}
		targetDB, err := database.Open(cmd.Context(), targetCfg)
		if err != nil {
			return err
		}
		defer targetDB.Close()

		history, err := orchestrator.ReleaseHistory(proj.ReleasesDir())
		if err != nil {
			return err
		}
		if len(history) == 0 {
			return fmt.Errorf("no release has ever been promoted for this project; nothing to restore")
		}

		patches := patchdir.New(proj.Root)
		boot := bootstrap.New(proj.Root, targetDB)
		app := applier.New(proj, patches, boot, targetDB, nil)

		if err := app.FreshInstall(cmd.Context(), targetCfg, history); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %s from %d recorded release(s)\n", dbName, len(history))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

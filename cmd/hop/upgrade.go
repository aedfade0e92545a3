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
	"github.com/half-orm/half-orm-dev/internal/version"
)

var upgradeCmd = &cobra.Command{
	Use:     "upgrade <database-name>",
	GroupID: "maintenance",
	Short:   "Deploy every production release newer than the database's current one",
	Long: `upgrade reads the highest version already recorded in
half_orm_meta.hop_release on <database-name>, then deploy-to-prods every
promoted release newer than that, in order, until the database is caught up
with ho-prod's release history. Unlike deploy-to-prod, it takes no explicit
target version — it figures out where the database already is.`,
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

		dbCfg, err := dbconfig.Load(dbName)
		if err != nil {
			return err
		}
		db, err := database.Open(cmd.Context(), dbCfg)
		if err != nil {
			return err
		}
		defer db.Close()

		current, err := highestRegisteredRelease(cmd, db)
		if err != nil {
			return err
		}

		history, err := orchestrator.ReleaseHistory(proj.ReleasesDir())
		if err != nil {
			return err
		}

		repo := gitadapter.Open(proj.Root)
		patches := patchdir.New(proj.Root)
		boot := bootstrap.New(proj.Root, db)
		app := applier.New(proj, patches, boot, db, nil)
		orch := orchestrator.New(proj, repo, patches, boot, app, db, dbCfg)

		applied := 0
		for _, step := range history {
			v, err := version.Parse(step.Version)
			if err != nil {
				return err
			}
			if version.Compare(v, current) <= 0 {
				continue
			}
			if err := orch.DeployToProd(cmd.Context(), step.Version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deployed v%s\n", step.Version)
			applied++
		}
		if applied == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), dbName, "is already up to date")
		}
		return nil
	},
}

// highestRegisteredRelease queries half_orm_meta.hop_release for the
// highest major.minor.patch recorded on db, or version.Info{} (0.0.0) if
// the database has no releases registered yet.
func highestRegisteredRelease(cmd *cobra.Command, db *database.Database) (version.Info, error) {
	rows, err := db.Query(cmd.Context(),
		"SELECT major, minor, patch FROM half_orm_meta.hop_release ORDER BY major DESC, minor DESC, patch DESC LIMIT 1")
	if err != nil {
		return version.Info{}, err
	}
	if len(rows) == 0 {
		return version.Info{}, nil
	}
	toInt := func(v interface{}) int {
		switch n := v.(type) {
		case int64:
			return int(n)
		case int32:
			return int(n)
		case int:
			return n
		default:
			return 0
		}
	}
	row := rows[0]
	return version.Info{Major: toInt(row["major"]), Minor: toInt(row["minor"]), Patch: toInt(row["patch"])}, nil
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
}

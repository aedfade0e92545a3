package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/half-orm/half-orm-dev/internal/database"
	"github.com/half-orm/half-orm-dev/internal/dbconfig"
	"github.com/half-orm/half-orm-dev/internal/project"
)

var initProjectCmd = &cobra.Command{
	Use:     "init-project <directory> <database-name>",
	GroupID: "setup",
	Short:   "Scaffold a new Git-centric project against an already-registered database",
	Long: `init-project creates <directory>, dumps the target database's current
schema as schema-0.0.0.sql, writes .hop/config, and turns the directory into
a Git repository with a single commit on main and a ho-prod branch created
from it. The database must already have been prepared with init-database.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, dbName := args[0], args[1]
		gitOrigin, _ := cmd.Flags().GetString("git-origin")
		packageName, _ := cmd.Flags().GetString("package-name")
		if packageName == "" {
			packageName = dbName
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

		_, err = project.InitGitCentricProject(cmd.Context(), project.InitOptions{
			Root:        dir,
			PackageName: packageName,
			GitOrigin:   gitOrigin,
			DB:          db,
			DBConfig:    dbCfg,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "initialized project %s against database %s\n", dir, dbName)
		return nil
	},
}

func init() {
	initProjectCmd.Flags().String("git-origin", "", "remote URL to push main and ho-prod to (local-only if omitted)")
	initProjectCmd.Flags().String("package-name", "", "generated package name (defaults to the database name)")
	rootCmd.AddCommand(initProjectCmd)
}

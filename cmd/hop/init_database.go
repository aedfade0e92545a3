package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/half-orm/half-orm-dev/internal/database"
	"github.com/half-orm/half-orm-dev/internal/dbconfig"
)

const createMetadataSchema = `
CREATE SCHEMA IF NOT EXISTS half_orm_meta;

CREATE TABLE IF NOT EXISTS half_orm_meta.hop_release (
	major          integer NOT NULL,
	minor          integer NOT NULL,
	patch          integer NOT NULL,
	pre_release    text NOT NULL DEFAULT '',
	pre_release_num text NOT NULL DEFAULT '',
	changelog      text,
	PRIMARY KEY (major, minor, patch, pre_release, pre_release_num)
);

CREATE TABLE IF NOT EXISTS half_orm_meta.bootstrap (
	filename    text PRIMARY KEY,
	version     text NOT NULL,
	executed_at timestamp NOT NULL DEFAULT now()
);
`

var initDatabaseCmd = &cobra.Command{
	Use:     "init-database <name>",
	GroupID: "setup",
	Short:   "Register a database connection and install its hop metadata tables",
	Long: `init-database writes a HALFORM_CONF_DIR connection file for <name>
from the --user/--password/--host/--port flags, then creates the
half_orm_meta schema and its hop_release/bootstrap tables on that database if
they don't already exist. init-project later refuses to run against a
database missing these tables.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		user, _ := cmd.Flags().GetString("user")
		password, _ := cmd.Flags().GetString("password")
		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetString("port")
		production, _ := cmd.Flags().GetBool("production")

		cfg := dbconfig.Config{
			Name: name, User: user, Password: password,
			Host: host, Port: port, Production: production,
		}
		if err := dbconfig.Write(cfg); err != nil {
			return err
		}

		db, err := database.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Execute(cmd.Context(), createMetadataSchema); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "database %s registered and half_orm_meta installed\n", name)
		return nil
	},
}

func init() {
	initDatabaseCmd.Flags().String("user", "", "database user")
	initDatabaseCmd.Flags().String("password", "", "database password")
	initDatabaseCmd.Flags().String("host", "", "database host (empty for Unix socket)")
	initDatabaseCmd.Flags().String("port", "", "database port")
	initDatabaseCmd.Flags().Bool("production", false, "mark this connection as a production target")
	rootCmd.AddCommand(initDatabaseCmd)
}

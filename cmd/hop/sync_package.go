package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncPackageCmd = &cobra.Command{
	Use:     "sync-package",
	GroupID: "maintenance",
	Short:   "Regenerate the code package from the current database state",
	Long: `sync-package re-runs code generation against the project's own
database without applying any patch first, for when the generated package
has drifted from the live schema (a manual tweak, a generator upgrade) and
needs refreshing on its own.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.Orch.Apply.Regenerate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "package regenerated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncPackageCmd)
}

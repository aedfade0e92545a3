package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var applyPatchCmd = &cobra.Command{
	Use:     "apply-patch <patch-id>",
	GroupID: "maintenance",
	Short:   "Replay a patch's SQL and Python files against this project's database",
	Long: `apply-patch runs every file under Patches/<id>/ in order against the
project's own database and triggers code regeneration, without touching
ho-prod or any release manifest. Used to re-verify a patch locally, e.g.
after rebasing it on a newer ho-prod.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		app := e.Orch.Apply
		if err := app.ApplyPatch(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied patch %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyPatchCmd)
}

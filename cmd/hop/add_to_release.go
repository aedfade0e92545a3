package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addToReleaseCmd = &cobra.Command{
	Use:     "add-to-release <patch-id>",
	GroupID: "lifecycle",
	Short:   "Integrate a patch into the open stage manifest",
	Long: `add-to-release merges ho-patch/<id> into ho-prod, replays the patch
against the developer database to verify it, records it as staged in the
open stage manifest, and archives the patch branch to
ho-release/<version>/<id>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.Orch.AddToRelease(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "integrated %s into ho-prod\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addToReleaseCmd)
}

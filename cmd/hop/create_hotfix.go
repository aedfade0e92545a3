package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var createHotfixCmd = &cobra.Command{
	Use:     "create-hotfix <patch-id>",
	GroupID: "lifecycle",
	Short:   "Integrate an already-created patch directly into production",
	Long: `create-hotfix merges ho-patch/<id> into ho-prod, verifies it against
the developer database, and tags the result as a production release —
bypassing the normal stage and release-candidate stops. The target version
is the next patch-level bump above the highest existing production tag.
Use this only for fixes urgent enough that waiting for the next regular
release train isn't acceptable; it carries the same verification a staged
patch gets, just none of the review window.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		tag, err := e.Orch.CreateHotfix(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "released hotfix %s\n", tag)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createHotfixCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var createPatchCmd = &cobra.Command{
	Use:     "create-patch <number|number-slug>",
	GroupID: "lifecycle",
	Short:   "Reserve a patch number and branch ho-patch/<id> from ho-prod",
	Long: `create-patch reserves a patch slot as a shared Git tag so no two
developers can claim the same number, then branches ho-patch/<id> from
ho-prod and scaffolds its Patches/<id>/ directory.

A bare number ("create-patch 42") reserves the smallest globally free slot —
the number you typed is a hint, not a guarantee. An N-slug argument
("create-patch 42-add-roles") reserves exactly 42 and fails if it is already
taken.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := e.Orch.CreatePatch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created patch %s on branch ho-patch/%s\n", id, id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createPatchCmd)
}

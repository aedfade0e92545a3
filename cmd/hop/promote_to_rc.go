package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var promoteToRCCmd = &cobra.Command{
	Use:     "promote-to-rc",
	GroupID: "lifecycle",
	Short:   "Freeze the open stage manifest into a release candidate",
	Long: `promote-to-rc refuses if the open stage manifest still has
unintegrated candidates, otherwise renames it to the next rc<K> manifest,
opens a fresh empty stage at the same version, dumps a new schema snapshot,
tags the commit v<version>-rc<K>, and deletes the now-integrated ho-patch
branches.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		tag, err := e.Orch.PromoteToRC(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tagged %s\n", tag)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promoteToRCCmd)
}

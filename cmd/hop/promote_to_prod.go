package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var promoteToProdCmd = &cobra.Command{
	Use:     "promote-to-prod <version>",
	GroupID: "lifecycle",
	Short:   "Tag a promoted release candidate as the production release",
	Long: `promote-to-prod requires at least one promoted rc<K> manifest for
<version>, tags the current ho-prod commit v<version>, and writes the
metadata insert that deploy-to-prod will later replay against a target
database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		tag, err := e.Orch.PromoteToProd(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tagged %s\n", tag)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promoteToProdCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/half-orm/half-orm-dev/internal/patchid"
)

var patchIDCmd = &cobra.Command{
	Use:   "patch-id",
	Short: "Validate or derive patch identifiers",
}

var patchIDSanitizeCmd = &cobra.Command{
	Use:   "sanitize <free text>",
	Short: "Fold free text into a kebab-case slug suitable for N-slug patch ids",
	Long: `sanitize lower-cases, strips accents, collapses runs of
non-alphanumeric characters to a single hyphen, and truncates to 50
characters. create-patch does not apply this normalization itself: it only
validates the id it is given, so a slug produced here can be passed to it
as the slug part of an N-slug id.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), patchid.Sanitize(strings.Join(args, " ")))
	},
}

var patchIDValidateCmd = &cobra.Command{
	Use:   "validate <id>",
	Short: "Report whether an id parses as a valid patch identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := patchid.Validate(args[0])
		if err != nil {
			return err
		}
		if info.Slug == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: bare number, reservation %d\n", info.Canonical, info.Number)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: reservation %d, slug %q\n", info.Canonical, info.Number, info.Slug)
		}
		return nil
	},
}

func init() {
	patchIDCmd.AddCommand(patchIDSanitizeCmd, patchIDValidateCmd)
	rootCmd.AddCommand(patchIDCmd)
}

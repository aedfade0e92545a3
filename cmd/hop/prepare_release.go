package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/half-orm/half-orm-dev/internal/hoperr"
	"github.com/half-orm/half-orm-dev/internal/version"
)

var prepareReleaseCmd = &cobra.Command{
	Use:     "prepare-release",
	GroupID: "lifecycle",
	Short:   "Open a stage manifest for the next major, minor, or patch version",
	Long: `prepare-release computes the next version of the requested kind from
the highest v<X.Y.Z> tag reachable on ho-prod and creates its empty stage
manifest, committed directly to ho-prod. Exactly one of --major, --minor, or
--patch must be given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		major, _ := cmd.Flags().GetBool("major")
		minor, _ := cmd.Flags().GetBool("minor")
		patch, _ := cmd.Flags().GetBool("patch")

		kind, err := releaseKind(major, minor, patch)
		if err != nil {
			return err
		}

		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		target, err := e.Orch.PrepareRelease(cmd.Context(), kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "opened stage manifest for %s\n", target)
		return nil
	},
}

func releaseKind(major, minor, patch bool) (version.Kind, error) {
	switch n := boolCount(major, minor, patch); {
	case n == 0:
		return "", hoperr.New(hoperr.KindInvalidVersion, "exactly one of --major, --minor, --patch is required")
	case n > 1:
		return "", hoperr.New(hoperr.KindInvalidVersion, "--major, --minor, --patch are mutually exclusive")
	}
	switch {
	case major:
		return version.Major, nil
	case minor:
		return version.Minor, nil
	default:
		return version.Patch, nil
	}
}

func boolCount(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func init() {
	prepareReleaseCmd.Flags().Bool("major", false, "prepare the next major release")
	prepareReleaseCmd.Flags().Bool("minor", false, "prepare the next minor release")
	prepareReleaseCmd.Flags().Bool("patch", false, "prepare the next patch release")
	rootCmd.AddCommand(prepareReleaseCmd)
}

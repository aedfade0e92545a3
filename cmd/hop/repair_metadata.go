package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/half-orm/half-orm-dev/internal/orchestrator"
	"github.com/half-orm/half-orm-dev/internal/version"
)

var repairMetadataCmd = &cobra.Command{
	Use:     "repair-metadata",
	GroupID: "maintenance",
	Short:   "Re-insert any release rows missing from half_orm_meta.hop_release",
	Long: `repair-metadata compares the release history recorded under
releases/ against half_orm_meta.hop_release on this project's own database
and inserts any row that's missing. This recovers a database whose metadata
table fell out of sync with its actual schema — a failed deploy-to-prod
that applied its patches but died before the final metadata insert, for
instance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		history, err := orchestrator.ReleaseHistory(e.Proj.ReleasesDir())
		if err != nil {
			return err
		}

		existing, err := registeredVersions(cmd, e)
		if err != nil {
			return err
		}

		repaired := 0
		for _, step := range history {
			if existing[step.Version] {
				continue
			}
			info, err := version.Parse(step.Version)
			if err != nil {
				return err
			}
			if err := e.DB.Insert(cmd.Context(), "half_orm_meta.hop_release", map[string]interface{}{
				"major": info.Major, "minor": info.Minor, "patch": info.Patch, "pre_release": "",
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted missing release row for %s\n", step.Version)
			repaired++
		}
		if repaired == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "half_orm_meta.hop_release already matches release history")
		}
		return nil
	},
}

func registeredVersions(cmd *cobra.Command, e *env) (map[string]bool, error) {
	rows, err := e.DB.Query(cmd.Context(), "SELECT major, minor, patch FROM half_orm_meta.hop_release")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		seen[fmt.Sprintf("%v.%v.%v", row["major"], row["minor"], row["patch"])] = true
	}
	return seen, nil
}

func init() {
	rootCmd.AddCommand(repairMetadataCmd)
}

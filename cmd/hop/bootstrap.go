package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/half-orm/half-orm-dev/internal/bootstrap"
	"github.com/half-orm/half-orm-dev/internal/config"
)

var bootstrapCmd = &cobra.Command{
	Use:     "bootstrap",
	GroupID: "maintenance",
	Short:   "Run pending bootstrap/ scripts against this project's database",
	Long: `bootstrap executes every bootstrap/<N>-<patch-id>-<version>.<ext>
file not yet recorded in half_orm_meta.bootstrap for this database, in
numeric order, stopping at the first failure. --dry-run reports what would
run without touching the database; --force re-runs every script regardless
of tracking.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		force, _ := cmd.Flags().GetBool("force")
		exclude, _ := cmd.Flags().GetString("exclude-patch")

		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		boot := bootstrap.New(e.Proj.Root, e.DB)
		result, err := boot.Run(cmd.Context(), dryRun, force, exclude)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, name := range result.Executed {
			fmt.Fprintf(out, "executed %s\n", name)
		}
		for _, name := range result.Skipped {
			fmt.Fprintf(out, "skipped (already run) %s\n", name)
		}
		for _, name := range result.Excluded {
			fmt.Fprintf(out, "excluded %s\n", name)
		}
		for _, fe := range result.Errors {
			fmt.Fprintf(out, "failed %s: %v\n", fe.Filename, fe.Err)
		}
		if len(result.Errors) > 0 {
			return fmt.Errorf("%d bootstrap script(s) failed", len(result.Errors))
		}
		return nil
	},
}

type bootstrapListEntry struct {
	Name     string `json:"name"`
	Number   int    `json:"number"`
	PatchID  string `json:"patch_id"`
	Version  string `json:"version"`
	Executed bool   `json:"executed"`
}

var bootstrapListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every bootstrap script and whether it has run on this database",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		boot := bootstrap.New(e.Proj.Root, e.DB)
		files, err := boot.List()
		if err != nil {
			return err
		}
		executed, err := boot.ExecutedFilenames(cmd.Context())
		if err != nil {
			return err
		}

		entries := make([]bootstrapListEntry, 0, len(files))
		for _, f := range files {
			entries = append(entries, bootstrapListEntry{
				Name: f.Name, Number: f.Number, PatchID: f.PatchID,
				Version: f.Version, Executed: executed[f.Name],
			})
		}

		out := cmd.OutOrStdout()
		if config.JSON() {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		for _, e := range entries {
			state := "pending"
			if e.Executed {
				state = "executed"
			}
			fmt.Fprintf(out, "%s\t%s\n", e.Name, state)
		}
		return nil
	},
}

func init() {
	bootstrapCmd.Flags().Bool("dry-run", false, "report what would run without executing anything")
	bootstrapCmd.Flags().Bool("force", false, "re-run every script regardless of tracking")
	bootstrapCmd.Flags().String("exclude-patch", "", "skip scripts belonging to this patch id")
	bootstrapCmd.AddCommand(bootstrapListCmd)
	rootCmd.AddCommand(bootstrapCmd)
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/half-orm/half-orm-dev/internal/config"
	"github.com/half-orm/half-orm-dev/internal/orchestrator"
)

type statusOutput struct {
	Root          string `json:"root"`
	Branch        string `json:"branch"`
	Clean         bool   `json:"clean"`
	Database      string `json:"database"`
	OpenStage     string `json:"open_stage,omitempty"`
	PendingBoot   int    `json:"pending_bootstrap"`
	LatestRelease string `json:"latest_release,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "maintenance",
	Short:   "Show this project's current branch, release, and bootstrap state",
	Long: `status gives a one-shot overview of where a project stands: the
current branch and whether it's clean, which stage manifest (if any) is
open, how many bootstrap scripts are still pending against this project's
database, and the most recent release recorded under releases/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := wireEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		branch, err := e.Orch.Repo.CurrentBranch()
		if err != nil {
			return err
		}
		clean, err := e.Orch.Repo.IsClean()
		if err != nil {
			return err
		}

		out := statusOutput{
			Root:     e.Proj.Root,
			Branch:   branch,
			Clean:    clean,
			Database: e.Proj.DatabaseName(),
		}

		if stagePath, ok := orchestrator.FindOpenStage(e.Proj.ReleasesDir()); ok {
			out.OpenStage = stagePath
		}

		pending, err := e.Orch.Boot.Pending(cmd.Context())
		if err != nil {
			return err
		}
		out.PendingBoot = len(pending)

		history, err := orchestrator.ReleaseHistory(e.Proj.ReleasesDir())
		if err != nil {
			return err
		}
		if len(history) > 0 {
			out.LatestRelease = history[len(history)-1].Version
		}

		if config.JSON() {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "root:              %s\n", out.Root)
		fmt.Fprintf(w, "branch:            %s (clean: %t)\n", out.Branch, out.Clean)
		fmt.Fprintf(w, "database:          %s\n", out.Database)
		if out.OpenStage != "" {
			fmt.Fprintf(w, "open stage:        %s\n", out.OpenStage)
		} else {
			fmt.Fprintln(w, "open stage:        none")
		}
		fmt.Fprintf(w, "pending bootstrap: %d\n", out.PendingBoot)
		if out.LatestRelease != "" {
			fmt.Fprintf(w, "latest release:    %s\n", out.LatestRelease)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

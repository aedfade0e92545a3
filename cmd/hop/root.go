package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/half-orm/half-orm-dev/internal/config"
	"github.com/half-orm/half-orm-dev/internal/debug"
	"github.com/half-orm/half-orm-dev/internal/hoperr"
)

var rootCmd = &cobra.Command{
	Use:           "hop",
	Short:         "Git-centric lifecycle manager for half_orm database schemas",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `hop drives a PostgreSQL schema through its lifecycle as a sequence
of reviewable patches, integrated into a single ho-prod branch and promoted
through staged, release-candidate, and production states.

Patch numbers are reserved as Git tags shared with every other developer on
the project, so two people can never collide on the same slot. Every command
that mutates ho-prod runs from a clean checkout of it and leaves the branch
exactly where it found it on failure.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		v := config.V()
		for _, name := range []string{"json", "verbose", "color"} {
			if flag := cmd.Flags().Lookup(name); flag != nil {
				_ = v.BindPFlag(name, flag)
			}
		}
		debug.SetEnabled(config.Verbose())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "render output as JSON")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable HOP_DEBUG-style tracing")
	rootCmd.PersistentFlags().Bool("color", true, "allow ANSI color output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "lifecycle", Title: "Release lifecycle:"},
		&cobra.Group{ID: "setup", Title: "Project setup:"},
		&cobra.Group{ID: "maintenance", Title: "Maintenance:"},
	)
}

// humanizeErr renders a hoperr.Error with its Kind for operator-facing
// messages; any other error is printed as-is.
func humanizeErr(err error) string {
	if he, ok := err.(*hoperr.Error); ok {
		return fmt.Sprintf("[%s] %s", he.Kind, he.Error())
	}
	return err.Error()
}

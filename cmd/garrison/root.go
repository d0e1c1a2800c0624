package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Garrison CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "garrison",
		Short: "Garrison - a military browser game server",
		Long: `Garrison is a browser game server handling account registration,
authentication, and session lifecycle for the game's web client.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/garrison/config.yaml)")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "autoadmin",
	Short: "Admin panel for your SQLite and MongoDB databases",
	Long: `autoadmin discovers the tables and collections of your databases and
serves a web admin panel to browse, filter, create, edit and delete records.

Quick start:
  autoadmin hash-password     # Create a password hash for the config
  autoadmin serve             # Start the admin panel

Inspect:
  autoadmin resources         # List discovered tables and collections
  autoadmin records users     # Print records of a resource

Maintenance:
  autoadmin validate          # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "autoadmin.yaml", "config file path")
}

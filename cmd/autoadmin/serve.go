package main

import (
	"fmt"
	"os"

	"github.com/artpar/autoadmin/bootstrap"
	"github.com/artpar/autoadmin/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin panel",
	Long: `Start the autoadmin web server.

The server will:
  - Load configuration from autoadmin.yaml (or --config)
  - Or load configuration from AUTOADMIN_* environment variables
  - Connect to the configured databases and discover their tables
  - Serve the admin panel (default: http://localhost:8080/admin)

Environment variables (for Docker deployments):
  AUTOADMIN_ADMIN_EMAIL          - Admin email (required)
  AUTOADMIN_ADMIN_PASSWORD_HASH  - Admin bcrypt hash (required)
  AUTOADMIN_SQLITE_DSN           - SQLite database to administer
  AUTOADMIN_MONGO_URI            - MongoDB server to administer
  AUTOADMIN_MONGO_DATABASE       - MongoDB database name
  AUTOADMIN_SERVER_PORT          - Server port (default: 8080)
  AUTOADMIN_LOG_LEVEL            - Log level: debug, info, warn, error

Examples:
  autoadmin serve
  autoadmin serve --config /etc/autoadmin/config.yaml

  # Docker (env vars only):
  AUTOADMIN_ADMIN_EMAIL=me@example.com AUTOADMIN_ADMIN_PASSWORD_HASH='$2a$10$...' \
    AUTOADMIN_SQLITE_DSN=/data/app.db autoadmin serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	// No configuration at all
	if !hasConfigFile && !config.HasEnvConfig() {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "No configuration found at %s.\n\n", cfgFile)
		fmt.Fprintln(out, "Create one with an admin account:")
		fmt.Fprintln(out, "  autoadmin hash-password")
		fmt.Fprintln(out, "Or set AUTOADMIN_ADMIN_EMAIL and AUTOADMIN_ADMIN_PASSWORD_HASH.")
		return nil
	}

	if !hasConfigFile {
		fmt.Fprintln(cmd.OutOrStdout(), "Running with environment variables (no config file)")
	}

	app, err := bootstrap.New(cfgFile)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/artpar/autoadmin/adapters/hasher"
	"github.com/artpar/autoadmin/adapters/mongo"
	"github.com/artpar/autoadmin/adapters/sqlite"
	"github.com/artpar/autoadmin/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the autoadmin configuration file.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - Databases are reachable and list their tables (optional)

Examples:
  autoadmin validate
  autoadmin validate --check-databases --config /etc/autoadmin/config.yaml`,
	RunE: runValidate,
}

var validateCheckDatabases bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabases, "check-databases", false, "connect to every database and count its tables")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	// Check file exists
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	// Load and validate config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config syntax valid\n", checkMark)

	// Show config summary
	fmt.Fprintf(out, "  %s Admins: %d\n", checkMark, len(cfg.Auth.Admins))
	for _, u := range cfg.Auth.Admins {
		if _, err := hasher.Inspect(u.PasswordHash); err != nil {
			fmt.Fprintf(out, "  %s Admin %s: password_hash is not a bcrypt hash, run 'autoadmin hash-password'\n", warnMark, u.Email)
		}
	}
	fmt.Fprintf(out, "  %s Databases: %d\n", checkMark, len(cfg.Databases))
	fmt.Fprintf(out, "  %s Explicit resources: %d\n", checkMark, len(cfg.Resources))
	if cfg.Auth.JWTSecret == "" {
		fmt.Fprintf(out, "  %s auth.jwt_secret not set, sessions end on restart\n", warnMark)
	}

	if validateCheckDatabases {
		failed := false
		for _, db := range cfg.Databases {
			n, err := countResources(db)
			if err != nil {
				failed = true
				fmt.Fprintf(out, "  %s Database %s (%s)\n", crossMark, db.Name, db.Driver)
				fmt.Fprintf(out, "      Error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "  %s Database %s (%s): %d tables\n", checkMark, db.Name, db.Driver, n)
		}
		if failed {
			return fmt.Errorf("database check failed")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func countResources(cfg config.DatabaseConfig) (int, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return 0, err
		}
		defer db.Close()
		tables, err := db.Tables()
		return len(tables), err

	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, client, err := mongo.Connect(ctx, cfg.URI, cfg.Database)
		if err != nil {
			return 0, err
		}
		defer client.Disconnect(context.Background())
		resources, err := db.Resources()
		return len(resources), err
	}
	return 0, fmt.Errorf("unsupported driver %q", cfg.Driver)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
	warnMark  = "\033[33m!\033[0m"
)

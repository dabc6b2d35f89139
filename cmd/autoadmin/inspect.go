package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/autoadmin/bootstrap"
	"github.com/artpar/autoadmin/config"
	"github.com/artpar/autoadmin/core/formatter"
	"github.com/artpar/autoadmin/core/resource"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the discovered resources",
	Long: `List every table and collection the admin panel would serve, with its
database and properties.

Examples:
  autoadmin resources
  autoadmin resources --output yaml`,
	Args: cobra.NoArgs,
	RunE: runResources,
}

var recordsCmd = &cobra.Command{
	Use:   "records <resource>",
	Short: "List records of a resource",
	Long: `List records of a resource using the same filters as the list view.

Examples:
  autoadmin records users
  autoadmin records users --filter email=example.com --sort name --desc
  autoadmin records orders --columns id,total --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runRecords,
}

var recordCmd = &cobra.Command{
	Use:   "record <resource> <id>",
	Short: "Show one record",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecord,
}

var (
	outputFormat  string
	recordsLimit  int
	recordsOffset int
	recordsFilter []string
	recordsSort   string
	recordsDesc   bool
	columnsFlag   []string
)

func init() {
	rootCmd.AddCommand(resourcesCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(recordCmd)

	for _, c := range []*cobra.Command{resourcesCmd, recordsCmd, recordCmd} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format: "+strings.Join(formatter.List(), ", "))
	}
	for _, c := range []*cobra.Command{recordsCmd, recordCmd} {
		c.Flags().StringSliceVar(&columnsFlag, "columns", nil, "property paths to print")
	}
	recordsCmd.Flags().IntVar(&recordsLimit, "limit", resource.DefaultPerPage, "maximum number of records")
	recordsCmd.Flags().IntVar(&recordsOffset, "offset", 0, "number of records to skip")
	recordsCmd.Flags().StringArrayVarP(&recordsFilter, "filter", "f", nil, "filter as property=value (repeatable)")
	recordsCmd.Flags().StringVar(&recordsSort, "sort", "", "property to sort by")
	recordsCmd.Flags().BoolVar(&recordsDesc, "desc", false, "sort descending")
}

// openApp boots the application with logs on stderr so that command output
// stays parseable.
func openApp(cmd *cobra.Command) (*bootstrap.App, error) {
	settings, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, err
	}
	logger := zerolog.New(cmd.ErrOrStderr()).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	return bootstrap.NewWithConfig(bootstrap.Config{Settings: settings, Logger: &logger})
}

func outputFormatter() (formatter.Formatter, error) {
	f, ok := formatter.Get(outputFormat)
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %s)", outputFormat, strings.Join(formatter.List(), ", "))
	}
	return f, nil
}

func findResource(app *bootstrap.App, id string) (resource.Resource, error) {
	res, ok := app.Admin.FindResource(id)
	if !ok {
		return nil, fmt.Errorf("resource %q not found", id)
	}
	return res, nil
}

func parseFilter(args []string) (resource.Filter, error) {
	filter := resource.Filter{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected property=value", arg)
		}
		filter[key] = value
	}
	return filter, nil
}

func runResources(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	return f.FormatResources(cmd.OutOrStdout(), app.Admin.Resources())
}

func runRecords(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}
	filter, err := parseFilter(recordsFilter)
	if err != nil {
		return err
	}
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	res, err := findResource(app, args[0])
	if err != nil {
		return err
	}
	for key := range filter {
		if res.Property(key) == nil {
			return fmt.Errorf("%s has no property %q", res.ID(), key)
		}
	}

	opts := resource.FindOptions{Limit: recordsLimit, Offset: recordsOffset, Sort: res.Decorator().DefaultSort()}
	if recordsSort != "" {
		opts.Sort = resource.Sort{Field: recordsSort, Direction: resource.Asc}
		if recordsDesc {
			opts.Sort.Direction = resource.Desc
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout(app))
	defer cancel()

	total, err := res.Count(ctx, filter)
	if err != nil {
		return fmt.Errorf("count %s: %w", res.ID(), err)
	}
	records, err := res.Find(ctx, filter, opts.Normalize())
	if err != nil {
		return fmt.Errorf("find %s: %w", res.ID(), err)
	}
	for _, rec := range records {
		if err := res.Decorator().Populate(rec); err != nil {
			return err
		}
	}

	return f.FormatList(cmd.OutOrStdout(), res, records, formatter.FormatOptions{
		Columns:  columnsFlag,
		Total:    total,
		MaxWidth: 40,
	})
}

func runRecord(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	res, err := findResource(app, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout(app))
	defer cancel()

	rec, err := res.FindOne(ctx, args[1])
	if errors.Is(err, resource.ErrNotFound) {
		return fmt.Errorf("%s %q not found", res.ID(), args[1])
	}
	if err != nil {
		return err
	}
	if err := res.Decorator().Populate(rec); err != nil {
		return err
	}
	return f.FormatRecord(cmd.OutOrStdout(), res, rec, formatter.FormatOptions{Columns: columnsFlag})
}

func requestTimeout(app *bootstrap.App) time.Duration {
	if d := app.Settings.Server.RequestTimeout; d > 0 {
		return d
	}
	return time.Minute
}

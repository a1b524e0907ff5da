package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/storecrawl/internal/config"
	applog "github.com/nao1215/storecrawl/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for storecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storecrawl",
		Short: "Find stores with Google Places and collect their Instagram links",
		Long: `storecrawl builds lead lists of stores in two steps.

'storecrawl places' searches businesses around a coordinate with the Google
Places API and writes them, sorted by distance, to a spreadsheet.

'storecrawl crawl' reads that spreadsheet, crawls every store website
breadth-first within its own host and records each page together with the
Instagram links found on it.

Every run is kept in a local history database; see 'storecrawl history'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file (rotated)")
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(), "Directory of the run history database")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewPlacesCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	verbose bool
	logFile string
	dbDir   string
}

// getGlobalFlags reads the persistent flags. Subcommands executed on their
// own, as in tests, fall back to the defaults.
func getGlobalFlags(cmd *cobra.Command) globalFlags {
	g := globalFlags{dbDir: config.XDGDataDir()}
	if v, err := cmd.Flags().GetBool("verbose"); err == nil {
		g.verbose = v
	}
	if v, err := cmd.Flags().GetString("log-file"); err == nil {
		g.logFile = v
	}
	if v, err := cmd.Flags().GetString("db-dir"); err == nil && v != "" {
		g.dbDir = v
	}
	return g
}

// newLogger creates the command logger. Console output goes to the
// command's stderr. The returned closer must be closed before exit.
func newLogger(cmd *cobra.Command, g globalFlags) (*slog.Logger, io.Closer, error) {
	logger, closer, err := applog.New(applog.Options{
		Console: cmd.ErrOrStderr(),
		Verbose: g.verbose,
		File:    g.logFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, closer, nil
}

// loadConfigFile finds and parses the configuration file.
// A path given with --config must exist. Without one, a missing file
// results in a nil *config.File and no error.
func loadConfigFile(path string) (*config.File, error) {
	found := config.FindConfigFile(path)
	if found == "" {
		if path != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
		}
		return nil, nil
	}

	f, err := config.LoadConfigFile(found)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
	}
	return f, nil
}

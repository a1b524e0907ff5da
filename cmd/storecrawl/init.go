package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/storecrawl/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/storecrawl.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented .storecrawl configuration file",
		Long: `Init writes a .storecrawl configuration file holding the defaults of
the places and crawl commands together with commented examples of per-site
settings. The file is read from the current or home directory, or from the
path given with --config.

Examples:
  # Create .storecrawl in current directory
  storecrawl init

  # Create config file at a specific path
  storecrawl init -o myconfig.yaml

  # Force overwrite existing file
  storecrawl init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd writes the embedded template. Without --force an existing
// file is left alone.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	content, err := configTemplate.ReadFile("templates/storecrawl.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flag |= os.O_EXCL
	}
	f, err := os.OpenFile(filepath.Clean(path), flag, 0600)
	switch {
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
	case err != nil:
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close() //nolint:errcheck // the write error is reported
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `Created configuration file: %s

Edit it to change the search area, the store list columns or per-site
settings such as cookies and URL patterns to skip.
`, path)
	return nil
}

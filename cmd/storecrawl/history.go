package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/storecrawl/internal/config"
	"github.com/nao1215/storecrawl/internal/database"
	"github.com/nao1215/storecrawl/internal/model"
	"github.com/nao1215/storecrawl/internal/pipeline"
	"github.com/nao1215/storecrawl/internal/report"
	"github.com/spf13/cobra"
)

// historyTimeFormat is the layout of run times in the history listing.
const historyTimeFormat = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previous crawl and places runs",
		Long: `History lists the runs stored in the local history database, newest
first. With --run the rows of a single run are printed.

Examples:
  # List all runs
  storecrawl history

  # Show the rows of one run
  storecrawl history --run 5d0c2b1e-0c7a-4e55-9d38-8f0b3a3f3a10

  # Export a run as Markdown or JSON
  storecrawl history --run 5d0c2b1e-0c7a-4e55-9d38-8f0b3a3f3a10 --markdown > run.md
  storecrawl history --run 5d0c2b1e-0c7a-4e55-9d38-8f0b3a3f3a10 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("run", "", "ID of the run to print")
	cmd.Flags().BoolP("markdown", "m", false, "Print the run as Markdown")
	cmd.Flags().BoolP("json", "j", false, "Print the run as JSON")
	cmd.MarkFlagsMutuallyExclusive("markdown", "json")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	g := getGlobalFlags(cmd)

	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := database.Open(g.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if runID == "" {
		return listRuns(ctx, out, db)
	}

	table, err := loadRunTable(ctx, db, runID)
	if err != nil {
		return err
	}

	var w report.Writer
	switch {
	case jsonOutput:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case markdownOutput:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(true), report.WithShowEmpty(true))
	}
	_, err = w.Write(table)
	return err
}

// listRuns prints a one line summary per stored run.
func listRuns(ctx context.Context, out io.Writer, db *database.RunDB) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the history database.")
		fmt.Fprintln(out, "\nUse 'storecrawl places' or 'storecrawl crawl' to create one.")
		return nil
	}

	fmt.Fprintf(out, "Runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-6s  %-19s  %6s  %s\n", "ID", "Kind", "Started", "Rows", "Input")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, run := range runs {
		input := run.Input
		if run.Note != "" {
			input += " (" + run.Note + ")"
		}
		fmt.Fprintf(out, "  %-36s  %-6s  %-19s  %6d  %s\n",
			run.ID,
			run.Kind,
			run.StartedAt.Local().Format(historyTimeFormat),
			run.Rows,
			input,
		)
	}
	fmt.Fprintln(out, "\nUse 'storecrawl history --run <id>' to see the rows of a run.")

	return nil
}

// loadRunTable rebuilds the output table of a stored run.
// The properties describe the stored run rather than the live counters.
func loadRunTable(ctx context.Context, db *database.RunDB, runID string) (*report.Table, error) {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	var table *report.Table
	switch run.Kind {
	case model.RunKindCrawl:
		rows, err := db.GetCrawlRows(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		special := run.SpecialColumn
		if special == "" {
			special = config.NewConfig().SpecialColumn()
		}
		table = pipeline.CrawlTable(&model.CrawlRun{ID: run.ID, Input: run.Input, Rows: rows}, special)
	case model.RunKindPlaces:
		found, err := db.GetPlaceRows(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		table = pipeline.PlacesTable(&model.PlacesReport{ID: run.ID, Query: run.Input, Places: found})
	default:
		return nil, fmt.Errorf("run %s has unknown kind %q", run.ID, run.Kind)
	}

	table.Meta = nil
	table.AddMeta("Run ID", run.ID)
	table.AddMeta("Kind", string(run.Kind))
	table.AddMeta("Started", run.StartedAt.Local().Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		table.AddMeta("Finished", run.FinishedAt.Local().Format(time.RFC3339))
	}
	table.AddMeta("Input", run.Input)
	if run.Output != "" {
		table.AddMeta("Output", run.Output)
	}
	if run.Note != "" {
		table.AddMeta("Note", run.Note)
	}
	return table, nil
}

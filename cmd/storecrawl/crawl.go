package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/storecrawl/internal/config"
	"github.com/nao1215/storecrawl/internal/database"
	"github.com/nao1215/storecrawl/internal/httpclient"
	"github.com/nao1215/storecrawl/internal/model"
	"github.com/nao1215/storecrawl/internal/pipeline"
	"github.com/nao1215/storecrawl/internal/report"
	"github.com/nao1215/storecrawl/internal/storelist"
	"github.com/spf13/cobra"
)

// Interactive prompts used when --start or --count is not given.
const (
	promptStart = "取得開始店舗番号（1からの番号、例：3）: "
	promptCount = "取得する店舗件数（例：5）: "
)

// errNoAnswer is returned when stdin closes before a prompt is answered.
var errNoAnswer = errors.New("no answer given")

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl store websites and collect Instagram links",
		Long: `Crawl reads a store list spreadsheet and crawls the website of each
selected store breadth-first. Only pages on the same host as the store's
website are followed. For every page the title and the Instagram links found
on it are recorded.

Stores whose website is empty, "なし" or "エラー" are skipped, as are
websites that are not absolute http(s) URLs.

When --start or --count is omitted you are asked for them interactively.

Examples:
  # Crawl stores 3 to 7 of the default store list
  storecrawl crawl --start 3 --count 5

  # Read another list and write a Markdown summary next to the spreadsheet
  storecrawl crawl -i stores.xlsx -o out.xlsx -s 1 -n 20 -m summary.md

  # Stop after 30 pages per store and crawl four stores at a time
  storecrawl crawl -s 1 -n 100 --max-pages 30 --parallel 4

  # Collect Facebook links as well
  storecrawl crawl -s 1 -n 10 --marker instagram.com --marker facebook.com`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Input and output
	cmd.Flags().StringP("input", "i", config.DefaultInputFile,
		"Store list spreadsheet (.xlsx)")
	cmd.Flags().StringP("output", "o", config.DefaultCrawlOutputFile,
		"Spreadsheet to write the crawled pages to")
	cmd.Flags().StringP("markdown", "m", "",
		"Also write a Markdown summary to this file")

	// Store range
	cmd.Flags().IntP("start", "s", 0,
		"1-indexed number of the first store to crawl (prompted if omitted)")
	cmd.Flags().IntP("count", "n", 0,
		"Number of stores to crawl (prompted if omitted)")

	// Crawl behavior
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Pause between two page fetches of a store")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum pages crawled per store (0 means no limit)")
	cmd.Flags().StringSlice("marker", []string{config.DefaultSpecialMarker},
		"Host substring of links to collect (repeatable; the first names the column)")
	cmd.Flags().IntP("parallel", "P", config.DefaultParallel,
		"Number of stores crawled at the same time")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")

	// Configuration
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .storecrawl in current or home directory)")
	cmd.Flags().Bool("no-db", false,
		"Do not save the run to the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	g := getGlobalFlags(cmd)

	cfg, err := buildCrawlConfig(cmd, g)
	if err != nil {
		return err
	}

	stores, err := storelist.Read(cfg.InputFile, storelist.Options{
		Sheet:         cfg.Sheet,
		NameColumn:    cfg.StoreNameColumn,
		WebsiteColumn: cfg.WebsiteColumn,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d stores from %s\n", len(stores), cfg.InputFile)

	flags := cmd.Flags()
	if err := promptRange(cmd.InOrStdin(), cmd.OutOrStdout(), cfg, !flags.Changed("start"), !flags.Changed("count")); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer, err := newLogger(cmd, g)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, stores, logger)
}

// buildCrawlConfig creates a Config from the defaults, the configuration
// file and the flags, in that order of precedence.
func buildCrawlConfig(cmd *cobra.Command, g globalFlags) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = g.verbose
	cfg.LogFile = g.logFile
	cfg.DBDir = g.dbDir

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	file, err := loadConfigFile(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyFile(file)

	flags := cmd.Flags()
	if flags.Changed("input") {
		if cfg.InputFile, err = flags.GetString("input"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output") {
		if cfg.OutputFile, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if cfg.MarkdownReport, err = flags.GetString("markdown"); err != nil {
		return nil, err
	}
	if flags.Changed("start") {
		if cfg.Start, err = flags.GetInt("start"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("count") {
		if cfg.Count, err = flags.GetInt("count"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("delay") {
		if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("marker") {
		if cfg.SpecialMarkers, err = flags.GetStringSlice("marker"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("parallel") {
		if cfg.Parallel, err = flags.GetInt("parallel"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	return cfg, nil
}

// promptRange asks for the start and count values that were not given as
// flags. Answers are read line by line from in. A value given as a flag is
// kept as is, zero included, and left to Validate.
func promptRange(in io.Reader, out io.Writer, cfg *config.Config, askStart, askCount bool) error {
	if !askStart && !askCount {
		return nil
	}

	scanner := bufio.NewScanner(in)
	ask := func(prompt string) (int, error) {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, errNoAnswer
		}
		return strconv.Atoi(strings.TrimSpace(scanner.Text()))
	}

	if askStart {
		n, err := ask(promptStart)
		if err != nil {
			return fmt.Errorf("invalid start: %w", err)
		}
		cfg.Start = n
	}
	if askCount {
		n, err := ask(promptCount)
		if err != nil {
			return fmt.Errorf("invalid count: %w", err)
		}
		cfg.Count = n
	}
	return nil
}

// runCrawl crawls the selected stores and writes the results.
// An interrupted crawl still writes and records the rows collected so far.
func runCrawl(ctx context.Context, out, progress io.Writer, cfg *config.Config, stores []model.Store, logger *slog.Logger) error {
	selected, err := storelist.Select(stores, cfg.Start, cfg.Count)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		fmt.Fprintf(out, "No stores in range %d-%d (the list has %d stores)\n",
			cfg.Start, cfg.Start+cfg.Count-1, len(stores))
	} else {
		fmt.Fprintf(out, "Processing stores %d to %d\n", cfg.Start, cfg.Start+len(selected)-1)
	}

	clientOpts := []httpclient.Option{
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithUserAgent(cfg.UserAgent),
	}
	if cfg.ProxyAddress != "" {
		clientOpts = append(clientOpts, httpclient.WithProxy(cfg.ProxyAddress))
	}
	clients, err := httpclient.New(clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	batch := pipeline.NewStoreBatch(
		pipeline.NewSpiderFactory(cfg, clients, logger),
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.Parallel),
		pipeline.WithProgress(progress),
	)

	startTime := time.Now()
	run, runErr := batch.Run(ctx, cfg.InputFile, selected)
	run.Output = cfg.OutputFile
	run.SpecialColumn = cfg.SpecialColumn()

	table := pipeline.CrawlTable(run, run.SpecialColumn).WithSheet("Crawl")
	if err := writeTable(cfg.OutputFile, cfg.MarkdownReport, table); err != nil {
		return err
	}

	if _, err := report.NewSimpleWriter(out).Write(table); err != nil {
		logger.Warn("failed to print summary", "error", err)
	}
	fmt.Fprintf(out, "Saved %d rows to %s in %s\n",
		len(run.Rows), cfg.OutputFile, time.Since(startTime).Round(time.Millisecond))

	if cfg.SaveToDB {
		saveCrawlRun(context.WithoutCancel(ctx), cfg.DBDir, run, logger)
	}

	if runErr != nil {
		return fmt.Errorf("crawl interrupted, partial results were saved: %w", runErr)
	}
	return nil
}

// writeTable writes table as a spreadsheet and, when markdownPath is set,
// as a Markdown summary.
func writeTable(outputPath, markdownPath string, table *report.Table) error {
	if err := report.SaveFile(outputPath, report.XLSX, table); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	if markdownPath != "" {
		if err := report.SaveFile(markdownPath, report.Markdown, table); err != nil {
			return fmt.Errorf("failed to write %s: %w", markdownPath, err)
		}
	}
	return nil
}

// saveCrawlRun records the run in the history database.
// Failures are logged; the spreadsheet has already been written.
func saveCrawlRun(ctx context.Context, dbDir string, run *model.CrawlRun, logger *slog.Logger) {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		logger.Error("failed to open history database", "dir", dbDir, "error", err)
		return
	}
	defer db.Close()

	if err := db.SaveCrawlRun(ctx, run); err != nil {
		logger.Error("failed to save crawl run", "run", run.ID, "error", err)
		return
	}
	logger.Info("crawl run saved to history", "run", run.ID, "db", db.Path())
}

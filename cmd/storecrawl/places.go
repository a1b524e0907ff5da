package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/storecrawl/internal/config"
	"github.com/nao1215/storecrawl/internal/database"
	"github.com/nao1215/storecrawl/internal/model"
	"github.com/nao1215/storecrawl/internal/pipeline"
	"github.com/nao1215/storecrawl/internal/places"
	"github.com/nao1215/storecrawl/internal/report"
	"github.com/spf13/cobra"
)

// NewPlacesCmd creates the places command.
func NewPlacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "places",
		Short: "Search stores with the Google Places API",
		Long: `Places runs a text search around a coordinate, looks up the website,
review count and address of every result, and writes the results sorted by
distance from the coordinate to a spreadsheet.

The spreadsheet has the columns 店舗名, 住所, 評価, 口コミ数, ウェブサイト,
距離（km） and Googleマップリンク and is the input of 'storecrawl crawl'.

The API key is read from GOOGLE_MAPS_API_KEY. A .env file in the current
directory (or the file given with --env-file) is loaded first.

Examples:
  # Indoor golf within 50 km of Higashi-Kakogawa station
  storecrawl places

  # Another keyword and place
  storecrawl places -k "ボルダリング" --lat 35.6812 --lng 139.7671 -r 10000

  # English addresses
  storecrawl places -l en -o data/places_en.xlsx`,
		Args: cobra.NoArgs,
		RunE: runPlacesCmd,
	}

	// Search
	cmd.Flags().StringP("keyword", "k", config.DefaultKeyword,
		"Text search query")
	cmd.Flags().Float64("lat", config.DefaultLocation.Lat,
		"Latitude of the search center")
	cmd.Flags().Float64("lng", config.DefaultLocation.Lng,
		"Longitude of the search center")
	cmd.Flags().UintP("radius", "r", config.DefaultRadius,
		"Search radius in meters (max 50000)")
	cmd.Flags().StringP("language", "l", config.DefaultLanguage,
		"Language of the reverse geocoded addresses")
	cmd.Flags().Duration("page-delay", config.DefaultPageDelay,
		"Wait before requesting the next result page")

	// Output
	cmd.Flags().StringP("output", "o", config.DefaultPlacesOutputFile,
		"Spreadsheet to write the places to")
	cmd.Flags().StringP("markdown", "m", "",
		"Also write a Markdown summary to this file")

	// Configuration
	cmd.Flags().String("env-file", config.DefaultEnvFile,
		"dotenv file holding "+config.APIKeyEnv)
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .storecrawl in current or home directory)")
	cmd.Flags().Bool("no-db", false,
		"Do not save the run to the history database")

	// Points the client at a local server in tests.
	cmd.Flags().String("api-base-url", "", "Google Maps API base URL")
	_ = cmd.Flags().MarkHidden("api-base-url") //nolint:errcheck // flag is defined above

	return cmd
}

// runPlacesCmd executes the places command.
func runPlacesCmd(cmd *cobra.Command, _ []string) error {
	g := getGlobalFlags(cmd)

	cfg, err := buildPlacesConfig(cmd, g)
	if err != nil {
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

	baseURL, err := cmd.Flags().GetString("api-base-url")
	if err != nil {
		return err
	}
	opts := []places.Option{}
	if baseURL != "" {
		opts = append(opts, places.WithBaseURL(baseURL))
	}
	client, err := places.NewClient(cfg.APIKey, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runPlaces(ctx, cmd.OutOrStdout(), cfg, client, logger)
}

// buildPlacesConfig creates a PlacesConfig from the defaults, the
// configuration file and the flags, in that order of precedence.
func buildPlacesConfig(cmd *cobra.Command, g globalFlags) (*config.PlacesConfig, error) {
	cfg := config.NewPlacesConfig()
	cfg.Verbose = g.verbose
	cfg.LogFile = g.logFile
	cfg.DBDir = g.dbDir

	flags := cmd.Flags()

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	file, err := loadConfigFile(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyFile(file)

	if flags.Changed("keyword") {
		if cfg.Keyword, err = flags.GetString("keyword"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("lat") {
		if cfg.Location.Lat, err = flags.GetFloat64("lat"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("lng") {
		if cfg.Location.Lng, err = flags.GetFloat64("lng"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("radius") {
		if cfg.RadiusMeters, err = flags.GetUint("radius"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("language") {
		if cfg.Language, err = flags.GetString("language"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("page-delay") {
		if cfg.PageDelay, err = flags.GetDuration("page-delay"); err != nil {
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

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	if cfg.EnvFile, err = flags.GetString("env-file"); err != nil {
		return nil, err
	}
	cfg.APIKey, err = config.LoadAPIKey(cfg.EnvFile, flags.Changed("env-file"))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// runPlaces runs the places pipeline and writes the results.
func runPlaces(ctx context.Context, out io.Writer, cfg *config.PlacesConfig, api places.API, logger *slog.Logger) error {
	tag, err := cfg.LanguageTag()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	r := model.NewPlacesReport(cfg.Keyword, cfg.Location, cfg.RadiusMeters, tag.String())
	r.Output = cfg.OutputFile

	p := pipeline.PlacesPipeline(api, pipeline.PlacesConfig{
		PageDelay:         cfg.PageDelay,
		Language:          tag.String(),
		DetailConcurrency: cfg.DetailConcurrency,
	}, pipeline.WithLogger(logger))

	fmt.Fprintf(out, "Searching %q within %d m of %s...\n", cfg.Keyword, cfg.RadiusMeters, cfg.Location)
	startTime := time.Now()

	runErr := p.Execute(ctx, r)

	table := pipeline.PlacesTable(r).WithSheet("Places")
	if err := writeTable(cfg.OutputFile, cfg.MarkdownReport, table); err != nil {
		return err
	}

	if _, err := report.NewSimpleWriter(out).Write(table); err != nil {
		logger.Warn("failed to print summary", "error", err)
	}
	fmt.Fprintf(out, "Found %d places, saved to %s in %s\n",
		len(r.Places), cfg.OutputFile, time.Since(startTime).Round(time.Millisecond))

	if cfg.SaveToDB {
		savePlacesRun(context.WithoutCancel(ctx), cfg.DBDir, r, logger)
	}

	if runErr != nil {
		return fmt.Errorf("places lookup failed: %w", runErr)
	}
	return nil
}

// savePlacesRun records the report in the history database.
// Failures are logged; the spreadsheet has already been written.
func savePlacesRun(ctx context.Context, dbDir string, r *model.PlacesReport, logger *slog.Logger) {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		logger.Error("failed to open history database", "dir", dbDir, "error", err)
		return
	}
	defer db.Close()

	if err := db.SavePlacesRun(ctx, r); err != nil {
		logger.Error("failed to save places run", "run", r.ID, "error", err)
		return
	}
	logger.Info("places run saved to history", "run", r.ID, "db", db.Path())
}

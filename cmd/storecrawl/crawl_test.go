package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/storecrawl/internal/config"
	"github.com/nao1215/storecrawl/internal/database"
	"github.com/xuri/excelize/v2"
)

// writeStoreList creates a store list workbook with the default headers.
func writeStoreList(t *testing.T, stores [][2]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	header := []any{config.DefaultStoreNameColumn, "住所", config.DefaultWebsiteColumn}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	for i, s := range stores {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("invalid coordinates: %v", err)
		}
		row := []any{s[0], "兵庫県", s[1]}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "stores.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	return path
}

// readSheet returns all rows of the first sheet of an .xlsx file.
func readSheet(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetList()[0])
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	return rows
}

// joinRow joins cells for comparison, ignoring trailing empty cells.
func joinRow(cells []string) string {
	return strings.TrimRight(strings.Join(cells, "|"), "|")
}

// writeConfig writes a configuration file so tests never pick up a file
// from the working or home directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// newStoreSite starts a small store website.
func newStoreSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Golf A Top</title></head><body>
			<a href="/about">about</a>
			<a href="https://www.instagram.com/golf_a/">insta</a>
			<a href="https://example.com/">external</a>
		</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Golf A About</title></head><body><a href="/">top</a></body></html>`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// TestNewCrawlCmd tests the crawl command flags.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "input", shorthand: "i", defValue: config.DefaultInputFile},
		{name: "output", shorthand: "o", defValue: config.DefaultCrawlOutputFile},
		{name: "start", shorthand: "s", defValue: "0"},
		{name: "count", shorthand: "n", defValue: "0"},
		{name: "delay", defValue: "1s"},
		{name: "timeout", shorthand: "t", defValue: "10s"},
		{name: "max-pages", shorthand: "p", defValue: "0"},
		{name: "marker", defValue: "[instagram.com]"},
		{name: "parallel", shorthand: "P", defValue: "1"},
		{name: "proxy", defValue: ""},
		{name: "markdown", shorthand: "m", defValue: ""},
		{name: "config", shorthand: "c", defValue: ""},
		{name: "no-db", defValue: "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// TestBuildCrawlConfig tests the precedence of defaults, file and flags.
func TestBuildCrawlConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, `
crawl:
  input: from-file.xlsx
  delay: 3s
  maxPages: 5
  markers: [facebook.com]
sites:
  golf.example.jp:
    cookie: "age=1"
`)

	t.Run("file values over defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", cfgPath}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildCrawlConfig(cmd, globalFlags{dbDir: t.TempDir()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.InputFile != "from-file.xlsx" || cfg.CrawlDelay != 3*time.Second || cfg.MaxPages != 5 {
			t.Errorf("file values not applied: %+v", cfg)
		}
		if cfg.SpecialColumn() != "Facebook" {
			t.Errorf("expected Facebook column, got %s", cfg.SpecialColumn())
		}
		if cfg.SiteConfigs.GetSiteConfig("golf.example.jp").Cookie != "age=1" {
			t.Error("expected site config to be loaded")
		}
		if cfg.OutputFile != config.DefaultCrawlOutputFile || !cfg.SaveToDB {
			t.Errorf("expected defaults to remain, got %+v", cfg)
		}
	})

	t.Run("flags over file values", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		args := []string{"-c", cfgPath, "-i", "flag.xlsx", "--max-pages", "2", "-s", "3", "-n", "4", "--no-db", "-P", "2"}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildCrawlConfig(cmd, globalFlags{dbDir: t.TempDir()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.InputFile != "flag.xlsx" || cfg.MaxPages != 2 || cfg.Parallel != 2 {
			t.Errorf("flags not applied: %+v", cfg)
		}
		if cfg.Start != 3 || cfg.Count != 4 || cfg.SaveToDB {
			t.Errorf("unexpected range or db setting: %+v", cfg)
		}
		if cfg.CrawlDelay != 3*time.Second {
			t.Errorf("expected file delay to remain, got %s", cfg.CrawlDelay)
		}
	})

	t.Run("explicit missing config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildCrawlConfig(cmd, globalFlags{}); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

// TestPromptRange tests the interactive store range questions.
func TestPromptRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start      int
		count      int
		askStart   bool
		askCount   bool
		input      string
		wantStart  int
		wantCount  int
		wantPrompt []string
		wantErr    bool
	}{
		{
			name:       "asks for both",
			askStart:   true,
			askCount:   true,
			input:      "3\n5\n",
			wantStart:  3,
			wantCount:  5,
			wantPrompt: []string{promptStart, promptCount},
		},
		{
			name:       "asks only for count",
			start:      2,
			askCount:   true,
			input:      " 7 \n",
			wantStart:  2,
			wantCount:  7,
			wantPrompt: []string{promptCount},
		},
		{
			name:      "nothing to ask",
			start:     1,
			count:     1,
			wantStart: 1,
			wantCount: 1,
		},
		{
			name:       "zero given as a flag is kept",
			askCount:   true,
			input:      "4\n",
			wantStart:  0,
			wantCount:  4,
			wantPrompt: []string{promptCount},
		},
		{
			name:     "not a number",
			askStart: true,
			askCount: true,
			input:    "three\n",
			wantErr:  true,
		},
		{
			name:     "stdin closed",
			askStart: true,
			input:    "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.Start, cfg.Count = tt.start, tt.count

			var out bytes.Buffer
			err := promptRange(strings.NewReader(tt.input), &out, cfg, tt.askStart, tt.askCount)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Start != tt.wantStart || cfg.Count != tt.wantCount {
				t.Errorf("got start=%d count=%d, want %d and %d", cfg.Start, cfg.Count, tt.wantStart, tt.wantCount)
			}
			if got := out.String(); got != strings.Join(tt.wantPrompt, "") {
				t.Errorf("unexpected prompts %q", got)
			}
		})
	}
}

// TestRunCrawlCmd tests the crawl command end to end.
func TestRunCrawlCmd(t *testing.T) {
	t.Parallel()

	server := newStoreSite(t)
	cfgPath := writeConfig(t, "")

	t.Run("crawls selected stores and records the run", func(t *testing.T) {
		t.Parallel()

		input := writeStoreList(t, [][2]string{
			{"Golf None", "なし"},
			{"Golf A", server.URL + "/"},
			{"Golf Bad", "golf-a.test"},
		})
		outDir := t.TempDir()
		output := filepath.Join(outDir, "crawl.xlsx")
		markdown := filepath.Join(outDir, "crawl.md")
		dbDir := t.TempDir()

		stdout, _, err := execute(t, "",
			"crawl", "-c", cfgPath, "-i", input, "-o", output, "-m", markdown,
			"-s", "1", "-n", "3", "--delay", "0s", "--db-dir", dbDir,
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Loaded 3 stores") || !strings.Contains(stdout, "Saved 2 rows") {
			t.Errorf("unexpected output %q", stdout)
		}

		rows := readSheet(t, output)
		want := [][]string{
			{"店舗名", "StoreURL", "PageURL", "Title", "Instagram"},
			{"Golf A", server.URL + "/", server.URL + "/", "Golf A Top", "https://www.instagram.com/golf_a"},
			{"Golf A", server.URL + "/", server.URL + "/about", "Golf A About"},
		}
		if len(rows) != len(want) {
			t.Fatalf("expected %d rows, got %d: %v", len(want), len(rows), rows)
		}
		for i := range want {
			if joinRow(rows[i]) != joinRow(want[i]) {
				t.Errorf("row %d: got %v, want %v", i, rows[i], want[i])
			}
		}

		md, err := os.ReadFile(markdown)
		if err != nil {
			t.Fatalf("expected markdown summary: %v", err)
		}
		if !strings.Contains(string(md), "Store crawl results") {
			t.Errorf("unexpected markdown %q", md)
		}

		db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("expected history database: %v", err)
		}
		defer db.Close()
		runs, err := db.ListRuns(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 || runs[0].Rows != 2 || runs[0].Output != output {
			t.Errorf("unexpected history %+v", runs)
		}
	})

	t.Run("prompts for the range", func(t *testing.T) {
		t.Parallel()

		input := writeStoreList(t, [][2]string{
			{"Golf None", "なし"},
			{"Golf A", server.URL + "/"},
		})
		output := filepath.Join(t.TempDir(), "crawl.xlsx")

		stdout, _, err := execute(t, "2\n1\n",
			"crawl", "-c", cfgPath, "-i", input, "-o", output, "--delay", "0s", "--no-db",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, promptStart) || !strings.Contains(stdout, promptCount) {
			t.Errorf("expected prompts, got %q", stdout)
		}
		if rows := readSheet(t, output); len(rows) != 3 {
			t.Errorf("expected header and 2 rows, got %v", rows)
		}
	})

	t.Run("range past the end writes the header only", func(t *testing.T) {
		t.Parallel()

		input := writeStoreList(t, [][2]string{{"Golf A", server.URL + "/"}})
		output := filepath.Join(t.TempDir(), "crawl.xlsx")

		stdout, _, err := execute(t, "",
			"crawl", "-c", cfgPath, "-i", input, "-o", output, "-s", "5", "-n", "2", "--no-db",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No stores in range") {
			t.Errorf("unexpected output %q", stdout)
		}
		if rows := readSheet(t, output); len(rows) != 1 {
			t.Errorf("expected header only, got %v", rows)
		}
	})

	t.Run("unreadable input fails", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "",
			"crawl", "-c", cfgPath, "-i", filepath.Join(t.TempDir(), "missing.xlsx"),
			"-s", "1", "-n", "1", "--no-db",
		)
		if err == nil {
			t.Fatal("expected error for missing input")
		}
	})

	t.Run("invalid range fails validation", func(t *testing.T) {
		t.Parallel()

		input := writeStoreList(t, [][2]string{{"Golf A", server.URL + "/"}})
		_, _, err := execute(t, "",
			"crawl", "-c", cfgPath, "-i", input, "--start=-1", "-n", "1", "--no-db",
		)
		if !errors.Is(err, config.ErrInvalidRange) {
			t.Errorf("expected ErrInvalidRange, got %v", err)
		}
	})

	t.Run("explicit zero fails without prompting", func(t *testing.T) {
		t.Parallel()

		input := writeStoreList(t, [][2]string{{"Golf A", server.URL + "/"}})
		for _, args := range [][]string{
			{"--start", "0", "-n", "1"},
			{"-s", "1", "--count", "0"},
		} {
			argv := append([]string{"crawl", "-c", cfgPath, "-i", input, "--no-db"}, args...)
			stdout, _, err := execute(t, "1\n1\n", argv...)
			if !errors.Is(err, config.ErrInvalidRange) {
				t.Errorf("%v: expected ErrInvalidRange, got %v", args, err)
			}
			if strings.Contains(stdout, promptStart) || strings.Contains(stdout, promptCount) {
				t.Errorf("%v: expected no prompt, got %q", args, stdout)
			}
		}
	})
}

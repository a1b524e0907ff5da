package storelist

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/nao1215/storecrawl/internal/model"
	"github.com/xuri/excelize/v2"
)

// Default header names of the store list.
const (
	DefaultNameColumn    = "店舗名"
	DefaultWebsiteColumn = "ウェブサイト"
)

var (
	// ErrNoStores is returned when the sheet has a header but no data rows.
	ErrNoStores = errors.New("store list has no rows")

	// ErrSheetNotFound is returned when the requested sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrColumnNotFound is returned when a required header is missing.
	ErrColumnNotFound = errors.New("column not found")

	// ErrInvalidRange is returned by Select for a start or count below 1.
	ErrInvalidRange = errors.New("invalid range: start and count must be 1 or greater")

	// ErrInvalidWebsite describes why a website value cannot be crawled.
	ErrInvalidWebsite = errors.New("website is not an absolute http(s) URL")
)

// placeholders are website values that mean "no website".
// "なし" and "エラー" are written by the places lookup.
var placeholders = map[string]struct{}{
	"":                 {},
	model.WebsiteNone:  {},
	model.WebsiteError: {},
	"none":             {},
	"error":            {},
	"nan":              {},
	"n/a":              {},
}

// Options configures Read.
type Options struct {
	// Sheet is the sheet to read. Empty means the first sheet.
	Sheet string

	// NameColumn is the header of the store name column.
	NameColumn string

	// WebsiteColumn is the header of the website column.
	WebsiteColumn string
}

func (o Options) withDefaults() Options {
	if o.NameColumn == "" {
		o.NameColumn = DefaultNameColumn
	}
	if o.WebsiteColumn == "" {
		o.WebsiteColumn = DefaultWebsiteColumn
	}
	return o
}

// Read loads the stores of an .xlsx workbook.
// The first row is the header. Every following row becomes a Store, blank
// rows included, so row numbers match what the user sees in the sheet.
func Read(path string, opts Options) ([]model.Store, error) {
	opts = opts.withDefaults()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store list %s: %w", path, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	sheets := f.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook %s has no sheets", ErrSheetNotFound, path)
		}
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return nil, fmt.Errorf("%w: %q in %s", ErrSheetNotFound, sheet, path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return fromRows(rows, opts)
}

// fromRows converts raw sheet rows, header first, into stores.
func fromRows(rows [][]string, opts Options) ([]model.Store, error) {
	if len(rows) == 0 {
		return nil, ErrNoStores
	}

	nameIdx := indexOf(rows[0], opts.NameColumn)
	if nameIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, opts.NameColumn)
	}
	websiteIdx := indexOf(rows[0], opts.WebsiteColumn)
	if websiteIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, opts.WebsiteColumn)
	}

	stores := make([]model.Store, 0, len(rows)-1)
	for i, row := range rows[1:] {
		stores = append(stores, model.Store{
			Row:     i + 1,
			Name:    strings.TrimSpace(cell(row, nameIdx)),
			Website: strings.TrimSpace(cell(row, websiteIdx)),
		})
	}
	if len(stores) == 0 {
		return nil, ErrNoStores
	}
	return stores, nil
}

// Select returns stores [start, start+count) with a 1-indexed start.
// The range is clipped to the list like a slice expression, so a start past
// the end yields an empty result rather than an error.
func Select(stores []model.Store, start, count int) ([]model.Store, error) {
	if start < 1 || count < 1 {
		return nil, fmt.Errorf("%w: start=%d count=%d", ErrInvalidRange, start, count)
	}
	from := start - 1
	if from >= len(stores) {
		return []model.Store{}, nil
	}
	to := min(from+count, len(stores))
	return stores[from:to], nil
}

// Classify decides whether a store's website can be crawled.
// Absent websites are skipped silently. Invalid ones come with an error
// describing the value, for logging.
func Classify(store model.Store) (model.WebsiteState, error) {
	value := strings.TrimSpace(store.Website)
	if _, ok := placeholders[strings.ToLower(value)]; ok {
		return model.WebsiteAbsent, nil
	}

	u, err := url.Parse(value)
	if err != nil {
		return model.WebsiteInvalid, fmt.Errorf("%w: %q: %w", ErrInvalidWebsite, value, err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return model.WebsiteInvalid, fmt.Errorf("%w: %q", ErrInvalidWebsite, value)
	}
	return model.WebsiteValid, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

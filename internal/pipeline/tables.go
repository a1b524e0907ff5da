package pipeline

import (
	"strconv"

	"github.com/nao1215/storecrawl/internal/model"
	"github.com/nao1215/storecrawl/internal/report"
)

// Column names of the crawl spreadsheet.
const (
	ColumnStoreName = "店舗名"
	ColumnStoreURL  = "StoreURL"
	ColumnPageURL   = "PageURL"
	ColumnTitle     = "Title"
)

// Column names of the places spreadsheet.
const (
	ColumnPlaceName = "店舗名"
	ColumnAddress   = "住所"
	ColumnRating    = "評価"
	ColumnReviews   = "口コミ数"
	ColumnWebsite   = "ウェブサイト"
	ColumnDistance  = "距離（km）"
	ColumnMapsLink  = "Googleマップリンク"
)

// CrawlColumns returns the crawl spreadsheet header. specialColumn names the
// last column, for example "Instagram".
func CrawlColumns(specialColumn string) []string {
	return []string{ColumnStoreName, ColumnStoreURL, ColumnPageURL, ColumnTitle, specialColumn}
}

// PlacesColumns returns the places spreadsheet header.
func PlacesColumns() []string {
	return []string{
		ColumnPlaceName, ColumnAddress, ColumnRating, ColumnReviews,
		ColumnWebsite, ColumnDistance, ColumnMapsLink,
	}
}

// CrawlTable converts a crawl run into its output table.
func CrawlTable(run *model.CrawlRun, specialColumn string) *report.Table {
	records := make([]report.Record, len(run.Rows))
	for i, row := range run.Rows {
		records[i] = report.Record{
			{Name: ColumnStoreName, Value: row.StoreName},
			{Name: ColumnStoreURL, Value: row.StoreURL},
			{Name: ColumnPageURL, Value: row.PageURL},
			{Name: ColumnTitle, Value: row.Title},
			{Name: specialColumn, Value: row.SpecialLinks},
		}
	}

	table := report.NewTableWithColumns(CrawlColumns(specialColumn), records).
		WithTitle("Store crawl results")
	table.AddMeta("Run ID", run.ID)
	table.AddMeta("Input", run.Input)
	table.AddMeta("Stores crawled", run.StoresCrawled)
	table.AddMeta("Stores skipped", run.StoresSkipped)
	if run.Cancelled {
		table.AddMeta("Status", "cancelled (partial results)")
	}

	with := run.PagesWithSpecialLinks()
	table.AddStat("Pages with "+specialColumn+" links", with)
	table.AddStat("Pages without "+specialColumn+" links", len(run.Rows)-with)
	return table
}

// PlaceRecord converts a place into its output record.
// Numbers stay numeric so the spreadsheet can sort on them.
func PlaceRecord(p model.Place) report.Record {
	var rating any = model.NotAvailable
	if p.Rating > 0 {
		rating = p.Rating
	}

	var reviews any
	switch p.Reviews.State {
	case model.LookupPresent:
		reviews = p.Reviews.Value
	case model.LookupFailed:
		reviews = model.WebsiteError
	default:
		reviews = model.NotAvailable
	}

	identity := func(s string) string { return s }

	return report.Record{
		{Name: ColumnPlaceName, Value: p.Name},
		{Name: ColumnAddress, Value: p.Address.Render(identity, model.AddressUnknown, model.AddressUnknown)},
		{Name: ColumnRating, Value: rating},
		{Name: ColumnReviews, Value: reviews},
		{Name: ColumnWebsite, Value: p.Website.Render(identity, model.WebsiteNone, model.WebsiteError)},
		{Name: ColumnDistance, Value: p.DistanceKm},
		{Name: ColumnMapsLink, Value: p.MapsLink()},
	}
}

// PlacesTable converts a places report into its output table.
func PlacesTable(r *model.PlacesReport) *report.Table {
	records := make([]report.Record, len(r.Places))
	website, none, failed := 0, 0, 0
	for i, p := range r.Places {
		records[i] = PlaceRecord(p)
		switch p.Website.State {
		case model.LookupPresent:
			website++
		case model.LookupFailed:
			failed++
		default:
			none++
		}
	}

	table := report.NewTableWithColumns(PlacesColumns(), records).
		WithTitle("Places lookup results")
	table.AddMeta("Run ID", r.ID)
	table.AddMeta("Query", r.Query)
	table.AddMeta("Center", r.Center.String())
	table.AddMeta("Radius (m)", strconv.FormatUint(uint64(r.RadiusMeters), 10))
	table.AddMeta("Language", r.Language)
	table.AddMeta("Result pages", r.PagesFetched)
	if r.ErrorMessage != "" {
		table.AddMeta("Error", r.ErrorMessage)
	}

	table.AddStat("With website", website)
	table.AddStat("Without website", none)
	table.AddStat("Details lookup failed", failed)
	return table
}

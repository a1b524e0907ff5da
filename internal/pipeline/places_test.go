package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/storecrawl/internal/geo"
	"github.com/nao1215/storecrawl/internal/model"
	"github.com/nao1215/storecrawl/internal/places"
)

// fakeAPI is an in-memory places.API.
type fakeAPI struct {
	pages      map[string]*places.SearchPage // keyed by page token
	searchErrs map[string]error              // keyed by page token
	details    map[string]*places.Details
	detailErrs map[string]error
	addresses  map[geo.Coordinate]string
	geoErrs    map[geo.Coordinate]error

	mu       sync.Mutex
	tokens   []string
	language string
	inFlight atomic.Int32
	peak     atomic.Int32
}

var _ places.API = (*fakeAPI)(nil)

func (f *fakeAPI) TextSearch(_ context.Context, req places.SearchRequest) (*places.SearchPage, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, req.PageToken)
	f.mu.Unlock()

	if err := f.searchErrs[req.PageToken]; err != nil {
		return nil, err
	}
	page, ok := f.pages[req.PageToken]
	if !ok {
		return &places.SearchPage{}, nil
	}
	return page, nil
}

func (f *fakeAPI) Details(_ context.Context, placeID string) (*places.Details, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if err := f.detailErrs[placeID]; err != nil {
		return nil, err
	}
	if d, ok := f.details[placeID]; ok {
		return d, nil
	}
	return &places.Details{}, nil
}

func (f *fakeAPI) ReverseGeocode(_ context.Context, at geo.Coordinate, language string) (string, error) {
	f.mu.Lock()
	f.language = language
	f.mu.Unlock()

	if err := f.geoErrs[at]; err != nil {
		return "", err
	}
	return f.addresses[at], nil
}

var (
	locA = geo.Coordinate{Lat: 34.90, Lng: 135.00}
	locB = geo.Coordinate{Lat: 34.74, Lng: 134.87}
	locC = geo.Coordinate{Lat: 34.80, Lng: 134.90}
)

// newFakeAPI returns a fake with two result pages.
func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		pages: map[string]*places.SearchPage{
			"": {
				Results: []places.SearchResult{
					{PlaceID: "a", Name: "Golf A", Location: locA, Rating: 4.2},
					{PlaceID: "b", Name: "Golf B", Location: locB},
				},
				NextPageToken: "t2",
			},
			"t2": {
				Results: []places.SearchResult{
					{PlaceID: "c", Name: "Golf C", Location: locC, Rating: 3.9},
				},
			},
		},
		details: map[string]*places.Details{
			"a": {Website: "https://golf-a.test/", UserRatingsTotal: 31},
		},
		detailErrs: map[string]error{
			"c": errors.New("OVER_QUERY_LIMIT"),
		},
		addresses: map[geo.Coordinate]string{
			locA: "兵庫県加古川市A",
			locC: "兵庫県姫路市C",
		},
		geoErrs: map[geo.Coordinate]error{},
	}
}

// TestSearchStep tests pagination of the text search.
func TestSearchStep(t *testing.T) {
	t.Parallel()

	t.Run("follows next page tokens", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		report := newTestReport()
		step := NewSearchStep(api, WithPageDelay(0), WithSearchLogger(discardLogger()))

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.PagesFetched != 2 {
			t.Errorf("expected 2 pages, got %d", report.PagesFetched)
		}
		if len(report.Places) != 3 || report.Places[2].PlaceID != "c" {
			t.Errorf("unexpected places %+v", report.Places)
		}
		if len(api.tokens) != 2 || api.tokens[1] != "t2" {
			t.Errorf("unexpected page tokens %v", api.tokens)
		}
		if report.Places[0].Rating != 4.2 {
			t.Errorf("expected rating to be copied, got %v", report.Places[0].Rating)
		}
	})

	t.Run("error after first page keeps results", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.searchErrs = map[string]error{"t2": errors.New("INVALID_REQUEST")}
		report := newTestReport()
		step := NewSearchStep(api, WithPageDelay(0), WithSearchLogger(discardLogger()))

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Places) != 2 || report.PagesFetched != 1 {
			t.Errorf("expected first page only, got %d places in %d pages", len(report.Places), report.PagesFetched)
		}
	})

	t.Run("error on first page fails", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.searchErrs = map[string]error{"": errors.New("REQUEST_DENIED")}
		step := NewSearchStep(api, WithPageDelay(0), WithSearchLogger(discardLogger()))

		err := step.Do(context.Background(), newTestReport())
		if !errors.Is(err, ErrSearchFailed) {
			t.Errorf("expected ErrSearchFailed, got %v", err)
		}
	})

	t.Run("waits between pages", func(t *testing.T) {
		t.Parallel()

		step := NewSearchStep(newFakeAPI(), WithPageDelay(30*time.Millisecond), WithSearchLogger(discardLogger()))

		start := time.Now()
		if err := step.Do(context.Background(), newTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
			t.Errorf("expected at least one page delay, took %v", elapsed)
		}
	})

	t.Run("cancellation during delay", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		report := newTestReport()
		step := NewSearchStep(newFakeAPI(), WithPageDelay(time.Hour), WithSearchLogger(discardLogger()))

		err := step.Do(ctx, report)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
		if len(report.Places) != 2 {
			t.Errorf("expected first page to be kept, got %d places", len(report.Places))
		}
	})
}

// TestDetailsStep tests website and review lookups.
func TestDetailsStep(t *testing.T) {
	t.Parallel()

	t.Run("present, absent and failed lookups", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		report := newTestReport()
		report.Places = []model.Place{{PlaceID: "a"}, {PlaceID: "b"}, {PlaceID: "c"}}

		step := NewDetailsStep(api, WithDetailsLogger(discardLogger()))
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		a, b, c := report.Places[0], report.Places[1], report.Places[2]
		if w, ok := a.Website.Get(); !ok || w != "https://golf-a.test/" {
			t.Errorf("expected website for a, got %+v", a.Website)
		}
		if r, ok := a.Reviews.Get(); !ok || r != 31 {
			t.Errorf("expected 31 reviews for a, got %+v", a.Reviews)
		}
		if b.Website.State != model.LookupAbsent || b.Reviews.State != model.LookupAbsent {
			t.Errorf("expected absent lookups for b, got %+v %+v", b.Website, b.Reviews)
		}
		if c.Website.State != model.LookupFailed || c.Reviews.State != model.LookupFailed {
			t.Errorf("expected failed lookups for c, got %+v %+v", c.Website, c.Reviews)
		}
		if c.Website.Err != "OVER_QUERY_LIMIT" {
			t.Errorf("expected error message, got %q", c.Website.Err)
		}
	})

	t.Run("sequential by default", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		report := newTestReport()
		report.Places = make([]model.Place, 6)

		if err := NewDetailsStep(api, WithDetailsLogger(discardLogger())).Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if api.peak.Load() != 1 {
			t.Errorf("expected one lookup at a time, peak %d", api.peak.Load())
		}
	})

	t.Run("concurrency is bounded", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		report := newTestReport()
		report.Places = make([]model.Place, 12)

		step := NewDetailsStep(api, WithDetailsConcurrency(3), WithDetailsLogger(discardLogger()))
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak := api.peak.Load(); peak > 3 {
			t.Errorf("expected at most 3 lookups in flight, peak %d", peak)
		}
		for i, p := range report.Places {
			if p.Website.State != model.LookupAbsent {
				t.Errorf("place %d was not looked up", i)
			}
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report := newTestReport()
		report.Places = make([]model.Place, 3)
		err := NewDetailsStep(newFakeAPI(), WithDetailsLogger(discardLogger())).Do(ctx, report)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestAddressStep tests reverse geocoding.
func TestAddressStep(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.geoErrs[locB] = errors.New("timeout")
	noAddress := geo.Coordinate{Lat: 1, Lng: 1}

	report := newTestReport()
	report.Places = []model.Place{{Location: locA}, {Location: locB}, {Location: noAddress}}

	step := NewAddressStep(api, "ja", WithAddressLogger(discardLogger()))
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a, ok := report.Places[0].Address.Get(); !ok || a != "兵庫県加古川市A" {
		t.Errorf("unexpected address %+v", report.Places[0].Address)
	}
	if report.Places[1].Address.State != model.LookupFailed {
		t.Errorf("expected failed address, got %+v", report.Places[1].Address)
	}
	if report.Places[2].Address.State != model.LookupAbsent {
		t.Errorf("expected absent address, got %+v", report.Places[2].Address)
	}
	if api.language != "ja" {
		t.Errorf("expected language ja, got %q", api.language)
	}
}

// TestDistanceAndSortSteps tests distance computation and ordering.
func TestDistanceAndSortSteps(t *testing.T) {
	t.Parallel()

	report := newTestReport()
	report.Places = []model.Place{
		{Name: "far", Location: locA},
		{Name: "near", Location: locB},
		{Name: "mid", Location: locC},
		{Name: "near-twin", Location: locB},
	}

	ctx := context.Background()
	if err := NewDistanceStep().Do(ctx, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := geo.Round(geo.Haversine(report.Center, locA), 2)
	if report.Places[0].DistanceKm != want {
		t.Errorf("expected %v km, got %v", want, report.Places[0].DistanceKm)
	}

	if err := NewSortStep().Do(ctx, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := []string{"near", "near-twin", "mid", "far"}
	for i, name := range order {
		if report.Places[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, report.Places[i].Name)
		}
	}
}

// TestPlacesPipeline tests the full places pipeline end to end.
func TestPlacesPipeline(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	p := PlacesPipeline(api, PlacesConfig{Language: "ja", DetailConcurrency: 2}, WithLogger(discardLogger()))

	expected := []string{"search", "details", "address", "distance", "sort"}
	names := p.StepNames()
	for i, name := range expected {
		if names[i] != name {
			t.Fatalf("step %d: expected %s, got %s", i, name, names[i])
		}
	}

	report := newTestReport()
	if err := p.Execute(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Places) != 3 {
		t.Fatalf("expected 3 places, got %d", len(report.Places))
	}
	if report.Places[0].Name != "Golf B" || report.Places[2].Name != "Golf A" {
		t.Errorf("expected places sorted by distance, got %s, %s, %s",
			report.Places[0].Name, report.Places[1].Name, report.Places[2].Name)
	}

	table := PlacesTable(report)
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	// Golf B: no website, no reviews, no rating, no address.
	row := table.Rows[0]
	if row[1] != model.AddressUnknown || row[2] != model.NotAvailable || row[3] != model.NotAvailable || row[4] != model.WebsiteNone {
		t.Errorf("unexpected placeholders %v", row)
	}
	// Golf C: details failed.
	row = table.Rows[1]
	if row[3] != model.WebsiteError || row[4] != model.WebsiteError {
		t.Errorf("expected failed details placeholders, got %v", row)
	}
	// Golf A: everything present.
	row = table.Rows[2]
	if row[2] != 4.2 || row[3] != 31 || row[4] != "https://golf-a.test/" {
		t.Errorf("unexpected values %v", row)
	}
	if row[6] != "https://www.google.com/maps/place/?q=place_id:a" {
		t.Errorf("unexpected maps link %v", row[6])
	}
}

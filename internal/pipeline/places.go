package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/nao1215/storecrawl/internal/geo"
	"github.com/nao1215/storecrawl/internal/model"
	"github.com/nao1215/storecrawl/internal/places"
	"golang.org/x/sync/errgroup"
)

// DefaultPageDelay is the wait before requesting the next search page.
// A next page token only becomes valid a short time after it is issued.
const DefaultPageDelay = 2 * time.Second

// DistancePrecision is the number of decimals kept for distances.
const DistancePrecision = 2

// ErrSearchFailed is returned when the first search page cannot be fetched.
var ErrSearchFailed = errors.New("places search failed")

// SearchStep runs the paginated text search and fills report.Places.
type SearchStep struct {
	api       places.API
	pageDelay time.Duration
	logger    *slog.Logger
}

// SearchStepOption configures a SearchStep.
type SearchStepOption func(*SearchStep)

// WithPageDelay sets the wait between result pages.
func WithPageDelay(d time.Duration) SearchStepOption {
	return func(s *SearchStep) {
		s.pageDelay = d
	}
}

// WithSearchLogger sets a custom logger for the search step.
func WithSearchLogger(logger *slog.Logger) SearchStepOption {
	return func(s *SearchStep) {
		s.logger = logger
	}
}

// NewSearchStep creates a search step.
func NewSearchStep(api places.API, opts ...SearchStepOption) *SearchStep {
	s := &SearchStep{
		api:       api,
		pageDelay: DefaultPageDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SearchStep) Name() string {
	return "search"
}

// Do requests pages while the API returns a next page token.
// An error after the first page stops pagination and keeps the results
// collected so far. An error on the first page fails the step.
func (s *SearchStep) Do(ctx context.Context, report *model.PlacesReport) error {
	req := places.SearchRequest{
		Query:        report.Query,
		Location:     report.Center,
		RadiusMeters: report.RadiusMeters,
	}

	for {
		page, err := s.api.TextSearch(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if report.PagesFetched == 0 {
				return fmt.Errorf("%w: %w", ErrSearchFailed, err)
			}
			s.logger.Warn("search pagination stopped",
				"pages", report.PagesFetched,
				"places", len(report.Places),
				"error", err,
			)
			return nil
		}

		report.PagesFetched++
		for _, r := range page.Results {
			report.Places = append(report.Places, model.Place{
				PlaceID:  r.PlaceID,
				Name:     r.Name,
				Location: r.Location,
				Rating:   r.Rating,
			})
		}
		s.logger.Debug("search page fetched",
			"page", report.PagesFetched,
			"results", len(page.Results),
		)

		if page.NextPageToken == "" {
			return nil
		}
		req.PageToken = page.NextPageToken

		if s.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pageDelay):
			}
		}
	}
}

// DetailsStep looks up the website and review count of every place.
// A failed lookup marks both values as failed and never aborts the batch.
type DetailsStep struct {
	api         places.API
	concurrency int
	logger      *slog.Logger
}

// DetailsStepOption configures a DetailsStep.
type DetailsStepOption func(*DetailsStep)

// WithDetailsConcurrency sets the number of concurrent lookups.
func WithDetailsConcurrency(n int) DetailsStepOption {
	return func(s *DetailsStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDetailsLogger sets a custom logger for the details step.
func WithDetailsLogger(logger *slog.Logger) DetailsStepOption {
	return func(s *DetailsStep) {
		s.logger = logger
	}
}

// NewDetailsStep creates a details step. Lookups are sequential by default.
func NewDetailsStep(api places.API, opts ...DetailsStepOption) *DetailsStep {
	s := &DetailsStep{
		api:         api,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *DetailsStep) Name() string {
	return "details"
}

// Do fills Website and Reviews of every place.
func (s *DetailsStep) Do(ctx context.Context, report *model.PlacesReport) error {
	return forEachPlace(ctx, report.Places, s.concurrency, func(p *model.Place) {
		d, err := s.api.Details(ctx, p.PlaceID)
		if err != nil {
			s.logger.Warn("place details lookup failed", "place", p.Name, "error", err)
			p.Website = model.Failed[string](err)
			p.Reviews = model.Failed[int](err)
			return
		}

		if d.Website != "" {
			p.Website = model.Present(d.Website)
		} else {
			p.Website = model.Absent[string]()
		}
		if d.UserRatingsTotal > 0 {
			p.Reviews = model.Present(d.UserRatingsTotal)
		} else {
			p.Reviews = model.Absent[int]()
		}
	})
}

// AddressStep resolves a human-readable address for every place.
type AddressStep struct {
	api         places.API
	language    string
	concurrency int
	logger      *slog.Logger
}

// AddressStepOption configures an AddressStep.
type AddressStepOption func(*AddressStep)

// WithAddressConcurrency sets the number of concurrent lookups.
func WithAddressConcurrency(n int) AddressStepOption {
	return func(s *AddressStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithAddressLogger sets a custom logger for the address step.
func WithAddressLogger(logger *slog.Logger) AddressStepOption {
	return func(s *AddressStep) {
		s.logger = logger
	}
}

// NewAddressStep creates an address step that geocodes in language.
func NewAddressStep(api places.API, language string, opts ...AddressStepOption) *AddressStep {
	s := &AddressStep{
		api:         api,
		language:    language,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *AddressStep) Name() string {
	return "address"
}

// Do fills Address of every place.
func (s *AddressStep) Do(ctx context.Context, report *model.PlacesReport) error {
	return forEachPlace(ctx, report.Places, s.concurrency, func(p *model.Place) {
		addr, err := s.api.ReverseGeocode(ctx, p.Location, s.language)
		switch {
		case err != nil:
			s.logger.Warn("reverse geocoding failed", "place", p.Name, "error", err)
			p.Address = model.Failed[string](err)
		case addr == "":
			p.Address = model.Absent[string]()
		default:
			p.Address = model.Present(addr)
		}
	})
}

// DistanceStep computes the great-circle distance of every place from the
// report center, rounded to DistancePrecision decimals.
type DistanceStep struct{}

// NewDistanceStep creates a distance step.
func NewDistanceStep() *DistanceStep {
	return &DistanceStep{}
}

// Name returns the step name.
func (s *DistanceStep) Name() string {
	return "distance"
}

// Do fills DistanceKm of every place.
func (s *DistanceStep) Do(_ context.Context, report *model.PlacesReport) error {
	for i := range report.Places {
		p := &report.Places[i]
		p.DistanceKm = geo.Round(geo.Haversine(report.Center, p.Location), DistancePrecision)
	}
	return nil
}

// SortStep orders places by ascending distance. Places at the same distance
// keep their search order.
type SortStep struct{}

// NewSortStep creates a sort step.
func NewSortStep() *SortStep {
	return &SortStep{}
}

// Name returns the step name.
func (s *SortStep) Name() string {
	return "sort"
}

// Do sorts report.Places.
func (s *SortStep) Do(_ context.Context, report *model.PlacesReport) error {
	slices.SortStableFunc(report.Places, func(a, b model.Place) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	return nil
}

// forEachPlace calls fn for every place with at most limit calls in flight.
// Each call owns its place, so fn needs no locking. Places not yet started
// when ctx is cancelled are left untouched and ctx.Err() is returned.
func forEachPlace(ctx context.Context, list []model.Place, limit int, fn func(*model.Place)) error {
	var g errgroup.Group
	g.SetLimit(limit)

	for i := range list {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(&list[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// PlacesConfig holds the settings of the default places pipeline.
type PlacesConfig struct {
	PageDelay         time.Duration
	Language          string
	DetailConcurrency int
}

// PlacesPipeline creates the standard places lookup pipeline:
// search, details, address, distance and sort.
func PlacesPipeline(api places.API, cfg PlacesConfig, opts ...Option) *Pipeline {
	p := New(opts...)

	p.AddSteps(
		NewSearchStep(api,
			WithPageDelay(cfg.PageDelay),
			WithSearchLogger(p.logger),
		),
		NewDetailsStep(api,
			WithDetailsConcurrency(cfg.DetailConcurrency),
			WithDetailsLogger(p.logger),
		),
		NewAddressStep(api, cfg.Language,
			WithAddressConcurrency(cfg.DetailConcurrency),
			WithAddressLogger(p.logger),
		),
		NewDistanceStep(),
		NewSortStep(),
	)

	return p
}

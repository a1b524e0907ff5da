package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nao1215/storecrawl/internal/geo"
	"googlemaps.github.io/maps"
)

// ErrNoAPIKey is returned by NewClient when the API key is empty.
var ErrNoAPIKey = errors.New("places: API key is required")

// SearchRequest is one page request of a text search.
type SearchRequest struct {
	// Query is the free text query, for example a business category.
	Query string

	// Location biases the search towards this point.
	Location geo.Coordinate

	// RadiusMeters is the bias radius around Location.
	RadiusMeters uint

	// PageToken requests the page after a previous response.
	PageToken string
}

// SearchResult is a business found by a text search.
type SearchResult struct {
	PlaceID  string
	Name     string
	Location geo.Coordinate

	// Rating is the average rating. 0 means the place has no rating.
	Rating float64
}

// SearchPage is one page of text search results.
type SearchPage struct {
	Results []SearchResult

	// NextPageToken is empty on the last page.
	NextPageToken string
}

// Details holds the per-place fields that a text search does not return.
type Details struct {
	// Website is empty when the place has none.
	Website string

	// UserRatingsTotal is the review count. 0 when the API omits it.
	UserRatingsTotal int
}

// API is the subset of the Google Maps Platform used by the places pipeline.
type API interface {
	// TextSearch returns one page of results.
	TextSearch(ctx context.Context, req SearchRequest) (*SearchPage, error)

	// Details looks up the website and review count of a place.
	Details(ctx context.Context, placeID string) (*Details, error)

	// ReverseGeocode returns the formatted address of the first result for
	// the coordinate, or "" when there is none.
	ReverseGeocode(ctx context.Context, at geo.Coordinate, language string) (string, error)
}

// Client implements API with googlemaps.github.io/maps.
type Client struct {
	maps *maps.Client
}

var _ API = (*Client)(nil)

// clientOptions holds the options passed to NewClient.
type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  int
}

// Option configures a Client.
type Option func(*clientOptions)

// WithBaseURL points the client at another endpoint. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for API requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithRateLimit limits the requests per second sent to the API.
func WithRateLimit(perSecond int) Option {
	return func(o *clientOptions) {
		o.rateLimit = perSecond
	}
}

// NewClient creates a Client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	mapsOpts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if o.baseURL != "" {
		mapsOpts = append(mapsOpts, maps.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		mapsOpts = append(mapsOpts, maps.WithHTTPClient(o.httpClient))
	}
	if o.rateLimit > 0 {
		mapsOpts = append(mapsOpts, maps.WithRateLimit(o.rateLimit))
	}

	c, err := maps.NewClient(mapsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Client{maps: c}, nil
}

// TextSearch runs one page of a Places text search.
func (c *Client) TextSearch(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	resp, err := c.maps.TextSearch(ctx, &maps.TextSearchRequest{
		Query:     req.Query,
		Location:  &maps.LatLng{Lat: req.Location.Lat, Lng: req.Location.Lng},
		Radius:    req.RadiusMeters,
		PageToken: req.PageToken,
	})
	if err != nil {
		return nil, fmt.Errorf("text search failed: %w", err)
	}

	page := &SearchPage{
		Results:       make([]SearchResult, 0, len(resp.Results)),
		NextPageToken: resp.NextPageToken,
	}
	for _, res := range resp.Results {
		page.Results = append(page.Results, SearchResult{
			PlaceID: res.PlaceID,
			Name:    res.Name,
			Location: geo.Coordinate{
				Lat: res.Geometry.Location.Lat,
				Lng: res.Geometry.Location.Lng,
			},
			Rating: float64(res.Rating),
		})
	}
	return page, nil
}

// detailFields are the only fields requested from Place Details.
var detailFields = []maps.PlaceDetailsFieldMask{
	maps.PlaceDetailsFieldMaskWebsite,
	maps.PlaceDetailsFieldMaskUserRatingsTotal,
}

// Details fetches the website and review count of a place.
func (c *Client) Details(ctx context.Context, placeID string) (*Details, error) {
	res, err := c.maps.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields:  detailFields,
	})
	if err != nil {
		return nil, fmt.Errorf("place details failed for %s: %w", placeID, err)
	}
	return &Details{
		Website:          res.Website,
		UserRatingsTotal: res.UserRatingsTotal,
	}, nil
}

// ReverseGeocode returns the formatted address of the first geocoding result.
func (c *Client) ReverseGeocode(ctx context.Context, at geo.Coordinate, language string) (string, error) {
	results, err := c.maps.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: at.Lat, Lng: at.Lng},
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocoding failed for %s: %w", at, err)
	}
	if len(results) == 0 {
		return "", nil
	}
	return results[0].FormattedAddress, nil
}

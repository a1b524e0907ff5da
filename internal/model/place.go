package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/storecrawl/internal/geo"
)

// MapsPlaceURLPrefix is the prefix of a Google Maps link for a place ID.
const MapsPlaceURLPrefix = "https://www.google.com/maps/place/?q=place_id:"

// Place is a business returned by the places search, enriched step by step.
type Place struct {
	// PlaceID is the Google place identifier.
	PlaceID string `json:"place_id"`

	// Name is the business name.
	Name string `json:"name"`

	// Location is the business coordinate returned by the search.
	Location geo.Coordinate `json:"location"`

	// Rating is the average user rating. Zero means the place is unrated.
	Rating float64 `json:"rating"`

	// Website is filled by the details step.
	Website Lookup[string] `json:"website"`

	// Reviews is the total number of user ratings, filled by the details step.
	Reviews Lookup[int] `json:"reviews"`

	// Address is the formatted address from reverse geocoding.
	Address Lookup[string] `json:"address"`

	// DistanceKm is the great-circle distance from the search center.
	DistanceKm float64 `json:"distance_km"`
}

// HasWebsite reports whether the details step found a website.
func (p Place) HasWebsite() bool {
	_, ok := p.Website.Get()
	return ok
}

// MapsLink returns the Google Maps link for the place.
func (p Place) MapsLink() string {
	return MapsPlaceURLPrefix + p.PlaceID
}

// PlacesReport accumulates the state of one places lookup run.
// Pipeline steps receive the same report and enrich it in place.
type PlacesReport struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Query is the search keyword.
	Query string `json:"query"`

	// Center is the reference coordinate for search and distance.
	Center geo.Coordinate `json:"center"`

	// RadiusMeters is the search radius.
	RadiusMeters uint `json:"radius_meters"`

	// Language is the language used for reverse geocoding.
	Language string `json:"language"`

	// Places are the search results in their current (possibly sorted) order.
	Places []Place `json:"places"`

	// Output is the spreadsheet the places were written to.
	Output string `json:"output,omitempty"`

	// PagesFetched counts search result pages.
	PagesFetched int `json:"pages_fetched"`

	// PerformedSteps lists the names of executed pipeline steps.
	PerformedSteps []string `json:"performed_steps"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is set when the run completes.
	FinishedAt time.Time `json:"finished_at"`

	// TimedOut is true when the run was cancelled before all steps finished.
	TimedOut bool `json:"timed_out"`

	// Error is the last step error, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewPlacesReport creates a report for a search.
func NewPlacesReport(query string, center geo.Coordinate, radius uint, language string) *PlacesReport {
	return &PlacesReport{
		ID:             uuid.NewString(),
		Query:          query,
		Center:         center,
		RadiusMeters:   radius,
		Language:       language,
		Places:         make([]Place, 0),
		PerformedSteps: make([]string, 0),
		StartedAt:      time.Now(),
	}
}

// Package places wraps the Google Maps Platform calls used by the places
// command: Places text search, Place Details and reverse geocoding.
//
// The pipeline depends on the API interface rather than on the maps client,
// so steps are tested with in-memory fakes. Client is the production
// implementation built on googlemaps.github.io/maps.
package places

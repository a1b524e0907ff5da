package config

import "errors"

// Configuration validation errors.
// These errors are returned by Validate and can be checked with errors.Is.
var (
	// ErrNoInput is returned when no store list file is configured.
	ErrNoInput = errors.New("no input file specified: use --input or crawl.input in the config file")

	// ErrNoOutput is returned when no output file is configured.
	ErrNoOutput = errors.New("no output file specified")

	// ErrInvalidRange is returned when the store range is not positive.
	ErrInvalidRange = errors.New("invalid store range: start and count must be 1 or greater")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxPages is returned when the page cap is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative (0 means unbounded)")

	// ErrInvalidParallel is returned when the store concurrency is not positive.
	ErrInvalidParallel = errors.New("invalid parallel: must be positive")

	// ErrNoSpecialMarker is returned when no special marker is configured
	// or one of them is blank.
	ErrNoSpecialMarker = errors.New("invalid special markers: at least one non-empty marker is required")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoAPIKey is returned when the Google Maps API key is missing.
	ErrNoAPIKey = errors.New("no API key: set " + APIKeyEnv + " in the environment or a .env file")

	// ErrNoKeyword is returned when the places keyword is empty.
	ErrNoKeyword = errors.New("no search keyword specified")

	// ErrInvalidLocation is returned when the reference coordinate is out of range.
	ErrInvalidLocation = errors.New("invalid location: latitude must be within ±90 and longitude within ±180")

	// ErrInvalidRadius is returned when the search radius is zero or above the API limit.
	ErrInvalidRadius = errors.New("invalid radius: must be between 1 and 50000 meters")

	// ErrInvalidLanguage is returned when the geocoding language is not a valid BCP 47 tag.
	ErrInvalidLanguage = errors.New("invalid language: must be a BCP 47 language tag such as 'ja' or 'en'")

	// ErrInvalidPageDelay is returned when the page delay is negative.
	ErrInvalidPageDelay = errors.New("invalid page delay: must be non-negative")

	// ErrInvalidDetailConcurrency is returned when the details concurrency is not positive.
	ErrInvalidDetailConcurrency = errors.New("invalid details concurrency: must be positive")
)

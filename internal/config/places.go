package config

import (
	"strings"
	"time"

	"github.com/nao1215/storecrawl/internal/geo"
	"golang.org/x/text/language"
)

// Default configuration values for the places command.
const (
	// APIKeyEnv is the environment variable holding the Google Maps API key.
	APIKeyEnv = "GOOGLE_MAPS_API_KEY"

	// DefaultKeyword is the search keyword ("indoor golf").
	DefaultKeyword = "インドアゴルフ"

	// DefaultRadius is the search radius in meters. The Places API caps it at 50 km.
	DefaultRadius uint = 50000

	// MaxRadius is the largest radius accepted by the Places API.
	MaxRadius uint = 50000

	// DefaultLanguage is the reverse geocoding language.
	DefaultLanguage = "ja"

	// DefaultPageDelay is the wait before requesting the next result page.
	// A next_page_token is not valid immediately after it is issued.
	DefaultPageDelay = 2 * time.Second

	// DefaultDetailConcurrency is the number of concurrent details lookups.
	DefaultDetailConcurrency = 1

	// DefaultPlacesOutputFile is where the sorted places are written.
	DefaultPlacesOutputFile = "indoor_golf_sorted.xlsx"

	// DefaultEnvFile is the dotenv file read for the API key.
	DefaultEnvFile = ".env"
)

// DefaultLocation is JR Higashi-Kakogawa station.
var DefaultLocation = geo.Coordinate{Lat: 34.7344, Lng: 134.8652}

// PlacesConfig holds all options of the places command.
type PlacesConfig struct {
	// APIKey is the Google Maps API key.
	APIKey string

	// Keyword is the text search query.
	Keyword string

	// Location is the search center and the distance reference point.
	Location geo.Coordinate

	// RadiusMeters is the search radius.
	RadiusMeters uint

	// Language is the BCP 47 language used for reverse geocoding.
	Language string

	// PageDelay is the wait between result pages.
	PageDelay time.Duration

	// DetailConcurrency is the number of concurrent details lookups.
	DetailConcurrency int

	// OutputFile is the spreadsheet the places are written to.
	OutputFile string

	// MarkdownReport is an optional path for a Markdown summary.
	MarkdownReport string

	// ConfigFilePath is the configuration file given with --config.
	ConfigFilePath string

	// EnvFile is the dotenv file holding the API key.
	EnvFile string

	// Verbose enables debug logging.
	Verbose bool

	// LogFile is an optional path for a rotating JSON log file.
	LogFile string

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveToDB enables saving the run to the history database.
	SaveToDB bool
}

// NewPlacesConfig creates a PlacesConfig with default values.
func NewPlacesConfig() *PlacesConfig {
	return &PlacesConfig{
		Keyword:           DefaultKeyword,
		Location:          DefaultLocation,
		RadiusMeters:      DefaultRadius,
		Language:          DefaultLanguage,
		PageDelay:         DefaultPageDelay,
		DetailConcurrency: DefaultDetailConcurrency,
		OutputFile:        DefaultPlacesOutputFile,
		EnvFile:           DefaultEnvFile,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
	}
}

// ApplyFile copies the non-zero values of the file's places section into c.
func (c *PlacesConfig) ApplyFile(f *File) {
	if f == nil {
		return
	}

	s := f.Places
	if s.Keyword != "" {
		c.Keyword = s.Keyword
	}
	if s.Location != nil {
		c.Location = *s.Location
	}
	if s.Radius > 0 {
		c.RadiusMeters = s.Radius
	}
	if s.Language != "" {
		c.Language = s.Language
	}
	if s.PageDelay != nil {
		c.PageDelay = *s.PageDelay
	}
	if s.DetailConcurrency > 0 {
		c.DetailConcurrency = s.DetailConcurrency
	}
	if s.Output != "" {
		c.OutputFile = s.Output
	}
}

// LanguageTag returns the canonical form of the configured language.
func (c *PlacesConfig) LanguageTag() (language.Tag, error) {
	return language.Parse(c.Language)
}

// Validate checks if the configuration is valid.
func (c *PlacesConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrNoAPIKey
	}
	if strings.TrimSpace(c.Keyword) == "" {
		return ErrNoKeyword
	}
	if !c.Location.Valid() {
		return ErrInvalidLocation
	}
	if c.RadiusMeters == 0 || c.RadiusMeters > MaxRadius {
		return ErrInvalidRadius
	}
	if _, err := c.LanguageTag(); err != nil {
		return ErrInvalidLanguage
	}
	if c.PageDelay < 0 {
		return ErrInvalidPageDelay
	}
	if c.DetailConcurrency <= 0 {
		return ErrInvalidDetailConcurrency
	}
	if strings.TrimSpace(c.OutputFile) == "" {
		return ErrNoOutput
	}
	return nil
}

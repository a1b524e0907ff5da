package model

// Store is one row of the input store list.
type Store struct {
	// Row is the 1-indexed data row number (the header row is not counted).
	Row int `json:"row"`

	// Name is the store name.
	Name string `json:"name"`

	// Website is the raw website cell value. It may be empty or hold one of
	// the placeholder values written by the places lookup.
	Website string `json:"website"`
}

// WebsiteState classifies the website value of a Store.
type WebsiteState int

const (
	// WebsiteAbsent means the store has no usable website value
	// (empty cell or a placeholder such as "なし" or "エラー").
	WebsiteAbsent WebsiteState = iota

	// WebsiteInvalid means the value is present but is not an absolute URL.
	WebsiteInvalid

	// WebsiteValid means the value is an absolute URL that can be crawled.
	WebsiteValid
)

// String returns the state name used in logs.
func (s WebsiteState) String() string {
	switch s {
	case WebsiteAbsent:
		return "absent"
	case WebsiteInvalid:
		return "invalid"
	case WebsiteValid:
		return "valid"
	default:
		return "unknown"
	}
}

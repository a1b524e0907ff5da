package model

// Placeholder values written to spreadsheets for lookups without a value.
// The store list reader treats WebsiteNone and WebsiteError as absent.
const (
	// WebsiteNone is written when a place has no website.
	WebsiteNone = "なし"

	// WebsiteError is written when the details lookup failed.
	WebsiteError = "エラー"

	// AddressUnknown is written when reverse geocoding found nothing or failed.
	AddressUnknown = "住所不明"

	// NotAvailable is written for missing numeric values.
	NotAvailable = "N/A"
)

// LookupState is the outcome of a single enrichment call.
type LookupState int

const (
	// LookupAbsent means the call succeeded but returned no value.
	LookupAbsent LookupState = iota

	// LookupFailed means the call itself failed.
	LookupFailed

	// LookupPresent means the call returned a value.
	LookupPresent
)

// String returns the state name.
func (s LookupState) String() string {
	switch s {
	case LookupAbsent:
		return "absent"
	case LookupFailed:
		return "failed"
	case LookupPresent:
		return "present"
	default:
		return "unknown"
	}
}

// Lookup holds the result of an enrichment call that may be absent,
// may have failed, or may carry a value.
type Lookup[T any] struct {
	// State is the outcome of the call.
	State LookupState

	// Value is only meaningful when State is LookupPresent.
	Value T

	// Err holds the failure message when State is LookupFailed.
	Err string
}

// Present returns a Lookup holding v.
func Present[T any](v T) Lookup[T] {
	return Lookup[T]{State: LookupPresent, Value: v}
}

// Absent returns a Lookup without a value.
func Absent[T any]() Lookup[T] {
	return Lookup[T]{State: LookupAbsent}
}

// Failed returns a Lookup recording err.
func Failed[T any](err error) Lookup[T] {
	l := Lookup[T]{State: LookupFailed}
	if err != nil {
		l.Err = err.Error()
	}
	return l
}

// Get returns the value and whether it is present.
func (l Lookup[T]) Get() (T, bool) {
	return l.Value, l.State == LookupPresent
}

// Render formats the lookup for tabular output. format is applied to a
// present value; absent and failed are rendered as the given placeholders.
func (l Lookup[T]) Render(format func(T) string, absent, failed string) string {
	switch l.State {
	case LookupPresent:
		return format(l.Value)
	case LookupFailed:
		return failed
	default:
		return absent
	}
}

package crawler

import (
	"net/url"
	"strings"
)

// LinkClass is the classification of a canonical link relative to a crawl root.
type LinkClass int

const (
	// LinkExternal links are ignored by the crawl.
	LinkExternal LinkClass = iota

	// LinkInternal links share the root's host and are crawled.
	LinkInternal

	// LinkSpecial links point at a marker host and are collected, not crawled.
	LinkSpecial
)

// String returns the class name.
func (c LinkClass) String() string {
	switch c {
	case LinkExternal:
		return "external"
	case LinkInternal:
		return "internal"
	case LinkSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Canonicalize resolves href against base and reduces the result to
// scheme://host/path. Query string and fragment are dropped so that
// "/about?x=1#sec" and "/about" are the same page.
//
// Unparsable hrefs and references without a host (mailto:, tel:,
// javascript:) return "".
func Canonicalize(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return canonical(base.ResolveReference(ref))
}

func canonical(u *url.URL) string {
	if u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + u.EscapedPath()
}

// Normalizer classifies canonical links for one crawl.
type Normalizer struct {
	// rootHost is compared by exact string equality, port included.
	// "example.test" and "www.example.test" are different sites.
	rootHost string

	// markers are lower-cased host substrings of special links.
	markers []string
}

// NewNormalizer creates a Normalizer for a crawl rooted at root.
func NewNormalizer(root *url.URL, markers []string) *Normalizer {
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	return &Normalizer{rootHost: root.Host, markers: lowered}
}

// Classify returns the class of a canonical URL. The special check comes
// first, so a site hosted on a marker domain never crawls itself.
func (n *Normalizer) Classify(canonicalURL string) LinkClass {
	if canonicalURL == "" {
		return LinkExternal
	}
	u, err := url.Parse(canonicalURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return LinkExternal
	}

	host := strings.ToLower(u.Host)
	for _, m := range n.markers {
		if strings.Contains(host, m) {
			return LinkSpecial
		}
	}
	if u.Host == n.rootHost {
		return LinkInternal
	}
	return LinkExternal
}

// SpecialLinkForm is the form a special link is recorded in.
// A trailing slash is dropped, so "instagram.com/store/" and
// "instagram.com/store" collapse into one profile link.
func SpecialLinkForm(canonicalURL string) string {
	u, err := url.Parse(canonicalURL)
	if err != nil || len(u.Path) <= 1 {
		return canonicalURL
	}
	return strings.TrimSuffix(canonicalURL, "/")
}

package crawler

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Document is what the crawl needs from a page.
type Document struct {
	// Title is the trimmed text of the first <title>, "" if missing.
	Title string

	// Hrefs are the raw href values of every <a> in document order.
	// Empty values are kept; the traversal skips them.
	Hrefs []string
}

// ParseDocument decodes body to UTF-8 and extracts the title and anchors.
//
// Store sites in Japan still serve Shift_JIS and EUC-JP, so the encoding is
// detected from the Content-Type header, a BOM or a <meta> tag before
// parsing. Content types other than HTML yield an empty Document.
func ParseDocument(body io.Reader, contentType string) (*Document, error) {
	doc := &Document{Hrefs: make([]string, 0)}
	if !isHTML(contentType) {
		return doc, nil
	}

	r, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	titleFound := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Namespace == "" {
			switch n.Data {
			case "title":
				if !titleFound {
					titleFound = true
					doc.Title = strings.TrimSpace(textContent(n))
				}
			case "a":
				if href, ok := getAttr(n, "href"); ok {
					doc.Hrefs = append(doc.Hrefs, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return doc, nil
}

// isHTML reports whether a Content-Type should be parsed as HTML.
// A missing Content-Type is parsed; servers of small store sites often omit it.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(contentType)
	}
	return strings.Contains(mediaType, "html")
}

// getAttr returns the value of the named attribute and whether it exists.
func getAttr(n *html.Node, name string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

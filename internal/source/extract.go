package source

import (
	"strings"

	"golang.org/x/net/html"
)

// Path fragments the source site uses for each link/image kind.
const (
	studioPathMarker = "/studio/"
	seriesPathMarker = "/series/"
	genrePathMarker  = "/genre/"
	coverPathMarker  = "/cover/"
)

// starPathMarkers identify cast photo sources.
var starPathMarkers = []string{"/actress/", "/star/"}

// releaseDateMarkers are the labels the source renders before the release
// date, in either language variant.
var releaseDateMarkers = []string{"Release Date", "發行日期"}

// Star is an extracted (name, photo) cast pair.
type Star struct {
	Name  string
	Photo string
}

// Fields is the result of a best-effort extraction. Fields the document
// does not carry stay empty; HasInfo is false when the document has no
// info block at all, which callers treat as an upstream not-found.
type Fields struct {
	HasInfo     bool
	Title       string
	Cover       string
	Studio      string
	Series      string
	ReleaseDate string
	Tags        []string
	Stars       []Star
}

// Usable reports whether the extraction produced enough associations to
// persist a record. A document with neither tags nor stars is not worth
// cataloging and gets routed to the ignore register instead.
func (f Fields) Usable() bool {
	return len(f.Tags) > 0 || len(f.Stars) > 0
}

// Extract derives structured fields from a raw source document. It is a
// pure function of the text: malformed markup never fails, it just leaves
// fields empty.
func Extract(doc string) Fields {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return Fields{}
	}

	info := findByClass(root, "info")
	if info == nil {
		return Fields{}
	}

	f := Fields{HasInfo: true}
	extractLinks(info, &f)
	extractImages(root, &f)
	extractReleaseDate(info, &f)
	return f
}

// extractLinks walks the info block's anchors in document order. The first
// studio and series links win; every genre link accumulates (dedup happens
// at entity resolution, not here).
func extractLinks(info *html.Node, f *Fields) {
	walk(info, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		href := attrVal(n, "href")
		switch {
		case strings.Contains(href, studioPathMarker):
			if f.Studio == "" {
				f.Studio = nodeText(n)
			}
		case strings.Contains(href, seriesPathMarker):
			if f.Series == "" {
				f.Series = nodeText(n)
			}
		case strings.Contains(href, genrePathMarker):
			if name := nodeText(n); name != "" {
				f.Tags = append(f.Tags, name)
			}
		}
	})
}

// extractImages scans every image in the document. Each cast photo is
// captured; the first cover image sets title (alt) and cover (src).
func extractImages(root *html.Node, f *Fields) {
	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "img" {
			return
		}
		src := attrVal(n, "src")
		if src == "" {
			return
		}
		if isStarPhoto(src) {
			if name := attrVal(n, "alt"); name != "" {
				f.Stars = append(f.Stars, Star{Name: name, Photo: src})
			}
			return
		}
		if f.Cover == "" && strings.Contains(src, coverPathMarker) {
			f.Title = attrVal(n, "alt")
			f.Cover = src
		}
	})
}

// extractReleaseDate finds the first labelled paragraph in the info block
// carrying a release date and keeps its value. Later matches are ignored.
func extractReleaseDate(info *html.Node, f *Fields) {
	walk(info, func(n *html.Node) {
		if f.ReleaseDate != "" || n.Type != html.ElementNode || n.Data != "p" {
			return
		}
		text := nodeText(n)
		for _, marker := range releaseDateMarkers {
			idx := strings.Index(text, marker)
			if idx < 0 {
				continue
			}
			value := text[idx+len(marker):]
			value = strings.TrimLeft(value, ":： \t")
			value = strings.TrimSpace(value)
			if value != "" {
				f.ReleaseDate = value
			}
			return
		}
	})
}

func isStarPhoto(src string) bool {
	for _, marker := range starPathMarkers {
		if strings.Contains(src, marker) {
			return true
		}
	}
	return false
}

// ──────────────────── Node helpers ────────────────────

// walk visits n and its subtree in document (pre-) order.
func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// findByClass returns the first element whose class attribute contains
// the given class token.
func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, token := range strings.Fields(attrVal(n, "class")) {
		if token == class {
			return true
		}
	}
	return false
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText concatenates the text content of n's subtree, trimmed.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return strings.TrimSpace(sb.String())
}

package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// markerPattern recognizes the page markers embedded in extracted
// content. The format is load-bearing: PageRange and StripMarkers
// parse it back out of text produced by the page processors.
var markerPattern = regexp.MustCompile(`--- Page (\d+)(?: \((?:Error|OCR)\))? ---`)

// Marker variants.
const (
	markerPlain = ""
	markerError = "Error"
	markerOCR   = "OCR"
)

// pageMarker renders the marker line for page n.
func pageMarker(n int, variant string) string {
	if variant == "" {
		return fmt.Sprintf("--- Page %d ---", n)
	}
	return fmt.Sprintf("--- Page %d (%s) ---", n, variant)
}

// page is one marker-delimited section of extracted content.
type page struct {
	Number int
	Marker string // full marker line
	Body   string
}

// splitPages parses marker-bearing content into pages. Content with no
// markers yields nil.
func splitPages(content string) []page {
	locs := markerPattern.FindAllStringSubmatchIndex(content, -1)
	if locs == nil {
		return nil
	}

	pages := make([]page, 0, len(locs))
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		num, _ := strconv.Atoi(content[loc[2]:loc[3]])
		pages = append(pages, page{
			Number: num,
			Marker: content[loc[0]:loc[1]],
			Body:   strings.TrimSpace(content[loc[1]:end]),
		})
	}
	return pages
}

// PageRange returns the marker-bearing content restricted to pages
// numbered start through end inclusive. Content without markers is
// returned whole.
func PageRange(content string, start, end int) (string, error) {
	if start < 1 || end < start {
		return "", fmt.Errorf("invalid page range %d-%d", start, end)
	}
	pages := splitPages(content)
	if pages == nil {
		return content, nil
	}

	var parts []string
	for _, p := range pages {
		if p.Number >= start && p.Number <= end {
			parts = append(parts, p.Marker+"\n"+p.Body)
		}
	}
	if parts == nil {
		return "", fmt.Errorf("no pages in range %d-%d", start, end)
	}
	return strings.Join(parts, "\n\n"), nil
}

// StripMarkers removes page markers, returning the page bodies joined
// by a blank line. Content without markers is returned unchanged.
func StripMarkers(content string) string {
	pages := splitPages(content)
	if pages == nil {
		return content
	}
	bodies := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Body != "" {
			bodies = append(bodies, p.Body)
		}
	}
	return strings.Join(bodies, "\n\n")
}

// PageCount reports how many marker-delimited pages the content holds,
// or 0 when it carries no markers.
func PageCount(content string) int {
	return len(markerPattern.FindAllStringIndex(content, -1))
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// maxWebpageBytes bounds how much of a response body is read.
const maxWebpageBytes = 10 * mb

// FromWebpage fetches a URL and converts its HTML to plain text. Fetch
// expiry surfaces as a timeout-class error so callers can treat it as
// recoverable.
func (s *Service) FromWebpage(ctx context.Context, pageURL string) (ContentSource, error) {
	defer s.progress.Reset()

	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ContentSource{}, fmt.Errorf("%w: not an http(s) URL: %s", ErrUnsupported, pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ContentSource{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) && ue.Timeout() {
			return ContentSource{}, fmt.Errorf("fetch %s: timeout: %w", pageURL, err)
		}
		return ContentSource{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ContentSource{}, fmt.Errorf("fetch %s: unexpected status %s", pageURL, resp.Status)
	}
	s.progress.Report(50)

	title, text, err := htmlToText(io.LimitReader(resp.Body, maxWebpageBytes))
	if err != nil {
		return ContentSource{}, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	if strings.TrimSpace(text) == "" {
		return ContentSource{}, fmt.Errorf("%w at %s", ErrNoContent, pageURL)
	}
	if title == "" {
		title = u.Host
	}

	s.progress.Done()
	return ContentSource{
		Type:    TypeWebpage,
		Title:   title,
		Content: normalize(text),
		URL:     pageURL,
	}, nil
}

// Elements whose text content is never prose.
var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"nav": true, "iframe": true,
}

// Elements that end a line of prose.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "br": true, "blockquote": true, "pre": true,
}

// htmlToText parses HTML and flattens it to plain text, returning the
// document title alongside. Block elements become line breaks so the
// reading flow survives the flattening.
func htmlToText(r io.Reader) (title, text string, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}

	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "title" && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
				return
			}
			if skipElements[n.Data] {
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out.WriteString(t)
				out.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			out.WriteString("\n")
		}
	}
	walk(doc)

	return title, collapseBlankLines(out.String()), nil
}

// collapseBlankLines trims trailing space per line and squeezes runs
// of blank lines down to one.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

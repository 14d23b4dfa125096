package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Sample Article</title>
  <style>body { color: red }</style>
  <script>console.log("noise")</script>
</head>
<body>
  <nav><a href="/">Home</a></nav>
  <h1>Heading</h1>
  <p>First paragraph of the article.</p>
  <p>Second <b>paragraph</b> with markup.</p>
</body>
</html>`

func TestFromWebpage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	s := newTestService(t, Config{})
	src, err := s.FromWebpage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FromWebpage() error: %v", err)
	}

	if src.Type != TypeWebpage || src.URL != srv.URL {
		t.Errorf("source = %+v", src)
	}
	if src.Title != "Sample Article" {
		t.Errorf("Title = %q, want Sample Article", src.Title)
	}
	for _, want := range []string{"Heading", "First paragraph of the article.", "Second paragraph with markup."} {
		if !strings.Contains(src.Content, want) {
			t.Errorf("Content %q missing %q", src.Content, want)
		}
	}
	for _, stray := range []string{"console.log", "color: red", "Home"} {
		if strings.Contains(src.Content, stray) {
			t.Errorf("Content contains non-prose text %q", stray)
		}
	}
}

func TestFromWebpageRejectsBadInput(t *testing.T) {
	s := newTestService(t, Config{})
	for _, input := range []string{"not a url", "ftp://example.com/file", "file:///etc/passwd"} {
		if _, err := s.FromWebpage(context.Background(), input); err == nil {
			t.Errorf("FromWebpage(%q) succeeded, want error", input)
		}
	}
}

func TestFromWebpageErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	s := newTestService(t, Config{})
	if _, err := s.FromWebpage(context.Background(), srv.URL); err == nil {
		t.Error("FromWebpage() succeeded on a 404")
	}
}

func TestFromWebpageTimeoutIsTimeoutClass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("<p>late</p>"))
	}))
	defer srv.Close()

	s := newTestService(t, Config{HTTPClient: &http.Client{Timeout: 30 * time.Millisecond}})
	_, err := s.FromWebpage(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("FromWebpage() succeeded, want timeout")
	}
	if Classify(err) != ClassTimeout {
		t.Errorf("Classify() = %v for %v, want timeout", Classify(err), err)
	}
}

func TestCollapseBlankLines(t *testing.T) {
	got := collapseBlankLines("a  \n\n\n\nb\n \n\nc\n")
	want := "a\n\nb\n\nc"
	if got != want {
		t.Errorf("collapseBlankLines() = %q, want %q", got, want)
	}
}

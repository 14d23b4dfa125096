package extract

import (
	"strings"
	"testing"
)

const markedContent = "--- Page 1 ---\nAlpha\n\n--- Page 2 (OCR) ---\nBeta\n\n--- Page 3 (Error) ---\nGamma\n\n--- Page 4 ---\nDelta"

func TestPageMarkerFormat(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		variant string
		want    string
	}{
		{"plain", 1, markerPlain, "--- Page 1 ---"},
		{"error", 12, markerError, "--- Page 12 (Error) ---"},
		{"ocr", 3, markerOCR, "--- Page 3 (OCR) ---"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pageMarker(tt.n, tt.variant)
			if got != tt.want {
				t.Errorf("pageMarker() = %q, want %q", got, tt.want)
			}
			if !markerPattern.MatchString(got) {
				t.Errorf("pattern does not recognize %q", got)
			}
		})
	}
}

func TestPageRange(t *testing.T) {
	got, err := PageRange(markedContent, 2, 3)
	if err != nil {
		t.Fatalf("PageRange() error: %v", err)
	}
	want := "--- Page 2 (OCR) ---\nBeta\n\n--- Page 3 (Error) ---\nGamma"
	if got != want {
		t.Errorf("PageRange() = %q, want %q", got, want)
	}
}

func TestPageRangeErrors(t *testing.T) {
	if _, err := PageRange(markedContent, 0, 2); err == nil {
		t.Error("PageRange accepted start 0")
	}
	if _, err := PageRange(markedContent, 3, 2); err == nil {
		t.Error("PageRange accepted inverted range")
	}
	if _, err := PageRange(markedContent, 9, 12); err == nil {
		t.Error("PageRange accepted range beyond the document")
	}
}

func TestPageRangeWithoutMarkers(t *testing.T) {
	got, err := PageRange("just some text", 1, 5)
	if err != nil || got != "just some text" {
		t.Errorf("PageRange() = %q, %v; want passthrough", got, err)
	}
}

// Extracting a sub-range then stripping markers must yield exactly the
// selected page bodies joined by blank lines.
func TestPageMarkerRoundTrip(t *testing.T) {
	sub, err := PageRange(markedContent, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	got := StripMarkers(sub)
	want := "Beta\n\nGamma\n\nDelta"
	if got != want {
		t.Errorf("StripMarkers(PageRange()) = %q, want %q", got, want)
	}
	if strings.Contains(got, "--- Page") {
		t.Error("marker text survived stripping")
	}
}

func TestStripMarkersWithoutMarkers(t *testing.T) {
	if got := StripMarkers("plain text"); got != "plain text" {
		t.Errorf("StripMarkers() = %q, want unchanged", got)
	}
}

func TestPageCount(t *testing.T) {
	if got := PageCount(markedContent); got != 4 {
		t.Errorf("PageCount() = %d, want 4", got)
	}
	if got := PageCount("no markers"); got != 0 {
		t.Errorf("PageCount() = %d, want 0", got)
	}
}

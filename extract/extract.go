// Package extract turns documents into normalized plain text.
//
// Plain text, markdown, webpages and epubs are handled in-process. PDF
// parsing, OCR and office-document conversion are external
// collaborators behind small interfaces; the package owns the strategy
// around them: size-based processing selection, chunked and
// background-worker execution with fallback, per-page OCR recovery,
// page markers and the extraction cache.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/text/unicode/norm"

	"github.com/voxread/voxread/cache"
)

// SourceType tells consumers where a ContentSource came from.
type SourceType string

const (
	TypeWebpage SourceType = "webpage"
	TypeFile    SourceType = "file"
	TypeText    SourceType = "text"
)

// ContentSource is the normalized result of one extraction. It is
// created once per successful extraction and never mutated; loading
// new content replaces the whole value.
type ContentSource struct {
	Type     SourceType
	Title    string
	Content  string
	URL      string
	Filename string
	FileType string
}

// FileInfo carries a file's identity and bytes into the pipeline.
type FileInfo struct {
	Name string
	Size int64
	Data []byte
}

// Document is an opened paged document. Page numbers are 1-based.
type Document interface {
	PageCount() int
	// Page returns the page's extracted text.
	Page(ctx context.Context, n int) (string, error)
	// Render rasterizes the page for OCR.
	Render(ctx context.Context, n int) ([]byte, error)
	Close() error
}

// DocumentOpener parses file bytes into a Document.
type DocumentOpener interface {
	Open(ctx context.Context, data []byte) (Document, error)
}

// OCRReader recognizes text in a rendered page or image.
type OCRReader interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// WordConverter extracts text from word-processor documents.
type WordConverter interface {
	Convert(ctx context.Context, data []byte) (string, error)
}

// SpreadsheetReader extracts cell text from spreadsheet files.
type SpreadsheetReader interface {
	Read(ctx context.Context, data []byte) (string, error)
}

// Config wires a Service. Opener is required for PDF extraction; the
// remaining collaborators and the cache are optional.
type Config struct {
	Opener       DocumentOpener
	OCR          OCRReader
	Word         WordConverter
	Spreadsheet  SpreadsheetReader
	Cache        *cache.Cache
	HTTPClient   *http.Client
	Progress     *Reporter
	FetchTimeout time.Duration
}

// Service is the extraction pipeline.
type Service struct {
	opener   DocumentOpener
	ocr      OCRReader
	word     WordConverter
	sheets   SpreadsheetReader
	cache    *cache.Cache
	client   *http.Client
	progress *Reporter
	worker   *Worker
}

// NewService builds the pipeline and starts its background worker.
func NewService(cfg Config) *Service {
	if cfg.HTTPClient == nil {
		timeout := cfg.FetchTimeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	s := &Service{
		opener:   cfg.Opener,
		ocr:      cfg.OCR,
		word:     cfg.Word,
		sheets:   cfg.Spreadsheet,
		cache:    cfg.Cache,
		client:   cfg.HTTPClient,
		progress: cfg.Progress,
	}
	s.worker = NewWorker(func(ctx context.Context, file FileInfo, progress func(int)) (string, error) {
		return s.processChunked(ctx, file, workerBatchPages, maxWorkerPages, progress)
	})
	return s
}

// Close shuts down the background worker.
func (s *Service) Close() {
	s.worker.Close()
}

// FromText wraps literal text. Never fails.
func (s *Service) FromText(text string) ContentSource {
	return ContentSource{
		Type:    TypeText,
		Title:   textTitle(text),
		Content: normalize(text),
	}
}

// FromImage runs the OCR collaborator over an image file.
func (s *Service) FromImage(ctx context.Context, file FileInfo) (ContentSource, error) {
	if s.ocr == nil {
		return ContentSource{}, fmt.Errorf("%w: no OCR reader configured", ErrUnsupported)
	}
	defer s.progress.Reset()
	s.progress.SetOCR(true)
	defer s.progress.SetOCR(false)

	text, err := s.ocr.Recognize(ctx, file.Data)
	if err != nil {
		return ContentSource{}, fmt.Errorf("recognize image: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return ContentSource{}, fmt.Errorf("%w in image %s", ErrNoContent, file.Name)
	}
	s.progress.Done()
	return ContentSource{
		Type:     TypeFile,
		Title:    file.Name,
		Content:  normalize(text),
		Filename: file.Name,
		FileType: "image",
	}, nil
}

// FromWord runs the word-processor collaborator over a document.
func (s *Service) FromWord(ctx context.Context, file FileInfo) (ContentSource, error) {
	if s.word == nil {
		return ContentSource{}, fmt.Errorf("%w: no word converter configured", ErrUnsupported)
	}
	defer s.progress.Reset()

	text, err := s.word.Convert(ctx, file.Data)
	if err != nil {
		return ContentSource{}, fmt.Errorf("convert document: %w", err)
	}
	s.progress.Done()
	return ContentSource{
		Type:     TypeFile,
		Title:    file.Name,
		Content:  normalize(text),
		Filename: file.Name,
		FileType: "word",
	}, nil
}

// FromSpreadsheet runs the spreadsheet collaborator over a workbook.
func (s *Service) FromSpreadsheet(ctx context.Context, file FileInfo) (ContentSource, error) {
	if s.sheets == nil {
		return ContentSource{}, fmt.Errorf("%w: no spreadsheet reader configured", ErrUnsupported)
	}
	defer s.progress.Reset()

	text, err := s.sheets.Read(ctx, file.Data)
	if err != nil {
		return ContentSource{}, fmt.Errorf("read spreadsheet: %w", err)
	}
	s.progress.Done()
	return ContentSource{
		Type:     TypeFile,
		Title:    file.Name,
		Content:  normalize(text),
		Filename: file.Name,
		FileType: "spreadsheet",
	}, nil
}

// normalize puts extracted text into NFC form so positions computed by
// the playback engine are stable across extraction paths.
func normalize(text string) string {
	return norm.NFC.String(text)
}

// textTitle derives a short title from the first line of literal text.
func textTitle(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	const max = 60
	if len(line) > max {
		line = line[:max] + "…"
	}
	if line == "" {
		return "Untitled text"
	}
	return line
}

func logStrategy(name string, file FileInfo) {
	log.Debug("selected extraction strategy", "strategy", name, "file", file.Name, "size", file.Size)
}

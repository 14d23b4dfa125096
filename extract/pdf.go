package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/voxread/voxread/cache"
)

const (
	mb = 1 << 20

	// maxFileBytes is the hard cap on PDF input size.
	maxFileBytes = 50 * mb
	// chunkedCeilingBytes is the absolute ceiling the chunked
	// processor enforces before touching any page.
	chunkedCeilingBytes = 500 * mb
	// workerThresholdBytes routes larger files to the background
	// worker first.
	workerThresholdBytes = 10 * mb
	// Cacheable size range for extraction results.
	cacheableMinBytes = 1 * mb
	cacheableMaxBytes = maxFileBytes

	// minPageChars is the threshold under which a page's text is
	// considered negligible and routed through OCR.
	minPageChars = 5

	// Batch sizes: the worker trades throughput for latency bounds
	// with smaller batches and a total page cap.
	chunkBatchPages  = 10
	workerBatchPages = 3
	maxWorkerPages   = 500

	// loadRetries is how often the direct path retries document
	// loading before surfacing the failure.
	loadRetries = 3
)

// FromPDF extracts a PDF, choosing a processing strategy from the file
// size:
//
//   - over 50 MB: rejected outright
//   - cache hit (1–50 MB files): returned immediately
//   - over 10 MB: background worker, falling back to in-thread chunked
//     processing, falling back to direct sequential processing
//   - otherwise: direct processing, with one chunked recovery pass if
//     the failure class is transient (worker/memory/timeout)
func (s *Service) FromPDF(ctx context.Context, file FileInfo) (src ContentSource, err error) {
	start := time.Now()
	s.progress.Reset()
	defer func() {
		if err != nil {
			s.progress.Reset()
		}
	}()

	if file.Size > maxFileBytes {
		return ContentSource{}, sizeLimitError(file.Size, maxFileBytes)
	}

	cacheable := s.cache != nil && file.Size >= cacheableMinBytes && file.Size <= cacheableMaxBytes
	var key cache.Key
	if cacheable {
		key = cache.KeyFor(file.Name, file.Size, file.Data)
		if e, ok := s.cache.Get(key); ok {
			log.Debug("extraction cache hit", "key", key.String(), "method", e.Method)
			s.progress.Report(95)
			s.progress.Done()
			return s.pdfSource(file, e.Content), nil
		}
	}

	var text, method string
	if file.Size > workerThresholdBytes {
		logStrategy("worker", file)
		text, err = s.worker.Process(ctx, file, s.progress.Report)
		method = "worker"
		if err != nil {
			log.Debug("worker processing failed, trying chunked", "err", err)
			text, err = s.processChunked(ctx, file, chunkBatchPages, 0, s.progress.Report)
			method = "chunked"
		}
		if err != nil {
			log.Debug("chunked processing failed, trying direct", "err", err)
			text, err = s.processDirect(ctx, file)
			method = "direct"
		}
	} else {
		logStrategy("direct", file)
		text, err = s.processDirect(ctx, file)
		method = "direct"
		if err != nil && Recoverable(err) {
			first := err
			log.Debug("direct processing failed, recovering via chunked", "err", err)
			text, err = s.processChunked(ctx, file, chunkBatchPages, 0, s.progress.Report)
			method = "chunked"
			if err != nil {
				err = fmt.Errorf("%s; recovery also failed: %s", Message(first), Message(err))
			}
		}
	}
	if err != nil {
		return ContentSource{}, err
	}

	content := normalize(text)
	if cacheable {
		s.cache.Put(key, content, method, time.Since(start))
	}
	s.progress.Done()
	return s.pdfSource(file, content), nil
}

func (s *Service) pdfSource(file FileInfo, content string) ContentSource {
	return ContentSource{
		Type:     TypeFile,
		Title:    file.Name,
		Content:  content,
		Filename: file.Name,
		FileType: "pdf",
	}
}

// processDirect extracts pages one at a time, retrying the document
// load before giving up.
func (s *Service) processDirect(ctx context.Context, file FileInfo) (string, error) {
	doc, err := s.openDocument(ctx, file, loadRetries)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	count := doc.PageCount()
	if count == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoContent, file.Name)
	}

	pages := make([]string, 0, count)
	for n := 1; n <= count; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		pages = append(pages, s.extractPage(ctx, doc, n))
		s.progress.Report(n * 100 / count)
	}
	return strings.Join(pages, "\n\n"), nil
}

// processChunked extracts pages in fixed-size batches, pages within a
// batch concurrently, batch results concatenated in page order. When
// maxPages is positive the page count is capped to bound latency.
func (s *Service) processChunked(ctx context.Context, file FileInfo, batchSize, maxPages int, progress func(int)) (string, error) {
	if file.Size > chunkedCeilingBytes {
		return "", sizeLimitError(file.Size, chunkedCeilingBytes)
	}

	doc, err := s.openDocument(ctx, file, 1)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	count := doc.PageCount()
	if count == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoContent, file.Name)
	}
	if maxPages > 0 && count > maxPages {
		log.Debug("capping page count", "pages", count, "cap", maxPages)
		count = maxPages
	}

	pages := make([]string, count)
	for start := 0; start < count; start += batchSize {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		end := start + batchSize
		if end > count {
			end = count
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				pages[i] = s.extractPage(ctx, doc, i+1)
			}(i)
		}
		wg.Wait()

		if progress != nil {
			progress(end * 100 / count)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// openDocument loads the file through the opener collaborator,
// retrying up to attempts times.
func (s *Service) openDocument(ctx context.Context, file FileInfo, attempts int) (Document, error) {
	if s.opener == nil {
		return nil, fmt.Errorf("%w: no document opener configured", ErrUnsupported)
	}
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var doc Document
		doc, err = s.opener.Open(ctx, file.Data)
		if err == nil {
			return doc, nil
		}
		log.Debug("document load failed", "file", file.Name, "attempt", i+1, "err", err)
	}
	return nil, fmt.Errorf("load %s after %d attempts: %w", file.Name, attempts, err)
}

// extractPage applies the per-page contract: extract text, route
// negligible text through OCR, and turn page-level failures into an
// inline error marker instead of failing the document.
func (s *Service) extractPage(ctx context.Context, doc Document, n int) string {
	text, err := doc.Page(ctx, n)
	if err != nil {
		log.Debug("page extraction failed", "page", n, "err", err)
		return pageMarker(n, markerError) + "\n[text could not be extracted]"
	}

	text = strings.TrimSpace(text)
	if len(text) < minPageChars {
		if recovered, ok := s.ocrPage(ctx, doc, n); ok {
			return pageMarker(n, markerOCR) + "\n" + recovered
		}
	}
	return pageMarker(n, markerPlain) + "\n" + text
}

// ocrPage renders a page and runs it through the OCR collaborator.
func (s *Service) ocrPage(ctx context.Context, doc Document, n int) (string, bool) {
	if s.ocr == nil {
		return "", false
	}
	s.progress.SetOCR(true)
	defer s.progress.SetOCR(false)

	img, err := doc.Render(ctx, n)
	if err != nil {
		log.Debug("page render for OCR failed", "page", n, "err", err)
		return "", false
	}
	text, err := s.ocr.Recognize(ctx, img)
	if err != nil {
		log.Debug("OCR failed", "page", n, "err", err)
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return text, true
}

package extract

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Reporter publishes extraction progress to an observer. Percentages
// are clamped to 0..100 and never decrease between resets; rapid
// intermediate updates are rate-limited but the terminal values (a
// reset to 0, completion at 100) are always delivered.
type Reporter struct {
	mu      sync.Mutex
	percent func(int)
	ocr     func(bool)
	last    int
	limiter *rate.Limiter
}

// NewReporter wraps the observer callbacks; either may be nil.
func NewReporter(percent func(int), ocr func(bool)) *Reporter {
	return &Reporter{
		percent: percent,
		ocr:     ocr,
		last:    -1,
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
	}
}

// Report publishes an intermediate percentage. Regressions and
// over-frequent updates are dropped.
func (r *Reporter) Report(p int) {
	if r == nil {
		return
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p <= r.last {
		return
	}
	if p < 100 && !r.limiter.Allow() {
		return
	}
	r.last = p
	r.publish(p)
}

// Reset returns the observer to 0, typically on failure or before a
// new extraction. Always delivered.
func (r *Reporter) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = 0
	r.publish(0)
}

// Done publishes completion. Always delivered.
func (r *Reporter) Done() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = 100
	r.publish(100)
}

// SetOCR toggles the "recognition in progress" flag around OCR
// sub-operations.
func (r *Reporter) SetOCR(on bool) {
	if r == nil {
		return
	}
	r.mu.Lock()
	ocr := r.ocr
	r.mu.Unlock()
	if ocr != nil {
		ocr(on)
	}
}

func (r *Reporter) publish(p int) {
	if r.percent != nil {
		r.percent(p)
	}
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Sentinel errors for conditions the pipeline detects itself.
var (
	// ErrFileTooLarge marks a file over the hard size cap.
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrUnsupported marks input the pipeline has no extractor for.
	ErrUnsupported = errors.New("unsupported input")
	// ErrNoContent marks a document that produced no usable text.
	ErrNoContent = errors.New("no text content found")
)

// Class buckets extraction failures for the recovery decision.
type Class int

const (
	ClassUnknown Class = iota
	ClassCorrupt
	ClassPassword
	ClassUnsupported
	ClassTooLarge
	ClassWorker
	ClassMemory
	ClassTimeout
	ClassCancelled
)

// String implements fmt.Stringer for log output.
func (c Class) String() string {
	switch c {
	case ClassCorrupt:
		return "corrupt"
	case ClassPassword:
		return "password"
	case ClassUnsupported:
		return "unsupported"
	case ClassTooLarge:
		return "too-large"
	case ClassWorker:
		return "worker"
	case ClassMemory:
		return "memory"
	case ClassTimeout:
		return "timeout"
	case ClassCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Classify assigns an error to a taxonomy class. Sentinels and context
// errors are matched structurally; collaborator errors are matched on
// message since their concrete types are not ours to import.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrFileTooLarge):
		return ClassTooLarge
	case errors.Is(err, ErrUnsupported):
		return ClassUnsupported
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassCancelled
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password") || strings.Contains(msg, "encrypt"):
		return ClassPassword
	case strings.Contains(msg, "corrupt") || strings.Contains(msg, "malformed") || strings.Contains(msg, "invalid pdf"):
		return ClassCorrupt
	case strings.Contains(msg, "worker"):
		return ClassWorker
	case strings.Contains(msg, "memory") || strings.Contains(msg, "allocation"):
		return ClassMemory
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") || strings.Contains(msg, "deadline"):
		return ClassTimeout
	case strings.Contains(msg, "cancel") || strings.Contains(msg, "interrupt"):
		return ClassCancelled
	default:
		return ClassUnknown
	}
}

// Recoverable reports whether a failure class warrants one recovery
// pass through a simpler processing strategy.
func Recoverable(err error) bool {
	switch Classify(err) {
	case ClassWorker, ClassMemory, ClassTimeout:
		return true
	default:
		return false
	}
}

// Message renders a single human-readable description for a failure.
// Raw collaborator errors are kept as detail, never shown alone.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch Classify(err) {
	case ClassPassword:
		return "the document is password protected"
	case ClassCorrupt:
		return fmt.Sprintf("the document appears to be corrupted (%v)", err)
	case ClassUnsupported:
		return fmt.Sprintf("this input is not supported (%v)", err)
	case ClassTooLarge:
		return err.Error()
	case ClassTimeout:
		return "extraction timed out"
	case ClassMemory:
		return "extraction ran out of memory"
	case ClassWorker:
		return fmt.Sprintf("background processing failed (%v)", err)
	default:
		return err.Error()
	}
}

// sizeLimitError builds the canonical over-cap error for a file.
func sizeLimitError(size, limit int64) error {
	return fmt.Errorf("%w: %s (limit %s)", ErrFileTooLarge,
		humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)))
}

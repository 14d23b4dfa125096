package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassUnknown},
		{"too large sentinel", fmt.Errorf("pdf: %w", ErrFileTooLarge), ClassTooLarge},
		{"unsupported sentinel", ErrUnsupported, ClassUnsupported},
		{"context deadline", context.DeadlineExceeded, ClassTimeout},
		{"context cancel", context.Canceled, ClassCancelled},
		{"password", errors.New("document is password protected"), ClassPassword},
		{"encrypted", errors.New("AES encrypted stream"), ClassPassword},
		{"corrupt", errors.New("corrupt xref table"), ClassCorrupt},
		{"malformed", errors.New("malformed object stream"), ClassCorrupt},
		{"worker", errors.New("worker terminated unexpectedly"), ClassWorker},
		{"memory", errors.New("out of memory during parse"), ClassMemory},
		{"timeout text", errors.New("operation timed out"), ClassTimeout},
		{"interrupt", errors.New("rendering interrupted"), ClassCancelled},
		{"other", errors.New("something else entirely"), ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRecoverable(t *testing.T) {
	recoverable := []error{
		errors.New("worker terminated"),
		errors.New("out of memory"),
		context.DeadlineExceeded,
	}
	for _, err := range recoverable {
		if !Recoverable(err) {
			t.Errorf("Recoverable(%v) = false, want true", err)
		}
	}

	fatal := []error{
		errors.New("corrupt xref table"),
		errors.New("password protected"),
		ErrUnsupported,
		ErrFileTooLarge,
		context.Canceled,
		errors.New("anything unclassified"),
	}
	for _, err := range fatal {
		if Recoverable(err) {
			t.Errorf("Recoverable(%v) = true, want false", err)
		}
	}
}

func TestMessageIsHumanReadable(t *testing.T) {
	if got := Message(errors.New("password protected")); got != "the document is password protected" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(nil); got != "" {
		t.Errorf("Message(nil) = %q, want empty", got)
	}
}

func TestSizeLimitError(t *testing.T) {
	err := sizeLimitError(600*mb, 500*mb)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("sizeLimitError not wrapping ErrFileTooLarge: %v", err)
	}
	if Classify(err) != ClassTooLarge {
		t.Errorf("Classify() = %v, want too-large", Classify(err))
	}
}

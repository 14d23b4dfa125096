package extract

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWorkerProcessRoundTrip(t *testing.T) {
	w := NewWorker(func(_ context.Context, file FileInfo, progress func(int)) (string, error) {
		progress(50)
		progress(100)
		return "text for " + file.Name, nil
	})
	defer w.Close()

	var mu sync.Mutex
	var ticks []int
	got, err := w.Process(context.Background(), FileInfo{Name: "a.pdf"}, func(p int) {
		mu.Lock()
		ticks = append(ticks, p)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if got != "text for a.pdf" {
		t.Errorf("Process() = %q", got)
	}

	// Progress events are dispatched before the result message, both
	// through the same ordered event stream.
	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 2 || ticks[0] != 50 || ticks[1] != 100 {
		t.Errorf("progress ticks = %v, want [50 100]", ticks)
	}
}

func TestWorkerPropagatesErrors(t *testing.T) {
	boom := errors.New("page renderer crashed")
	w := NewWorker(func(context.Context, FileInfo, func(int)) (string, error) {
		return "", boom
	})
	defer w.Close()

	if _, err := w.Process(context.Background(), FileInfo{}, nil); !errors.Is(err, boom) {
		t.Errorf("Process() error = %v, want %v", err, boom)
	}
}

func TestWorkerSequentialRequests(t *testing.T) {
	w := NewWorker(func(_ context.Context, file FileInfo, _ func(int)) (string, error) {
		return file.Name, nil
	})
	defer w.Close()

	for _, name := range []string{"one", "two", "three"} {
		got, err := w.Process(context.Background(), FileInfo{Name: name}, nil)
		if err != nil || got != name {
			t.Errorf("Process(%s) = %q, %v", name, got, err)
		}
	}
}

func TestWorkerContextCancellation(t *testing.T) {
	release := make(chan struct{})
	w := NewWorker(func(ctx context.Context, _ FileInfo, _ func(int)) (string, error) {
		select {
		case <-release:
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	defer w.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := w.Process(ctx, FileInfo{Name: "slow.pdf"}, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Process() error = %v, want deadline exceeded", err)
	}
}

func TestWorkerClosed(t *testing.T) {
	w := NewWorker(func(context.Context, FileInfo, func(int)) (string, error) {
		return "", nil
	})
	w.Close()
	w.Close() // idempotent

	if _, err := w.Process(context.Background(), FileInfo{}, nil); !errors.Is(err, ErrWorkerClosed) {
		t.Errorf("Process() after close = %v, want ErrWorkerClosed", err)
	}
}

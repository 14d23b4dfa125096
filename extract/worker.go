package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrWorkerClosed is returned for requests after the worker shut down.
var ErrWorkerClosed = errors.New("extraction worker closed")

// ProcessFunc is the work a Worker performs for one request.
type ProcessFunc func(ctx context.Context, file FileInfo, progress func(int)) (string, error)

// workerRequest is the message submitted to the worker goroutine.
type workerRequest struct {
	id   uint64
	ctx  context.Context
	file FileInfo
}

// workerEvent is a message from the worker goroutine back to the
// dispatcher: either a progress tick or the final result.
type workerEvent struct {
	id      uint64
	percent int
	done    bool
	text    string
	err     error
}

// workerResult is what a caller receives for its request.
type workerResult struct {
	text string
	err  error
}

// pendingRequest tracks one in-flight request by correlation id.
type pendingRequest struct {
	result   chan workerResult
	progress func(int)
}

// Worker runs extractions off the caller's goroutine. Requests and
// results are typed messages matched by correlation id, so several
// callers can share one worker without shared mutable state.
type Worker struct {
	fn       ProcessFunc
	requests chan workerRequest
	events   chan workerEvent

	mu      sync.Mutex
	pending map[uint64]*pendingRequest
	nextID  uint64
	closed  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewWorker starts a worker executing fn for each request.
func NewWorker(fn ProcessFunc) *Worker {
	w := &Worker{
		fn:       fn,
		requests: make(chan workerRequest),
		events:   make(chan workerEvent, 16),
		pending:  make(map[uint64]*pendingRequest),
		stop:     make(chan struct{}),
	}
	w.wg.Add(2)
	go w.run()
	go w.dispatch()
	return w
}

// Process submits a file and blocks until the worker answers or the
// context ends.
func (w *Worker) Process(ctx context.Context, file FileInfo, progress func(int)) (string, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return "", ErrWorkerClosed
	}
	w.nextID++
	id := w.nextID
	p := &pendingRequest{result: make(chan workerResult, 1), progress: progress}
	w.pending[id] = p
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.pending, id)
		w.mu.Unlock()
	}()

	select {
	case w.requests <- workerRequest{id: id, ctx: ctx, file: file}:
	case <-ctx.Done():
		return "", fmt.Errorf("worker submit: %w", ctx.Err())
	case <-w.stop:
		return "", ErrWorkerClosed
	}

	select {
	case r := <-p.result:
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("worker wait: %w", ctx.Err())
	case <-w.stop:
		return "", ErrWorkerClosed
	}
}

// Close stops the worker. In-flight callers receive ErrWorkerClosed.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	close(w.stop)
	w.wg.Wait()
}

// run executes requests one at a time, emitting progress and result
// events tagged with the request's correlation id.
func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case req := <-w.requests:
			log.Debug("worker picked up request", "id", req.id, "file", req.file.Name)
			text, err := w.fn(req.ctx, req.file, func(p int) {
				select {
				case w.events <- workerEvent{id: req.id, percent: p}:
				case <-w.stop:
				}
			})
			select {
			case w.events <- workerEvent{id: req.id, done: true, text: text, err: err}:
			case <-w.stop:
				return
			}
		case <-w.stop:
			return
		}
	}
}

// dispatch routes events to pending requests by correlation id. Events
// for requests that already gave up are dropped.
func (w *Worker) dispatch() {
	defer w.wg.Done()
	for {
		select {
		case ev := <-w.events:
			w.mu.Lock()
			p := w.pending[ev.id]
			w.mu.Unlock()
			if p == nil {
				continue
			}
			if ev.done {
				p.result <- workerResult{text: ev.text, err: ev.err}
			} else if p.progress != nil {
				p.progress(ev.percent)
			}
		case <-w.stop:
			return
		}
	}
}

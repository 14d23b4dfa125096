package speech

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ErrInterrupted is the expected error kind a synthesizer raises when
// an utterance is cancelled mid-flight. The engine swallows it during
// controlled stops and restarts.
var ErrInterrupted = errors.New("utterance interrupted")

// Config holds tunables for the playback engine.
type Config struct {
	// MaxChunkSize bounds the length of a single utterance.
	MaxChunkSize int
	// InterChunkDelay is the pause between consecutive utterances,
	// needed to avoid race conditions in some synthesis backends.
	InterChunkDelay time.Duration
	// PauseVerifyDelay is how long after Pause the engine waits before
	// checking whether the synthesizer actually honored the pause.
	PauseVerifyDelay time.Duration
	// InterruptionWindow is how long after a controlled stop the
	// engine keeps swallowing expected interruption errors.
	InterruptionWindow time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize:       DefaultMaxChunkSize,
		InterChunkDelay:    150 * time.Millisecond,
		PauseVerifyDelay:   120 * time.Millisecond,
		InterruptionWindow: time.Second,
	}
}

// Engine drives a Synthesizer chunk by chunk and owns the reading
// session. All public operations are safe for concurrent use; the
// chunk cursor, accumulated-character counter and chunked-playback
// flag are private single-writer state funnelled through the engine's
// transition methods.
type Engine struct {
	mu    sync.Mutex
	synth Synthesizer
	cfg   Config

	settings Settings
	session  Session

	// Chunked playback state.
	chunks      []string
	cursor      int
	accumulated int
	chunked     bool

	// stopping marks a controlled stop so expected interruption errors
	// from the synthesizer are swallowed rather than surfaced.
	stopping  bool
	stoppedAt time.Time

	// transitioning guards pause against overlapping calls until the
	// pause-verify timer has settled.
	transitioning bool

	// generation invalidates callbacks from cancelled utterances.
	generation uint64

	onSession func(Session)
	onError   func(error)
}

// NewEngine creates a playback engine on top of the given synthesizer.
func NewEngine(synth Synthesizer, cfg Config) *Engine {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	return &Engine{
		synth:    synth,
		cfg:      cfg,
		settings: DefaultSettings(),
	}
}

// OnSession registers a callback invoked with a session snapshot after
// every mutation.
func (e *Engine) OnSession(fn func(Session)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSession = fn
}

// OnError registers a callback for playback errors. Expected
// cancellation errors are never delivered.
func (e *Engine) OnError(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = fn
}

// Session returns a snapshot of the current reading session.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Settings returns the current speech settings.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Start begins reading content aloud from the given character offset.
// Any in-flight utterance is cancelled first.
func (e *Engine) Start(content string, fromPosition int) error {
	e.mu.Lock()
	if fromPosition < 0 {
		fromPosition = 0
	}
	if fromPosition > len(content) {
		fromPosition = len(content)
	}

	e.session = Session{
		Content:    content,
		TotalChars: len(content),
		Position:   fromPosition,
		Playing:    true,
	}
	e.stopping = false
	err := e.restartLocked(fromPosition)
	snap, notify := e.session, e.onSession
	e.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
	return err
}

// restartLocked cancels any in-flight utterance and begins chunked
// playback of session.Content from the given offset. The public
// Playing/Paused flags are left as the caller set them.
func (e *Engine) restartLocked(from int) error {
	e.generation++
	e.synth.Cancel()

	e.chunks = ChunkText(e.session.Content[from:], e.cfg.MaxChunkSize)
	e.cursor = 0
	e.accumulated = from
	e.session.Position = from

	if len(e.chunks) == 0 {
		// Nothing speakable; the session completes immediately.
		e.completeLocked()
		return nil
	}

	e.chunked = true
	log.Debug("starting chunked playback", "chunks", len(e.chunks), "from", from)
	return e.speakCurrentLocked()
}

// speakCurrentLocked dispatches the chunk under the cursor.
func (e *Engine) speakCurrentLocked() error {
	chunk := e.chunks[e.cursor]
	events, err := e.synth.Speak(Utterance{Text: chunk, Settings: e.settings})
	if err != nil {
		e.chunked = false
		e.session.Playing = false
		return fmt.Errorf("speak chunk %d: %w", e.cursor, err)
	}

	gen := e.generation
	go e.consume(events, gen, len(chunk))
	return nil
}

// consume drains one utterance's event stream.
func (e *Engine) consume(events <-chan Event, gen uint64, chunkLen int) {
	for ev := range events {
		switch ev.Kind {
		case EventWordBoundary:
			e.onWordBoundary(gen, chunkLen, ev.CharIndex)
		case EventDone:
			e.onChunkDone(gen, chunkLen)
		case EventError:
			e.onSpeakError(gen, ev.Err)
		}
	}
}

// onWordBoundary advances the session position mid-chunk. This is the
// only path by which the position moves during an utterance.
func (e *Engine) onWordBoundary(gen uint64, chunkLen, charIndex int) {
	e.mu.Lock()
	if gen != e.generation || !e.session.Playing {
		e.mu.Unlock()
		return
	}
	if charIndex > chunkLen {
		charIndex = chunkLen
	}
	pos := e.accumulated + charIndex
	// Late or out-of-order events never move the position backwards.
	if pos <= e.session.Position {
		e.mu.Unlock()
		return
	}
	e.session.Position = pos
	snap, notify := e.session, e.onSession
	e.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
}

// onChunkDone advances the cursor and schedules the next chunk, unless
// playback was stopped or paused in the interim.
func (e *Engine) onChunkDone(gen uint64, chunkLen int) {
	e.mu.Lock()
	if gen != e.generation || !e.chunked {
		e.mu.Unlock()
		return
	}

	e.accumulated += chunkLen
	e.cursor++
	if e.cursor >= len(e.chunks) {
		e.completeLocked()
		snap, notify := e.session, e.onSession
		e.mu.Unlock()
		if notify != nil {
			notify(snap)
		}
		return
	}

	if e.accumulated > e.session.Position {
		e.session.Position = e.accumulated
	}
	next := e.generation
	time.AfterFunc(e.cfg.InterChunkDelay, func() { e.dispatchNext(next) })
	snap, notify := e.session, e.onSession
	e.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
}

// dispatchNext speaks the chunk under the cursor after the inter-chunk
// delay, re-checking that chunked playback is still active.
func (e *Engine) dispatchNext(gen uint64) {
	e.mu.Lock()
	if gen != e.generation || !e.chunked {
		e.mu.Unlock()
		return
	}
	err := e.speakCurrentLocked()
	snap, notify := e.session, e.onSession
	onErr := e.onError
	e.mu.Unlock()

	if err != nil {
		log.Error("chunk dispatch failed", "err", err)
		if notify != nil {
			notify(snap)
		}
		if onErr != nil {
			onErr(err)
		}
	}
}

// completeLocked transitions to idle with the position at the end of
// the content (reading complete).
func (e *Engine) completeLocked() {
	e.session.Position = e.session.TotalChars
	e.session.Playing = false
	e.session.Paused = false
	e.chunked = false
	e.chunks = nil
}

// onSpeakError handles a synthesizer error raised mid-utterance.
func (e *Engine) onSpeakError(gen uint64, err error) {
	e.mu.Lock()
	expected := e.stopping || time.Since(e.stoppedAt) < e.cfg.InterruptionWindow
	if gen != e.generation || (expected && IsInterruption(err)) {
		e.mu.Unlock()
		log.Debug("swallowing expected cancellation", "err", err)
		return
	}

	e.chunked = false
	e.session.Playing = false
	e.session.Paused = false
	snap, notify := e.session, e.onSession
	onErr := e.onError
	e.mu.Unlock()

	log.Error("utterance failed", "err", err)
	if notify != nil {
		notify(snap)
	}
	if onErr != nil {
		onErr(err)
	}
}

// Pause suspends playback. Calling Pause while not playing is a no-op.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.transitioning || !e.session.Playing {
		e.mu.Unlock()
		return nil
	}
	e.transitioning = true
	e.session.Playing = false
	e.session.Paused = true
	e.chunked = false

	if err := e.synth.Pause(); err != nil {
		log.Warn("native pause failed", "err", err)
	}

	// The synthesizer may ignore the pause request on some platforms.
	// Verify shortly after; if it is neither paused nor still speaking,
	// force a cancel without losing the current position.
	time.AfterFunc(e.cfg.PauseVerifyDelay, e.verifyPause)

	snap, notify := e.session, e.onSession
	e.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
	return nil
}

func (e *Engine) verifyPause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transitioning = false
	if !e.session.Paused {
		return
	}
	if !e.synth.IsPaused() && !e.synth.Speaking() {
		log.Debug("pause not honored, forcing cancel", "position", e.session.Position)
		e.generation++
		e.stoppedAt = time.Now()
		e.synth.Cancel()
	}
}

// Resume continues playback from the paused position. Because native
// resume is unreliable across platforms, resume is implemented as
// cancel-and-restart at the current position. Calling Resume while
// already playing is a no-op.
func (e *Engine) Resume() error {
	e.mu.Lock()
	if e.transitioning || e.session.Playing || !e.session.Paused {
		e.mu.Unlock()
		return nil
	}
	content, pos := e.session.Content, e.session.Position
	e.mu.Unlock()

	return e.Start(content, pos)
}

// Stop cancels playback and resets the session. Stale callbacks from
// the cancelled utterance are discarded.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.generation++
	e.stopping = true
	e.stoppedAt = time.Now()
	e.synth.Cancel()

	e.chunks = nil
	e.cursor = 0
	e.accumulated = 0
	e.chunked = false
	e.session = Session{}

	snap, notify := e.session, e.onSession
	e.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
}

// UpdateSettings applies a partial settings change. If playback is
// active the current utterance restarts exactly once at the current
// position with the new parameters; the public Playing/Paused flags
// are left untouched.
func (e *Engine) UpdateSettings(u SettingsUpdate) error {
	e.mu.Lock()
	next := u.apply(e.settings)
	if err := next.Validate(); err != nil {
		e.mu.Unlock()
		return err
	}
	if u.Voice != nil && *u.Voice != "" {
		voice, err := ResolveVoice(*u.Voice, e.synth.Voices())
		if err != nil {
			e.mu.Unlock()
			return err
		}
		next.Voice = voice.ID
	}
	e.settings = next

	var err error
	if e.session.Playing {
		e.stoppedAt = time.Now()
		err = e.restartLocked(e.session.Position)
	}
	snap, notify := e.session, e.onSession
	e.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
	return err
}

// IsInterruption reports whether err looks like the expected
// cancellation signal a synthesizer raises for an intentional stop.
func IsInterruption(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInterrupted) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "interrupt") || strings.Contains(msg, "cancel")
}

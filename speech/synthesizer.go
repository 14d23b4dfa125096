// Package speech implements the chunked text-to-speech playback engine.
//
// The engine owns all reading-session state: it splits long text into
// bounded chunks at sentence and word boundaries, drives a Synthesizer
// chunk by chunk, tracks the character position across chunk boundaries
// and exposes play/pause/resume/stop transport operations.
package speech

// EventKind identifies the type of a synthesizer playback event.
type EventKind int

const (
	// EventWordBoundary is emitted when the synthesizer reaches a new
	// word within the current utterance.
	EventWordBoundary EventKind = iota
	// EventDone is emitted once when the utterance finishes playing.
	EventDone
	// EventError is emitted when the utterance fails. No further events
	// follow on the same stream.
	EventError
)

// Event is a playback event raised by a Synthesizer while an utterance
// is being spoken.
type Event struct {
	Kind EventKind
	// CharIndex is the character offset within the utterance text for
	// EventWordBoundary events.
	CharIndex int
	// Err carries the failure for EventError events.
	Err error
}

// Utterance is one discrete unit of synthesized speech: a chunk of text
// plus the settings it should be spoken with.
type Utterance struct {
	Text     string
	Settings Settings
}

// Voice describes a voice offered by a synthesizer.
type Voice struct {
	ID       string
	Name     string
	Language string
}

// Synthesizer abstracts the platform speech-synthesis capability. The
// underlying engine is inherently process-global (one active utterance
// queue), so the engine takes it as an injected dependency and tests
// substitute a deterministic fake.
type Synthesizer interface {
	// Speak begins speaking the utterance and returns a stream of
	// playback events. The stream is closed after EventDone or
	// EventError, or when the utterance is cancelled.
	Speak(u Utterance) (<-chan Event, error)

	// Pause attempts a native pause of the current utterance. Not all
	// platforms honor it; callers must verify via Speaking/IsPaused.
	Pause() error

	// Resume continues a natively paused utterance.
	Resume() error

	// Cancel discards the current utterance, if any. Cancelling when
	// nothing is speaking is a no-op.
	Cancel()

	// Speaking reports whether an utterance is actively playing.
	Speaking() bool

	// IsPaused reports whether the current utterance is natively paused.
	IsPaused() bool

	// Voices lists the voices available for selection.
	Voices() []Voice
}

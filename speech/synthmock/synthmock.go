// Package synthmock provides a deterministic fake synthesizer for
// exercising the playback engine in tests.
package synthmock

import (
	"sync"

	"github.com/voxread/voxread/speech"
)

// Synth implements speech.Synthesizer with manually driven events so
// tests control exactly when word boundaries, completions and errors
// are delivered.
type Synth struct {
	mu sync.Mutex

	utterances []speech.Utterance
	events     chan speech.Event
	speaking   bool
	paused     bool

	// HonorPause controls whether Pause takes effect natively. Set it
	// to false to simulate platforms that ignore pause requests.
	HonorPause bool
	// SpeakErr, when set, makes Speak fail immediately.
	SpeakErr error
	// VoiceList is returned by Voices.
	VoiceList []speech.Voice
	// EmitInterruptedOnCancel makes Cancel deliver the expected
	// interruption error before closing the stream, as real platform
	// engines do.
	EmitInterruptedOnCancel bool
}

// New returns a fake synthesizer with pause honored by default.
func New() *Synth {
	return &Synth{HonorPause: true}
}

// Speak records the utterance and returns a fresh event stream.
func (s *Synth) Speak(u speech.Utterance) (<-chan speech.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SpeakErr != nil {
		return nil, s.SpeakErr
	}
	s.utterances = append(s.utterances, u)
	s.events = make(chan speech.Event, 16)
	s.speaking = true
	s.paused = false
	return s.events, nil
}

// Pause marks the synthesizer paused if HonorPause is set.
func (s *Synth) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.HonorPause && s.speaking {
		s.paused = true
		s.speaking = false
	} else if !s.HonorPause {
		// Simulate an engine that silently drops the utterance.
		s.speaking = false
		s.paused = false
	}
	return nil
}

// Resume clears a native pause.
func (s *Synth) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		s.paused = false
		s.speaking = true
	}
	return nil
}

// Cancel discards the current utterance and closes its event stream.
func (s *Synth) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		return
	}
	if s.EmitInterruptedOnCancel {
		s.events <- speech.Event{Kind: speech.EventError, Err: speech.ErrInterrupted}
	}
	close(s.events)
	s.events = nil
	s.speaking = false
	s.paused = false
}

// Speaking reports whether an utterance is active.
func (s *Synth) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// IsPaused reports whether the synthesizer is natively paused.
func (s *Synth) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Voices returns the configured voice list.
func (s *Synth) Voices() []speech.Voice {
	return s.VoiceList
}

// EmitWord delivers a word-boundary event at the given character index
// within the current utterance.
func (s *Synth) EmitWord(charIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events != nil {
		s.events <- speech.Event{Kind: speech.EventWordBoundary, CharIndex: charIndex}
	}
}

// FinishUtterance completes the current utterance.
func (s *Synth) FinishUtterance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		return
	}
	s.events <- speech.Event{Kind: speech.EventDone}
	close(s.events)
	s.events = nil
	s.speaking = false
}

// FailUtterance aborts the current utterance with err.
func (s *Synth) FailUtterance(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		return
	}
	s.events <- speech.Event{Kind: speech.EventError, Err: err}
	close(s.events)
	s.events = nil
	s.speaking = false
}

// SpeakCount returns how many utterances were dispatched.
func (s *Synth) SpeakCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.utterances)
}

// Utterance returns the i-th dispatched utterance.
func (s *Synth) Utterance(i int) speech.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.utterances[i]
}

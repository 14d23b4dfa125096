// Package audio provides a Synthesizer backed by a PCM generator and
// cross-platform playback through oto.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/voxread/voxread/speech"
)

// Generator produces 16-bit little-endian mono PCM for a piece of text.
// Implementations wrap whatever synthesis backend is available (a piper
// subprocess, an HTTP voice service, ...).
type Generator interface {
	Generate(text string, s speech.Settings) ([]byte, error)
	Voices() []speech.Voice
}

// Config holds audio output parameters.
type Config struct {
	SampleRate int // e.g. 22050 for piper voices, 44100 for CD quality
	Channels   int // 1 or 2
}

// DefaultConfig returns mono CD-quality output, the usual choice for
// synthesized speech.
func DefaultConfig() Config {
	return Config{SampleRate: 44100, Channels: 1}
}

// Player implements speech.Synthesizer on top of oto. One utterance is
// active at a time; word-boundary events are estimated from playback
// time since PCM carries no text alignment.
type Player struct {
	ctx *oto.Context
	gen Generator
	cfg Config

	mu     sync.Mutex
	player *oto.Player
	// data is retained for the duration of playback; releasing it while
	// oto still reads from it causes audible corruption.
	data   []byte
	events chan speech.Event
	stop   chan struct{}
	paused bool
}

// NewPlayer creates a player and waits for the audio device to become
// ready.
func NewPlayer(gen Generator, cfg Config) (*Player, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, fmt.Errorf("channels must be 1 or 2, got %d", cfg.Channels)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("create audio context: %w", err)
	}
	<-ready

	return &Player{ctx: ctx, gen: gen, cfg: cfg}, nil
}

// Speak synthesizes the utterance and starts playback, streaming
// estimated word-boundary events until the audio finishes.
func (p *Player) Speak(u speech.Utterance) (<-chan speech.Event, error) {
	pcm, err := p.gen.Generate(u.Text, u.Settings)
	if err != nil {
		return nil, fmt.Errorf("generate audio: %w", err)
	}
	if len(pcm) == 0 {
		return nil, errors.New("generator returned no audio")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()

	p.data = pcm
	pl := p.ctx.NewPlayer(bytes.NewReader(pcm))
	pl.SetVolume(u.Settings.Volume)
	p.player = pl
	p.paused = false
	p.events = make(chan speech.Event, 64)
	p.stop = make(chan struct{})

	pl.Play()
	go p.track(u.Text, p.duration(len(pcm)), p.events, p.stop, pl)
	return p.events, nil
}

// duration converts a PCM byte count to wall-clock playback time.
func (p *Player) duration(n int) time.Duration {
	samples := n / (p.cfg.Channels * 2)
	return time.Duration(samples) * time.Second / time.Duration(p.cfg.SampleRate)
}

// track emits estimated word boundaries while the audio plays and a
// final done event when it completes.
func (p *Player) track(text string, total time.Duration, events chan speech.Event, stop chan struct{}, pl *oto.Player) {
	starts := wordStarts(text)
	next := 0
	began := time.Now()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			events <- speech.Event{Kind: speech.EventError, Err: speech.ErrInterrupted}
			close(events)
			return
		case <-ticker.C:
			p.mu.Lock()
			paused := p.paused
			p.mu.Unlock()
			if paused {
				began = began.Add(50 * time.Millisecond)
				continue
			}

			if !pl.IsPlaying() {
				events <- speech.Event{Kind: speech.EventDone}
				close(events)
				p.mu.Lock()
				if p.player == pl {
					p.player = nil
					p.data = nil
					p.events = nil
					p.stop = nil
				}
				p.mu.Unlock()
				_ = pl.Close()
				return
			}

			frac := float64(time.Since(began)) / float64(total)
			if frac > 1 {
				frac = 1
			}
			idx := int(frac * float64(len(text)))
			for next < len(starts) && starts[next] <= idx {
				events <- speech.Event{Kind: speech.EventWordBoundary, CharIndex: starts[next]}
				next++
			}
		}
	}
}

// wordStarts returns the character offsets at which words begin.
func wordStarts(text string) []int {
	var starts []int
	inWord := false
	for i, r := range text {
		isSpace := r == ' ' || r == '\n' || r == '\t'
		if !isSpace && !inWord {
			starts = append(starts, i)
		}
		inWord = !isSpace
	}
	return starts
}

// Pause suspends the current utterance.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		return nil
	}
	p.player.Pause()
	p.paused = true
	return nil
}

// Resume continues a paused utterance.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil || !p.paused {
		return nil
	}
	p.player.Play()
	p.paused = false
	return nil
}

// Cancel discards the current utterance, if any.
func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
}

func (p *Player) cancelLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
		p.events = nil
	}
	if p.player != nil {
		_ = p.player.Close()
		p.player = nil
		p.data = nil
	}
	p.paused = false
}

// Speaking reports whether audio is actively playing.
func (p *Player) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player != nil && !p.paused && p.player.IsPlaying()
}

// IsPaused reports whether the current utterance is paused.
func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player != nil && p.paused
}

// Voices lists the generator's voices.
func (p *Player) Voices() []speech.Voice {
	return p.gen.Voices()
}

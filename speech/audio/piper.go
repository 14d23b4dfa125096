package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/voxread/voxread/speech"
)

// PiperGenerator produces PCM by running the piper binary once per
// utterance with raw output on stdout.
type PiperGenerator struct {
	Binary string
	Model  string
}

// NewPiperGenerator configures a generator for the given model file.
func NewPiperGenerator(binary, model string) *PiperGenerator {
	if binary == "" {
		binary = "piper"
	}
	return &PiperGenerator{Binary: binary, Model: model}
}

// Available reports whether the piper binary can be executed.
func (g *PiperGenerator) Available() bool {
	return exec.Command(g.Binary, "--version").Run() == nil
}

// Generate synthesizes text to 16-bit mono PCM. The playback rate maps
// to piper's length scale, which stretches phoneme duration inversely.
func (g *PiperGenerator) Generate(text string, s speech.Settings) ([]byte, error) {
	if g.Model == "" {
		return nil, errors.New("piper model not configured")
	}

	lengthScale := 1.0
	if s.Rate > 0 {
		lengthScale = 1.0 / s.Rate
	}
	args := []string{
		"--model", g.Model,
		"--output-raw",
		"--length_scale", fmt.Sprintf("%.3f", lengthScale),
	}

	log.Debug("running piper", "binary", g.Binary, "args", args, "chars", len(text))
	cmd := exec.Command(g.Binary, args...)
	cmd.Stdin = bytes.NewBufferString(text + "\n")

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("piper failed: %w: %s", err, bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, fmt.Errorf("piper failed: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("piper produced no audio")
	}
	return out, nil
}

// Voices reports the configured model as the single available voice.
func (g *PiperGenerator) Voices() []speech.Voice {
	name := strings.TrimSuffix(filepath.Base(g.Model), ".onnx")
	if name == "" || name == "." {
		name = "default"
	}
	return []speech.Voice{{ID: name, Name: name, Language: voiceLanguage(name)}}
}

// voiceLanguage extracts the language tag from piper model names like
// en_US-lessac-medium.
func voiceLanguage(model string) string {
	if i := strings.IndexByte(model, '-'); i > 0 {
		return strings.ReplaceAll(model[:i], "_", "-")
	}
	return "en-US"
}

package speech

import (
	"fmt"

	"github.com/sahilm/fuzzy"
)

// Settings holds the speech parameters applied to every utterance.
type Settings struct {
	Rate   float64 `yaml:"rate" env:"VOXREAD_RATE" envDefault:"1.0"`
	Pitch  float64 `yaml:"pitch" env:"VOXREAD_PITCH" envDefault:"1.0"`
	Volume float64 `yaml:"volume" env:"VOXREAD_VOLUME" envDefault:"1.0"`
	Voice  string  `yaml:"voice" env:"VOXREAD_VOICE"`
}

// DefaultSettings returns the process-wide default speech settings.
func DefaultSettings() Settings {
	return Settings{Rate: 1.0, Pitch: 1.0, Volume: 1.0}
}

// Validate checks that the settings are within their allowed ranges.
func (s Settings) Validate() error {
	if s.Rate < 0.1 || s.Rate > 3.0 {
		return fmt.Errorf("rate must be between 0.1 and 3.0, got %.2f", s.Rate)
	}
	if s.Volume < 0.0 || s.Volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %.2f", s.Volume)
	}
	return nil
}

// SettingsUpdate describes a partial settings change. Nil fields are
// left untouched.
type SettingsUpdate struct {
	Rate   *float64
	Pitch  *float64
	Volume *float64
	Voice  *string
}

// apply merges the update into s and returns the result.
func (u SettingsUpdate) apply(s Settings) Settings {
	if u.Rate != nil {
		s.Rate = *u.Rate
	}
	if u.Pitch != nil {
		s.Pitch = *u.Pitch
	}
	if u.Volume != nil {
		s.Volume = *u.Volume
	}
	if u.Voice != nil {
		s.Voice = *u.Voice
	}
	return s
}

// ResolveVoice matches a requested voice name against the available
// voices, by exact ID first and then by fuzzy name match. An empty
// request resolves to the empty voice (synthesizer default).
func ResolveVoice(request string, voices []Voice) (Voice, error) {
	if request == "" {
		return Voice{}, nil
	}
	names := make([]string, 0, len(voices)*2)
	for _, v := range voices {
		if v.ID == request {
			return v, nil
		}
		names = append(names, v.Name, v.ID)
	}
	matches := fuzzy.Find(request, names)
	if len(matches) == 0 {
		return Voice{}, fmt.Errorf("no voice matches %q", request)
	}
	return voices[matches[0].Index/2], nil
}

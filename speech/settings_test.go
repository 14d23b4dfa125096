package speech

import "testing"

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"defaults", DefaultSettings(), false},
		{"min rate", Settings{Rate: 0.1, Volume: 0.5}, false},
		{"max rate", Settings{Rate: 3.0, Volume: 1.0}, false},
		{"rate too low", Settings{Rate: 0.05, Volume: 1.0}, true},
		{"rate too high", Settings{Rate: 3.5, Volume: 1.0}, true},
		{"volume too high", Settings{Rate: 1.0, Volume: 1.5}, true},
		{"volume negative", Settings{Rate: 1.0, Volume: -0.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettingsUpdateApply(t *testing.T) {
	rate := 2.0
	voice := "en-GB-1"
	got := SettingsUpdate{Rate: &rate, Voice: &voice}.apply(DefaultSettings())

	if got.Rate != 2.0 {
		t.Errorf("Rate = %v, want 2.0", got.Rate)
	}
	if got.Voice != "en-GB-1" {
		t.Errorf("Voice = %q, want en-GB-1", got.Voice)
	}
	// Untouched fields keep their previous values.
	if got.Volume != 1.0 || got.Pitch != 1.0 {
		t.Errorf("unchanged fields mutated: %+v", got)
	}
}

func TestResolveVoice(t *testing.T) {
	voices := []Voice{
		{ID: "en-US-1", Name: "Amber", Language: "en-US"},
		{ID: "en-GB-1", Name: "Brian", Language: "en-GB"},
	}

	tests := []struct {
		name    string
		request string
		wantID  string
		wantErr bool
	}{
		{"empty request is default voice", "", "", false},
		{"exact id", "en-GB-1", "en-GB-1", false},
		{"fuzzy name", "brian", "en-GB-1", false},
		{"partial name", "amb", "en-US-1", false},
		{"no match", "zzz", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveVoice(tt.request, voices)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveVoice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.ID != tt.wantID {
				t.Errorf("ResolveVoice() = %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}

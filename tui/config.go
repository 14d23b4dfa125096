package tui

// Config contains TUI-specific configuration.
type Config struct {
	GlamourMaxWidth uint
	GlamourStyle    string `env:"GLAMOUR_STYLE"`
	ShowMarkers     bool   `env:"VOXREAD_SHOW_MARKERS"`

	// WatchSource re-extracts the source file when it changes on disk.
	WatchSource bool `env:"VOXREAD_WATCH" envDefault:"true"`

	// For debugging the UI
	GlamourEnabled bool `env:"VOXREAD_ENABLE_GLAMOUR" envDefault:"true"`
}

// DefaultConfig returns the TUI defaults used when env parsing is
// skipped.
func DefaultConfig() Config {
	return Config{
		GlamourMaxWidth: 120,
		GlamourStyle:    "auto",
		WatchSource:     true,
		GlamourEnabled:  true,
	}
}

package speech

// Status represents the transport state of the playback engine.
type Status int

const (
	// StatusIdle indicates nothing is loaded or playback was stopped.
	StatusIdle Status = iota
	// StatusPlaying indicates an utterance is being spoken.
	StatusPlaying
	// StatusPaused indicates playback is suspended at a position.
	StatusPaused
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Session is a read-only snapshot of the reading session. The engine
// publishes a fresh snapshot after every mutation; consumers must not
// retain and mutate it.
type Session struct {
	// Content is the full text loaded for reading. Immutable for the
	// session's lifetime once started.
	Content string
	// Position is the character offset into Content. It advances
	// monotonically during playback and is rewound only by transport
	// operations.
	Position int
	// TotalChars is the cached length of Content.
	TotalChars int
	// Playing and Paused are mutually exclusive; both false means idle.
	Playing bool
	Paused  bool
}

// Status derives the transport state from the session flags.
func (s Session) Status() Status {
	switch {
	case s.Playing:
		return StatusPlaying
	case s.Paused:
		return StatusPaused
	default:
		return StatusIdle
	}
}

// Progress returns playback progress in the range 0.0 to 1.0.
func (s Session) Progress() float64 {
	if s.TotalChars == 0 {
		return 0
	}
	return float64(s.Position) / float64(s.TotalChars)
}

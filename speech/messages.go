package speech

// Messages for Bubble Tea communication between the engine and the UI.

// SessionMsg carries a fresh session snapshot after an engine mutation.
type SessionMsg struct {
	Session Session
}

// PlaybackErrorMsg carries a playback error surfaced by the engine.
type PlaybackErrorMsg struct {
	Err error
}

// SettingsMsg reports the settings in effect after an update.
type SettingsMsg struct {
	Settings Settings
}

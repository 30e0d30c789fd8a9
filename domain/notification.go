package domain

// NotificationState tracks whether local alerts may be played.
// Primed only becomes true after a successful unlock, Enabled may regress to false
// when a playback fails.
type NotificationState struct {
	Enabled bool
	Primed  bool
}

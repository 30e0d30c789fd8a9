package domain

// Identity is the display name a participant chose for the current session.
// It is not authenticated.
type Identity struct {
	DisplayName string
}

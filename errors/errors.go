package errors

import "fmt"

var (
	// Store boundary
	ErrNotFound      = fmt.Errorf("not found")
	ErrWriteRejected = fmt.Errorf("write rejected")

	// Engine
	ErrRoomNotFound        = fmt.Errorf("room not found")
	ErrStoreWriteFailed    = fmt.Errorf("store write failed")
	ErrNoIdentity          = fmt.Errorf("no identity in session")
	ErrChannelDisconnected = fmt.Errorf("event channel disconnected")
	ErrAudioUnavailable    = fmt.Errorf("audio unavailable")
	ErrRoomSwitched        = fmt.Errorf("room switched before load completed")
	ErrEmptyMessage        = fmt.Errorf("message body is empty")
	ErrEmptyRoomName       = fmt.Errorf("room name is empty")
	ErrNotInRoom           = fmt.Errorf("not in a room")
	ErrUnknownTopic        = fmt.Errorf("unknown topic")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)

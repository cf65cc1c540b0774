package tracker

import "go.trai.ch/zerr"

var (
	// ErrSessionNotFound is returned when no session has the requested id.
	ErrSessionNotFound = zerr.New("session not found")

	// ErrSessionActive is returned when an operation needs a finished session.
	ErrSessionActive = zerr.New("session is still being monitored")

	// ErrStartFailed is returned when a new session could not begin watching.
	ErrStartFailed = zerr.New("failed to start monitoring session")

	// ErrClosed is returned after Close.
	ErrClosed = zerr.New("tracker is closed")
)

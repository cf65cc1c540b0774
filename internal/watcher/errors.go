package watcher

import "go.trai.ch/zerr"

var (
	// ErrAlreadyActive is returned by Start on a watcher that is running.
	ErrAlreadyActive = zerr.New("watcher is already active")

	// ErrCreateFailed is returned when the OS notification handle cannot be created.
	ErrCreateFailed = zerr.New("failed to create filesystem watcher")

	// ErrStartFailed is returned when none of the roots could be registered.
	ErrStartFailed = zerr.New("failed to start filesystem watcher")
)

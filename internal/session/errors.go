package session

import "go.trai.ch/zerr"

var (
	// ErrStoreCreateFailed is returned when the data directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create session data directory")

	// ErrStoreReadFailed is returned when the sessions file exists but cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read session state")

	// ErrStoreWriteFailed is returned when the sessions file cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to persist session state")
)

// CorruptError is returned by Load when the sessions file cannot be decoded.
// The unreadable file has been moved to QuarantinePath.
type CorruptError struct {
	Path           string
	QuarantinePath string // empty if the file could not be moved aside
	Err            error
}

func (e *CorruptError) Error() string {
	msg := "session state at " + e.Path + " is corrupt: " + e.Err.Error()
	if e.QuarantinePath != "" {
		msg += " (moved to " + e.QuarantinePath + ")"
	}
	return msg
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

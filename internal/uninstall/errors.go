package uninstall

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrInvalidMode is returned when a removal mode name is not recognised.
	ErrInvalidMode = zerr.New("invalid uninstall mode")

	// ErrNoTrash is returned when trash mode is requested without a Trasher.
	ErrNoTrash = zerr.New("no trash available")

	// ErrPartlyTrashed is returned when a complete copy reached the trash but
	// the original could not be fully removed. Both copies are left in place.
	ErrPartlyTrashed = zerr.New("copied to trash but the original could not be fully removed")
)

// DeletionError is the failure to remove a single path.
type DeletionError struct {
	Path string
	Mode Mode
	Err  error
}

func (e *DeletionError) Error() string {
	if e.Mode == ModeTrash {
		return fmt.Sprintf("failed to move %s to trash: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to delete %s: %v", e.Path, e.Err)
}

func (e *DeletionError) Unwrap() error {
	return e.Err
}

// Failure pairs a path with the reason it could not be removed.
type Failure struct {
	Path string
	Err  error
}

// PartialFailure is returned by Run when at least one path could not be
// removed. The remaining paths were still attempted.
type PartialFailure struct {
	Succeeded int
	Failures  []Failure
}

func (e *PartialFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "uninstall incomplete: %d removed, %d failed", e.Succeeded, len(e.Failures))
	for _, f := range e.Failures {
		b.WriteString("\n  ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

// Unwrap exposes every individual failure to errors.Is and errors.As.
func (e *PartialFailure) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Package clipboard gives text access to the system clipboard through interchangeable backends.
package clipboard

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means no clipboard backend could be initialised at all.
	ErrUnavailable = errors.New("clipboard unavailable")
	// ErrRead wraps a failure to read an otherwise working clipboard, which is worth retrying later.
	ErrRead        = errors.New("clipboard read failed")
	ErrWrite       = errors.New("clipboard write failed")
)

type Clipboard interface {
	// Name identifies the backend in logs.
	Name() string
	Read() (string, error)
	Write(text string) error
}

// New returns the named backend: "native", "command", or "auto" (native, falling back to command).
func New(kind string) (Clipboard, error) {
	switch kind {
	case "native":
		return NewNative()
	case "command":
		return NewCommand()
	case "", "auto":
		native, nativeErr := NewNative()
		if nativeErr == nil {
			return native, nil
		}
		command, commandErr := NewCommand()
		if commandErr == nil {
			return command, nil
		}
		return nil, fmt.Errorf("%w: native: %v; command: %v", ErrUnavailable, nativeErr, commandErr)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnavailable, kind)
	}
}

// Verify checks that c can actually be read, turning a read failure into ErrUnavailable.
func Verify(c Clipboard) error {
	if _, err := c.Read(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.Name(), err)
	}
	return nil
}

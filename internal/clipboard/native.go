package clipboard

import (
	"fmt"

	"golang.design/x/clipboard"
)

// Native uses the platform clipboard API directly (requires cgo on Linux and macOS).
type Native struct{}

func NewNative() (*Native, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Native{}, nil
}

func (*Native) Name() string {
	return "native"
}

// Read returns the text on the clipboard, or "" if it holds no text.
func (*Native) Read() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (*Native) Write(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

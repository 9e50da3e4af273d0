// Package desktop implements the platform primitives on top of the system
// clipboard, synthetic key events and global hotkeys.
package desktop

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/llm-translator-go/internal/platform"
)

// Clipboard is the system clipboard.
type Clipboard struct{}

// NewClipboard returns the system clipboard, or ErrClipboardUnavailable when
// no clipboard utility is installed.
func NewClipboard() (*Clipboard, error) {
	if clipboard.Unsupported {
		return nil, fmt.Errorf("%w: no clipboard utility found", platform.ErrClipboardUnavailable)
	}
	return &Clipboard{}, nil
}

func (Clipboard) ReadText() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: %v", platform.ErrClipboardUnavailable, err)
	}
	return text, nil
}

func (Clipboard) WriteText(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", platform.ErrClipboardUnavailable, err)
	}
	return nil
}
